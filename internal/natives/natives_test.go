package natives_test

import (
	"strings"
	"testing"

	"github.com/embr-lang/embr/internal/compiler"
	"github.com/embr-lang/embr/internal/host"
	"github.com/embr-lang/embr/internal/natives"
	"github.com/embr-lang/embr/internal/vm"
)

func run(t *testing.T, src string) string {
	t.Helper()
	proto, errs := compiler.Compile(src, "test")
	if len(errs) != 0 {
		t.Fatalf("compile errors: %v", errs)
	}
	machine := vm.New()
	natives.RegisterAll(machine)
	var out strings.Builder
	machine.SetOutput(&out)
	if _, err := machine.Run(proto, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return strings.TrimSpace(out.String())
}

func TestLengthOnStringArrayDict(t *testing.T) {
	got := run(t, `
out length("hello");
out length([1, 2, 3]);
out length({"a": 1, "b": 2});
`)
	want := "5\n3\n2"
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestAppendPrependMutateInPlace(t *testing.T) {
	got := run(t, `
var a = [10, 20, 30];
append(a, 40);
prepend(a, 5);
out a[0];
out a[4];
out length(a);
`)
	want := "5\n40\n5"
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestHeadTailRestSemantics(t *testing.T) {
	got := run(t, `
var a = [1, 2, 3];
out head(a);
out length(a);
out tail(a);
out length(a);
var b = [1, 2, 3];
var r = rest(b);
out length(b);
out length(r);
out r[0];
`)
	want := "1\n2\n3\n1\n3\n2\n2"
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestRemoveDeletesDictKey(t *testing.T) {
	got := run(t, `
var d = {"a": 1, "b": 2};
remove(d, "a");
out length(d);
out d.b;
`)
	want := "1\n2"
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestHeadOnEmptyArrayIsRuntimeError(t *testing.T) {
	proto, errs := compiler.Compile(`var a = []; head(a);`, "test")
	if len(errs) != 0 {
		t.Fatalf("compile errors: %v", errs)
	}
	machine := vm.New()
	natives.RegisterAll(machine)
	if _, err := machine.Run(proto, nil); err == nil {
		t.Fatalf("expected an error calling head() on an empty array")
	} else if !strings.Contains(err.Error(), "SKILL ISSUE:") {
		t.Errorf("expected the SKILL ISSUE prefix, got %q", err.Error())
	}
}

type fakeClock struct{ process, wall float64 }

func (c fakeClock) ProcessSeconds() float64 { return c.process }
func (c fakeClock) WallSeconds() float64    { return c.wall }

func TestClockAndTimeUseInjectedClock(t *testing.T) {
	proto, errs := compiler.Compile(`
fn elapsed() { return clock(); }
fn wall() { return time(); }
`, "test")
	if len(errs) != 0 {
		t.Fatalf("compile errors: %v", errs)
	}
	machine := vm.New()
	natives.RegisterAll(machine)
	machine.SetClock(fakeClock{process: 1.5, wall: 999})
	if _, err := machine.Run(proto, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got, err := machine.Call("elapsed", nil); err != nil || got.AsNumber() != 1.5 {
		t.Errorf("expected clock() == 1.5, got %v (err %v)", got, err)
	}
	if got, err := machine.Call("wall", nil); err != nil || got.AsNumber() != 999 {
		t.Errorf("expected time() == 999, got %v (err %v)", got, err)
	}
}

var _ host.Clock = fakeClock{}
