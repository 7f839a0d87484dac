// Package fsimport implements host.Importer over the local filesystem,
// mirroring the original interpreter's loadFile: a name is resolved first
// under a "stl/" standard-library directory, then relative to the base
// directory, both with a ".mbr" extension appended.
package fsimport

import (
	"os"
	"path/filepath"
)

// FS resolves import names against a base directory.
type FS struct {
	BaseDir string
}

// New constructs an FS importer rooted at baseDir.
func New(baseDir string) *FS {
	return &FS{BaseDir: baseDir}
}

// Load implements host.Importer.
func (f *FS) Load(name string) (string, string, error) {
	candidates := []string{
		filepath.Join(f.BaseDir, "stl", name+".mbr"),
		filepath.Join(f.BaseDir, name+".mbr"),
	}
	var lastErr error
	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			lastErr = err
			continue
		}
		return string(data), path, nil
	}
	return "", "", lastErr
}
