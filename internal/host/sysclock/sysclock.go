// Package sysclock provides the default host.Clock implementation.
package sysclock

import "github.com/embr-lang/embr/internal/host"

// New returns the process-wall-clock backed host.Clock used by cmd/embr.
func New() host.Clock {
	return host.NewSystemClock()
}
