package core

import (
	"errors"
	"fmt"
)

// ErrEndpointNotConfigured is returned by Run when no completion endpoint
// was assembled at bootstrap. The turn never starts.
var ErrEndpointNotConfigured = errors.New("completion endpoint is not configured")

// MaxStepsError reports that a turn hit the per-turn step cap. It is not
// retried; the cap exists to stop runaway tool-use loops.
type MaxStepsError struct {
	Steps int
}

func (e *MaxStepsError) Error() string {
	return fmt.Sprintf("turn exceeded maximum of %d steps", e.Steps)
}
