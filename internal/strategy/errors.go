package strategy

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownStrategy means the requested name is not registered, not
	// loadable from configuration and not discoverable.
	ErrUnknownStrategy = errors.New("unknown strategy")

	// ErrConfig means the strategy configuration file is missing, malformed
	// or incomplete.
	ErrConfig = errors.New("invalid strategy configuration")
)

// BackendError wraps a recognized service-level failure from a remote
// generation backend, naming the model that failed. Unrecognized failures
// propagate unwrapped.
type BackendError struct {
	Model string
	Err   error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("failed to generate text with model %s: %v", e.Model, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }
