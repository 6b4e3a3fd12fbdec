// ABOUTME: Error kinds shared across the bridge's collaborators
// ABOUTME: Distinguishes what must reach the process boundary from what is absorbed locally
package bridgeerr

import "fmt"

// ConfigError marks an invalid option, response file, or device selection.
// Callers surface it to the user and exit with status 1.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

// NewConfigError wraps a message as a ConfigError.
func NewConfigError(format string, args ...interface{}) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// ConnectError marks a failure to open the player connection or the MIDI
// output port. Callers surface it to the user and exit with status 2.
type ConnectError struct {
	Msg string
	Err error
}

func (e *ConnectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ConnectError) Unwrap() error { return e.Err }

// NewConnectError wraps an underlying error as a ConnectError.
func NewConnectError(msg string, err error) error {
	return &ConnectError{Msg: msg, Err: err}
}

// TransientIOError marks a single failed MIDI write. It is logged and
// absorbed; the next quarter-frame or snapshot resynchronizes.
type TransientIOError struct {
	Msg string
	Err error
}

func (e *TransientIOError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *TransientIOError) Unwrap() error { return e.Err }

// NewTransientIOError wraps an underlying error as a TransientIOError.
func NewTransientIOError(msg string, err error) error {
	return &TransientIOError{Msg: msg, Err: err}
}

// InvariantViolation marks a skipped update (dX <= 0, an invalid time pair)
// that the scheduler recovers from locally rather than propagating.
type InvariantViolation struct {
	Msg string
}

func (e *InvariantViolation) Error() string { return e.Msg }

// NewInvariantViolation wraps a message as an InvariantViolation.
func NewInvariantViolation(format string, args ...interface{}) error {
	return &InvariantViolation{Msg: fmt.Sprintf(format, args...)}
}
