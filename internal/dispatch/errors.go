package dispatch

import "fmt"

// StderrError means the script wrote to its error stream.
type StderrError struct {
	Text string `json:"text"`
	// ExitCode is -1 when the outcome was decided before the process exited.
	ExitCode int `json:"exitCode"`
}

// Error returns the stderr text verbatim.
func (e *StderrError) Error() string {
	if e == nil {
		return ""
	}
	return e.Text
}

// ExitError means the script exited non-zero without writing to stderr.
type ExitError struct {
	Code int `json:"code"`
}

// Error formats the exit code message shown to the user.
func (e *ExitError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("Process exited with code %d", e.Code)
}

// DispatchError is a stage-aware failure that happened around the script
// rather than inside it: start failures, pipe setup, cancellation.
type DispatchError struct {
	Stage   string   `json:"stage"`
	Command string   `json:"command"`
	Args    []string `json:"args"`
	Err     error    `json:"-"`
}

// Error formats dispatch failures for logs and UI.
func (e *DispatchError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Stage, e.Command)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Command, e.Err)
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *DispatchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
