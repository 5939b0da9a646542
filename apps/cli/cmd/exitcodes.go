package cmd

import "strconv"

// Exit codes for hitgraph CLI
const (
	// ExitSuccess indicates all tests passed
	ExitSuccess = 0

	// ExitTestFailure indicates one or more tests failed or were skipped
	ExitTestFailure = 1

	// ExitGraphError indicates the test graph could not be built
	ExitGraphError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitRunError indicates the run was aborted before every test finished
	ExitRunError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// exitError carries the process exit code out of a command. A nil err exits
// quietly, the reporters having already explained the outcome.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return "exit status " + strconv.Itoa(e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	return &exitError{code: code, err: err}
}
