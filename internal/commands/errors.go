package commands

import (
	"errors"
	"fmt"
	"io"

	"tasker/internal/exitcode"
	"tasker/internal/service"
)

// reportError prints err as a single "error: ..." line and returns the
// exit code for its class.
func reportError(errOut io.Writer, err error) int {
	fmt.Fprintf(errOut, "error: %v\n", err)
	return codeFor(err)
}

func codeFor(err error) int {
	switch {
	case errors.Is(err, service.ErrStorage):
		return exitcode.StorageError
	case errors.Is(err, service.ErrAuth):
		return exitcode.AuthError
	case errors.Is(err, service.ErrValidation):
		return exitcode.UserError
	default:
		return exitcode.BackendError
	}
}
