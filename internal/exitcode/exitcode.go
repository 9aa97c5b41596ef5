// Package exitcode defines exit codes for the CLI.
package exitcode

// Exit codes, one per error class.
const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, empty title, missing credentials).
	UserError = 1

	// AuthError indicates no session or a rejected one.
	AuthError = 2

	// BackendError indicates a network error or non-2xx response.
	BackendError = 3

	// StorageError indicates the session token could not be saved or removed.
	StorageError = 4
)
