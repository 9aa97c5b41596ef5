// Package service defines the backend-agnostic interface for task operations.
package service

import "context"

// Service defines the interface for task backend operations.
// All task service calls go through this interface.
// Commands never build HTTP requests directly.
type Service interface {
	// Signup registers a new account. It does not log in.
	Signup(ctx context.Context, creds Credentials) (User, error)

	// Login exchanges credentials for an access token.
	Login(ctx context.Context, creds Credentials) (string, error)

	// Me returns the profile of the authenticated user.
	Me(ctx context.Context) (User, error)

	// ListTasks returns all tasks of the current user in server order
	// (newest first). An empty slice is not an error.
	ListTasks(ctx context.Context) ([]Task, error)

	// CreateTask creates a task and returns the server's representation.
	// Returns ErrValidation without a network call if title is blank.
	CreateTask(ctx context.Context, title string) (Task, error)

	// CompleteTask marks a task as completed and returns it.
	CompleteTask(ctx context.Context, id int64) (Task, error)

	// EditTask changes a task's title and returns it.
	// Returns ErrValidation without a network call if title is blank.
	EditTask(ctx context.Context, id int64, title string) (Task, error)
}
