// Package account composes the service calls and session transitions that
// make up login, signup and logout.
package account

import (
	"context"
	"fmt"

	"tasker/internal/service"
	"tasker/internal/session"
)

// Login exchanges creds for a token and establishes the session.
// A token that cannot be persisted is a failed login.
func Login(ctx context.Context, svc service.Service, sess *session.Manager, creds service.Credentials) error {
	token, err := svc.Login(ctx, creds)
	if err != nil {
		return err
	}
	if err := sess.Establish(ctx, token); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return nil
}

// Signup creates the account and then logs in with the same credentials.
func Signup(ctx context.Context, svc service.Service, sess *session.Manager, creds service.Credentials) (service.User, error) {
	user, err := svc.Signup(ctx, creds)
	if err != nil {
		return service.User{}, err
	}
	if err := Login(ctx, svc, sess, creds); err != nil {
		return user, err
	}
	return user, nil
}

// Logout clears the session. It reports whether a session existed.
func Logout(ctx context.Context, sess *session.Manager) (bool, error) {
	wasLoggedIn := sess.State() == session.Authenticated
	if err := sess.Clear(ctx); err != nil {
		return wasLoggedIn, fmt.Errorf("logout: %w", err)
	}
	return wasLoggedIn, nil
}
