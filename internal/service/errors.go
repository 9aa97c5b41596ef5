package service

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes. Backends wrap one of these so callers can use errors.Is.
var (
	// ErrValidation is returned for invalid input, before any network call.
	ErrValidation = errors.New("validation error")

	// ErrAuth is returned when there is no session or the server rejects it.
	ErrAuth = errors.New("auth error")

	// ErrNetwork is returned on transport failure or a non-2xx response.
	ErrNetwork = errors.New("network error")

	// ErrStorage is returned when the session token cannot be persisted or removed.
	ErrStorage = errors.New("storage error")

	// ErrNotFound accompanies ErrNetwork on 404 responses.
	ErrNotFound = errors.New("not found")
)

// NormalizeTitle trims a task title and rejects blank ones.
func NormalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("%w: title required", ErrValidation)
	}
	return title, nil
}

// ValidateCredentials checks that email and password are present.
func ValidateCredentials(creds Credentials) error {
	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		return fmt.Errorf("%w: email and password required", ErrValidation)
	}
	return nil
}
