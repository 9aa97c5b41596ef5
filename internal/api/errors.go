package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"

	"tasker/internal/service"
)

// wrapTransportError classifies failures that happened before a response arrived.
func wrapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: request timed out", service.ErrNetwork)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: cancelled", service.ErrNetwork)
	}
	return fmt.Errorf("%w: %v", service.ErrNetwork, err)
}

// wrapError maps a non-2xx response to the service error classes, keeping
// the server's detail message when there is one.
func wrapError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return fmt.Errorf("%w: %v", service.ErrNetwork, err)
	}

	msg := detail(gerr)
	switch gerr.Code {
	case http.StatusUnauthorized:
		if msg == "" {
			msg = "token expired or revoked (run: tasker login)"
		}
		return fmt.Errorf("%w: %s", service.ErrAuth, msg)
	case http.StatusNotFound:
		if msg == "" {
			msg = "not found"
		}
		return fmt.Errorf("%w: %w: %s", service.ErrNetwork, service.ErrNotFound, msg)
	default:
		if msg == "" {
			msg = http.StatusText(gerr.Code)
		}
		return fmt.Errorf("%w: %d %s", service.ErrNetwork, gerr.Code, msg)
	}
}

// detail extracts the message from a {"detail": ...} error body.
// Validation failures carry a list of objects with a "msg" field.
func detail(gerr *googleapi.Error) string {
	if gerr.Message != "" {
		return gerr.Message
	}
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal([]byte(gerr.Body), &body); err != nil || len(body.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(body.Detail, &items); err == nil && len(items) > 0 {
		return items[0].Msg
	}
	return ""
}
