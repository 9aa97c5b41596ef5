// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"tasker/internal/service"
)

// DateLayout is how a task's creation date is shown.
const DateLayout = "2006-01-02"

// FormatTask formats a task line.
// Format: "{ID:>4}  [x] {DATE}  {TITLE}\n". A task without a creation time
// has no date column.
func FormatTask(w io.Writer, task service.Task) {
	box := "[ ]"
	if task.IsCompleted {
		box = "[x]"
	}
	if date := FormatDate(task.CreatedAt); date != "" {
		fmt.Fprintf(w, "%4d  %s %s  %s\n", task.ID, box, date, normalizeTitle(task.Title))
		return
	}
	fmt.Fprintf(w, "%4d  %s %s\n", task.ID, box, normalizeTitle(task.Title))
}

// FormatDate renders a creation time in the zone the server reported it in,
// or "" when unset.
func FormatDate(ts service.Timestamp) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Format(DateLayout)
}

// FormatUser formats the profile block.
func FormatUser(w io.Writer, user service.User) {
	name := strings.TrimSpace(user.FullName)
	if name == "" {
		name = "(not set)"
	}
	fmt.Fprintf(w, "id:     %d\n", user.ID)
	fmt.Fprintf(w, "email:  %s\n", user.Email)
	fmt.Fprintf(w, "name:   %s\n", name)
}

// FormatExpiry describes a token expiry relative to now.
func FormatExpiry(expiry, now time.Time) string {
	if expiry.IsZero() {
		return "no expiry"
	}
	stamp := expiry.UTC().Format(time.RFC3339)
	if !expiry.After(now) {
		return "expired " + stamp
	}
	return "expires " + stamp
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	// Replace newlines with spaces
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	// Trim and check for empty
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
