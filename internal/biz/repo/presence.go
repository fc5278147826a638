package repo

import (
	"context"
	"fmt"
)

// Presence failure categories
const (
	PresenceMissingConfig   = "missing_config"
	PresenceInvalidEndpoint = "invalid_endpoint"
	PresenceNetworkError    = "network_error"
	PresenceTimeout         = "timeout"
	PresenceInvalidJSON     = "invalid_json"
	PresenceMissingField    = "missing_field"
	PresenceInvalidValue    = "invalid_value"
)

// PresenceError describes why a presence check could not be completed
type PresenceError struct {
	Category string
	Err      error
}

func (e *PresenceError) Error() string {
	if e.Err == nil {
		return e.Category
	}
	return e.Category + ": " + e.Err.Error()
}

func (e *PresenceError) Unwrap() error {
	return e.Err
}

// HTTPStatusCategory returns the category for a non-2xx response
func HTTPStatusCategory(status int) string {
	return fmt.Sprintf("http_%d", status)
}

// PresenceRepo is the remote presence check interface
type PresenceRepo interface {
	// CheckPresence performs one bounded request. Failures are returned as
	// *PresenceError.
	CheckPresence(ctx context.Context) (bool, error)
}
