package quantconnect

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidIdentifier is returned before any network call when an id is empty
var ErrInvalidIdentifier = errors.New("invalid identifier")

// AuthError means the platform rejected the credentials. Fatal to a run.
type AuthError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication rejected: %s", e.Endpoint, e.Message)
}

// NotFoundError means an identifier does not exist on the platform
type NotFoundError struct {
	Endpoint string
	Message  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: not found: %s", e.Endpoint, e.Message)
}

// TransientError is a network failure or 429/5xx that outlived the retry policy
type TransientError struct {
	Endpoint   string
	Attempts   int
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient failure after %d attempts: %v", e.Endpoint, e.Attempts, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// MalformedResponseError means the payload did not match the expected shape
type MalformedResponseError struct {
	Endpoint string
	Err      error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Endpoint, e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// RemoteError is any other rejection reported by the platform (success=false, 4xx)
type RemoteError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: request rejected: %s", e.Endpoint, e.Message)
}

// IsAuth reports whether err is (or wraps) an AuthError
func IsAuth(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

var (
	authMarkers = []string{
		"hash", "timestamp", "authenticat", "unauthorized", "not authorized",
		"api token", "access denied", "invalid user",
	}
	notFoundMarkers = []string{
		"not found", "does not exist", "doesn't exist", "no project", "no live",
		"invalid project", "invalid backtest",
	}
)

// classifyFailure maps a success=false envelope onto the error taxonomy
func classifyFailure(endpoint string, messages []string) error {
	msg := strings.Join(messages, "; ")
	if msg == "" {
		msg = "unknown error"
	}
	lower := strings.ToLower(msg)

	for _, m := range authMarkers {
		if strings.Contains(lower, m) {
			return &AuthError{Endpoint: endpoint, Message: msg}
		}
	}
	for _, m := range notFoundMarkers {
		if strings.Contains(lower, m) {
			return &NotFoundError{Endpoint: endpoint, Message: msg}
		}
	}
	return &RemoteError{Endpoint: endpoint, Message: msg}
}
