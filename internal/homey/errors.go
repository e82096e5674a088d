package homey

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrConnectivity wraps every failure where no HTTP response arrived.
	ErrConnectivity = errors.New("hub unreachable")
	// ErrUnauthorized matches an HTTPStatusError with status 401.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrVariantsExhausted is returned when no flow trigger endpoint worked.
	ErrVariantsExhausted = errors.New("all flow trigger endpoints failed")
)

type HTTPStatusError struct {
	Status int
	Body   string
	Method string
	Path   string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("hub returned status %d for %s %s", e.Status, e.Method, e.Path)
	}
	return fmt.Sprintf("hub returned status %d for %s %s: %s", e.Status, e.Method, e.Path, e.Body)
}

func (e *HTTPStatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var se *HTTPStatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	kind := e.Kind
	if kind != "" {
		kind = strings.ToUpper(kind[:1]) + kind[1:]
	}
	return fmt.Sprintf("%s %s not found", kind, e.ID)
}

// ValidationError is a capability value the validator rejected. It is never
// sent to the hub.
type ValidationError struct {
	Capability string
	Value      any
	Reason     string
}

func (e *ValidationError) Error() string {
	return "Invalid capability value: " + e.Reason
}
