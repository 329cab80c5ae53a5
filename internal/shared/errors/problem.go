// Package errors renders failures as RFC 7807 Problem Details.
package errors

import (
	"fmt"
	"net/http"
)

// ProblemDetail represents an RFC 7807 Problem Details response.
// See: https://www.rfc-editor.org/rfc/rfc7807
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	// Extensions carries the failure kind and any per-line issues.
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Error implements the error interface.
func (p ProblemDetail) Error() string {
	if p.Detail != "" {
		return fmt.Sprintf("%s: %s", p.Title, p.Detail)
	}
	return p.Title
}

// WithDetail returns a copy with the given detail message.
func (p ProblemDetail) WithDetail(detail string) ProblemDetail {
	p.Detail = detail
	return p
}

// WithExtension returns a copy with an additional extension property.
func (p ProblemDetail) WithExtension(key string, value any) ProblemDetail {
	ext := make(map[string]any, len(p.Extensions)+1)
	for k, v := range p.Extensions {
		ext[k] = v
	}
	ext[key] = value
	p.Extensions = ext
	return p
}

// WithList attaches items under key. Empty lists are left out so clients can test
// for the key's presence.
func WithList[T any](p ProblemDetail, key string, items []T) ProblemDetail {
	if len(items) == 0 {
		return p
	}
	return p.WithExtension(key, items)
}

// Problem types as URI references.
const (
	TypeNotFound      = "/problems/not-found"
	TypeConflict      = "/problems/conflict"
	TypeInternal      = "/problems/internal-error"
	TypeUnauthorized  = "/problems/unauthorized"
	TypeForbidden     = "/problems/forbidden"
	TypeBadRequest    = "/problems/bad-request"
	TypeUnprocessable = "/problems/unprocessable-entity"
	TypeTransition    = "/problems/invalid-transition"
	TypeUnavailable   = "/problems/service-unavailable"
)

var (
	ErrNotFound = ProblemDetail{
		Type:   TypeNotFound,
		Title:  "Resource Not Found",
		Status: http.StatusNotFound,
	}

	// ErrBadRequest covers malformed bodies and query parameters.
	ErrBadRequest = ProblemDetail{
		Type:   TypeBadRequest,
		Title:  "Bad Request",
		Status: http.StatusBadRequest,
	}

	// ErrConflict reports a concurrent modification or a reused idempotency key.
	ErrConflict = ProblemDetail{
		Type:   TypeConflict,
		Title:  "Conflict",
		Status: http.StatusConflict,
	}

	ErrInternal = ProblemDetail{
		Type:   TypeInternal,
		Title:  "Internal Server Error",
		Status: http.StatusInternalServerError,
	}

	// ErrUnauthorized means no actor could be resolved for the request.
	ErrUnauthorized = ProblemDetail{
		Type:   TypeUnauthorized,
		Title:  "Unauthorized",
		Status: http.StatusUnauthorized,
	}

	ErrForbidden = ProblemDetail{
		Type:   TypeForbidden,
		Title:  "Forbidden",
		Status: http.StatusForbidden,
	}

	// ErrUnprocessable carries receipt and order validation failures.
	ErrUnprocessable = ProblemDetail{
		Type:   TypeUnprocessable,
		Title:  "Unprocessable Entity",
		Status: http.StatusUnprocessableEntity,
	}

	ErrInvalidTransition = ProblemDetail{
		Type:   TypeTransition,
		Title:  "Invalid State Transition",
		Status: http.StatusConflict,
	}

	// ErrUnavailable reports a backing store, broker or workflow engine failure.
	ErrUnavailable = ProblemDetail{
		Type:   TypeUnavailable,
		Title:  "Service Unavailable",
		Status: http.StatusServiceUnavailable,
	}
)

// kindProblems maps service failure kinds onto their problem templates.
var kindProblems = map[string]ProblemDetail{
	"not_found":          ErrNotFound,
	"invalid_transition": ErrInvalidTransition,
	"validation_failed":  ErrUnprocessable,
	"permission_denied":  ErrForbidden,
	"conflict":           ErrConflict,
	"transport":          ErrUnavailable,
}

// ForKind returns the problem for a failure kind, tagged with the kind extension.
// Unknown kinds are treated as backend failures.
func ForKind(kind string) ProblemDetail {
	problem, ok := kindProblems[kind]
	if !ok {
		problem = ErrUnavailable
	}
	return problem.WithExtension("kind", kind)
}

// BadRequest wraps a request decoding failure.
func BadRequest(err error) ProblemDetail {
	return ErrBadRequest.WithDetail(err.Error())
}
