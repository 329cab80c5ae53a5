package application

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/approval"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/audit"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/domain"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/ports"
)

// Error kinds. Every failure returned by Service matches exactly one with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrValidationFailed  = errors.New("validation failed")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrConflict          = errors.New("conflict")
	ErrTransport         = errors.New("transport error")
	// ErrAuditWriteFailed is never returned as an operation failure; it surfaces in warnings.
	ErrAuditWriteFailed = audit.ErrWriteFailed
)

// Error is the typed failure of a use case. Issues and Validation let callers render
// messages without parsing error text.
type Error struct {
	Kind       error
	Op         string
	Err        error
	Issues     []domain.Issue
	Validation *domain.ReceivingValidation
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(op string, kind, err error, issues ...domain.Issue) *Error {
	return &Error{Kind: kind, Op: op, Err: err, Issues: issues}
}

// mapError classifies ledger, domain and collaborator errors into the taxonomy.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return err
	}
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return newError(op, ErrNotFound, err)
	case errors.Is(err, domain.ErrInvalidTransition):
		return newError(op, ErrInvalidTransition, err)
	case errors.Is(err, ports.ErrConflict), errors.Is(err, ports.ErrIdempotencyConflict):
		return newError(op, ErrConflict, err)
	case errors.Is(err, ports.ErrUnauthenticated):
		return newError(op, ErrPermissionDenied, err)
	case isValidationError(err):
		return newError(op, ErrValidationFailed, err, domain.Issue{Code: "invalid_input", Message: err.Error()})
	default:
		// Unknown collaborator failures, context deadlines included.
		return newError(op, ErrTransport, err)
	}
}

func isValidationError(err error) bool {
	for _, target := range []error{
		domain.ErrNilOrder,
		domain.ErrMissingSupplier,
		domain.ErrNoItems,
		domain.ErrMissingProduct,
		domain.ErrInvalidQuantity,
		domain.ErrNegativeCost,
		domain.ErrNegativeAmount,
		domain.ErrDuplicateProduct,
		domain.ErrTotalMismatch,
		domain.ErrOrderLocked,
		domain.ErrProductChanged,
		domain.ErrReceivedDecreased,
		domain.ErrUnknownItem,
		domain.ErrNotDeletable,
		domain.ErrUnknownStatus,
		approval.ErrOverlappingThresholds,
		approval.ErrInvalidThresholdRange,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func validationError(op string, v domain.ReceivingValidation) *Error {
	e := newError(op, ErrValidationFailed, fmt.Errorf("%d blocking issue(s)", len(v.Errors)), v.Errors...)
	e.Validation = &v
	return e
}

type namedKind struct {
	name string
	kind error
}

// kindNames is ordered by precedence for errors that match several kinds.
var kindNames = []namedKind{
	{"not_found", ErrNotFound},
	{"invalid_transition", ErrInvalidTransition},
	{"validation_failed", ErrValidationFailed},
	{"permission_denied", ErrPermissionDenied},
	{"conflict", ErrConflict},
	{"transport", ErrTransport},
}

// KindName returns the stable name of err's kind, used when errors cross a process
// boundary such as a workflow activity. Unclassified errors report "transport".
func KindName(err error) string {
	for _, k := range kindNames {
		if errors.Is(err, k.kind) {
			return k.name
		}
	}
	return "transport"
}

// KindByName reverses KindName.
func KindByName(name string) (error, bool) {
	for _, k := range kindNames {
		if k.name == name {
			return k.kind, true
		}
	}
	return nil, false
}

// Rehydrate rebuilds a typed error from a kind name and message received from another process.
func Rehydrate(op, kindName, message string) *Error {
	kind, ok := KindByName(kindName)
	if !ok {
		kind = ErrTransport
	}
	return newError(op, kind, errors.New(message))
}
