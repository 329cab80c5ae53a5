package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Status enumerates purchase order progression.
type Status string

const (
	StatusDraft             Status = "draft"
	StatusPendingApproval   Status = "pending_approval"
	StatusApproved          Status = "approved"
	StatusSentToSupplier    Status = "sent_to_supplier"
	StatusPartiallyReceived Status = "partially_received"
	StatusFullyReceived     Status = "fully_received"
	StatusCancelled         Status = "cancelled"
	StatusClosed            Status = "closed"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnknownStatus     = errors.New("unknown purchase order status")
)

// TransitionError reports a denied edge of the state machine.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition purchase order from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// legacyAliases maps the short-form vocabulary onto canonical states.
var legacyAliases = map[string]Status{
	"sent":     StatusSentToSupplier,
	"partial":  StatusPartiallyReceived,
	"received": StatusFullyReceived,
}

var transitions = map[Status][]Status{
	StatusDraft:             {StatusPendingApproval, StatusCancelled},
	StatusPendingApproval:   {StatusApproved, StatusDraft, StatusCancelled},
	StatusApproved:          {StatusSentToSupplier, StatusCancelled},
	StatusSentToSupplier:    {StatusPartiallyReceived, StatusFullyReceived, StatusCancelled},
	StatusPartiallyReceived: {StatusPartiallyReceived, StatusFullyReceived, StatusCancelled},
	StatusFullyReceived:     {StatusClosed},
	StatusCancelled:         {},
	StatusClosed:            {},
}

// AllStatuses lists every canonical state in lifecycle order.
func AllStatuses() []Status {
	return []Status{
		StatusDraft,
		StatusPendingApproval,
		StatusApproved,
		StatusSentToSupplier,
		StatusPartiallyReceived,
		StatusFullyReceived,
		StatusCancelled,
		StatusClosed,
	}
}

// NormalizeStatus converts canonical or legacy spellings into a canonical Status.
func NormalizeStatus(raw string) (Status, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if alias, ok := legacyAliases[value]; ok {
		return alias, nil
	}
	status := Status(value)
	if !status.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
	}
	return status, nil
}

// IsValid reports whether the status is a canonical machine state.
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether the status has no outbound edges.
func (s Status) IsTerminal() bool {
	return s.IsValid() && len(transitions[s]) == 0
}

// CanReceive reports whether goods may be received in this status.
func (s Status) CanReceive() bool {
	return s == StatusSentToSupplier || s == StatusPartiallyReceived
}

func (s Status) String() string {
	return string(s)
}

// CanTransition reports whether the edge from -> to exists.
func CanTransition(from, to Status) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// ValidTransitions returns the outbound edges of a status.
func ValidTransitions(from Status) []Status {
	return append([]Status{}, transitions[from]...)
}

// TransitionContext carries who requested a transition and why.
type TransitionContext struct {
	Actor  Actor
	Reason string
}

// ExecuteTransition returns a copy of the order moved to the target status.
// The input order is never mutated.
func ExecuteTransition(order *PurchaseOrder, to Status, tc TransitionContext) (*PurchaseOrder, error) {
	if order == nil {
		return nil, ErrNilOrder
	}
	if !CanTransition(order.Status, to) {
		return nil, &TransitionError{From: order.Status, To: to}
	}
	next := order.Clone()
	next.Status = to
	if to == StatusApproved && tc.Actor.ID != "" {
		next.ApprovedBy = tc.Actor.ID
	}
	return next, nil
}
