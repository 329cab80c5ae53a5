package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuditAction is the closed set of recorded actions.
type AuditAction string

const (
	AuditCreated           AuditAction = "created"
	AuditUpdated           AuditAction = "updated"
	AuditStatusChanged     AuditAction = "status_changed"
	AuditReceived          AuditAction = "received"
	AuditPartiallyReceived AuditAction = "partially_received"
	AuditApproved          AuditAction = "approved"
	AuditRejected          AuditAction = "rejected"
	AuditCancelled         AuditAction = "cancelled"
	AuditDeleted           AuditAction = "deleted"
)

// IsValid reports whether the action belongs to the closed set.
func (a AuditAction) IsValid() bool {
	switch a {
	case AuditCreated, AuditUpdated, AuditStatusChanged, AuditReceived, AuditPartiallyReceived,
		AuditApproved, AuditRejected, AuditCancelled, AuditDeleted:
		return true
	default:
		return false
	}
}

// FieldChange is one entry of a structured diff.
type FieldChange struct {
	Field    string
	OldValue string
	NewValue string
}

// AuditEntry is an immutable history record.
type AuditEntry struct {
	ID          string
	OrderID     string
	OrderNumber string
	Action      AuditAction
	ActorID     string
	ActorName   string
	Timestamp   time.Time
	Changes     []FieldChange
	Reason      string
	Metadata    map[string]string
}

// ChangedFields lists the field names touched by the entry.
func (e AuditEntry) ChangedFields() []string {
	fields := make([]string, 0, len(e.Changes))
	for _, c := range e.Changes {
		fields = append(fields, c.Field)
	}
	return fields
}

// StockMovement traces a received quantity for one line.
type StockMovement struct {
	ID             string
	OrderID        string
	Reference      string
	ProductID      string
	SKU            string
	Quantity       decimal.Decimal
	QuantityBefore decimal.Decimal
	QuantityAfter  decimal.Decimal
	Condition      Condition
	ActorID        string
	Timestamp      time.Time
}
