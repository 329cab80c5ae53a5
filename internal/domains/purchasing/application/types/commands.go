package types

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/domain"
)

// OrderIdentifier addresses a single purchase order.
type OrderIdentifier struct {
	ID string
}

// ItemInput describes one ordered line.
type ItemInput struct {
	ProductID       string
	ProductName     string
	SKU             string
	ProductCategory string
	OrderedQuantity decimal.Decimal
	UnitCost        decimal.Decimal
}

// CreateOrderInput captures a new draft order. A nil Total is computed from Subtotal and Tax.
type CreateOrderInput struct {
	Number           string
	SupplierID       string
	SupplierName     string
	SupplierCategory string
	PaymentTerms     string
	Currency         string
	Items            []ItemInput
	Subtotal         decimal.Decimal
	Tax              decimal.Decimal
	Total            *decimal.Decimal
	ExpectedDate     *time.Time
	Notes            string
}

// UpdateOrderInput edits a draft order. Nil fields are left untouched.
type UpdateOrderInput struct {
	ID           string
	SupplierID   *string
	SupplierName *string
	ExpectedDate *time.Time
	Notes        *string
	Items        *[]ItemInput
	Subtotal     *decimal.Decimal
	Tax          *decimal.Decimal
	Total        *decimal.Decimal
}

// ListOrdersInput filters and pages the order list. Status accepts legacy aliases.
type ListOrdersInput struct {
	SupplierID string
	Status     string
	Limit      int
	Offset     int
}

// TransitionInput requests a generic status change.
type TransitionInput struct {
	OrderID string
	Status  string
	Reason  string
}

// ReasonInput carries an optional reason for a named transition.
type ReasonInput struct {
	OrderID string
	Reason  string
}

// ApprovalAction is the decision taken on a pending order.
type ApprovalAction string

const (
	ApprovalApprove ApprovalAction = "approve"
	ApprovalReject  ApprovalAction = "reject"
)

// ApprovalSubmission approves or rejects a pending order.
type ApprovalSubmission struct {
	OrderID           string
	Action            ApprovalAction
	Reason            string
	ApprovalLevel     *int
	MaxApprovalAmount *decimal.Decimal
}

// ReceiptItemInput reports goods received for one line in this event.
type ReceiptItemInput struct {
	ProductID        string
	ReceivedQuantity decimal.Decimal
	Condition        domain.Condition
	QualityCheck     *domain.QualityCheck
	ExpiryDate       *time.Time
	DamageReport     *domain.DamageReport
}

// ReceivingSubmission records a receiving event against an order.
type ReceivingSubmission struct {
	OrderID        string
	Items          []ReceiptItemInput
	IsPartial      bool
	Reason         string
	Notes          string
	IdempotencyKey string
}

// HistoryInput queries the audit trail of an order.
type HistoryInput struct {
	OrderID string
	Actions []domain.AuditAction
	Limit   int
}
