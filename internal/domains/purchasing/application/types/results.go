package types

import (
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/domain"
)

// OrderResult is the outcome of an order mutation. Warnings carry non-fatal problems
// such as a failed audit write.
type OrderResult struct {
	Order    *domain.PurchaseOrder
	Warnings []string
}

// OrderPage is one page of orders plus the total match count.
type OrderPage struct {
	Items  []*domain.PurchaseOrder
	Total  int
	Limit  int
	Offset int
}

// ReceiptResult is the outcome of a receiving event.
type ReceiptResult struct {
	Order      *domain.PurchaseOrder
	Validation domain.ReceivingValidation
	Movements  []domain.StockMovement
	Warnings   []string
	// Replayed is set when the idempotency key matched an earlier submission.
	Replayed bool
}

// ApprovalDecision reports whether the current actor may approve an order.
type ApprovalDecision struct {
	OrderID        string
	CanApprove     bool
	Errors         []string
	UserLevel      int
	RequiredLevel  int
	RequiredRoles  []domain.Role
	CanAutoApprove bool
}
