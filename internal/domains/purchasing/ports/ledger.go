package ports

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/domain"
)

var (
	ErrNotFound = errors.New("purchase order not found")
	// ErrConflict signals a failed compare-and-swap or a uniqueness violation.
	ErrConflict = errors.New("purchase order was modified concurrently")
)

// OrderPatch is a partial update. Nil fields are left untouched. A non-empty
// ExpectedStatus or a non-zero ExpectedVersion turns the update into a compare-and-swap
// on the stored row; a mismatch is ErrConflict.
type OrderPatch struct {
	ExpectedStatus  domain.Status
	ExpectedVersion int64

	Status       *domain.Status
	SupplierID   *string
	SupplierName *string
	Items        *[]domain.PurchaseOrderItem
	Subtotal     *decimal.Decimal
	Tax          *decimal.Decimal
	Total        *decimal.Decimal
	ExpectedDate *time.Time
	ReceivedDate *time.Time
	Notes        *string
	ApprovedBy   *string
	ApprovedAt   *time.Time
}

// Apply copies the patched fields onto order.
func (p OrderPatch) Apply(order *domain.PurchaseOrder) {
	if p.Status != nil {
		order.Status = *p.Status
	}
	if p.SupplierID != nil {
		order.SupplierID = *p.SupplierID
	}
	if p.SupplierName != nil {
		order.SupplierName = *p.SupplierName
	}
	if p.Items != nil {
		order.Items = append([]domain.PurchaseOrderItem{}, (*p.Items)...)
	}
	if p.Subtotal != nil {
		order.Subtotal = *p.Subtotal
	}
	if p.Tax != nil {
		order.Tax = *p.Tax
	}
	if p.Total != nil {
		order.Total = *p.Total
	}
	if p.ExpectedDate != nil {
		t := *p.ExpectedDate
		order.ExpectedDate = &t
	}
	if p.ReceivedDate != nil {
		t := *p.ReceivedDate
		order.ReceivedDate = &t
	}
	if p.Notes != nil {
		order.Notes = *p.Notes
	}
	if p.ApprovedBy != nil {
		order.ApprovedBy = *p.ApprovedBy
	}
	if p.ApprovedAt != nil {
		t := *p.ApprovedAt
		order.ApprovedAt = &t
	}
}

// OrderFilter narrows ListOrders. Zero values match everything.
type OrderFilter struct {
	SupplierID string
	Statuses   []domain.Status
}

// Pagination is limit/offset paging. A zero limit means the adapter default.
type Pagination struct {
	Limit  int
	Offset int
}

// AuditFilter narrows QueryAuditEntries.
type AuditFilter struct {
	OrderID string
	Actions []domain.AuditAction
	Limit   int
}

// Ledger is the durable record store for orders, their audit trail and stock movements.
type Ledger interface {
	CreateOrder(ctx context.Context, order *domain.PurchaseOrder) (*domain.PurchaseOrder, error)
	GetOrder(ctx context.Context, id string) (*domain.PurchaseOrder, error)
	UpdateOrder(ctx context.Context, id string, patch OrderPatch) (*domain.PurchaseOrder, error)
	DeleteOrder(ctx context.Context, id string) error
	// ListOrders returns one page plus the total number of matching orders.
	ListOrders(ctx context.Context, filter OrderFilter, page Pagination) ([]*domain.PurchaseOrder, int, error)
	AppendAuditEntry(ctx context.Context, entry domain.AuditEntry) error
	// QueryAuditEntries returns entries newest first.
	QueryAuditEntries(ctx context.Context, filter AuditFilter) ([]domain.AuditEntry, error)
	AppendStockMovements(ctx context.Context, movements []domain.StockMovement) error
}
