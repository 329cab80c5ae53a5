package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/domain"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/ports"
)

var _ ports.Ledger = (*Ledger)(nil)

// Ledger is an in-memory order store used for development and tests.
type Ledger struct {
	mu        sync.RWMutex
	orders    map[string]*domain.PurchaseOrder
	audit     []domain.AuditEntry
	movements []domain.StockMovement
	now       func() time.Time
}

func NewLedger() *Ledger {
	return &Ledger{orders: map[string]*domain.PurchaseOrder{}, now: time.Now}
}

// WithClock overrides the time source for deterministic testing.
func (l *Ledger) WithClock(now func() time.Time) {
	if now != nil {
		l.now = now
	}
}

func (l *Ledger) CreateOrder(_ context.Context, order *domain.PurchaseOrder) (*domain.PurchaseOrder, error) {
	if order == nil {
		return nil, domain.ErrNilOrder
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.orders[order.ID]; exists {
		return nil, ports.ErrConflict
	}
	for _, existing := range l.orders {
		if order.Number != "" && existing.Number == order.Number {
			return nil, ports.ErrConflict
		}
	}
	clone := order.Clone()
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = l.now().UTC()
	}
	if clone.UpdatedAt.IsZero() {
		clone.UpdatedAt = clone.CreatedAt
	}
	if clone.Version == 0 {
		clone.Version = 1
	}
	l.orders[clone.ID] = clone
	return clone.Clone(), nil
}

func (l *Ledger) GetOrder(_ context.Context, id string) (*domain.PurchaseOrder, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	order, ok := l.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return order.Clone(), nil
}

func (l *Ledger) UpdateOrder(_ context.Context, id string, patch ports.OrderPatch) (*domain.PurchaseOrder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	order, ok := l.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if patch.ExpectedStatus != "" && order.Status != patch.ExpectedStatus {
		return nil, ports.ErrConflict
	}
	if patch.ExpectedVersion != 0 && order.Version != patch.ExpectedVersion {
		return nil, ports.ErrConflict
	}
	next := order.Clone()
	patch.Apply(next)
	next.UpdatedAt = l.now().UTC()
	next.Version = order.Version + 1
	l.orders[id] = next
	return next.Clone(), nil
}

func (l *Ledger) DeleteOrder(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.orders[id]; !ok {
		return ports.ErrNotFound
	}
	delete(l.orders, id)
	return nil
}

func (l *Ledger) ListOrders(_ context.Context, filter ports.OrderFilter, page ports.Pagination) ([]*domain.PurchaseOrder, int, error) {
	l.mu.RLock()
	matched := make([]*domain.PurchaseOrder, 0, len(l.orders))
	for _, order := range l.orders {
		if filter.SupplierID != "" && order.SupplierID != filter.SupplierID {
			continue
		}
		if len(filter.Statuses) > 0 && !hasStatus(filter.Statuses, order.Status) {
			continue
		}
		matched = append(matched, order.Clone())
	}
	l.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := len(matched)
	start := page.Offset
	if start > total {
		start = total
	}
	end := total
	if page.Limit > 0 && start+page.Limit < total {
		end = start + page.Limit
	}
	return matched[start:end], total, nil
}

func (l *Ledger) AppendAuditEntry(_ context.Context, entry domain.AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.Changes = append([]domain.FieldChange{}, entry.Changes...)
	l.audit = append(l.audit, entry)
	return nil
}

func (l *Ledger) QueryAuditEntries(_ context.Context, filter ports.AuditFilter) ([]domain.AuditEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var entries []domain.AuditEntry
	for i := len(l.audit) - 1; i >= 0; i-- {
		entry := l.audit[i]
		if filter.OrderID != "" && entry.OrderID != filter.OrderID {
			continue
		}
		if len(filter.Actions) > 0 && !hasAction(filter.Actions, entry.Action) {
			continue
		}
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp.After(entries[j].Timestamp) })
	if filter.Limit > 0 && len(entries) > filter.Limit {
		entries = entries[:filter.Limit]
	}
	return entries, nil
}

func (l *Ledger) AppendStockMovements(_ context.Context, movements []domain.StockMovement) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.movements = append(l.movements, movements...)
	return nil
}

// StockMovements returns the recorded movements for an order in insertion order.
func (l *Ledger) StockMovements(orderID string) []domain.StockMovement {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var result []domain.StockMovement
	for _, m := range l.movements {
		if m.OrderID == orderID {
			result = append(result, m)
		}
	}
	return result
}

func hasStatus(statuses []domain.Status, status domain.Status) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func hasAction(actions []domain.AuditAction, action domain.AuditAction) bool {
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}
