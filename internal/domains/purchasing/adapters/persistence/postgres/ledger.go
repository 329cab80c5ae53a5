package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/domain"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/ports"
)

var _ ports.Ledger = (*Ledger)(nil)

// Ledger persists purchase orders, their audit trail and stock movements in PostgreSQL using GORM.
// The schema is owned by the migrations package.
type Ledger struct {
	db  *gorm.DB
	now func() time.Time
}

// NewLedger wires a PostgreSQL-backed ledger. Caller manages DB lifecycle.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// CreateOrder inserts a new order. Duplicate ids or numbers surface as ports.ErrConflict.
func (l *Ledger) CreateOrder(ctx context.Context, order *domain.PurchaseOrder) (*domain.PurchaseOrder, error) {
	if err := l.ensureDB(); err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNilOrder
	}
	record := toOrderRecord(order)
	if record.CreatedAt.IsZero() {
		record.CreatedAt = l.now().UTC()
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = record.CreatedAt
	}
	if record.Version == 0 {
		record.Version = 1
	}
	if err := l.db.WithContext(ctx).Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ports.ErrConflict
		}
		return nil, err
	}
	return record.toDomain(), nil
}

// GetOrder fetches an order by identifier.
func (l *Ledger) GetOrder(ctx context.Context, id string) (*domain.PurchaseOrder, error) {
	if err := l.ensureDB(); err != nil {
		return nil, err
	}
	var record orderRecord
	if err := l.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

// UpdateOrder applies the patch under a row lock. When ExpectedStatus or ExpectedVersion
// is set the write only lands if the stored row still matches.
func (l *Ledger) UpdateOrder(ctx context.Context, id string, patch ports.OrderPatch) (*domain.PurchaseOrder, error) {
	if err := l.ensureDB(); err != nil {
		return nil, err
	}
	var updated *domain.PurchaseOrder
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record orderRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&record, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ports.ErrNotFound
			}
			return err
		}
		if patch.ExpectedStatus != "" && domain.Status(record.Status) != patch.ExpectedStatus {
			return ports.ErrConflict
		}
		if patch.ExpectedVersion != 0 && record.Version != patch.ExpectedVersion {
			return ports.ErrConflict
		}
		order := record.toDomain()
		patch.Apply(order)
		order.UpdatedAt = l.now().UTC()
		order.Version = record.Version + 1
		next := toOrderRecord(order)

		query := tx.Model(&orderRecord{}).Where("id = ?", id)
		if patch.ExpectedStatus != "" {
			query = query.Where("status = ?", string(patch.ExpectedStatus))
		}
		query = query.Where("version = ?", record.Version)
		result := query.Select("*").Omit("id", "created_at", "created_by").Updates(&next)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
				return ports.ErrConflict
			}
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ports.ErrConflict
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteOrder removes an order by identifier. Audit rows are kept.
func (l *Ledger) DeleteOrder(ctx context.Context, id string) error {
	if err := l.ensureDB(); err != nil {
		return err
	}
	result := l.db.WithContext(ctx).Delete(&orderRecord{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// ListOrders returns one page of orders, newest first, plus the total match count.
func (l *Ledger) ListOrders(ctx context.Context, filter ports.OrderFilter, page ports.Pagination) ([]*domain.PurchaseOrder, int, error) {
	if err := l.ensureDB(); err != nil {
		return nil, 0, err
	}
	query := l.db.WithContext(ctx).Model(&orderRecord{})
	if filter.SupplierID != "" {
		query = query.Where("supplier_id = ?", filter.SupplierID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		query = query.Where("status IN ?", statuses)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = query.Order("created_at DESC").Order("id ASC").Offset(page.Offset)
	if page.Limit > 0 {
		query = query.Limit(page.Limit)
	}
	var records []orderRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, 0, err
	}
	orders := make([]*domain.PurchaseOrder, 0, len(records))
	for i := range records {
		orders = append(orders, records[i].toDomain())
	}
	return orders, int(total), nil
}

// AppendAuditEntry inserts one immutable history row.
func (l *Ledger) AppendAuditEntry(ctx context.Context, entry domain.AuditEntry) error {
	if err := l.ensureDB(); err != nil {
		return err
	}
	record := toAuditRecord(entry)
	return l.db.WithContext(ctx).Create(&record).Error
}

// QueryAuditEntries returns history rows newest first.
func (l *Ledger) QueryAuditEntries(ctx context.Context, filter ports.AuditFilter) ([]domain.AuditEntry, error) {
	if err := l.ensureDB(); err != nil {
		return nil, err
	}
	query := l.db.WithContext(ctx).Model(&auditRecord{})
	if filter.OrderID != "" {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if len(filter.Actions) > 0 {
		actions := make([]string, 0, len(filter.Actions))
		for _, a := range filter.Actions {
			actions = append(actions, string(a))
		}
		query = query.Where("action IN ?", actions)
	}
	query = query.Order("occurred_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var records []auditRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	entries := make([]domain.AuditEntry, 0, len(records))
	for i := range records {
		entries = append(entries, records[i].toDomain())
	}
	return entries, nil
}

// AppendStockMovements inserts the movements of one receipt in a single statement.
func (l *Ledger) AppendStockMovements(ctx context.Context, movements []domain.StockMovement) error {
	if err := l.ensureDB(); err != nil {
		return err
	}
	if len(movements) == 0 {
		return nil
	}
	records := make([]movementRecord, 0, len(movements))
	for _, m := range movements {
		records = append(records, toMovementRecord(m))
	}
	return l.db.WithContext(ctx).Create(&records).Error
}

// StockMovements lists the movements recorded for an order, oldest first.
func (l *Ledger) StockMovements(ctx context.Context, orderID string) ([]domain.StockMovement, error) {
	if err := l.ensureDB(); err != nil {
		return nil, err
	}
	var records []movementRecord
	if err := l.db.WithContext(ctx).Where("order_id = ?", orderID).Order("occurred_at ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	movements := make([]domain.StockMovement, 0, len(records))
	for i := range records {
		movements = append(movements, records[i].toDomain())
	}
	return movements, nil
}

func (l *Ledger) ensureDB() error {
	if l == nil || l.db == nil {
		return errors.New("postgres purchase order ledger not configured")
	}
	return nil
}
