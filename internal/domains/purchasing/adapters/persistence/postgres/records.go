package postgres

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/domain"
)

// orderRecord maps the purchase order aggregate to a relational table. Lines are
// stored as a JSON document since they are always loaded with their order.
type orderRecord struct {
	ID               string          `gorm:"primaryKey;column:id;size:64"`
	Number           string          `gorm:"column:number;size:64;uniqueIndex"`
	SupplierID       string          `gorm:"column:supplier_id;size:64;index:idx_purchase_orders_supplier_status"`
	SupplierName     string          `gorm:"column:supplier_name"`
	SupplierCategory string          `gorm:"column:supplier_category"`
	PaymentTerms     string          `gorm:"column:payment_terms"`
	Currency         string          `gorm:"column:currency;size:8"`
	Items            []itemRecord    `gorm:"column:items;type:jsonb;serializer:json"`
	Subtotal         decimal.Decimal `gorm:"column:subtotal;type:numeric(18,4)"`
	Tax              decimal.Decimal `gorm:"column:tax;type:numeric(18,4)"`
	Total            decimal.Decimal `gorm:"column:total;type:numeric(18,4)"`
	Status           string          `gorm:"column:status;type:varchar(32);index:idx_purchase_orders_supplier_status"`
	ExpectedDate     *time.Time      `gorm:"column:expected_date"`
	ReceivedDate     *time.Time      `gorm:"column:received_date"`
	Notes            string          `gorm:"column:notes"`
	CreatedBy        string          `gorm:"column:created_by;size:64"`
	ApprovedBy       string          `gorm:"column:approved_by;size:64"`
	ApprovedAt       *time.Time      `gorm:"column:approved_at"`
	CreatedAt        time.Time       `gorm:"column:created_at;index"`
	UpdatedAt        time.Time       `gorm:"column:updated_at"`
	Version          int64           `gorm:"column:version;not null;default:1"`
}

func (orderRecord) TableName() string { return "purchase_orders" }

type itemRecord struct {
	ProductID        string          `json:"productId"`
	ProductName      string          `json:"productName,omitempty"`
	SKU              string          `json:"sku,omitempty"`
	ProductCategory  string          `json:"productCategory,omitempty"`
	OrderedQuantity  decimal.Decimal `json:"orderedQuantity"`
	UnitCost         decimal.Decimal `json:"unitCost"`
	LineTotal        decimal.Decimal `json:"lineTotal"`
	ReceivedQuantity decimal.Decimal `json:"receivedQuantity"`
}

type fieldChangeRecord struct {
	Field    string `json:"field"`
	OldValue string `json:"oldValue"`
	NewValue string `json:"newValue"`
}

// auditRecord is append-only; rows are never updated.
type auditRecord struct {
	ID            string              `gorm:"primaryKey;column:id;size:64"`
	OrderID       string              `gorm:"column:order_id;size:64;index:idx_purchase_order_audit_order"`
	OrderNumber   string              `gorm:"column:order_number;size:64"`
	Action        string              `gorm:"column:action;type:varchar(32);index"`
	ActorID       string              `gorm:"column:actor_id;size:64"`
	ActorName     string              `gorm:"column:actor_name"`
	OccurredAt    time.Time           `gorm:"column:occurred_at;index:idx_purchase_order_audit_order"`
	Changes       []fieldChangeRecord `gorm:"column:changes;type:jsonb;serializer:json"`
	ChangedFields pq.StringArray      `gorm:"column:changed_fields;type:text[]"`
	Reason        string              `gorm:"column:reason"`
	Metadata      map[string]string   `gorm:"column:metadata;type:jsonb;serializer:json"`
}

func (auditRecord) TableName() string { return "purchase_order_audit" }

type movementRecord struct {
	ID             string          `gorm:"primaryKey;column:id;size:64"`
	OrderID        string          `gorm:"column:order_id;size:64;index"`
	Reference      string          `gorm:"column:reference;size:64"`
	ProductID      string          `gorm:"column:product_id;size:64;index"`
	SKU            string          `gorm:"column:sku"`
	Quantity       decimal.Decimal `gorm:"column:quantity;type:numeric(18,4)"`
	QuantityBefore decimal.Decimal `gorm:"column:quantity_before;type:numeric(18,4)"`
	QuantityAfter  decimal.Decimal `gorm:"column:quantity_after;type:numeric(18,4)"`
	Condition      string          `gorm:"column:condition;type:varchar(32)"`
	ActorID        string          `gorm:"column:actor_id;size:64"`
	OccurredAt     time.Time       `gorm:"column:occurred_at;index"`
}

func (movementRecord) TableName() string { return "stock_movements" }

func toOrderRecord(order *domain.PurchaseOrder) orderRecord {
	items := make([]itemRecord, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, itemRecord{
			ProductID:        item.ProductID,
			ProductName:      item.ProductName,
			SKU:              item.SKU,
			ProductCategory:  item.ProductCategory,
			OrderedQuantity:  item.OrderedQuantity,
			UnitCost:         item.UnitCost,
			LineTotal:        item.LineTotal,
			ReceivedQuantity: item.ReceivedQuantity,
		})
	}
	return orderRecord{
		ID:               order.ID,
		Number:           order.Number,
		SupplierID:       order.SupplierID,
		SupplierName:     order.SupplierName,
		SupplierCategory: order.SupplierCategory,
		PaymentTerms:     order.PaymentTerms,
		Currency:         order.Currency,
		Items:            items,
		Subtotal:         order.Subtotal,
		Tax:              order.Tax,
		Total:            order.Total,
		Status:           string(order.Status),
		ExpectedDate:     order.ExpectedDate,
		ReceivedDate:     order.ReceivedDate,
		Notes:            order.Notes,
		CreatedBy:        order.CreatedBy,
		ApprovedBy:       order.ApprovedBy,
		ApprovedAt:       order.ApprovedAt,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
		Version:          order.Version,
	}
}

func (r orderRecord) toDomain() *domain.PurchaseOrder {
	items := make([]domain.PurchaseOrderItem, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, domain.PurchaseOrderItem{
			ProductID:        item.ProductID,
			ProductName:      item.ProductName,
			SKU:              item.SKU,
			ProductCategory:  item.ProductCategory,
			OrderedQuantity:  item.OrderedQuantity,
			UnitCost:         item.UnitCost,
			LineTotal:        item.LineTotal,
			ReceivedQuantity: item.ReceivedQuantity,
		})
	}
	return &domain.PurchaseOrder{
		ID:               r.ID,
		Number:           r.Number,
		SupplierID:       r.SupplierID,
		SupplierName:     r.SupplierName,
		SupplierCategory: r.SupplierCategory,
		PaymentTerms:     r.PaymentTerms,
		Currency:         r.Currency,
		Items:            items,
		Subtotal:         r.Subtotal,
		Tax:              r.Tax,
		Total:            r.Total,
		Status:           domain.Status(r.Status),
		ExpectedDate:     utcPtr(r.ExpectedDate),
		ReceivedDate:     utcPtr(r.ReceivedDate),
		Notes:            r.Notes,
		CreatedBy:        r.CreatedBy,
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
		ApprovedBy:       r.ApprovedBy,
		ApprovedAt:       utcPtr(r.ApprovedAt),
		Version:          r.Version,
	}
}

func toAuditRecord(entry domain.AuditEntry) auditRecord {
	changes := make([]fieldChangeRecord, 0, len(entry.Changes))
	for _, c := range entry.Changes {
		changes = append(changes, fieldChangeRecord{Field: c.Field, OldValue: c.OldValue, NewValue: c.NewValue})
	}
	return auditRecord{
		ID:            entry.ID,
		OrderID:       entry.OrderID,
		OrderNumber:   entry.OrderNumber,
		Action:        string(entry.Action),
		ActorID:       entry.ActorID,
		ActorName:     entry.ActorName,
		OccurredAt:    entry.Timestamp,
		Changes:       changes,
		ChangedFields: pq.StringArray(entry.ChangedFields()),
		Reason:        entry.Reason,
		Metadata:      entry.Metadata,
	}
}

func (r auditRecord) toDomain() domain.AuditEntry {
	changes := make([]domain.FieldChange, 0, len(r.Changes))
	for _, c := range r.Changes {
		changes = append(changes, domain.FieldChange{Field: c.Field, OldValue: c.OldValue, NewValue: c.NewValue})
	}
	return domain.AuditEntry{
		ID:          r.ID,
		OrderID:     r.OrderID,
		OrderNumber: r.OrderNumber,
		Action:      domain.AuditAction(r.Action),
		ActorID:     r.ActorID,
		ActorName:   r.ActorName,
		Timestamp:   r.OccurredAt.UTC(),
		Changes:     changes,
		Reason:      r.Reason,
		Metadata:    r.Metadata,
	}
}

func toMovementRecord(m domain.StockMovement) movementRecord {
	return movementRecord{
		ID:             m.ID,
		OrderID:        m.OrderID,
		Reference:      m.Reference,
		ProductID:      m.ProductID,
		SKU:            m.SKU,
		Quantity:       m.Quantity,
		QuantityBefore: m.QuantityBefore,
		QuantityAfter:  m.QuantityAfter,
		Condition:      string(m.Condition),
		ActorID:        m.ActorID,
		OccurredAt:     m.Timestamp,
	}
}

func (r movementRecord) toDomain() domain.StockMovement {
	return domain.StockMovement{
		ID:             r.ID,
		OrderID:        r.OrderID,
		Reference:      r.Reference,
		ProductID:      r.ProductID,
		SKU:            r.SKU,
		Quantity:       r.Quantity,
		QuantityBefore: r.QuantityBefore,
		QuantityAfter:  r.QuantityAfter,
		Condition:      domain.Condition(r.Condition),
		ActorID:        r.ActorID,
		Timestamp:      r.OccurredAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
