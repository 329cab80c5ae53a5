package migrations

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Run applies the purchasing schema. Adapters never automigrate on their own.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(
		&purchaseOrderRecord{},
		&auditRecord{},
		&stockMovementRecord{},
		&idempotencyRecord{},
		&settingsRecord{},
	)
}

// Purchase order schema mirrors the purchasing Postgres ledger.
type purchaseOrderRecord struct {
	ID               string          `gorm:"primaryKey;column:id;size:64"`
	Number           string          `gorm:"column:number;size:64;uniqueIndex"`
	SupplierID       string          `gorm:"column:supplier_id;size:64;index:idx_purchase_orders_supplier_status"`
	SupplierName     string          `gorm:"column:supplier_name"`
	SupplierCategory string          `gorm:"column:supplier_category"`
	PaymentTerms     string          `gorm:"column:payment_terms"`
	Currency         string          `gorm:"column:currency;size:8"`
	Items            []byte          `gorm:"column:items;type:jsonb"`
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
}

func (purchaseOrderRecord) TableName() string { return "purchase_orders" }

// Audit schema mirrors the ledger's append-only history table.
type auditRecord struct {
	ID            string         `gorm:"primaryKey;column:id;size:64"`
	OrderID       string         `gorm:"column:order_id;size:64;index:idx_purchase_order_audit_order"`
	OrderNumber   string         `gorm:"column:order_number;size:64"`
	Action        string         `gorm:"column:action;type:varchar(32);index"`
	ActorID       string         `gorm:"column:actor_id;size:64"`
	ActorName     string         `gorm:"column:actor_name"`
	OccurredAt    time.Time      `gorm:"column:occurred_at;index:idx_purchase_order_audit_order"`
	Changes       []byte         `gorm:"column:changes;type:jsonb"`
	ChangedFields pq.StringArray `gorm:"column:changed_fields;type:text[]"`
	Reason        string         `gorm:"column:reason"`
	Metadata      []byte         `gorm:"column:metadata;type:jsonb"`
}

func (auditRecord) TableName() string { return "purchase_order_audit" }

type stockMovementRecord struct {
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

func (stockMovementRecord) TableName() string { return "stock_movements" }

// Idempotency schema mirrors the receiving idempotency store.
type idempotencyRecord struct {
	Key         string    `gorm:"primaryKey;column:key;size:255"`
	RequestHash string    `gorm:"column:request_hash;size:128"`
	OrderID     string    `gorm:"column:order_id;size:64"`
	CreatedAt   time.Time `gorm:"column:created_at;index"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (idempotencyRecord) TableName() string { return "receiving_idempotency_keys" }

type settingsRecord struct {
	Key       string    `gorm:"primaryKey;column:key;size:64"`
	Config    []byte    `gorm:"column:config;type:jsonb"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (settingsRecord) TableName() string { return "workflow_settings" }
