package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNilOrder          = errors.New("purchase order is nil")
	ErrMissingSupplier   = errors.New("supplier id is required")
	ErrNoItems           = errors.New("purchase order must have at least one item")
	ErrMissingProduct    = errors.New("item product id is required")
	ErrInvalidQuantity   = errors.New("ordered quantity must be greater than zero")
	ErrNegativeCost      = errors.New("unit cost cannot be negative")
	ErrNegativeAmount    = errors.New("monetary amounts cannot be negative")
	ErrDuplicateProduct  = errors.New("product appears more than once on the order")
	ErrTotalMismatch     = errors.New("total must equal subtotal plus tax")
	ErrOrderLocked       = errors.New("purchase order can only be edited while in draft")
	ErrProductChanged    = errors.New("item product identity cannot change")
	ErrReceivedDecreased = errors.New("received quantity cannot decrease")
	ErrUnknownItem       = errors.New("product is not on the purchase order")
	ErrNotDeletable      = errors.New("only draft or cancelled purchase orders can be deleted")
)

// PurchaseOrderItem is one ordered line. Name and SKU are denormalized for history.
type PurchaseOrderItem struct {
	ProductID        string
	ProductName      string
	SKU              string
	ProductCategory  string
	OrderedQuantity  decimal.Decimal
	UnitCost         decimal.Decimal
	LineTotal        decimal.Decimal
	ReceivedQuantity decimal.Decimal
}

// RemainingQuantity returns what is still expected from the supplier.
func (i PurchaseOrderItem) RemainingQuantity() decimal.Decimal {
	remaining := i.OrderedQuantity.Sub(i.ReceivedQuantity)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// IsFullyReceived reports whether the ordered quantity has arrived.
func (i PurchaseOrderItem) IsFullyReceived() bool {
	return i.ReceivedQuantity.GreaterThanOrEqual(i.OrderedQuantity)
}

func (i PurchaseOrderItem) validate() error {
	if strings.TrimSpace(i.ProductID) == "" {
		return ErrMissingProduct
	}
	if !i.OrderedQuantity.IsPositive() {
		return fmt.Errorf("%w: product %s", ErrInvalidQuantity, i.ProductID)
	}
	if i.UnitCost.IsNegative() {
		return fmt.Errorf("%w: product %s", ErrNegativeCost, i.ProductID)
	}
	return nil
}

// PurchaseOrder is the aggregate governed by the lifecycle engine.
type PurchaseOrder struct {
	ID               string
	Number           string
	SupplierID       string
	SupplierName     string
	SupplierCategory string
	PaymentTerms     string
	Currency         string
	Items            []PurchaseOrderItem
	Subtotal         decimal.Decimal
	Tax              decimal.Decimal
	Total            decimal.Decimal
	Status           Status
	ExpectedDate     *time.Time
	ReceivedDate     *time.Time
	Notes            string
	CreatedBy        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ApprovedBy       string
	ApprovedAt       *time.Time
	// Version increments on every stored update.
	Version int64
}

// NewPurchaseOrder validates and constructs a draft order. A nil total is computed
// from subtotal and tax; a supplied total must agree with them.
func NewPurchaseOrder(id, number, supplierID string, items []PurchaseOrderItem, subtotal, tax decimal.Decimal, total *decimal.Decimal) (*PurchaseOrder, error) {
	order := &PurchaseOrder{
		ID:         id,
		Number:     number,
		SupplierID: strings.TrimSpace(supplierID),
		Subtotal:   subtotal,
		Tax:        tax,
		Status:     StatusDraft,
	}
	if total != nil {
		order.Total = *total
	} else {
		order.Total = subtotal.Add(tax)
	}
	if err := order.ReplaceItems(items); err != nil {
		return nil, err
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	return order, nil
}

// Validate enforces aggregate invariants.
func (o *PurchaseOrder) Validate() error {
	if o.SupplierID == "" {
		return ErrMissingSupplier
	}
	if len(o.Items) == 0 {
		return ErrNoItems
	}
	seen := make(map[string]struct{}, len(o.Items))
	for _, item := range o.Items {
		if err := item.validate(); err != nil {
			return err
		}
		if _, dup := seen[item.ProductID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateProduct, item.ProductID)
		}
		seen[item.ProductID] = struct{}{}
	}
	if o.Subtotal.IsNegative() || o.Tax.IsNegative() || o.Total.IsNegative() {
		return ErrNegativeAmount
	}
	if !o.Total.Equal(o.Subtotal.Add(o.Tax)) {
		return fmt.Errorf("%w: subtotal %s + tax %s != total %s", ErrTotalMismatch, o.Subtotal, o.Tax, o.Total)
	}
	if !o.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, o.Status)
	}
	return nil
}

// IsDeletable reports whether the order may be removed from the ledger.
func (o *PurchaseOrder) IsDeletable() bool {
	return o.Status == StatusDraft || o.Status == StatusCancelled
}

// IsEditable reports whether lines and totals may still change.
func (o *PurchaseOrder) IsEditable() bool {
	return o.Status == StatusDraft
}

// ReplaceItems swaps the line set, recomputing line totals. Existing products keep
// their received quantities.
func (o *PurchaseOrder) ReplaceItems(items []PurchaseOrderItem) error {
	if len(o.Items) > 0 && !o.IsEditable() {
		return ErrOrderLocked
	}
	received := make(map[string]decimal.Decimal, len(o.Items))
	for _, existing := range o.Items {
		received[existing.ProductID] = existing.ReceivedQuantity
	}
	next := make([]PurchaseOrderItem, 0, len(items))
	for _, item := range items {
		item.ProductID = strings.TrimSpace(item.ProductID)
		item.LineTotal = item.OrderedQuantity.Mul(item.UnitCost)
		if qty, ok := received[item.ProductID]; ok {
			item.ReceivedQuantity = qty
		}
		next = append(next, item)
	}
	o.Items = next
	return nil
}

// SetAmounts replaces the monetary totals; the caller is responsible for consistency.
func (o *PurchaseOrder) SetAmounts(subtotal, tax, total decimal.Decimal) error {
	if !o.IsEditable() {
		return ErrOrderLocked
	}
	o.Subtotal = subtotal
	o.Tax = tax
	o.Total = total
	if o.Subtotal.IsNegative() || o.Tax.IsNegative() || o.Total.IsNegative() {
		return ErrNegativeAmount
	}
	if !o.Total.Equal(o.Subtotal.Add(o.Tax)) {
		return fmt.Errorf("%w: subtotal %s + tax %s != total %s", ErrTotalMismatch, o.Subtotal, o.Tax, o.Total)
	}
	return nil
}

// Item returns the line for a product.
func (o *PurchaseOrder) Item(productID string) (PurchaseOrderItem, bool) {
	idx := o.itemIndex(productID)
	if idx < 0 {
		return PurchaseOrderItem{}, false
	}
	return o.Items[idx], true
}

// AddReceived folds a receiving quantity into a line. Quantities never decrease.
func (o *PurchaseOrder) AddReceived(productID string, quantity decimal.Decimal) (before, after decimal.Decimal, err error) {
	idx := o.itemIndex(productID)
	if idx < 0 {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownItem, productID)
	}
	if quantity.IsNegative() {
		return decimal.Zero, decimal.Zero, ErrReceivedDecreased
	}
	before = o.Items[idx].ReceivedQuantity
	after = before.Add(quantity)
	o.Items[idx].ReceivedQuantity = after
	return before, after, nil
}

// ReceivingStatus derives the status implied by current received quantities.
func (o *PurchaseOrder) ReceivingStatus() Status {
	for _, item := range o.Items {
		if !item.IsFullyReceived() {
			return StatusPartiallyReceived
		}
	}
	return StatusFullyReceived
}

// ProductCategories lists the distinct product categories on the order.
func (o *PurchaseOrder) ProductCategories() []string {
	seen := map[string]struct{}{}
	var categories []string
	for _, item := range o.Items {
		if item.ProductCategory == "" {
			continue
		}
		if _, ok := seen[item.ProductCategory]; ok {
			continue
		}
		seen[item.ProductCategory] = struct{}{}
		categories = append(categories, item.ProductCategory)
	}
	return categories
}

// Clone returns a deep copy.
func (o *PurchaseOrder) Clone() *PurchaseOrder {
	if o == nil {
		return nil
	}
	clone := *o
	if len(o.Items) > 0 {
		clone.Items = append([]PurchaseOrderItem{}, o.Items...)
	}
	clone.ExpectedDate = cloneTime(o.ExpectedDate)
	clone.ReceivedDate = cloneTime(o.ReceivedDate)
	clone.ApprovedAt = cloneTime(o.ApprovedAt)
	return &clone
}

func (o *PurchaseOrder) itemIndex(productID string) int {
	for i := range o.Items {
		if o.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	copy := *t
	return &copy
}
