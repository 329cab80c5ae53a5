package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Diff compares two snapshots and returns the changed fields in a stable order.
// A nil side is treated as absent, so creation and deletion produce full snapshots.
func Diff(before, after *PurchaseOrder) []FieldChange {
	var changes []FieldChange
	add := func(field, oldValue, newValue string) {
		if oldValue != newValue {
			changes = append(changes, FieldChange{Field: field, OldValue: oldValue, NewValue: newValue})
		}
	}
	b, a := snapshotOf(before), snapshotOf(after)
	add("status", b.status, a.status)
	add("supplierId", b.supplierID, a.supplierID)
	add("subtotal", b.subtotal, a.subtotal)
	add("tax", b.tax, a.tax)
	add("total", b.total, a.total)
	add("expectedDate", b.expectedDate, a.expectedDate)
	add("receivedDate", b.receivedDate, a.receivedDate)
	add("notes", b.notes, a.notes)
	add("approvedBy", b.approvedBy, a.approvedBy)

	products := make([]string, 0, len(b.items)+len(a.items))
	seen := map[string]struct{}{}
	for _, set := range []map[string]itemSnapshot{b.items, a.items} {
		for id := range set {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				products = append(products, id)
			}
		}
	}
	sort.Strings(products)
	for _, id := range products {
		oldItem, newItem := b.items[id], a.items[id]
		prefix := "items[" + id + "]."
		add(prefix+"orderedQuantity", oldItem.ordered, newItem.ordered)
		add(prefix+"unitCost", oldItem.unitCost, newItem.unitCost)
		add(prefix+"receivedQuantity", oldItem.received, newItem.received)
	}
	return changes
}

type orderSnapshot struct {
	status       string
	supplierID   string
	subtotal     string
	tax          string
	total        string
	expectedDate string
	receivedDate string
	notes        string
	approvedBy   string
	items        map[string]itemSnapshot
}

type itemSnapshot struct {
	ordered  string
	unitCost string
	received string
}

func snapshotOf(o *PurchaseOrder) orderSnapshot {
	if o == nil {
		return orderSnapshot{}
	}
	s := orderSnapshot{
		status:       string(o.Status),
		supplierID:   o.SupplierID,
		subtotal:     formatDecimal(o.Subtotal),
		tax:          formatDecimal(o.Tax),
		total:        formatDecimal(o.Total),
		expectedDate: formatTime(o.ExpectedDate),
		receivedDate: formatTime(o.ReceivedDate),
		notes:        o.Notes,
		approvedBy:   o.ApprovedBy,
		items:        make(map[string]itemSnapshot, len(o.Items)),
	}
	for _, item := range o.Items {
		s.items[item.ProductID] = itemSnapshot{
			ordered:  formatDecimal(item.OrderedQuantity),
			unitCost: formatDecimal(item.UnitCost),
			received: formatDecimal(item.ReceivedQuantity),
		}
	}
	return s
}

func formatDecimal(d decimal.Decimal) string {
	return d.String()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
