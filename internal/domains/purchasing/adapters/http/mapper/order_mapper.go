package mapper

import (
	"time"

	"github.com/shopspring/decimal"

	types "github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/application/types"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/domain"
)

// ItemPayload is one ordered line in create and update requests.
type ItemPayload struct {
	ProductID       string          `json:"productId"`
	ProductName     string          `json:"productName,omitempty"`
	SKU             string          `json:"sku,omitempty"`
	ProductCategory string          `json:"productCategory,omitempty"`
	OrderedQuantity decimal.Decimal `json:"orderedQuantity"`
	UnitCost        decimal.Decimal `json:"unitCost"`
}

// CreateOrder is the inbound payload for a new draft order.
type CreateOrder struct {
	Number           string           `json:"number,omitempty"`
	SupplierID       string           `json:"supplierId"`
	SupplierName     string           `json:"supplierName,omitempty"`
	SupplierCategory string           `json:"supplierCategory,omitempty"`
	PaymentTerms     string           `json:"paymentTerms,omitempty"`
	Currency         string           `json:"currency,omitempty"`
	Items            []ItemPayload    `json:"items"`
	Subtotal         decimal.Decimal  `json:"subtotal"`
	Tax              decimal.Decimal  `json:"tax"`
	Total            *decimal.Decimal `json:"total,omitempty"`
	ExpectedDate     *time.Time       `json:"expectedDate,omitempty"`
	Notes            string           `json:"notes,omitempty"`
}

// UpdateOrder preserves field presence so omitted fields stay untouched.
type UpdateOrder struct {
	SupplierID   *string          `json:"supplierId,omitempty"`
	SupplierName *string          `json:"supplierName,omitempty"`
	ExpectedDate *time.Time       `json:"expectedDate,omitempty"`
	Notes        *string          `json:"notes,omitempty"`
	Items        *[]ItemPayload   `json:"items,omitempty"`
	Subtotal     *decimal.Decimal `json:"subtotal,omitempty"`
	Tax          *decimal.Decimal `json:"tax,omitempty"`
	Total        *decimal.Decimal `json:"total,omitempty"`
}

// Reason carries the optional justification for a named transition.
type Reason struct {
	Reason string `json:"reason,omitempty"`
}

// StatusChange requests a generic transition.
type StatusChange struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason,omitempty"`
}

// Approval approves or rejects a pending order.
type Approval struct {
	Action            string           `json:"action" binding:"required"`
	Reason            string           `json:"reason,omitempty"`
	ApprovalLevel     *int             `json:"approvalLevel,omitempty"`
	MaxApprovalAmount *decimal.Decimal `json:"maxApprovalAmount,omitempty"`
}

type QualityCheck struct {
	Passed    bool   `json:"passed"`
	CheckedBy string `json:"checkedBy,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

type DamageReport struct {
	Category    string   `json:"category,omitempty"`
	Description string   `json:"description,omitempty"`
	Photos      []string `json:"photos,omitempty"`
}

// ReceiptItem reports goods received for one line.
type ReceiptItem struct {
	ProductID        string          `json:"productId"`
	ReceivedQuantity decimal.Decimal `json:"receivedQuantity"`
	Condition        string          `json:"condition,omitempty"`
	QualityCheck     *QualityCheck   `json:"qualityCheck,omitempty"`
	ExpiryDate       *time.Time      `json:"expiryDate,omitempty"`
	DamageReport     *DamageReport   `json:"damageReport,omitempty"`
}

// Receipt is the inbound receiving event. The idempotency key may also arrive as a header.
type Receipt struct {
	Items          []ReceiptItem `json:"items"`
	IsPartial      bool          `json:"isPartial,omitempty"`
	Reason         string        `json:"reason,omitempty"`
	Notes          string        `json:"notes,omitempty"`
	IdempotencyKey string        `json:"idempotencyKey,omitempty"`
}

// Item is the HTTP representation of an order line.
type Item struct {
	ProductID         string          `json:"productId"`
	ProductName       string          `json:"productName,omitempty"`
	SKU               string          `json:"sku,omitempty"`
	ProductCategory   string          `json:"productCategory,omitempty"`
	OrderedQuantity   decimal.Decimal `json:"orderedQuantity"`
	UnitCost          decimal.Decimal `json:"unitCost"`
	LineTotal         decimal.Decimal `json:"lineTotal"`
	ReceivedQuantity  decimal.Decimal `json:"receivedQuantity"`
	RemainingQuantity decimal.Decimal `json:"remainingQuantity"`
}

// Order is the HTTP representation of a purchase order.
type Order struct {
	ID               string          `json:"id"`
	Number           string          `json:"number"`
	SupplierID       string          `json:"supplierId"`
	SupplierName     string          `json:"supplierName,omitempty"`
	SupplierCategory string          `json:"supplierCategory,omitempty"`
	PaymentTerms     string          `json:"paymentTerms,omitempty"`
	Currency         string          `json:"currency,omitempty"`
	Items            []Item          `json:"items"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	Tax              decimal.Decimal `json:"tax"`
	Total            decimal.Decimal `json:"total"`
	Status           string          `json:"status"`
	ExpectedDate     *time.Time      `json:"expectedDate,omitempty"`
	ReceivedDate     *time.Time      `json:"receivedDate,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	CreatedBy        string          `json:"createdBy"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
	ApprovedBy       string          `json:"approvedBy,omitempty"`
	ApprovedAt       *time.Time      `json:"approvedAt,omitempty"`
}

// OrderEnvelope wraps a mutated order with its non-fatal warnings.
type OrderEnvelope struct {
	Order    Order    `json:"order"`
	Warnings []string `json:"warnings,omitempty"`
}

type OrderPage struct {
	Items  []Order `json:"items"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// Issue is a validation message addressed to a line or the whole request.
type Issue struct {
	ProductID string `json:"productId,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

type Adjustment struct {
	ProductID string          `json:"productId"`
	Type      string          `json:"type"`
	Quantity  decimal.Decimal `json:"quantity"`
	Reason    string          `json:"reason,omitempty"`
}

// Validation is the verdict on a receipt.
type Validation struct {
	IsValid          bool         `json:"isValid"`
	CanProceed       bool         `json:"canProceed"`
	RequiresApproval bool         `json:"requiresApproval"`
	RequiredRoles    []string     `json:"requiredRoles,omitempty"`
	Errors           []Issue      `json:"errors"`
	Warnings         []Issue      `json:"warnings"`
	Adjustments      []Adjustment `json:"adjustments,omitempty"`
}

type StockMovement struct {
	ID             string          `json:"id"`
	Reference      string          `json:"reference"`
	ProductID      string          `json:"productId"`
	SKU            string          `json:"sku,omitempty"`
	Quantity       decimal.Decimal `json:"quantity"`
	QuantityBefore decimal.Decimal `json:"quantityBefore"`
	QuantityAfter  decimal.Decimal `json:"quantityAfter"`
	Condition      string          `json:"condition,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
}

// ReceiptOutcome is the response to a committed receiving event.
type ReceiptOutcome struct {
	Order      Order           `json:"order"`
	Validation Validation      `json:"validation"`
	Movements  []StockMovement `json:"movements"`
	Warnings   []string        `json:"warnings,omitempty"`
	Replayed   bool            `json:"replayed,omitempty"`
}

type ApprovalDecision struct {
	OrderID        string   `json:"orderId"`
	CanApprove     bool     `json:"canApprove"`
	CanAutoApprove bool     `json:"canAutoApprove"`
	UserLevel      int      `json:"userLevel"`
	RequiredLevel  int      `json:"requiredLevel"`
	RequiredRoles  []string `json:"requiredRoles,omitempty"`
	Errors         []string `json:"errors,omitempty"`
}

type FieldChange struct {
	Field    string `json:"field"`
	OldValue string `json:"oldValue"`
	NewValue string `json:"newValue"`
}

// AuditEntry is one history record.
type AuditEntry struct {
	ID          string            `json:"id"`
	OrderID     string            `json:"orderId"`
	OrderNumber string            `json:"orderNumber,omitempty"`
	Action      string            `json:"action"`
	ActorID     string            `json:"actorId"`
	ActorName   string            `json:"actorName,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Changes     []FieldChange     `json:"changes,omitempty"`
	Reason      string            `json:"reason,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Transitions lists the statuses reachable from the current one.
type Transitions struct {
	OrderID   string   `json:"orderId"`
	Available []string `json:"available"`
}

func toItemInputs(items []ItemPayload) []types.ItemInput {
	out := make([]types.ItemInput, 0, len(items))
	for _, it := range items {
		out = append(out, types.ItemInput{
			ProductID:       it.ProductID,
			ProductName:     it.ProductName,
			SKU:             it.SKU,
			ProductCategory: it.ProductCategory,
			OrderedQuantity: it.OrderedQuantity,
			UnitCost:        it.UnitCost,
		})
	}
	return out
}

// ToCreateInput maps the create payload into the application command.
func ToCreateInput(p CreateOrder) types.CreateOrderInput {
	return types.CreateOrderInput{
		Number:           p.Number,
		SupplierID:       p.SupplierID,
		SupplierName:     p.SupplierName,
		SupplierCategory: p.SupplierCategory,
		PaymentTerms:     p.PaymentTerms,
		Currency:         p.Currency,
		Items:            toItemInputs(p.Items),
		Subtotal:         p.Subtotal,
		Tax:              p.Tax,
		Total:            p.Total,
		ExpectedDate:     p.ExpectedDate,
		Notes:            p.Notes,
	}
}

// ToUpdateInput maps the update payload, keeping nil for omitted fields.
func ToUpdateInput(id string, p UpdateOrder) types.UpdateOrderInput {
	input := types.UpdateOrderInput{
		ID:           id,
		SupplierID:   p.SupplierID,
		SupplierName: p.SupplierName,
		ExpectedDate: p.ExpectedDate,
		Notes:        p.Notes,
		Subtotal:     p.Subtotal,
		Tax:          p.Tax,
		Total:        p.Total,
	}
	if p.Items != nil {
		items := toItemInputs(*p.Items)
		input.Items = &items
	}
	return input
}

// ToApprovalSubmission maps an approval decision.
func ToApprovalSubmission(id string, p Approval) types.ApprovalSubmission {
	return types.ApprovalSubmission{
		OrderID:           id,
		Action:            types.ApprovalAction(p.Action),
		Reason:            p.Reason,
		ApprovalLevel:     p.ApprovalLevel,
		MaxApprovalAmount: p.MaxApprovalAmount,
	}
}

// ToReceivingSubmission maps a receipt. A non-empty headerKey wins over the body key.
func ToReceivingSubmission(id, headerKey string, p Receipt) types.ReceivingSubmission {
	items := make([]types.ReceiptItemInput, 0, len(p.Items))
	for _, it := range p.Items {
		item := types.ReceiptItemInput{
			ProductID:        it.ProductID,
			ReceivedQuantity: it.ReceivedQuantity,
			Condition:        domain.Condition(it.Condition),
			ExpiryDate:       it.ExpiryDate,
		}
		if it.QualityCheck != nil {
			item.QualityCheck = &domain.QualityCheck{
				Passed:    it.QualityCheck.Passed,
				CheckedBy: it.QualityCheck.CheckedBy,
				Notes:     it.QualityCheck.Notes,
			}
		}
		if it.DamageReport != nil {
			item.DamageReport = &domain.DamageReport{
				Category:    it.DamageReport.Category,
				Description: it.DamageReport.Description,
				Photos:      append([]string(nil), it.DamageReport.Photos...),
			}
		}
		items = append(items, item)
	}
	key := p.IdempotencyKey
	if headerKey != "" {
		key = headerKey
	}
	return types.ReceivingSubmission{
		OrderID:        id,
		Items:          items,
		IsPartial:      p.IsPartial,
		Reason:         p.Reason,
		Notes:          p.Notes,
		IdempotencyKey: key,
	}
}

// FromOrder maps the aggregate into its HTTP representation.
func FromOrder(o *domain.PurchaseOrder) Order {
	if o == nil {
		return Order{}
	}
	items := make([]Item, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, Item{
			ProductID:         it.ProductID,
			ProductName:       it.ProductName,
			SKU:               it.SKU,
			ProductCategory:   it.ProductCategory,
			OrderedQuantity:   it.OrderedQuantity,
			UnitCost:          it.UnitCost,
			LineTotal:         it.LineTotal,
			ReceivedQuantity:  it.ReceivedQuantity,
			RemainingQuantity: it.RemainingQuantity(),
		})
	}
	return Order{
		ID:               o.ID,
		Number:           o.Number,
		SupplierID:       o.SupplierID,
		SupplierName:     o.SupplierName,
		SupplierCategory: o.SupplierCategory,
		PaymentTerms:     o.PaymentTerms,
		Currency:         o.Currency,
		Items:            items,
		Subtotal:         o.Subtotal,
		Tax:              o.Tax,
		Total:            o.Total,
		Status:           string(o.Status),
		ExpectedDate:     o.ExpectedDate,
		ReceivedDate:     o.ReceivedDate,
		Notes:            o.Notes,
		CreatedBy:        o.CreatedBy,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		ApprovedBy:       o.ApprovedBy,
		ApprovedAt:       o.ApprovedAt,
	}
}

func FromOrderResult(r *types.OrderResult) OrderEnvelope {
	if r == nil {
		return OrderEnvelope{}
	}
	return OrderEnvelope{Order: FromOrder(r.Order), Warnings: r.Warnings}
}

func FromOrderPage(p *types.OrderPage) OrderPage {
	page := OrderPage{Items: []Order{}}
	if p == nil {
		return page
	}
	for _, o := range p.Items {
		page.Items = append(page.Items, FromOrder(o))
	}
	page.Total, page.Limit, page.Offset = p.Total, p.Limit, p.Offset
	return page
}

// FromIssues maps validation messages; the result is never nil.
func FromIssues(issues []domain.Issue) []Issue {
	out := make([]Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, Issue{ProductID: i.ProductID, Code: i.Code, Message: i.Message})
	}
	return out
}

func FromValidation(v domain.ReceivingValidation) Validation {
	out := Validation{
		IsValid:          v.IsValid,
		CanProceed:       v.CanProceed,
		RequiresApproval: v.RequiresApproval,
		RequiredRoles:    roleNames(v.RequiredRoles),
		Errors:           FromIssues(v.Errors),
		Warnings:         FromIssues(v.Warnings),
	}
	for _, a := range v.Adjustments {
		out.Adjustments = append(out.Adjustments, Adjustment{ProductID: a.ProductID, Type: a.Type, Quantity: a.Quantity, Reason: a.Reason})
	}
	return out
}

func FromReceiptResult(r *types.ReceiptResult) ReceiptOutcome {
	if r == nil {
		return ReceiptOutcome{}
	}
	out := ReceiptOutcome{
		Order:      FromOrder(r.Order),
		Validation: FromValidation(r.Validation),
		Movements:  make([]StockMovement, 0, len(r.Movements)),
		Warnings:   r.Warnings,
		Replayed:   r.Replayed,
	}
	for _, m := range r.Movements {
		out.Movements = append(out.Movements, StockMovement{
			ID:             m.ID,
			Reference:      m.Reference,
			ProductID:      m.ProductID,
			SKU:            m.SKU,
			Quantity:       m.Quantity,
			QuantityBefore: m.QuantityBefore,
			QuantityAfter:  m.QuantityAfter,
			Condition:      string(m.Condition),
			Timestamp:      m.Timestamp,
		})
	}
	return out
}

func FromApprovalDecision(d *types.ApprovalDecision) ApprovalDecision {
	if d == nil {
		return ApprovalDecision{}
	}
	return ApprovalDecision{
		OrderID:        d.OrderID,
		CanApprove:     d.CanApprove,
		CanAutoApprove: d.CanAutoApprove,
		UserLevel:      d.UserLevel,
		RequiredLevel:  d.RequiredLevel,
		RequiredRoles:  roleNames(d.RequiredRoles),
		Errors:         d.Errors,
	}
}

func FromAuditEntries(entries []domain.AuditEntry) []AuditEntry {
	out := make([]AuditEntry, 0, len(entries))
	for _, e := range entries {
		entry := AuditEntry{
			ID:          e.ID,
			OrderID:     e.OrderID,
			OrderNumber: e.OrderNumber,
			Action:      string(e.Action),
			ActorID:     e.ActorID,
			ActorName:   e.ActorName,
			Timestamp:   e.Timestamp,
			Reason:      e.Reason,
			Metadata:    e.Metadata,
		}
		for _, c := range e.Changes {
			entry.Changes = append(entry.Changes, FieldChange{Field: c.Field, OldValue: c.OldValue, NewValue: c.NewValue})
		}
		out = append(out, entry)
	}
	return out
}

func FromTransitions(orderID string, statuses []domain.Status) Transitions {
	out := Transitions{OrderID: orderID, Available: make([]string, 0, len(statuses))}
	for _, s := range statuses {
		out.Available = append(out.Available, string(s))
	}
	return out
}

// ToAuditActions keeps the known actions from a query string list.
func ToAuditActions(raw []string) []domain.AuditAction {
	var out []domain.AuditAction
	for _, r := range raw {
		if a := domain.AuditAction(r); a.IsValid() {
			out = append(out, a)
		}
	}
	return out
}

func roleNames(roles []domain.Role) []string {
	if len(roles) == 0 {
		return nil
	}
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}
	return out
}
