// Package approval resolves who may approve a purchase order.
package approval

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/domain"
)

var (
	ErrOverlappingThresholds = errors.New("active approval thresholds overlap")
	ErrInvalidThresholdRange = errors.New("approval threshold range is empty")
)

// Scope describes the attributes threshold conditions are matched against.
type Scope struct {
	SupplierCategory  string
	ProductCategories []string
	PaymentTerms      string
	Currency          string
}

// ScopeOf extracts the matching scope from an order.
func ScopeOf(order *domain.PurchaseOrder) Scope {
	return Scope{
		SupplierCategory:  order.SupplierCategory,
		ProductCategories: order.ProductCategories(),
		PaymentTerms:      order.PaymentTerms,
		Currency:          order.Currency,
	}
}

// Approver is the acting user plus any personal limits supplied with the request.
type Approver struct {
	Actor domain.Actor
	// ApprovalLevel overrides the level derived from the actor's role.
	ApprovalLevel     *int
	MaxApprovalAmount *decimal.Decimal
}

// Decision is the outcome of a permission check. Errors holds every failed rule.
type Decision struct {
	CanApprove    bool
	Errors        []string
	UserLevel     int
	RequiredLevel int
	Threshold     *domain.ApprovalThreshold
}

// Resolver answers approval questions against one configuration snapshot.
type Resolver struct {
	cfg        domain.ApprovalConfig
	thresholds []domain.ApprovalThreshold
}

// NewResolver sorts the configured thresholds ascending by minimum amount.
func NewResolver(cfg domain.ApprovalConfig) *Resolver {
	thresholds := append([]domain.ApprovalThreshold{}, cfg.Thresholds...)
	sort.SliceStable(thresholds, func(i, j int) bool {
		return thresholds[i].MinAmount.LessThan(thresholds[j].MinAmount)
	})
	return &Resolver{cfg: cfg, thresholds: thresholds}
}

// Threshold returns the first active threshold containing amount whose conditions match.
func (r *Resolver) Threshold(amount decimal.Decimal, scope Scope) (domain.ApprovalThreshold, bool) {
	for _, t := range r.thresholds {
		if !t.Active || !t.Contains(amount) {
			continue
		}
		if matches(t.Conditions, scope) {
			return t, true
		}
	}
	return domain.ApprovalThreshold{}, false
}

// RequiredApprovers lists the roles permitted to approve the order.
func (r *Resolver) RequiredApprovers(order *domain.PurchaseOrder) []domain.Role {
	t, ok := r.Threshold(order.Total, ScopeOf(order))
	if !ok {
		return nil
	}
	return append([]domain.Role{}, t.Roles...)
}

// CanAutoApprove reports whether the order may skip manual approval.
func (r *Resolver) CanAutoApprove(order *domain.PurchaseOrder) bool {
	t, ok := r.Threshold(order.Total, ScopeOf(order))
	if !ok || !t.AutoApprove {
		return false
	}
	o := r.cfg.Overrides
	if o.MaxAmount != nil && order.Total.GreaterThan(*o.MaxAmount) {
		return false
	}
	if containsFold(o.ManualReviewSuppliers, order.SupplierID) {
		return false
	}
	for _, category := range order.ProductCategories() {
		if containsFold(o.ManualReviewProductCategories, category) {
			return false
		}
	}
	return true
}

// ValidatePermissions checks every approval rule and collects all failures.
func (r *Resolver) ValidatePermissions(order *domain.PurchaseOrder, approver Approver) Decision {
	decision := Decision{UserLevel: r.cfg.LevelOf(approver.Actor.Role)}
	if approver.ApprovalLevel != nil {
		decision.UserLevel = *approver.ApprovalLevel
	}

	if approver.Actor.ID != "" && approver.Actor.ID == order.CreatedBy {
		decision.Errors = append(decision.Errors, "cannot approve a purchase order you created")
	}

	t, ok := r.Threshold(order.Total, ScopeOf(order))
	if ok {
		decision.Threshold = &t
		decision.RequiredLevel = t.RequiredLevel
		if decision.UserLevel < t.RequiredLevel {
			decision.Errors = append(decision.Errors, fmt.Sprintf(
				"insufficient approval level: user level %d is below required level %d", decision.UserLevel, t.RequiredLevel))
		}
	} else {
		decision.Errors = append(decision.Errors, fmt.Sprintf("no approval threshold covers amount %s", order.Total))
	}

	if approver.MaxApprovalAmount != nil && order.Total.GreaterThan(*approver.MaxApprovalAmount) {
		decision.Errors = append(decision.Errors, fmt.Sprintf(
			"order amount %s exceeds approval limit %s", order.Total, *approver.MaxApprovalAmount))
	}

	decision.CanApprove = len(decision.Errors) == 0
	return decision
}

// ValidateThresholds rejects empty ranges and overlapping active thresholds that share
// the same condition scope.
func ValidateThresholds(thresholds []domain.ApprovalThreshold) error {
	groups := map[string][]domain.ApprovalThreshold{}
	var keys []string
	for _, t := range thresholds {
		if t.MaxAmount != nil && !t.MaxAmount.GreaterThan(t.MinAmount) {
			return fmt.Errorf("%w: %s [%s, %s)", ErrInvalidThresholdRange, t.Name, t.MinAmount, *t.MaxAmount)
		}
		if !t.Active {
			continue
		}
		key := conditionsKey(t.Conditions)
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], t)
	}
	for _, key := range keys {
		group := groups[key]
		sort.SliceStable(group, func(i, j int) bool { return group[i].MinAmount.LessThan(group[j].MinAmount) })
		for i := 1; i < len(group); i++ {
			prev, next := group[i-1], group[i]
			if prev.MaxAmount == nil || next.MinAmount.LessThan(*prev.MaxAmount) {
				return fmt.Errorf("%w: %s and %s", ErrOverlappingThresholds, prev.Name, next.Name)
			}
		}
	}
	return nil
}

func matches(c domain.ThresholdConditions, s Scope) bool {
	if len(c.SupplierCategories) > 0 && !containsFold(c.SupplierCategories, s.SupplierCategory) {
		return false
	}
	if len(c.ProductCategories) > 0 {
		found := false
		for _, category := range s.ProductCategories {
			if containsFold(c.ProductCategories, category) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(c.PaymentTerms) > 0 && !containsFold(c.PaymentTerms, s.PaymentTerms) {
		return false
	}
	if len(c.Currencies) > 0 && !containsFold(c.Currencies, s.Currency) {
		return false
	}
	return true
}

func conditionsKey(c domain.ThresholdConditions) string {
	parts := make([]string, 0, 4)
	for _, list := range [][]string{c.SupplierCategories, c.ProductCategories, c.PaymentTerms, c.Currencies} {
		normalized := make([]string, 0, len(list))
		for _, v := range list {
			normalized = append(normalized, strings.ToLower(strings.TrimSpace(v)))
		}
		sort.Strings(normalized)
		parts = append(parts, strings.Join(normalized, ","))
	}
	return strings.Join(parts, "|")
}

func containsFold(values []string, target string) bool {
	if target == "" {
		return false
	}
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}
