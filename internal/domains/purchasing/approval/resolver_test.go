package approval

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/domain"
)

func amount(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func ptr[T any](v T) *T { return &v }

func twoTierConfig() domain.ApprovalConfig {
	return domain.ApprovalConfig{
		Thresholds: []domain.ApprovalThreshold{
			{ID: "high", Name: "high", MinAmount: amount(10000), RequiredLevel: 3, Active: true},
			{ID: "low", Name: "low", MinAmount: amount(0), MaxAmount: ptr(amount(10000)), RequiredLevel: 1, Active: true},
		},
		RoleLevels: map[domain.Role]int{domain.RoleManager: 2},
	}
}

func orderOf(total int64, createdBy string) *domain.PurchaseOrder {
	return &domain.PurchaseOrder{
		ID:         "po-1",
		SupplierID: "sup-1",
		Total:      amount(total),
		CreatedBy:  createdBy,
		Status:     domain.StatusPendingApproval,
		Items: []domain.PurchaseOrderItem{
			{ProductID: "p-1", ProductCategory: "beverages", OrderedQuantity: amount(1), UnitCost: amount(total)},
		},
	}
}

func TestThreshold_HalfOpenRanges(t *testing.T) {
	r := NewResolver(twoTierConfig())

	low, ok := r.Threshold(amount(9999), Scope{})
	require.True(t, ok)
	require.Equal(t, "low", low.ID)

	high, ok := r.Threshold(amount(10000), Scope{})
	require.True(t, ok)
	require.Equal(t, "high", high.ID)
}

func TestThreshold_SkipsInactiveAndUnmatchedConditions(t *testing.T) {
	cfg := domain.ApprovalConfig{Thresholds: []domain.ApprovalThreshold{
		{ID: "imports", MinAmount: amount(0), RequiredLevel: 3, Active: true,
			Conditions: domain.ThresholdConditions{Currencies: []string{"EUR"}}},
		{ID: "disabled", MinAmount: amount(0), RequiredLevel: 9, Active: false},
		{ID: "default", MinAmount: amount(0), RequiredLevel: 1, Active: true},
	}}
	r := NewResolver(cfg)

	got, ok := r.Threshold(amount(50), Scope{Currency: "usd"})
	require.True(t, ok)
	require.Equal(t, "default", got.ID)

	got, ok = r.Threshold(amount(50), Scope{Currency: "eur"})
	require.True(t, ok)
	require.Equal(t, "imports", got.ID)
}

func TestValidatePermissions_LevelTwoWithinLimit(t *testing.T) {
	r := NewResolver(twoTierConfig())

	decision := r.ValidatePermissions(orderOf(5000, "creator"), Approver{
		Actor:             domain.Actor{ID: "approver", Role: domain.RoleStaff},
		ApprovalLevel:     ptr(2),
		MaxApprovalAmount: ptr(amount(10000)),
	})

	require.True(t, decision.CanApprove)
	require.Empty(t, decision.Errors)
	require.Equal(t, 2, decision.UserLevel)
	require.Equal(t, 1, decision.RequiredLevel)
}

func TestValidatePermissions_CollectsEveryFailure(t *testing.T) {
	r := NewResolver(twoTierConfig())

	decision := r.ValidatePermissions(orderOf(100000, "creator"), Approver{
		Actor:             domain.Actor{ID: "approver", Role: domain.RoleStaff},
		ApprovalLevel:     ptr(1),
		MaxApprovalAmount: ptr(amount(10000)),
	})

	require.False(t, decision.CanApprove)
	require.Len(t, decision.Errors, 2)
	require.Contains(t, decision.Errors[0], "user level 1 is below required level 3")
	require.Contains(t, decision.Errors[1], "exceeds approval limit 10000")
}

func TestValidatePermissions_SelfApprovalAlwaysDenied(t *testing.T) {
	r := NewResolver(twoTierConfig())

	decision := r.ValidatePermissions(orderOf(10, "boss"), Approver{
		Actor:         domain.Actor{ID: "boss", Role: domain.RoleAdmin},
		ApprovalLevel: ptr(99),
	})

	require.False(t, decision.CanApprove)
	require.Contains(t, decision.Errors[0], "you created")
}

func TestValidatePermissions_RoleDerivedLevel(t *testing.T) {
	r := NewResolver(twoTierConfig())

	decision := r.ValidatePermissions(orderOf(500, "creator"), Approver{
		Actor: domain.Actor{ID: "m-1", Role: domain.RoleManager},
	})

	require.True(t, decision.CanApprove)
	require.Equal(t, 2, decision.UserLevel)
}

func TestCanAutoApprove_HonorsOverrides(t *testing.T) {
	cfg := domain.ApprovalConfig{Thresholds: []domain.ApprovalThreshold{
		{ID: "petty", MinAmount: amount(0), MaxAmount: ptr(amount(500)), AutoApprove: true, Active: true},
	}}

	require.True(t, NewResolver(cfg).CanAutoApprove(orderOf(100, "c")))
	require.False(t, NewResolver(cfg).CanAutoApprove(orderOf(600, "c")))

	capped := cfg
	capped.Overrides.MaxAmount = ptr(amount(50))
	require.False(t, NewResolver(capped).CanAutoApprove(orderOf(100, "c")))

	supplier := cfg
	supplier.Overrides.ManualReviewSuppliers = []string{"sup-1"}
	require.False(t, NewResolver(supplier).CanAutoApprove(orderOf(100, "c")))

	category := cfg
	category.Overrides.ManualReviewProductCategories = []string{"Beverages"}
	require.False(t, NewResolver(category).CanAutoApprove(orderOf(100, "c")))
}

func TestRequiredApprovers(t *testing.T) {
	r := NewResolver(domain.DefaultWorkflowConfig().Approval)

	roles := r.RequiredApprovers(orderOf(20000, "c"))

	require.Equal(t, []domain.Role{domain.RoleManager, domain.RoleDirector, domain.RoleAdmin}, roles)
}

func TestValidateThresholds(t *testing.T) {
	require.NoError(t, ValidateThresholds(twoTierConfig().Thresholds))
	require.NoError(t, ValidateThresholds(domain.DefaultWorkflowConfig().Approval.Thresholds))

	overlapping := []domain.ApprovalThreshold{
		{Name: "a", MinAmount: amount(0), MaxAmount: ptr(amount(1000)), Active: true},
		{Name: "b", MinAmount: amount(500), Active: true},
	}
	require.ErrorIs(t, ValidateThresholds(overlapping), ErrOverlappingThresholds)

	overlapping[1].Active = false
	require.NoError(t, ValidateThresholds(overlapping))

	scoped := []domain.ApprovalThreshold{
		{Name: "a", MinAmount: amount(0), Active: true},
		{Name: "b", MinAmount: amount(0), Active: true, Conditions: domain.ThresholdConditions{Currencies: []string{"EUR"}}},
	}
	require.NoError(t, ValidateThresholds(scoped))

	empty := []domain.ApprovalThreshold{{Name: "x", MinAmount: amount(10), MaxAmount: ptr(amount(10)), Active: true}}
	require.ErrorIs(t, ValidateThresholds(empty), ErrInvalidThresholdRange)
}
