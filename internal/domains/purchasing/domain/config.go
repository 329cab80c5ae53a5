package domain

import "github.com/shopspring/decimal"

// ToleranceMode selects how a tolerance value is interpreted.
type ToleranceMode string

const (
	ToleranceAbsolute   ToleranceMode = "absolute"
	TolerancePercentage ToleranceMode = "percentage"
)

// ToleranceRule configures over- or under-receiving allowances.
// Value, WarningThreshold and BlockThreshold share the rule's Mode.
type ToleranceRule struct {
	Enabled          bool             `json:"enabled"`
	Mode             ToleranceMode    `json:"mode"`
	Value            decimal.Decimal  `json:"value"`
	WarningThreshold decimal.Decimal  `json:"warningThreshold"`
	BlockThreshold   *decimal.Decimal `json:"blockThreshold,omitempty"`
	RequireApproval  bool             `json:"requireApproval"`
	ApprovalRoles    []Role           `json:"approvalRoles,omitempty"`
	AutoAccept       bool             `json:"autoAccept"`
}

// Resolve converts a configured value into units of the ordered quantity.
func (r ToleranceRule) Resolve(value, ordered decimal.Decimal) decimal.Decimal {
	if r.Mode == TolerancePercentage {
		return ordered.Mul(value).Div(decimal.NewFromInt(100))
	}
	return value
}

// PartialReceivingConfig governs multi-step receiving.
type PartialReceivingConfig struct {
	Enabled            bool `json:"enabled"`
	MaxPartialReceipts int  `json:"maxPartialReceipts"`
	RequireReason      bool `json:"requireReason"`
}

// DamagedItemHandling selects the outcome of a failed quality check.
type DamagedItemHandling string

const (
	DamagedItemsReject            DamagedItemHandling = "reject"
	DamagedItemsConditionalAccept DamagedItemHandling = "conditional_accept"
)

// QualityConfig governs inspection requirements.
type QualityConfig struct {
	Enabled             bool                `json:"enabled"`
	AuthorizedRoles     []Role              `json:"authorizedRoles,omitempty"`
	DamagedItemHandling DamagedItemHandling `json:"damagedItemHandling"`
}

// ExpiryConfig governs perishable goods.
type ExpiryConfig struct {
	Enabled                    bool   `json:"enabled"`
	RejectExpiredItems         bool   `json:"rejectExpiredItems"`
	NearExpiryDays             int    `json:"nearExpiryDays"`
	NearExpiryRequiresApproval bool   `json:"nearExpiryRequiresApproval"`
	WarningDays                int    `json:"warningDays"`
	ApprovalRoles              []Role `json:"approvalRoles,omitempty"`
}

// DamageConfig governs documentation of damaged goods.
type DamageConfig struct {
	RequireReport bool     `json:"requireReport"`
	RequirePhotos bool     `json:"requirePhotos"`
	Categories    []string `json:"categories,omitempty"`
}

// ReceivingConfig groups every receiving rule.
type ReceivingConfig struct {
	OverReceiving  ToleranceRule          `json:"overReceiving"`
	UnderReceiving ToleranceRule          `json:"underReceiving"`
	Partial        PartialReceivingConfig `json:"partial"`
	Quality        QualityConfig          `json:"quality"`
	Expiry         ExpiryConfig           `json:"expiry"`
	Damage         DamageConfig           `json:"damage"`
	AllowedRoles   []Role                 `json:"allowedRoles,omitempty"`
}

// ThresholdConditions narrow a threshold. Empty lists match everything.
type ThresholdConditions struct {
	SupplierCategories []string `json:"supplierCategories,omitempty"`
	ProductCategories  []string `json:"productCategories,omitempty"`
	PaymentTerms       []string `json:"paymentTerms,omitempty"`
	Currencies         []string `json:"currencies,omitempty"`
}

// IsEmpty reports whether no condition narrows the threshold.
func (c ThresholdConditions) IsEmpty() bool {
	return len(c.SupplierCategories) == 0 && len(c.ProductCategories) == 0 &&
		len(c.PaymentTerms) == 0 && len(c.Currencies) == 0
}

// ApprovalThreshold maps a half-open amount range [MinAmount, MaxAmount) to an authority.
type ApprovalThreshold struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	MinAmount     decimal.Decimal     `json:"minAmount"`
	MaxAmount     *decimal.Decimal    `json:"maxAmount,omitempty"`
	RequiredLevel int                 `json:"requiredLevel"`
	Roles         []Role              `json:"roles,omitempty"`
	AutoApprove   bool                `json:"autoApprove"`
	Active        bool                `json:"active"`
	Conditions    ThresholdConditions `json:"conditions"`
}

// Contains reports whether amount lies in the threshold's range.
func (t ApprovalThreshold) Contains(amount decimal.Decimal) bool {
	if amount.LessThan(t.MinAmount) {
		return false
	}
	return t.MaxAmount == nil || amount.LessThan(*t.MaxAmount)
}

// AutoApprovalOverrides veto auto-approval even when a threshold allows it.
type AutoApprovalOverrides struct {
	MaxAmount                     *decimal.Decimal `json:"maxAmount,omitempty"`
	ManualReviewSuppliers         []string         `json:"manualReviewSuppliers,omitempty"`
	ManualReviewProductCategories []string         `json:"manualReviewProductCategories,omitempty"`
}

// ApprovalConfig groups approval authority settings.
type ApprovalConfig struct {
	Thresholds []ApprovalThreshold   `json:"thresholds"`
	RoleLevels map[Role]int          `json:"roleLevels"`
	Overrides  AutoApprovalOverrides `json:"overrides"`
}

// LevelOf returns the approval level granted by a role.
func (c ApprovalConfig) LevelOf(role Role) int {
	return c.RoleLevels[role]
}

// WorkflowConfig is the per-request snapshot of every tunable rule.
type WorkflowConfig struct {
	Receiving ReceivingConfig `json:"receiving"`
	Approval  ApprovalConfig  `json:"approval"`
}

// DefaultWorkflowConfig returns the settings used when nothing is configured.
func DefaultWorkflowConfig() WorkflowConfig {
	block := decimal.NewFromInt(25)
	tier2 := decimal.NewFromInt(10000)
	tier3 := decimal.NewFromInt(50000)
	return WorkflowConfig{
		Receiving: ReceivingConfig{
			OverReceiving: ToleranceRule{
				Enabled:          true,
				Mode:             TolerancePercentage,
				Value:            decimal.NewFromInt(10),
				WarningThreshold: decimal.NewFromInt(5),
				BlockThreshold:   &block,
				RequireApproval:  true,
				ApprovalRoles:    []Role{RoleManager, RoleAdmin},
			},
			UnderReceiving: ToleranceRule{
				Enabled:          true,
				Mode:             TolerancePercentage,
				Value:            decimal.NewFromInt(10),
				WarningThreshold: decimal.NewFromInt(5),
				AutoAccept:       true,
			},
			Partial: PartialReceivingConfig{
				Enabled:            true,
				MaxPartialReceipts: 5,
			},
			Quality: QualityConfig{
				Enabled:             false,
				AuthorizedRoles:     []Role{RoleQuality, RoleManager, RoleAdmin},
				DamagedItemHandling: DamagedItemsReject,
			},
			Expiry: ExpiryConfig{
				Enabled:                    true,
				RejectExpiredItems:         true,
				NearExpiryDays:             7,
				NearExpiryRequiresApproval: false,
				WarningDays:                30,
				ApprovalRoles:              []Role{RoleManager, RoleAdmin},
			},
			Damage: DamageConfig{
				RequireReport: true,
				Categories:    []string{"packaging", "transit", "manufacturing", "handling"},
			},
			AllowedRoles: []Role{RoleWarehouse, RoleStaff, RolePurchaser, RoleManager, RoleAdmin},
		},
		Approval: ApprovalConfig{
			Thresholds: []ApprovalThreshold{
				{ID: "tier-1", Name: "Standard", MinAmount: decimal.Zero, MaxAmount: &tier2, RequiredLevel: 1,
					Roles: []Role{RolePurchaser, RoleManager, RoleDirector, RoleAdmin}, Active: true},
				{ID: "tier-2", Name: "Elevated", MinAmount: tier2, MaxAmount: &tier3, RequiredLevel: 2,
					Roles: []Role{RoleManager, RoleDirector, RoleAdmin}, Active: true},
				{ID: "tier-3", Name: "Executive", MinAmount: tier3, RequiredLevel: 3,
					Roles: []Role{RoleDirector, RoleAdmin}, Active: true},
			},
			RoleLevels: map[Role]int{
				RoleStaff:     0,
				RolePurchaser: 1,
				RoleManager:   2,
				RoleDirector:  3,
				RoleAdmin:     4,
			},
		},
	}
}
