// Package receiving evaluates proposed receipts against the configured tolerance,
// quality, expiry and damage rules. Validation is pure: the clock is part of the input.
package receiving

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/domain"
)

// Issue codes surfaced in validation results.
const (
	CodeRoleNotAllowed           = "role_not_allowed"
	CodeDuplicateItem            = "duplicate_item"
	CodeNoItemsReceived          = "no_items_received"
	CodeInvalidQuantity          = "invalid_quantity"
	CodeInvalidCondition         = "invalid_condition"
	CodePartialDisabled          = "partial_receiving_disabled"
	CodeMaxPartialReceipts       = "max_partial_receipts_exceeded"
	CodePartialReasonRequired    = "partial_reason_required"
	CodeOverReceiving            = "over_receiving"
	CodeOverReceivingBlocked     = "over_receiving_blocked"
	CodeOverReceivingApproval    = "over_receiving_requires_approval"
	CodeOverReceivingWarning     = "over_receiving_warning"
	CodeUnderReceiving           = "under_receiving"
	CodeUnderReceivingBlocked    = "under_receiving_blocked"
	CodeUnderReceivingApproval   = "under_receiving_requires_approval"
	CodeUnderReceivingWarning    = "under_receiving_warning"
	CodeQualityCheckRequired     = "quality_check_required"
	CodeQualityCheckUnauthorized = "quality_check_unauthorized"
	CodeQualityCheckFailed       = "quality_check_failed"
	CodeQualityConditionalAccept = "quality_conditional_accept"
	CodeExpiredItem              = "expired_item"
	CodeNearExpiry               = "near_expiry"
	CodeNearExpiryApproval       = "near_expiry_requires_approval"
	CodeExpirySoon               = "expiry_soon"
	CodeDamageReportRequired     = "damage_report_required"
	CodeDamagePhotosRequired     = "damage_photos_required"
	CodeUnknownDamageCategory    = "unknown_damage_category"
	CodeItemsRejected            = "items_rejected"
)

// Adjustment types recommended to the caller.
const (
	AdjustmentOverReceipt  = "over_receipt"
	AdjustmentShortReceipt = "short_receipt"
	AdjustmentRejected     = "rejected"
)

// Context carries everything a validation needs beyond the items themselves.
type Context struct {
	Config domain.ReceivingConfig
	Actor  domain.Actor
	// IsPartial marks a receipt that is not meant to close out the order.
	IsPartial bool
	Reason    string
	// PartialReceipts counts partial receipts already recorded for the order.
	PartialReceipts int
	Now             time.Time
}

// Validate evaluates a receipt. It never mutates its inputs.
func Validate(items []domain.ReceiptItem, ctx Context) domain.ReceivingValidation {
	v := &validation{}

	if len(ctx.Config.AllowedRoles) > 0 && !ctx.Actor.HasRole(ctx.Config.AllowedRoles) {
		v.fail("", CodeRoleNotAllowed, fmt.Sprintf("role %q is not allowed to receive goods", ctx.Actor.Role))
	}
	if ctx.IsPartial {
		v.checkPartial(ctx)
	}

	seen := make(map[string]struct{}, len(items))
	total := decimal.Zero
	for _, item := range items {
		if _, dup := seen[item.ProductID]; dup {
			v.fail(item.ProductID, CodeDuplicateItem, fmt.Sprintf("product %s appears more than once in the receipt", item.ProductID))
			continue
		}
		seen[item.ProductID] = struct{}{}
		if item.ReceivedQuantity.IsNegative() {
			v.fail(item.ProductID, CodeInvalidQuantity, "Received quantity cannot be negative")
			continue
		}
		if !item.Condition.IsValid() {
			v.fail(item.ProductID, CodeInvalidCondition, fmt.Sprintf("unknown condition %q", item.Condition))
			continue
		}
		total = total.Add(item.ReceivedQuantity)

		v.checkOverReceiving(item, ctx.Config.OverReceiving)
		if !ctx.IsPartial {
			v.checkUnderReceiving(item, ctx.Config.UnderReceiving)
		}
		if !item.ReceivedQuantity.IsPositive() {
			continue
		}
		if ctx.Config.Quality.Enabled {
			v.checkQuality(item, ctx.Config.Quality, ctx.Actor)
		}
		if ctx.Config.Expiry.Enabled {
			v.checkExpiry(item, ctx.Config.Expiry, ctx.Now)
		}
		v.checkDamage(item, ctx.Config.Damage)
	}

	if !total.IsPositive() {
		v.fail("", CodeNoItemsReceived, "No items received: at least one item must have a received quantity greater than zero")
	}
	return v.result()
}

type validation struct {
	errors      []domain.Issue
	warnings    []domain.Issue
	adjustments []domain.Adjustment
	approval    bool
	roles       []domain.Role
}

func (v *validation) fail(productID, code, msg string) {
	v.errors = append(v.errors, domain.Issue{ProductID: productID, Code: code, Message: msg})
}

func (v *validation) warn(productID, code, msg string) {
	v.warnings = append(v.warnings, domain.Issue{ProductID: productID, Code: code, Message: msg})
}

func (v *validation) requireApproval(roles []domain.Role) {
	v.approval = true
	for _, role := range roles {
		if !containsRole(v.roles, role) {
			v.roles = append(v.roles, role)
		}
	}
}

func (v *validation) result() domain.ReceivingValidation {
	valid := len(v.errors) == 0
	return domain.ReceivingValidation{
		IsValid:          valid,
		CanProceed:       valid || v.approval,
		RequiresApproval: v.approval,
		RequiredRoles:    v.roles,
		Errors:           v.errors,
		Warnings:         v.warnings,
		Adjustments:      v.adjustments,
	}
}

func (v *validation) checkPartial(ctx Context) {
	cfg := ctx.Config.Partial
	if !cfg.Enabled {
		v.fail("", CodePartialDisabled, "Partial receiving is not enabled")
		return
	}
	if cfg.MaxPartialReceipts > 0 && ctx.PartialReceipts >= cfg.MaxPartialReceipts {
		v.fail("", CodeMaxPartialReceipts,
			fmt.Sprintf("Maximum of %d partial receipts already recorded", cfg.MaxPartialReceipts))
	}
	if cfg.RequireReason && strings.TrimSpace(ctx.Reason) == "" {
		v.fail("", CodePartialReasonRequired, "A reason is required for partial receipts")
	}
}

func (v *validation) checkOverReceiving(item domain.ReceiptItem, rule domain.ToleranceRule) {
	variance := item.TotalReceived().Sub(item.OrderedQuantity)
	if !variance.IsPositive() {
		return
	}
	if !rule.Enabled {
		v.fail(item.ProductID, CodeOverReceiving,
			fmt.Sprintf("Total received quantity would exceed ordered quantity by %s", variance))
		return
	}
	ordered := item.OrderedQuantity
	tolerance := rule.Resolve(rule.Value, ordered)
	warning := rule.Resolve(rule.WarningThreshold, ordered)

	switch {
	case rule.BlockThreshold != nil && variance.GreaterThan(rule.Resolve(*rule.BlockThreshold, ordered)):
		v.fail(item.ProductID, CodeOverReceivingBlocked,
			fmt.Sprintf("Over-receiving of %s exceeds the hard limit of %s", variance, rule.Resolve(*rule.BlockThreshold, ordered)))
	case variance.GreaterThan(tolerance):
		if rule.RequireApproval {
			v.requireApproval(rule.ApprovalRoles)
			v.warn(item.ProductID, CodeOverReceivingApproval,
				fmt.Sprintf("Over-receiving of %s exceeds tolerance of %s and requires approval", variance, tolerance))
		} else if !rule.AutoAccept {
			v.fail(item.ProductID, CodeOverReceiving,
				fmt.Sprintf("Total received quantity would exceed ordered quantity beyond tolerance of %s", tolerance))
			return
		}
		v.adjust(item.ProductID, AdjustmentOverReceipt, variance, "received beyond tolerance")
	case variance.GreaterThan(warning):
		v.warn(item.ProductID, CodeOverReceivingWarning,
			fmt.Sprintf("Over-receiving of %s is within tolerance; verify the delivered count", variance))
		v.adjust(item.ProductID, AdjustmentOverReceipt, variance, "received within tolerance")
	default:
		v.adjust(item.ProductID, AdjustmentOverReceipt, variance, "received within tolerance")
	}
}

func (v *validation) checkUnderReceiving(item domain.ReceiptItem, rule domain.ToleranceRule) {
	shortfall := item.OrderedQuantity.Sub(item.TotalReceived())
	if !shortfall.IsPositive() || !rule.Enabled {
		return
	}
	ordered := item.OrderedQuantity
	tolerance := rule.Resolve(rule.Value, ordered)
	warning := rule.Resolve(rule.WarningThreshold, ordered)

	switch {
	case rule.BlockThreshold != nil && shortfall.GreaterThan(rule.Resolve(*rule.BlockThreshold, ordered)):
		v.fail(item.ProductID, CodeUnderReceivingBlocked,
			fmt.Sprintf("Shortfall of %s exceeds the hard limit of %s", shortfall, rule.Resolve(*rule.BlockThreshold, ordered)))
		return
	case shortfall.GreaterThan(tolerance):
		if rule.RequireApproval {
			v.requireApproval(rule.ApprovalRoles)
			v.warn(item.ProductID, CodeUnderReceivingApproval,
				fmt.Sprintf("Shortfall of %s exceeds tolerance of %s and requires approval", shortfall, tolerance))
		} else {
			v.warn(item.ProductID, CodeUnderReceiving,
				fmt.Sprintf("Shortfall of %s exceeds tolerance of %s", shortfall, tolerance))
		}
	case shortfall.GreaterThan(warning):
		v.warn(item.ProductID, CodeUnderReceivingWarning,
			fmt.Sprintf("Shortfall of %s is within tolerance", shortfall))
	}
	v.adjust(item.ProductID, AdjustmentShortReceipt, shortfall, "final receipt below ordered quantity")
}

func (v *validation) checkQuality(item domain.ReceiptItem, cfg domain.QualityConfig, actor domain.Actor) {
	if item.QualityCheck == nil {
		if actor.HasRole(cfg.AuthorizedRoles) {
			v.warn(item.ProductID, CodeQualityCheckRequired, "Quality check required before stocking")
		} else {
			v.fail(item.ProductID, CodeQualityCheckUnauthorized,
				fmt.Sprintf("role %q is not authorized to accept items without a quality check", actor.Role))
		}
		return
	}
	if item.QualityCheck.Passed {
		return
	}
	if cfg.DamagedItemHandling == domain.DamagedItemsConditionalAccept {
		v.warn(item.ProductID, CodeQualityConditionalAccept, "Quality check failed; item accepted conditionally")
		return
	}
	v.fail(item.ProductID, CodeQualityCheckFailed, "Quality check failed; item must be rejected")
}

func (v *validation) checkExpiry(item domain.ReceiptItem, cfg domain.ExpiryConfig, now time.Time) {
	if item.ExpiryDate == nil {
		if item.Condition == domain.ConditionExpired {
			v.expired(item.ProductID, cfg)
		}
		return
	}
	days := int(math.Floor(item.ExpiryDate.Sub(now).Hours() / 24))
	switch {
	case days < 0:
		v.expired(item.ProductID, cfg)
	case days <= cfg.NearExpiryDays:
		if cfg.NearExpiryRequiresApproval {
			v.requireApproval(cfg.ApprovalRoles)
			v.warn(item.ProductID, CodeNearExpiryApproval,
				fmt.Sprintf("Item expires in %d days and requires approval", days))
			return
		}
		v.warn(item.ProductID, CodeNearExpiry, fmt.Sprintf("Item expires in %d days", days))
	case days <= cfg.WarningDays:
		v.warn(item.ProductID, CodeExpirySoon, fmt.Sprintf("Item expires in %d days", days))
	}
}

func (v *validation) expired(productID string, cfg domain.ExpiryConfig) {
	if cfg.RejectExpiredItems {
		v.fail(productID, CodeExpiredItem, "Item has expired and cannot be received")
		return
	}
	v.warn(productID, CodeExpiredItem, "Item has expired")
}

func (v *validation) checkDamage(item domain.ReceiptItem, cfg domain.DamageConfig) {
	switch item.Condition {
	case domain.ConditionRejected:
		v.warn(item.ProductID, CodeItemsRejected, "Items marked rejected will not be stocked")
		v.adjust(item.ProductID, AdjustmentRejected, item.ReceivedQuantity, "rejected at receiving")
		return
	case domain.ConditionDamaged:
	default:
		return
	}
	report := item.DamageReport
	if report == nil {
		if cfg.RequireReport {
			v.fail(item.ProductID, CodeDamageReportRequired, "Damaged items require a damage report")
		}
		return
	}
	if cfg.RequirePhotos && len(report.Photos) == 0 {
		v.fail(item.ProductID, CodeDamagePhotosRequired, "Damage report requires at least one photo")
	}
	if len(cfg.Categories) > 0 && !containsFold(cfg.Categories, report.Category) {
		v.warn(item.ProductID, CodeUnknownDamageCategory, fmt.Sprintf("Unrecognized damage category %q", report.Category))
	}
}

func (v *validation) adjust(productID, kind string, qty decimal.Decimal, reason string) {
	v.adjustments = append(v.adjustments, domain.Adjustment{ProductID: productID, Type: kind, Quantity: qty, Reason: reason})
}

func containsRole(roles []domain.Role, role domain.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}
