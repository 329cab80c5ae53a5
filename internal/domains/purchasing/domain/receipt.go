package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Condition describes the state of goods in a receiving event.
type Condition string

const (
	ConditionGood     Condition = "good"
	ConditionDamaged  Condition = "damaged"
	ConditionExpired  Condition = "expired"
	ConditionRejected Condition = "rejected"
)

// IsValid reports whether the condition is known. Empty means good.
func (c Condition) IsValid() bool {
	switch c {
	case "", ConditionGood, ConditionDamaged, ConditionExpired, ConditionRejected:
		return true
	default:
		return false
	}
}

// QualityCheck records the outcome of an inspection.
type QualityCheck struct {
	Passed    bool
	CheckedBy string
	Notes     string
}

// DamageReport documents damaged goods.
type DamageReport struct {
	Category    string
	Description string
	Photos      []string
}

// ReceiptItem is a proposed receiving event for one line.
type ReceiptItem struct {
	ProductID          string
	ProductName        string
	SKU                string
	OrderedQuantity    decimal.Decimal
	ReceivedQuantity   decimal.Decimal
	PreviouslyReceived decimal.Decimal
	Condition          Condition
	QualityCheck       *QualityCheck
	ExpiryDate         *time.Time
	DamageReport       *DamageReport
}

// TotalReceived is the running total after this event.
func (r ReceiptItem) TotalReceived() decimal.Decimal {
	return r.PreviouslyReceived.Add(r.ReceivedQuantity)
}

// Issue is a single validation message addressed to a line or the whole receipt.
type Issue struct {
	ProductID string
	Code      string
	Message   string
}

// Adjustment is a quantity correction the validator recommends.
type Adjustment struct {
	ProductID string
	Type      string
	Quantity  decimal.Decimal
	Reason    string
}

// ReceivingValidation is the aggregate verdict on a receipt.
type ReceivingValidation struct {
	IsValid          bool
	CanProceed       bool
	RequiresApproval bool
	RequiredRoles    []Role
	Errors           []Issue
	Warnings         []Issue
	Adjustments      []Adjustment
}

// HasIssue reports whether an error or warning with the code exists.
func (v ReceivingValidation) HasIssue(code string) bool {
	for _, issue := range v.Errors {
		if issue.Code == code {
			return true
		}
	}
	for _, issue := range v.Warnings {
		if issue.Code == code {
			return true
		}
	}
	return false
}
