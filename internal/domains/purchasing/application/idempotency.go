package application

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	types "github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/application/types"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/domain"
)

// storedReceipt is the part of a receipt outcome kept with its idempotency key. The order
// itself is reloaded on replay so callers see its current state.
type storedReceipt struct {
	Validation domain.ReceivingValidation `json:"validation"`
	Movements  []domain.StockMovement     `json:"movements,omitempty"`
	Warnings   []string                   `json:"warnings,omitempty"`
}

func encodeReceipt(result *types.ReceiptResult) ([]byte, error) {
	return json.Marshal(storedReceipt{Validation: result.Validation, Movements: result.Movements, Warnings: result.Warnings})
}

// replayReceipt rebuilds the original outcome around the current order. Records written
// without a response replay with the order only.
func replayReceipt(order *domain.PurchaseOrder, response []byte) (*types.ReceiptResult, error) {
	result := &types.ReceiptResult{Order: order, Replayed: true}
	if len(response) == 0 {
		return result, nil
	}
	var stored storedReceipt
	if err := json.Unmarshal(response, &stored); err != nil {
		return nil, err
	}
	result.Validation = stored.Validation
	result.Movements = stored.Movements
	result.Warnings = stored.Warnings
	return result, nil
}

type normalizedReceipt struct {
	OrderID   string                  `json:"orderId"`
	IsPartial bool                    `json:"isPartial"`
	Reason    string                  `json:"reason"`
	Notes     string                  `json:"notes"`
	Items     []normalizedReceiptItem `json:"items"`
}

type normalizedReceiptItem struct {
	ProductID    string  `json:"productId"`
	Quantity     string  `json:"quantity"`
	Condition    string  `json:"condition"`
	QualityCheck *bool   `json:"qualityPassed,omitempty"`
	ExpiryDate   *string `json:"expiryDate,omitempty"`
	DamageReport *string `json:"damageCategory,omitempty"`
}

// FingerprintReceipt builds a deterministic hash of a receiving submission (excluding the idempotency key).
func FingerprintReceipt(input types.ReceivingSubmission) (string, error) {
	payload, err := json.Marshal(normalizeReceipt(input))
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

func normalizeReceipt(input types.ReceivingSubmission) normalizedReceipt {
	normalized := normalizedReceipt{
		OrderID:   input.OrderID,
		IsPartial: input.IsPartial,
		Reason:    input.Reason,
		Notes:     input.Notes,
		Items:     make([]normalizedReceiptItem, 0, len(input.Items)),
	}
	for _, item := range input.Items {
		n := normalizedReceiptItem{
			ProductID: item.ProductID,
			Quantity:  item.ReceivedQuantity.String(),
			Condition: string(item.Condition),
		}
		if item.QualityCheck != nil {
			passed := item.QualityCheck.Passed
			n.QualityCheck = &passed
		}
		if item.ExpiryDate != nil {
			date := item.ExpiryDate.UTC().Format("2006-01-02")
			n.ExpiryDate = &date
		}
		if item.DamageReport != nil {
			category := item.DamageReport.Category
			n.DamageReport = &category
		}
		normalized.Items = append(normalized.Items, n)
	}
	return normalized
}
