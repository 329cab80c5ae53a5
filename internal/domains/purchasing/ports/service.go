package ports

import (
	"context"

	types "github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/application/types"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/domain"
)

// Service defines the purchase order lifecycle use cases exposed to adapters (inbound/driving port).
type Service interface {
	CreateOrder(ctx context.Context, input types.CreateOrderInput) (*types.OrderResult, error)
	UpdateOrder(ctx context.Context, input types.UpdateOrderInput) (*types.OrderResult, error)
	GetOrder(ctx context.Context, input types.OrderIdentifier) (*domain.PurchaseOrder, error)
	ListOrders(ctx context.Context, input types.ListOrdersInput) (*types.OrderPage, error)
	DeleteOrder(ctx context.Context, input types.OrderIdentifier) (*types.OrderResult, error)
	ChangeStatus(ctx context.Context, input types.TransitionInput) (*types.OrderResult, error)
	SubmitForApproval(ctx context.Context, input types.ReasonInput) (*types.OrderResult, error)
	SendToSupplier(ctx context.Context, input types.ReasonInput) (*types.OrderResult, error)
	CancelOrder(ctx context.Context, input types.ReasonInput) (*types.OrderResult, error)
	CloseOrder(ctx context.Context, input types.ReasonInput) (*types.OrderResult, error)
	ProcessApproval(ctx context.Context, input types.ApprovalSubmission) (*types.OrderResult, error)
	ApprovalStatus(ctx context.Context, input types.OrderIdentifier) (*types.ApprovalDecision, error)
	ValidateReceipt(ctx context.Context, input types.ReceivingSubmission) (*domain.ReceivingValidation, error)
	ReceiveItems(ctx context.Context, input types.ReceivingSubmission) (*types.ReceiptResult, error)
	History(ctx context.Context, input types.HistoryInput) ([]domain.AuditEntry, error)
	AvailableTransitions(ctx context.Context, input types.OrderIdentifier) ([]domain.Status, error)
}
