package ports

import (
	"context"

	types "github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/application/types"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/domain"
)

// DispatchInput asks for an approved order to be sent to its supplier.
type DispatchInput struct {
	OrderID string
	Reason  string
	// Actor is carried explicitly so durable executions act on behalf of the requester.
	Actor domain.Actor
}

// DispatchOrchestrator exposes the durable send-to-supplier flow.
type DispatchOrchestrator interface {
	Dispatch(ctx context.Context, input DispatchInput) (*types.OrderResult, error)
}
