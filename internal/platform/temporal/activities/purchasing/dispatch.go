package purchasing

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/identity"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/application"
	types "github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/application/types"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/domain"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/ports"
)

const (
	// SendToSupplierActivityName moves an approved order to sent_to_supplier.
	SendToSupplierActivityName = "purchasing.activities.SendToSupplier"
	// NotifySupplierActivityName publishes the dispatch notification for the supplier channel.
	NotifySupplierActivityName = "purchasing.activities.NotifySupplier"

	// DispatchedEvent is the notification emitted once an order has left for the supplier.
	DispatchedEvent = "purchase_order.dispatched"
)

// Activities groups activities that operate on the purchasing bounded context.
type Activities struct {
	service  ports.Service
	notifier ports.Notifier
}

// NewActivities wires the purchasing collaborators into the Temporal activities bundle.
func NewActivities(service ports.Service, notifier ports.Notifier) *Activities {
	return &Activities{service: service, notifier: notifier}
}

// SendToSupplier transitions the order on behalf of the requesting actor. A retry that finds
// the order already sent returns it unchanged.
func (a *Activities) SendToSupplier(ctx context.Context, input ports.DispatchInput) (*types.OrderResult, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.service == nil {
		logger.Error("send to supplier activity not initialized", "orderId", input.OrderID)
		return nil, errors.New("send to supplier activity not initialized")
	}
	ctx = identity.WithActor(ctx, input.Actor)
	logger.Info("SendToSupplier activity started", "orderId", input.OrderID, "actorId", input.Actor.ID)
	result, err := a.service.SendToSupplier(ctx, types.ReasonInput{OrderID: input.OrderID, Reason: input.Reason})
	if err == nil {
		logger.Info("SendToSupplier activity completed", "orderId", input.OrderID)
		return result, nil
	}
	if errors.Is(err, application.ErrInvalidTransition) {
		current, getErr := a.service.GetOrder(ctx, types.OrderIdentifier{ID: input.OrderID})
		if getErr == nil && current.Status == domain.StatusSentToSupplier {
			logger.Info("SendToSupplier already applied in prior attempt", "orderId", input.OrderID)
			return &types.OrderResult{Order: current}, nil
		}
	}
	logger.Error("SendToSupplier activity failed", "orderId", input.OrderID, "error", err)
	return nil, toActivityError(err)
}

// NotifySupplierInput identifies the dispatched order.
type NotifySupplierInput struct {
	Order   *domain.PurchaseOrder
	ActorID string
}

// NotifySupplier publishes the dispatch notification once per workflow.
func (a *Activities) NotifySupplier(ctx context.Context, input NotifySupplierInput) error {
	logger := activity.GetLogger(ctx)
	if a == nil || input.Order == nil {
		return temporal.NewNonRetryableApplicationError("notify supplier activity not initialized", "transport", nil)
	}
	if a.notifier == nil {
		logger.Info("notifier not configured; skipping", "orderId", input.Order.ID)
		return nil
	}

	var hb notifyHeartbeat
	if activity.HasHeartbeatDetails(ctx) {
		_ = activity.GetHeartbeatDetails(ctx, &hb)
	}
	if hb.Completed {
		logger.Info("NotifySupplier already completed in prior attempt; skipping", "orderId", input.Order.ID)
		return nil
	}

	err := a.notifier.Notify(ctx, ports.Notification{
		Event:       DispatchedEvent,
		Level:       ports.NotificationSuccess,
		OrderID:     input.Order.ID,
		OrderNumber: input.Order.Number,
		Status:      string(input.Order.Status),
		ActorID:     input.ActorID,
		Message:     fmt.Sprintf("Purchase order %s sent to supplier %s", input.Order.Number, input.Order.SupplierID),
		OccurredAt:  activity.GetInfo(ctx).StartedTime.UTC(),
	})
	if err != nil {
		logger.Error("NotifySupplier failed", "orderId", input.Order.ID, "error", err)
		return err
	}
	activity.RecordHeartbeat(ctx, notifyHeartbeat{Completed: true})
	logger.Info("NotifySupplier activity completed", "orderId", input.Order.ID)
	return nil
}

type notifyHeartbeat struct {
	Completed bool
}

// toActivityError keeps the error kind across the workflow boundary. Only transport
// failures are retried.
func toActivityError(err error) error {
	kind := application.KindName(err)
	if kind == "transport" {
		return temporal.NewApplicationError(err.Error(), kind)
	}
	return temporal.NewNonRetryableApplicationError(err.Error(), kind, nil)
}
