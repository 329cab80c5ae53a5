package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/identity"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/application"
	types "github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/application/types"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/ports"
	purchasingactivities "github.com/Apurer/backoffice-purchasing/internal/platform/temporal/activities/purchasing"
	purchasingworkflows "github.com/Apurer/backoffice-purchasing/internal/platform/temporal/workflows/purchasing"
)

var (
	_ ports.DispatchOrchestrator = (*TemporalDispatch)(nil)
	_ ports.DispatchOrchestrator = (*InlineDispatch)(nil)
)

const dispatchOp = "Dispatch"

// TemporalDispatch starts the dispatch workflow on a Temporal cluster.
type TemporalDispatch struct {
	client    client.Client
	taskQueue string
}

// NewTemporalDispatch wires a Temporal client into the orchestrator.
func NewTemporalDispatch(c client.Client) *TemporalDispatch {
	return &TemporalDispatch{client: c, taskQueue: purchasingworkflows.DispatchTaskQueue}
}

// Dispatch runs the send-to-supplier workflow and waits for its result. One order has at
// most one running dispatch; a concurrent request joins the running execution.
func (o *TemporalDispatch) Dispatch(ctx context.Context, input ports.DispatchInput) (*types.OrderResult, error) {
	if o == nil || o.client == nil {
		return nil, errors.New("temporal dispatch not configured")
	}
	workflowID := DispatchWorkflowID(input.OrderID)
	options := client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: o.taskQueue,
	}
	run, err := o.client.ExecuteWorkflow(
		ctx,
		options,
		purchasingworkflows.DispatchWorkflowName,
		purchasingworkflows.DispatchWorkflowInput{Command: input, TraceID: workflowTraceID(ctx)},
	)
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if !errors.As(err, &alreadyStarted) {
			return nil, application.Rehydrate(dispatchOp, "transport", err.Error())
		}
		run = o.client.GetWorkflow(ctx, workflowID, alreadyStarted.RunId)
	}
	var result types.OrderResult
	if err := run.Get(ctx, &result); err != nil {
		return nil, translateWorkflowError(err)
	}
	return &result, nil
}

// DispatchWorkflowID is the deterministic workflow ID for an order's dispatch.
func DispatchWorkflowID(orderID string) string {
	return fmt.Sprintf("po-dispatch-%s", orderID)
}

// translateWorkflowError restores the error kind carried by the failing activity.
func translateWorkflowError(err error) error {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return application.Rehydrate(dispatchOp, appErr.Type(), appErr.Message())
	}
	return application.Rehydrate(dispatchOp, "transport", err.Error())
}

// InlineDispatch executes the service directly without Temporal, useful for tests or dev fallbacks.
type InlineDispatch struct {
	service  ports.Service
	notifier ports.Notifier
	now      func() time.Time
}

// NewInlineDispatch wraps the purchasing service for synchronous execution.
func NewInlineDispatch(service ports.Service, notifier ports.Notifier) *InlineDispatch {
	if notifier == nil {
		notifier = ports.NoopNotifier{}
	}
	return &InlineDispatch{service: service, notifier: notifier, now: time.Now}
}

// Dispatch sends the order and notifies the supplier channel. A failed notification
// becomes a warning.
func (o *InlineDispatch) Dispatch(ctx context.Context, input ports.DispatchInput) (*types.OrderResult, error) {
	if o == nil || o.service == nil {
		return nil, errors.New("inline dispatch not configured")
	}
	if input.Actor.ID != "" {
		ctx = identity.WithActor(ctx, input.Actor)
	}
	result, err := o.service.SendToSupplier(ctx, types.ReasonInput{OrderID: input.OrderID, Reason: input.Reason})
	if err != nil {
		return nil, err
	}
	order := result.Order
	err = o.notifier.Notify(ctx, ports.Notification{
		Event:       purchasingactivities.DispatchedEvent,
		Level:       ports.NotificationSuccess,
		OrderID:     order.ID,
		OrderNumber: order.Number,
		Status:      string(order.Status),
		ActorID:     input.Actor.ID,
		Message:     fmt.Sprintf("Purchase order %s sent to supplier %s", order.Number, order.SupplierID),
		OccurredAt:  o.now().UTC(),
	})
	if err != nil {
		result.Warnings = append(result.Warnings, "supplier notification failed: "+err.Error())
	}
	return result, nil
}

func workflowTraceID(ctx context.Context) string {
	spanCtx := oteltrace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}
