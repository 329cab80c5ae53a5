package purchasing

import (
	"go.temporal.io/sdk/workflow"

	types "github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/application/types"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/ports"
	"github.com/Apurer/backoffice-purchasing/internal/platform/temporal/sequences"
)

const (
	// DispatchWorkflowName is the public identifier for registering the workflow.
	DispatchWorkflowName = "purchasing.workflows.Dispatch"
	// DispatchTaskQueue is the queue consumed by the worker processing purchasing workflows.
	DispatchTaskQueue = "PURCHASE_ORDER_DISPATCH"
)

// DispatchWorkflowInput captures the payload required to send an order to its supplier.
type DispatchWorkflowInput struct {
	Command ports.DispatchInput
	TraceID string
}

// DispatchWorkflow orchestrates the activities that send an order and notify the supplier.
func DispatchWorkflow(ctx workflow.Context, input DispatchWorkflowInput) (*types.OrderResult, error) {
	logger := workflow.GetLogger(ctx)
	orderID := input.Command.OrderID
	logger.Info("DispatchWorkflow started", withTraceID(input.TraceID, "orderId", orderID)...)
	result, err := sequences.RunDispatchSequence(ctx, input.Command)
	if err != nil {
		logger.Error("DispatchWorkflow failed", withTraceID(input.TraceID, "orderId", orderID, "error", err)...)
		return nil, err
	}
	logger.Info("DispatchWorkflow completed", withTraceID(input.TraceID, "orderId", orderID, "warnings", len(result.Warnings))...)
	return result, nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}

// RegisterOptions names the workflow for worker registration.
func RegisterOptions() workflow.RegisterOptions {
	return workflow.RegisterOptions{Name: DispatchWorkflowName}
}
