package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	types "github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/application/types"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/ports"
	purchasingactivities "github.com/Apurer/backoffice-purchasing/internal/platform/temporal/activities/purchasing"
)

// RunDispatchSequence sends an approved order to its supplier and then notifies. A notification
// that keeps failing does not undo the dispatch.
func RunDispatchSequence(ctx workflow.Context, input ports.DispatchInput) (*types.OrderResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("dispatch sequence started", "orderId", input.OrderID)
	sendOptions := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    5,
		},
	}
	notifyOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		HeartbeatTimeout:    10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    10,
		},
	}

	var result types.OrderResult
	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, sendOptions), purchasingactivities.SendToSupplierActivityName, input).Get(ctx, &result)
	if err != nil {
		logger.Error("dispatch sequence failed", "orderId", input.OrderID, "error", err)
		return nil, err
	}
	logger.Info("dispatch sequence sent order", "orderId", input.OrderID)

	notifyInput := purchasingactivities.NotifySupplierInput{Order: result.Order, ActorID: input.Actor.ID}
	if err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, notifyOptions), purchasingactivities.NotifySupplierActivityName, notifyInput).Get(ctx, nil); err != nil {
		logger.Warn("dispatch sequence notification failed", "orderId", input.OrderID, "error", err)
		result.Warnings = append(result.Warnings, "supplier notification failed: "+err.Error())
		return &result, nil
	}
	logger.Info("dispatch sequence notified supplier", "orderId", input.OrderID)
	return &result, nil
}
