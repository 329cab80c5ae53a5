package purchasing

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/identity"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/memory"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/application"
	types "github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/application/types"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/domain"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/ports"
	purchasingactivities "github.com/Apurer/backoffice-purchasing/internal/platform/temporal/activities/purchasing"
)

var (
	buyer   = domain.Actor{ID: "u-buyer", Role: domain.RolePurchaser}
	manager = domain.Actor{ID: "u-mgr", Role: domain.RoleManager}
)

type failingNotifier struct{ calls int }

func (f *failingNotifier) Notify(context.Context, ports.Notification) error {
	f.calls++
	return errors.New("broker unavailable")
}

type countingNotifier struct{ events []ports.Notification }

func (c *countingNotifier) Notify(_ context.Context, n ports.Notification) error {
	c.events = append(c.events, n)
	return nil
}

func approvedOrder(t *testing.T, svc ports.Service) *domain.PurchaseOrder {
	t.Helper()
	buyerCtx := identity.WithActor(context.Background(), buyer)
	created, err := svc.CreateOrder(buyerCtx, types.CreateOrderInput{
		SupplierID: "sup-1",
		Items: []types.ItemInput{
			{ProductID: "A", OrderedQuantity: decimal.NewFromInt(2), UnitCost: decimal.NewFromInt(50)},
		},
		Subtotal: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	_, err = svc.SubmitForApproval(buyerCtx, types.ReasonInput{OrderID: created.Order.ID})
	require.NoError(t, err)
	_, err = svc.ProcessApproval(identity.WithActor(context.Background(), manager),
		types.ApprovalSubmission{OrderID: created.Order.ID, Action: types.ApprovalApprove})
	require.NoError(t, err)
	return created.Order
}

func newEnv(t *testing.T, svc ports.Service, notifier ports.Notifier) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	acts := purchasingactivities.NewActivities(svc, notifier)
	env.RegisterWorkflowWithOptions(DispatchWorkflow, RegisterOptions())
	env.RegisterActivityWithOptions(acts.SendToSupplier, activity.RegisterOptions{Name: purchasingactivities.SendToSupplierActivityName})
	env.RegisterActivityWithOptions(acts.NotifySupplier, activity.RegisterOptions{Name: purchasingactivities.NotifySupplierActivityName})
	return env
}

func newService() ports.Service {
	return application.NewService(memory.NewLedger(), identity.Context{}, application.WithSettings(memory.NewSettings()))
}

func TestDispatchWorkflow_SendsAndNotifies(t *testing.T) {
	svc := newService()
	order := approvedOrder(t, svc)
	notifier := &countingNotifier{}
	env := newEnv(t, svc, notifier)

	env.ExecuteWorkflow(DispatchWorkflowName, DispatchWorkflowInput{
		Command: ports.DispatchInput{OrderID: order.ID, Actor: buyer},
		TraceID: "trace-1",
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	var result types.OrderResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, domain.StatusSentToSupplier, result.Order.Status)
	require.Empty(t, result.Warnings)
	require.Len(t, notifier.events, 1)
	require.Equal(t, purchasingactivities.DispatchedEvent, notifier.events[0].Event)
	require.Equal(t, "u-buyer", notifier.events[0].ActorID)
}

func TestDispatchWorkflow_NotificationFailureBecomesWarning(t *testing.T) {
	svc := newService()
	order := approvedOrder(t, svc)
	env := newEnv(t, svc, &failingNotifier{})

	env.ExecuteWorkflow(DispatchWorkflowName, DispatchWorkflowInput{
		Command: ports.DispatchInput{OrderID: order.ID, Actor: buyer},
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	var result types.OrderResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, domain.StatusSentToSupplier, result.Order.Status)
	require.Len(t, result.Warnings, 1)
}

func TestDispatchWorkflow_DraftOrderFailsWithoutRetry(t *testing.T) {
	svc := newService()
	created, err := svc.CreateOrder(identity.WithActor(context.Background(), buyer), types.CreateOrderInput{
		SupplierID: "sup-1",
		Items:      []types.ItemInput{{ProductID: "A", OrderedQuantity: decimal.NewFromInt(1), UnitCost: decimal.NewFromInt(5)}},
		Subtotal:   decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	env := newEnv(t, svc, &countingNotifier{})

	env.ExecuteWorkflow(DispatchWorkflowName, DispatchWorkflowInput{
		Command: ports.DispatchInput{OrderID: created.Order.ID, Actor: buyer},
	})

	require.True(t, env.IsWorkflowCompleted())
	wfErr := env.GetWorkflowError()
	require.Error(t, wfErr)
	var appErr *temporal.ApplicationError
	require.ErrorAs(t, wfErr, &appErr)
	require.Equal(t, "invalid_transition", appErr.Type())
	require.True(t, appErr.NonRetryable())
}

func TestDispatchWorkflow_RetriesTransportFailures(t *testing.T) {
	notifier := &countingNotifier{}
	env := newEnv(t, newService(), notifier)
	sent := &types.OrderResult{Order: &domain.PurchaseOrder{ID: "po-1", Number: "PO-1", Status: domain.StatusSentToSupplier}}
	env.OnActivity(purchasingactivities.SendToSupplierActivityName, mock.Anything, mock.Anything).
		Return(nil, temporal.NewApplicationError("ledger unreachable", "transport")).Once()
	env.OnActivity(purchasingactivities.SendToSupplierActivityName, mock.Anything, mock.Anything).
		Return(sent, nil).Once()

	env.ExecuteWorkflow(DispatchWorkflowName, DispatchWorkflowInput{
		Command: ports.DispatchInput{OrderID: "po-1", Actor: buyer},
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	var result types.OrderResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, "po-1", result.Order.ID)
	require.Len(t, notifier.events, 1)
	require.Equal(t, "po-1", notifier.events[0].OrderID)
	env.AssertExpectations(t)
}
