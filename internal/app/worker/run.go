package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.temporal.io/sdk/activity"
	temporalworker "go.temporal.io/sdk/worker"

	"github.com/Apurer/backoffice-purchasing/internal/app/api"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/identity"
	platformobservability "github.com/Apurer/backoffice-purchasing/internal/platform/observability"
	purchasingactivities "github.com/Apurer/backoffice-purchasing/internal/platform/temporal/activities/purchasing"
	purchasingworkflows "github.com/Apurer/backoffice-purchasing/internal/platform/temporal/workflows/purchasing"
)

// ErrNoSharedLedger is returned when the worker would run against a private in-memory ledger
// that never sees the orders created by the API.
var ErrNoSharedLedger = errors.New("worker requires a reachable POSTGRES_DSN")

// buildStack builds the activity collaborators and refuses a non-durable ledger.
func buildStack(ctx context.Context, cfg api.Config, instruments *platformobservability.Instruments) (*api.Stack, func(), error) {
	// Activities carry the requesting actor on their context.
	stack, cleanup, err := api.BuildStack(ctx, cfg, identity.Context{}, instruments)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build purchasing stack: %w", err)
	}
	if !stack.Durable {
		cleanup()
		return nil, nil, ErrNoSharedLedger
	}
	return stack, cleanup, nil
}

// Run starts the Temporal worker that executes purchasing workflows and activities.
func Run(ctx context.Context, cfg api.Config) error {
	instruments, shutdown, err := platformobservability.Init(ctx, cfg.Observability)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	stack, cleanup, err := buildStack(ctx, cfg, instruments)
	if err != nil {
		logger.Error("purchasing worker cannot start", slog.String("error", err.Error()))
		return err
	}
	defer cleanup()
	acts := purchasingactivities.NewActivities(stack.Service, stack.Notifier)

	temporalClient, err := api.ConnectTemporalClient(cfg, instruments)
	if err != nil {
		return fmt.Errorf("failed to create Temporal client: %w", err)
	}
	defer temporalClient.Close()

	w := temporalworker.New(temporalClient, purchasingworkflows.DispatchTaskQueue, temporalworker.Options{})
	w.RegisterWorkflowWithOptions(purchasingworkflows.DispatchWorkflow, purchasingworkflows.RegisterOptions())
	w.RegisterActivityWithOptions(acts.SendToSupplier, activity.RegisterOptions{Name: purchasingactivities.SendToSupplierActivityName})
	w.RegisterActivityWithOptions(acts.NotifySupplier, activity.RegisterOptions{Name: purchasingactivities.NotifySupplierActivityName})

	logger.Info("worker listening", slog.String("taskQueue", purchasingworkflows.DispatchTaskQueue), slog.String("namespace", cfg.TemporalNamespace))
	if err := w.Run(temporalworker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("Temporal worker stopped")
	return nil
}
