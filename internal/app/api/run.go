package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	purchasingserver "github.com/Apurer/backoffice-purchasing/go"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/identity"
	purchasingworkflows "github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/workflows"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/domain"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/ports"
	platformobservability "github.com/Apurer/backoffice-purchasing/internal/platform/observability"
)

// devActor acts for every request when no JWT secret is configured.
var devActor = domain.Actor{ID: "dev", DisplayName: "Local Developer", Role: domain.RoleAdmin}

// Run boots the purchasing HTTP API with observability, adapters, and workflows wired.
func Run(ctx context.Context, cfg Config) error {
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

	var ident ports.Identity = identity.Context{}
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, every request acts as the local developer")
		ident = identity.Static{Actor: devActor}
	}

	stack, cleanup, err := BuildStack(ctx, cfg, ident, instruments)
	if err != nil {
		return fmt.Errorf("failed to build purchasing stack: %w", err)
	}
	defer cleanup()

	var dispatch ports.DispatchOrchestrator = purchasingworkflows.NewInlineDispatch(stack.Service, stack.Notifier)
	if !stack.Durable {
		logger.Warn("orders are kept in memory, dispatching inline since a worker could not see them")
	} else if temporalClient, err := ConnectTemporalClient(cfg, instruments); err != nil {
		logger.Warn("Temporal workflows unavailable, dispatching inline", slog.String("error", err.Error()))
	} else {
		defer temporalClient.Close()
		dispatch = purchasingworkflows.NewTemporalDispatch(temporalClient)
		logger.Info("Temporal workflows enabled", slog.String("namespace", cfg.TemporalNamespace))
	}

	handlers := purchasingserver.ApiHandleFunctions{
		PurchaseOrderAPI: purchasingserver.NewPurchaseOrderAPI(stack.Service, ident, dispatch),
	}
	var middleware []gin.HandlerFunc
	if cfg.JWTSecret != "" {
		middleware = append(middleware, identity.NewVerifier(cfg.JWTSecret).Middleware(purchasingserver.RespondAuthError))
	}
	router := purchasingserver.NewRouterWithGinEngine(newEngine(cfg.Observability.ServiceName), handlers, middleware...)
	addr := ":" + cfg.Port
	logger.Info("Purchasing API listening", slog.String("addr", addr))
	if err := router.Run(addr); err != nil {
		logger.Error("Purchasing API server exited", slog.String("addr", addr), slog.String("error", err.Error()))
		return err
	}
	return nil
}

func newEngine(serviceName string) *gin.Engine {
	engine := gin.New()
	engine.Use(otelgin.Middleware(serviceName))
	return engine
}
