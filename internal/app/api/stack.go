package api

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"
	"gorm.io/gorm"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/memory"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/notify"
	purchasingobs "github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/observability"
	purchasingpostgres "github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/persistence/postgres"
	purchasingredis "github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/redis"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/application"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/ports"
	"github.com/Apurer/backoffice-purchasing/internal/platform/migrations"
	platformobservability "github.com/Apurer/backoffice-purchasing/internal/platform/observability"
	platformpostgres "github.com/Apurer/backoffice-purchasing/internal/platform/postgres"
	platformrabbitmq "github.com/Apurer/backoffice-purchasing/internal/platform/rabbitmq"
	platformredis "github.com/Apurer/backoffice-purchasing/internal/platform/redis"
)

// Stack is the purchasing service plus the adapters it was built from.
type Stack struct {
	Service     ports.Service
	Notifier    ports.Notifier
	Idempotency ports.IdempotencyStore
	// Durable is false when orders live in process memory and cannot be shared.
	Durable bool
}

// BuildStack selects an adapter for every port from the configured backends. Missing or
// unreachable backends fall back to in-memory adapters with a warning.
func BuildStack(ctx context.Context, cfg Config, identity ports.Identity, instruments *platformobservability.Instruments) (*Stack, func(), error) {
	logger := effectiveLogger(instruments)
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	db, closeDB := platformpostgres.ConnectOptional(ctx, cfg.PostgresDSN, logger)
	cleanups = append(cleanups, closeDB)
	if db != nil && cfg.AutoMigrate {
		if err := migrations.Run(db); err != nil {
			cleanup()
			return nil, nil, err
		}
		logger.Info("purchasing schema migrated")
	}

	ledger, settings := buildLedger(db, logger)
	idempotency, closeIdem := buildIdempotencyStore(ctx, cfg, db, logger)
	cleanups = append(cleanups, closeIdem)
	notifier, closeNotifier := buildNotifier(cfg, logger)
	cleanups = append(cleanups, closeNotifier)

	core := application.NewService(ledger, identity,
		application.WithLogger(logger),
		application.WithSettings(settings),
		application.WithNotifier(notifier),
		application.WithIdempotencyStore(idempotency),
	)
	service := purchasingobs.New(
		core,
		purchasingobs.WithLogger(logger),
		purchasingobs.WithTracer(instruments.Tracer("internal.purchasing.application")),
		purchasingobs.WithMeter(instruments.Meter("internal.purchasing.application")),
	)
	return &Stack{Service: service, Notifier: notifier, Idempotency: idempotency, Durable: db != nil}, cleanup, nil
}

func buildLedger(db *gorm.DB, logger *slog.Logger) (ports.Ledger, ports.SettingsProvider) {
	if db == nil {
		return memory.NewLedger(), memory.NewSettings()
	}
	logger.Info("purchase order ledger configured with postgres")
	return purchasingpostgres.NewLedger(db), purchasingpostgres.NewSettings(db)
}

// buildIdempotencyStore prefers Redis, then Postgres, then memory.
func buildIdempotencyStore(ctx context.Context, cfg Config, db *gorm.DB, logger *slog.Logger) (ports.IdempotencyStore, func()) {
	if rdb, closeRedis := platformredis.ConnectOptional(ctx, cfg.RedisAddr, logger); rdb != nil {
		logger.Info("idempotency keys stored in redis", slog.Duration("ttl", cfg.IdempotencyTTL))
		return purchasingredis.NewIdempotencyStore(rdb, cfg.IdempotencyTTL), closeRedis
	}
	if db != nil {
		return purchasingpostgres.NewIdempotencyStore(db), func() {}
	}
	logger.Warn("idempotency keys kept in memory")
	return memory.NewIdempotencyStore(), func() {}
}

func buildNotifier(cfg Config, logger *slog.Logger) (ports.Notifier, func()) {
	ch, closeChannel := platformrabbitmq.ConnectOptional(cfg.RabbitMQURL, logger)
	if ch == nil {
		return notify.NewLogger(logger), closeChannel
	}
	publisher, err := notify.NewPublisher(ch, cfg.RabbitMQExchange)
	if err != nil {
		logger.Warn("rabbitmq publisher unavailable, notifications go to the log", slog.String("error", err.Error()))
		closeChannel()
		return notify.NewLogger(logger), func() {}
	}
	logger.Info("notifications published to rabbitmq", slog.String("exchange", cfg.RabbitMQExchange))
	return publisher, closeChannel
}

// ConnectTemporalClient dials Temporal with the OpenTelemetry tracing interceptor.
func ConnectTemporalClient(cfg Config, instruments *platformobservability.Instruments) (client.Client, error) {
	if cfg.TemporalDisabled {
		return nil, errors.New("temporal disabled via TEMPORAL_DISABLED env")
	}
	tracerOptions := temporalotel.TracerOptions{}
	if instruments != nil {
		tracerOptions.Tracer = instruments.Tracer("temporal-client")
	}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		return nil, err
	}
	options := client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    workerlog.NewStructuredLogger(effectiveLogger(instruments)),
	}
	options.Interceptors = append(options.Interceptors, tracingInterceptor)
	return client.Dial(options)
}

func effectiveLogger(instruments *platformobservability.Instruments) *slog.Logger {
	if instruments != nil && instruments.Logger != nil {
		return instruments.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
