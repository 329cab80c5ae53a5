package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/Apurer/backoffice-purchasing/internal/app/api"
	purchasingpostgres "github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/persistence/postgres"
	purchasingredis "github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/redis"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/ports"
	platformpostgres "github.com/Apurer/backoffice-purchasing/internal/platform/postgres"
	platformredis "github.com/Apurer/backoffice-purchasing/internal/platform/redis"
)

func main() {
	_ = godotenv.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cfg, err := api.LoadConfig("purchasing-idempotency-purger")
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	cutoff := time.Now().Add(-cfg.IdempotencyTTL)

	var stores []ports.IdempotencyStore
	if db, cleanup := platformpostgres.ConnectOptional(ctx, cfg.PostgresDSN, logger); db != nil {
		defer cleanup()
		stores = append(stores, purchasingpostgres.NewIdempotencyStore(db))
	}
	if rdb, cleanup := platformredis.ConnectOptional(ctx, cfg.RedisAddr, logger); rdb != nil {
		defer cleanup()
		stores = append(stores, purchasingredis.NewIdempotencyStore(rdb, cfg.IdempotencyTTL))
	}
	if len(stores) == 0 {
		log.Fatal("neither POSTGRES_DSN nor REDIS_ADDR reachable; cannot purge idempotency keys")
	}

	for _, store := range stores {
		removed, err := store.PurgeBefore(ctx, cutoff)
		if err != nil {
			log.Fatalf("failed to purge idempotency keys: %v", err)
		}
		logger.Info("idempotency purge completed", slog.Int64("removed", removed), slog.Time("cutoff", cutoff))
	}
}
