package api

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.temporal.io/sdk/client"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/notify"
	purchasingredis "github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/redis"
	platformobservability "github.com/Apurer/backoffice-purchasing/internal/platform/observability"
)

// Config carries environment-driven settings for the purchasing processes.
type Config struct {
	Port              string
	PostgresDSN       string
	AutoMigrate       bool
	RedisAddr         string
	RabbitMQURL       string
	RabbitMQExchange  string
	TemporalAddress   string
	TemporalNamespace string
	TemporalDisabled  bool
	JWTSecret         string
	IdempotencyTTL    time.Duration
	Observability     platformobservability.Settings
}

// LoadConfig reads environment variables, applies defaults, and validates basic constraints.
func LoadConfig(serviceName string) (Config, error) {
	cfg := Config{
		Port:              envDefault("PORT", "8080"),
		PostgresDSN:       strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		AutoMigrate:       isTruthy(os.Getenv("POSTGRES_AUTO_MIGRATE")),
		RedisAddr:         strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RabbitMQURL:       strings.TrimSpace(os.Getenv("RABBITMQ_URL")),
		RabbitMQExchange:  envDefault("RABBITMQ_EXCHANGE", notify.DefaultExchange),
		TemporalAddress:   envDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		TemporalNamespace: envDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		TemporalDisabled:  isTruthy(os.Getenv("TEMPORAL_DISABLED")),
		JWTSecret:         strings.TrimSpace(os.Getenv("JWT_SECRET")),
		IdempotencyTTL:    purchasingredis.DefaultTTL,
		Observability: platformobservability.Settings{
			ServiceName:  serviceName,
			Environment:  envDefault("ENVIRONMENT", "local"),
			OTLPEndpoint: strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
			OTLPInsecure: os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") != "0",
			LogLevel:     envDefault("LOG_LEVEL", "info"),
		},
	}
	if raw := strings.TrimSpace(os.Getenv("IDEMPOTENCY_TTL_HOURS")); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			return Config{}, fmt.Errorf("IDEMPOTENCY_TTL_HOURS must be a positive integer")
		}
		cfg.IdempotencyTTL = time.Duration(hours) * time.Hour
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return Config{}, fmt.Errorf("PORT must be numeric, got %q", cfg.Port)
	}
	return cfg, nil
}

func envDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func isTruthy(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "yes"
}
