package rabbitmq

import (
	"fmt"
	"log/slog"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Connect dials the broker and opens one channel. The cleanup closes both.
func Connect(url string) (*amqp.Channel, func(), error) {
	if strings.TrimSpace(url) == "" {
		return nil, nil, fmt.Errorf("rabbitmq URL is empty")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	cleanup := func() {
		_ = ch.Close()
		_ = conn.Close()
	}
	return ch, cleanup, nil
}

// ConnectOptional behaves like Connect but logs and returns a nil channel when the broker
// is not configured or unreachable.
func ConnectOptional(url string, logger *slog.Logger) (*amqp.Channel, func()) {
	if strings.TrimSpace(url) == "" {
		if logger != nil {
			logger.Warn("RABBITMQ_URL not set, notifications go to the log")
		}
		return nil, func() {}
	}
	ch, cleanup, err := Connect(url)
	if err != nil {
		if logger != nil {
			logger.Warn("failed to connect to rabbitmq, notifications go to the log", slog.String("error", err.Error()))
		}
		return nil, func() {}
	}
	if logger != nil {
		logger.Info("rabbitmq connection established")
	}
	return ch, cleanup
}
