package notify

import (
	"context"
	"log/slog"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/ports"
)

// Logger writes notifications to slog. It is the fallback when no broker is configured.
type Logger struct {
	logger *slog.Logger
}

var _ ports.Notifier = (*Logger)(nil)

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

func (l *Logger) Notify(ctx context.Context, n ports.Notification) error {
	level := slog.LevelInfo
	switch n.Level {
	case ports.NotificationWarning:
		level = slog.LevelWarn
	case ports.NotificationError:
		level = slog.LevelError
	}
	l.logger.LogAttrs(ctx, level, n.Message,
		slog.String("event", n.Event),
		slog.String("order.id", n.OrderID),
		slog.String("order.number", n.OrderNumber),
		slog.String("order.status", n.Status),
		slog.String("actor.id", n.ActorID),
	)
	return nil
}
