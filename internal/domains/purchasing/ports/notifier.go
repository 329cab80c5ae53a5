package ports

import (
	"context"
	"time"
)

// NotificationLevel mirrors the severity of user-facing feedback.
type NotificationLevel string

const (
	NotificationSuccess NotificationLevel = "success"
	NotificationWarning NotificationLevel = "warning"
	NotificationError   NotificationLevel = "error"
)

// Notification is a fire-and-forget event about a purchase order.
type Notification struct {
	Event       string            `json:"event"`
	Level       NotificationLevel `json:"level"`
	OrderID     string            `json:"orderId"`
	OrderNumber string            `json:"orderNumber,omitempty"`
	Status      string            `json:"status,omitempty"`
	ActorID     string            `json:"actorId,omitempty"`
	Message     string            `json:"message"`
	OccurredAt  time.Time         `json:"occurredAt"`
}

// Notifier delivers notifications. Callers log failures and carry on.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NoopNotifier discards every notification.
type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, Notification) error { return nil }
