// Package audit appends the immutable history of purchase order mutations.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/domain"
)

var (
	// ErrWriteFailed wraps any failure to persist audit data.
	ErrWriteFailed   = errors.New("audit write failed")
	ErrUnknownAction = errors.New("unknown audit action")
)

// Writer is the append-only sink for audit data.
type Writer interface {
	AppendAuditEntry(ctx context.Context, entry domain.AuditEntry) error
	AppendStockMovements(ctx context.Context, movements []domain.StockMovement) error
}

// Entry describes one mutation. Before is nil on creation and After is nil on deletion.
type Entry struct {
	Before   *domain.PurchaseOrder
	After    *domain.PurchaseOrder
	Action   domain.AuditAction
	Actor    domain.Actor
	Reason   string
	Metadata map[string]string
}

// MovementLine is the quantity folded into one order line by a receipt.
type MovementLine struct {
	ProductID string
	SKU       string
	Quantity  decimal.Decimal
	Before    decimal.Decimal
	After     decimal.Decimal
	Condition domain.Condition
}

// Recorder timestamps and appends audit entries and stock movements.
type Recorder struct {
	writer Writer
	now    func() time.Time
	newID  func() string
}

type Option func(*Recorder)

// WithClock overrides the time source for deterministic testing.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithIDGenerator overrides entry id generation.
func WithIDGenerator(gen func() string) Option {
	return func(r *Recorder) {
		if gen != nil {
			r.newID = gen
		}
	}
}

func NewRecorder(writer Writer, opts ...Option) *Recorder {
	r := &Recorder{writer: writer, now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Record appends one audit entry stamped at write time.
func (r *Recorder) Record(ctx context.Context, e Entry) (domain.AuditEntry, error) {
	if !e.Action.IsValid() {
		return domain.AuditEntry{}, fmt.Errorf("%w: %w: %q", ErrWriteFailed, ErrUnknownAction, e.Action)
	}
	subject := e.After
	if subject == nil {
		subject = e.Before
	}
	if subject == nil {
		return domain.AuditEntry{}, fmt.Errorf("%w: %w", ErrWriteFailed, domain.ErrNilOrder)
	}
	entry := domain.AuditEntry{
		ID:          r.newID(),
		OrderID:     subject.ID,
		OrderNumber: subject.Number,
		Action:      e.Action,
		ActorID:     e.Actor.ID,
		ActorName:   e.Actor.DisplayName,
		Timestamp:   r.now().UTC(),
		Changes:     domain.Diff(e.Before, e.After),
		Reason:      e.Reason,
		Metadata:    copyMetadata(e.Metadata),
	}
	if r.writer == nil {
		return entry, fmt.Errorf("%w: no audit writer configured", ErrWriteFailed)
	}
	if err := r.writer.AppendAuditEntry(ctx, entry); err != nil {
		return entry, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return entry, nil
}

// RecordStockMovements fans out one movement per line that actually received goods.
func (r *Recorder) RecordStockMovements(ctx context.Context, order *domain.PurchaseOrder, actor domain.Actor, lines []MovementLine) ([]domain.StockMovement, error) {
	if order == nil {
		return nil, fmt.Errorf("%w: %w", ErrWriteFailed, domain.ErrNilOrder)
	}
	at := r.now().UTC()
	movements := make([]domain.StockMovement, 0, len(lines))
	for _, line := range lines {
		if !line.Quantity.IsPositive() {
			continue
		}
		condition := line.Condition
		if condition == "" {
			condition = domain.ConditionGood
		}
		movements = append(movements, domain.StockMovement{
			ID:             r.newID(),
			OrderID:        order.ID,
			Reference:      order.Number,
			ProductID:      line.ProductID,
			SKU:            line.SKU,
			Quantity:       line.Quantity,
			QuantityBefore: line.Before,
			QuantityAfter:  line.After,
			Condition:      condition,
			ActorID:        actor.ID,
			Timestamp:      at,
		})
	}
	if len(movements) == 0 {
		return nil, nil
	}
	if r.writer == nil {
		return movements, fmt.Errorf("%w: no audit writer configured", ErrWriteFailed)
	}
	if err := r.writer.AppendStockMovements(ctx, movements); err != nil {
		return movements, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return movements, nil
}

func copyMetadata(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
