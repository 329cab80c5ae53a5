package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/domain"
)

type fakeWriter struct {
	entries   []domain.AuditEntry
	movements []domain.StockMovement
	err       error
}

func (f *fakeWriter) AppendAuditEntry(_ context.Context, entry domain.AuditEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeWriter) AppendStockMovements(_ context.Context, movements []domain.StockMovement) error {
	if f.err != nil {
		return f.err
	}
	f.movements = append(f.movements, movements...)
	return nil
}

var fixedNow = time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)

func newTestRecorder(w Writer) *Recorder {
	seq := 0
	return NewRecorder(w,
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string {
			seq++
			return "entry-" + string(rune('0'+seq))
		}),
	)
}

func sampleOrder() *domain.PurchaseOrder {
	return &domain.PurchaseOrder{
		ID:     "po-1",
		Number: "PO-20240502-AAAAAA",
		Status: domain.StatusDraft,
		Items: []domain.PurchaseOrderItem{
			{ProductID: "A", SKU: "SKU-A", OrderedQuantity: decimal.NewFromInt(10)},
		},
	}
}

func TestRecord_AppendsStructuredDiff(t *testing.T) {
	w := &fakeWriter{}
	rec := newTestRecorder(w)
	before := sampleOrder()
	after := before.Clone()
	after.Status = domain.StatusPendingApproval

	entry, err := rec.Record(context.Background(), Entry{
		Before: before,
		After:  after,
		Action: domain.AuditStatusChanged,
		Actor:  domain.Actor{ID: "u-1", DisplayName: "Una"},
		Reason: "ready",
	})

	require.NoError(t, err)
	require.Len(t, w.entries, 1)
	require.Equal(t, entry, w.entries[0])
	require.Equal(t, "entry-1", entry.ID)
	require.Equal(t, fixedNow, entry.Timestamp)
	require.Equal(t, "PO-20240502-AAAAAA", entry.OrderNumber)
	require.Equal(t, []string{"status"}, entry.ChangedFields())
	require.Equal(t, "Una", entry.ActorName)
}

func TestRecord_WrapsWriterFailure(t *testing.T) {
	rec := newTestRecorder(&fakeWriter{err: errors.New("disk full")})

	_, err := rec.Record(context.Background(), Entry{After: sampleOrder(), Action: domain.AuditCreated})

	require.ErrorIs(t, err, ErrWriteFailed)
	require.ErrorContains(t, err, "disk full")
}

func TestRecord_RejectsUnknownAction(t *testing.T) {
	w := &fakeWriter{}
	rec := newTestRecorder(w)

	_, err := rec.Record(context.Background(), Entry{After: sampleOrder(), Action: "archived"})

	require.ErrorIs(t, err, ErrUnknownAction)
	require.Empty(t, w.entries)
}

func TestRecordStockMovements_SkipsLinesWithoutQuantity(t *testing.T) {
	w := &fakeWriter{}
	rec := newTestRecorder(w)

	movements, err := rec.RecordStockMovements(context.Background(), sampleOrder(), domain.Actor{ID: "wh-1"}, []MovementLine{
		{ProductID: "A", SKU: "SKU-A", Quantity: decimal.NewFromInt(4), Before: decimal.Zero, After: decimal.NewFromInt(4)},
		{ProductID: "B", SKU: "SKU-B", Quantity: decimal.Zero},
	})

	require.NoError(t, err)
	require.Len(t, movements, 1)
	require.Equal(t, w.movements, movements)
	require.Equal(t, domain.ConditionGood, movements[0].Condition)
	require.Equal(t, "PO-20240502-AAAAAA", movements[0].Reference)
	require.True(t, movements[0].QuantityAfter.Equal(decimal.NewFromInt(4)))
}
