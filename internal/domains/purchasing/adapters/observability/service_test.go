package observability

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/identity"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/memory"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/application"
	types "github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/application/types"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/domain"
)

func newDecorated(t *testing.T) (*tracetest.SpanRecorder, *sdkmetric.ManualReader, *Service) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	core := application.NewService(memory.NewLedger(), identity.Static{Actor: domain.Actor{ID: "u-buyer", Role: domain.RolePurchaser}})
	svc := New(core, WithTracer(tp.Tracer("test")), WithMeter(mp.Meter("test")))
	return recorder, reader, svc.(*Service)
}

func TestService_TracesSuccessfulCalls(t *testing.T) {
	recorder, reader, svc := newDecorated(t)
	ctx := context.Background()

	created, err := svc.CreateOrder(ctx, types.CreateOrderInput{
		SupplierID: "sup-1",
		Items:      []types.ItemInput{{ProductID: "A", OrderedQuantity: decimal.NewFromInt(1), UnitCost: decimal.NewFromInt(5)}},
		Subtotal:   decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	_, err = svc.SubmitForApproval(ctx, types.ReasonInput{OrderID: created.Order.ID})
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "PurchasingService.CreateOrder", spans[0].Name())
	assert.Equal(t, "PurchasingService.SubmitForApproval", spans[1].Name())
	assert.Equal(t, codes.Unset, spans[1].Status().Code)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names["purchasing.service.orders_created"])
	assert.True(t, names["purchasing.service.transitions"])
}

func TestService_MarksSpanOnError(t *testing.T) {
	recorder, _, svc := newDecorated(t)

	_, err := svc.GetOrder(context.Background(), types.OrderIdentifier{ID: "missing"})

	require.ErrorIs(t, err, application.ErrNotFound)
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}
