package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	types "github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/application/types"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/domain"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/ports"
)

const tracerName = "github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/observability/service"

// Service decorates the purchasing service with tracing, logging, and metrics.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wraps the core purchasing service.
func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return s
}

func (s *Service) CreateOrder(ctx context.Context, input types.CreateOrderInput) (*types.OrderResult, error) {
	ctx, span := s.tracer.Start(ctx, "PurchasingService.CreateOrder",
		trace.WithAttributes(attribute.String("supplier.id", input.SupplierID), attribute.Int("order.items", len(input.Items))))
	defer span.End()

	s.logInfo(ctx, "creating purchase order", slog.String("supplier.id", input.SupplierID))
	result, err := s.inner.CreateOrder(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to create purchase order", slog.String("supplier.id", input.SupplierID))
	}
	s.metrics.recordCreated(ctx)
	s.finishOrder(ctx, span, "purchase order created", result)
	return result, nil
}

func (s *Service) UpdateOrder(ctx context.Context, input types.UpdateOrderInput) (*types.OrderResult, error) {
	ctx, span := s.tracer.Start(ctx, "PurchasingService.UpdateOrder", trace.WithAttributes(attribute.String("order.id", input.ID)))
	defer span.End()

	s.logInfo(ctx, "updating purchase order", slog.String("order.id", input.ID))
	result, err := s.inner.UpdateOrder(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to update purchase order", slog.String("order.id", input.ID))
	}
	s.finishOrder(ctx, span, "purchase order updated", result)
	return result, nil
}

func (s *Service) GetOrder(ctx context.Context, input types.OrderIdentifier) (*domain.PurchaseOrder, error) {
	ctx, span := s.tracer.Start(ctx, "PurchasingService.GetOrder", trace.WithAttributes(attribute.String("order.id", input.ID)))
	defer span.End()

	result, err := s.inner.GetOrder(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load purchase order", slog.String("order.id", input.ID))
	}
	span.SetAttributes(attribute.String("order.status", string(result.Status)))
	return result, nil
}

func (s *Service) ListOrders(ctx context.Context, input types.ListOrdersInput) (*types.OrderPage, error) {
	ctx, span := s.tracer.Start(ctx, "PurchasingService.ListOrders",
		trace.WithAttributes(attribute.String("supplier.id", input.SupplierID), attribute.String("order.status", input.Status)))
	defer span.End()

	result, err := s.inner.ListOrders(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list purchase orders")
	}
	span.SetAttributes(attribute.Int("orders.total", result.Total), attribute.Int("orders.returned", len(result.Items)))
	return result, nil
}

func (s *Service) DeleteOrder(ctx context.Context, input types.OrderIdentifier) (*types.OrderResult, error) {
	ctx, span := s.tracer.Start(ctx, "PurchasingService.DeleteOrder", trace.WithAttributes(attribute.String("order.id", input.ID)))
	defer span.End()

	s.logInfo(ctx, "deleting purchase order", slog.String("order.id", input.ID))
	result, err := s.inner.DeleteOrder(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to delete purchase order", slog.String("order.id", input.ID))
	}
	s.finishOrder(ctx, span, "purchase order deleted", result)
	return result, nil
}

func (s *Service) ChangeStatus(ctx context.Context, input types.TransitionInput) (*types.OrderResult, error) {
	return s.transition(ctx, "PurchasingService.ChangeStatus", input.OrderID, func(ctx context.Context) (*types.OrderResult, error) {
		return s.inner.ChangeStatus(ctx, input)
	})
}

func (s *Service) SubmitForApproval(ctx context.Context, input types.ReasonInput) (*types.OrderResult, error) {
	return s.transition(ctx, "PurchasingService.SubmitForApproval", input.OrderID, func(ctx context.Context) (*types.OrderResult, error) {
		return s.inner.SubmitForApproval(ctx, input)
	})
}

func (s *Service) SendToSupplier(ctx context.Context, input types.ReasonInput) (*types.OrderResult, error) {
	return s.transition(ctx, "PurchasingService.SendToSupplier", input.OrderID, func(ctx context.Context) (*types.OrderResult, error) {
		return s.inner.SendToSupplier(ctx, input)
	})
}

func (s *Service) CancelOrder(ctx context.Context, input types.ReasonInput) (*types.OrderResult, error) {
	return s.transition(ctx, "PurchasingService.CancelOrder", input.OrderID, func(ctx context.Context) (*types.OrderResult, error) {
		return s.inner.CancelOrder(ctx, input)
	})
}

func (s *Service) CloseOrder(ctx context.Context, input types.ReasonInput) (*types.OrderResult, error) {
	return s.transition(ctx, "PurchasingService.CloseOrder", input.OrderID, func(ctx context.Context) (*types.OrderResult, error) {
		return s.inner.CloseOrder(ctx, input)
	})
}

func (s *Service) ProcessApproval(ctx context.Context, input types.ApprovalSubmission) (*types.OrderResult, error) {
	return s.transition(ctx, "PurchasingService.ProcessApproval", input.OrderID, func(ctx context.Context) (*types.OrderResult, error) {
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("approval.action", string(input.Action)))
		return s.inner.ProcessApproval(ctx, input)
	})
}

func (s *Service) ApprovalStatus(ctx context.Context, input types.OrderIdentifier) (*types.ApprovalDecision, error) {
	ctx, span := s.tracer.Start(ctx, "PurchasingService.ApprovalStatus", trace.WithAttributes(attribute.String("order.id", input.ID)))
	defer span.End()

	result, err := s.inner.ApprovalStatus(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to evaluate approval", slog.String("order.id", input.ID))
	}
	span.SetAttributes(
		attribute.Bool("approval.can_approve", result.CanApprove),
		attribute.Int("approval.required_level", result.RequiredLevel),
	)
	return result, nil
}

func (s *Service) ValidateReceipt(ctx context.Context, input types.ReceivingSubmission) (*domain.ReceivingValidation, error) {
	ctx, span := s.tracer.Start(ctx, "PurchasingService.ValidateReceipt",
		trace.WithAttributes(attribute.String("order.id", input.OrderID), attribute.Int("receipt.items", len(input.Items))))
	defer span.End()

	result, err := s.inner.ValidateReceipt(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to validate receipt", slog.String("order.id", input.OrderID))
	}
	span.SetAttributes(
		attribute.Bool("receipt.can_proceed", result.CanProceed),
		attribute.Int("receipt.errors", len(result.Errors)),
		attribute.Int("receipt.warnings", len(result.Warnings)),
	)
	return result, nil
}

func (s *Service) ReceiveItems(ctx context.Context, input types.ReceivingSubmission) (*types.ReceiptResult, error) {
	ctx, span := s.tracer.Start(ctx, "PurchasingService.ReceiveItems",
		trace.WithAttributes(
			attribute.String("order.id", input.OrderID),
			attribute.Int("receipt.items", len(input.Items)),
			attribute.Bool("receipt.partial", input.IsPartial),
		))
	defer span.End()

	s.logInfo(ctx, "receiving purchase order items", slog.String("order.id", input.OrderID), slog.Bool("partial", input.IsPartial))
	result, err := s.inner.ReceiveItems(ctx, input)
	if err != nil {
		s.metrics.recordRejectedReceipt(ctx)
		return nil, s.handleError(ctx, span, err, "failed to receive items", slog.String("order.id", input.OrderID))
	}
	span.SetAttributes(attribute.Bool("receipt.replayed", result.Replayed), attribute.Int("receipt.movements", len(result.Movements)))
	if !result.Replayed {
		s.metrics.recordReceipt(ctx, result.Order.Status)
	}
	s.metrics.recordWarnings(ctx, len(result.Warnings))
	s.logInfo(ctx, "purchase order items received",
		slog.String("order.id", result.Order.ID),
		slog.String("order.status", string(result.Order.Status)),
		slog.Bool("replayed", result.Replayed))
	return result, nil
}

func (s *Service) History(ctx context.Context, input types.HistoryInput) ([]domain.AuditEntry, error) {
	ctx, span := s.tracer.Start(ctx, "PurchasingService.History", trace.WithAttributes(attribute.String("order.id", input.OrderID)))
	defer span.End()

	result, err := s.inner.History(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load history", slog.String("order.id", input.OrderID))
	}
	span.SetAttributes(attribute.Int("audit.entries", len(result)))
	return result, nil
}

func (s *Service) AvailableTransitions(ctx context.Context, input types.OrderIdentifier) ([]domain.Status, error) {
	ctx, span := s.tracer.Start(ctx, "PurchasingService.AvailableTransitions", trace.WithAttributes(attribute.String("order.id", input.ID)))
	defer span.End()

	result, err := s.inner.AvailableTransitions(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list transitions", slog.String("order.id", input.ID))
	}
	return result, nil
}

func (s *Service) transition(ctx context.Context, name, orderID string, call func(context.Context) (*types.OrderResult, error)) (*types.OrderResult, error) {
	ctx, span := s.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	s.logInfo(ctx, "changing purchase order status", slog.String("order.id", orderID), slog.String("operation", name))
	result, err := call(ctx)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to change purchase order status",
			slog.String("order.id", orderID), slog.String("operation", name))
	}
	s.metrics.recordTransition(ctx, result.Order.Status)
	s.finishOrder(ctx, span, "purchase order status changed", result)
	return result, nil
}

func (s *Service) finishOrder(ctx context.Context, span trace.Span, msg string, result *types.OrderResult) {
	span.SetAttributes(attribute.String("order.status", string(result.Order.Status)), attribute.Int("result.warnings", len(result.Warnings)))
	s.metrics.recordWarnings(ctx, len(result.Warnings))
	s.logInfo(ctx, msg, slog.String("order.id", result.Order.ID), slog.String("order.status", string(result.Order.Status)))
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) logError(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.logError(ctx, msg, err, attrs...)
	return err
}

type serviceMetrics struct {
	ordersCreated    metric.Int64Counter
	transitions      metric.Int64Counter
	receipts         metric.Int64Counter
	rejectedReceipts metric.Int64Counter
	warnings         metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	ordersCreated, _ := m.Int64Counter("purchasing.service.orders_created", metric.WithDescription("Number of purchase orders created"))
	transitions, _ := m.Int64Counter("purchasing.service.transitions", metric.WithDescription("Number of status transitions by target status"))
	receipts, _ := m.Int64Counter("purchasing.service.receipts", metric.WithDescription("Number of receipts applied"))
	rejectedReceipts, _ := m.Int64Counter("purchasing.service.receipts_rejected", metric.WithDescription("Number of receipts refused"))
	warnings, _ := m.Int64Counter("purchasing.service.warnings", metric.WithDescription("Number of non-fatal warnings such as audit write failures"))
	return serviceMetrics{
		ordersCreated:    ordersCreated,
		transitions:      transitions,
		receipts:         receipts,
		rejectedReceipts: rejectedReceipts,
		warnings:         warnings,
	}
}

func (m serviceMetrics) recordCreated(ctx context.Context) {
	if m.ordersCreated != nil {
		m.ordersCreated.Add(ctx, 1)
	}
}

func (m serviceMetrics) recordTransition(ctx context.Context, status domain.Status) {
	if m.transitions != nil {
		m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("order.status", string(status))))
	}
}

func (m serviceMetrics) recordReceipt(ctx context.Context, status domain.Status) {
	if m.receipts != nil {
		m.receipts.Add(ctx, 1, metric.WithAttributes(attribute.String("order.status", string(status))))
	}
}

func (m serviceMetrics) recordRejectedReceipt(ctx context.Context) {
	if m.rejectedReceipts != nil {
		m.rejectedReceipts.Add(ctx, 1)
	}
}

func (m serviceMetrics) recordWarnings(ctx context.Context, n int) {
	if m.warnings != nil && n > 0 {
		m.warnings.Add(ctx, int64(n))
	}
}

var _ ports.Service = (*Service)(nil)
