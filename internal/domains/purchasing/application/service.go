package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	types "github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/application/types"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/approval"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/audit"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/domain"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/ports"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/receiving"
)

const (
	defaultPageSize    = 50
	maxPageSize        = 200
	defaultHistorySize = 100
)

// Service orchestrates the purchase order lifecycle around the ledger.
type Service struct {
	ledger      ports.Ledger
	identity    ports.Identity
	settings    ports.SettingsProvider
	notifier    ports.Notifier
	idempotency ports.IdempotencyStore
	recorder    *audit.Recorder
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source for deterministic testing.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

func WithSettings(settings ports.SettingsProvider) Option {
	return func(s *Service) {
		if settings != nil {
			s.settings = settings
		}
	}
}

func WithNotifier(notifier ports.Notifier) Option {
	return func(s *Service) {
		if notifier != nil {
			s.notifier = notifier
		}
	}
}

func WithIdempotencyStore(store ports.IdempotencyStore) Option {
	return func(s *Service) {
		s.idempotency = store
	}
}

// NewService wires the orchestrator with its collaborators.
func NewService(ledger ports.Ledger, identity ports.Identity, opts ...Option) *Service {
	s := &Service{
		ledger:   ledger,
		identity: identity,
		settings: defaultSettings{},
		notifier: ports.NoopNotifier{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.recorder = audit.NewRecorder(ledger, audit.WithClock(s.now), audit.WithIDGenerator(s.newID))
	return s
}

type defaultSettings struct{}

func (defaultSettings) WorkflowConfig(context.Context) (domain.WorkflowConfig, error) {
	return domain.DefaultWorkflowConfig(), nil
}

// CreateOrder validates and stores a new draft order.
func (s *Service) CreateOrder(ctx context.Context, input types.CreateOrderInput) (*types.OrderResult, error) {
	const op = "CreateOrder"
	actor, err := s.actor(ctx, op)
	if err != nil {
		return nil, err
	}
	number := strings.TrimSpace(input.Number)
	if number == "" {
		number = s.generateNumber()
	}
	order, err := domain.NewPurchaseOrder(s.newID(), number, input.SupplierID, toItems(input.Items), input.Subtotal, input.Tax, input.Total)
	if err != nil {
		return nil, mapError(op, err)
	}
	now := s.now().UTC()
	order.SupplierName = input.SupplierName
	order.SupplierCategory = input.SupplierCategory
	order.PaymentTerms = input.PaymentTerms
	order.Currency = input.Currency
	order.ExpectedDate = input.ExpectedDate
	order.Notes = input.Notes
	order.CreatedBy = actor.ID
	order.CreatedAt = now
	order.UpdatedAt = now

	saved, err := s.ledger.CreateOrder(ctx, order)
	if err != nil {
		return nil, mapError(op, err)
	}
	result := &types.OrderResult{Order: saved}
	s.audit(ctx, result, audit.Entry{After: saved, Action: domain.AuditCreated, Actor: actor})
	s.notify(ctx, "purchase_order.created", ports.NotificationSuccess, saved, actor,
		fmt.Sprintf("Purchase order %s created", saved.Number))
	return result, nil
}

// UpdateOrder edits a draft order. Monetary totals are never corrected on the caller's behalf.
func (s *Service) UpdateOrder(ctx context.Context, input types.UpdateOrderInput) (*types.OrderResult, error) {
	const op = "UpdateOrder"
	actor, err := s.actor(ctx, op)
	if err != nil {
		return nil, err
	}
	current, err := s.ledger.GetOrder(ctx, input.ID)
	if err != nil {
		return nil, mapError(op, err)
	}
	if !current.IsEditable() {
		return nil, mapError(op, fmt.Errorf("%w: status is %s", domain.ErrOrderLocked, current.Status))
	}

	next := current.Clone()
	patch := ports.OrderPatch{ExpectedStatus: current.Status, ExpectedVersion: current.Version}
	if input.SupplierID != nil {
		supplierID := strings.TrimSpace(*input.SupplierID)
		next.SupplierID = supplierID
		patch.SupplierID = &supplierID
	}
	if input.SupplierName != nil {
		next.SupplierName = *input.SupplierName
		patch.SupplierName = input.SupplierName
	}
	if input.ExpectedDate != nil {
		next.ExpectedDate = input.ExpectedDate
		patch.ExpectedDate = input.ExpectedDate
	}
	if input.Notes != nil {
		next.Notes = *input.Notes
		patch.Notes = input.Notes
	}
	if input.Items != nil {
		if err := next.ReplaceItems(toItems(*input.Items)); err != nil {
			return nil, mapError(op, err)
		}
		items := next.Items
		patch.Items = &items
	}
	if input.Subtotal != nil || input.Tax != nil || input.Total != nil {
		subtotal, tax, total := next.Subtotal, next.Tax, next.Total
		if input.Subtotal != nil {
			subtotal = *input.Subtotal
		}
		if input.Tax != nil {
			tax = *input.Tax
		}
		if input.Total != nil {
			total = *input.Total
		}
		if err := next.SetAmounts(subtotal, tax, total); err != nil {
			return nil, mapError(op, err)
		}
		patch.Subtotal, patch.Tax, patch.Total = &subtotal, &tax, &total
	}
	if err := next.Validate(); err != nil {
		return nil, mapError(op, err)
	}

	updated, err := s.ledger.UpdateOrder(ctx, current.ID, patch)
	if err != nil {
		return nil, mapError(op, err)
	}
	result := &types.OrderResult{Order: updated}
	s.audit(ctx, result, audit.Entry{Before: current, After: updated, Action: domain.AuditUpdated, Actor: actor})
	s.notify(ctx, "purchase_order.updated", ports.NotificationSuccess, updated, actor,
		fmt.Sprintf("Purchase order %s updated", updated.Number))
	return result, nil
}

// GetOrder loads a single order.
func (s *Service) GetOrder(ctx context.Context, input types.OrderIdentifier) (*domain.PurchaseOrder, error) {
	order, err := s.ledger.GetOrder(ctx, input.ID)
	if err != nil {
		return nil, mapError("GetOrder", err)
	}
	return order, nil
}

// ListOrders filters by supplier and status and pages by limit/offset.
func (s *Service) ListOrders(ctx context.Context, input types.ListOrdersInput) (*types.OrderPage, error) {
	const op = "ListOrders"
	filter := ports.OrderFilter{SupplierID: strings.TrimSpace(input.SupplierID)}
	if strings.TrimSpace(input.Status) != "" {
		status, err := domain.NormalizeStatus(input.Status)
		if err != nil {
			return nil, mapError(op, err)
		}
		filter.Statuses = []domain.Status{status}
	}
	page := ports.Pagination{Limit: input.Limit, Offset: input.Offset}
	if page.Limit <= 0 {
		page.Limit = defaultPageSize
	}
	if page.Limit > maxPageSize {
		page.Limit = maxPageSize
	}
	if page.Offset < 0 {
		page.Offset = 0
	}
	orders, total, err := s.ledger.ListOrders(ctx, filter, page)
	if err != nil {
		return nil, mapError(op, err)
	}
	return &types.OrderPage{Items: orders, Total: total, Limit: page.Limit, Offset: page.Offset}, nil
}

// DeleteOrder removes a draft or cancelled order.
func (s *Service) DeleteOrder(ctx context.Context, input types.OrderIdentifier) (*types.OrderResult, error) {
	const op = "DeleteOrder"
	actor, err := s.actor(ctx, op)
	if err != nil {
		return nil, err
	}
	current, err := s.ledger.GetOrder(ctx, input.ID)
	if err != nil {
		return nil, mapError(op, err)
	}
	if !current.IsDeletable() {
		return nil, mapError(op, fmt.Errorf("%w: status is %s", domain.ErrNotDeletable, current.Status))
	}
	if err := s.ledger.DeleteOrder(ctx, current.ID); err != nil {
		return nil, mapError(op, err)
	}
	result := &types.OrderResult{Order: current}
	s.audit(ctx, result, audit.Entry{Before: current, Action: domain.AuditDeleted, Actor: actor})
	s.notify(ctx, "purchase_order.deleted", ports.NotificationSuccess, current, actor,
		fmt.Sprintf("Purchase order %s deleted", current.Number))
	return result, nil
}

// ChangeStatus applies a generic edge of the state machine. Approval, dispatch and
// receiving targets must go through their dedicated flows.
func (s *Service) ChangeStatus(ctx context.Context, input types.TransitionInput) (*types.OrderResult, error) {
	const op = "ChangeStatus"
	target, err := domain.NormalizeStatus(input.Status)
	if err != nil {
		return nil, mapError(op, err)
	}
	switch target {
	case domain.StatusApproved:
		return nil, newError(op, ErrInvalidTransition, errors.New("approve orders through the approval flow"))
	case domain.StatusSentToSupplier:
		return nil, newError(op, ErrInvalidTransition, errors.New("send orders through the dispatch flow"))
	case domain.StatusPartiallyReceived, domain.StatusFullyReceived:
		return nil, newError(op, ErrInvalidTransition, errors.New("receiving statuses are derived from receipts"))
	}
	actor, err := s.actor(ctx, op)
	if err != nil {
		return nil, err
	}
	current, err := s.ledger.GetOrder(ctx, input.OrderID)
	if err != nil {
		return nil, mapError(op, err)
	}
	if current.Status == domain.StatusPendingApproval && target == domain.StatusDraft {
		return nil, newError(op, ErrInvalidTransition, errors.New("reject orders through the approval flow"))
	}
	action := domain.AuditStatusChanged
	if target == domain.StatusCancelled {
		action = domain.AuditCancelled
	}
	return s.transitionFrom(ctx, op, current, target, actor, input.Reason, action, nil)
}

// SubmitForApproval moves a draft to pending approval and auto-approves it when the
// matching threshold allows.
func (s *Service) SubmitForApproval(ctx context.Context, input types.ReasonInput) (*types.OrderResult, error) {
	const op = "SubmitForApproval"
	actor, err := s.actor(ctx, op)
	if err != nil {
		return nil, err
	}
	cfg, err := s.config(ctx, op)
	if err != nil {
		return nil, err
	}
	result, err := s.transition(ctx, op, input.OrderID, domain.StatusPendingApproval, actor, input.Reason, domain.AuditStatusChanged, nil)
	if err != nil {
		return nil, err
	}
	resolver := approval.NewResolver(cfg.Approval)
	if !resolver.CanAutoApprove(result.Order) {
		return result, nil
	}
	threshold, _ := resolver.Threshold(result.Order.Total, approval.ScopeOf(result.Order))
	approved, err := s.transition(ctx, op, result.Order.ID, domain.StatusApproved, domain.SystemActor,
		"auto-approved by threshold "+threshold.Name, domain.AuditApproved, map[string]string{"threshold": threshold.ID})
	if err != nil {
		return nil, err
	}
	approved.Warnings = append(result.Warnings, approved.Warnings...)
	return approved, nil
}

// SendToSupplier marks an approved order as sent.
func (s *Service) SendToSupplier(ctx context.Context, input types.ReasonInput) (*types.OrderResult, error) {
	const op = "SendToSupplier"
	actor, err := s.actor(ctx, op)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, op, input.OrderID, domain.StatusSentToSupplier, actor, input.Reason, domain.AuditStatusChanged, nil)
}

// CancelOrder cancels an order from any non-terminal status that allows it.
func (s *Service) CancelOrder(ctx context.Context, input types.ReasonInput) (*types.OrderResult, error) {
	const op = "CancelOrder"
	actor, err := s.actor(ctx, op)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, op, input.OrderID, domain.StatusCancelled, actor, input.Reason, domain.AuditCancelled, nil)
}

// CloseOrder closes a fully received order.
func (s *Service) CloseOrder(ctx context.Context, input types.ReasonInput) (*types.OrderResult, error) {
	const op = "CloseOrder"
	actor, err := s.actor(ctx, op)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, op, input.OrderID, domain.StatusClosed, actor, input.Reason, domain.AuditStatusChanged, nil)
}

// ProcessApproval approves a pending order or rejects it back to draft.
func (s *Service) ProcessApproval(ctx context.Context, input types.ApprovalSubmission) (*types.OrderResult, error) {
	const op = "ProcessApproval"
	target, action := domain.StatusApproved, domain.AuditApproved
	switch input.Action {
	case types.ApprovalApprove:
	case types.ApprovalReject:
		target, action = domain.StatusDraft, domain.AuditRejected
	default:
		return nil, newError(op, ErrValidationFailed, fmt.Errorf("unknown approval action %q", input.Action),
			domain.Issue{Code: "invalid_action", Message: "action must be approve or reject"})
	}
	actor, err := s.actor(ctx, op)
	if err != nil {
		return nil, err
	}
	current, err := s.ledger.GetOrder(ctx, input.OrderID)
	if err != nil {
		return nil, mapError(op, err)
	}
	if current.Status != domain.StatusPendingApproval {
		return nil, mapError(op, &domain.TransitionError{From: current.Status, To: target})
	}
	cfg, err := s.config(ctx, op)
	if err != nil {
		return nil, err
	}
	decision := approval.NewResolver(cfg.Approval).ValidatePermissions(current, approval.Approver{
		Actor:             actor,
		ApprovalLevel:     input.ApprovalLevel,
		MaxApprovalAmount: input.MaxApprovalAmount,
	})
	if !decision.CanApprove {
		issues := make([]domain.Issue, 0, len(decision.Errors))
		for _, msg := range decision.Errors {
			issues = append(issues, domain.Issue{Code: "approval_denied", Message: msg})
		}
		return nil, newError(op, ErrPermissionDenied, errors.New(strings.Join(decision.Errors, "; ")), issues...)
	}
	metadata := map[string]string{
		"userLevel":     strconv.Itoa(decision.UserLevel),
		"requiredLevel": strconv.Itoa(decision.RequiredLevel),
	}
	if decision.Threshold != nil {
		metadata["threshold"] = decision.Threshold.ID
	}
	return s.transitionFrom(ctx, op, current, target, actor, input.Reason, action, metadata)
}

// ApprovalStatus reports whether the current actor may approve the order, without mutating it.
func (s *Service) ApprovalStatus(ctx context.Context, input types.OrderIdentifier) (*types.ApprovalDecision, error) {
	const op = "ApprovalStatus"
	actor, err := s.actor(ctx, op)
	if err != nil {
		return nil, err
	}
	order, err := s.ledger.GetOrder(ctx, input.ID)
	if err != nil {
		return nil, mapError(op, err)
	}
	cfg, err := s.config(ctx, op)
	if err != nil {
		return nil, err
	}
	resolver := approval.NewResolver(cfg.Approval)
	decision := resolver.ValidatePermissions(order, approval.Approver{Actor: actor})
	return &types.ApprovalDecision{
		OrderID:        order.ID,
		CanApprove:     decision.CanApprove && order.Status == domain.StatusPendingApproval,
		Errors:         decision.Errors,
		UserLevel:      decision.UserLevel,
		RequiredLevel:  decision.RequiredLevel,
		RequiredRoles:  resolver.RequiredApprovers(order),
		CanAutoApprove: resolver.CanAutoApprove(order),
	}, nil
}

// ValidateReceipt runs the receiving validator without mutating anything.
func (s *Service) ValidateReceipt(ctx context.Context, input types.ReceivingSubmission) (*domain.ReceivingValidation, error) {
	const op = "ValidateReceipt"
	actor, err := s.actor(ctx, op)
	if err != nil {
		return nil, err
	}
	current, err := s.ledger.GetOrder(ctx, input.OrderID)
	if err != nil {
		return nil, mapError(op, err)
	}
	validation, _, err := s.validateReceipt(ctx, op, current, actor, input)
	if err != nil {
		return nil, err
	}
	return &validation, nil
}

// ReceiveItems validates a receipt, folds the quantities into the order and derives the
// resulting receiving status.
func (s *Service) ReceiveItems(ctx context.Context, input types.ReceivingSubmission) (*types.ReceiptResult, error) {
	const op = "ReceiveItems"
	actor, err := s.actor(ctx, op)
	if err != nil {
		return nil, err
	}

	key := strings.TrimSpace(input.IdempotencyKey)
	var requestHash string
	if key != "" && s.idempotency != nil {
		if requestHash, err = FingerprintReceipt(input); err != nil {
			return nil, newError(op, ErrValidationFailed, err)
		}
		record, err := s.idempotency.Get(ctx, key)
		if err != nil {
			return nil, mapError(op, err)
		}
		if record != nil {
			if record.RequestHash != requestHash || record.OrderID != input.OrderID {
				return nil, mapError(op, ports.ErrIdempotencyConflict)
			}
			order, err := s.ledger.GetOrder(ctx, record.OrderID)
			if err != nil {
				return nil, mapError(op, err)
			}
			replayed, err := replayReceipt(order, record.Response)
			if err != nil {
				return nil, newError(op, ErrTransport, err)
			}
			return replayed, nil
		}
	}

	current, err := s.ledger.GetOrder(ctx, input.OrderID)
	if err != nil {
		return nil, mapError(op, err)
	}
	validation, receipt, err := s.validateReceipt(ctx, op, current, actor, input)
	if err != nil {
		return nil, err
	}
	if len(validation.Errors) > 0 {
		return nil, validationError(op, validation)
	}
	if validation.RequiresApproval && !actor.HasRole(validation.RequiredRoles) {
		e := newError(op, ErrPermissionDenied,
			fmt.Errorf("receipt requires approval by one of %v", validation.RequiredRoles),
			domain.Issue{Code: "approval_required", Message: fmt.Sprintf("role %q cannot approve this receipt", actor.Role)})
		e.Validation = &validation
		return nil, e
	}

	next := current.Clone()
	lines := make([]audit.MovementLine, 0, len(receipt))
	for _, item := range receipt {
		if !item.ReceivedQuantity.IsPositive() || item.Condition == domain.ConditionRejected {
			continue
		}
		before, after, err := next.AddReceived(item.ProductID, item.ReceivedQuantity)
		if err != nil {
			return nil, mapError(op, err)
		}
		lines = append(lines, audit.MovementLine{
			ProductID: item.ProductID,
			SKU:       item.SKU,
			Quantity:  item.ReceivedQuantity,
			Before:    before,
			After:     after,
			Condition: item.Condition,
		})
	}

	status := next.ReceivingStatus()
	if !domain.CanTransition(current.Status, status) {
		return nil, mapError(op, &domain.TransitionError{From: current.Status, To: status})
	}
	items := next.Items
	patch := ports.OrderPatch{ExpectedStatus: current.Status, ExpectedVersion: current.Version, Status: &status, Items: &items}
	action := domain.AuditPartiallyReceived
	if status == domain.StatusFullyReceived {
		receivedAt := s.now().UTC()
		patch.ReceivedDate = &receivedAt
		action = domain.AuditReceived
	}
	updated, err := s.ledger.UpdateOrder(ctx, current.ID, patch)
	if err != nil {
		return nil, mapError(op, err)
	}

	orderResult := &types.OrderResult{Order: updated}
	metadata := map[string]string{
		"isPartial":        strconv.FormatBool(input.IsPartial),
		"itemCount":        strconv.Itoa(len(lines)),
		"requiresApproval": strconv.FormatBool(validation.RequiresApproval),
	}
	if input.Notes != "" {
		metadata["notes"] = input.Notes
	}
	if key != "" {
		metadata["idempotencyKey"] = key
	}
	s.audit(ctx, orderResult, audit.Entry{
		Before: current, After: updated, Action: action, Actor: actor, Reason: input.Reason, Metadata: metadata,
	})
	movements, err := s.recorder.RecordStockMovements(ctx, updated, actor, lines)
	if err != nil {
		s.warn(ctx, orderResult, "stock movements could not be written", err, updated.ID)
	}
	result := &types.ReceiptResult{
		Order:      updated,
		Validation: validation,
		Movements:  movements,
		Warnings:   orderResult.Warnings,
	}
	if key != "" && s.idempotency != nil {
		s.rememberReceipt(ctx, key, requestHash, result)
	}
	s.notify(ctx, "purchase_order.received", ports.NotificationSuccess, updated, actor,
		fmt.Sprintf("Purchase order %s is %s", updated.Number, updated.Status))
	return result, nil
}

// History returns the audit trail newest first.
func (s *Service) History(ctx context.Context, input types.HistoryInput) ([]domain.AuditEntry, error) {
	const op = "History"
	if _, err := s.ledger.GetOrder(ctx, input.OrderID); err != nil {
		return nil, mapError(op, err)
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultHistorySize
	}
	entries, err := s.ledger.QueryAuditEntries(ctx, ports.AuditFilter{OrderID: input.OrderID, Actions: input.Actions, Limit: limit})
	if err != nil {
		return nil, mapError(op, err)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp.After(entries[j].Timestamp) })
	return entries, nil
}

// AvailableTransitions lists the statuses the order may move to next.
func (s *Service) AvailableTransitions(ctx context.Context, input types.OrderIdentifier) ([]domain.Status, error) {
	order, err := s.ledger.GetOrder(ctx, input.ID)
	if err != nil {
		return nil, mapError("AvailableTransitions", err)
	}
	return domain.ValidTransitions(order.Status), nil
}

func (s *Service) transition(ctx context.Context, op, orderID string, to domain.Status, actor domain.Actor, reason string, action domain.AuditAction, metadata map[string]string) (*types.OrderResult, error) {
	current, err := s.ledger.GetOrder(ctx, orderID)
	if err != nil {
		return nil, mapError(op, err)
	}
	return s.transitionFrom(ctx, op, current, to, actor, reason, action, metadata)
}

func (s *Service) transitionFrom(ctx context.Context, op string, current *domain.PurchaseOrder, to domain.Status, actor domain.Actor, reason string, action domain.AuditAction, metadata map[string]string) (*types.OrderResult, error) {
	next, err := domain.ExecuteTransition(current, to, domain.TransitionContext{Actor: actor, Reason: reason})
	if err != nil {
		return nil, mapError(op, err)
	}
	patch := ports.OrderPatch{ExpectedStatus: current.Status, ExpectedVersion: current.Version, Status: &next.Status}
	if to == domain.StatusApproved {
		approvedAt := s.now().UTC()
		patch.ApprovedBy = &next.ApprovedBy
		patch.ApprovedAt = &approvedAt
	}
	updated, err := s.ledger.UpdateOrder(ctx, current.ID, patch)
	if err != nil {
		return nil, mapError(op, err)
	}
	result := &types.OrderResult{Order: updated}
	s.audit(ctx, result, audit.Entry{
		Before: current, After: updated, Action: action, Actor: actor, Reason: reason, Metadata: metadata,
	})
	level := ports.NotificationSuccess
	if to == domain.StatusCancelled {
		level = ports.NotificationWarning
	}
	s.notify(ctx, "purchase_order.status_changed", level, updated, actor,
		fmt.Sprintf("Purchase order %s moved from %s to %s", updated.Number, current.Status, updated.Status))
	return result, nil
}

func (s *Service) validateReceipt(ctx context.Context, op string, order *domain.PurchaseOrder, actor domain.Actor, input types.ReceivingSubmission) (domain.ReceivingValidation, []domain.ReceiptItem, error) {
	if !order.Status.CanReceive() {
		return domain.ReceivingValidation{}, nil, mapError(op, &domain.TransitionError{From: order.Status, To: domain.StatusPartiallyReceived})
	}
	receipt := make([]domain.ReceiptItem, 0, len(input.Items))
	var unknown []domain.Issue
	for _, in := range input.Items {
		line, ok := order.Item(in.ProductID)
		if !ok {
			unknown = append(unknown, domain.Issue{
				ProductID: in.ProductID,
				Code:      "unknown_item",
				Message:   fmt.Sprintf("product %s is not on purchase order %s", in.ProductID, order.Number),
			})
			continue
		}
		receipt = append(receipt, domain.ReceiptItem{
			ProductID:          line.ProductID,
			ProductName:        line.ProductName,
			SKU:                line.SKU,
			OrderedQuantity:    line.OrderedQuantity,
			ReceivedQuantity:   in.ReceivedQuantity,
			PreviouslyReceived: line.ReceivedQuantity,
			Condition:          in.Condition,
			QualityCheck:       in.QualityCheck,
			ExpiryDate:         in.ExpiryDate,
			DamageReport:       in.DamageReport,
		})
	}
	if len(unknown) > 0 {
		return domain.ReceivingValidation{}, nil, newError(op, ErrValidationFailed, domain.ErrUnknownItem, unknown...)
	}
	cfg, err := s.config(ctx, op)
	if err != nil {
		return domain.ReceivingValidation{}, nil, err
	}
	partials, err := s.ledger.QueryAuditEntries(ctx, ports.AuditFilter{
		OrderID: order.ID,
		Actions: []domain.AuditAction{domain.AuditPartiallyReceived},
	})
	if err != nil {
		return domain.ReceivingValidation{}, nil, mapError(op, err)
	}
	validation := receiving.Validate(receipt, receiving.Context{
		Config:          cfg.Receiving,
		Actor:           actor,
		IsPartial:       input.IsPartial,
		Reason:          input.Reason,
		PartialReceipts: len(partials),
		Now:             s.now(),
	})
	return validation, receipt, nil
}

func (s *Service) rememberReceipt(ctx context.Context, key, requestHash string, result *types.ReceiptResult) {
	response, err := encodeReceipt(result)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "receipt outcome not encoded",
			slog.String("order.id", result.Order.ID), slog.String("error", err.Error()))
	}
	record := ports.IdempotencyRecord{Key: key, RequestHash: requestHash, OrderID: result.Order.ID, Response: response}
	if _, err := s.idempotency.Save(ctx, record); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "idempotency key not stored",
			slog.String("order.id", result.Order.ID), slog.String("error", err.Error()))
	}
}

func (s *Service) actor(ctx context.Context, op string) (domain.Actor, error) {
	if s.identity == nil {
		return domain.Actor{}, newError(op, ErrPermissionDenied, ports.ErrUnauthenticated)
	}
	actor, err := s.identity.CurrentActor(ctx)
	if err != nil {
		return domain.Actor{}, mapError(op, err)
	}
	return actor, nil
}

func (s *Service) config(ctx context.Context, op string) (domain.WorkflowConfig, error) {
	cfg, err := s.settings.WorkflowConfig(ctx)
	if err != nil {
		return domain.WorkflowConfig{}, mapError(op, err)
	}
	return cfg, nil
}

// audit records an entry; failure is logged and surfaced as a warning only.
func (s *Service) audit(ctx context.Context, result *types.OrderResult, entry audit.Entry) {
	if _, err := s.recorder.Record(ctx, entry); err != nil {
		orderID := ""
		if result.Order != nil {
			orderID = result.Order.ID
		}
		s.warn(ctx, result, "audit trail could not be written", err, orderID)
	}
}

func (s *Service) warn(ctx context.Context, result *types.OrderResult, msg string, err error, orderID string) {
	s.logger.LogAttrs(ctx, slog.LevelWarn, msg, slog.String("order.id", orderID), slog.String("error", err.Error()))
	result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", msg, err))
}

func (s *Service) notify(ctx context.Context, event string, level ports.NotificationLevel, order *domain.PurchaseOrder, actor domain.Actor, msg string) {
	err := s.notifier.Notify(ctx, ports.Notification{
		Event:       event,
		Level:       level,
		OrderID:     order.ID,
		OrderNumber: order.Number,
		Status:      string(order.Status),
		ActorID:     actor.ID,
		Message:     msg,
		OccurredAt:  s.now().UTC(),
	})
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "notification not delivered",
			slog.String("order.id", order.ID), slog.String("event", event), slog.String("error", err.Error()))
	}
}

func (s *Service) generateNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return fmt.Sprintf("PO-%s-%s", s.now().UTC().Format("20060102"), suffix)
}

func toItems(inputs []types.ItemInput) []domain.PurchaseOrderItem {
	items := make([]domain.PurchaseOrderItem, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, domain.PurchaseOrderItem{
			ProductID:       in.ProductID,
			ProductName:     in.ProductName,
			SKU:             in.SKU,
			ProductCategory: in.ProductCategory,
			OrderedQuantity: in.OrderedQuantity,
			UnitCost:        in.UnitCost,
		})
	}
	return items
}

var _ ports.Service = (*Service)(nil)
