package purchasingserver

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/http/mapper"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/identity"
	types "github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/application/types"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/ports"
)

// IdempotencyKeyHeader carries the client key for receiving submissions.
const IdempotencyKeyHeader = "Idempotency-Key"

// PurchaseOrderAPI wires HTTP transport with the purchasing service and dispatch orchestration.
type PurchaseOrderAPI struct {
	service  ports.Service
	actors   ports.Identity
	dispatch ports.DispatchOrchestrator
}

// NewPurchaseOrderAPI creates a PurchaseOrderAPI. actors must be the identity the service
// resolves callers with; a nil value reads the actor placed on the request context.
// A nil dispatch sends orders through the service directly.
func NewPurchaseOrderAPI(service ports.Service, actors ports.Identity, dispatch ports.DispatchOrchestrator) PurchaseOrderAPI {
	if actors == nil {
		actors = identity.Context{}
	}
	return PurchaseOrderAPI{service: service, actors: actors, dispatch: dispatch}
}

// Post /v1/purchase-orders
// Create a draft purchase order
func (api *PurchaseOrderAPI) CreateOrder(c *gin.Context) {
	var payload mapper.CreateOrder
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadRequest(c, err)
		return
	}
	result, err := api.service.CreateOrder(c.Request.Context(), mapper.ToCreateInput(payload))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mapper.FromOrderResult(result))
}

// Get /v1/purchase-orders
// List purchase orders by supplier and status
func (api *PurchaseOrderAPI) ListOrders(c *gin.Context) {
	limit, ok := parseIntQuery(c, "limit")
	if !ok {
		return
	}
	offset, ok := parseIntQuery(c, "offset")
	if !ok {
		return
	}
	page, err := api.service.ListOrders(c.Request.Context(), types.ListOrdersInput{
		SupplierID: c.Query("supplierId"),
		Status:     c.Query("status"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromOrderPage(page))
}

// Get /v1/purchase-orders/:orderId
// Find purchase order by ID
func (api *PurchaseOrderAPI) GetOrder(c *gin.Context) {
	order, err := api.service.GetOrder(c.Request.Context(), types.OrderIdentifier{ID: c.Param("orderId")})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromOrder(order))
}

// Patch /v1/purchase-orders/:orderId
// Edit a draft purchase order
func (api *PurchaseOrderAPI) UpdateOrder(c *gin.Context) {
	var payload mapper.UpdateOrder
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadRequest(c, err)
		return
	}
	result, err := api.service.UpdateOrder(c.Request.Context(), mapper.ToUpdateInput(c.Param("orderId"), payload))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromOrderResult(result))
}

// Delete /v1/purchase-orders/:orderId
// Deletes a draft or cancelled purchase order
func (api *PurchaseOrderAPI) DeleteOrder(c *gin.Context) {
	result, err := api.service.DeleteOrder(c.Request.Context(), types.OrderIdentifier{ID: c.Param("orderId")})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromOrderResult(result))
}

// Post /v1/purchase-orders/:orderId/status
// Moves the order along a generic lifecycle edge
func (api *PurchaseOrderAPI) ChangeStatus(c *gin.Context) {
	var payload mapper.StatusChange
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadRequest(c, err)
		return
	}
	result, err := api.service.ChangeStatus(c.Request.Context(), types.TransitionInput{
		OrderID: c.Param("orderId"),
		Status:  payload.Status,
		Reason:  payload.Reason,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromOrderResult(result))
}

// Post /v1/purchase-orders/:orderId/submit
func (api *PurchaseOrderAPI) SubmitForApproval(c *gin.Context) {
	api.namedTransition(c, api.service.SubmitForApproval)
}

// Post /v1/purchase-orders/:orderId/send
// Sends an approved order to its supplier through the dispatch orchestrator
func (api *PurchaseOrderAPI) SendToSupplier(c *gin.Context) {
	if api.dispatch == nil {
		api.namedTransition(c, api.service.SendToSupplier)
		return
	}
	reason, ok := bindReason(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	actor, err := api.actors.CurrentActor(ctx)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	result, err := api.dispatch.Dispatch(ctx, ports.DispatchInput{
		OrderID: c.Param("orderId"),
		Reason:  reason,
		Actor:   actor,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromOrderResult(result))
}

// Post /v1/purchase-orders/:orderId/cancel
func (api *PurchaseOrderAPI) CancelOrder(c *gin.Context) {
	api.namedTransition(c, api.service.CancelOrder)
}

// Post /v1/purchase-orders/:orderId/close
func (api *PurchaseOrderAPI) CloseOrder(c *gin.Context) {
	api.namedTransition(c, api.service.CloseOrder)
}

// Post /v1/purchase-orders/:orderId/approval
// Approves or rejects a pending order
func (api *PurchaseOrderAPI) ProcessApproval(c *gin.Context) {
	var payload mapper.Approval
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadRequest(c, err)
		return
	}
	action := strings.ToLower(strings.TrimSpace(payload.Action))
	if action != string(types.ApprovalApprove) && action != string(types.ApprovalReject) {
		respondBadRequest(c, fmt.Errorf("action must be %q or %q", types.ApprovalApprove, types.ApprovalReject))
		return
	}
	payload.Action = action
	result, err := api.service.ProcessApproval(c.Request.Context(), mapper.ToApprovalSubmission(c.Param("orderId"), payload))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromOrderResult(result))
}

// Get /v1/purchase-orders/:orderId/approval
// Reports whether the caller may approve the order
func (api *PurchaseOrderAPI) ApprovalStatus(c *gin.Context) {
	decision, err := api.service.ApprovalStatus(c.Request.Context(), types.OrderIdentifier{ID: c.Param("orderId")})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromApprovalDecision(decision))
}

// Post /v1/purchase-orders/:orderId/receipts/validate
// Dry-runs a receiving event
func (api *PurchaseOrderAPI) ValidateReceipt(c *gin.Context) {
	submission, ok := bindReceipt(c)
	if !ok {
		return
	}
	validation, err := api.service.ValidateReceipt(c.Request.Context(), submission)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromValidation(*validation))
}

// Post /v1/purchase-orders/:orderId/receipts
// Records goods received against the order
func (api *PurchaseOrderAPI) ReceiveItems(c *gin.Context) {
	submission, ok := bindReceipt(c)
	if !ok {
		return
	}
	result, err := api.service.ReceiveItems(c.Request.Context(), submission)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, mapper.FromReceiptResult(result))
}

// Get /v1/purchase-orders/:orderId/history
// Returns the audit trail, newest first
func (api *PurchaseOrderAPI) History(c *gin.Context) {
	limit, ok := parseIntQuery(c, "limit")
	if !ok {
		return
	}
	entries, err := api.service.History(c.Request.Context(), types.HistoryInput{
		OrderID: c.Param("orderId"),
		Actions: mapper.ToAuditActions(c.QueryArray("action")),
		Limit:   limit,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromAuditEntries(entries))
}

// Get /v1/purchase-orders/:orderId/transitions
func (api *PurchaseOrderAPI) AvailableTransitions(c *gin.Context) {
	id := c.Param("orderId")
	statuses, err := api.service.AvailableTransitions(c.Request.Context(), types.OrderIdentifier{ID: id})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromTransitions(id, statuses))
}

type reasonHandler func(ctx context.Context, input types.ReasonInput) (*types.OrderResult, error)

func (api *PurchaseOrderAPI) namedTransition(c *gin.Context, fn reasonHandler) {
	reason, ok := bindReason(c)
	if !ok {
		return
	}
	result, err := fn(c.Request.Context(), types.ReasonInput{OrderID: c.Param("orderId"), Reason: reason})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromOrderResult(result))
}

// bindReason accepts an empty body.
func bindReason(c *gin.Context) (string, bool) {
	var payload mapper.Reason
	if c.Request.ContentLength == 0 {
		return "", true
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadRequest(c, err)
		return "", false
	}
	return payload.Reason, true
}

func bindReceipt(c *gin.Context) (types.ReceivingSubmission, bool) {
	var payload mapper.Receipt
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadRequest(c, err)
		return types.ReceivingSubmission{}, false
	}
	return mapper.ToReceivingSubmission(c.Param("orderId"), c.GetHeader(IdempotencyKeyHeader), payload), true
}

func parseIntQuery(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		respondBadRequest(c, fmt.Errorf("%s must be a non-negative integer", name))
		return 0, false
	}
	return value, true
}
