package purchasingserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/http/mapper"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/identity"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/memory"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/workflows"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/application"
	types "github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/application/types"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/domain"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/ports"
	apierrors "github.com/Apurer/backoffice-purchasing/internal/shared/errors"
)

var (
	buyer     = domain.Actor{ID: "u-buyer", DisplayName: "Bea", Role: domain.RolePurchaser}
	manager   = domain.Actor{ID: "u-mgr", DisplayName: "Max", Role: domain.RoleManager}
	warehouse = domain.Actor{ID: "u-wh", DisplayName: "Wes", Role: domain.RoleWarehouse}
)

type testServer struct {
	router   *gin.Engine
	verifier *identity.Verifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	service := application.NewService(memory.NewLedger(), identity.Context{},
		application.WithSettings(memory.NewSettings()),
		application.WithIdempotencyStore(memory.NewIdempotencyStore()),
	)
	verifier := identity.NewVerifier("test-secret")
	handlers := ApiHandleFunctions{
		PurchaseOrderAPI: NewPurchaseOrderAPI(service, identity.Context{}, workflows.NewInlineDispatch(service, nil)),
	}
	return &testServer{
		router:   NewRouter(handlers, verifier.Middleware(RespondAuthError)),
		verifier: verifier,
	}
}

func (s *testServer) do(t *testing.T, actor *domain.Actor, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		token, err := s.verifier.Issue(*actor, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func createBody() map[string]any {
	return map[string]any{
		"supplierId": "sup-1",
		"items": []map[string]any{
			{"productId": "A", "orderedQuantity": 10, "unitCost": "10"},
			{"productId": "B", "orderedQuantity": 5, "unitCost": "20"},
		},
		"subtotal": 200,
		"tax":      20,
	}
}

func (s *testServer) createOrder(t *testing.T) mapper.Order {
	t.Helper()
	rec := s.do(t, &buyer, http.MethodPost, "/v1/purchase-orders", createBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[mapper.OrderEnvelope](t, rec).Order
}

func TestHealthzSkipsAuthentication(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, nil, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMissingTokenIsUnauthorized(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, nil, http.MethodGet, "/v1/purchase-orders", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apierrors.ContentTypeProblemJSON, rec.Header().Get("Content-Type"))
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	order := s.createOrder(t)
	base := "/v1/purchase-orders/" + order.ID
	assert.Equal(t, "draft", order.Status)
	assert.Equal(t, "220", order.Total.String())

	rec := s.do(t, &buyer, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "pending_approval", decode[mapper.OrderEnvelope](t, rec).Order.Status)

	rec = s.do(t, &manager, http.MethodGet, base+"/approval", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[mapper.ApprovalDecision](t, rec).CanApprove)

	rec = s.do(t, &manager, http.MethodPost, base+"/approval", map[string]any{"action": "Approve"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "approved", decode[mapper.OrderEnvelope](t, rec).Order.Status)

	rec = s.do(t, &buyer, http.MethodPost, base+"/send", map[string]any{"reason": "confirmed by phone"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "sent_to_supplier", decode[mapper.OrderEnvelope](t, rec).Order.Status)

	receipt := map[string]any{"items": []map[string]any{{"productId": "A", "receivedQuantity": 4}}, "isPartial": true}
	rec = s.do(t, &warehouse, http.MethodPost, base+"/receipts/validate", receipt)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[mapper.Validation](t, rec).CanProceed)

	rec = s.do(t, &warehouse, http.MethodPost, base+"/receipts", receipt, IdempotencyKeyHeader, "dock-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	outcome := decode[mapper.ReceiptOutcome](t, rec)
	assert.Equal(t, "partially_received", outcome.Order.Status)
	require.Len(t, outcome.Movements, 1)

	rec = s.do(t, &warehouse, http.MethodPost, base+"/receipts", receipt, IdempotencyKeyHeader, "dock-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[mapper.ReceiptOutcome](t, rec).Replayed)

	rec = s.do(t, &buyer, http.MethodGet, base+"/history?action=approved", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]mapper.AuditEntry](t, rec)
	require.Len(t, history, 1)
	assert.Equal(t, "u-mgr", history[0].ActorID)

	rec = s.do(t, &buyer, http.MethodGet, base+"/transitions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[mapper.Transitions](t, rec).Available)
}

func TestProblemsCarryKindAndIssues(t *testing.T) {
	s := newTestServer(t)
	order := s.createOrder(t)
	base := "/v1/purchase-orders/" + order.ID

	rec := s.do(t, &buyer, http.MethodGet, "/v1/purchase-orders/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, &buyer, http.MethodPost, base+"/close", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	problem := decode[apierrors.ProblemDetail](t, rec)
	assert.Equal(t, apierrors.TypeTransition, problem.Type)
	assert.Equal(t, "invalid_transition", problem.Extensions["kind"])

	body := createBody()
	body["total"] = 1
	rec = s.do(t, &buyer, http.MethodPost, "/v1/purchase-orders", body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode[apierrors.ProblemDetail](t, rec).Extensions, "errors")

	require.Equal(t, http.StatusOK, s.do(t, &buyer, http.MethodPost, base+"/submit", nil).Code)
	rec = s.do(t, &buyer, http.MethodPost, base+"/approval", map[string]any{"action": "approve"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, &manager, http.MethodPost, base+"/approval", map[string]any{"action": "shrug"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, &buyer, http.MethodGet, "/v1/purchase-orders?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListOrdersFiltersByAlias(t *testing.T) {
	s := newTestServer(t)
	s.createOrder(t)
	s.createOrder(t)

	rec := s.do(t, &buyer, http.MethodGet, "/v1/purchase-orders?status=draft&limit=1", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[mapper.OrderPage](t, rec)
	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 1, page.Limit)
}

type recordingDispatch struct {
	inputs []ports.DispatchInput
}

func (r *recordingDispatch) Dispatch(_ context.Context, input ports.DispatchInput) (*types.OrderResult, error) {
	r.inputs = append(r.inputs, input)
	return &types.OrderResult{Order: &domain.PurchaseOrder{ID: input.OrderID, Status: domain.StatusSentToSupplier}}, nil
}

func TestSendToSupplierDispatchesAsResolvedActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dev := domain.Actor{ID: "local-dev", Role: domain.RoleAdmin}
	actors := identity.Static{Actor: dev}
	service := application.NewService(memory.NewLedger(), actors)
	dispatch := &recordingDispatch{}
	router := NewRouter(ApiHandleFunctions{PurchaseOrderAPI: NewPurchaseOrderAPI(service, actors, dispatch)})

	req := httptest.NewRequest(http.MethodPost, "/v1/purchase-orders/po-1/send", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, dispatch.inputs, 1)
	assert.Equal(t, dev, dispatch.inputs[0].Actor)
	assert.Equal(t, "po-1", dispatch.inputs[0].OrderID)
}

func TestSendToSupplierWithoutActorIsUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := application.NewService(memory.NewLedger(), identity.Context{})
	dispatch := &recordingDispatch{}
	router := NewRouter(ApiHandleFunctions{PurchaseOrderAPI: NewPurchaseOrderAPI(service, identity.Context{}, dispatch)})

	req := httptest.NewRequest(http.MethodPost, "/v1/purchase-orders/po-1/send", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, dispatch.inputs)
}
