//go:build pact
// +build pact

package provider_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	pacttest "github.com/Apurer/backoffice-purchasing/test/pact"

	purchasingserver "github.com/Apurer/backoffice-purchasing/go"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/identity"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/memory"
	purchasingobs "github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/observability"
	purchasingworkflows "github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/workflows"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/application"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/domain"

	"github.com/gin-gonic/gin"
	"github.com/pact-foundation/pact-go/v2/models"
	pactprovider "github.com/pact-foundation/pact-go/v2/provider"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var pactActor = domain.Actor{ID: "u-pact", DisplayName: "Pact Buyer", Role: domain.RolePurchaser}

func TestPurchasingProviderPact(t *testing.T) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	app := newContractProviderApp(t)
	pactFile := filepath.ToSlash(pacttest.PactFile(t))
	if _, err := os.Stat(pactFile); errors.Is(err, os.ErrNotExist) {
		t.Fatalf("pact file not found at %s - run the pact consumer tests first", pactFile)
	} else {
		require.NoError(t, err)
	}

	verifier := pactprovider.NewVerifier()
	stateHandlers := models.StateHandlers{
		pacttest.StateOrdersBaseline: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			app.reset()
			return nil, nil
		},
		pacttest.StateDraftExists: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			app.reset()
			if setup {
				app.seedDraft(t)
			}
			return nil, nil
		},
		pacttest.StateOrderMissing: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			app.reset()
			return nil, nil
		},
	}

	err := verifier.VerifyProvider(t, pactprovider.VerifyRequest{
		ProviderBaseURL: app.server.URL,
		Provider:        pacttest.ProviderName,
		PactFiles:       []string{pactFile},
		StateHandlers:   stateHandlers,
		BeforeEach: func() error {
			app.reset()
			return nil
		},
	})
	require.NoError(t, err)
}

// contractProviderApp swaps in a fresh in-memory stack for every provider state.
type contractProviderApp struct {
	mu     sync.RWMutex
	ledger *memory.Ledger
	router http.Handler
	server *httptest.Server
}

func newContractProviderApp(t testing.TB) *contractProviderApp {
	t.Helper()
	app := &contractProviderApp{}
	app.reset()
	app.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.mu.RLock()
		router := app.router
		app.mu.RUnlock()
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(app.server.Close)
	return app
}

func (a *contractProviderApp) reset() {
	ledger := memory.NewLedger()
	service := purchasingobs.New(application.NewService(ledger, identity.Static{Actor: pactActor},
		application.WithSettings(memory.NewSettings()),
		application.WithIdempotencyStore(memory.NewIdempotencyStore()),
	))
	handlers := purchasingserver.ApiHandleFunctions{
		PurchaseOrderAPI: purchasingserver.NewPurchaseOrderAPI(service, identity.Static{Actor: pactActor}, purchasingworkflows.NewInlineDispatch(service, nil)),
	}
	router := purchasingserver.NewRouter(handlers)

	a.mu.Lock()
	a.ledger = ledger
	a.router = router
	a.mu.Unlock()
}

func (a *contractProviderApp) seedDraft(t testing.TB) {
	t.Helper()
	items := []domain.PurchaseOrderItem{{
		ProductID:       "prod-1",
		ProductName:     "Flour 25kg",
		OrderedQuantity: decimal.NewFromInt(10),
		UnitCost:        decimal.RequireFromString("12.5"),
	}}
	order, err := domain.NewPurchaseOrder(pacttest.ExistingOrderID, pacttest.ExistingOrderNumber, pacttest.SupplierID,
		items, decimal.NewFromInt(125), decimal.NewFromInt(10), nil)
	require.NoError(t, err)
	order.CreatedBy = pactActor.ID
	order.CreatedAt = time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)

	a.mu.RLock()
	ledger := a.ledger
	a.mu.RUnlock()
	_, err = ledger.CreateOrder(context.Background(), order)
	require.NoError(t, err)
}
