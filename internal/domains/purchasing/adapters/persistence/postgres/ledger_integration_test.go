//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/domain"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/ports"
	"github.com/Apurer/backoffice-purchasing/internal/platform/migrations"
)

func setupPurchasingPostgresContainer(t *testing.T) (*gorm.DB, func()) {
	ctx := context.Background()

	pgContainer, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcpostgres.WithDatabase("purchasing_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	err = migrations.Run(db)
	require.NoError(t, err)

	cleanup := func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		pgContainer.Terminate(ctx)
	}

	return db, cleanup
}

func sampleOrder(t *testing.T, id, number string) *domain.PurchaseOrder {
	t.Helper()
	order, err := domain.NewPurchaseOrder(id, number, "sup-1", []domain.PurchaseOrderItem{
		{ProductID: "A", SKU: "SKU-A", OrderedQuantity: decimal.NewFromInt(10), UnitCost: decimal.RequireFromString("2.50")},
	}, decimal.RequireFromString("25.00"), decimal.RequireFromString("2.50"), nil)
	require.NoError(t, err)
	order.CreatedBy = "u-buyer"
	return order
}

func TestLedger_CreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPurchasingPostgresContainer(t)
	defer cleanup()

	ledger := NewLedger(db)
	ctx := context.Background()

	saved, err := ledger.CreateOrder(ctx, sampleOrder(t, "po-1", "PO-1"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, saved.Status)

	fetched, err := ledger.GetOrder(ctx, "po-1")
	require.NoError(t, err)
	assert.True(t, fetched.Total.Equal(decimal.RequireFromString("27.50")))
	require.Len(t, fetched.Items, 1)
	assert.True(t, fetched.Items[0].UnitCost.Equal(decimal.RequireFromString("2.50")))

	_, err = ledger.CreateOrder(ctx, sampleOrder(t, "po-2", "PO-1"))
	assert.ErrorIs(t, err, ports.ErrConflict)

	_, err = ledger.GetOrder(ctx, "missing")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestLedger_UpdateComparesStatus(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPurchasingPostgresContainer(t)
	defer cleanup()

	ledger := NewLedger(db)
	ctx := context.Background()
	_, err := ledger.CreateOrder(ctx, sampleOrder(t, "po-1", "PO-1"))
	require.NoError(t, err)

	pending := domain.StatusPendingApproval
	updated, err := ledger.UpdateOrder(ctx, "po-1", ports.OrderPatch{ExpectedStatus: domain.StatusDraft, Status: &pending})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingApproval, updated.Status)

	cancelled := domain.StatusCancelled
	_, err = ledger.UpdateOrder(ctx, "po-1", ports.OrderPatch{ExpectedStatus: domain.StatusDraft, Status: &cancelled})
	assert.ErrorIs(t, err, ports.ErrConflict)

	fetched, err := ledger.GetOrder(ctx, "po-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingApproval, fetched.Status)
	assert.Equal(t, "u-buyer", fetched.CreatedBy)
}

func TestLedger_UpdateComparesVersion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPurchasingPostgresContainer(t)
	defer cleanup()

	ledger := NewLedger(db)
	ctx := context.Background()
	created, err := ledger.CreateOrder(ctx, sampleOrder(t, "po-1", "PO-1"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.Version)

	notes := "first"
	updated, err := ledger.UpdateOrder(ctx, "po-1", ports.OrderPatch{ExpectedVersion: created.Version, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	stale := "stale"
	_, err = ledger.UpdateOrder(ctx, "po-1", ports.OrderPatch{ExpectedVersion: created.Version, Notes: &stale})
	assert.ErrorIs(t, err, ports.ErrConflict)

	fetched, err := ledger.GetOrder(ctx, "po-1")
	require.NoError(t, err)
	assert.Equal(t, "first", fetched.Notes)
	assert.Equal(t, int64(2), fetched.Version)
}

func TestLedger_ListAndDelete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPurchasingPostgresContainer(t)
	defer cleanup()

	ledger := NewLedger(db)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"po-1", "po-2", "po-3"} {
		order := sampleOrder(t, id, "PO-"+id)
		order.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		_, err := ledger.CreateOrder(ctx, order)
		require.NoError(t, err)
	}

	orders, total, err := ledger.ListOrders(ctx, ports.OrderFilter{SupplierID: "sup-1"}, ports.Pagination{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, orders, 2)
	assert.Equal(t, "po-3", orders[0].ID)

	require.NoError(t, ledger.DeleteOrder(ctx, "po-1"))
	assert.ErrorIs(t, ledger.DeleteOrder(ctx, "po-1"), ports.ErrNotFound)
}

func TestLedger_AuditAndMovements(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPurchasingPostgresContainer(t)
	defer cleanup()

	ledger := NewLedger(db)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, ledger.AppendAuditEntry(ctx, domain.AuditEntry{
		ID: "a-1", OrderID: "po-1", Action: domain.AuditCreated, Timestamp: base,
	}))
	require.NoError(t, ledger.AppendAuditEntry(ctx, domain.AuditEntry{
		ID: "a-2", OrderID: "po-1", Action: domain.AuditStatusChanged, Timestamp: base.Add(time.Minute),
		Changes:  []domain.FieldChange{{Field: "status", OldValue: "draft", NewValue: "pending_approval"}},
		Metadata: map[string]string{"source": "test"},
	}))

	entries, err := ledger.QueryAuditEntries(ctx, ports.AuditFilter{OrderID: "po-1"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a-2", entries[0].ID)
	assert.Equal(t, []string{"status"}, entries[0].ChangedFields())
	assert.Equal(t, "test", entries[0].Metadata["source"])

	require.NoError(t, ledger.AppendStockMovements(ctx, []domain.StockMovement{{
		ID: "m-1", OrderID: "po-1", ProductID: "A", Quantity: decimal.NewFromInt(4),
		QuantityAfter: decimal.NewFromInt(4), Condition: domain.ConditionGood, Timestamp: base,
	}}))
	movements, err := ledger.StockMovements(ctx, "po-1")
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.True(t, movements[0].Quantity.Equal(decimal.NewFromInt(4)))
}

func TestIdempotencyStore_SaveConflictAndPurge(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPurchasingPostgresContainer(t)
	defer cleanup()

	store := NewIdempotencyStore(db)
	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)

	_, err := store.Save(ctx, ports.IdempotencyRecord{Key: "k1", RequestHash: "h1", OrderID: "po-1", CreatedAt: old})
	require.NoError(t, err)
	_, err = store.Save(ctx, ports.IdempotencyRecord{Key: "k1", RequestHash: "h1", OrderID: "po-1"})
	require.NoError(t, err)
	_, err = store.Save(ctx, ports.IdempotencyRecord{Key: "k1", RequestHash: "h2", OrderID: "po-1"})
	assert.ErrorIs(t, err, ports.ErrIdempotencyConflict)

	purged, err := store.PurgeBefore(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
	record, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestSettings_DefaultsAndReplace(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPurchasingPostgresContainer(t)
	defer cleanup()

	settings := NewSettings(db)
	ctx := context.Background()

	cfg, err := settings.WorkflowConfig(ctx)
	require.NoError(t, err)
	assert.Len(t, cfg.Approval.Thresholds, 3)

	cfg.Receiving.Partial.MaxPartialReceipts = 2
	require.NoError(t, settings.Replace(ctx, cfg))

	stored, err := settings.WorkflowConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Receiving.Partial.MaxPartialReceipts)
}
