//go:build pact
// +build pact

package pacttest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

const (
	ProviderName = "purchasing-api"
	ConsumerName = "purchasing-portal"

	StateOrdersBaseline = "no purchase orders"
	StateDraftExists    = "draft purchase order po-pact-1 exists"
	StateOrderMissing   = "no purchase order with id po-missing"
)

const (
	ExistingOrderID     = "po-pact-1"
	ExistingOrderNumber = "PO-20240612-PACT01"
	MissingOrderID      = "po-missing"
	SupplierID          = "sup-pact"
)

// PactDir returns the workspace-level directory for generated pact files.
func PactDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "pacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact dir: %v", err)
	}
	return dir
}

// PactFile returns the canonical pact file path for the purchasing portal consumer.
func PactFile(t testing.TB) string {
	t.Helper()
	return filepath.Join(PactDir(t), ConsumerName+"-"+ProviderName+".json")
}

// LogDir returns the log output directory for pact-go.
func LogDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "bin", "pact-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact log dir: %v", err)
	}
	return dir
}

// ExampleCreatePayload provides stable test data for the create interaction.
func ExampleCreatePayload() map[string]any {
	return map[string]any{
		"supplierId": SupplierID,
		"items": []map[string]any{
			{"productId": "prod-1", "productName": "Flour 25kg", "orderedQuantity": "10", "unitCost": "12.5"},
		},
		"subtotal": "125",
		"tax":      "10",
	}
}

// projectRoot walks up from this file to the workspace root.
func projectRoot(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine caller for pact paths")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}
