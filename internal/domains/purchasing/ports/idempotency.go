package ports

import (
	"context"
	"errors"
	"time"
)

// ErrIdempotencyConflict indicates the same key was used with a different payload or order.
var ErrIdempotencyConflict = errors.New("idempotency conflict")

// IdempotencyRecord ties a client-supplied key to the receipt it produced.
type IdempotencyRecord struct {
	Key         string
	RequestHash string
	OrderID     string
	// Response is the encoded outcome of the original receipt (validation, movements,
	// warnings) so a replay can return it. Stores treat it as opaque bytes.
	Response  []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IdempotencyStore persists idempotency keys so receiving retries can be replayed safely.
type IdempotencyStore interface {
	// Get returns the stored record for the key, or nil when unknown.
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	// Save persists the record; if the key already exists with the same hash and order, the stored record is returned.
	// When the key exists but points to a different request/order, ErrIdempotencyConflict is returned with the stored record.
	Save(ctx context.Context, record IdempotencyRecord) (*IdempotencyRecord, error)
	// PurgeBefore deletes records created before cutoff and reports how many were removed.
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
