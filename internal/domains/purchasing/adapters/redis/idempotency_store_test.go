package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/ports"
)

func newTestStore(t *testing.T, ttl time.Duration) (*IdempotencyStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewIdempotencyStore(client, ttl), mr
}

func TestIdempotencyStore_GetUnknownKey(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)

	record, err := store.Get(context.Background(), "missing")

	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestIdempotencyStore_SaveClaimsKeyOnce(t *testing.T) {
	store, mr := newTestStore(t, time.Hour)
	ctx := context.Background()

	saved, err := store.Save(ctx, ports.IdempotencyRecord{Key: "k1", RequestHash: "h1", OrderID: "po-1"})
	require.NoError(t, err)
	assert.Equal(t, "po-1", saved.OrderID)
	assert.Equal(t, time.Hour, mr.TTL(keyPrefix+"k1"))

	again, err := store.Save(ctx, ports.IdempotencyRecord{Key: "k1", RequestHash: "h1", OrderID: "po-1"})
	require.NoError(t, err)
	assert.True(t, saved.CreatedAt.Equal(again.CreatedAt))

	existing, err := store.Save(ctx, ports.IdempotencyRecord{Key: "k1", RequestHash: "h2", OrderID: "po-1"})
	assert.ErrorIs(t, err, ports.ErrIdempotencyConflict)
	require.NotNil(t, existing)
	assert.Equal(t, "h1", existing.RequestHash)
}

func TestIdempotencyStore_KeepsResponse(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()
	response := []byte(`{"validation":{"IsValid":true}}`)

	_, err := store.Save(ctx, ports.IdempotencyRecord{Key: "k1", RequestHash: "h1", OrderID: "po-1", Response: response})
	require.NoError(t, err)

	record, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.JSONEq(t, string(response), string(record.Response))
}

func TestIdempotencyStore_KeysExpire(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	_, err := store.Save(ctx, ports.IdempotencyRecord{Key: "k1", RequestHash: "h1", OrderID: "po-1"})
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	record, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestIdempotencyStore_PurgeBefore(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.WithClock(func() time.Time { return now })

	_, err := store.Save(ctx, ports.IdempotencyRecord{Key: "old", RequestHash: "h", OrderID: "po-1", CreatedAt: now.Add(-2 * time.Hour)})
	require.NoError(t, err)
	_, err = store.Save(ctx, ports.IdempotencyRecord{Key: "fresh", RequestHash: "h", OrderID: "po-2"})
	require.NoError(t, err)

	purged, err := store.PurgeBefore(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	fresh, err := store.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.NotNil(t, fresh)
}
