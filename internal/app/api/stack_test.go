package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/identity"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/memory"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/adapters/notify"
)

func TestBuildStackFallsBackToMemory(t *testing.T) {
	stack, cleanup, err := BuildStack(context.Background(), Config{IdempotencyTTL: time.Hour}, identity.Context{}, nil)
	require.NoError(t, err)
	defer cleanup()

	assert.False(t, stack.Durable)
	assert.IsType(t, &memory.IdempotencyStore{}, stack.Idempotency)
	assert.IsType(t, &notify.Logger{}, stack.Notifier)
}
