package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRedisStore_RoundTrip(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)

	store, err := NewStore(Config{Addr: mr.Addr(), TTL: time.Minute}, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	_, err = store.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "sess-1", State{PatientID: "pt_42", PatientName: "Smith"}))

	state, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "pt_42", state.PatientID)
	assert.Equal(t, "Smith", state.PatientName)
	assert.False(t, state.UpdatedAt.IsZero())

	require.NoError(t, store.Delete(ctx, "sess-1"))
	_, err = store.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)

	store, err := NewStore(Config{Addr: mr.Addr(), TTL: time.Second}, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "sess-1", State{PatientID: "pt_1"}))

	mr.FastForward(2 * time.Second)

	_, err = store.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewStore_FallsBackToMemory(t *testing.T) {
	t.Parallel()

	store, err := NewStore(Config{}, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.(*MemoryStore)
	assert.True(t, ok)
}

func TestMemoryStore_RoundTripAndExpiry(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore(50 * time.Millisecond)

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "sess-1", State{PatientID: "pt_9"}))

	state, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "pt_9", state.PatientID)

	time.Sleep(80 * time.Millisecond)
	_, err = store.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
