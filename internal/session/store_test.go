package session

import (
	"errors"
	"testing"
	"time"

	"github.com/newthinker/quantview/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gauge struct{ last int }

func (g *gauge) SetSessionsActive(count int) { g.last = count }

func newTestStore(maxSize int, ttl time.Duration) *Store {
	return NewStore(maxSize, ttl, func() *Coordinator { return New(newBackend()) })
}

func TestStore_CreateAndGet(t *testing.T) {
	store := newTestStore(10, 0)

	id, coord := store.Create()
	require.NotEmpty(t, id)

	got, err := store.Get(id)
	require.NoError(t, err)
	assert.Same(t, coord, got)
}

func TestStore_GetUnknown(t *testing.T) {
	store := newTestStore(10, 0)

	_, err := store.Get("nonexistent")
	assert.True(t, errors.Is(err, core.ErrSessionNotFound))
}

func TestStore_EvictsOldest(t *testing.T) {
	store := newTestStore(2, 0)
	g := &gauge{}
	store.SetRecorder(g)

	first, _ := store.Create()
	second, _ := store.Create()
	third, _ := store.Create()

	_, err := store.Get(first)
	assert.Error(t, err, "oldest session should be evicted")
	_, err = store.Get(second)
	assert.NoError(t, err)
	_, err = store.Get(third)
	assert.NoError(t, err)

	assert.Equal(t, 2, store.Len())
	assert.Equal(t, 2, g.last)
}

func TestStore_ExpiresIdleSessions(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store := newTestStore(10, time.Hour)
	store.now = func() time.Time { return now }

	id, _ := store.Create()

	now = now.Add(30 * time.Minute)
	_, err := store.Get(id)
	require.NoError(t, err, "use refreshes the idle timer")

	now = now.Add(45 * time.Minute)
	_, err = store.Get(id)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = store.Get(id)
	assert.True(t, errors.Is(err, core.ErrSessionNotFound))

	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 0, store.Len())
}

func TestStore_GetOrCreate(t *testing.T) {
	store := newTestStore(10, 0)

	id, coord, created := store.GetOrCreate("")
	require.True(t, created)

	sameID, sameCoord, created := store.GetOrCreate(id)
	assert.False(t, created)
	assert.Equal(t, id, sameID)
	assert.Same(t, coord, sameCoord)

	newID, _, created := store.GetOrCreate("stale-cookie")
	assert.True(t, created)
	assert.NotEqual(t, "stale-cookie", newID)
	assert.Equal(t, 2, store.Len())
}

func TestStore_SessionsAreIsolated(t *testing.T) {
	store := newTestStore(10, 0)

	_, a := store.Create()
	_, b := store.Create()
	a.SetStockCode("600519")

	assert.Equal(t, "600519", a.Snapshot().StockCode)
	assert.Equal(t, core.DefaultStockCode, b.Snapshot().StockCode)
}
