package session

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeperSweepNow(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(clock)

	id, err := store.Create("text", "report.pdf")
	require.NoError(t, err)

	var mu sync.Mutex
	var got []string
	sw := NewSweeper(store, time.Minute, zerolog.Nop(), func(removed []string) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, removed...)
	})

	// Nothing expired yet: callback must not fire.
	sw.SweepNow()
	mu.Lock()
	assert.Empty(t, got)
	mu.Unlock()

	clock.Advance(31 * time.Minute)
	sw.SweepNow()

	mu.Lock()
	assert.Equal(t, []string{id}, got)
	mu.Unlock()
	assert.Equal(t, 0, store.Count())
}

func TestSweeperLifecycle(t *testing.T) {
	store := newTestStore(newFakeClock())
	sw := NewSweeper(store, time.Minute, zerolog.Nop(), nil)

	assert.False(t, sw.IsRunning())
	require.NoError(t, sw.Start())
	assert.True(t, sw.IsRunning())

	// Double start is an error.
	assert.Error(t, sw.Start())

	require.NoError(t, sw.Stop())
	assert.False(t, sw.IsRunning())
	assert.Error(t, sw.Stop())
}

func TestSweeperRunsOnSchedule(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(clock)

	_, err := store.Create("text", "report.pdf")
	require.NoError(t, err)
	clock.Advance(31 * time.Minute)

	sw := NewSweeper(store, 10*time.Millisecond, zerolog.Nop(), nil)
	require.NoError(t, sw.Start())
	defer sw.Stop()

	require.Eventually(t, func() bool {
		return store.Count() == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSweeperDefaultInterval(t *testing.T) {
	store := newTestStore(newFakeClock())
	sw := NewSweeper(store, 0, zerolog.Nop(), nil)
	assert.Equal(t, DefaultSweepInterval, sw.interval)
}
