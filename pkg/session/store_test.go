package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock for expiry tests.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestStore(clock *fakeClock) *Store {
	return NewStore(30*time.Minute, WithClock(clock.Now))
}

func TestCreateAndPeek(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(clock)

	id, err := store.Create("Hemoglobin 9.2 g/dL", "report.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec, err := store.Peek(id)
	require.NoError(t, err)
	assert.Equal(t, "Hemoglobin 9.2 g/dL", rec.Text)
	assert.Equal(t, "report.pdf", rec.Filename)
	assert.Equal(t, clock.Now(), rec.Timestamp)
	assert.Equal(t, 1, store.Count())
}

func TestCreateRejectsEmptyText(t *testing.T) {
	store := newTestStore(newFakeClock())

	_, err := store.Create("", "report.pdf")
	assert.ErrorIs(t, err, ErrEmptyText)
	assert.Equal(t, 0, store.Count())
}

func TestCreateGeneratesUniqueIDs(t *testing.T) {
	store := newTestStore(newFakeClock())

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := store.Create("text", "report.pdf")
		require.NoError(t, err)
		assert.False(t, seen[id], "duplicate session id issued")
		seen[id] = true
	}
}

func TestGetAndTouchUnknownID(t *testing.T) {
	store := newTestStore(newFakeClock())

	_, err := store.GetAndTouch("never-issued")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetAndTouchResetsExpiry(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(clock)

	id, err := store.Create("text", "report.pdf")
	require.NoError(t, err)

	// Touched at minute 29, queried again at minute 50: only 21 minutes have
	// passed since the touch, so the session must still be found.
	clock.Advance(29 * time.Minute)
	_, err = store.GetAndTouch(id)
	require.NoError(t, err)

	clock.Advance(21 * time.Minute)
	rec, err := store.GetAndTouch(id)
	require.NoError(t, err)
	assert.Equal(t, "text", rec.Text)
}

func TestGetAndTouchExpiredRemovesRecord(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(clock)

	id, err := store.Create("text", "report.pdf")
	require.NoError(t, err)

	clock.Advance(31 * time.Minute)
	_, err = store.GetAndTouch(id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, store.Count())
}

func TestGetAndTouchExpiredDeletesFile(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(clock)

	path := filepath.Join(t.TempDir(), "upload.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o600))

	id := store.NewID()
	require.NoError(t, store.CreateWithID(id, "text", "report.pdf", path))

	clock.Advance(31 * time.Minute)
	_, err := store.GetAndTouch(id)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestPeekDoesNotTouch(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(clock)

	id, err := store.Create("text", "report.pdf")
	require.NoError(t, err)

	clock.Advance(29 * time.Minute)
	_, err = store.Peek(id)
	require.NoError(t, err)

	// Peek must not have refreshed the clock.
	clock.Advance(2 * time.Minute)
	_, err = store.GetAndTouch(id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPeekExpiredLeavesRecordForSweeper(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(clock)

	id, err := store.Create("text", "report.pdf")
	require.NoError(t, err)

	clock.Advance(31 * time.Minute)
	_, err = store.Peek(id)
	assert.ErrorIs(t, err, ErrNotFound)

	// Reads are side-effect-free; removal is the sweeper's job.
	assert.Equal(t, 1, store.Count())
}

func TestSweepExpired(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(clock)

	oldID, err := store.Create("old", "old.pdf")
	require.NoError(t, err)

	clock.Advance(20 * time.Minute)
	freshID, err := store.Create("fresh", "fresh.pdf")
	require.NoError(t, err)

	clock.Advance(15 * time.Minute)

	removed := store.SweepExpired()
	assert.Equal(t, []string{oldID}, removed)
	assert.Equal(t, 1, store.Count())

	_, err = store.Peek(freshID)
	assert.NoError(t, err)
}

func TestSweepExpiredBoundary(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(clock)

	id, err := store.Create("text", "report.pdf")
	require.NoError(t, err)

	// Exactly at the timeout the session is still inside its window.
	clock.Advance(30 * time.Minute)
	assert.Empty(t, store.SweepExpired())

	clock.Advance(time.Second)
	assert.Equal(t, []string{id}, store.SweepExpired())
}

func TestSweepDeletesUploadFiles(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(clock)

	dir := t.TempDir()
	path := filepath.Join(dir, "upload.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o600))

	id := store.NewID()
	require.NoError(t, store.CreateWithID(id, "text", "report.pdf", path))

	// A second session whose file is already gone; cleanup must swallow it.
	goneID := store.NewID()
	require.NoError(t, store.CreateWithID(goneID, "text", "gone.pdf", filepath.Join(dir, "missing.pdf")))

	clock.Advance(31 * time.Minute)
	removed := store.SweepExpired()
	assert.Len(t, removed, 2)

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestZeroTimeoutFallsBackToDefault(t *testing.T) {
	store := NewStore(0)
	assert.Equal(t, DefaultTimeout, store.Timeout())
}
