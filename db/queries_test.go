package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/sprinkler-controller/internal/model"
)

func setupTestStore(t *testing.T) *TimerStore {
	t.Helper()
	dbConn, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { dbConn.Close() })
	return NewTimerStore(dbConn)
}

func sampleTimer(id string) model.Timer {
	return model.Timer{
		ID:        id,
		Name:      "front lawn",
		OutputID:  "valve1",
		StartTime: model.TimeOfDay{Hour: 6, Minute: 30},
		Duration:  15 * time.Minute,
		Enabled:   true,
		Days:      []string{"monday", "thursday"},
	}
}

func TestSaveAndLoadAll(t *testing.T) {
	store := setupTestStore(t)

	timers, err := store.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, timers)

	// Save out of id order; LoadAll returns id-ascending.
	b := sampleTimer("b-timer")
	b.Description = "back beds"
	require.NoError(t, store.Save(b))
	a := sampleTimer("a-timer")
	require.NoError(t, store.Save(a))

	timers, err = store.LoadAll()
	require.NoError(t, err)
	require.Len(t, timers, 2)
	assert.Equal(t, a, timers[0])
	assert.Equal(t, b, timers[1])
}

func TestSaveUpserts(t *testing.T) {
	store := setupTestStore(t)

	timer := sampleTimer("t1")
	require.NoError(t, store.Save(timer))

	timer.Enabled = false
	timer.Duration = 2 * time.Minute
	timer.Days = nil
	require.NoError(t, store.Save(timer))

	timers, err := store.LoadAll()
	require.NoError(t, err)
	require.Len(t, timers, 1)
	assert.False(t, timers[0].Enabled)
	assert.Equal(t, 2*time.Minute, timers[0].Duration)
	assert.Empty(t, timers[0].Days)
}

func TestGetTimer(t *testing.T) {
	store := setupTestStore(t)

	want := sampleTimer("t1")
	require.NoError(t, store.Save(want))

	got, err := store.GetTimer("t1")
	require.NoError(t, err)
	assert.Equal(t, want, *got)

	_, err = store.GetTimer("missing")
	require.Error(t, err)
}

func TestDelete(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.Save(sampleTimer("t1")))
	require.NoError(t, store.Delete("t1"))

	timers, err := store.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, timers)

	// Deleting an absent id is not an error.
	require.NoError(t, store.Delete("t1"))
}

func TestStartTimeSecondsSurvive(t *testing.T) {
	store := setupTestStore(t)

	timer := sampleTimer("t1")
	timer.StartTime = model.TimeOfDay{Hour: 5, Minute: 45, Second: 30}
	require.NoError(t, store.Save(timer))

	got, err := store.GetTimer("t1")
	require.NoError(t, err)
	assert.Equal(t, timer.StartTime, got.StartTime)
}
