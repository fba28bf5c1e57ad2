package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"crewclock.app/crewclock/clock/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOpenEntry(store *fakeStore, id string, workerID int32, in time.Time) {
	store.add(model.TimeEntry{
		ID:        id,
		WorkerID:  workerID,
		CompanyID: "acme",
		JobID:     10,
		ClockInAt: in,
		GeoOkIn:   true,
		Approved:  true,
		Version:   1,
	})
}

func TestSweepClosesStaleEntries(t *testing.T) {
	eng, store, _, _, notifier := testEngine()

	// Open for 20h: stale. Open for 2h: left alone.
	seedOpenEntry(store, "stale-1", 1, testNow.Add(-20*time.Hour))
	seedOpenEntry(store, "fresh-1", 2, testNow.Add(-2*time.Hour))

	result, err := eng.RunCloseoutSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Closed)
	assert.Equal(t, 0, result.Failed)

	stale, err := store.GetEntry(context.Background(), "stale-1")
	require.NoError(t, err)
	assert.False(t, stale.Open())
	require.NotNil(t, stale.ClockOutAt)
	assert.Equal(t, stale.ClockInAt.Add(eng.Config.MaxShift), *stale.ClockOutAt)
	assert.True(t, stale.ExceptionTags.Has(model.TagAutoClosed))
	assert.False(t, stale.Approved)
	assert.Equal(t, int32(2), stale.Version)

	fresh, err := store.GetEntry(context.Background(), "fresh-1")
	require.NoError(t, err)
	assert.True(t, fresh.Open())

	// Exactly one audit record, attributed to the system actor.
	require.Len(t, store.audits, 1)
	assert.Equal(t, int32(0), store.audits[0].EditedBy)

	assert.NotEmpty(t, notifier.infos)
}

func TestSweepIsIdempotent(t *testing.T) {
	eng, store, _, _, _ := testEngine()
	seedOpenEntry(store, "stale-1", 1, testNow.Add(-20*time.Hour))

	first, err := eng.RunCloseoutSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Closed)

	second, err := eng.RunCloseoutSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Closed)
	assert.Equal(t, 0, second.Scanned)
	assert.Len(t, store.audits, 1)
}

func TestSweepContinuesPastRowFailures(t *testing.T) {
	eng, store, _, _, _ := testEngine()
	seedOpenEntry(store, "stale-bad", 1, testNow.Add(-22*time.Hour))
	seedOpenEntry(store, "stale-good", 2, testNow.Add(-21*time.Hour))
	store.failIDs["stale-bad"] = errors.New("row gone sideways")

	result, err := eng.RunCloseoutSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Closed)
	assert.Equal(t, 1, result.Failed)

	good, err := store.GetEntry(context.Background(), "stale-good")
	require.NoError(t, err)
	assert.False(t, good.Open())

	bad, err := store.GetEntry(context.Background(), "stale-bad")
	require.NoError(t, err)
	assert.True(t, bad.Open(), "failed row is left for the next tick")
}

func TestSweepPurgesExpiredLedger(t *testing.T) {
	eng, _, ledger, _, _ := testEngine()
	ledger.purged = 17

	result, err := eng.RunCloseoutSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(17), result.PurgedLedger)
}
