package core

import (
	"context"
	"strings"
	"testing"
	"time"

	"crewclock.app/crewclock/clock/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedClosedEntry(store *fakeStore, id string, workerID int32, in, out time.Time) model.TimeEntry {
	entry := model.TimeEntry{
		ID:         id,
		WorkerID:   workerID,
		CompanyID:  "acme",
		JobID:      10,
		ClockInAt:  in,
		ClockOutAt: &out,
		GeoOkIn:    true,
		Approved:   true,
		Version:    1,
	}
	store.add(entry)
	return entry
}

func TestEditReasonLengthBounds(t *testing.T) {
	eng, store, _, _, _ := testEngine()
	seedClosedEntry(store, "entry-1", 1, testNow, testNow.Add(8*time.Hour))

	tests := []struct {
		name   string
		reason string
		ok     bool
	}{
		{name: "Too short", reason: "ab", ok: false},
		{name: "Minimum length", reason: "fix", ok: true},
		{name: "Too long", reason: strings.Repeat("x", 501), ok: false},
		{name: "Maximum length", reason: strings.Repeat("x", 500), ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eng.EditTimeEntry(context.Background(), "entry-1", EditChanges{}, tt.reason, 42, false)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				var editErr *EditError
				require.ErrorAs(t, err, &editErr)
				assert.Equal(t, ReasonInvalidInput, editErr.Reason)
			}
		})
	}
}

func TestEditUnknownEntry(t *testing.T) {
	eng, _, _, _, _ := testEngine()

	_, err := eng.EditTimeEntry(context.Background(), "missing", EditChanges{}, "correcting times", 42, false)
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestEditTimeChangeResetsApprovalAndBumpsVersion(t *testing.T) {
	eng, store, _, _, _ := testEngine()
	seedClosedEntry(store, "entry-1", 1, testNow, testNow.Add(8*time.Hour))

	newOut := testNow.Add(9 * time.Hour)
	updated, err := eng.EditTimeEntry(context.Background(), "entry-1",
		EditChanges{ClockOutAt: &newOut}, "worker stayed an extra hour", 42, false)
	require.NoError(t, err)

	assert.Equal(t, int32(2), updated.Version)
	assert.False(t, updated.Approved, "time-affecting edits reset approval")
	require.NotNil(t, updated.ClockOutAt)
	assert.Equal(t, newOut, *updated.ClockOutAt)

	require.Len(t, store.audits, 1)
	audit := store.audits[0]
	assert.Equal(t, "entry-1", audit.EntryID)
	assert.Equal(t, int32(42), audit.EditedBy)
	assert.False(t, audit.ForceEdit)
	assert.NotEmpty(t, audit.Before)
	assert.NotEmpty(t, audit.After)
}

func TestEditNonTimeFieldKeepsApproval(t *testing.T) {
	eng, store, _, _, _ := testEngine()
	seedClosedEntry(store, "entry-1", 1, testNow, testNow.Add(8*time.Hour))

	jobID := int32(11)
	updated, err := eng.EditTimeEntry(context.Background(), "entry-1",
		EditChanges{JobID: &jobID}, "rebooked to the correct job", 42, false)
	require.NoError(t, err)

	assert.Equal(t, int32(2), updated.Version, "version still increments on every edit")
	assert.True(t, updated.Approved)
	assert.Equal(t, jobID, updated.JobID)
}

func TestEditWindowValidation(t *testing.T) {
	eng, store, _, _, _ := testEngine()
	seedClosedEntry(store, "entry-1", 1, testNow, testNow.Add(8*time.Hour))

	badOut := testNow.Add(-time.Hour)
	_, err := eng.EditTimeEntry(context.Background(), "entry-1",
		EditChanges{ClockOutAt: &badOut}, "typo in clock out", 42, false)

	var editErr *EditError
	require.ErrorAs(t, err, &editErr)
	assert.Equal(t, ReasonInvalidInput, editErr.Reason)
}

func TestEditOverlapRejectedUnlessForced(t *testing.T) {
	eng, store, _, _, _ := testEngine()
	seedClosedEntry(store, "entry-a", 1, testNow, testNow.Add(4*time.Hour))
	seedClosedEntry(store, "entry-b", 1, testNow.Add(5*time.Hour), testNow.Add(9*time.Hour))

	// Stretch entry A into entry B's window.
	newOut := testNow.Add(6 * time.Hour)
	_, err := eng.EditTimeEntry(context.Background(), "entry-a",
		EditChanges{ClockOutAt: &newOut}, "extend shift", 42, false)

	var editErr *EditError
	require.ErrorAs(t, err, &editErr)
	assert.Equal(t, ReasonOverlap, editErr.Reason)

	// Same edit with force goes through.
	updated, err := eng.EditTimeEntry(context.Background(), "entry-a",
		EditChanges{ClockOutAt: &newOut}, "extend shift, overlap reviewed", 42, true)
	require.NoError(t, err)
	require.NotNil(t, updated.ClockOutAt)
	assert.Equal(t, newOut, *updated.ClockOutAt)
}

// racingStore injects a competing write between the edit path's read of an
// entry and its transaction, standing in for a second edit committing first.
type racingStore struct {
	*fakeStore
	beforeEdit func()
}

func (s *racingStore) ApplyEdit(ctx context.Context, entryID string, meta AuditMeta, mutate func(EntryStore, *model.TimeEntry) error) (*model.TimeEntry, *model.AuditRecord, error) {
	if s.beforeEdit != nil {
		s.beforeEdit()
	}
	return s.fakeStore.ApplyEdit(ctx, entryID, meta, mutate)
}

func TestEditOverlapCheckedUnderRowLock(t *testing.T) {
	eng, store, _, _, _ := testEngine()
	seedClosedEntry(store, "entry-a", 1, testNow, testNow.Add(4*time.Hour))

	// The competing entry lands only after the edit path has read entry A,
	// so a check done before the transaction would miss it.
	eng.Store = &racingStore{fakeStore: store, beforeEdit: func() {
		seedClosedEntry(store, "entry-b", 1, testNow.Add(5*time.Hour), testNow.Add(9*time.Hour))
	}}

	newOut := testNow.Add(6 * time.Hour)
	_, err := eng.EditTimeEntry(context.Background(), "entry-a",
		EditChanges{ClockOutAt: &newOut}, "extend shift", 42, false)

	var editErr *EditError
	require.ErrorAs(t, err, &editErr)
	assert.Equal(t, ReasonOverlap, editErr.Reason)

	entry, err := store.GetEntry(context.Background(), "entry-a")
	require.NoError(t, err)
	assert.Equal(t, int32(1), entry.Version, "rejected edit leaves the entry untouched")
	require.NotNil(t, entry.ClockOutAt)
	assert.Equal(t, testNow.Add(4*time.Hour), *entry.ClockOutAt)
}

// Cancellation is an exception tag, not a delete: the entry stays on the
// books, flagged and audited.
func TestEditCancelsEntryWithoutDeleting(t *testing.T) {
	eng, store, _, _, _ := testEngine()
	seedClosedEntry(store, "entry-1", 1, testNow, testNow.Add(8*time.Hour))

	tags := []string{model.TagCancelled}
	approved := false
	updated, err := eng.EditTimeEntry(context.Background(), "entry-1",
		EditChanges{ExceptionTags: &tags, Approved: &approved}, "shift entered twice by hand", 42, false)
	require.NoError(t, err)

	assert.True(t, updated.ExceptionTags.Has(model.TagCancelled))
	assert.False(t, updated.Approved)
	assert.Equal(t, int32(2), updated.Version)

	entry, err := store.GetEntry(context.Background(), "entry-1")
	require.NoError(t, err)
	assert.True(t, entry.ExceptionTags.Has(model.TagCancelled), "cancelled entry remains on record")
	require.Len(t, store.audits, 1)
	assert.Equal(t, "shift entered twice by hand", store.audits[0].EditReason)
}

func TestEditLockedEntry(t *testing.T) {
	eng, store, _, _, notifier := testEngine()
	entry := seedClosedEntry(store, "entry-1", 1, testNow, testNow.Add(8*time.Hour))
	invoiceID := int32(7001)
	entry.InvoiceID = &invoiceID
	store.add(entry)

	newOut := testNow.Add(9 * time.Hour)

	// Without force: rejected as locked.
	_, err := eng.EditTimeEntry(context.Background(), "entry-1",
		EditChanges{ClockOutAt: &newOut}, "adjust billed entry", 42, false)
	var editErr *EditError
	require.ErrorAs(t, err, &editErr)
	assert.Equal(t, ReasonLocked, editErr.Reason)
	assert.Empty(t, store.audits)

	// With force: permitted, audited as forced, and alerted.
	updated, err := eng.EditTimeEntry(context.Background(), "entry-1",
		EditChanges{ClockOutAt: &newOut}, "adjust billed entry per dispute", 42, true)
	require.NoError(t, err)
	require.NotNil(t, updated.ClockOutAt)

	require.Len(t, store.audits, 1)
	assert.True(t, store.audits[0].ForceEdit)
	assert.NotEmpty(t, notifier.errors, "forced edit of a locked entry raises an alert")
}

func TestEditReopenEntry(t *testing.T) {
	eng, store, _, _, _ := testEngine()
	seedClosedEntry(store, "entry-1", 1, testNow, testNow.Add(8*time.Hour))

	updated, err := eng.EditTimeEntry(context.Background(), "entry-1",
		EditChanges{ClearClockOut: true}, "worker is still on site", 42, false)
	require.NoError(t, err)
	assert.True(t, updated.Open())
	assert.Nil(t, updated.GeoOkOut)
	assert.False(t, updated.Approved)
}
