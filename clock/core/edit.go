package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crewclock.app/crewclock/clock/model"
)

const (
	minEditReasonLen = 3
	maxEditReasonLen = 500
)

// EditChanges lists the fields an admin may rewrite. Nil means "leave as is".
// Setting ClearClockOut reopens the entry.
type EditChanges struct {
	ClockInAt     *time.Time
	ClockOutAt    *time.Time
	ClearClockOut bool
	JobID         *int32
	ExceptionTags *[]string
	Approved      *bool
}

func (c EditChanges) touchesWindow() bool {
	return c.ClockInAt != nil || c.ClockOutAt != nil || c.ClearClockOut
}

// EditTimeEntry is the admin correction path. The original admission record
// is never rewritten; the edit lands on the authoritative entry with a
// before/after snapshot, and a forced edit of an invoiced entry is permitted
// but always flagged on its audit record.
func (e *Engine) EditTimeEntry(ctx context.Context, entryID string, changes EditChanges, editReason string, actorID int32, force bool) (*model.TimeEntry, error) {
	if len(editReason) < minEditReasonLen || len(editReason) > maxEditReasonLen {
		return nil, rejectEdit(ReasonInvalidInput,
			"editReason must be between %d and %d characters", minEditReasonLen, maxEditReasonLen)
	}

	entry, err := e.Store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}

	if entry.Locked() && !force {
		return nil, rejectEdit(ReasonLocked,
			"entry %s is locked by invoice %d; use force to override", entryID, *entry.InvoiceID)
	}

	wasLocked := entry.Locked()
	meta := AuditMeta{ActorID: actorID, Reason: editReason, Force: force}

	// The window is computed and checked inside the transaction, against the
	// entry as it stands under the row lock: a concurrent edit committed after
	// the read above cannot slip an overlapping window past the check.
	updated, _, err := e.Store.ApplyEdit(ctx, entryID, meta, func(view EntryStore, entry *model.TimeEntry) error {
		newIn := entry.ClockInAt
		if changes.ClockInAt != nil {
			newIn = *changes.ClockInAt
		}
		newOut := entry.ClockOutAt
		if changes.ClearClockOut {
			newOut = nil
		} else if changes.ClockOutAt != nil {
			newOut = changes.ClockOutAt
		}

		if newOut != nil && !newOut.After(newIn) {
			return rejectEdit(ReasonInvalidInput, "clockOutAt must be after clockInAt")
		}

		if changes.touchesWindow() {
			overlaps, err := view.OverlapExists(ctx, entry.WorkerID, entry.ID, newIn, farFuture(newOut))
			if err != nil {
				return fmt.Errorf("overlap check: %w", err)
			}
			if overlaps && !force {
				return ErrOverlap
			}
		}

		entry.ClockInAt = newIn
		entry.ClockOutAt = newOut
		if changes.ClearClockOut {
			entry.GeoOkOut = nil
		}
		if changes.JobID != nil {
			entry.JobID = *changes.JobID
		}
		if changes.ExceptionTags != nil {
			entry.ExceptionTags = model.ExceptionTags(*changes.ExceptionTags)
		}
		if changes.Approved != nil {
			entry.Approved = *changes.Approved
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrEntryLocked) {
			return nil, rejectEdit(ReasonLocked, "entry %s is locked by an invoice; use force to override", entryID)
		}
		if errors.Is(err, ErrOverlap) {
			return nil, rejectEdit(ReasonOverlap,
				"edited window overlaps another entry for worker %d", entry.WorkerID)
		}
		if errors.Is(err, ErrConflict) {
			return nil, rejectEdit(ReasonConflict, "concurrent edit, please retry")
		}
		return nil, err
	}

	if force && wasLocked {
		e.notifyForcedEdit(updated, actorID, editReason)
	}
	return updated, nil
}

func (e *Engine) notifyForcedEdit(entry *model.TimeEntry, actorID int32, reason string) {
	msg := fmt.Sprintf("forced edit of invoiced entry %s (worker %d) by actor %d: %s",
		entry.ID, entry.WorkerID, actorID, reason)
	if err := e.Notifier.Error(msg); err != nil {
		fmt.Printf("[WARN] failed to send forced edit alert: %v\n", err)
	}
}

// farFuture turns an open-ended window into a bounded one for the overlap
// query.
func farFuture(end *time.Time) time.Time {
	if end != nil {
		return *end
	}
	return time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
}
