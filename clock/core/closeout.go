package core

import (
	"context"
	"errors"
	"fmt"

	"crewclock.app/crewclock/clock/model"
)

// SweepResult summarizes one closeout pass.
type SweepResult struct {
	Scanned      int
	Closed       int
	Failed       int
	PurgedLedger int64
}

// RunCloseoutSweep force-closes entries left open past the max shift
// threshold, tagging them rather than silently truncating: the closed window
// is clockIn + maxShift, the entry is flagged auto_closed and unapproved so a
// human reviews it. A failure on one row is logged and skipped; the row is
// picked up again on the next tick. The sweep also purges expired
// idempotency records, which share its cadence.
func (e *Engine) RunCloseoutSweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	cutoff := e.clock().Add(-e.Config.MaxShift)

	for {
		stale, err := e.Store.StaleOpenEntries(ctx, cutoff, e.Config.SweepBatchSize)
		if err != nil {
			return result, fmt.Errorf("query stale entries: %w", err)
		}
		if len(stale) == 0 {
			break
		}
		result.Scanned += len(stale)

		closedThisBatch := 0
		for _, entry := range stale {
			if err := e.autoClose(ctx, entry.ID); err != nil {
				result.Failed++
				fmt.Printf("[WARN] closeout failed for entry %s: %v\n", entry.ID, err)
				continue
			}
			result.Closed++
			closedThisBatch++
		}

		// Every row in the batch failed: bail out instead of spinning on the
		// same rows until the next tick.
		if closedThisBatch == 0 {
			break
		}
		if len(stale) < e.Config.SweepBatchSize {
			break
		}
	}

	purged, err := e.Ledger.PurgeExpired(ctx, e.clock())
	if err != nil {
		fmt.Printf("[WARN] idempotency purge failed: %v\n", err)
	} else {
		result.PurgedLedger = purged
	}

	if result.Closed > 0 || result.Failed > 0 {
		msg := fmt.Sprintf("closeout sweep: closed %d stale entries (%d failed, %d scanned)",
			result.Closed, result.Failed, result.Scanned)
		if err := e.Notifier.Info(msg); err != nil {
			fmt.Printf("[WARN] failed to send sweep summary: %v\n", err)
		}
	}

	return result, nil
}

var errAlreadyClosed = errors.New("entry closed concurrently")

func (e *Engine) autoClose(ctx context.Context, entryID string) error {
	meta := AuditMeta{
		ActorID: 0, // system
		Reason:  fmt.Sprintf("auto-closed after exceeding the %s max shift", e.Config.MaxShift),
	}
	_, _, err := e.Store.ApplyEdit(ctx, entryID, meta, func(_ EntryStore, entry *model.TimeEntry) error {
		if !entry.Open() {
			// Closed between the query and the row lock; nothing to do.
			return errAlreadyClosed
		}
		closedAt := entry.ClockInAt.Add(e.Config.MaxShift)
		entry.ClockOutAt = &closedAt
		entry.ExceptionTags = entry.ExceptionTags.Add(model.TagAutoClosed)
		entry.Approved = false
		return nil
	})
	if errors.Is(err, errAlreadyClosed) {
		return nil
	}
	return err
}
