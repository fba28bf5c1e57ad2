package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"crewclock.app/crewclock/clock/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const txRetryBudget = 3

// GormEntryStore is the authoritative time entry store. Every mutation runs
// inside a transaction that locks the affected rows, so two racing clock
// attempts for the same worker serialize at the database rather than through
// any in-process state.
type GormEntryStore struct {
	DB *gorm.DB
}

func NewGormEntryStore(db *gorm.DB) *GormEntryStore {
	return &GormEntryStore{DB: db}
}

// withRetry runs fn in a transaction, retrying on MySQL deadlock / lock-wait
// contention up to the retry budget before surfacing ErrConflict.
func (s *GormEntryStore) withRetry(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt < txRetryBudget; attempt++ {
		err = s.DB.WithContext(ctx).Transaction(fn)
		if err == nil || !isContention(err) {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 25 * time.Millisecond)
	}
	return fmt.Errorf("%w: %v", ErrConflict, err)
}

func isContention(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Deadlock found") ||
		strings.Contains(msg, "Lock wait timeout")
}

// CreateOpenEntry inserts a new open entry, enforcing at most one open entry
// per worker. The existing-open check and the insert share one transaction;
// the SELECT takes a row lock so a racing clock-in observes the winner.
func (s *GormEntryStore) CreateOpenEntry(ctx context.Context, entry *model.TimeEntry) error {
	return s.withRetry(ctx, func(tx *gorm.DB) error {
		var open []model.TimeEntry
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("worker_id = ? AND clock_out_at IS NULL", entry.WorkerID).
			Limit(1).
			Find(&open).Error
		if err != nil {
			return err
		}
		if len(open) > 0 {
			return ErrOpenEntryExists
		}
		return tx.Create(entry).Error
	})
}

// CloseEntry closes the worker's single open entry for the job.
func (s *GormEntryStore) CloseEntry(ctx context.Context, workerID, jobID int32, at time.Time, geoOk bool, tags []string) (*model.TimeEntry, error) {
	var closed model.TimeEntry
	err := s.withRetry(ctx, func(tx *gorm.DB) error {
		var open []model.TimeEntry
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("worker_id = ? AND job_id = ? AND clock_out_at IS NULL", workerID, jobID).
			Limit(1).
			Find(&open).Error
		if err != nil {
			return err
		}
		if len(open) == 0 {
			return ErrNoOpenEntry
		}

		entry := open[0]
		if !at.After(entry.ClockInAt) {
			return fmt.Errorf("%w: clock-out %s vs clock-in %s",
				ErrCloseBeforeOpen, at.Format(time.RFC3339), entry.ClockInAt.Format(time.RFC3339))
		}

		out := at
		entry.ClockOutAt = &out
		entry.GeoOkOut = &geoOk
		for _, tag := range tags {
			entry.ExceptionTags = entry.ExceptionTags.Add(tag)
		}

		if err := tx.Save(&entry).Error; err != nil {
			return err
		}
		closed = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &closed, nil
}

func (s *GormEntryStore) GetOpenEntry(ctx context.Context, workerID int32) (*model.TimeEntry, error) {
	var open []model.TimeEntry
	err := s.DB.WithContext(ctx).
		Where("worker_id = ? AND clock_out_at IS NULL", workerID).
		Limit(1).
		Find(&open).Error
	if err != nil {
		return nil, err
	}
	if len(open) == 0 {
		return nil, ErrNoOpenEntry
	}
	return &open[0], nil
}

func (s *GormEntryStore) GetEntry(ctx context.Context, entryID string) (*model.TimeEntry, error) {
	var entries []model.TimeEntry
	err := s.DB.WithContext(ctx).Where("id = ?", entryID).Limit(1).Find(&entries).Error
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrEntryNotFound
	}
	return &entries[0], nil
}

// OverlapExists reports whether any other entry for the worker intersects
// [start, end). Open entries count from their clock-in onwards.
func (s *GormEntryStore) OverlapExists(ctx context.Context, workerID int32, excludeEntryID string, start, end time.Time) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&model.TimeEntry{}).
		Where("worker_id = ? AND id <> ?", workerID, excludeEntryID).
		Where("clock_in_at < ? AND (clock_out_at IS NULL OR clock_out_at > ?)", end, start).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GormEntryStore) StaleOpenEntries(ctx context.Context, openedBefore time.Time, limit int) ([]model.TimeEntry, error) {
	var entries []model.TimeEntry
	err := s.DB.WithContext(ctx).
		Where("clock_out_at IS NULL AND clock_in_at < ?", openedBefore).
		Order("clock_in_at").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// ApplyEdit is the only path by which an entry changes after admission. It
// locks the entry, applies the mutation, bumps the version, resets approval
// when the worked window moved, and writes the audit record in the same
// transaction. The invoice lock is re-checked under the row lock, and the
// mutate callback gets a store view on the open transaction so its own
// checks (overlap) run under the lock too.
func (s *GormEntryStore) ApplyEdit(ctx context.Context, entryID string, meta AuditMeta, mutate func(view EntryStore, entry *model.TimeEntry) error) (*model.TimeEntry, *model.AuditRecord, error) {
	var (
		updated model.TimeEntry
		audit   model.AuditRecord
	)
	err := s.withRetry(ctx, func(tx *gorm.DB) error {
		var entries []model.TimeEntry
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", entryID).
			Limit(1).
			Find(&entries).Error
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return ErrEntryNotFound
		}

		entry := entries[0]
		if entry.Locked() && !meta.Force {
			return ErrEntryLocked
		}

		before, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("snapshot before: %w", err)
		}

		prevIn, prevOut := entry.ClockInAt, entry.ClockOutAt
		if err := mutate(&GormEntryStore{DB: tx}, &entry); err != nil {
			return err
		}

		entry.Version++
		if timeFieldsChanged(prevIn, prevOut, entry.ClockInAt, entry.ClockOutAt) {
			entry.Approved = false
		}

		after, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("snapshot after: %w", err)
		}

		if err := tx.Save(&entry).Error; err != nil {
			return err
		}

		record := model.AuditRecord{
			ID:         uuid.NewString(),
			EntryID:    entry.ID,
			EditedBy:   meta.ActorID,
			EditReason: meta.Reason,
			Before:     before,
			After:      after,
			ForceEdit:  meta.Force,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		updated = entry
		audit = record
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &updated, &audit, nil
}

func timeFieldsChanged(prevIn time.Time, prevOut *time.Time, newIn time.Time, newOut *time.Time) bool {
	if !prevIn.Equal(newIn) {
		return true
	}
	switch {
	case prevOut == nil && newOut == nil:
		return false
	case prevOut == nil || newOut == nil:
		return true
	default:
		return !prevOut.Equal(*newOut)
	}
}
