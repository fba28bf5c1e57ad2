package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"crewclock.app/crewclock/clock/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLedger persists decisions keyed by client event id.
type GormLedger struct {
	DB *gorm.DB
}

func (l *GormLedger) Lookup(ctx context.Context, clientEventID string) (*Decision, bool, error) {
	var records []model.IdempotencyRecord
	err := l.DB.WithContext(ctx).
		Where("client_event_id = ? AND expires_at > ?", clientEventID, time.Now()).
		Limit(1).
		Find(&records).Error
	if err != nil {
		return nil, false, err
	}
	if len(records) == 0 {
		return nil, false, nil
	}

	var decision Decision
	if err := json.Unmarshal(records[0].Result, &decision); err != nil {
		return nil, false, fmt.Errorf("decode recorded decision: %w", err)
	}
	return &decision, true, nil
}

func (l *GormLedger) Record(ctx context.Context, clientEventID string, workerID int32, d *Decision, ttl time.Duration) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode decision: %w", err)
	}
	record := model.IdempotencyRecord{
		ClientEventID: clientEventID,
		WorkerID:      workerID,
		Result:        payload,
		ExpiresAt:     time.Now().Add(ttl),
	}
	// A concurrent retry may have recorded the same id first; first writer
	// wins and the duplicate insert is a no-op.
	return l.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&record).Error
}

func (l *GormLedger) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res := l.DB.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&model.IdempotencyRecord{})
	return res.RowsAffected, res.Error
}

// GormDirectory reads assignments and jobs maintained by the back office.
type GormDirectory struct {
	DB *gorm.DB
}

// ActiveAssignment returns the job when the worker has an assignment to it
// whose window covers the requested time.
func (d *GormDirectory) ActiveAssignment(ctx context.Context, workerID, jobID int32, at time.Time) (*model.Job, bool, error) {
	var assignments []model.Assignment
	err := d.DB.WithContext(ctx).
		Where("worker_id = ? AND job_id = ?", workerID, jobID).
		Where("starts_at <= ? AND (ends_at IS NULL OR ends_at >= ?)", at, at).
		Limit(1).
		Find(&assignments).Error
	if err != nil {
		return nil, false, err
	}
	if len(assignments) == 0 {
		return nil, false, nil
	}

	var jobs []model.Job
	if err := d.DB.WithContext(ctx).Where("job_id = ?", jobID).Limit(1).Find(&jobs).Error; err != nil {
		return nil, false, err
	}
	if len(jobs) == 0 {
		return nil, false, nil
	}
	return &jobs[0], true, nil
}

// GormEventLog appends raw clock attempts. No invariant spans rows, so
// appends need no locking.
type GormEventLog struct {
	DB *gorm.DB
}

func (l *GormEventLog) Append(ctx context.Context, event *model.ClockEvent) error {
	return l.DB.WithContext(ctx).Create(event).Error
}
