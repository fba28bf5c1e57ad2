package model

import "time"

// Clock event kinds.
const (
	KindIn  = "IN"
	KindOut = "OUT"
)

// Clock event outcomes.
const (
	OutcomeAccepted  = "accepted"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
	OutcomeDuplicate = "duplicate-resolved"
)

// ClockEvent records one physical clock attempt, whatever its outcome. The
// table is append-only; rows are never updated or deleted. A retried attempt
// that reused a client event id gets its own row with outcome
// "duplicate-resolved" rather than being reprocessed.
type ClockEvent struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	WorkerID        int32     `gorm:"column:worker_id;not null;index" json:"workerId"`
	CompanyID       string    `gorm:"column:company_id;size:64;not null" json:"companyId"`
	JobID           int32     `gorm:"column:job_id;not null" json:"jobId"`
	Kind            string    `gorm:"column:kind;size:8;not null" json:"kind"`
	ClientEventID   string    `gorm:"column:client_event_id;size:64;not null;index" json:"clientEventId"`
	RequestedAt     time.Time `gorm:"column:requested_at;not null" json:"requestedAt"`
	Lat             float64   `gorm:"column:lat" json:"lat"`
	Lng             float64   `gorm:"column:lng" json:"lng"`
	AccuracyMeters  float64   `gorm:"column:accuracy_meters" json:"accuracyMeters"`
	Outcome         string    `gorm:"column:outcome;size:32;not null" json:"outcome"`
	RejectionReason *string   `gorm:"column:rejection_reason;size:64" json:"rejectionReason,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;<-:create" json:"createdAt"`
}

func (ClockEvent) TableName() string {
	return "clock_events"
}
