package model

import "time"

// IdempotencyRecord stores the serialized decision produced for a client
// event id, so a replayed request returns the original result without
// reprocessing. Rows are retained past any plausible client retry window
// (48h by default) and purged by the closeout sweep.
type IdempotencyRecord struct {
	ClientEventID string    `gorm:"primaryKey;size:64" json:"clientEventId"`
	WorkerID      int32     `gorm:"column:worker_id;not null;index" json:"workerId"`
	Result        []byte    `gorm:"column:result;type:json" json:"-"`
	CreatedAt     time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;<-:create" json:"createdAt"`
	ExpiresAt     time.Time `gorm:"column:expires_at;not null;index" json:"expiresAt"`
}

func (IdempotencyRecord) TableName() string {
	return "idempotency_records"
}
