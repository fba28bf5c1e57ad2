package model

import "time"

// AuditRecord snapshots a time entry before and after an edit. Exactly one
// record is written per edit, atomically with the entry update, and records
// are immutable once written.
type AuditRecord struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	EntryID    string    `gorm:"column:entry_id;size:36;not null;index" json:"entryId"`
	EditedBy   int32     `gorm:"column:edited_by;not null" json:"editedBy"`
	EditReason string    `gorm:"column:edit_reason;size:500;not null" json:"editReason"`
	Before     []byte    `gorm:"column:before_snapshot;type:json" json:"-"`
	After      []byte    `gorm:"column:after_snapshot;type:json" json:"-"`
	ForceEdit  bool      `gorm:"column:force_edit;not null" json:"forceEdit"`
	CreatedAt  time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;<-:create" json:"createdAt"`
}

func (AuditRecord) TableName() string {
	return "audit_records"
}
