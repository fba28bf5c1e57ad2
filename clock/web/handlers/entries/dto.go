package entries

import (
	"time"

	"crewclock.app/crewclock/clock/model"
)

type TimeEntryDTO struct {
	ID            string     `json:"id"`
	WorkerID      int32      `json:"workerId"`
	JobID         int32      `json:"jobId"`
	ClockInAt     time.Time  `json:"clockInAt"`
	ClockOutAt    *time.Time `json:"clockOutAt,omitempty"`
	GeoOkIn       bool       `json:"geoOkIn"`
	GeoOkOut      *bool      `json:"geoOkOut,omitempty"`
	ExceptionTags []string   `json:"exceptionTags"`
	Approved      bool       `json:"approved"`
	InvoiceID     *int32     `json:"invoiceId,omitempty"`
	Version       int32      `json:"version"`
}

type AuditRecordDTO struct {
	ID         string    `json:"id"`
	EditedBy   int32     `json:"editedBy"`
	EditReason string    `json:"editReason"`
	ForceEdit  bool      `json:"forceEdit"`
	CreatedAt  time.Time `json:"createdAt"`
}

type TimeEntryDetailDTO struct {
	TimeEntryDTO
	AuditRecords []AuditRecordDTO `json:"auditRecords"`
}

type TimeEntryUpdateDTO struct {
	ClockInAt     *time.Time `json:"clockInAt,omitempty"`
	ClockOutAt    *time.Time `json:"clockOutAt,omitempty"`
	ClearClockOut bool       `json:"clearClockOut,omitempty"`
	JobID         *int32     `json:"jobId,omitempty"`
	ExceptionTags *[]string  `json:"exceptionTags,omitempty"`
	Approved      *bool      `json:"approved,omitempty"`

	EditReason string `json:"editReason" binding:"required,min=3,max=500"`
	Force      bool   `json:"force,omitempty"`
}

func toDTO(entry *model.TimeEntry) TimeEntryDTO {
	tags := entry.ExceptionTags
	if tags == nil {
		tags = model.ExceptionTags{}
	}
	return TimeEntryDTO{
		ID:            entry.ID,
		WorkerID:      entry.WorkerID,
		JobID:         entry.JobID,
		ClockInAt:     entry.ClockInAt,
		ClockOutAt:    entry.ClockOutAt,
		GeoOkIn:       entry.GeoOkIn,
		GeoOkOut:      entry.GeoOkOut,
		ExceptionTags: tags,
		Approved:      entry.Approved,
		InvoiceID:     entry.InvoiceID,
		Version:       entry.Version,
	}
}

