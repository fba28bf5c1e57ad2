package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Exception tags carried on a time entry.
const (
	TagGeofenceOut = "geofence_out"
	TagAutoClosed  = "auto_closed"
	TagCancelled   = "cancelled"
)

// ExceptionTags is a set of tag strings stored as a comma-joined column.
type ExceptionTags []string

func (t ExceptionTags) Value() (driver.Value, error) {
	if len(t) == 0 {
		return "", nil
	}
	return strings.Join(t, ","), nil
}

func (t *ExceptionTags) Scan(value interface{}) error {
	var s string
	switch v := value.(type) {
	case nil:
		*t = nil
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into ExceptionTags", value)
	}
	if s == "" {
		*t = nil
		return nil
	}
	*t = strings.Split(s, ",")
	return nil
}

func (t ExceptionTags) Has(tag string) bool {
	for _, existing := range t {
		if existing == tag {
			return true
		}
	}
	return false
}

// Add returns the set with tag present, without duplicating it.
func (t ExceptionTags) Add(tag string) ExceptionTags {
	if t.Has(tag) {
		return t
	}
	return append(t, tag)
}

// TimeEntry is the authoritative record of a worked shift. Rows are only ever
// written by the admission engine, the edit path and the closeout sweep, and
// are never hard-deleted: cancellation is an exception tag.
type TimeEntry struct {
	ID            string        `gorm:"primaryKey;size:36" json:"id"`
	WorkerID      int32         `gorm:"column:worker_id;not null;index" json:"workerId"`
	CompanyID     string        `gorm:"column:company_id;size:64;not null" json:"companyId"`
	JobID         int32         `gorm:"column:job_id;not null;index" json:"jobId"`
	ClockInAt     time.Time     `gorm:"column:clock_in_at;not null" json:"clockInAt"`
	ClockOutAt    *time.Time    `gorm:"column:clock_out_at;index" json:"clockOutAt,omitempty"`
	GeoOkIn       bool          `gorm:"column:geo_ok_in;not null" json:"geoOkIn"`
	GeoOkOut      *bool         `gorm:"column:geo_ok_out" json:"geoOkOut,omitempty"`
	ExceptionTags ExceptionTags `gorm:"column:exception_tags;size:255" json:"exceptionTags"`
	Approved      bool          `gorm:"column:approved;not null" json:"approved"`
	InvoiceID     *int32        `gorm:"column:invoice_id" json:"invoiceId,omitempty"`
	Version       int32         `gorm:"column:version;not null" json:"version"`

	CreatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;<-:create" json:"createdAt"`
	UpdatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP on update CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (TimeEntry) TableName() string {
	return "time_entries"
}

// Open reports whether the entry has no clock-out yet.
func (e *TimeEntry) Open() bool {
	return e.ClockOutAt == nil
}

// Locked reports whether the entry has been picked up by billing. A locked
// entry only changes through a forced, audited edit.
func (e *TimeEntry) Locked() bool {
	return e.InvoiceID != nil
}
