package model

import "time"

// Job is a work site with a circular geofence. Jobs and assignments are
// maintained by the surrounding back office; the engine only reads them.
type Job struct {
	JobID        int32    `gorm:"primaryKey;column:job_id" json:"jobId"`
	JobNo        string   `gorm:"column:job_no;size:32" json:"jobNo"`
	Description  string   `gorm:"column:description;size:255" json:"description"`
	CenterLat    float64  `gorm:"column:center_lat" json:"centerLat"`
	CenterLng    float64  `gorm:"column:center_lng" json:"centerLng"`
	RadiusMeters *float64 `gorm:"column:radius_meters" json:"radiusMeters,omitempty"`
}

func (Job) TableName() string {
	return "jobs"
}

// Assignment links a worker to a job for a window of time. A nil EndsAt means
// the assignment is open-ended.
type Assignment struct {
	ID       int32      `gorm:"primaryKey" json:"id"`
	WorkerID int32      `gorm:"column:worker_id;not null;index" json:"workerId"`
	JobID    int32      `gorm:"column:job_id;not null;index" json:"jobId"`
	StartsAt time.Time  `gorm:"column:starts_at;not null" json:"startsAt"`
	EndsAt   *time.Time `gorm:"column:ends_at" json:"endsAt,omitempty"`
}

func (Assignment) TableName() string {
	return "assignments"
}

// Worker mirrors the directory's view of a field worker.
type Worker struct {
	WorkerID  int32  `gorm:"primaryKey;column:worker_id" json:"workerId"`
	Code      string `gorm:"column:code;size:32" json:"code"`
	FirstName string `gorm:"column:first_name;size:64" json:"firstName"`
	Surname   string `gorm:"column:surname;size:64" json:"surname"`
	Email     string `gorm:"column:email;size:255" json:"email"`
}

func (Worker) TableName() string {
	return "workers"
}
