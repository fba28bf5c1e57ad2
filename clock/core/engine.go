package core

import (
	"context"
	"time"

	"crewclock.app/crewclock/clock/model"
	"gorm.io/gorm"
)

// ClockStatus is the top-level outcome of a clock request.
type ClockStatus string

const (
	StatusAccepted ClockStatus = "accepted"
	StatusRejected ClockStatus = "rejected"
)

// ClockRequest is one clock attempt after authentication. ClientEventID is
// the client-generated idempotency token; retries of the same logical attempt
// must reuse it.
type ClockRequest struct {
	WorkerID       int32
	CompanyID      string
	JobID          int32
	Kind           string
	ClientEventID  string
	RequestedAt    time.Time
	Lat            float64
	Lng            float64
	AccuracyMeters float64
}

// Decision is the engine's answer to a clock request. For geofence
// rejections the measured distance and effective radius are included so the
// worker can self-correct.
type Decision struct {
	Status                ClockStatus  `json:"status"`
	EntryID               string       `json:"entryId,omitempty"`
	Reason                RejectReason `json:"reason,omitempty"`
	Message               string       `json:"message,omitempty"`
	DistanceMeters        float64      `json:"distanceMeters,omitempty"`
	EffectiveRadiusMeters float64      `json:"effectiveRadiusMeters,omitempty"`
	Warnings              []string     `json:"warnings,omitempty"`
}

// AssignmentDirectory answers whether a worker is actively assigned to a job,
// and what the job's geofence looks like.
type AssignmentDirectory interface {
	ActiveAssignment(ctx context.Context, workerID, jobID int32, at time.Time) (*model.Job, bool, error)
}

// IdempotencyLedger maps client event ids to previously produced decisions.
type IdempotencyLedger interface {
	Lookup(ctx context.Context, clientEventID string) (*Decision, bool, error)
	Record(ctx context.Context, clientEventID string, workerID int32, d *Decision, ttl time.Duration) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// EventLog is the append-only record of raw attempts.
type EventLog interface {
	Append(ctx context.Context, event *model.ClockEvent) error
}

// AuditMeta describes who is editing an entry and why.
type AuditMeta struct {
	ActorID int32
	Reason  string
	Force   bool
}

// EntryStore is the only writer-of-record for time entries. All mutation
// methods run inside a transaction keyed by the worker's open entry. The
// ApplyEdit mutate callback receives a store view bound to the same
// transaction, so invariant checks made inside it see the locked state, not a
// stale pre-transaction read.
type EntryStore interface {
	CreateOpenEntry(ctx context.Context, entry *model.TimeEntry) error
	CloseEntry(ctx context.Context, workerID, jobID int32, at time.Time, geoOk bool, tags []string) (*model.TimeEntry, error)
	GetOpenEntry(ctx context.Context, workerID int32) (*model.TimeEntry, error)
	GetEntry(ctx context.Context, entryID string) (*model.TimeEntry, error)
	OverlapExists(ctx context.Context, workerID int32, excludeEntryID string, start time.Time, end time.Time) (bool, error)
	StaleOpenEntries(ctx context.Context, openedBefore time.Time, limit int) ([]model.TimeEntry, error)
	ApplyEdit(ctx context.Context, entryID string, meta AuditMeta, mutate func(view EntryStore, entry *model.TimeEntry) error) (*model.TimeEntry, *model.AuditRecord, error)
}

// Notifier pushes operational alerts (sweep summaries, forced edits) to
// whatever channel the deployment wires up. Alerts are best-effort; failures
// never affect the decision.
type Notifier interface {
	Info(message string) error
	Error(message string) error
}

// NopNotifier drops all alerts.
type NopNotifier struct{}

func (NopNotifier) Info(string) error  { return nil }
func (NopNotifier) Error(string) error { return nil }

// Engine orchestrates admission, edits and the closeout sweep for one tenant
// database. It holds no mutable state of its own; all coordination happens
// through the transactional entry store.
type Engine struct {
	Directory AssignmentDirectory
	Ledger    IdempotencyLedger
	Store     EntryStore
	Events    EventLog
	Notifier  Notifier
	Config    Config

	now func() time.Time
}

// NewEngine wires an engine onto a tenant's gorm handle.
func NewEngine(db *gorm.DB, cfg Config, notifier Notifier) *Engine {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Engine{
		Directory: &GormDirectory{DB: db},
		Ledger:    &GormLedger{DB: db},
		Store:     NewGormEntryStore(db),
		Events:    &GormEventLog{DB: db},
		Notifier:  notifier,
		Config:    cfg,
		now:       time.Now,
	}
}

func (e *Engine) clock() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now()
}
