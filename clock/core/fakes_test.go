package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"crewclock.app/crewclock/clock/model"
	"github.com/google/uuid"
)

type fakeDirectory struct {
	jobs     map[int32]model.Job
	assigned map[string]bool
}

func assignmentKey(workerID, jobID int32) string {
	return fmt.Sprintf("%d:%d", workerID, jobID)
}

func (d *fakeDirectory) ActiveAssignment(_ context.Context, workerID, jobID int32, _ time.Time) (*model.Job, bool, error) {
	if !d.assigned[assignmentKey(workerID, jobID)] {
		return nil, false, nil
	}
	job, ok := d.jobs[jobID]
	if !ok {
		return nil, false, nil
	}
	return &job, true, nil
}

type fakeLedger struct {
	records map[string]Decision
	purged  int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{records: make(map[string]Decision)}
}

func (l *fakeLedger) Lookup(_ context.Context, clientEventID string) (*Decision, bool, error) {
	d, ok := l.records[clientEventID]
	if !ok {
		return nil, false, nil
	}
	return &d, true, nil
}

func (l *fakeLedger) Record(_ context.Context, clientEventID string, _ int32, d *Decision, _ time.Duration) error {
	if _, exists := l.records[clientEventID]; !exists {
		l.records[clientEventID] = *d
	}
	return nil
}

func (l *fakeLedger) PurgeExpired(_ context.Context, _ time.Time) (int64, error) {
	return l.purged, nil
}

type fakeStore struct {
	entries map[string]*model.TimeEntry
	audits  []model.AuditRecord
	failIDs map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entries: make(map[string]*model.TimeEntry),
		failIDs: make(map[string]error),
	}
}

func (s *fakeStore) add(entry model.TimeEntry) {
	cp := entry
	s.entries[entry.ID] = &cp
}

func (s *fakeStore) CreateOpenEntry(_ context.Context, entry *model.TimeEntry) error {
	for _, existing := range s.entries {
		if existing.WorkerID == entry.WorkerID && existing.Open() {
			return ErrOpenEntryExists
		}
	}
	cp := *entry
	s.entries[entry.ID] = &cp
	return nil
}

func (s *fakeStore) CloseEntry(_ context.Context, workerID, jobID int32, at time.Time, geoOk bool, tags []string) (*model.TimeEntry, error) {
	for _, entry := range s.entries {
		if entry.WorkerID != workerID || entry.JobID != jobID || !entry.Open() {
			continue
		}
		if !at.After(entry.ClockInAt) {
			return nil, ErrCloseBeforeOpen
		}
		out := at
		entry.ClockOutAt = &out
		entry.GeoOkOut = &geoOk
		for _, tag := range tags {
			entry.ExceptionTags = entry.ExceptionTags.Add(tag)
		}
		cp := *entry
		return &cp, nil
	}
	return nil, ErrNoOpenEntry
}

func (s *fakeStore) GetOpenEntry(_ context.Context, workerID int32) (*model.TimeEntry, error) {
	for _, entry := range s.entries {
		if entry.WorkerID == workerID && entry.Open() {
			cp := *entry
			return &cp, nil
		}
	}
	return nil, ErrNoOpenEntry
}

func (s *fakeStore) GetEntry(_ context.Context, entryID string) (*model.TimeEntry, error) {
	entry, ok := s.entries[entryID]
	if !ok {
		return nil, ErrEntryNotFound
	}
	cp := *entry
	return &cp, nil
}

func (s *fakeStore) OverlapExists(_ context.Context, workerID int32, excludeEntryID string, start, end time.Time) (bool, error) {
	for _, entry := range s.entries {
		if entry.WorkerID != workerID || entry.ID == excludeEntryID {
			continue
		}
		entryEnd := farFuture(entry.ClockOutAt)
		if entry.ClockInAt.Before(end) && entryEnd.After(start) {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) StaleOpenEntries(_ context.Context, openedBefore time.Time, limit int) ([]model.TimeEntry, error) {
	var stale []model.TimeEntry
	for _, entry := range s.entries {
		if entry.Open() && entry.ClockInAt.Before(openedBefore) {
			stale = append(stale, *entry)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].ClockInAt.Before(stale[j].ClockInAt) })
	if len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

func (s *fakeStore) ApplyEdit(_ context.Context, entryID string, meta AuditMeta, mutate func(view EntryStore, entry *model.TimeEntry) error) (*model.TimeEntry, *model.AuditRecord, error) {
	if err, ok := s.failIDs[entryID]; ok {
		return nil, nil, err
	}
	entry, ok := s.entries[entryID]
	if !ok {
		return nil, nil, ErrEntryNotFound
	}
	if entry.Locked() && !meta.Force {
		return nil, nil, ErrEntryLocked
	}

	before, _ := json.Marshal(entry)
	cp := *entry
	prevIn, prevOut := cp.ClockInAt, cp.ClockOutAt
	if err := mutate(s, &cp); err != nil {
		return nil, nil, err
	}
	cp.Version++
	if timeFieldsChanged(prevIn, prevOut, cp.ClockInAt, cp.ClockOutAt) {
		cp.Approved = false
	}
	after, _ := json.Marshal(cp)

	record := model.AuditRecord{
		ID:         uuid.NewString(),
		EntryID:    cp.ID,
		EditedBy:   meta.ActorID,
		EditReason: meta.Reason,
		Before:     before,
		After:      after,
		ForceEdit:  meta.Force,
	}
	s.entries[entryID] = &cp
	s.audits = append(s.audits, record)

	result := cp
	return &result, &record, nil
}

type fakeEvents struct {
	events []model.ClockEvent
}

func (e *fakeEvents) Append(_ context.Context, event *model.ClockEvent) error {
	e.events = append(e.events, *event)
	return nil
}

func (e *fakeEvents) last() *model.ClockEvent {
	if len(e.events) == 0 {
		return nil
	}
	return &e.events[len(e.events)-1]
}

type fakeNotifier struct {
	infos  []string
	errors []string
}

func (n *fakeNotifier) Info(message string) error {
	n.infos = append(n.infos, message)
	return nil
}

func (n *fakeNotifier) Error(message string) error {
	n.errors = append(n.errors, message)
	return nil
}

// testEngine builds an engine over fakes with one worker (1) assigned to one
// job (10) centred on a Brisbane site with a 100m radius.
func testEngine() (*Engine, *fakeStore, *fakeLedger, *fakeEvents, *fakeNotifier) {
	store := newFakeStore()
	ledger := newFakeLedger()
	events := &fakeEvents{}
	notifier := &fakeNotifier{}

	dir := &fakeDirectory{
		jobs: map[int32]model.Job{
			10: {
				JobID:        10,
				JobNo:        "J-1001",
				CenterLat:    testSiteLat,
				CenterLng:    testSiteLng,
				RadiusMeters: ptrF(100),
			},
		},
		assigned: map[string]bool{assignmentKey(1, 10): true},
	}

	eng := &Engine{
		Directory: dir,
		Ledger:    ledger,
		Store:     store,
		Events:    events,
		Notifier:  notifier,
		Config:    DefaultConfig(),
		now:       func() time.Time { return testNow },
	}
	return eng, store, ledger, events, notifier
}

const (
	testSiteLat = -27.4698
	testSiteLng = 153.0251
	// ~400m and ~500m due south of the site
	lat400m = testSiteLat - 0.0036
	lat500m = testSiteLat - 0.0045
)

var testNow = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

func ptrF(v float64) *float64 {
	return &v
}
