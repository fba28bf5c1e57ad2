package core

import (
	"context"
	"errors"
	"fmt"

	"crewclock.app/crewclock/clock/model"
	"crewclock.app/crewclock/core/geo"
	"github.com/google/uuid"
)

// RequestClock decides a single clock attempt. The order is deliberate:
// idempotency first (cheapest, and replays must not re-validate), then
// assignment, then geometry, then the transactional write. The ledger record
// and the event append happen after the transaction commits, so a crash in
// between can at worst duplicate an append-only log row, never the
// authoritative state.
//
// Only accepted decisions are recorded in the ledger: a rejection changes no
// state, and the client is expected to retry the same token once the
// condition has changed (e.g. after walking into range).
func (e *Engine) RequestClock(ctx context.Context, req ClockRequest) (*Decision, error) {
	if prior, found, err := e.Ledger.Lookup(ctx, req.ClientEventID); err != nil {
		return nil, fmt.Errorf("idempotency lookup: %w", err)
	} else if found {
		// The recorded decision is returned verbatim, so retries observe the
		// exact same response. The replay itself is visible only as a
		// duplicate-resolved row in the event log.
		e.appendEvent(ctx, req, model.OutcomeDuplicate, "")
		return prior, nil
	}

	if msg := validateRequest(req); msg != "" {
		return e.reject(ctx, req, ReasonInvalidInput, msg, 0, 0)
	}

	job, assigned, err := e.Directory.ActiveAssignment(ctx, req.WorkerID, req.JobID, req.RequestedAt)
	if err != nil {
		e.appendEvent(ctx, req, model.OutcomeError, "")
		return nil, fmt.Errorf("assignment lookup: %w", err)
	}
	if !assigned {
		return e.reject(ctx, req, ReasonNotAssigned,
			fmt.Sprintf("worker %d has no active assignment to job %d", req.WorkerID, req.JobID), 0, 0)
	}

	radius := geo.EffectiveRadius(job.RadiusMeters, req.AccuracyMeters)
	inside, distance, err := geo.WithinGeofence(
		geo.Point{Lat: req.Lat, Lng: req.Lng},
		geo.Point{Lat: job.CenterLat, Lng: job.CenterLng},
		radius,
	)
	if err != nil {
		return e.reject(ctx, req, ReasonInvalidInput, err.Error(), 0, 0)
	}

	var decision *Decision
	switch req.Kind {
	case model.KindIn:
		decision, err = e.admitClockIn(ctx, req, inside, distance, radius)
	case model.KindOut:
		decision, err = e.admitClockOut(ctx, req, inside, distance, radius)
	}
	if err != nil || decision.Status == StatusRejected {
		return decision, err
	}

	// Post-commit bookkeeping. Failures here are logged via the event outcome
	// only; the authoritative write already succeeded.
	if err := e.Ledger.Record(ctx, req.ClientEventID, req.WorkerID, decision, e.Config.IdempotencyTTL); err != nil {
		fmt.Printf("[WARN] failed to record idempotency for %s: %v\n", req.ClientEventID, err)
	}
	e.appendEvent(ctx, req, model.OutcomeAccepted, "")
	return decision, nil
}

// Clock-in is a hard gate: outside the geofence or above the accuracy
// ceiling, no entry is created.
func (e *Engine) admitClockIn(ctx context.Context, req ClockRequest, inside bool, distance, radius float64) (*Decision, error) {
	if req.AccuracyMeters > e.Config.AccuracyCeilingMeters {
		return e.reject(ctx, req, ReasonLowAccuracy,
			fmt.Sprintf("reported accuracy %.0fm exceeds the %.0fm ceiling", req.AccuracyMeters, e.Config.AccuracyCeilingMeters),
			distance, radius)
	}
	if !inside {
		return e.reject(ctx, req, ReasonGeofence,
			fmt.Sprintf("%.0fm from the job site, geofence allows %.0fm", distance, radius),
			distance, radius)
	}

	entry := model.TimeEntry{
		ID:        uuid.NewString(),
		WorkerID:  req.WorkerID,
		CompanyID: req.CompanyID,
		JobID:     req.JobID,
		ClockInAt: req.RequestedAt,
		GeoOkIn:   true,
		Version:   1,
	}
	if err := e.Store.CreateOpenEntry(ctx, &entry); err != nil {
		switch {
		case errors.Is(err, ErrOpenEntryExists):
			return e.reject(ctx, req, ReasonAlreadyClockedIn, "worker already has an open entry", distance, radius)
		case errors.Is(err, ErrConflict):
			return e.reject(ctx, req, ReasonConflict, "concurrent clock attempt, please retry", distance, radius)
		default:
			e.appendEvent(ctx, req, model.OutcomeError, "")
			return nil, fmt.Errorf("create open entry: %w", err)
		}
	}

	return &Decision{
		Status:                StatusAccepted,
		EntryID:               entry.ID,
		DistanceMeters:        distance,
		EffectiveRadiusMeters: radius,
	}, nil
}

// Clock-out is a soft gate: a worker who has left the site still gets their
// time recorded, flagged for review rather than blocked. Losing worked time
// is the worse failure mode.
func (e *Engine) admitClockOut(ctx context.Context, req ClockRequest, inside bool, distance, radius float64) (*Decision, error) {
	var tags []string
	var warnings []string
	if !inside {
		tags = append(tags, model.TagGeofenceOut)
		warnings = append(warnings,
			fmt.Sprintf("clock-out recorded %.0fm outside the geofence and flagged for review", distance-radius))
	}

	entry, err := e.Store.CloseEntry(ctx, req.WorkerID, req.JobID, req.RequestedAt, inside, tags)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoOpenEntry):
			return e.reject(ctx, req, ReasonNotClockedIn, "no open entry for this worker and job", distance, radius)
		case errors.Is(err, ErrCloseBeforeOpen):
			return e.reject(ctx, req, ReasonInvalidInput, err.Error(), distance, radius)
		case errors.Is(err, ErrConflict):
			return e.reject(ctx, req, ReasonConflict, "concurrent clock attempt, please retry", distance, radius)
		default:
			e.appendEvent(ctx, req, model.OutcomeError, "")
			return nil, fmt.Errorf("close entry: %w", err)
		}
	}

	return &Decision{
		Status:                StatusAccepted,
		EntryID:               entry.ID,
		DistanceMeters:        distance,
		EffectiveRadiusMeters: radius,
		Warnings:              warnings,
	}, nil
}

func (e *Engine) reject(ctx context.Context, req ClockRequest, reason RejectReason, message string, distance, radius float64) (*Decision, error) {
	e.appendEvent(ctx, req, model.OutcomeRejected, string(reason))
	return &Decision{
		Status:                StatusRejected,
		Reason:                reason,
		Message:               message,
		DistanceMeters:        distance,
		EffectiveRadiusMeters: radius,
	}, nil
}

func (e *Engine) appendEvent(ctx context.Context, req ClockRequest, outcome, reason string) {
	event := model.ClockEvent{
		ID:             uuid.NewString(),
		WorkerID:       req.WorkerID,
		CompanyID:      req.CompanyID,
		JobID:          req.JobID,
		Kind:           req.Kind,
		ClientEventID:  req.ClientEventID,
		RequestedAt:    req.RequestedAt,
		Lat:            req.Lat,
		Lng:            req.Lng,
		AccuracyMeters: req.AccuracyMeters,
		Outcome:        outcome,
	}
	if reason != "" {
		event.RejectionReason = &reason
	}
	if err := e.Events.Append(ctx, &event); err != nil {
		// The event log is the audit trail, not the authority; an append
		// failure must not fail the request.
		fmt.Printf("[WARN] failed to append clock event %s: %v\n", req.ClientEventID, err)
	}
}

func validateRequest(req ClockRequest) string {
	if req.Kind != model.KindIn && req.Kind != model.KindOut {
		return fmt.Sprintf("kind must be %s or %s", model.KindIn, model.KindOut)
	}
	if req.ClientEventID == "" {
		return "clientEventId is required"
	}
	if req.RequestedAt.IsZero() {
		return "requestedAt is required"
	}
	if err := (geo.Point{Lat: req.Lat, Lng: req.Lng}).Validate(); err != nil {
		return err.Error()
	}
	if req.AccuracyMeters < 0 {
		return "accuracyMeters must not be negative"
	}
	return ""
}

