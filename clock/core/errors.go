package core

import (
	"errors"
	"fmt"
)

// RejectReason is the caller-visible taxonomy for refused clock attempts and
// edits.
type RejectReason string

const (
	ReasonNotAssigned      RejectReason = "not-assigned"
	ReasonGeofence         RejectReason = "geofence"
	ReasonLowAccuracy      RejectReason = "low-accuracy"
	ReasonAlreadyClockedIn RejectReason = "already-clocked-in"
	ReasonNotClockedIn     RejectReason = "not-clocked-in"
	ReasonOverlap          RejectReason = "overlap"
	ReasonLocked           RejectReason = "locked"
	ReasonInvalidInput     RejectReason = "invalid-input"
	ReasonConflict         RejectReason = "conflict"
)

// Entry store sentinels.
var (
	ErrOpenEntryExists = errors.New("worker already has an open entry")
	ErrNoOpenEntry     = errors.New("no open entry for worker")
	ErrEntryNotFound   = errors.New("time entry not found")
	ErrCloseBeforeOpen = errors.New("clock-out must be after clock-in")
	ErrEntryLocked     = errors.New("time entry is locked by an invoice")
	ErrOverlap         = errors.New("edited window overlaps another entry")
	ErrConflict        = errors.New("transaction contention, retry budget exhausted")
)

// EditError is a refused time entry edit.
type EditError struct {
	Reason  RejectReason
	Message string
}

func (e *EditError) Error() string {
	return fmt.Sprintf("edit rejected (%s): %s", e.Reason, e.Message)
}

func rejectEdit(reason RejectReason, format string, args ...any) *EditError {
	return &EditError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}
