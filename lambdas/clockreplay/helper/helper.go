package helper

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"crewclock.app/crewclock/utils"
)

// ReplayRecord is one buffered punch captured while a device was offline.
// The client event id from the device is preserved so replaying a file twice
// returns the recorded decisions instead of double punching.
type ReplayRecord struct {
	ClientEventID  string
	WorkerID       int32
	JobID          int32
	Kind           string
	RequestedAt    time.Time
	Lat            float64
	Lng            float64
	AccuracyMeters float64
}

// ParseReplayCSV reads a replay file. Expected columns:
// client_event_id,worker_id,job_id,kind,requested_at,lat,lng,accuracy
func ParseReplayCSV(r io.Reader) ([]ReplayRecord, error) {
	rows, err := utils.ParseCSV(r)
	if err != nil {
		return nil, err
	}

	var records []ReplayRecord
	for i, row := range rows {
		if i == 0 {
			continue
		}

		if len(row) < 8 {
			return nil, fmt.Errorf("row %d: expected 8 columns, got %d", i, len(row))
		}

		workerID, err := strconv.Atoi(row[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid worker_id: %w", i, err)
		}
		jobID, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid job_id: %w", i, err)
		}

		kind := row[3]
		if kind != "IN" && kind != "OUT" {
			return nil, fmt.Errorf("row %d: invalid kind %q", i, kind)
		}

		requestedAt, err := time.Parse(time.RFC3339, row[4])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid requested_at: %w", i, err)
		}

		lat, err := strconv.ParseFloat(row[5], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid lat: %w", i, err)
		}
		lng, err := strconv.ParseFloat(row[6], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid lng: %w", i, err)
		}
		accuracy, err := strconv.ParseFloat(row[7], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid accuracy: %w", i, err)
		}

		records = append(records, ReplayRecord{
			ClientEventID:  row[0],
			WorkerID:       int32(workerID),
			JobID:          int32(jobID),
			Kind:           kind,
			RequestedAt:    requestedAt,
			Lat:            lat,
			Lng:            lng,
			AccuracyMeters: accuracy,
		})
	}

	return records, nil
}

// SortByRequestedAt orders punches chronologically so an offline IN/OUT pair
// replays in the order it happened.
func SortByRequestedAt(records []ReplayRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].RequestedAt.Before(records[j].RequestedAt)
	})
}
