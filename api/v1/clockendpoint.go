package v1

import (
	"encoding/json"
	"fmt"
	"time"

	"crewclock.app/crewclock/api/v1/common"
)

type LocationDTO struct {
	Lat            float64 `json:"lat"`
	Lng            float64 `json:"lng"`
	AccuracyMeters float64 `json:"accuracyMeters"`
}

type ClockRequestDTO struct {
	JobID         int32       `json:"jobId"`
	Kind          string      `json:"kind"`
	ClientEventID string      `json:"clientEventId"`
	RequestedAt   time.Time   `json:"requestedAt"`
	Location      LocationDTO `json:"location"`
	WorkerID      *int32      `json:"workerId,omitempty"`
}

type DecisionDTO struct {
	Status                string   `json:"status"`
	EntryID               string   `json:"entryId,omitempty"`
	Reason                string   `json:"reason,omitempty"`
	Message               string   `json:"message,omitempty"`
	DistanceMeters        float64  `json:"distanceMeters,omitempty"`
	EffectiveRadiusMeters float64  `json:"effectiveRadiusMeters,omitempty"`
	Warnings              []string `json:"warnings,omitempty"`
}

type ClockEndpoint struct {
	transport *Transport
}

// RequestClock posts one punch and returns the engine's decision, whether
// the server accepted it or not.
func (this *ClockEndpoint) RequestClock(dto *ClockRequestDTO) (*DecisionDTO, error) {
	resp, err := this.transport.Post("/api/v1/clock", dto, nil)
	if err != nil {
		return nil, err
	}

	var result common.APIResponse[*DecisionDTO]
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, err
	}
	if result.Data == nil {
		return nil, fmt.Errorf("clock request refused (%d): %s", resp.StatusCode, result.Message)
	}

	return result.Data, nil
}
