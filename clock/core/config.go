package core

import "time"

// Config carries the per-deployment tuning of the engine. The geofence radius
// clamp and accuracy buffer are policy constants in core/geo; everything here
// is expected to vary between deployments.
type Config struct {
	// MaxShift is how long an entry may stay open before the closeout sweep
	// force-closes it.
	MaxShift time.Duration
	// AccuracyCeilingMeters rejects clock-ins whose reported GPS accuracy is
	// worse than this.
	AccuracyCeilingMeters float64
	// SweepBatchSize bounds how many stale entries one sweep pass closes.
	SweepBatchSize int
	// IdempotencyTTL is how long recorded decisions are replayable.
	IdempotencyTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxShift:              16 * time.Hour,
		AccuracyCeilingMeters: 50,
		SweepBatchSize:        100,
		IdempotencyTTL:        48 * time.Hour,
	}
}
