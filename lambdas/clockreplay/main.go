package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	v1 "crewclock.app/crewclock/api/v1"
	"crewclock.app/crewclock/infrastructure/communication"
	"crewclock.app/crewclock/infrastructure/filesystem"
	"crewclock.app/crewclock/lambdas/clockreplay/helper"
	"crewclock.app/crewclock/security"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
)

type ReplayStats struct {
	Total    int `json:"total"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
	Errors   int `json:"errors"`
}

// ReplayFile pushes every punch in one buffered CSV through the admission
// API. Each row keeps its device-issued client event id, so a row already
// admitted on a previous run gets its recorded decision back instead of
// double-punching. A row that errors is logged and skipped; the engine stays
// the only judge of what gets in.
func ReplayFile(ctx context.Context, bucket, key string) (ReplayStats, error) {
	var stats ReplayStats

	fmt.Printf("[INFO] Replaying file s3://%s/%s\n", bucket, key)

	var buf bytes.Buffer
	if err := filesystem.ReadFile(bucket, key, ctx, &buf); err != nil {
		return stats, fmt.Errorf("failed to read replay file: %w", err)
	}

	records, err := helper.ParseReplayCSV(&buf)
	if err != nil {
		return stats, fmt.Errorf("failed to parse replay file: %w", err)
	}
	helper.SortByRequestedAt(records)
	stats.Total = len(records)
	fmt.Printf("[INFO] Parsed %d punches\n", len(records))

	token, err := security.CreateIdentityToken(&security.CrewIdentity{
		Code:    "replay",
		Company: os.Getenv("CREWCLOCK_COMPANY"),
		Role:    security.RoleService,
	}, os.Getenv("CREWCLOCK_SIGNING_SECRET"), 3600)
	if err != nil {
		return stats, fmt.Errorf("failed to create service token: %w", err)
	}

	client := v1.NewCrewclockClient(os.Getenv("CREWCLOCK_API_URL"), token)

	for _, record := range records {
		workerID := record.WorkerID
		decision, err := client.Clock.RequestClock(&v1.ClockRequestDTO{
			JobID:         record.JobID,
			Kind:          record.Kind,
			ClientEventID: record.ClientEventID,
			RequestedAt:   record.RequestedAt,
			Location: v1.LocationDTO{
				Lat:            record.Lat,
				Lng:            record.Lng,
				AccuracyMeters: record.AccuracyMeters,
			},
			WorkerID: &workerID,
		})
		if err != nil {
			fmt.Printf("[ERROR] punch %s failed: %v\n", record.ClientEventID, err)
			stats.Errors++
			continue
		}

		if decision.Status == "accepted" {
			stats.Accepted++
		} else {
			fmt.Printf("[WARN] punch %s rejected (%s): %s\n", record.ClientEventID, decision.Reason, decision.Message)
			stats.Rejected++
		}
	}

	fmt.Printf("[INFO] Replay done: %d accepted, %d rejected, %d errors\n",
		stats.Accepted, stats.Rejected, stats.Errors)
	return stats, nil
}

func HandleRequest(ctx context.Context, event events.S3Event) (map[string]ReplayStats, error) {
	results := make(map[string]ReplayStats)
	slack := communication.ConnectSlack()

	for _, record := range event.Records {
		bucket := record.S3.Bucket.Name
		key := record.S3.Object.Key

		stats, err := ReplayFile(ctx, bucket, key)
		if err != nil {
			fmt.Printf("[ERROR] replay of %s failed: %v\n", key, err)
			if slackErr := slack.Error(fmt.Sprintf("clock replay of %s failed: %v", key, err)); slackErr != nil {
				fmt.Printf("[WARN] failed to notify Slack: %v\n", slackErr)
			}
			continue
		}
		results[key] = stats

		msg := fmt.Sprintf("clock replay %s: %d punches, %d accepted, %d rejected, %d errors",
			key, stats.Total, stats.Accepted, stats.Rejected, stats.Errors)
		if err := slack.Info(msg); err != nil {
			fmt.Printf("[WARN] failed to notify Slack: %v\n", err)
		}
	}

	return results, nil
}

func main() {
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		lambda.Start(HandleRequest)
	} else {
		// Local run against a file already in the bucket.
		bucket := os.Getenv("CREWCLOCK_REPLAY_BUCKET")
		key := os.Getenv("CREWCLOCK_REPLAY_KEY")
		stats, err := ReplayFile(context.Background(), bucket, key)
		if err != nil {
			fmt.Printf("[ERROR] %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("[SUCCESS] %+v\n", stats)
	}
}
