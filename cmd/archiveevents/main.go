package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"crewclock.app/crewclock/clock/model"
	"crewclock.app/crewclock/core"
	"crewclock.app/crewclock/infrastructure/filesystem"
	"crewclock.app/crewclock/utils"
	"gorm.io/gorm"
)

// Archives a closed month of the clock event log to S3 as CSV. The live
// table is append-only; archiving never deletes, it just makes cold history
// cheap to query outside the database.
func main() {
	company := flag.String("company", "", "company schema")
	from := flag.String("from", "", "start date YYYY-MM-DD (inclusive)")
	to := flag.String("to", "", "end date YYYY-MM-DD (inclusive)")
	bucket := flag.String("bucket", "", "S3 bucket to archive to")
	flag.Parse()

	if *company == "" || *from == "" || *to == "" || *bucket == "" {
		fmt.Println("company, from, to and bucket are required")
		os.Exit(1)
	}
	fromDate := utils.MustParseDate(*from)
	toDate := utils.MustParseDate(*to).AddDate(0, 0, 1)

	ctx := context.Background()
	dsn := os.Getenv("DSN")

	dm, err := core.New(dsn, 5)
	if err != nil {
		fmt.Printf("[ERROR] %v\n", err)
		os.Exit(1)
	}
	defer dm.Close()

	var events []model.ClockEvent
	err = dm.Exec(ctx, *company, func(db *gorm.DB) error {
		return db.Where("created_at >= ? AND created_at < ?", fromDate, toDate).
			Order("created_at").
			Find(&events).Error
	})
	if err != nil {
		fmt.Printf("[ERROR] %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("[INFO] archiving %d events\n", len(events))

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	writer.Write([]string{
		"id", "worker_id", "company_id", "job_id", "kind", "client_event_id",
		"requested_at", "lat", "lng", "accuracy_meters", "outcome", "rejection_reason", "created_at",
	})
	for _, e := range events {
		reason := ""
		if e.RejectionReason != nil {
			reason = *e.RejectionReason
		}
		writer.Write([]string{
			e.ID,
			strconv.Itoa(int(e.WorkerID)),
			e.CompanyID,
			strconv.Itoa(int(e.JobID)),
			e.Kind,
			e.ClientEventID,
			e.RequestedAt.Format(time.RFC3339),
			strconv.FormatFloat(e.Lat, 'f', -1, 64),
			strconv.FormatFloat(e.Lng, 'f', -1, 64),
			strconv.FormatFloat(e.AccuracyMeters, 'f', -1, 64),
			e.Outcome,
			reason,
			e.CreatedAt.Format(time.RFC3339),
		})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		fmt.Printf("[ERROR] failed to encode CSV: %v\n", err)
		os.Exit(1)
	}

	key := fmt.Sprintf("%s/clock-events-%s-to-%s.csv", *company, *from, *to)
	if err := filesystem.WriteFile(*bucket, key, ctx, buf.Bytes()); err != nil {
		fmt.Printf("[ERROR] failed to upload archive: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("[INFO] archived to s3://%s/%s\n", *bucket, key)
}
