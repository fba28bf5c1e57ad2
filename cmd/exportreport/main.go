package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"crewclock.app/crewclock/clock/model"
	"crewclock.app/crewclock/core"
	"crewclock.app/crewclock/infrastructure/communication"
	"crewclock.app/crewclock/infrastructure/filesystem"
	"crewclock.app/crewclock/utils"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type reportRow struct {
	EntryID       string
	WorkerCode    string
	WorkerName    string
	JobNo         string
	ClockInAt     time.Time
	ClockOutAt    *time.Time
	Hours         *float64
	ExceptionTags string
	Approved      bool
	Invoiced      bool
}

// Exports a date range of time entries for one company to xlsx, flagging
// exceptions so payroll can review before approval. Optionally uploads the
// file to S3 and emails it.
func main() {
	company := flag.String("company", "", "company schema")
	from := flag.String("from", "", "start date YYYY-MM-DD (inclusive)")
	to := flag.String("to", "", "end date YYYY-MM-DD (inclusive)")
	out := flag.String("out", "report.xlsx", "output file")
	bucket := flag.String("bucket", "", "optional S3 bucket to upload to")
	email := flag.String("email", "", "optional address to email the report to")
	flag.Parse()

	if *company == "" || *from == "" || *to == "" {
		fmt.Println("company, from and to are required")
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

	var rows []reportRow
	err = dm.Exec(ctx, *company, func(db *gorm.DB) error {
		var entries []model.TimeEntry
		if err := db.Where("clock_in_at >= ? AND clock_in_at < ?", fromDate, toDate).
			Order("worker_id, clock_in_at").
			Find(&entries).Error; err != nil {
			return err
		}

		var workers []model.Worker
		if err := db.Find(&workers).Error; err != nil {
			return err
		}
		workersByID := utils.IndexBy(workers, func(w model.Worker) int32 { return w.WorkerID })

		var jobs []model.Job
		if err := db.Find(&jobs).Error; err != nil {
			return err
		}
		jobsByID := utils.IndexBy(jobs, func(j model.Job) int32 { return j.JobID })

		for _, entry := range entries {
			row := reportRow{
				EntryID:       entry.ID,
				ClockInAt:     entry.ClockInAt,
				ClockOutAt:    entry.ClockOutAt,
				ExceptionTags: strings.Join(entry.ExceptionTags, ", "),
				Approved:      entry.Approved,
				Invoiced:      entry.InvoiceID != nil,
			}
			if w, ok := workersByID[entry.WorkerID]; ok {
				row.WorkerCode = w.Code
				row.WorkerName = w.FirstName + " " + w.Surname
			}
			if j, ok := jobsByID[entry.JobID]; ok {
				row.JobNo = j.JobNo
			}
			if entry.ClockOutAt != nil {
				hours := entry.ClockOutAt.Sub(entry.ClockInAt).Hours()
				row.Hours = &hours
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		fmt.Printf("[ERROR] %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("[INFO] exporting %d entries\n", len(rows))

	content, err := buildWorkbook(rows)
	if err != nil {
		fmt.Printf("[ERROR] failed to build workbook: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*out, content, 0644); err != nil {
		fmt.Printf("[ERROR] failed to write %s: %v\n", *out, err)
		os.Exit(1)
	}
	fmt.Printf("[INFO] wrote %s\n", *out)

	filename := fmt.Sprintf("%s/time-entries-%s-to-%s.xlsx", *company, *from, *to)
	if *bucket != "" {
		if err := filesystem.WriteFile(*bucket, filename, ctx, content); err != nil {
			fmt.Printf("[ERROR] failed to upload to S3: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("[INFO] uploaded s3://%s/%s\n", *bucket, filename)
	}

	if *email != "" {
		exceptions := utils.Filter(rows, func(r reportRow) bool { return r.ExceptionTags != "" })
		err := communication.SendEmail(ctx, &communication.EmailInfo{
			From:    os.Getenv("CREWCLOCK_REPORT_FROM"),
			To:      []string{*email},
			Subject: fmt.Sprintf("Time entry report %s (%s to %s)", *company, *from, *to),
			Text:    fmt.Sprintf("%d entries attached, %d flagged with exception tags for review.", len(rows), len(exceptions)),
			Attachments: []communication.EmailAttachment{{
				Filename:    "time-entries.xlsx",
				ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
				Content:     content,
			}},
		})
		if err != nil {
			fmt.Printf("[ERROR] failed to email report: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("[INFO] emailed report to %s\n", *email)
	}
}

func buildWorkbook(rows []reportRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Entries"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Entry ID", "Worker", "Name", "Job", "Clock In", "Clock Out", "Hours", "Exceptions", "Approved", "Invoiced"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for r, row := range rows {
		values := []interface{}{
			row.EntryID,
			row.WorkerCode,
			row.WorkerName,
			row.JobNo,
			row.ClockInAt.Format(time.RFC3339),
			"",
			"",
			row.ExceptionTags,
			row.Approved,
			row.Invoiced,
		}
		if row.ClockOutAt != nil {
			values[5] = row.ClockOutAt.Format(time.RFC3339)
		}
		if row.Hours != nil {
			values[6] = *row.Hours
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
