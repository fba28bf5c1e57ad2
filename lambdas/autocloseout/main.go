package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	clockcore "crewclock.app/crewclock/clock/core"
	"crewclock.app/crewclock/core"
	"crewclock.app/crewclock/infrastructure/communication"
	"crewclock.app/crewclock/infrastructure/devops"
	"crewclock.app/crewclock/lambdas/common"
	"github.com/aws/aws-lambda-go/lambda"
	"gorm.io/gorm"
)

type SweepEvent struct {
	Databases *[]string `json:"databases"`
	DryRun    bool      `json:"dryRun"`
	Env       string    `json:"env"`
}

type SchemaSweepResult struct {
	Scanned      int   `json:"scanned"`
	Closed       int   `json:"closed"`
	Failed       int   `json:"failed"`
	PurgedLedger int64 `json:"purgedLedger"`
}

// SweepDatabases runs the closeout sweep across every company schema (or the
// given subset). One schema failing does not stop the others; its error is
// logged and reported in the summary.
func SweepDatabases(ctx context.Context, dsn string, databases *[]string, dryRun bool) (map[string]SchemaSweepResult, error) {
	cfg, err := devops.LoadEngineConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load engine config: %w", err)
	}

	dm, err := core.New(dsn, 10)
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	dm.LogLevel = core.LogLevelError
	defer dm.Close()

	var targetDatabases []string
	if databases == nil {
		fmt.Printf("[INFO] No databases provided, fetching all databases...\n")
		targetDatabases, err = dm.GetAllDatabases(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get all databases: %w", err)
		}
	} else {
		targetDatabases = *databases
	}

	slack := communication.ConnectSlack()

	results := make(map[string]SchemaSweepResult)
	for _, dbName := range targetDatabases {
		fmt.Printf("[INFO] Sweeping database: %s\n", dbName)
		err := dm.Exec(ctx, dbName, func(db *gorm.DB) error {
			engine := clockcore.NewEngine(db, cfg, slack)

			if dryRun {
				cutoff := time.Now().Add(-engine.Config.MaxShift)
				stale, err := engine.Store.StaleOpenEntries(ctx, cutoff, engine.Config.SweepBatchSize)
				if err != nil {
					return err
				}
				fmt.Printf("[INFO] Dry run: %d stale entries in %s\n", len(stale), dbName)
				results[dbName] = SchemaSweepResult{Scanned: len(stale)}
				return nil
			}

			sweep, err := engine.RunCloseoutSweep(ctx)
			if err != nil {
				return err
			}
			results[dbName] = SchemaSweepResult{
				Scanned:      sweep.Scanned,
				Closed:       sweep.Closed,
				Failed:       sweep.Failed,
				PurgedLedger: sweep.PurgedLedger,
			}
			return nil
		})
		if err != nil {
			fmt.Printf("[ERROR] failed to sweep database %s: %v\n", dbName, err)
			if slackErr := slack.Error(fmt.Sprintf("closeout sweep failed for %s: %v", dbName, err)); slackErr != nil {
				fmt.Printf("[WARN] failed to notify Slack: %v\n", slackErr)
			}
			continue
		}
	}

	fmt.Printf("[INFO] Finished sweeping %d database(s)\n", len(targetDatabases))
	return results, nil
}

func HandleRequest(ctx context.Context, event SweepEvent) (map[string]SchemaSweepResult, error) {
	eventJson, _ := json.Marshal(event)
	fmt.Printf("[INFO] Event: %s\n", string(eventJson))

	fmt.Printf("[INFO] Loading database configuration from SSM parameter store 'databases'\n")
	dbs, err := common.LoadDatabases(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load databases from SSM: %w", err)
	}

	env := strings.ToLower(event.Env)
	if env == "" {
		return nil, fmt.Errorf("environment (env) is required")
	}

	entry, ok := dbs[env]
	if !ok {
		return nil, fmt.Errorf("environment '%s' not found in parameter store", env)
	}
	dsn := entry.GetDSN("")
	fmt.Printf("[INFO] Using DSN for environment: %s\n", env)

	results, err := SweepDatabases(ctx, dsn, event.Databases, event.DryRun)
	if err != nil {
		return nil, err
	}

	if to := os.Getenv("CREWCLOCK_REPORT_EMAIL"); to != "" && !event.DryRun {
		if err := sendExceptionReport(ctx, to, results); err != nil {
			fmt.Printf("[WARN] failed to email exception report: %v\n", err)
		}
	}

	return results, nil
}

// sendExceptionReport emails a per-company summary when the sweep actually
// closed something. A quiet sweep sends nothing.
func sendExceptionReport(ctx context.Context, to string, results map[string]SchemaSweepResult) error {
	var body strings.Builder
	total := 0
	for dbName, r := range results {
		if r.Closed == 0 && r.Failed == 0 {
			continue
		}
		total += r.Closed
		fmt.Fprintf(&body, "%s: %d entries auto-closed (of %d stale, %d failed). These are unapproved and need review.\n",
			dbName, r.Closed, r.Scanned, r.Failed)
	}
	if body.Len() == 0 {
		return nil
	}

	return communication.SendEmail(ctx, &communication.EmailInfo{
		From:    os.Getenv("CREWCLOCK_REPORT_FROM"),
		To:      []string{to},
		Subject: fmt.Sprintf("Auto-closeout report: %d entries closed", total),
		Text:    body.String(),
	})
}

func main() {
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		lambda.Start(HandleRequest)
	} else {
		dsn := os.Getenv("DSN")
		fmt.Printf("[INFO] DSN: %s\n", dsn)

		results, err := SweepDatabases(context.Background(), dsn, nil, true)
		if err != nil {
			fmt.Printf("[ERROR] %v\n", err)
			os.Exit(1)
		}
		resJson, _ := json.MarshalIndent(results, "", "  ")
		fmt.Printf("[SUCCESS] Results:\n%s\n", string(resJson))
	}
}
