package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	clockcore "crewclock.app/crewclock/clock/core"
	"crewclock.app/crewclock/core"
	"crewclock.app/crewclock/infrastructure/communication"
	"crewclock.app/crewclock/infrastructure/devops"
	"gorm.io/gorm"
)

// Local sweep daemon for deployments that do not run the lambda: ticks over
// every company schema on a fixed interval.
func main() {
	interval := flag.Duration("interval", 15*time.Minute, "time between sweeps")
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	ctx := context.Background()

	dsn := os.Getenv("DSN")
	fmt.Printf("[INFO] using DSN: %s\n", dsn)

	dm, err := core.New(dsn, 10)
	if err != nil {
		fmt.Printf("[ERROR] %v\n", err)
		os.Exit(1)
	}
	dm.LogLevel = core.LogLevelError
	defer dm.Close()

	cfg, err := devops.LoadEngineConfig(ctx)
	if err != nil {
		fmt.Printf("[ERROR] failed to load engine config: %v\n", err)
		os.Exit(1)
	}

	slack := communication.ConnectSlack()

	for {
		sweepAll(ctx, dm, cfg, slack)
		if *once {
			return
		}
		time.Sleep(*interval)
	}
}

func sweepAll(ctx context.Context, dm *core.DatabaseManager, cfg clockcore.Config, slack *communication.Slack) {
	databases, err := dm.GetAllDatabases(ctx)
	if err != nil {
		fmt.Printf("[ERROR] failed to list databases: %v\n", err)
		return
	}

	for _, dbName := range databases {
		err := dm.Exec(ctx, dbName, func(db *gorm.DB) error {
			engine := clockcore.NewEngine(db, cfg, slack)
			result, err := engine.RunCloseoutSweep(ctx)
			if err != nil {
				return err
			}
			if result.Closed > 0 || result.Failed > 0 {
				fmt.Printf("[INFO] %s: closed %d, failed %d, purged %d ledger rows\n",
					dbName, result.Closed, result.Failed, result.PurgedLedger)
			}
			return nil
		})
		if err != nil {
			fmt.Printf("[ERROR] sweep failed for %s: %v\n", dbName, err)
		}
	}
}
