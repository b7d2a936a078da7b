// Command taskmanagerd is the task-manager daemon (spec.md §4.6, §6 "Exit
// code contract of the task-manager worker: infinite loop; process exit
// only on external signal").
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/eventaction/core/db" // registers sqlite/postgres/mysql/mssql connectors
	"github.com/eventaction/core/config"
	"github.com/eventaction/core/db"
	"github.com/eventaction/core/logger"
	"github.com/eventaction/core/taskmanager"
	"github.com/eventaction/core/triggerlock"
)

// dbProblemCloser is the minimal close_problem(triggerid, eventid, userid)
// implementation (spec.md §6): it stamps the problem closed and lets the
// escalator (out of scope) react to the resulting r_eventid the same way
// it reacts to a batch-driver recovery closure.
type dbProblemCloser struct {
	database db.Database
}

func (c *dbProblemCloser) CloseProblem(ctx context.Context, triggerID, eventID, userID uint64) error {
	session := c.database.NewSession(ctx)
	return session.Transact(func(tx db.DatabaseAccessor) error {
		if _, err := tx.Exec(ctx, "UPDATE problem SET r_eventid = ? WHERE eventid = ?", eventID, eventID); err != nil {
			return fmt.Errorf("stamping problem closed for event %d: %w", eventID, err)
		}
		if _, err := tx.Exec(ctx, "UPDATE events SET acknowledged = 1 WHERE eventid = ?", eventID); err != nil {
			return fmt.Errorf("marking event %d acknowledged: %w", eventID, err)
		}
		_ = triggerID // retained for the escalator's own closure bookkeeping, unused by this stand-in
		_ = userID
		return nil
	})
}

func main() {
	var opts config.TaskManagerdOpts
	if err := config.Parse("taskmanagerd", &opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.NewComponentLogger(opts.ResolveLevel(), true, "taskmanagerd")

	database, err := db.Open(db.Config{ConnString: opts.ConnString})
	if err != nil {
		log.Error("opening database: %v", err)
		os.Exit(1)
	}
	defer database.Close()

	manager := taskmanager.NewManager(database, triggerlock.NewLocker(), &dbProblemCloser{database: database}, log)
	if opts.PollIntervalSeconds > 0 {
		manager.Interval = time.Duration(opts.PollIntervalSeconds) * time.Second
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info("taskmanagerd starting, poll interval %s", manager.Interval)
	if err := manager.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("task manager loop exited: %v", err)
		os.Exit(1)
	}
	log.Info("taskmanagerd shutting down")
}
