// Command actionsd wires the condition evaluator, action evaluator,
// immediate-operations executor and escalation bookkeeper into the batch
// driver (spec.md §4.4 process_actions) and drains event batches fed to
// it on stdin as newline-delimited JSON.
//
// The event-ingestion pipeline that actually produces batches is named in
// spec.md §1 as an out-of-scope external collaborator; this stdin reader
// is the minimal stand-in needed to make the core a runnable, testable
// daemon rather than a library with no entry point.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	_ "github.com/eventaction/core/db" // registers sqlite/postgres/mysql/mssql connectors

	"github.com/eventaction/core/actioneval"
	"github.com/eventaction/core/conditions"
	"github.com/eventaction/core/config"
	"github.com/eventaction/core/configcache"
	"github.com/eventaction/core/db"
	"github.com/eventaction/core/escalations"
	"github.com/eventaction/core/logger"
	"github.com/eventaction/core/model"
	"github.com/eventaction/core/operations"
	"github.com/eventaction/core/topology"
)

// wireBatch is one line of the stdin protocol: a batch of events plus the
// closed_events pairs the caller has already resolved (spec.md §3, §4.4
// inputs).
type wireBatch struct {
	Events       []wireEvent             `json:"events"`
	ClosedEvents []model.ClosedEventPair `json:"closed_events"`
}

type wireEvent struct {
	EventID  uint64       `json:"eventid"`
	Source   int          `json:"source"`
	Object   int          `json:"object"`
	ObjectID uint64       `json:"objectid"`
	Value    int          `json:"value"`
	Clock    int64        `json:"clock"`
	Flags    uint32       `json:"flags"`
	Tags     []model.Tag  `json:"tags"`
	Trigger  *wireTrigger `json:"trigger,omitempty"`
}

type wireTrigger struct {
	TriggerID   uint64 `json:"triggerid"`
	Description string `json:"description"`
	Priority    int    `json:"priority"`
}

func (e wireEvent) toModel() model.Event {
	out := model.Event{
		EventID:  e.EventID,
		Source:   model.EventSource(e.Source),
		Object:   model.EventObject(e.Object),
		ObjectID: e.ObjectID,
		Value:    e.Value,
		Clock:    e.Clock,
		Flags:    e.Flags,
		Tags:     e.Tags,
	}
	if e.Trigger != nil {
		out.Trigger = &model.Trigger{
			TriggerID:   e.Trigger.TriggerID,
			Description: e.Trigger.Description,
			Priority:    e.Trigger.Priority,
		}
	}
	return out
}

func main() {
	var opts config.ActionsdOpts
	if err := config.Parse("actionsd", &opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.NewComponentLogger(opts.ResolveLevel(), true, "actionsd")

	database, err := db.Open(db.Config{ConnString: opts.ConnString})
	if err != nil {
		log.Error("opening database: %v", err)
		os.Exit(1)
	}
	defer database.Close()

	ctx := context.Background()
	cache := configcache.NewCache(actionsLoader(database))
	if err := cache.Refresh(ctx); err != nil {
		log.Error("initial config cache refresh: %v", err)
		os.Exit(1)
	}
	go refreshCachePeriodically(ctx, cache, log)

	session := database.NewSession(ctx)
	repo := topology.NewDBRepository(session)
	ops := operations.NewExecutor(operations.NewDBOperations(session), log)
	driver := escalations.NewDriver(actionsForCache{cache: cache}, nil, ops, repo, log)

	if err := runBatchLoop(ctx, os.Stdin, database, repo, driver, log); err != nil && err != io.EOF {
		log.Error("batch loop exited: %v", err)
		os.Exit(1)
	}
}

// actionsForCache adapts a *configcache.Cache so Driver always reads
// through the latest Refresh; Driver.Actions is fixed at
// construction time, so this wraps the mutable *Cache instead.
type actionsForCache struct{ cache *configcache.Cache }

func (a actionsForCache) ActionsFor(source model.EventSource) []model.Action {
	return a.cache.Current().ActionsFor(source)
}

func actionsLoader(database db.Database) configcache.Loader {
	return func(ctx context.Context) ([]model.Action, error) {
		session := database.NewSession(ctx)
		return loadActions(ctx, session)
	}
}

func refreshCachePeriodically(ctx context.Context, cache *configcache.Cache, log logger.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := cache.Refresh(ctx); err != nil {
				log.Warn("config cache refresh failed, keeping previous snapshot: %v", err)
			}
		}
	}
}

func runBatchLoop(ctx context.Context, r io.Reader, database db.Database, repo topology.Repository, driver *escalations.Driver, log logger.Logger) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var batch wireBatch
		if err := json.Unmarshal(line, &batch); err != nil {
			log.Error("discarding malformed batch: %v", err)
			continue
		}

		events := make([]model.Event, len(batch.Events))
		for i, e := range batch.Events {
			events[i] = e.toModel()
		}

		// A fresh conditions.Cache per batch (SPEC_FULL.md SUPPLEMENTED
		// FEATURES): discovery/auto-registration object lookups are
		// memoized for the duration of one batch and thrown away after,
		// since spec.md §5 processes one batch at a time.
		condEval := conditions.NewEvaluator(conditions.NewCache(repo), nil, log)
		driver.Eval = actioneval.NewEvaluator(condEval, log)

		stats, err := driver.ProcessActions(ctx, database.NewSession(ctx), events, batch.ClosedEvents)
		if err != nil {
			log.Error("processing batch of %d event(s): %v", len(events), err)
			continue
		}
		log.Debug("batch done: %d event(s), %d escalation(s) created, %d closed", stats.EventsProcessed, stats.EscalationsCreated, stats.EscalationsClosed)
	}
	return scanner.Err()
}
