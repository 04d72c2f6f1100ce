package run

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/harforge/harforge/internal/config"
	"github.com/harforge/harforge/internal/costing"
	"github.com/harforge/harforge/internal/monitoring"
	"github.com/harforge/harforge/internal/prompt"
	"github.com/harforge/harforge/internal/syncwatch"
	"github.com/harforge/harforge/internal/workspace"
)

// Sink receives user-facing run notifications. The terminal notifier
// implements it; tests substitute their own.
type Sink interface {
	SyncStarted(dest string)
	SyncFlash(msg string)
	SyncError(msg string)
}

// Options configures a Controller.
type Options struct {
	Identity      Identity
	Table         *costing.Table
	Sink          Sink
	Events        *monitoring.EventWriter
	SyncEnabled   bool
	WorkspaceRoot string        // parent for mirror slots
	Debounce      time.Duration // 0 = default
}

// Controller owns one run: its identity, cost tracker, and at most one sync
// session at a time.
type Controller struct {
	id      Identity
	tracker *costing.Tracker
	sink    Sink
	events  *monitoring.EventWriter

	syncEnabled   bool
	workspaceRoot string
	debounce      time.Duration

	watcher   *syncwatch.Watcher
	pumpDone  chan struct{}
	mirrorDir string
}

// NewController creates a controller for the given run.
func NewController(opts Options) *Controller {
	return &Controller{
		id:            opts.Identity,
		tracker:       costing.NewTracker(opts.Table),
		sink:          opts.Sink,
		events:        opts.Events,
		syncEnabled:   opts.SyncEnabled,
		workspaceRoot: opts.WorkspaceRoot,
		debounce:      opts.Debounce,
	}
}

// Identity returns the run's immutable identity.
func (c *Controller) Identity() Identity {
	return c.id
}

// Tracker exposes the run's cost tracker for the status server.
func (c *Controller) Tracker() *costing.Tracker {
	return c.tracker
}

// StartSync allocates a mirror directory and starts a sync session. No-op
// when sync is disabled. Starting while a session is active is a contract
// violation and returns an error; stop the session first.
func (c *Controller) StartSync() error {
	if !c.syncEnabled {
		return nil
	}
	if c.watcher != nil {
		return fmt.Errorf("run: sync session already active")
	}

	base := workspace.FolderName(c.id.Goal)
	dest, err := workspace.Allocate(c.workspaceRoot, base)
	if err != nil {
		return fmt.Errorf("run: allocate workspace: %w", err)
	}

	if err := os.MkdirAll(c.id.ScriptsDir(), config.DirPerm); err != nil {
		return fmt.Errorf("run: create scripts dir: %w", err)
	}

	w := syncwatch.New(syncwatch.Options{
		Source:   c.id.ScriptsDir(),
		Dest:     dest,
		Debounce: c.debounce,
	})
	if err := w.Start(); err != nil {
		return fmt.Errorf("run: start sync: %w", err)
	}

	c.watcher = w
	c.mirrorDir = dest
	c.pumpDone = make(chan struct{})
	go c.pumpEvents(w.Events(), c.pumpDone)

	c.sink.SyncStarted(dest)
	c.record(monitoring.RunEvent{Event: monitoring.EventSyncStart, Dest: dest})
	log.Info().Str("run_id", c.id.ID).Str("dest", dest).Msg("sync session started")
	return nil
}

// pumpEvents routes watcher notifications to the sink and the event log.
func (c *Controller) pumpEvents(ch <-chan syncwatch.Event, done chan<- struct{}) {
	defer close(done)
	for ev := range ch {
		switch ev.Kind {
		case syncwatch.EventSync:
			c.sink.SyncFlash(ev.Message)
			c.record(monitoring.RunEvent{Event: monitoring.EventSyncPass, Dest: c.mirrorDir, Files: ev.Files})
		case syncwatch.EventError:
			c.sink.SyncError(ev.Message)
			c.record(monitoring.RunEvent{Event: monitoring.EventSyncError, Dest: c.mirrorDir, Err: ev.Message})
		}
	}
}

// StopSync stops the active sync session if any. Teardown errors surface
// through the sink, never up the call stack, and the session reference is
// cleared unconditionally so a repeat call is a no-op.
func (c *Controller) StopSync() {
	w := c.watcher
	if w == nil {
		return
	}
	c.watcher = nil

	w.Stop()
	// The watcher closes its events channel once fully wound down; wait for
	// the pump so nothing lands on the sink after StopSync returns.
	<-c.pumpDone
	c.pumpDone = nil
}

// SyncStatus returns the active session's status, or nil when none.
func (c *Controller) SyncStatus() *syncwatch.Status {
	if c.watcher == nil {
		return nil
	}
	st := c.watcher.Status()
	return &st
}

// MirrorDir returns the allocated mirror directory, "" before StartSync.
func (c *Controller) MirrorDir() string {
	return c.mirrorDir
}

// RecordUsage feeds an agent usage report into the cost tracker.
func (c *Controller) RecordUsage(model string, u costing.Usage) {
	c.tracker.Record(model, u)
}

// Cost returns the run's accumulated cost in USD.
func (c *Controller) Cost() float64 {
	return c.tracker.Cost()
}

// Execute drives a full run: build the prompt, start the mirror, hand off
// to the engineer, stop the mirror, account the final cost. Sync failures
// never fail the run; the scripts directory is authoritative.
func (c *Controller) Execute(ctx context.Context, eng Engineer) (*Result, error) {
	p := prompt.Build(prompt.Params{
		HARPath:      c.id.HARPath,
		Goal:         c.id.Goal,
		ScriptsDir:   c.id.ScriptsDir(),
		Instructions: c.id.Instructions,
		RunID:        c.id.ID,
		HistoryPath:  c.id.DBPath(),
		Fresh:        c.id.Fresh,
	})
	log.Debug().Int("prompt_tokens", prompt.EstimateTokens(p)).Msg("analysis prompt built")

	c.record(monitoring.RunEvent{Event: monitoring.EventRunStart, Model: c.id.Model})

	if err := c.StartSync(); err != nil {
		// Convenience mirror only; report and continue without it.
		c.sink.SyncError(err.Error())
	}
	defer c.StopSync()

	result, err := eng.AnalyzeAndGenerate(ctx, p)
	if err != nil {
		c.record(monitoring.RunEvent{Event: monitoring.EventRunDone, CostUSD: c.Cost(), Err: err.Error()})
		return nil, err
	}

	c.record(monitoring.RunEvent{Event: monitoring.EventRunDone, CostUSD: c.Cost()})
	return result, nil
}

func (c *Controller) record(ev monitoring.RunEvent) {
	if c.events == nil {
		return
	}
	ev.RunID = c.id.ID
	c.events.Record(ev)
}
