// Package syncwatch mirrors a managed source directory into a user-visible
// destination directory while a run is active.
//
// DESIGN: Filesystem events arrive in bursts while the agent writes files.
// Each qualifying event re-arms a debounce timer; only when the source has
// been quiet for the full interval does a mirror pass run. Passes execute on
// a single worker goroutine fed by a coalescing channel, so passes are
// strictly ordered and never overlap. Successes and failures are reported as
// events on a channel the watcher never blocks on - a slow consumer drops
// notifications, it does not stall the mirror.
package syncwatch

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/harforge/harforge/internal/config"
)

// State is the lifecycle state of a Watcher.
type State int32

// Watcher lifecycle states. Stopped is terminal; a stopped watcher is
// discarded, never restarted.
const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// EventKind classifies watcher notifications.
type EventKind string

// Notification kinds emitted on the events channel.
const (
	EventSync  EventKind = "sync"
	EventError EventKind = "error"
)

// Event is one notification from the watcher: a completed mirror pass or a
// pass/teardown failure.
type Event struct {
	Kind    EventKind
	Message string
	Files   int
	At      time.Time
}

// Status is a point-in-time snapshot of a watcher. Reads never block on
// in-flight mirror work.
type Status struct {
	State    State
	Dest     string
	LastSync time.Time // zero until the first successful pass
	Syncs    uint64
	Errors   uint64
}

// Options configures a Watcher.
type Options struct {
	Source   string
	Dest     string
	Debounce time.Duration // 0 = config.DefaultDebounce
}

// ErrAlreadyStarted is returned by Start on a watcher that is not idle.
var ErrAlreadyStarted = errors.New("syncwatch: watcher already started")

// Watcher mirrors Source into Dest until stopped.
type Watcher struct {
	src      string
	dest     string
	debounce time.Duration
	events   chan Event

	state    atomic.Int32
	syncs    atomic.Uint64
	errCount atomic.Uint64
	lastSync atomic.Int64 // unix nanos, 0 = never

	fsw *fsnotify.Watcher

	timerMu sync.Mutex
	timer   *time.Timer

	passCh chan struct{}
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New constructs an idle watcher. Start must be called to begin mirroring.
func New(opts Options) *Watcher {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = config.DefaultDebounce
	}
	return &Watcher{
		src:      opts.Source,
		dest:     opts.Dest,
		debounce: debounce,
		events:   make(chan Event, 64),
		passCh:   make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
}

// Events returns the notification channel. It is closed once the watcher has
// fully terminated after Stop (or after a failed Start), so consumers can
// range over it.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start transitions idle -> running: arms the filesystem watch over the
// source tree and schedules an initial pass so preexisting files are
// mirrored. Returns once observation is armed, without waiting for any pass.
// Calling Start on a non-idle watcher returns ErrAlreadyStarted.
func (w *Watcher) Start() error {
	if !w.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return ErrAlreadyStarted
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.state.Store(int32(StateStopped))
		close(w.events)
		return fmt.Errorf("syncwatch: create watcher: %w", err)
	}
	if err := addTree(fsw, w.src); err != nil {
		_ = fsw.Close()
		w.state.Store(int32(StateStopped))
		close(w.events)
		return fmt.Errorf("syncwatch: watch %s: %w", w.src, err)
	}
	w.fsw = fsw

	w.wg.Add(2)
	go w.eventLoop()
	go w.worker()
	go func() {
		w.wg.Wait()
		close(w.events)
	}()

	// Mirror whatever is already on disk after the first quiet interval.
	w.armTimer()

	log.Debug().Str("source", w.src).Str("dest", w.dest).
		Dur("debounce", w.debounce).Msg("sync watcher started")
	return nil
}

// Stop transitions running -> stopped and releases the filesystem watch.
// A teardown failure is reported through the events channel, never returned,
// so the caller's shutdown sequence cannot be aborted by it. Stop on an idle
// or already-stopped watcher is a no-op. Stop does not wait for a pass
// already in flight; that pass completes on the worker goroutine.
func (w *Watcher) Stop() {
	if !w.state.CompareAndSwap(int32(StateRunning), int32(StateStopped)) {
		return
	}

	w.timerMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timerMu.Unlock()

	if err := w.fsw.Close(); err != nil {
		w.errCount.Add(1)
		w.emit(Event{Kind: EventError, Message: fmt.Sprintf("sync teardown: %v", err), At: time.Now()})
	}
	close(w.stopCh)

	log.Debug().Str("dest", w.dest).Msg("sync watcher stopped")
}

// Status returns a snapshot without blocking on in-flight work.
func (w *Watcher) Status() Status {
	st := Status{
		State:  State(w.state.Load()),
		Dest:   w.dest,
		Syncs:  w.syncs.Load(),
		Errors: w.errCount.Load(),
	}
	if ns := w.lastSync.Load(); ns != 0 {
		st.LastSync = time.Unix(0, ns)
	}
	return st
}

// eventLoop consumes raw fsnotify events until the watch is closed.
func (w *Watcher) eventLoop() {
	defer w.wg.Done()
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !qualifies(ev) {
				continue
			}
			// New subdirectories must be watched as they appear.
			if ev.Op.Has(fsnotify.Create) {
				_ = addTree(w.fsw, ev.Name)
			}
			w.armTimer()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.errCount.Add(1)
			w.emit(Event{Kind: EventError, Message: fmt.Sprintf("watch error: %v", err), At: time.Now()})
		}
	}
}

// qualifies reports whether a raw event should re-arm the debounce timer.
// Chmod-only events are noise.
func qualifies(ev fsnotify.Event) bool {
	return ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write) ||
		ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename)
}

// armTimer (re-)arms the debounce timer. The last event in a burst
// determines when the next pass runs.
func (w *Watcher) armTimer() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.requestPass)
}

// requestPass enqueues one pass. The channel holds at most one pending
// request, so N timer expiries collapse into one pass.
func (w *Watcher) requestPass() {
	select {
	case w.passCh <- struct{}{}:
	default:
	}
}

// worker executes passes strictly in order until stopped.
func (w *Watcher) worker() {
	defer w.wg.Done()
	for {
		select {
		case <-w.passCh:
			w.runPass()
		case <-w.stopCh:
			return
		}
	}
}

// runPass executes one mirror pass. Failures are reported and counted; the
// watcher stays running and ready for the next pass.
func (w *Watcher) runPass() {
	copied, deleted, err := mirrorTree(w.src, w.dest)
	if err != nil {
		w.errCount.Add(1)
		w.emit(Event{Kind: EventError, Message: fmt.Sprintf("sync failed: %v", err), At: time.Now()})
		log.Warn().Err(err).Str("dest", w.dest).Msg("mirror pass failed")
		return
	}

	now := time.Now()
	w.syncs.Add(1)
	w.lastSync.Store(now.UnixNano())

	msg := fmt.Sprintf("synced %d file(s)", copied)
	if deleted > 0 {
		msg = fmt.Sprintf("synced %d file(s), removed %d", copied, deleted)
	}
	w.emit(Event{Kind: EventSync, Message: msg, Files: copied, At: now})
}

// emit delivers an event without ever blocking the watcher's goroutines.
// A full buffer drops the notification rather than stalling a pass.
func (w *Watcher) emit(ev Event) {
	select {
	case w.events <- ev:
	default:
	}
}
