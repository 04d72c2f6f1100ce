package run_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harforge/harforge/internal/costing"
	"github.com/harforge/harforge/internal/run"
	"github.com/harforge/harforge/internal/syncwatch"
)

type recordingSink struct {
	mu      sync.Mutex
	started []string
	flashes []string
	errors  []string
}

func (s *recordingSink) SyncStarted(dest string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, dest)
}

func (s *recordingSink) SyncFlash(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flashes = append(s.flashes, msg)
}

func (s *recordingSink) SyncError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, msg)
}

func (s *recordingSink) flashCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.flashes)
}

func newTestController(t *testing.T, syncEnabled bool) (*run.Controller, *recordingSink) {
	t.Helper()
	id := run.NewIdentity("", "/tmp/capture.har", "scrape the orders api")
	id.OutputRoot = t.TempDir()

	sink := &recordingSink{}
	c := run.NewController(run.Options{
		Identity:      id,
		Table:         costing.DefaultTable(),
		Sink:          sink,
		SyncEnabled:   syncEnabled,
		WorkspaceRoot: t.TempDir(),
		Debounce:      100 * time.Millisecond,
	})
	t.Cleanup(c.StopSync)
	return c, sink
}

func TestController_SyncDisabledIsNoop(t *testing.T) {
	c, sink := newTestController(t, false)

	require.NoError(t, c.StartSync())
	assert.Nil(t, c.SyncStatus())
	assert.Empty(t, c.MirrorDir())
	assert.Empty(t, sink.started)
}

func TestController_StartSyncAllocatesAndMirrors(t *testing.T) {
	c, sink := newTestController(t, true)

	require.NoError(t, c.StartSync())
	require.NotEmpty(t, c.MirrorDir())
	assert.Equal(t, "scrape-the-orders-api", filepath.Base(c.MirrorDir()))
	assert.Equal(t, []string{c.MirrorDir()}, sink.started)

	st := c.SyncStatus()
	require.NotNil(t, st)
	assert.Equal(t, syncwatch.StateRunning, st.State)
	assert.Equal(t, c.MirrorDir(), st.Dest)

	// A file landing in the scripts dir shows up in the mirror.
	scripts := c.Identity().ScriptsDir()
	require.NoError(t, os.WriteFile(filepath.Join(scripts, "api_client.py"), []byte("print()"), 0o600))

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(filepath.Join(c.MirrorDir(), "api_client.py"))
		return err == nil && string(data) == "print()"
	}, 5*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		return sink.flashCount() >= 1
	}, 5*time.Second, 20*time.Millisecond)
}

func TestController_SecondStartSyncRejected(t *testing.T) {
	c, _ := newTestController(t, true)

	require.NoError(t, c.StartSync())
	assert.Error(t, c.StartSync())
}

func TestController_StopSyncIsIdempotent(t *testing.T) {
	c, _ := newTestController(t, true)

	// Before any session.
	assert.NotPanics(t, c.StopSync)

	require.NoError(t, c.StartSync())
	c.StopSync()
	assert.Nil(t, c.SyncStatus())
	assert.NotPanics(t, c.StopSync)

	// A new session can start after the old one stopped.
	require.NoError(t, c.StartSync())
}

func TestController_RecordUsageAccumulatesCost(t *testing.T) {
	c, _ := newTestController(t, false)

	c.RecordUsage("claude-haiku-4-5", costing.Usage{InputTokens: 1_000_000})
	c.RecordUsage("claude-haiku-4-5", costing.Usage{OutputTokens: 200_000})

	assert.InDelta(t, 1.0+1.0, c.Cost(), 1e-9)
}

type stubEngineer struct {
	prompt string
	result *run.Result
	err    error
}

func (e *stubEngineer) AnalyzeAndGenerate(_ context.Context, p string) (*run.Result, error) {
	e.prompt = p
	return e.result, e.err
}

func TestController_ExecuteHandsPromptToEngineer(t *testing.T) {
	c, _ := newTestController(t, true)

	eng := &stubEngineer{result: &run.Result{FinalText: "saved files", NumTurns: 3}}
	res, err := c.Execute(context.Background(), eng)
	require.NoError(t, err)
	assert.Equal(t, "saved files", res.FinalText)

	id := c.Identity()
	assert.Contains(t, eng.prompt, id.HARPath)
	assert.Contains(t, eng.prompt, id.Goal)
	assert.Contains(t, eng.prompt, id.ScriptsDir())

	// Execute stops the session on the way out.
	assert.Nil(t, c.SyncStatus())
}

func TestController_ExecuteSurvivesSyncFailure(t *testing.T) {
	id := run.NewIdentity("", "/tmp/capture.har", "goal")
	id.OutputRoot = t.TempDir()

	sink := &recordingSink{}
	// Workspace root is a file: allocation must fail, the run must not.
	badRoot := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(badRoot, []byte("x"), 0o600))

	c := run.NewController(run.Options{
		Identity:      id,
		Table:         costing.DefaultTable(),
		Sink:          sink,
		SyncEnabled:   true,
		WorkspaceRoot: badRoot,
	})

	eng := &stubEngineer{result: &run.Result{FinalText: "ok"}}
	res, err := c.Execute(context.Background(), eng)
	require.NoError(t, err)
	assert.Equal(t, "ok", res.FinalText)
	assert.NotEmpty(t, sink.errors)
}
