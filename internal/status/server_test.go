package status

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harforge/harforge/internal/costing"
	"github.com/harforge/harforge/internal/run"
	"github.com/harforge/harforge/internal/syncwatch"
)

type stubProvider struct {
	id      run.Identity
	tracker *costing.Tracker
	sync    *syncwatch.Status
}

func (p *stubProvider) Identity() run.Identity        { return p.id }
func (p *stubProvider) Tracker() *costing.Tracker     { return p.tracker }
func (p *stubProvider) SyncStatus() *syncwatch.Status { return p.sync }

func newTestServer(t *testing.T) (*Server, *stubProvider) {
	t.Helper()
	p := &stubProvider{
		id:      run.Identity{ID: "run-1", Goal: "scrape the orders API"},
		tracker: costing.NewTracker(costing.DefaultTable()),
	}
	p.tracker.Record("claude-sonnet-4-5", costing.Usage{InputTokens: 1_000_000})

	s := New(p, 20*time.Millisecond)
	require.NoError(t, s.Start(0))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Stop(ctx)
	})
	return s, p
}

func TestServer_Page(t *testing.T) {
	s, _ := newTestServer(t)

	resp, err := http.Get(s.URL() + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	html := string(body)
	assert.Contains(t, html, "scrape the orders API")
	assert.Contains(t, html, "$3.0000")
	assert.Contains(t, html, "claude-sonnet-4-5")
}

func TestServer_JSON(t *testing.T) {
	s, p := newTestServer(t)
	p.sync = &syncwatch.Status{State: syncwatch.StateRunning, Dest: "/tmp/out", Syncs: 3}

	resp, err := http.Get(s.URL() + "/status.json")
	require.NoError(t, err)
	defer resp.Body.Close()

	var got Payload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))

	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, "claude-sonnet-4-5", got.Model)
	assert.InDelta(t, 3.0, got.Cost, 1e-9)
	assert.Equal(t, int64(1_000_000), got.Usage.InputTokens)
	require.NotNil(t, got.Sync)
	assert.Equal(t, "running", got.Sync.State)
	assert.Equal(t, uint64(3), got.Sync.Syncs)
}

func TestServer_UnknownPath(t *testing.T) {
	s, _ := newTestServer(t)

	resp, err := http.Get(s.URL() + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_WebSocketStream(t *testing.T) {
	s, _ := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(s.URL(), "http") + "/ws"
	conn, resp, err := websocket.Dial(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done") //nolint:errcheck

	// Two consecutive payloads prove the push loop keeps ticking.
	for i := 0; i < 2; i++ {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)

		var got Payload
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, "run-1", got.RunID)
		assert.False(t, got.GeneratedAt.IsZero())
	}
}

func TestIsLoopback(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1:54321", true},
		{"[::1]:54321", true},
		{"192.168.1.5:80", false},
		{"10.0.0.1:443", false},
		{"not-an-ip", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isLoopback(tt.addr), tt.addr)
	}
}
