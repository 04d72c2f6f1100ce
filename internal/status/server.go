// Package status serves the local run dashboard.
//
// DESIGN: A loopback-only HTTP server lets the user watch a run from a
// browser while the agent works: "/" renders an auto-refreshing HTML page,
// "/status.json" exposes the same data as JSON, and "/ws" streams it over a
// WebSocket once per refresh interval. The server reads live state through
// the Provider interface; *run.Controller satisfies it.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"github.com/harforge/harforge/internal/config"
	"github.com/harforge/harforge/internal/costing"
	"github.com/harforge/harforge/internal/run"
	"github.com/harforge/harforge/internal/syncwatch"
)

// Provider exposes the live run state the dashboard renders.
type Provider interface {
	Identity() run.Identity
	Tracker() *costing.Tracker
	SyncStatus() *syncwatch.Status
}

// Payload is the JSON document served at /status.json and pushed over /ws.
type Payload struct {
	RunID       string        `json:"run_id"`
	Goal        string        `json:"goal"`
	Model       string        `json:"model"`
	Cost        float64       `json:"cost"`
	Usage       costing.Usage `json:"usage"`
	Updates     int           `json:"updates"`
	Sync        *syncPayload  `json:"sync,omitempty"`
	GeneratedAt time.Time     `json:"generated_at"`
}

type syncPayload struct {
	State    string    `json:"state"`
	Dest     string    `json:"dest"`
	Syncs    uint64    `json:"syncs"`
	Errors   uint64    `json:"errors"`
	LastSync time.Time `json:"last_sync,omitzero"`
}

// Server is the local dashboard HTTP server.
type Server struct {
	provider Provider
	refresh  time.Duration

	ln  net.Listener
	srv *http.Server
}

// New creates a dashboard server. refresh controls the /ws push cadence; zero
// means config.StatusRefreshInterval.
func New(provider Provider, refresh time.Duration) *Server {
	if refresh <= 0 {
		refresh = config.StatusRefreshInterval
	}
	return &Server{provider: provider, refresh: refresh}
}

// Start binds to 127.0.0.1:port and serves in the background. Port 0 picks an
// ephemeral port; URL() reports the bound address.
func (s *Server) Start(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return fmt.Errorf("status: listen: %w", err)
	}
	s.ln = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handlePage)
	mux.HandleFunc("/status.json", s.handleJSON)
	mux.HandleFunc("/ws", s.handleWS)
	s.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Msg("status server stopped")
		}
	}()
	log.Info().Str("url", s.URL()).Msg("status dashboard listening")
	return nil
}

// URL returns the dashboard base URL, or "" before Start.
func (s *Server) URL() string {
	if s.ln == nil {
		return ""
	}
	return "http://" + s.ln.Addr().String()
}

// Stop shuts the server down, waiting up to the context deadline.
func (s *Server) Stop(ctx context.Context) {
	if s.srv == nil {
		return
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("status server shutdown")
	}
}

func (s *Server) payload() Payload {
	id := s.provider.Identity()
	snap := s.provider.Tracker().Snapshot()
	p := Payload{
		RunID:       id.ID,
		Goal:        id.Goal,
		Model:       snap.Model,
		Cost:        snap.Cost,
		Usage:       snap.Usage,
		Updates:     snap.Updates,
		GeneratedAt: time.Now(),
	}
	if st := s.provider.SyncStatus(); st != nil {
		p.Sync = &syncPayload{
			State:    st.State.String(),
			Dest:     st.Dest,
			Syncs:    st.Syncs,
			Errors:   st.Errors,
			LastSync: st.LastSync,
		}
	}
	return p
}

// handlePage serves the dashboard HTML. Restricted to localhost to keep cost
// data off the network.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if !isLoopback(r.RemoteAddr) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	id := s.provider.Identity()

	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="2">
<title>harforge run</title>
<style>
  body { font-family: system-ui, sans-serif; background: #0a0a0a; color: #fff; margin: 0; padding: 48px; }
  h1 { font-size: 24px; margin-bottom: 4px; }
  .goal { color: #9ca3af; margin-bottom: 24px; }
  .summary { display: flex; gap: 32px; margin-bottom: 24px; }
  .stat-label { color: #9ca3af; font-size: 12px; text-transform: uppercase; }
  .stat-value { font-size: 20px; font-family: monospace; }
  .cost { color: #22c55e; }
  table { border-collapse: collapse; font-family: monospace; }
  th, td { border: 1px solid #27272a; padding: 6px 12px; text-align: right; }
  th { color: #9ca3af; font-weight: normal; }
  .sync { margin-top: 24px; color: #9ca3af; }
  a { color: #22c55e; }
</style>
</head>
<body>
<h1>harforge</h1>
<div class="goal">`)
	b.WriteString(htmlEscape(id.Goal))
	b.WriteString("</div>\n")
	s.provider.Tracker().RenderHTML(&b)
	if st := s.provider.SyncStatus(); st != nil {
		fmt.Fprintf(&b, `<div class="sync">sync %s &mdash; %d passes, %d errors &rarr; %s</div>`,
			htmlEscape(st.State.String()), st.Syncs, st.Errors, htmlEscape(st.Dest))
		b.WriteString("\n")
	}
	b.WriteString(`<div class="sync"><a href="/status.json">/status.json</a></div>
</body>
</html>`)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(b.String()))
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	if !isLoopback(r.RemoteAddr) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.payload()); err != nil {
		log.Debug().Err(err).Msg("status json write failed")
	}
}

// handleWS upgrades the connection and pushes a Payload every refresh
// interval until the client disconnects or the server stops.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !isLoopback(r.RemoteAddr) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "done") //nolint:errcheck

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Read loop detects disconnects and consumes pings.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.refresh)
	defer ticker.Stop()
	for {
		data, err := json.Marshal(s.payload())
		if err != nil {
			log.Warn().Err(err).Msg("status payload marshal failed")
			return
		}
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// isLoopback reports whether the remote address is a loopback interface.
func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func htmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
