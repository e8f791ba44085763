package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/droprelay/internal/config"
	"github.com/vovakirdan/droprelay/internal/core"
	"github.com/vovakirdan/droprelay/internal/log"
	"github.com/vovakirdan/droprelay/internal/metrics"
	"github.com/vovakirdan/droprelay/internal/store"
)

type testServer struct {
	*httptest.Server
	hub     *core.Hub
	metrics *metrics.Metrics
}

type serverOption func(*config.Config)

func withRateLimit(n int) serverOption {
	return func(c *config.Config) { c.RateLimitPerMinute = n }
}

func startTestServer(t *testing.T, history store.HistoryStore, recorder core.HistoryRecorder, opts ...serverOption) *testServer {
	t.Helper()

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	cfg.ShutdownTimeout = time.Second
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := log.Nop()
	m := metrics.New()
	hub := core.NewHub(core.Options{Logger: logger, Metrics: m, History: recorder})

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := NewServer(hub, history, m, &cfg, logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-hub.Done()
	})

	return &testServer{Server: ts, hub: hub, metrics: m}
}

func (ts *testServer) dial(t *testing.T, ctx context.Context) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) frame {
	t.Helper()

	var f frame
	if err := wsjson.Read(ctx, conn, &f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func expectFrame(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string) frame {
	t.Helper()

	f := readFrame(t, ctx, conn)
	if f.Type != typ {
		t.Fatalf("expected %q frame, got %q (%s)", typ, f.Type, f.Payload)
	}
	return f
}

func writeRaw(t *testing.T, ctx context.Context, conn *websocket.Conn, raw string) {
	t.Helper()

	if err := conn.Write(ctx, websocket.MessageText, []byte(raw)); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

// joinRoom sends joinRoom and returns the code from roomJoined.
func joinRoom(t *testing.T, ctx context.Context, conn *websocket.Conn, room string) string {
	t.Helper()

	payload := `{}`
	if room != "" {
		payload = `{"roomId":"` + room + `"}`
	}
	writeRaw(t, ctx, conn, `{"type":"joinRoom","payload":`+payload+`}`)

	f := expectFrame(t, ctx, conn, "roomJoined")
	var joined struct {
		RoomID string `json:"roomId"`
	}
	if err := json.Unmarshal(f.Payload, &joined); err != nil {
		t.Fatalf("decode roomJoined: %v", err)
	}
	return joined.RoomID
}

func decodeError(t *testing.T, f frame) (code, message string) {
	t.Helper()

	var e struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(f.Payload, &e); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	return e.Code, e.Message
}

// waitStats polls the hub until cond holds.
func waitStats(t *testing.T, hub *core.Hub, cond func(core.Stats) bool) core.Stats {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for {
		stats, err := hub.Stats(context.Background())
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if cond(stats) {
			return stats
		}
		if time.Now().After(deadline) {
			t.Fatalf("stats condition not met, last: %+v", stats)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
