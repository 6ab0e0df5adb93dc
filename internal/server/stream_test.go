package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/mystic-pawn/internal/metrics"
	"github.com/park285/mystic-pawn/internal/trainer"
)

func dialStream(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func readSnapshot(t *testing.T, conn *websocket.Conn) trainer.Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var snap trainer.Snapshot
	if err := wsjson.Read(ctx, conn, &snap); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	return snap
}

func waitSubscribers(t *testing.T, b *Broadcaster, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for b.Subscribers() != n {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers = %d, want %d", b.Subscribers(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStreamPushesSnapshots(t *testing.T) {
	b := NewBroadcaster()
	b.Publish(trainer.Snapshot{Phase: trainer.PhaseIdle, SessionDuration: 40})
	srv := httptest.NewServer(StreamHandler(b, nil, nil))
	defer srv.Close()

	conn := dialStream(t, srv)
	if got := readSnapshot(t, conn); got.Phase != trainer.PhaseIdle || got.SessionDuration != 40 {
		t.Fatalf("initial snapshot = %+v", got)
	}

	b.Publish(trainer.Snapshot{Phase: trainer.PhaseActive, Score: 2})
	if got := readSnapshot(t, conn); got.Phase != trainer.PhaseActive || got.Score != 2 {
		t.Fatalf("pushed snapshot = %+v", got)
	}

	conn.Close(websocket.StatusNormalClosure, "bye")
	waitSubscribers(t, b, 0)
}

func TestStreamClosesOnHubShutdown(t *testing.T) {
	b := NewBroadcaster()
	srv := httptest.NewServer(StreamHandler(b, nil, nil))
	defer srv.Close()

	conn := dialStream(t, srv)
	waitSubscribers(t, b, 1)
	b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _, err := conn.Read(ctx)
	if websocket.CloseStatus(err) != websocket.StatusGoingAway {
		t.Fatalf("read err = %v, want going away", err)
	}
}

func TestStreamServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg, "trainer")
	m.SessionStarted(40, trainer.ModeVisual)

	srv := httptest.NewServer(StreamHandler(NewBroadcaster(), reg, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `trainer_sessions_started_total{mode="visual"} 1`) {
		t.Fatalf("metrics body missing sessions counter:\n%s", body)
	}

	resp2, err := http.Post(srv.URL+"/ws", "text/plain", nil)
	if err != nil {
		t.Fatalf("post ws: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("POST /ws status = %d", resp2.StatusCode)
	}
}
