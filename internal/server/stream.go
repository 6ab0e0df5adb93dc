package server

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
)

// StreamHandler serves GET /ws, pushing every published snapshot as JSON, and GET /metrics.
func StreamHandler(b *Broadcaster, gatherer prometheus.Gatherer, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		serveSnapshots(w, r, b, logger)
	})
	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

func serveSnapshots(w http.ResponseWriter, r *http.Request, b *Broadcaster, logger *zap.Logger) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		logger.Warn("ws_accept_error", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	// Clients only listen; CloseRead handles control frames and cancels ctx when they leave.
	ctx := conn.CloseRead(r.Context())
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	logger.Debug("ws_client_connected", zap.String("remote", r.RemoteAddr))
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("ws_client_gone", zap.String("remote", r.RemoteAddr))
			return
		case snap, ok := <-ch:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "shutdown")
				return
			}
			if err := writeSnapshot(ctx, conn, snap); err != nil {
				logger.Debug("ws_write_error", zap.Error(err))
				return
			}
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				logger.Debug("ws_ping_failure", zap.Error(err))
				return
			}
		}
	}
}

func writeSnapshot(ctx context.Context, conn *websocket.Conn, v any) error {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(wctx, conn, v)
}
