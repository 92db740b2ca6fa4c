package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/pkg/metrics"
)

const markCreatedSubject = "marks.created.>"

// wsMessage is sent by clients to narrow or widen the feed.
type wsMessage struct {
	Action string         `json:"action"` // "watch" | "unwatch"
	Bounds *domain.Bounds `json:"bounds"` // only with "watch"
}

// wsEvent is pushed to clients for every mark created.
type wsEvent struct {
	Type string      `json:"type"`
	Mark domain.Mark `json:"mark"`
}

// WebSocketHandler relays newly created marks to connected clients.
// By default every mark is relayed; {"action":"watch","bounds":{...}}
// restricts the feed to a box and {"action":"unwatch"} lifts it.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr)
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var (
			writeMu sync.Mutex
			boundMu sync.RWMutex
			bounds  *domain.Bounds
		)

		writeJSON := func(v any) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			writeMu.Lock()
			defer writeMu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		sub, err := nc.Subscribe(markCreatedSubject, func(msg *nats.Msg) {
			var m domain.Mark
			if err := json.Unmarshal(msg.Data, &m); err != nil {
				return
			}
			boundMu.RLock()
			b := bounds
			boundMu.RUnlock()
			if b != nil && !b.Contains(m.Coordinate) {
				return
			}
			_ = writeJSON(wsEvent{Type: "mark.created", Mark: m})
		})
		if err != nil {
			slog.Error("ws subscribe", "subject", markCreatedSubject, "error", err)
			return
		}
		defer func() { _ = sub.Unsubscribe() }()

		// Keep-alive ping
		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					writeMu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					writeMu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(raw, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			switch m.Action {
			case "watch":
				if m.Bounds == nil {
					_ = writeJSON(map[string]string{"error": "watch requires bounds"})
					continue
				}
				boundMu.Lock()
				bounds = m.Bounds
				boundMu.Unlock()
				_ = writeJSON(map[string]string{"status": "watching"})
			case "unwatch":
				boundMu.Lock()
				bounds = nil
				boundMu.Unlock()
				_ = writeJSON(map[string]string{"status": "watching all"})
			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}
