package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
)

const writeTimeout = 10 * time.Second

type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *sseWriter) WriteMessage(_ context.Context, data []byte) error {
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// ServeSSE streams a session as server-sent events.
func (m *Manager) ServeSSE(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("player_name"))
	if name == "" {
		http.Error(w, "player_name is required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	err := m.Serve(r.Context(), &sseWriter{w: w, flusher: flusher}, name, r.URL.Query().Get("player_id"))
	if err != nil {
		m.log.WithError(err).Debug("sse stream ended")
	}
}

type wsWriter struct {
	conn *websocket.Conn
}

func (c *wsWriter) WriteMessage(ctx context.Context, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

// WebSocketHandler streams a session over a WebSocket. Messages from the
// client are ignored; the read side only watches for the close.
func (m *Manager) WebSocketHandler(originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSpace(r.URL.Query().Get("player_name"))
		if name == "" {
			http.Error(w, "player_name is required", http.StatusBadRequest)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			m.log.WithError(err).Warn("websocket accept failed")
			return
		}
		defer c.Close(websocket.StatusInternalError, "session ended")

		ctx := c.CloseRead(r.Context())
		err = m.Serve(ctx, &wsWriter{conn: c}, name, r.URL.Query().Get("player_id"))
		if err != nil && !errors.Is(err, context.Canceled) {
			m.log.WithError(err).Debug("websocket stream ended")
			return
		}
		c.Close(websocket.StatusNormalClosure, "")
	}
}
