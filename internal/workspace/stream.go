package workspace

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nextfactory/nextfactory/internal/telemetry"
)

// StreamConfig tunes the websocket feed.
type StreamConfig struct {
	Buffer       int
	WriteTimeout time.Duration
	PongWait     time.Duration
	PingPeriod   time.Duration
}

func (c StreamConfig) withDefaults() StreamConfig {
	if c.Buffer <= 0 {
		c.Buffer = 64
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait {
		c.PingPeriod = c.PongWait * 9 / 10
	}
	return c
}

// Message is one frame on the telemetry socket.
type Message struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Message types.
const (
	MessageSnapshot = "snapshot"
	MessageReading  = "reading"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// streamTelemetry upgrades the connection, sends the current snapshot and
// then relays every hub reading until either side goes away.
func (h *Handler) streamTelemetry(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	readings, unsubscribe := h.hub.Subscribe(h.stream.Buffer)
	defer unsubscribe()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("telemetry websocket upgrade", slog.Any("error", err))
		return
	}
	defer conn.Close()

	logger := h.logger.With(slog.String("client_id", uuid.NewString()), slog.String("by", actor(r)))
	logger.Info("telemetry client connected", slog.Int("subscribers", h.hub.Subscribers()))
	defer logger.Info("telemetry client disconnected")

	if h.snapshot != nil {
		latest, err := h.snapshot.Latest(r.Context())
		if err != nil {
			logger.Warn("telemetry snapshot unavailable", slog.Any("error", err))
			latest = []telemetry.Reading{}
		}
		if err := h.send(conn, MessageSnapshot, latest); err != nil {
			logger.Warn("telemetry write", slog.Any("error", err))
			return
		}
	}

	closed := h.readPump(conn, logger)
	ping := time.NewTicker(h.stream.PingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case reading, ok := <-readings:
			if !ok {
				return
			}
			if err := h.send(conn, MessageReading, reading); err != nil {
				logger.Warn("telemetry write", slog.Any("error", err))
				return
			}
		case <-ping.C:
			deadline := time.Now().Add(h.stream.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				logger.Warn("telemetry ping", slog.Any("error", err))
				return
			}
		}
	}
}

// readPump drains client frames so pongs and close frames are processed.
// The returned channel closes when the client goes away.
func (h *Handler) readPump(conn *websocket.Conn, logger *slog.Logger) <-chan struct{} {
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(h.stream.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.stream.PongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) &&
					!errors.Is(err, websocket.ErrCloseSent) {
					logger.Debug("telemetry read", slog.Any("error", err))
				}
				return
			}
		}
	}()
	return closed
}

func (h *Handler) send(conn *websocket.Conn, kind string, data any) error {
	payload, err := json.Marshal(Message{Type: kind, Data: data, Timestamp: time.Now().UTC()})
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(h.stream.WriteTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}
