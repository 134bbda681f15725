package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// wsTransport carries one protocol line per WebSocket text frame.
type wsTransport struct {
	conn   *websocket.Conn
	config ConnectionConfig
	clock  clockwork.Clock

	closeOnce sync.Once
	done      chan struct{}
}

func newWSTransport(conn *websocket.Conn, config ConnectionConfig, clock clockwork.Clock) *wsTransport {
	t := &wsTransport{
		conn:   conn,
		config: config,
		clock:  clock,
		done:   make(chan struct{}),
	}

	conn.SetReadLimit(config.MaxMessageSize)
	if config.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(config.ReadTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(config.ReadTimeout))
		})
	}
	if config.PingInterval > 0 {
		go t.pingLoop()
	}
	return t
}

// pingLoop keeps idle connections alive until the transport closes.
func (t *wsTransport) pingLoop() {
	ticker := t.clock.NewTicker(t.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.Chan():
			deadline := time.Now().Add(t.config.WriteTimeout)
			if err := t.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				log.Debug().Err(err).Str("remote_addr", t.RemoteAddr()).Msg("failed to send ping")
				_ = t.Close()
				return
			}
		}
	}
}

func (t *wsTransport) ReadLine() (string, error) {
	for {
		kind, data, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return "", io.EOF
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("remote_addr", t.RemoteAddr()).
					Msg("unexpected WebSocket close error")
			}
			return "", fmt.Errorf("read frame: %w", err)
		}
		if kind != websocket.TextMessage {
			continue
		}
		if t.config.ReadTimeout > 0 {
			_ = t.conn.SetReadDeadline(time.Now().Add(t.config.ReadTimeout))
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
}

func (t *wsTransport) WriteLine(line string) error {
	if t.config.WriteTimeout > 0 {
		if err := t.conn.SetWriteDeadline(time.Now().Add(t.config.WriteTimeout)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}
	if err := t.conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (t *wsTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		deadline := time.Now().Add(time.Second)
		_ = t.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		err = t.conn.Close()
	})
	return err
}

func (t *wsTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}

// WebSocketHandler handles WebSocket upgrade requests for auction clients
type WebSocketHandler struct {
	manager  *Manager
	config   ConnectionConfig
	clock    clockwork.Clock
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(manager *Manager, config ConnectionConfig, clock clockwork.Clock) *WebSocketHandler {
	return &WebSocketHandler{
		manager: manager,
		config:  config,
		clock:   clock,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
	}
}

// HandleAuctionConnection upgrades the request and serves the line protocol
// over it until the client leaves.
func (h *WebSocketHandler) HandleAuctionConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return
	}

	h.manager.Serve(r.Context(), newWSTransport(conn, h.config, h.clock))
}

// HandleConnectionStats returns statistics about open sessions
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(h.manager.Stats()); err != nil {
		log.Error().Err(err).Msg("failed to encode connection stats")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/auction", h.HandleAuctionConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}

var _ Transport = (*wsTransport)(nil)
