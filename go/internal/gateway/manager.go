package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ConnectionConfig holds configuration for client connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	// SendBufferSize bounds the outbound queue of each session.
	SendBufferSize int
	CheckOrigin    func(r *http.Request) bool
}

// DefaultConnectionConfig returns default connection configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024, // 1KB max line
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// Manager tracks the live sessions of every transport.
type Manager struct {
	table  Table
	config ConnectionConfig

	sessions map[*Session]bool
	closing  bool
	mu       sync.RWMutex
	wg       sync.WaitGroup
}

// NewManager creates a session manager in front of table.
func NewManager(table Table, config ConnectionConfig) *Manager {
	return &Manager{
		table:    table,
		config:   config,
		sessions: make(map[*Session]bool),
	}
}

// Serve runs a session over transport and blocks until it ends.
func (m *Manager) Serve(ctx context.Context, transport Transport) {
	session, ok := m.track(transport)
	if !ok {
		return
	}
	defer m.untrack(session)

	session.Serve(ctx)
}

// Go is Serve on a new goroutine. The session is tracked before Go returns,
// so a later Wait always covers it.
func (m *Manager) Go(ctx context.Context, transport Transport) {
	session, ok := m.track(transport)
	if !ok {
		return
	}
	go func() {
		defer m.untrack(session)
		session.Serve(ctx)
	}()
}

// track registers a session for transport. It refuses, and closes the
// transport, once CloseAll has been called.
func (m *Manager) track(transport Transport) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closing {
		_ = transport.Close()
		log.Debug().Str("remote_addr", transport.RemoteAddr()).Msg("rejecting session during shutdown")
		return nil, false
	}

	s := NewSession(transport, m.table, m.config.SendBufferSize)
	m.sessions[s] = true
	m.wg.Add(1)

	log.Info().
		Str("session_id", s.ID).
		Str("remote_addr", s.RemoteAddr()).
		Int("total_sessions", len(m.sessions)).
		Msg("session opened")
	return s, true
}

func (m *Manager) untrack(s *Session) {
	defer m.wg.Done()

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, s)

	log.Info().
		Str("session_id", s.ID).
		Str("player", s.Identity()).
		Dur("connected_for", time.Since(s.ConnectedAt)).
		Msg("session closed")
}

// Stats returns statistics about open sessions
func (m *Manager) Stats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	registered := 0
	for s := range m.sessions {
		if s.Identity() != "" {
			registered++
		}
	}

	return map[string]interface{}{
		"total_connections":      len(m.sessions),
		"registered_connections": registered,
	}
}

// CloseAll closes every open transport and refuses new ones. Serve calls
// return shortly after.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closing = true
	for s := range m.sessions {
		_ = s.transport.Close()
	}
}

// Wait blocks until every Serve call has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}
