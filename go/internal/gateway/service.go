package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Coordinator is what the gateway needs from the auction table.
type Coordinator interface {
	Table
	StateProvider
}

// Service is the client gateway. It serves the line protocol over raw TCP
// and over WebSocket, and exposes the table state over HTTP.
type Service struct {
	config       Config
	manager      *Manager
	wsHandler    *WebSocketHandler
	stateHandler *StateHandler
	listener     *TCPListener
}

// Config holds configuration for the gateway service
type Config struct {
	// TCPAddr is the line protocol listen address. Empty disables raw TCP.
	TCPAddr          string
	ConnectionConfig ConnectionConfig
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		TCPAddr:          ":8002",
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

// NewService creates a new gateway service. The TCP port is bound here so
// that a busy port fails at startup.
func NewService(config Config, coordinator Coordinator, clock clockwork.Clock) (*Service, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	manager := NewManager(coordinator, config.ConnectionConfig)

	s := &Service{
		config:       config,
		manager:      manager,
		wsHandler:    NewWebSocketHandler(manager, config.ConnectionConfig, clock),
		stateHandler: NewStateHandler(coordinator),
	}

	if config.TCPAddr != "" {
		listener, err := Listen(config.TCPAddr, manager, config.ConnectionConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create auction listener: %w", err)
		}
		s.listener = listener
	}
	return s, nil
}

// Start serves TCP clients until ctx is done, then closes every session.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Str("tcp_addr", s.config.TCPAddr).Msg("starting auction gateway")

	var err error
	if s.listener != nil {
		err = s.listener.Serve(ctx)
	} else {
		<-ctx.Done()
	}

	s.Stop()
	return err
}

// Stop closes the listener and every open session, then waits for them.
func (s *Service) Stop() {
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.manager.CloseAll()
	s.manager.Wait()
	log.Info().Msg("auction gateway stopped")
}

// Addr returns the bound TCP address, or "" when TCP is disabled.
func (s *Service) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// RegisterRoutes registers the gateway HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	log.Info().Msg("auction gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() map[string]interface{} {
	stats := s.manager.Stats()
	stats["service"] = "auction_gateway"
	return stats
}
