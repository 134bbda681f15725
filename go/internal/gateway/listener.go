package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/rs/zerolog/log"
)

// TCPListener accepts raw line protocol clients.
type TCPListener struct {
	manager *Manager
	config  ConnectionConfig
	ln      net.Listener
}

// Listen binds addr, for example ":8002".
func Listen(addr string, manager *Manager, config ConnectionConfig) (*TCPListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return &TCPListener{manager: manager, config: config, ln: ln}, nil
}

// Addr returns the bound address.
func (l *TCPListener) Addr() net.Addr {
	return l.ln.Addr()
}

// Serve accepts connections until ctx is done or the listener is closed.
func (l *TCPListener) Serve(ctx context.Context) error {
	log.Info().Str("addr", l.ln.Addr().String()).Msg("auction listener started")

	stop := context.AfterFunc(ctx, func() {
		_ = l.ln.Close()
	})
	defer stop()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				log.Info().Msg("auction listener stopped")
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		log.Debug().Str("remote_addr", conn.RemoteAddr().String()).Msg("client connected")
		l.manager.Go(ctx, NewLineTransport(conn, l.config))
	}
}

// Close stops accepting connections.
func (l *TCPListener) Close() error {
	return l.ln.Close()
}
