package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/bidtable/go/internal/auction"
	"github.com/mcdev12/bidtable/go/internal/models"
	"github.com/mcdev12/bidtable/go/internal/protocol"
	"github.com/rs/zerolog/log"
)

var (
	ErrSessionClosed = errors.New("session closed")
	ErrSlowConsumer  = errors.New("session send buffer full")
)

// Table is the part of the coordinator a session talks to.
type Table interface {
	Register(name string, out auction.Outbound) (models.Player, error)
	Unregister(identity string)
	SubmitBid(identity, raw string) (auction.Outcome, error)
	Chat(identity, text string) error
}

// Session owns one client connection. It negotiates an identity, then routes
// every inbound line to the table until the peer goes away.
type Session struct {
	ID          string
	ConnectedAt time.Time

	transport Transport
	table     Table
	send      chan protocol.Message

	mu       sync.Mutex
	closed   bool
	identity string
}

// NewSession creates a session with an outbound queue of bufferSize messages.
func NewSession(transport Transport, table Table, bufferSize int) *Session {
	return &Session{
		ID:          uuid.New().String(),
		ConnectedAt: time.Now(),
		transport:   transport,
		table:       table,
		send:        make(chan protocol.Message, bufferSize),
	}
}

// Identity returns the registered name, or "" before registration.
func (s *Session) Identity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// RemoteAddr returns the peer address.
func (s *Session) RemoteAddr() string {
	return s.transport.RemoteAddr()
}

// Deliver queues msg for the client without blocking. A full queue closes
// the session.
func (s *Session) Deliver(msg protocol.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	select {
	case s.send <- msg:
		return nil
	default:
		log.Warn().
			Str("session_id", s.ID).
			Str("player", s.identity).
			Msg("send buffer full, closing session")
		s.closeSendLocked()
		_ = s.transport.Close()
		return ErrSlowConsumer
	}
}

// Serve runs the session until the client disconnects or ctx is done.
func (s *Session) Serve(ctx context.Context) {
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writePump()
	}()
	defer func() {
		s.closeSend()
		<-writerDone
	}()

	stop := context.AfterFunc(ctx, func() {
		_ = s.transport.Close()
	})
	defer stop()

	identity, err := s.negotiate()
	if err != nil {
		log.Debug().
			Err(err).
			Str("session_id", s.ID).
			Str("remote_addr", s.RemoteAddr()).
			Msg("session ended before registration")
		return
	}
	defer s.table.Unregister(identity)

	s.readPump(identity)
}

// negotiate asks for names until one is accepted or the table turns us away.
func (s *Session) negotiate() (string, error) {
	for {
		if err := s.Deliver(protocol.SubmitName()); err != nil {
			return "", err
		}

		line, err := s.transport.ReadLine()
		if err != nil {
			return "", err
		}
		name := strings.TrimSpace(line)

		// The identity must be visible before Register delivers anything.
		s.mu.Lock()
		s.identity = name
		s.mu.Unlock()

		player, err := s.table.Register(name, s)
		if err == nil {
			log.Info().
				Str("session_id", s.ID).
				Str("player", player.Identity).
				Str("seat", string(player.Position)).
				Msg("session registered")
			return name, nil
		}

		s.mu.Lock()
		s.identity = ""
		s.mu.Unlock()

		switch {
		case errors.Is(err, auction.ErrNameTaken):
			_ = s.Deliver(protocol.Text("Name %s is already taken", name))
		case errors.Is(err, auction.ErrInvalidName):
			_ = s.Deliver(protocol.Text("Name rejected: %v", err))
		case errors.Is(err, auction.ErrTableFull):
			_ = s.Deliver(protocol.Full())
			_ = s.Deliver(protocol.Exit())
			return "", err
		default:
			return "", fmt.Errorf("register %q: %w", name, err)
		}
	}
}

// readPump routes inbound lines to the table.
func (s *Session) readPump(identity string) {
	for {
		line, err := s.transport.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Debug().Err(err).Str("session_id", s.ID).Msg("read failed")
			}
			log.Info().
				Str("session_id", s.ID).
				Str("player", identity).
				Msg("client disconnected")
			return
		}

		msg := protocol.DecodeClient(line)
		switch msg.Kind {
		case protocol.KindMove:
			if _, err := s.table.SubmitBid(identity, msg.Payload); err != nil {
				log.Debug().Err(err).Str("player", identity).Msg("bid rejected")
				// The table answers seated players itself.
				if errors.Is(err, auction.ErrUnknownPlayer) {
					_ = s.Deliver(protocol.Text("Bidding is not open"))
				}
			}
		default:
			if err := s.table.Chat(identity, msg.Payload); err != nil {
				log.Debug().Err(err).Str("player", identity).Msg("chat rejected")
				if errors.Is(err, auction.ErrUnknownPlayer) {
					_ = s.Deliver(protocol.Text("You are not seated at the table"))
				}
			}
		}
	}
}

// writePump drains the outbound queue. A closing message ends the session.
func (s *Session) writePump() {
	defer func() {
		s.closeSend()
		_ = s.transport.Close()
	}()

	for msg := range s.send {
		if err := s.transport.WriteLine(protocol.Encode(msg)); err != nil {
			log.Debug().
				Err(err).
				Str("session_id", s.ID).
				Msg("failed to write message")
			return
		}
		if msg.Closes() {
			return
		}
	}
}

func (s *Session) closeSend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeSendLocked()
}

func (s *Session) closeSendLocked() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}
