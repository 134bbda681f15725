package auction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/bidtable/go/internal/auction/events"
	"github.com/mcdev12/bidtable/go/internal/protocol"
	"github.com/stretchr/testify/require"
)

var errBrokenPipe = errors.New("broken pipe")

// recorder is an in-memory Outbound.
type recorder struct {
	mu   sync.Mutex
	msgs []protocol.Message
	fail bool
}

func (r *recorder) Deliver(msg protocol.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errBrokenPipe
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder) setFail(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = fail
}

func (r *recorder) messages() []protocol.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]protocol.Message, len(r.msgs))
	copy(out, r.msgs)
	return out
}

func (r *recorder) last() protocol.Message {
	msgs := r.messages()
	if len(msgs) == 0 {
		return protocol.Message{}
	}
	return msgs[len(msgs)-1]
}

func (r *recorder) indexOf(msg protocol.Message) int {
	for i, m := range r.messages() {
		if m == msg {
			return i
		}
	}
	return -1
}

// eventRecorder is an in-memory EventSink.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (e *eventRecorder) Emit(ev events.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}

func (e *eventRecorder) types() []events.EventType {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]events.EventType, len(e.events))
	for i, ev := range e.events {
		out[i] = ev.Type
	}
	return out
}

type table struct {
	c      *Coordinator
	clock  *clockwork.FakeClock
	events *eventRecorder
	seats  map[string]*recorder
}

func newTable(t *testing.T, cfg Config) *table {
	t.Helper()

	clock := clockwork.NewFakeClock()
	sink := &eventRecorder{}
	c, err := NewCoordinator(cfg, WithClock(clock), WithEventSink(sink))
	require.NoError(t, err)

	return &table{c: c, clock: clock, events: sink, seats: make(map[string]*recorder)}
}

func (tb *table) seat(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		rec := &recorder{}
		_, err := tb.c.Register(name, rec)
		require.NoError(t, err)
		tb.seats[name] = rec
	}
}

func (tb *table) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, tb.c.AwaitQuorum(ctx))
	require.True(t, tb.c.Snapshot().State.RoundActive)
}

func fourSeats() Config {
	return Config{MaxPlayers: 4, DisconnectPolicy: DisconnectSkip}
}
