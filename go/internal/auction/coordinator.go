package auction

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/bidtable/go/internal/auction/events"
	"github.com/mcdev12/bidtable/go/internal/models"
	"github.com/mcdev12/bidtable/go/internal/protocol"
	"github.com/rs/zerolog/log"
)

// DisconnectPolicy decides what a departure does to the turn queue of an active round.
type DisconnectPolicy string

const (
	// DisconnectSkip removes the departing player from the queue and, if they
	// held the turn, hands it to the next player.
	DisconnectSkip DisconnectPolicy = "skip"
	// DisconnectStall leaves the departing player queued. A departed turn
	// holder stalls the round.
	DisconnectStall DisconnectPolicy = "stall"
)

// ParseDisconnectPolicy converts a configuration value into a DisconnectPolicy.
func ParseDisconnectPolicy(s string) (DisconnectPolicy, error) {
	switch p := DisconnectPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case DisconnectSkip, DisconnectStall:
		return p, nil
	default:
		return "", fmt.Errorf("unknown disconnect policy %q", s)
	}
}

// Config holds the table settings.
type Config struct {
	MaxPlayers       int
	DisconnectPolicy DisconnectPolicy
}

// DefaultConfig returns a four seat table that skips departed players.
func DefaultConfig() Config {
	return Config{
		MaxPlayers:       len(models.Positions),
		DisconnectPolicy: DisconnectSkip,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxPlayers < 1 || c.MaxPlayers > len(models.Positions) {
		return fmt.Errorf("max players must be between 1 and %d, got %d", len(models.Positions), c.MaxPlayers)
	}
	if _, err := ParseDisconnectPolicy(string(c.DisconnectPolicy)); err != nil {
		return err
	}
	return nil
}

// EventSink receives domain events. Emit must not block.
type EventSink interface {
	Emit(ev events.Event)
}

type noopSink struct{}

func (noopSink) Emit(events.Event) {}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock sets the clock used for timestamps.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Coordinator) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithEventSink sets where domain events go.
func WithEventSink(sink EventSink) Option {
	return func(c *Coordinator) {
		if sink != nil {
			c.sink = sink
		}
	}
}

// Outcome describes an accepted bid.
type Outcome struct {
	Amount      int
	NextTurn    string
	RoundClosed bool
}

// Snapshot is a point in time copy of the table.
type Snapshot struct {
	State      State           `json:"state"`
	Players    []models.Player `json:"players"`
	Round      models.Round    `json:"round"`
	MaxPlayers int             `json:"max_players"`
}

// Coordinator referees the bidding round. It is the only writer of the
// registry and the auction state, and guards both with a single mutex.
type Coordinator struct {
	mu          sync.Mutex
	config      Config
	registry    *Registry
	broadcaster *Broadcaster
	state       State
	round       models.Round
	clock       clockwork.Clock
	sink        EventSink

	// changed is closed and replaced after every successful registration.
	changed chan struct{}
	// roundDone is closed when the active round completes or is abandoned.
	roundDone chan struct{}
	// dropped holds recipients whose delivery failed. They are removed
	// before the lock is released.
	dropped []string
}

// NewCoordinator creates a Coordinator with an empty table.
func NewCoordinator(config Config, opts ...Option) (*Coordinator, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid auction config: %w", err)
	}

	c := &Coordinator{
		config:   config,
		registry: NewRegistry(config.MaxPlayers),
		clock:    clockwork.NewRealClock(),
		sink:     noopSink{},
		changed:  make(chan struct{}),
		round:    models.Round{Status: models.RoundStatusWaiting},
	}
	c.broadcaster = NewBroadcaster(c.registry, c.scheduleRemoval)

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// unlock removes failed recipients, then releases the lock.
func (c *Coordinator) unlock() {
	for len(c.dropped) > 0 {
		identity := c.dropped[0]
		c.dropped = c.dropped[1:]
		c.removeLocked(identity, "delivery failed")
	}
	c.mu.Unlock()
}

func (c *Coordinator) scheduleRemoval(identity string) {
	if !slices.Contains(c.dropped, identity) {
		c.dropped = append(c.dropped, identity)
	}
}

// Register seats name at the table. On success the player is told its name
// was accepted and everybody is told about the new seat.
func (c *Coordinator) Register(name string, out Outbound) (models.Player, error) {
	c.mu.Lock()
	defer c.unlock()

	if c.state.RoundActive {
		return models.Player{}, fmt.Errorf("%w: round in progress", ErrTableFull)
	}

	player, err := c.registry.Register(name, out, c.clock.Now())
	if err != nil {
		log.Debug().Err(err).Str("player", name).Msg("registration rejected")
		return models.Player{}, err
	}

	c.broadcaster.Notify(name, protocol.NameAccepted())
	c.broadcaster.Notify(name, protocol.Welcome(name))
	c.broadcaster.Broadcast(protocol.Text("%s joined the table in seat %s", name, player.Position))

	c.emit(events.EventTypePlayerJoined, events.PlayerJoinedPayload{
		Player:   name,
		Position: player.Position,
		Seated:   c.registry.Len(),
		JoinedAt: player.JoinedAt,
	})

	close(c.changed)
	c.changed = make(chan struct{})

	// unlock removes the player again before anyone else sees the table.
	if slices.Contains(c.dropped, name) {
		return models.Player{}, fmt.Errorf("%w: %s", ErrDeliveryFailed, name)
	}

	log.Info().
		Str("player", name).
		Str("seat", string(player.Position)).
		Int("seated", c.registry.Len()).
		Int("max_players", c.config.MaxPlayers).
		Msg("player registered")

	return player, nil
}

// Unregister removes identity from the table. It is the disconnect hook of a
// session and is a no-op for players that are not seated.
func (c *Coordinator) Unregister(identity string) {
	c.mu.Lock()
	defer c.unlock()

	c.removeLocked(identity, "disconnected")
}

// IsFull reports whether quorum has been reached.
func (c *Coordinator) IsFull() bool {
	c.mu.Lock()
	defer c.unlock()

	return c.registry.IsFull()
}

// AwaitQuorum blocks until every seat is taken, then opens the round. It
// returns immediately if a round is already active.
func (c *Coordinator) AwaitQuorum(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.state.RoundActive {
			c.unlock()
			return nil
		}
		if c.registry.IsFull() {
			c.startRoundLocked()
			c.unlock()
			return nil
		}
		changed := c.changed
		c.unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

// Run seats a table, runs its round and repeats until ctx is done.
func (c *Coordinator) Run(ctx context.Context) error {
	log.Info().
		Int("max_players", c.config.MaxPlayers).
		Str("disconnect_policy", string(c.config.DisconnectPolicy)).
		Msg("coordinator started")

	for {
		if err := c.AwaitQuorum(ctx); err != nil {
			log.Info().Msg("coordinator shutting down")
			return nil
		}

		c.mu.Lock()
		done := c.roundDone
		c.unlock()

		select {
		case <-ctx.Done():
			log.Info().Msg("coordinator shutting down")
			return nil
		case <-done:
		}
	}
}

// SubmitBid validates raw as a bid from identity and applies it.
//
// Rejections never change the auction state. A malformed or too low bid is
// announced to the whole table, a bid out of turn is answered privately.
func (c *Coordinator) SubmitBid(identity, raw string) (Outcome, error) {
	c.mu.Lock()
	defer c.unlock()

	if _, ok := c.registry.Lookup(identity); !ok {
		// The registry is cleared when a round ends, so a late bid lands here.
		if !c.state.RoundActive {
			return Outcome{}, fmt.Errorf("%w: %w: %s", ErrRoundClosed, ErrUnknownPlayer, identity)
		}
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownPlayer, identity)
	}

	amount, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		c.broadcaster.Broadcast(protocol.Text("%s offered an invalid amount: %s", identity, raw))
		c.rejectedLocked(identity, raw, ErrMalformedBid)
		return Outcome{}, fmt.Errorf("%w: %q", ErrMalformedBid, raw)
	}

	if !c.state.RoundActive {
		c.broadcaster.Notify(identity, protocol.Text("Bidding is not open"))
		c.rejectedLocked(identity, raw, ErrRoundClosed)
		return Outcome{}, ErrRoundClosed
	}

	front, _ := c.state.Front()
	if identity != front {
		c.broadcaster.Notify(identity, protocol.Text("It is not your turn, %s is bidding", front))
		c.rejectedLocked(identity, raw, ErrNotYourTurn)
		return Outcome{}, fmt.Errorf("%w: %s is bidding", ErrNotYourTurn, front)
	}

	if amount <= c.state.HighestBid {
		c.broadcaster.Broadcast(protocol.Text("%s bid too low: %d, highest bid is %d", identity, amount, c.state.HighestBid))
		c.rejectedLocked(identity, raw, ErrTooLow)
		return Outcome{}, fmt.Errorf("%w: %d is not above %d", ErrTooLow, amount, c.state.HighestBid)
	}

	now := c.clock.Now()
	c.state.HighestBid = amount
	c.state.Leader = identity
	c.state.pop()
	c.round.HighestBid = amount
	c.round.Leader = identity
	c.round.Bids = append(c.round.Bids, models.Bid{
		RoundID:  c.state.RoundID,
		Player:   identity,
		Amount:   amount,
		PlacedAt: now,
	})

	c.broadcaster.Broadcast(protocol.Text("%s bid %d", identity, amount))

	next, more := c.state.Front()
	c.emit(events.EventTypeBidPlaced, events.BidPlacedPayload{
		Player:    identity,
		Amount:    amount,
		Remaining: len(c.state.TurnQueue),
		NextTurn:  next,
		PlacedAt:  now,
	})

	log.Info().
		Str("round_id", c.state.RoundID.String()).
		Str("player", identity).
		Int("amount", amount).
		Int("remaining", len(c.state.TurnQueue)).
		Msg("bid accepted")

	outcome := Outcome{Amount: amount}
	if !more {
		c.completeRoundLocked()
		outcome.RoundClosed = true
		return outcome, nil
	}

	c.announceTurnLocked(next)
	outcome.NextTurn = next
	return outcome, nil
}

// Chat relays free text from identity to the whole table.
func (c *Coordinator) Chat(identity, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	c.mu.Lock()
	defer c.unlock()

	if _, ok := c.registry.Lookup(identity); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, identity)
	}
	c.broadcaster.Broadcast(protocol.Text("%s: %s", identity, text))
	return nil
}

// Snapshot returns a copy of the table.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.unlock()

	round := c.round
	round.Seating = slices.Clone(c.round.Seating)
	round.Bids = slices.Clone(c.round.Bids)

	return Snapshot{
		State:      c.state.Clone(),
		Players:    c.registry.Players(),
		Round:      round,
		MaxPlayers: c.config.MaxPlayers,
	}
}

func (c *Coordinator) startRoundLocked() {
	now := c.clock.Now()
	players := c.registry.Players()
	order := make([]string, len(players))
	for i, p := range players {
		order[i] = p.Identity
	}

	c.state = State{
		RoundID:     uuid.New(),
		HighestBid:  0,
		TurnQueue:   order,
		RoundActive: true,
		StartedAt:   &now,
	}
	c.round = models.Round{
		ID:        c.state.RoundID,
		Status:    models.RoundStatusActive,
		Seating:   players,
		StartedAt: &now,
	}
	c.roundDone = make(chan struct{})

	log.Info().
		Str("round_id", c.state.RoundID.String()).
		Strs("turn_order", order).
		Msg("round started")

	c.broadcaster.Broadcast(protocol.Text("All players connected, bidding order: %s", strings.Join(order, ", ")))
	c.broadcaster.Notify(order[0], protocol.Text("Your turn to bid"))

	c.emit(events.EventTypeRoundStarted, events.RoundStartedPayload{
		Seating:   players,
		TurnOrder: slices.Clone(order),
		StartedAt: now,
	})
}

func (c *Coordinator) announceTurnLocked(identity string) {
	c.broadcaster.Notify(identity, protocol.Text("Your turn to bid, highest bid is %d", c.state.HighestBid))
}

func (c *Coordinator) completeRoundLocked() {
	now := c.clock.Now()
	c.state.RoundActive = false
	c.round.Status = models.RoundStatusCompleted
	c.round.CompletedAt = &now

	if c.state.Leader != "" {
		c.broadcaster.Broadcast(protocol.Text("Bidding closed at %d, won by %s", c.state.HighestBid, c.state.Leader))
	} else {
		c.broadcaster.Broadcast(protocol.Text("Bidding closed without bids"))
	}
	c.broadcaster.Broadcast(protocol.Text("Game over"))
	c.broadcaster.Broadcast(protocol.Quit())

	var duration string
	if c.state.StartedAt != nil {
		duration = now.Sub(*c.state.StartedAt).String()
	}
	c.emit(events.EventTypeRoundCompleted, events.RoundCompletedPayload{
		Round:    c.round,
		Duration: duration,
	})

	log.Info().
		Str("round_id", c.state.RoundID.String()).
		Int("highest_bid", c.state.HighestBid).
		Str("leader", c.state.Leader).
		Msg("round completed")

	c.finishRoundLocked()
}

func (c *Coordinator) abandonRoundLocked(reason string) {
	now := c.clock.Now()
	c.state.RoundActive = false
	c.round.Status = models.RoundStatusAbandoned
	c.round.CompletedAt = &now

	c.emit(events.EventTypeRoundAbandoned, events.RoundAbandonedPayload{
		Round:  c.round,
		Reason: reason,
	})

	log.Warn().
		Str("round_id", c.state.RoundID.String()).
		Str("reason", reason).
		Msg("round abandoned")

	c.finishRoundLocked()
}

// finishRoundLocked frees the table for the next group.
func (c *Coordinator) finishRoundLocked() {
	c.registry.Reset()
	if c.roundDone != nil {
		close(c.roundDone)
	}
}

func (c *Coordinator) removeLocked(identity, reason string) {
	player, ok := c.registry.Unregister(identity)
	if !ok {
		return
	}

	front, _ := c.state.Front()
	heldTurn := c.state.RoundActive && front == identity

	c.broadcaster.Broadcast(protocol.Text("%s left the table, seat %s", identity, player.Position))
	c.emit(events.EventTypePlayerLeft, events.PlayerLeftPayload{
		Player:   identity,
		Position: player.Position,
		HeldTurn: heldTurn,
		Reason:   reason,
		LeftAt:   c.clock.Now(),
	})

	log.Info().
		Str("player", identity).
		Str("seat", string(player.Position)).
		Str("reason", reason).
		Bool("held_turn", heldTurn).
		Msg("player unregistered")

	if !c.state.RoundActive {
		return
	}
	if c.registry.Len() == 0 {
		c.abandonRoundLocked("all players left")
		return
	}
	if c.config.DisconnectPolicy != DisconnectSkip {
		if heldTurn {
			log.Warn().
				Str("round_id", c.state.RoundID.String()).
				Str("player", identity).
				Msg("turn holder left, round stalled")
		}
		return
	}

	if !c.state.remove(identity) {
		return
	}
	next, more := c.state.Front()
	if !more {
		c.completeRoundLocked()
		return
	}
	if heldTurn {
		c.announceTurnLocked(next)
	}
}

func (c *Coordinator) rejectedLocked(identity, raw string, reason error) {
	c.emit(events.EventTypeBidRejected, events.BidRejectedPayload{
		Player:     identity,
		Raw:        raw,
		Reason:     reason.Error(),
		HighestBid: c.state.HighestBid,
		RejectedAt: c.clock.Now(),
	})

	log.Debug().
		Str("round_id", c.state.RoundID.String()).
		Str("player", identity).
		Str("raw", raw).
		Str("reason", reason.Error()).
		Msg("bid rejected")
}

func (c *Coordinator) emit(eventType events.EventType, payload any) {
	ev, err := events.New(c.state.RoundID, eventType, c.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build event")
		return
	}
	c.sink.Emit(ev)
}
