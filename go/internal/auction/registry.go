package auction

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/mcdev12/bidtable/go/internal/models"
	"github.com/mcdev12/bidtable/go/internal/protocol"
)

// MaxNameLength bounds a player identity, in runes.
const MaxNameLength = 32

// Outbound is the write side of a player's connection. Deliver must not block.
type Outbound interface {
	Deliver(msg protocol.Message) error
}

type member struct {
	models.Player
	out Outbound
}

// Registry maps identities to seated players in arrival order.
//
// Registry is not safe for concurrent use; the Coordinator serializes all
// access to it together with the auction state.
type Registry struct {
	maxPlayers int
	order      []*member
	byName     map[string]*member
}

// NewRegistry creates an empty registry bounded by maxPlayers.
func NewRegistry(maxPlayers int) *Registry {
	return &Registry{
		maxPlayers: maxPlayers,
		byName:     make(map[string]*member),
	}
}

// Register seats a new player under name.
func (r *Registry) Register(name string, out Outbound, now time.Time) (models.Player, error) {
	if err := validateName(name); err != nil {
		return models.Player{}, err
	}
	if _, taken := r.byName[name]; taken {
		return models.Player{}, fmt.Errorf("%w: %s", ErrNameTaken, name)
	}
	if r.IsFull() {
		return models.Player{}, ErrTableFull
	}

	m := &member{
		Player: models.Player{
			Identity: name,
			Position: r.nextPosition(),
			JoinedAt: now,
		},
		out: out,
	}
	r.order = append(r.order, m)
	r.byName[name] = m
	return m.Player, nil
}

// Unregister removes identity. It reports whether the player was seated.
func (r *Registry) Unregister(identity string) (models.Player, bool) {
	m, ok := r.byName[identity]
	if !ok {
		return models.Player{}, false
	}
	delete(r.byName, identity)
	for i, o := range r.order {
		if o == m {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return m.Player, true
}

// IsFull reports whether every seat is taken.
func (r *Registry) IsFull() bool {
	return len(r.order) >= r.maxPlayers
}

// Len returns the number of seated players.
func (r *Registry) Len() int {
	return len(r.order)
}

// Lookup returns the player seated under identity.
func (r *Registry) Lookup(identity string) (models.Player, bool) {
	m, ok := r.byName[identity]
	if !ok {
		return models.Player{}, false
	}
	return m.Player, true
}

// Players returns the seated players in arrival order.
func (r *Registry) Players() []models.Player {
	players := make([]models.Player, len(r.order))
	for i, m := range r.order {
		players[i] = m.Player
	}
	return players
}

// Reset unseats everybody.
func (r *Registry) Reset() {
	r.order = nil
	r.byName = make(map[string]*member)
}

// members returns a point in time copy of the recipient set.
func (r *Registry) members() []*member {
	out := make([]*member, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) outbound(identity string) (Outbound, bool) {
	m, ok := r.byName[identity]
	if !ok {
		return nil, false
	}
	return m.out, true
}

// nextPosition hands out the first free seat. Without departures this
// follows arrival order.
func (r *Registry) nextPosition() models.Position {
	taken := make(map[models.Position]bool, len(r.order))
	for _, m := range r.order {
		taken[m.Position] = true
	}
	for _, p := range models.Positions {
		if !taken[p] {
			return p
		}
	}
	return models.Positions[len(models.Positions)-1]
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if name != strings.TrimSpace(name) {
		return fmt.Errorf("%w: surrounding whitespace", ErrInvalidName)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidName, MaxNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control characters", ErrInvalidName)
		}
	}
	return nil
}
