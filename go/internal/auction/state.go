package auction

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// State is the shared record of one bidding round.
type State struct {
	RoundID     uuid.UUID  `json:"round_id"`
	HighestBid  int        `json:"highest_bid"`
	Leader      string     `json:"leader,omitempty"`
	TurnQueue   []string   `json:"turn_queue"`
	RoundActive bool       `json:"round_active"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
}

// Front returns the player currently allowed to bid.
func (s State) Front() (string, bool) {
	if len(s.TurnQueue) == 0 {
		return "", false
	}
	return s.TurnQueue[0], true
}

func (s *State) pop() {
	if len(s.TurnQueue) > 0 {
		s.TurnQueue = s.TurnQueue[1:]
	}
}

// remove drops identity wherever it sits in the queue.
func (s *State) remove(identity string) bool {
	i := slices.Index(s.TurnQueue, identity)
	if i < 0 {
		return false
	}
	s.TurnQueue = slices.Delete(slices.Clone(s.TurnQueue), i, i+1)
	return true
}

// Clone returns a deep copy.
func (s State) Clone() State {
	s.TurnQueue = slices.Clone(s.TurnQueue)
	if s.StartedAt != nil {
		t := *s.StartedAt
		s.StartedAt = &t
	}
	return s
}
