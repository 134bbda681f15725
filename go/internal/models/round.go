package models

import (
	"time"

	"github.com/google/uuid"
)

// RoundStatus defines the status of a bidding round.
type RoundStatus string

const (
	RoundStatusWaiting   RoundStatus = "WAITING"
	RoundStatusActive    RoundStatus = "ACTIVE"
	RoundStatusCompleted RoundStatus = "COMPLETED"
	RoundStatusAbandoned RoundStatus = "ABANDONED"
)

// Bid is an accepted offer within a round.
type Bid struct {
	RoundID  uuid.UUID `json:"round_id"`
	Player   string    `json:"player"`
	Amount   int       `json:"amount"`
	PlacedAt time.Time `json:"placed_at"`
}

// Round summarises one bidding cycle from quorum to queue exhaustion.
type Round struct {
	ID          uuid.UUID   `json:"id"`
	Status      RoundStatus `json:"status"`
	Seating     []Player    `json:"seating"`
	Bids        []Bid       `json:"bids"`
	HighestBid  int         `json:"highest_bid"`
	Leader      string      `json:"leader,omitempty"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}
