package models

import (
	"fmt"
	"time"
)

// Position is a seat at the table.
type Position string

const (
	PositionNorth Position = "NORTH"
	PositionEast  Position = "EAST"
	PositionSouth Position = "SOUTH"
	PositionWest  Position = "WEST"
)

// Positions lists the seats in the order they are handed out.
var Positions = []Position{PositionNorth, PositionEast, PositionSouth, PositionWest}

// ParsePosition converts a seat label into a Position.
func ParsePosition(s string) (Position, error) {
	for _, p := range Positions {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown position %q", s)
}

// UnmarshalText rejects labels that are not seats. An empty label decodes to
// the zero Position.
func (p *Position) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*p = ""
		return nil
	}
	parsed, err := ParsePosition(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Player represents a seated participant
type Player struct {
	Identity string    `json:"identity"`
	Position Position  `json:"position"`
	JoinedAt time.Time `json:"joined_at"`
}
