package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/bidtable/go/internal/models"
)

// Event payload types shared between the auction, outbox and ledger packages

// PlayerJoinedPayload is the payload for a PlayerJoined event
type PlayerJoinedPayload struct {
	Player   string          `json:"player"`
	Position models.Position `json:"position"`
	Seated   int             `json:"seated"`
	JoinedAt time.Time       `json:"joined_at"`
}

// PlayerLeftPayload is the payload for a PlayerLeft event
type PlayerLeftPayload struct {
	Player   string          `json:"player"`
	Position models.Position `json:"position"`
	HeldTurn bool            `json:"held_turn"`
	Reason   string          `json:"reason"`
	LeftAt   time.Time       `json:"left_at"`
}

// RoundStartedPayload is the payload for a RoundStarted event
type RoundStartedPayload struct {
	Seating   []models.Player `json:"seating"`
	TurnOrder []string        `json:"turn_order"`
	StartedAt time.Time       `json:"started_at"`
}

// BidPlacedPayload is the payload for a BidPlaced event
type BidPlacedPayload struct {
	Player    string    `json:"player"`
	Amount    int       `json:"amount"`
	Remaining int       `json:"remaining"`
	NextTurn  string    `json:"next_turn,omitempty"`
	PlacedAt  time.Time `json:"placed_at"`
}

// BidRejectedPayload is the payload for a BidRejected event
type BidRejectedPayload struct {
	Player     string    `json:"player"`
	Raw        string    `json:"raw"`
	Reason     string    `json:"reason"`
	HighestBid int       `json:"highest_bid"`
	RejectedAt time.Time `json:"rejected_at"`
}

// RoundCompletedPayload is the payload for a RoundCompleted event
type RoundCompletedPayload struct {
	Round    models.Round `json:"round"`
	Duration string       `json:"duration"`
}

// RoundAbandonedPayload is the payload for a RoundAbandoned event
type RoundAbandonedPayload struct {
	Round  models.Round `json:"round"`
	Reason string       `json:"reason"`
}

// EventType represents the type of auction event
type EventType string

const (
	EventTypePlayerJoined   EventType = "PlayerJoined"
	EventTypePlayerLeft     EventType = "PlayerLeft"
	EventTypeRoundStarted   EventType = "RoundStarted"
	EventTypeBidPlaced      EventType = "BidPlaced"
	EventTypeBidRejected    EventType = "BidRejected"
	EventTypeRoundCompleted EventType = "RoundCompleted"
	EventTypeRoundAbandoned EventType = "RoundAbandoned"
)

// Event is the envelope carried from the coordinator to publishers
type Event struct {
	ID        uuid.UUID       `json:"id"`
	RoundID   uuid.UUID       `json:"round_id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// New wraps payload into an Event.
func New(roundID uuid.UUID, eventType EventType, at time.Time, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:        uuid.New(),
		RoundID:   roundID,
		Type:      eventType,
		Timestamp: at,
		Payload:   data,
	}, nil
}

// ParsePayload parses event data into the appropriate payload struct
func ParsePayload(event Event) (interface{}, error) {
	switch event.Type {
	case EventTypePlayerJoined:
		var payload PlayerJoinedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypePlayerLeft:
		var payload PlayerLeftPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeRoundStarted:
		var payload RoundStartedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeBidPlaced:
		var payload BidPlacedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeBidRejected:
		var payload BidRejectedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeRoundCompleted:
		var payload RoundCompletedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeRoundAbandoned:
		var payload RoundAbandonedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, fmt.Errorf("unknown event type: %s", event.Type)
	}
}
