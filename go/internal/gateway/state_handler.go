package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/bidtable/go/internal/auction"
	"github.com/mcdev12/bidtable/go/internal/models"
	"github.com/rs/zerolog/log"
)

// StateProvider exposes a read-only view of the table.
type StateProvider interface {
	Snapshot() auction.Snapshot
}

// AuctionStateResponse represents the complete state of the table
type AuctionStateResponse struct {
	RoundID     string          `json:"round_id,omitempty"`
	Status      string          `json:"status"`
	RoundActive bool            `json:"round_active"`
	HighestBid  int             `json:"highest_bid"`
	Leader      string          `json:"leader,omitempty"`
	CurrentTurn string          `json:"current_turn,omitempty"`
	TurnQueue   []string        `json:"turn_queue"`
	Players     []models.Player `json:"players"`
	MaxPlayers  int             `json:"max_players"`
	Bids        []models.Bid    `json:"bids"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// StateHandler handles HTTP requests for table state
type StateHandler struct {
	stateProvider StateProvider
}

// NewStateHandler creates a new state handler
func NewStateHandler(provider StateProvider) *StateHandler {
	return &StateHandler{
		stateProvider: provider,
	}
}

// HandleGetAuctionState handles GET /api/auction/state
func (h *StateHandler) HandleGetAuctionState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := newAuctionStateResponse(h.stateProvider.Snapshot())

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("failed to encode auction state response")
	}
}

func newAuctionStateResponse(snap auction.Snapshot) AuctionStateResponse {
	resp := AuctionStateResponse{
		Status:      string(snap.Round.Status),
		RoundActive: snap.State.RoundActive,
		HighestBid:  snap.State.HighestBid,
		Leader:      snap.State.Leader,
		TurnQueue:   snap.State.TurnQueue,
		Players:     snap.Players,
		MaxPlayers:  snap.MaxPlayers,
		Bids:        snap.Round.Bids,
		StartedAt:   snap.Round.StartedAt,
		CompletedAt: snap.Round.CompletedAt,
	}
	if snap.Round.ID != uuid.Nil {
		resp.RoundID = snap.Round.ID.String()
	}
	if snap.State.RoundActive {
		resp.CurrentTurn, _ = snap.State.Front()
	}
	if resp.TurnQueue == nil {
		resp.TurnQueue = []string{}
	}
	if resp.Players == nil {
		resp.Players = []models.Player{}
	}
	if resp.Bids == nil {
		resp.Bids = []models.Bid{}
	}
	return resp
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/auction/state", h.HandleGetAuctionState)
}
