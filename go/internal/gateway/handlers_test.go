package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/bidtable/go/internal/auction"
	"github.com/mcdev12/bidtable/go/internal/models"
	"github.com/mcdev12/bidtable/go/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStateProvider struct {
	snapshot auction.Snapshot
}

func (s stubStateProvider) Snapshot() auction.Snapshot { return s.snapshot }

func TestStateHandler_GetAuctionState(t *testing.T) {
	roundID := uuid.New()
	started := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	provider := stubStateProvider{snapshot: auction.Snapshot{
		State: auction.State{
			RoundID:     roundID,
			HighestBid:  12,
			Leader:      "alice",
			TurnQueue:   []string{"bob", "carol"},
			RoundActive: true,
			StartedAt:   &started,
		},
		Players: []models.Player{
			{Identity: "alice", Position: models.PositionNorth},
			{Identity: "bob", Position: models.PositionEast},
			{Identity: "carol", Position: models.PositionSouth},
		},
		Round: models.Round{
			ID:        roundID,
			Status:    models.RoundStatusActive,
			StartedAt: &started,
		},
		MaxPlayers: 3,
	}}

	mux := http.NewServeMux()
	NewStateHandler(provider).RegisterStateRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auction/state", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp AuctionStateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, roundID.String(), resp.RoundID)
	assert.Equal(t, "ACTIVE", resp.Status)
	assert.True(t, resp.RoundActive)
	assert.Equal(t, 12, resp.HighestBid)
	assert.Equal(t, "alice", resp.Leader)
	assert.Equal(t, "bob", resp.CurrentTurn)
	assert.Equal(t, []string{"bob", "carol"}, resp.TurnQueue)
	assert.Len(t, resp.Players, 3)
	assert.Empty(t, resp.Bids)
}

func TestStateHandler_EmptyTable(t *testing.T) {
	provider := stubStateProvider{snapshot: auction.Snapshot{
		Round:      models.Round{Status: models.RoundStatusWaiting},
		MaxPlayers: 4,
	}}

	rec := httptest.NewRecorder()
	NewStateHandler(provider).HandleGetAuctionState(rec, httptest.NewRequest(http.MethodGet, "/api/auction/state", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.NotContains(t, body, "round_id")
	assert.NotContains(t, body, "current_turn")
	assert.Equal(t, []interface{}{}, body["turn_queue"])
	assert.Equal(t, []interface{}{}, body["players"])
}

func TestStateHandler_RejectsOtherMethods(t *testing.T) {
	rec := httptest.NewRecorder()
	NewStateHandler(stubStateProvider{}).HandleGetAuctionState(rec, httptest.NewRequest(http.MethodPost, "/api/auction/state", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestWebSocketHandler_ServesLineProtocol(t *testing.T) {
	f := newGateway(t, 4)
	handler := NewWebSocketHandler(f.manager, DefaultConnectionConfig(), clockwork.NewFakeClock())

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/auction"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() protocol.Message {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(readTimeout)))
		kind, data, err := conn.ReadMessage()
		require.NoError(t, err)
		require.Equal(t, websocket.TextMessage, kind)
		msg, err := protocol.DecodeServer(string(data))
		require.NoError(t, err)
		return msg
	}

	require.Equal(t, protocol.SubmitName(), read())
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("alice")))
	require.Equal(t, protocol.NameAccepted(), read())
	require.Equal(t, protocol.Welcome("alice"), read())
	require.Equal(t, protocol.Text("alice joined the table in seat NORTH"), read())

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello\n")))
	require.Equal(t, protocol.Text("alice: hello"), read())

	res, err := http.Get(srv.URL + "/ws/stats")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var stats map[string]interface{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&stats))
	assert.Equal(t, float64(1), stats["total_connections"])
	assert.Equal(t, float64(1), stats["registered_connections"])
}

func TestService_ServesTCPClients(t *testing.T) {
	c, err := auction.NewCoordinator(auction.DefaultConfig())
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.TCPAddr = "127.0.0.1:0"
	svc, err := NewService(cfg, c, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	conn, err := net.Dial("tcp", svc.Addr())
	require.NoError(t, err)
	defer conn.Close()

	client := &pipeClient{conn: conn, r: bufio.NewReader(conn)}
	client.join(t, "alice")
	assert.Equal(t, 1, svc.GetStats()["total_connections"])

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(readTimeout):
		t.Fatal("service did not stop")
	}
	client.expectClosed(t)
}
