package ledger

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mcdev12/bidtable/go/internal/auction/events"
	"github.com/mcdev12/bidtable/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	query string
	args  []interface{}
}

// recordingDB is a DBTX that remembers every statement.
type recordingDB struct {
	calls []execCall
}

func (r *recordingDB) ExecContext(_ context.Context, query string, args ...interface{}) (sql.Result, error) {
	r.calls = append(r.calls, execCall{query: query, args: args})
	return driver.RowsAffected(1), nil
}

func finishedRound(t *testing.T, status models.RoundStatus) events.Event {
	t.Helper()

	started := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	completed := started.Add(90 * time.Second)
	id := uuid.New()
	round := models.Round{
		ID:     id,
		Status: status,
		Seating: []models.Player{
			{Identity: "alice", Position: models.PositionNorth},
			{Identity: "bob", Position: models.PositionEast},
		},
		Bids: []models.Bid{
			{RoundID: id, Player: "alice", Amount: 5, PlacedAt: started.Add(time.Second)},
			{RoundID: id, Player: "bob", Amount: 9, PlacedAt: started.Add(2 * time.Second)},
		},
		HighestBid:  9,
		Leader:      "bob",
		StartedAt:   &started,
		CompletedAt: &completed,
	}

	var payload any = events.RoundCompletedPayload{Round: round, Duration: "1m30s"}
	eventType := events.EventTypeRoundCompleted
	if status == models.RoundStatusAbandoned {
		payload = events.RoundAbandonedPayload{Round: round, Reason: "all players left"}
		eventType = events.EventTypeRoundAbandoned
	}

	ev, err := events.New(id, eventType, completed, payload)
	require.NoError(t, err)
	return ev
}

func TestRoundParams_Completed(t *testing.T) {
	ev := finishedRound(t, models.RoundStatusCompleted)

	arg, ok, err := roundParams(ev)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ev.RoundID, arg.ID)
	assert.Equal(t, "COMPLETED", arg.Status)
	assert.Equal(t, []string{"alice", "bob"}, arg.Players)
	assert.Equal(t, int64(2), arg.BidCount)
	assert.Equal(t, int64(9), arg.HighestBid)
	assert.Equal(t, sql.NullString{String: "bob", Valid: true}, arg.Leader)
	assert.True(t, arg.StartedAt.Valid)
	assert.True(t, arg.CompletedAt.Valid)
	assert.JSONEq(t, string(ev.Payload), string(arg.Summary.RawMessage))
}

func TestRoundParams_KeepsBidsBeyondInt32(t *testing.T) {
	id := uuid.New()
	round := models.Round{
		ID:         id,
		Status:     models.RoundStatusCompleted,
		Bids:       []models.Bid{{RoundID: id, Player: "alice", Amount: 3_000_000_000}},
		HighestBid: 3_000_000_000,
		Leader:     "alice",
	}
	ev, err := events.New(id, events.EventTypeRoundCompleted, time.Now(), events.RoundCompletedPayload{Round: round})
	require.NoError(t, err)

	arg, ok, err := roundParams(ev)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(3_000_000_000), arg.HighestBid)
}

func TestRoundParams_Abandoned(t *testing.T) {
	ev := finishedRound(t, models.RoundStatusAbandoned)

	arg, ok, err := roundParams(ev)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ABANDONED", arg.Status)
}

func TestRoundParams_IgnoresOtherEvents(t *testing.T) {
	ev, err := events.New(uuid.New(), events.EventTypeBidPlaced, time.Now(), events.BidPlacedPayload{Player: "alice", Amount: 3})
	require.NoError(t, err)

	_, ok, err := roundParams(ev)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRoundParams_RejectsCorruptPayload(t *testing.T) {
	ev := events.Event{ID: uuid.New(), Type: events.EventTypeRoundCompleted, Payload: []byte(`{"round":`)}

	_, _, err := roundParams(ev)
	require.Error(t, err)
}

func TestEventParams_NullRoundBeforeFirstRound(t *testing.T) {
	ev, err := events.New(uuid.Nil, events.EventTypePlayerJoined, time.Now(), events.PlayerJoinedPayload{Player: "alice"})
	require.NoError(t, err)

	arg := eventParams(ev)
	assert.False(t, arg.RoundID.Valid)
	assert.True(t, arg.Payload.Valid)
	assert.Equal(t, "PlayerJoined", arg.EventType)
}

func TestQueries_BindArguments(t *testing.T) {
	db := &recordingDB{}
	q := NewQueries(db)
	ctx := context.Background()

	ev := finishedRound(t, models.RoundStatusCompleted)
	require.NoError(t, q.InsertEvent(ctx, eventParams(ev)))

	arg, _, err := roundParams(ev)
	require.NoError(t, err)
	require.NoError(t, q.UpsertRound(ctx, arg))

	require.Len(t, db.calls, 2)
	assert.True(t, strings.Contains(db.calls[0].query, "INSERT INTO auction_events"))
	assert.Len(t, db.calls[0].args, 5)
	assert.True(t, strings.Contains(db.calls[1].query, "INSERT INTO auction_rounds"))
	require.Len(t, db.calls[1].args, 9)

	players, ok := db.calls[1].args[2].(driver.Valuer)
	require.True(t, ok)
	value, err := players.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"alice","bob"}`, value)
}

// TestLedger_Postgres runs against a real database when LEDGER_TEST_DSN is set.
func TestLedger_Postgres(t *testing.T) {
	dsn := os.Getenv("LEDGER_TEST_DSN")
	if dsn == "" {
		t.Skip("LEDGER_TEST_DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	l := New(db)
	require.NoError(t, l.EnsureSchema(ctx))

	ev := finishedRound(t, models.RoundStatusCompleted)
	require.NoError(t, l.Publish(ctx, ev))
	// Redelivery of the same event is harmless.
	require.NoError(t, l.Publish(ctx, ev))

	var (
		status  string
		players []string
		leader  sql.NullString
	)
	row := db.QueryRowContext(ctx, `SELECT status, players, leader FROM auction_rounds WHERE id = $1`, ev.RoundID)
	require.NoError(t, row.Scan(&status, pq.Array(&players), &leader))
	assert.Equal(t, "COMPLETED", status)
	assert.Equal(t, []string{"alice", "bob"}, players)
	assert.Equal(t, "bob", leader.String)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT count(*) FROM auction_events WHERE id = $1`, ev.ID).Scan(&count))
	assert.Equal(t, 1, count)
}
