package ledger

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
}

type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const insertEvent = `
INSERT INTO auction_events (id, round_id, event_type, payload, occurred_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING
`

type InsertEventParams struct {
	ID         uuid.UUID
	RoundID    uuid.NullUUID
	EventType  string
	Payload    pqtype.NullRawMessage
	OccurredAt time.Time
}

func (q *Queries) InsertEvent(ctx context.Context, arg InsertEventParams) error {
	_, err := q.db.ExecContext(ctx, insertEvent,
		arg.ID,
		arg.RoundID,
		arg.EventType,
		arg.Payload,
		arg.OccurredAt,
	)
	return err
}

const upsertRound = `
INSERT INTO auction_rounds (id, status, players, bid_count, highest_bid, leader, summary, started_at, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
    status       = EXCLUDED.status,
    players      = EXCLUDED.players,
    bid_count    = EXCLUDED.bid_count,
    highest_bid  = EXCLUDED.highest_bid,
    leader       = EXCLUDED.leader,
    summary      = EXCLUDED.summary,
    started_at   = EXCLUDED.started_at,
    completed_at = EXCLUDED.completed_at
`

type UpsertRoundParams struct {
	ID          uuid.UUID
	Status      string
	Players     []string
	BidCount    int64
	HighestBid  int64
	Leader      sql.NullString
	Summary     pqtype.NullRawMessage
	StartedAt   sql.NullTime
	CompletedAt sql.NullTime
}

func (q *Queries) UpsertRound(ctx context.Context, arg UpsertRoundParams) error {
	_, err := q.db.ExecContext(ctx, upsertRound,
		arg.ID,
		arg.Status,
		pq.Array(arg.Players),
		arg.BidCount,
		arg.HighestBid,
		arg.Leader,
		arg.Summary,
		arg.StartedAt,
		arg.CompletedAt,
	)
	return err
}
