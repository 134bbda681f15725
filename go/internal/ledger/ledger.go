// Package ledger keeps an append-only Postgres record of auction events and
// one summary row per finished round. Nothing in it is read back into a
// running table.
package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mcdev12/bidtable/go/internal/auction/events"
	"github.com/mcdev12/bidtable/go/internal/models"
	"github.com/mcdev12/bidtable/go/internal/sqlutil"
	"github.com/rs/zerolog/log"
	"github.com/sqlc-dev/pqtype"
)

type Ledger struct {
	db      *sql.DB
	queries *Queries
}

func New(db *sql.DB) *Ledger {
	return &Ledger{
		db:      db,
		queries: NewQueries(db),
	}
}

// EnsureSchema creates the ledger tables if they do not exist.
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create ledger schema: %w", err)
	}
	return nil
}

// Publish records event. Events that finish a round also write the round
// summary in the same transaction.
func (l *Ledger) Publish(ctx context.Context, event events.Event) error {
	eventArg := eventParams(event)

	roundArg, ok, err := roundParams(event)
	if err != nil {
		return err
	}
	if !ok {
		if err := l.queries.InsertEvent(ctx, eventArg); err != nil {
			return fmt.Errorf("insert %s event: %w", event.Type, err)
		}
		return nil
	}

	err = sqlutil.Run(ctx, l.db, l.queries.WithTx, func(q *Queries) error {
		if err := q.InsertEvent(ctx, eventArg); err != nil {
			return fmt.Errorf("insert %s event: %w", event.Type, err)
		}
		if err := q.UpsertRound(ctx, roundArg); err != nil {
			return fmt.Errorf("upsert round %s: %w", roundArg.ID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("round_id", roundArg.ID.String()).
		Str("status", roundArg.Status).
		Int64("highest_bid", roundArg.HighestBid).
		Msg("round recorded in ledger")
	return nil
}

func eventParams(event events.Event) InsertEventParams {
	return InsertEventParams{
		ID:         event.ID,
		RoundID:    sqlutil.ToNullUUID(event.RoundID),
		EventType:  string(event.Type),
		Payload:    pqtype.NullRawMessage{RawMessage: event.Payload, Valid: len(event.Payload) > 0},
		OccurredAt: event.Timestamp,
	}
}

// roundParams extracts the round summary from events that finish a round.
func roundParams(event events.Event) (UpsertRoundParams, bool, error) {
	if event.Type != events.EventTypeRoundCompleted && event.Type != events.EventTypeRoundAbandoned {
		return UpsertRoundParams{}, false, nil
	}

	payload, err := events.ParsePayload(event)
	if err != nil {
		return UpsertRoundParams{}, false, fmt.Errorf("parse %s payload: %w", event.Type, err)
	}

	var round models.Round
	switch p := payload.(type) {
	case events.RoundCompletedPayload:
		round = p.Round
	case events.RoundAbandonedPayload:
		round = p.Round
	}

	players := make([]string, len(round.Seating))
	for i, p := range round.Seating {
		players[i] = p.Identity
	}

	return UpsertRoundParams{
		ID:          round.ID,
		Status:      string(round.Status),
		Players:     players,
		BidCount:    int64(len(round.Bids)),
		HighestBid:  int64(round.HighestBid),
		Leader:      sqlutil.ToSqlString(round.Leader),
		Summary:     pqtype.NullRawMessage{RawMessage: event.Payload, Valid: true},
		StartedAt:   sqlutil.ToSqlTime(round.StartedAt),
		CompletedAt: sqlutil.ToSqlTime(round.CompletedAt),
	}, true, nil
}
