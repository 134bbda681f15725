package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/bidtable/go/internal/dbconfig"
	"github.com/mcdev12/bidtable/go/internal/sqlutil"
)

// roundRow mirrors one auction_rounds record.
type roundRow struct {
	ID          string         `db:"id"`
	Status      string         `db:"status"`
	Players     []string       `db:"players"`
	BidCount    int64          `db:"bid_count"`
	HighestBid  int64          `db:"highest_bid"`
	Leader      sql.NullString `db:"leader"`
	StartedAt   sql.NullTime   `db:"started_at"`
	CompletedAt sql.NullTime   `db:"completed_at"`
}

// eventRow mirrors one auction_events record.
type eventRow struct {
	EventType  string    `db:"event_type"`
	Payload    string    `db:"payload"`
	OccurredAt time.Time `db:"occurred_at"`
}

const listRounds = `
SELECT id::text AS id, status, players, bid_count, highest_bid, leader, started_at, completed_at
FROM auction_rounds
ORDER BY completed_at DESC NULLS LAST
LIMIT $1
`

const listRoundEvents = `
SELECT event_type, coalesce(payload::text, '') AS payload, occurred_at
FROM auction_events
WHERE round_id = $1::uuid
ORDER BY occurred_at, recorded_at
`

func main() {
	limit := flag.Int("limit", 20, "number of rounds to list")
	round := flag.String("round", "", "print the event history of one round id")
	flag.Parse()

	ctx := context.Background()

	cfg, err := dbconfig.Load("round_report")
	if err != nil {
		fmt.Fprintf(os.Stderr, "database config: %v\n", err)
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to %s: %v\n", cfg.Redacted(), err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to reach %s: %v\n", cfg.Redacted(), err)
		os.Exit(1)
	}

	if *round != "" {
		rows, err := pool.Query(ctx, listRoundEvents, *round)
		if err != nil {
			fmt.Fprintf(os.Stderr, "query events: %v\n", err)
			os.Exit(1)
		}
		history, err := pgx.CollectRows(rows, pgx.RowToStructByName[eventRow])
		if err != nil {
			fmt.Fprintf(os.Stderr, "read events: %v\n", err)
			os.Exit(1)
		}
		writeEvents(os.Stdout, history)
		return
	}

	rows, err := pool.Query(ctx, listRounds, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query rounds: %v\n", err)
		os.Exit(1)
	}
	rounds, err := pgx.CollectRows(rows, pgx.RowToStructByName[roundRow])
	if err != nil {
		fmt.Fprintf(os.Stderr, "read rounds: %v\n", err)
		os.Exit(1)
	}
	writeRounds(os.Stdout, rounds)
}

func writeRounds(w io.Writer, rounds []roundRow) {
	if len(rounds) == 0 {
		fmt.Fprintln(w, "no rounds recorded")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROUND\tSTATUS\tPLAYERS\tBIDS\tHIGHEST\tWINNER\tDURATION")
	for _, r := range rounds {
		winner := sqlutil.FromSqlString(r.Leader, "-")
		duration := "-"
		started, completed := sqlutil.FromSqlTime(r.StartedAt), sqlutil.FromSqlTime(r.CompletedAt)
		if started != nil && completed != nil {
			duration = completed.Sub(*started).Round(time.Second).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.ID, r.Status, strings.Join(r.Players, ","), r.BidCount, r.HighestBid, winner, duration)
	}
	_ = tw.Flush()
}

func writeEvents(w io.Writer, history []eventRow) {
	if len(history) == 0 {
		fmt.Fprintln(w, "no events recorded for round")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tEVENT\tPAYLOAD")
	for _, e := range history {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.OccurredAt.UTC().Format(time.RFC3339), e.EventType, e.Payload)
	}
	_ = tw.Flush()
}
