package ledger

const schema = `
CREATE TABLE IF NOT EXISTS auction_events (
    id          UUID PRIMARY KEY,
    round_id    UUID,
    event_type  TEXT        NOT NULL,
    payload     JSONB,
    occurred_at TIMESTAMPTZ NOT NULL,
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS auction_events_round_id_idx ON auction_events (round_id);

CREATE TABLE IF NOT EXISTS auction_rounds (
    id           UUID PRIMARY KEY,
    status       TEXT        NOT NULL,
    players      TEXT[]      NOT NULL,
    bid_count    BIGINT      NOT NULL,
    highest_bid  BIGINT      NOT NULL,
    leader       TEXT,
    summary      JSONB,
    started_at   TIMESTAMPTZ,
    completed_at TIMESTAMPTZ
);

ALTER TABLE auction_rounds
    ALTER COLUMN bid_count   TYPE BIGINT,
    ALTER COLUMN highest_bid TYPE BIGINT;
`
