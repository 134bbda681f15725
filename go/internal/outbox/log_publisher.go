package outbox

import (
	"context"

	"github.com/mcdev12/bidtable/go/internal/auction/events"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogPublisher writes every event to the log. It is the publisher used when
// no broker is configured.
type LogPublisher struct {
	level zerolog.Level
}

func NewLogPublisher(level zerolog.Level) *LogPublisher {
	return &LogPublisher{level: level}
}

func (p *LogPublisher) Publish(ctx context.Context, event events.Event) error {
	log.WithLevel(p.level).
		Str("event_id", event.ID.String()).
		Str("event_type", string(event.Type)).
		Str("round_id", event.RoundID.String()).
		Time("timestamp", event.Timestamp).
		RawJSON("payload", event.Payload).
		Msg("auction event")
	return nil
}
