package outbox

import (
	"context"
	"time"

	"github.com/mcdev12/bidtable/go/internal/auction/events"
)

// Publisher delivers one auction event to a downstream system.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, event events.Event) error

func (f PublisherFunc) Publish(ctx context.Context, event events.Event) error {
	return f(ctx, event)
}

type Config struct {
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

func DefaultConfig() Config {
	return Config{
		BufferSize: 1000,
		MaxRetries: 3,
		RetryDelay: time.Second,
	}
}
