package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mcdev12/bidtable/go/internal/auction/events"
	"github.com/rs/zerolog/log"
)

// Dispatcher fans auction events out to publishers on a background worker.
// Emit never blocks, so it is safe to call while the coordinator holds its lock.
type Dispatcher struct {
	publishers []Publisher
	config     Config
	queue      chan events.Event

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewDispatcher(cfg Config, publishers ...Publisher) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	return &Dispatcher{
		publishers: publishers,
		config:     cfg,
		queue:      make(chan events.Event, cfg.BufferSize),
		stopChan:   make(chan struct{}),
	}
}

// Emit queues event for delivery. A full queue drops the event.
func (d *Dispatcher) Emit(event events.Event) {
	select {
	case d.queue <- event:
	default:
		log.Warn().
			Str("event_id", event.ID.String()).
			Str("event_type", string(event.Type)).
			Msg("event queue full, dropping event")
	}
}

func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("event dispatcher already running")
	}
	d.running = true
	d.mu.Unlock()

	d.wg.Add(1)
	go d.run(ctx)

	log.Info().
		Int("publishers", len(d.publishers)).
		Int("buffer_size", d.config.BufferSize).
		Msg("event dispatcher started")

	return nil
}

// Stop delivers whatever is still queued, then returns.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return fmt.Errorf("event dispatcher not running")
	}
	d.running = false
	d.mu.Unlock()

	close(d.stopChan)
	d.wg.Wait()

	log.Info().Msg("event dispatcher stopped")
	return nil
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			d.drain(context.WithoutCancel(ctx))
			return
		case <-d.stopChan:
			d.drain(ctx)
			return
		case event := <-d.queue:
			d.dispatch(ctx, event)
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case event := <-d.queue:
			d.dispatch(ctx, event)
		default:
			return
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, event events.Event) {
	for _, p := range d.publishers {
		if err := d.publishWithRetry(ctx, p, event); err != nil {
			log.Error().
				Err(err).
				Str("event_id", event.ID.String()).
				Str("event_type", string(event.Type)).
				Str("publisher", fmt.Sprintf("%T", p)).
				Msg("failed to publish event")
		}
	}
}

func (d *Dispatcher) publishWithRetry(ctx context.Context, p Publisher, event events.Event) error {
	var lastErr error

	for attempt := 0; attempt <= d.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.config.RetryDelay * time.Duration(attempt)):
			}
		}

		if err := p.Publish(ctx, event); err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Str("event_id", event.ID.String()).
				Int("attempt", attempt+1).
				Msg("failed to publish event, retrying")
			continue
		}

		return nil
	}

	return fmt.Errorf("failed after %d attempts: %w", d.config.MaxRetries+1, lastErr)
}
