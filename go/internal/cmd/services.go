package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/bidtable/go/internal/auction"
	"github.com/mcdev12/bidtable/go/internal/gateway"
	"github.com/mcdev12/bidtable/go/internal/ledger"
	"github.com/mcdev12/bidtable/go/internal/outbox"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Coordinator *auction.Coordinator
	Dispatcher  *outbox.Dispatcher
	Gateway     *gateway.Service

	database  *sql.DB
	jetstream *outbox.JetStreamPublisher
}

func setupServices(ctx context.Context, config Config) (*Services, error) {
	// Wire up the chain
	// Publishers → Dispatcher → Coordinator → Gateway
	services := &Services{}
	clock := clockwork.NewRealClock()

	publishers := []outbox.Publisher{outbox.NewLogPublisher(zerolog.DebugLevel)}

	if config.Events.NATSURL != "" {
		jsConfig := outbox.DefaultJetStreamConfig()
		jsConfig.URL = config.Events.NATSURL
		js, err := outbox.NewJetStreamPublisher(ctx, jsConfig)
		if err != nil {
			services.Close()
			return nil, fmt.Errorf("failed to create JetStream publisher: %w", err)
		}
		services.jetstream = js
		publishers = append(publishers, js)
	}

	if config.Events.LedgerEnabled {
		database, err := setupDatabase(ctx)
		if err != nil {
			services.Close()
			return nil, err
		}
		services.database = database

		l := ledger.New(database)
		if err := l.EnsureSchema(ctx); err != nil {
			services.Close()
			return nil, err
		}
		publishers = append(publishers, l)
	}

	services.Dispatcher = outbox.NewDispatcher(outbox.Config{
		BufferSize: config.Events.BufferSize,
		MaxRetries: config.Events.MaxRetries,
		RetryDelay: config.Events.RetryDelay,
	}, publishers...)

	auctionConfig, err := config.auctionConfig()
	if err != nil {
		services.Close()
		return nil, fmt.Errorf("invalid auction configuration: %w", err)
	}
	coordinator, err := auction.NewCoordinator(auctionConfig,
		auction.WithClock(clock),
		auction.WithEventSink(services.Dispatcher),
	)
	if err != nil {
		services.Close()
		return nil, err
	}
	services.Coordinator = coordinator

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.TCPAddr = fmt.Sprintf(":%d", config.Server.TCPPort)
	gw, err := gateway.NewService(gatewayConfig, coordinator, clock)
	if err != nil {
		services.Close()
		return nil, err
	}
	services.Gateway = gw

	log.Info().
		Int("publishers", len(publishers)).
		Bool("nats", services.jetstream != nil).
		Bool("ledger", services.database != nil).
		Msg("services wired")

	return services, nil
}

// Close releases the broker connection and the database.
func (s *Services) Close() {
	if s.jetstream != nil {
		if err := s.jetstream.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close JetStream publisher")
		}
	}
	if s.database != nil {
		if err := s.database.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
	}
}
