package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	config, err := loadConfig(getEnv("AUCTION_CONFIG", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	config.applyEnv()
	setupLogging(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := setupServices(ctx, config)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up services")
	}
	defer services.Close()

	if err := services.Dispatcher.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start event dispatcher")
	}

	server := setupServer(config.Server.HTTPPort, services)

	log.Info().
		Int("tcp_port", config.Server.TCPPort).
		Int("http_port", config.Server.HTTPPort).
		Int("max_players", config.Auction.MaxPlayers).
		Str("disconnect_policy", config.Auction.DisconnectPolicy).
		Msg("starting auction server")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return services.Coordinator.Run(gctx)
	})
	g.Go(func() error {
		return services.Gateway.Start(gctx)
	})
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
	}

	if err := services.Dispatcher.Stop(); err != nil {
		log.Error().Err(err).Msg("failed to stop event dispatcher")
	}
	log.Info().Msg("shutdown complete")
}
