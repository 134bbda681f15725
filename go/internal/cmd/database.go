package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/mcdev12/bidtable/go/internal/dbconfig"
	"github.com/rs/zerolog/log"
)

func setupDatabase(ctx context.Context) (*sql.DB, error) {
	dbConfig, err := dbconfig.Load("bidtable")
	if err != nil {
		return nil, fmt.Errorf("failed to load database config: %w", err)
	}

	database, err := sql.Open("postgres", dbConfig.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := database.PingContext(pingCtx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", dbConfig.Redacted(), err)
	}

	log.Info().
		Str("dsn", dbConfig.Redacted()).
		Msg("connected to database")
	return database, nil
}
