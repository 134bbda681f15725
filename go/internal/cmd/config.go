package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mcdev12/bidtable/go/internal/auction"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel string `yaml:"log_level"`

	Auction struct {
		MaxPlayers       int    `yaml:"max_players"`
		DisconnectPolicy string `yaml:"disconnect_policy"`
	} `yaml:"auction"`

	Server struct {
		TCPPort  int `yaml:"tcp_port"`
		HTTPPort int `yaml:"http_port"`
	} `yaml:"server"`

	Events struct {
		NATSURL       string        `yaml:"nats_url"`
		LedgerEnabled bool          `yaml:"ledger_enabled"`
		BufferSize    int           `yaml:"buffer_size"`
		MaxRetries    int           `yaml:"max_retries"`
		RetryDelay    time.Duration `yaml:"retry_delay"`
	} `yaml:"events"`
}

func defaultConfig() Config {
	var c Config
	c.LogLevel = "info"
	c.Auction.MaxPlayers = 4
	c.Auction.DisconnectPolicy = string(auction.DisconnectSkip)
	c.Server.TCPPort = 8002
	c.Server.HTTPPort = 8080
	c.Events.BufferSize = 1000
	c.Events.MaxRetries = 3
	c.Events.RetryDelay = time.Second
	return c
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("ignoring non-integer environment value")
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("ignoring non-boolean environment value")
	}
	return defaultValue
}

// loadConfig reads the YAML file at path over the defaults. A missing file
// leaves the defaults in place.
func loadConfig(path string) (Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// applyEnv lets environment variables override the file.
func (c *Config) applyEnv() {
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Auction.MaxPlayers = getEnvAsInt("MAX_PLAYERS", c.Auction.MaxPlayers)
	c.Auction.DisconnectPolicy = getEnv("DISCONNECT_POLICY", c.Auction.DisconnectPolicy)
	c.Server.TCPPort = getEnvAsInt("AUCTION_PORT", c.Server.TCPPort)
	c.Server.HTTPPort = getEnvAsInt("HTTP_PORT", c.Server.HTTPPort)
	c.Events.NATSURL = getEnv("NATS_URL", c.Events.NATSURL)
	c.Events.LedgerEnabled = getEnvAsBool("LEDGER_ENABLED", c.Events.LedgerEnabled)
}

// auctionConfig validates the table settings.
func (c Config) auctionConfig() (auction.Config, error) {
	policy, err := auction.ParseDisconnectPolicy(c.Auction.DisconnectPolicy)
	if err != nil {
		return auction.Config{}, err
	}
	cfg := auction.Config{
		MaxPlayers:       c.Auction.MaxPlayers,
		DisconnectPolicy: policy,
	}
	if err := cfg.Validate(); err != nil {
		return auction.Config{}, err
	}
	return cfg, nil
}

func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		log.Warn().Str("log_level", level).Msg("unknown log level, using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
