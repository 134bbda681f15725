package dbconfig

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

var sslModes = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}

// Config holds Postgres connection settings shared by the server and the
// reporting tools.
type Config struct {
	Host           string
	Port           int
	User           string
	Password       string
	Database       string
	SSLMode        string
	AppName        string
	ConnectTimeout time.Duration
}

// Load reads the connection settings. DATABASE_URL wins when set; otherwise
// the DB_* variables are used with local defaults.
func Load(appName string) (Config, error) {
	cfg := Config{
		Host:           "localhost",
		Port:           5432,
		User:           "postgres",
		Password:       "postgres",
		Database:       "auction",
		SSLMode:        "disable",
		AppName:        appName,
		ConnectTimeout: 5 * time.Second,
	}

	if raw := os.Getenv("DATABASE_URL"); raw != "" {
		if err := cfg.applyURL(raw); err != nil {
			return Config{}, err
		}
	} else if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Host = getEnv("DB_HOST", c.Host)
	c.User = getEnv("DB_USER", c.User)
	c.Password = getEnv("DB_PASSWORD", c.Password)
	c.Database = getEnv("DB_NAME", c.Database)
	c.SSLMode = getEnv("DB_SSLMODE", c.SSLMode)

	if v := os.Getenv("DB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DB_PORT %q: %w", v, err)
		}
		c.Port = port
	}
	if v := os.Getenv("DB_CONNECT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid DB_CONNECT_TIMEOUT %q: %w", v, err)
		}
		c.ConnectTimeout = d
	}
	return nil
}

func (c *Config) applyURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("invalid DATABASE_URL: unsupported scheme %q", u.Scheme)
	}

	if host := u.Hostname(); host != "" {
		c.Host = host
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid DATABASE_URL port %q: %w", p, err)
		}
		c.Port = port
	}
	if u.User != nil {
		c.User = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			c.Password = pw
		}
	}
	if db := strings.TrimPrefix(u.Path, "/"); db != "" {
		c.Database = db
	}
	if mode := u.Query().Get("sslmode"); mode != "" {
		c.SSLMode = mode
	}
	return nil
}

func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("database port %d out of range", c.Port)
	}
	if c.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if !slices.Contains(sslModes, c.SSLMode) {
		return fmt.Errorf("unknown sslmode %q", c.SSLMode)
	}
	return nil
}

func (c Config) url() *url.URL {
	q := url.Values{"sslmode": {c.SSLMode}}
	if c.AppName != "" {
		q.Set("application_name", c.AppName)
	}
	if c.ConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(c.ConnectTimeout.Round(time.Second)/time.Second)))
	}
	return &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Database,
		RawQuery: q.Encode(),
	}
}

// DSN returns the connection URL understood by both lib/pq and pgx.
func (c Config) DSN() string {
	return c.url().String()
}

// Redacted is DSN with the password masked.
func (c Config) Redacted() string {
	return c.url().Redacted()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
