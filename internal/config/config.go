package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/lunarcity/ticketdesk/internal/domain"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	Tickets    TicketsConfig
	Sweep      SweepConfig
	Transcript TranscriptConfig
	Notify     NotifyConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values. An empty DSN switches the
// service to the in-memory ticket store.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines staff authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// Category describes presentation metadata for a ticket category. The
// core only cares about the id; name and icon belong to the UI layer.
type Category struct {
	ID   string
	Name string
	Icon string
}

// TicketsConfig carries the closed category set and lifecycle windows.
type TicketsConfig struct {
	Categories        map[string]Category
	InactivityTimeout time.Duration
	ArchiveRetention  time.Duration
}

// SweepConfig controls the periodic lifecycle sweep.
type SweepConfig struct {
	Interval time.Duration
	LockTTL  time.Duration
}

// TranscriptConfig bounds transcript generation and publishing.
type TranscriptConfig struct {
	Timeout         time.Duration
	PublishAttempts int
	PublishBackoff  time.Duration
}

// NotifyConfig holds stub notification endpoints.
type NotifyConfig struct {
	WebhookURL string
}

var defaultCategories = []Category{
	{ID: "reportPlayer", Name: "Report a Player", Icon: "warning"},
	{ID: "reportBug", Name: "Report Bug", Icon: "bug"},
	{ID: "buyBusiness", Name: "Buy a Business", Icon: "briefcase"},
	{ID: "buyEDM", Name: "Buy EDMs", Icon: "car"},
	{ID: "bookAuction", Name: "Book an Auction Ticket", Icon: "ticket"},
	{ID: "other", Name: "Other Issues", Icon: "memo"},
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	categories, err := parseCategories(os.Getenv("TICKET_CATEGORIES"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticketdesk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Tickets: TicketsConfig{
			Categories:        categories,
			InactivityTimeout: getEnvAsDuration("TICKET_INACTIVITY_TIMEOUT", 72*time.Hour),
			ArchiveRetention:  getEnvAsDuration("TICKET_ARCHIVE_RETENTION", 240*time.Hour),
		},
		Sweep: SweepConfig{
			Interval: getEnvAsDuration("SWEEP_INTERVAL", 5*time.Minute),
			LockTTL:  getEnvAsDuration("SWEEP_LOCK_TTL", 4*time.Minute),
		},
		Transcript: TranscriptConfig{
			Timeout:         getEnvAsDuration("TRANSCRIPT_TIMEOUT", 2*time.Minute),
			PublishAttempts: getEnvAsInt("TRANSCRIPT_PUBLISH_ATTEMPTS", 3),
			PublishBackoff:  getEnvAsDuration("TRANSCRIPT_PUBLISH_BACKOFF", 2*time.Second),
		},
		Notify: NotifyConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

// ValidCategory reports whether the category id belongs to the closed set.
func (t TicketsConfig) ValidCategory(id string) bool {
	_, ok := t.Categories[id]
	return ok
}

// parseCategories decodes "id:Name:icon;id:Name:icon" overrides. An empty
// value yields the default set. Unknown shapes are rejected rather than
// silently accepted.
func parseCategories(raw string) (map[string]Category, error) {
	out := make(map[string]Category)
	if strings.TrimSpace(raw) == "" {
		for _, c := range defaultCategories {
			out[c.ID] = c
		}
		return out, nil
	}
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" {
			return nil, &domain.ConfigError{Field: "category", Value: entry}
		}
		cat := Category{ID: strings.TrimSpace(parts[0]), Name: strings.TrimSpace(parts[1])}
		if len(parts) == 3 {
			cat.Icon = strings.TrimSpace(parts[2])
		}
		if _, dup := out[cat.ID]; dup {
			return nil, &domain.ConfigError{Field: "duplicate category", Value: cat.ID}
		}
		out[cat.ID] = cat
	}
	return out, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}
