package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	App struct {
		Name        string   `envconfig:"APP_NAME" default:"Khata"`
		Port        int      `envconfig:"PORT" default:"8080"`
		Env         string   `envconfig:"APP_ENV" default:"development"`
		Currency    string   `envconfig:"CURRENCY_SYMBOL" default:"₹"`
		PhoneRegion string   `envconfig:"PHONE_REGION" default:"IN"`
		CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
	}

	DB struct {
		Driver     string `envconfig:"DB_DRIVER" default:"postgres"`
		Host       string `envconfig:"DB_HOST" default:"localhost"`
		Port       int    `envconfig:"DB_PORT" default:"5432"`
		User       string `envconfig:"DB_USER" default:"postgres"`
		Password   string `envconfig:"DB_PASSWORD" default:""`
		Name       string `envconfig:"DB_NAME" default:"khata"`
		SQLitePath string `envconfig:"DB_SQLITE_PATH" default:"khata.db"`
		// Migrations are applied on API start unless disabled.
		AutoMigrate bool `envconfig:"DB_AUTO_MIGRATE" default:"true"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
	}

	Log struct {
		Level  string `envconfig:"LOG_LEVEL" default:"info"`
		Format string `envconfig:"LOG_FORMAT" default:"console"`
		Output string `envconfig:"LOG_OUTPUT" default:"stdout"`
	}

	NLU struct {
		BaseURL   string        `envconfig:"NLU_BASE_URL" default:"https://api.groq.com/openai/v1"`
		APIKey    string        `envconfig:"NLU_API_KEY"`
		Model     string        `envconfig:"NLU_MODEL" default:"llama-3.1-8b-instant"`
		Timeout   time.Duration `envconfig:"NLU_TIMEOUT" default:"10s"`
		RateLimit float64       `envconfig:"NLU_RATE_LIMIT" default:"2"`
		Burst     int           `envconfig:"NLU_BURST" default:"4"`
	}

	Redis struct {
		Addr     string        `envconfig:"REDIS_ADDR"`
		Password string        `envconfig:"REDIS_PASSWORD"`
		DB       int           `envconfig:"REDIS_DB" default:"0"`
		DedupTTL time.Duration `envconfig:"REDIS_DEDUP_TTL" default:"24h"`
	}

	Auth struct {
		JWTSecret string `envconfig:"JWT_SECRET"`
	}

	Workflow struct {
		ReminderDueDays   int    `envconfig:"REMINDER_DUE_DAYS" default:"7"`
		LowStockThreshold int    `envconfig:"LOW_STOCK_THRESHOLD" default:"10"`
		LexiconFile       string `envconfig:"LEXICON_FILE"`
	}
}

// ConnectionString returns the DSN for the configured driver.
func (c *Config) ConnectionString() string {
	if c.DB.Driver == DriverSQLite {
		return c.DB.SQLitePath + "?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		url.QueryEscape(c.DB.User), url.QueryEscape(c.DB.Password), c.DB.Host, c.DB.Port, c.DB.Name)
}

// MigrationURL returns the golang-migrate database URL for the configured driver.
func (c *Config) MigrationURL() string {
	if c.DB.Driver == DriverSQLite {
		return "sqlite3://" + c.DB.SQLitePath
	}

	return strings.Replace(c.ConnectionString(), "postgres://", "pgx5://", 1)
}

func (c *Config) ReminderDue() time.Duration {
	return time.Duration(c.Workflow.ReminderDueDays) * 24 * time.Hour
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	switch cfg.DB.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DB.Driver)
	}

	return &cfg, nil
}
