package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	"github.com/memohai/teleput/internal/keygen"
)

const (
	DefaultConfigPath      = "config.toml"
	DefaultHTTPAddr        = "localhost:3001"
	DefaultMaxPostBody     = "1M"
	DefaultStorageDriver   = DriverSQLite
	DefaultSQLitePath      = "teleput.sqlite"
	DefaultPGHost          = "127.0.0.1"
	DefaultPGPort          = 5432
	DefaultPGUser          = "postgres"
	DefaultPGDatabase      = "teleput"
	DefaultPGSSLMode       = "disable"
	DefaultKeyAlphabet     = keygen.DefaultAlphabet
	DefaultKeyLength       = keygen.DefaultLength
	DefaultMaxFileSize     = 10000000
	DefaultMaxFieldBytes   = 64 * 1024
	DefaultSweepSchedule   = "@every 10m"
	DefaultSweepMaxAge     = time.Hour
	DefaultAPIEndpoint     = "https://api.telegram.org/bot%s/%s"
	DefaultTelegramTimeout = 60 * time.Second
	DefaultWebhookPath     = "/telegram"
	DefaultMetricsPath     = "/metrics"

	// EnvPrefix prefixes every environment override, e.g. TELEPUT_TELEGRAM_BOT_TOKEN.
	EnvPrefix = "TELEPUT_"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Log      LogConfig      `toml:"log" envPrefix:"LOG_"`
	Server   ServerConfig   `toml:"server" envPrefix:"SERVER_"`
	Storage  StorageConfig  `toml:"storage" envPrefix:"STORAGE_"`
	Keys     KeysConfig     `toml:"keys" envPrefix:"KEYS_"`
	Upload   UploadConfig   `toml:"upload" envPrefix:"UPLOAD_"`
	Telegram TelegramConfig `toml:"telegram" envPrefix:"TELEGRAM_"`
	Metrics  MetricsConfig  `toml:"metrics" envPrefix:"METRICS_"`
}

type LogConfig struct {
	Level  string `toml:"level" env:"LEVEL" validate:"oneof=debug info warn error"`
	Format string `toml:"format" env:"FORMAT" validate:"oneof=text json"`
}

type ServerConfig struct {
	Addr        string `toml:"addr" env:"ADDR" validate:"required"`
	MaxPostBody string `toml:"max_post_body" env:"MAX_POST_BODY"`
}

type StorageConfig struct {
	Driver   string         `toml:"driver" env:"DRIVER" validate:"oneof=sqlite postgres"`
	SQLite   SQLiteConfig   `toml:"sqlite" envPrefix:"SQLITE_"`
	Postgres PostgresConfig `toml:"postgres" envPrefix:"POSTGRES_"`
}

type SQLiteConfig struct {
	Path string `toml:"path" env:"PATH"`
}

type PostgresConfig struct {
	Host     string `toml:"host" env:"HOST"`
	Port     int    `toml:"port" env:"PORT"`
	User     string `toml:"user" env:"USER"`
	Password string `toml:"password" env:"PASSWORD"`
	Database string `toml:"database" env:"DATABASE"`
	SSLMode  string `toml:"sslmode" env:"SSLMODE"`
}

type KeysConfig struct {
	Alphabet string `toml:"alphabet" env:"ALPHABET" validate:"required"`
	Length   int    `toml:"length" env:"LENGTH" validate:"min=1,max=128"`
}

type UploadConfig struct {
	MaxFileSize   int64         `toml:"max_file_size" env:"MAX_FILE_SIZE" validate:"gt=0"`
	MaxFieldBytes int64         `toml:"max_field_bytes" env:"MAX_FIELD_BYTES" validate:"gt=0"`
	SpoolDir      string        `toml:"spool_dir" env:"SPOOL_DIR"`
	SweepSchedule string        `toml:"sweep_schedule" env:"SWEEP_SCHEDULE"`
	SweepMaxAge   time.Duration `toml:"sweep_max_age" env:"SWEEP_MAX_AGE"`
}

type TelegramConfig struct {
	BotToken       string        `toml:"bot_token" env:"BOT_TOKEN"`
	APIEndpoint    string        `toml:"api_endpoint" env:"API_ENDPOINT" validate:"required"`
	Timeout        time.Duration `toml:"timeout" env:"TIMEOUT"`
	WebhookURL     string        `toml:"webhook_url" env:"WEBHOOK_URL" validate:"omitempty,url"`
	WebhookPath    string        `toml:"webhook_path" env:"WEBHOOK_PATH" validate:"omitempty,startswith=/"`
	GroupAdminOnly bool          `toml:"group_admin_only" env:"GROUP_ADMIN_ONLY"`
}

// WebhookEnabled reports whether updates arrive by webhook instead of long polling.
func (c TelegramConfig) WebhookEnabled() bool {
	return c.WebhookURL != ""
}

// WebhookPathGuessable reports whether webhook mode serves updates on the
// default path. The route is unauthenticated, so anyone who can reach it can
// forge commands such as /stop.
func (c TelegramConfig) WebhookPathGuessable() bool {
	if !c.WebhookEnabled() {
		return false
	}
	return c.WebhookPath == "" || c.WebhookPath == DefaultWebhookPath
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled" env:"ENABLED"`
	Path    string `toml:"path" env:"PATH" validate:"omitempty,startswith=/"`
}

func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:        DefaultHTTPAddr,
			MaxPostBody: DefaultMaxPostBody,
		},
		Storage: StorageConfig{
			Driver: DefaultStorageDriver,
			SQLite: SQLiteConfig{
				Path: DefaultSQLitePath,
			},
			Postgres: PostgresConfig{
				Host:     DefaultPGHost,
				Port:     DefaultPGPort,
				User:     DefaultPGUser,
				Database: DefaultPGDatabase,
				SSLMode:  DefaultPGSSLMode,
			},
		},
		Keys: KeysConfig{
			Alphabet: DefaultKeyAlphabet,
			Length:   DefaultKeyLength,
		},
		Upload: UploadConfig{
			MaxFileSize:   DefaultMaxFileSize,
			MaxFieldBytes: DefaultMaxFieldBytes,
			SweepSchedule: DefaultSweepSchedule,
			SweepMaxAge:   DefaultSweepMaxAge,
		},
		Telegram: TelegramConfig{
			APIEndpoint:    DefaultAPIEndpoint,
			Timeout:        DefaultTelegramTimeout,
			WebhookPath:    DefaultWebhookPath,
			GroupAdminOnly: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    DefaultMetricsPath,
		},
	}
}

// Load reads the TOML file at path on top of the defaults, applies
// TELEPUT_* environment overrides and validates the result. A missing file
// is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("decode %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, err
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
