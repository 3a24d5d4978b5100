// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Logging LoggingConfig `mapstructure:"logging"`
	Scraper ScraperConfig `mapstructure:"scraper"`
	Storage StorageConfig `mapstructure:"storage"`
	DB      DBConfig      `mapstructure:"db"`
	Archive ArchiveConfig `mapstructure:"archive"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                   int    `mapstructure:"port"`
	Environment            string `mapstructure:"environment"`
	RequestTimeoutSeconds  int    `mapstructure:"request_timeout_seconds"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
	// RateLimitRPS caps requests per second per API key; zero disables it.
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// AuthConfig lists the accepted bearer tokens.
type AuthConfig struct {
	APIKeys []string `mapstructure:"api_keys"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// ScraperConfig configures the seeding provider.
type ScraperConfig struct {
	Provider          string          `mapstructure:"provider"`
	URL               string          `mapstructure:"url"`
	UserAgent         string          `mapstructure:"user_agent"`
	RespectRobots     bool            `mapstructure:"respect_robots"`
	TimeoutSeconds    int             `mapstructure:"timeout_seconds"`
	Headless          bool            `mapstructure:"headless"`
	NavTimeoutSeconds int             `mapstructure:"nav_timeout_seconds"`
	WaitSelector      string          `mapstructure:"wait_selector"`
	Selectors         SelectorsConfig `mapstructure:"selectors"`
}

// SelectorsConfig overrides the extraction selectors. Empty values keep the
// built-in defaults.
type SelectorsConfig struct {
	Item     string `mapstructure:"item"`
	Title    string `mapstructure:"title"`
	Image    string `mapstructure:"image"`
	KnownFor string `mapstructure:"known_for"`
	Bio      string `mapstructure:"bio"`
}

// StorageConfig selects the actor store backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// ArchiveConfig selects where fetched listing pages are archived.
type ArchiveConfig struct {
	Backend   string `mapstructure:"backend"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for actor change notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ACTORS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Auth.APIKeys = cleanKeys(cfg.Auth.APIKeys)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.request_timeout_seconds", 30)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("server.rate_limit_rps", 0)
	v.SetDefault("server.rate_limit_burst", 20)
	v.SetDefault("auth.api_keys", []string{})
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("scraper.provider", "IMDb")
	v.SetDefault("scraper.url", "https://www.imdb.com/list/ls054840033/")
	v.SetDefault("scraper.user_agent", "Mozilla/5.0 (compatible; actors-api/1.0)")
	v.SetDefault("scraper.respect_robots", false)
	v.SetDefault("scraper.timeout_seconds", 30)
	v.SetDefault("scraper.headless", false)
	v.SetDefault("scraper.nav_timeout_seconds", 25)
	v.SetDefault("scraper.wait_selector", "")
	for _, key := range []string{"item", "title", "image", "known_for", "bio"} {
		v.SetDefault("scraper.selectors."+key, "")
	}
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "actors")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("archive.backend", "none")
	v.SetDefault("archive.base_dir", "")
	v.SetDefault("archive.gcs_bucket", "")
	v.SetDefault("archive.prefix", "raw")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("server.request_timeout_seconds must be >= 0")
	}
	if c.Server.RateLimitRPS < 0 {
		return fmt.Errorf("server.rate_limit_rps must be >= 0")
	}
	if c.Scraper.TimeoutSeconds <= 0 {
		return fmt.Errorf("scraper.timeout_seconds must be > 0")
	}
	if strings.TrimSpace(c.Scraper.URL) == "" {
		return fmt.Errorf("scraper.url is required")
	}
	if c.Scraper.Headless && c.Scraper.NavTimeoutSeconds <= 0 {
		return fmt.Errorf("scraper.nav_timeout_seconds must be > 0 when headless is enabled")
	}
	switch c.Storage.Backend {
	case "memory":
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn is required when storage.backend is postgres")
		}
	default:
		return fmt.Errorf("storage.backend %q is not one of memory, postgres", c.Storage.Backend)
	}
	switch c.Archive.Backend {
	case "none", "memory":
	case "local":
		if c.Archive.BaseDir == "" {
			return fmt.Errorf("archive.base_dir is required when archive.backend is local")
		}
	case "gcs":
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket is required when archive.backend is gcs")
		}
	default:
		return fmt.Errorf("archive.backend %q is not one of none, memory, local, gcs", c.Archive.Backend)
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id is required when pubsub.topic_name is set")
	}
	return nil
}

// Production reports whether the service runs in production mode.
func (c Config) Production() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

// ScrapeTimeout is the listing page fetch budget.
func (c Config) ScrapeTimeout() time.Duration {
	return time.Duration(c.Scraper.TimeoutSeconds) * time.Second
}

// RequestTimeout bounds each API request; zero disables the limit.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// ShutdownTimeout bounds graceful shutdown.
func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

func cleanKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}
