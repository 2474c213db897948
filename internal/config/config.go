// Package config loads and validates lead-finder configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage, snapshot and event drivers.
const (
	DriverNone     = "none"
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverLocal    = "local"
	DriverGCS      = "gcs"
	DriverPubSub   = "pubsub"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Snapshots SnapshotsConfig `mapstructure:"snapshots"`
	Events    EventsConfig    `mapstructure:"events"`
	Results   ResultsConfig   `mapstructure:"results"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// QueueConfig sizes the consumer side of the scan queue.
type QueueConfig struct {
	Workers int `mapstructure:"workers"`
}

// AuditConfig governs site audits.
type AuditConfig struct {
	UserAgent     string          `mapstructure:"user_agent"`
	Timeout       time.Duration   `mapstructure:"timeout"`
	MaxProbes     int             `mapstructure:"max_probes"`
	RespectRobots bool            `mapstructure:"respect_robots"`
	RateLimit     RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig throttles outbound requests per host.
type RateLimitConfig struct {
	RPS     float64            `mapstructure:"rps"`
	Burst   int                `mapstructure:"burst"`
	PerHost map[string]float64 `mapstructure:"per_host"`
}

// DiscoveryConfig enables and tunes discovery providers.
type DiscoveryConfig struct {
	UserAgent  string           `mapstructure:"user_agent"`
	DuckDuckGo DuckDuckGoConfig `mapstructure:"duckduckgo"`
	OSM        OSMConfig        `mapstructure:"osm"`
	Static     StaticConfig     `mapstructure:"static"`
}

// DuckDuckGoConfig configures the HTML web search provider.
type DuckDuckGoConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Endpoint   string        `mapstructure:"endpoint"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxResults int           `mapstructure:"max_results"`
	SiteFilter string        `mapstructure:"site_filter"`
}

// OSMConfig configures the Nominatim + Overpass places provider.
type OSMConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	NominatimURL      string        `mapstructure:"nominatim_url"`
	NominatimTimeout  time.Duration `mapstructure:"nominatim_timeout"`
	NominatimRPS      float64       `mapstructure:"nominatim_rps"`
	OverpassEndpoints []string      `mapstructure:"overpass_endpoints"`
	OverpassTimeout   time.Duration `mapstructure:"overpass_timeout"`
}

// StaticConfig serves fixed discovery results, for demos and local runs.
type StaticConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	URLs    []string `mapstructure:"urls"`
}

// StorageConfig selects the lead store.
type StorageConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	Migrate         bool          `mapstructure:"migrate"`
}

// RedisConfig points the geocode cache at Redis. An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
	Prefix   string        `mapstructure:"prefix"`
}

// SnapshotsConfig selects where audited homepages are archived.
type SnapshotsConfig struct {
	Driver        string        `mapstructure:"driver"`
	BaseDir       string        `mapstructure:"base_dir"`
	Bucket        string        `mapstructure:"bucket"`
	Prefix        string        `mapstructure:"prefix"`
	UploadTimeout time.Duration `mapstructure:"upload_timeout"`
}

// EventsConfig selects where scan events are published.
type EventsConfig struct {
	Driver    string `mapstructure:"driver"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// ResultsConfig holds result listing defaults.
type ResultsConfig struct {
	PoorThreshold int `mapstructure:"poor_threshold"`
}

// Load builds a Config from an optional .env file, an optional config file
// and LEADFINDER_* environment variables.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("LEADFINDER")
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

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.request_timeout", "45s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("queue.workers", 1)
	v.SetDefault("audit.user_agent", "LeadFinder/1.0")
	v.SetDefault("audit.timeout", "12s")
	v.SetDefault("audit.max_probes", 5)
	v.SetDefault("audit.respect_robots", false)
	v.SetDefault("audit.rate_limit.rps", 2.0)
	v.SetDefault("audit.rate_limit.burst", 2)
	v.SetDefault("discovery.user_agent", "LeadFinder/1.0 (+https://github.com/CengizhanKARAGOZ/lead-finder)")
	v.SetDefault("discovery.duckduckgo.enabled", true)
	v.SetDefault("discovery.duckduckgo.endpoint", "https://html.duckduckgo.com/html/")
	v.SetDefault("discovery.duckduckgo.timeout", "10s")
	v.SetDefault("discovery.duckduckgo.max_results", 10)
	v.SetDefault("discovery.duckduckgo.site_filter", "site:.tr")
	v.SetDefault("discovery.osm.enabled", true)
	v.SetDefault("discovery.osm.nominatim_url", "https://nominatim.openstreetmap.org/search")
	v.SetDefault("discovery.osm.nominatim_timeout", "20s")
	v.SetDefault("discovery.osm.nominatim_rps", 1.0)
	v.SetDefault("discovery.osm.overpass_endpoints", []string{
		"https://overpass-api.de/api/interpreter",
		"https://overpass.kumi.systems/api/interpreter",
		"https://overpass.openstreetmap.ru/api/interpreter",
	})
	v.SetDefault("discovery.osm.overpass_timeout", "60s")
	v.SetDefault("discovery.static.enabled", false)
	v.SetDefault("discovery.static.urls", []string{})
	v.SetDefault("storage.driver", DriverMemory)
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.max_conns", 10)
	v.SetDefault("storage.min_conns", 0)
	v.SetDefault("storage.max_conn_lifetime", "30m")
	v.SetDefault("storage.migrate", true)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "168h")
	v.SetDefault("redis.prefix", "leadfinder:geo:")
	v.SetDefault("snapshots.driver", DriverNone)
	v.SetDefault("snapshots.base_dir", "snapshots")
	v.SetDefault("snapshots.bucket", "")
	v.SetDefault("snapshots.prefix", "homepages")
	v.SetDefault("snapshots.upload_timeout", "30s")
	v.SetDefault("events.driver", DriverNone)
	v.SetDefault("events.project_id", "")
	v.SetDefault("events.topic", "lead-scores")
	v.SetDefault("results.poor_threshold", 20)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Queue.Workers <= 0 {
		return fmt.Errorf("queue.workers must be > 0")
	}
	if c.Audit.Timeout <= 0 {
		return fmt.Errorf("audit.timeout must be > 0")
	}
	if c.Audit.MaxProbes < 0 {
		return fmt.Errorf("audit.max_probes must be >= 0")
	}
	if c.Discovery.DuckDuckGo.Enabled && c.Discovery.DuckDuckGo.Endpoint == "" {
		return fmt.Errorf("discovery.duckduckgo.endpoint must be set when duckduckgo is enabled")
	}
	if c.Discovery.OSM.Enabled && len(c.Discovery.OSM.OverpassEndpoints) == 0 {
		return fmt.Errorf("discovery.osm.overpass_endpoints must not be empty when osm is enabled")
	}
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn must be set for the postgres driver")
		}
	default:
		return fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver)
	}
	switch c.Snapshots.Driver {
	case DriverNone, DriverMemory:
	case DriverLocal:
		if c.Snapshots.BaseDir == "" {
			return fmt.Errorf("snapshots.base_dir must be set for the local driver")
		}
	case DriverGCS:
		if c.Snapshots.Bucket == "" {
			return fmt.Errorf("snapshots.bucket must be set for the gcs driver")
		}
	default:
		return fmt.Errorf("snapshots.driver %q is not supported", c.Snapshots.Driver)
	}
	switch c.Events.Driver {
	case DriverNone:
	case DriverMemory, DriverPubSub:
		if c.Events.Topic == "" {
			return fmt.Errorf("events.topic must be set when events are enabled")
		}
		if c.Events.Driver == DriverPubSub && c.Events.ProjectID == "" {
			return fmt.Errorf("events.project_id must be set for the pubsub driver")
		}
	default:
		return fmt.Errorf("events.driver %q is not supported", c.Events.Driver)
	}
	if c.Results.PoorThreshold < 0 || c.Results.PoorThreshold > 100 {
		return fmt.Errorf("results.poor_threshold must be within 0..100")
	}
	return nil
}
