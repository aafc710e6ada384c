package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Geofence   GeofenceConfig   `yaml:"geofence"`
	Lease      LeaseConfig      `yaml:"lease"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`

	// Layout describes the physical room: named blocks of rows of PC ids.
	// An empty string marks a gap in the row (no desk there).
	Layout map[string][][]string `yaml:"layout"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port              int     `yaml:"port"`
	RateLimitPerSec   float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst    int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds   int     `yaml:"cache_ttl_seconds"`
	SessionTTLMinutes int     `yaml:"session_ttl_minutes"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // "postgres" or "sqlite"
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// GeofenceConfig defines the circle within which lease claims are accepted.
type GeofenceConfig struct {
	Latitude     float64 `yaml:"latitude"`
	Longitude    float64 `yaml:"longitude"`
	RadiusM      float64 `yaml:"radius_m"`
	MaxAccuracyM float64 `yaml:"max_accuracy_m"`
}

// LeaseConfig controls heartbeat staleness and the reaper cadence.
type LeaseConfig struct {
	TimeoutSeconds      int           `yaml:"timeout_seconds"`
	ScanIntervalSeconds int           `yaml:"scan_interval_seconds"`
	Timeout             time.Duration `yaml:"-"` // Ignored by YAML parser
	ScanInterval        time.Duration `yaml:"-"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads the configuration from the given path and applies defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 2
	}
	if cfg.Server.SessionTTLMinutes <= 0 {
		cfg.Server.SessionTTLMinutes = 12 * 60
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.Driver != "sqlite" && cfg.Database.Driver != "postgres" {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "room.db"
	}

	if cfg.Geofence.RadiusM <= 0 {
		cfg.Geofence.RadiusM = 50
	}
	if cfg.Geofence.MaxAccuracyM <= 0 {
		cfg.Geofence.MaxAccuracyM = 40
	}

	if cfg.Lease.TimeoutSeconds <= 0 {
		cfg.Lease.TimeoutSeconds = 300
	}
	if cfg.Lease.ScanIntervalSeconds <= 0 {
		cfg.Lease.ScanIntervalSeconds = 30
	}
	cfg.Lease.Timeout = time.Duration(cfg.Lease.TimeoutSeconds) * time.Second
	cfg.Lease.ScanInterval = time.Duration(cfg.Lease.ScanIntervalSeconds) * time.Second

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	return &cfg, nil
}

// PCIDs flattens the room layout into the list of PC identifiers, skipping
// gaps. Within a block, row order is preserved.
func (c *Config) PCIDs() []string {
	var ids []string
	for _, block := range c.Layout {
		for _, row := range block {
			for _, id := range row {
				if id != "" {
					ids = append(ids, id)
				}
			}
		}
	}
	return ids
}
