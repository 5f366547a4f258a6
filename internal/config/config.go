package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/claude/forgemetrics/internal/progression"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Cache     CacheConfig     `yaml:"cache"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

// TailscaleConfig enables serving on the tailnet through tsnet. Requests
// arriving that way are attributed to the tailnet user that sent them.
type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// CacheConfig sizes the progression dashboard cache. SizeMB must be at
// least progression.MinCacheSizeMB so a full dashboard fits in one entry.
type CacheConfig struct {
	SizeMB     int `yaml:"size_mb"`
	TTLSeconds int `yaml:"ttl_seconds"`
}

const (
	defaultCacheSizeMB     = progression.MinCacheSizeMB
	defaultCacheTTLSeconds = 300
	defaultTailscaleHost   = "forgemetrics"
)

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix FORGE_ and underscore-separated paths:
//
//	FORGE_SERVER_HOST, FORGE_SERVER_PORT,
//	FORGE_DB_HOST, FORGE_DB_PORT, FORGE_DB_NAME,
//	FORGE_DB_USER, FORGE_DB_PASSWORD, FORGE_DB_SSLMODE,
//	FORGE_AUTH_API_KEY, FORGE_TAILSCALE_ENABLED,
//	FORGE_CACHE_SIZE_MB, FORGE_CACHE_TTL_SECONDS
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func applyEnvOverrides(cfg *Config) {
	envString("FORGE_SERVER_HOST", &cfg.Server.Host)
	envInt("FORGE_SERVER_PORT", &cfg.Server.Port)
	envString("FORGE_DB_HOST", &cfg.Database.Host)
	envInt("FORGE_DB_PORT", &cfg.Database.Port)
	envString("FORGE_DB_NAME", &cfg.Database.Name)
	envString("FORGE_DB_USER", &cfg.Database.User)
	envString("FORGE_DB_PASSWORD", &cfg.Database.Password)
	envString("FORGE_DB_SSLMODE", &cfg.Database.SSLMode)
	envString("FORGE_AUTH_API_KEY", &cfg.Auth.APIKey)
	if v := os.Getenv("FORGE_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	envInt("FORGE_CACHE_SIZE_MB", &cfg.Cache.SizeMB)
	envInt("FORGE_CACHE_TTL_SECONDS", &cfg.Cache.TTLSeconds)
}

func applyDefaults(cfg *Config) {
	if cfg.Cache.SizeMB <= 0 {
		cfg.Cache.SizeMB = defaultCacheSizeMB
	}
	if cfg.Cache.TTLSeconds <= 0 {
		cfg.Cache.TTLSeconds = defaultCacheTTLSeconds
	}
	if cfg.Tailscale.Hostname == "" {
		cfg.Tailscale.Hostname = defaultTailscaleHost
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Cache.SizeMB < progression.MinCacheSizeMB {
		return fmt.Errorf("cache.size_mb must be at least %d", progression.MinCacheSizeMB)
	}
	if c.Tailscale.Enabled && c.Tailscale.StateDir == "" {
		return fmt.Errorf("tailscale.state_dir is required when tailscale is enabled")
	}
	return nil
}
