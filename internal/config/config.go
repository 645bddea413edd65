package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/promptvault/pkg/cache"
	"github.com/JaimeStill/promptvault/pkg/database"
	"github.com/JaimeStill/promptvault/pkg/lock"
	"github.com/JaimeStill/promptvault/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvPromptVaultEnv             = "PROMPTVAULT_ENV"
	EnvPromptVaultShutdownTimeout = "PROMPTVAULT_SHUTDOWN_TIMEOUT"
	EnvPromptVaultVersion         = "PROMPTVAULT_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "PROMPTVAULT_DB_HOST",
	Port:            "PROMPTVAULT_DB_PORT",
	Name:            "PROMPTVAULT_DB_NAME",
	User:            "PROMPTVAULT_DB_USER",
	Password:        "PROMPTVAULT_DB_PASSWORD",
	SSLMode:         "PROMPTVAULT_DB_SSL_MODE",
	MaxOpenConns:    "PROMPTVAULT_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "PROMPTVAULT_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "PROMPTVAULT_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "PROMPTVAULT_DB_CONN_TIMEOUT",
	LockTimeout:     "PROMPTVAULT_DB_LOCK_TIMEOUT",
	AutoMigrate:     "PROMPTVAULT_DB_AUTO_MIGRATE",
}

var cacheEnv = &cache.Env{
	Addr:        "PROMPTVAULT_CACHE_ADDR",
	Password:    "PROMPTVAULT_CACHE_PASSWORD",
	DB:          "PROMPTVAULT_CACHE_DB",
	Prefix:      "PROMPTVAULT_CACHE_PREFIX",
	TTL:         "PROMPTVAULT_CACHE_TTL",
	DialTimeout: "PROMPTVAULT_CACHE_DIAL_TIMEOUT",
}

var lockEnv = &lock.Env{
	Backend:       "PROMPTVAULT_LOCK_BACKEND",
	Prefix:        "PROMPTVAULT_LOCK_PREFIX",
	TTL:           "PROMPTVAULT_LOCK_TTL",
	Wait:          "PROMPTVAULT_LOCK_WAIT",
	RetryInterval: "PROMPTVAULT_LOCK_RETRY_INTERVAL",
}

var storageEnv = &storage.Env{
	Enabled:          "PROMPTVAULT_STORAGE_ENABLED",
	ContainerName:    "PROMPTVAULT_STORAGE_CONTAINER_NAME",
	ConnectionString: "PROMPTVAULT_STORAGE_CONNECTION_STRING",
}

// Config is the root configuration for the PromptVault service.
type Config struct {
	Server          ServerConfig    `toml:"server"`
	Database        database.Config `toml:"database"`
	Cache           cache.Config    `toml:"cache"`
	Lock            lock.Config     `toml:"lock"`
	Storage         storage.Config  `toml:"storage"`
	Prompts         PromptsConfig   `toml:"prompts"`
	API             APIConfig       `toml:"api"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
	Version         string          `toml:"version"`
}

// Env returns the PROMPTVAULT_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvPromptVaultEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Cache.Merge(&overlay.Cache)
	c.Lock.Merge(&overlay.Lock)
	c.Storage.Merge(&overlay.Storage)
	c.Prompts.Merge(&overlay.Prompts)
	c.API.Merge(&overlay.API)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Cache.Finalize(cacheEnv); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.Lock.Finalize(lockEnv); err != nil {
		return fmt.Errorf("lock: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Prompts.Finalize(); err != nil {
		return fmt.Errorf("prompts: %w", err)
	}
	if c.Prompts.ArchiveDeleted() && !c.Storage.Enabled {
		return fmt.Errorf("prompts: archive_deleted requires storage.enabled")
	}
	if ttl, wait := c.Lock.Policy().TTL, c.Database.LockTimeoutDuration(); ttl <= wait {
		return fmt.Errorf("lock: ttl %s must exceed database.lock_timeout %s", ttl, wait)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvPromptVaultShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvPromptVaultVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvPromptVaultEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
