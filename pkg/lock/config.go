package lock

import (
	"fmt"
	"os"
	"time"
)

// Config holds lease policy and backend settings.
// Backend is "redis" for multi-instance deployments or "memory" for a single process.
type Config struct {
	Backend       string `toml:"backend"`
	Prefix        string `toml:"prefix"`
	TTL           string `toml:"ttl"`
	Wait          string `toml:"wait"`
	RetryInterval string `toml:"retry_interval"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Backend       string
	Prefix        string
	TTL           string
	Wait          string
	RetryInterval string
}

// Policy converts the finalized durations into a lease Policy.
func (c *Config) Policy() Policy {
	ttl, _ := time.ParseDuration(c.TTL)
	wait, _ := time.ParseDuration(c.Wait)
	retry, _ := time.ParseDuration(c.RetryInterval)
	return Policy{TTL: ttl, Wait: wait, RetryInterval: retry}
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Backend != "" {
		c.Backend = overlay.Backend
	}
	if overlay.Prefix != "" {
		c.Prefix = overlay.Prefix
	}
	if overlay.TTL != "" {
		c.TTL = overlay.TTL
	}
	if overlay.Wait != "" {
		c.Wait = overlay.Wait
	}
	if overlay.RetryInterval != "" {
		c.RetryInterval = overlay.RetryInterval
	}
}

func (c *Config) loadDefaults() {
	if c.Backend == "" {
		c.Backend = "redis"
	}
	if c.Prefix == "" {
		c.Prefix = defaultRedisPrefix
	}
	if c.TTL == "" {
		c.TTL = "30s"
	}
	if c.Wait == "" {
		c.Wait = "5s"
	}
	if c.RetryInterval == "" {
		c.RetryInterval = "50ms"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Backend != "" {
		if v := os.Getenv(env.Backend); v != "" {
			c.Backend = v
		}
	}
	if env.Prefix != "" {
		if v := os.Getenv(env.Prefix); v != "" {
			c.Prefix = v
		}
	}
	if env.TTL != "" {
		if v := os.Getenv(env.TTL); v != "" {
			c.TTL = v
		}
	}
	if env.Wait != "" {
		if v := os.Getenv(env.Wait); v != "" {
			c.Wait = v
		}
	}
	if env.RetryInterval != "" {
		if v := os.Getenv(env.RetryInterval); v != "" {
			c.RetryInterval = v
		}
	}
}

func (c *Config) validate() error {
	if c.Backend != "redis" && c.Backend != "memory" {
		return fmt.Errorf("invalid backend %q: must be redis or memory", c.Backend)
	}
	ttl, err := time.ParseDuration(c.TTL)
	if err != nil {
		return fmt.Errorf("invalid ttl: %w", err)
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}
	if _, err := time.ParseDuration(c.Wait); err != nil {
		return fmt.Errorf("invalid wait: %w", err)
	}
	if _, err := time.ParseDuration(c.RetryInterval); err != nil {
		return fmt.Errorf("invalid retry_interval: %w", err)
	}
	return nil
}
