package config

import (
	"fmt"
	"os"

	"github.com/JaimeStill/promptvault/pkg/middleware"
	"github.com/JaimeStill/promptvault/pkg/pagination"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "PROMPTVAULT_CORS_ENABLED",
	Origins:          "PROMPTVAULT_CORS_ORIGINS",
	AllowedMethods:   "PROMPTVAULT_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "PROMPTVAULT_CORS_ALLOWED_HEADERS",
	AllowCredentials: "PROMPTVAULT_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "PROMPTVAULT_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "PROMPTVAULT_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "PROMPTVAULT_PAGINATION_MAX_PAGE_SIZE",
}

// APIConfig holds API routing, CORS, pagination, and metrics settings.
type APIConfig struct {
	BasePath    string                `toml:"base_path"`
	MetricsPath string                `toml:"metrics_path"`
	CORS        middleware.CORSConfig `toml:"cors"`
	Pagination  pagination.Config     `toml:"pagination"`
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS and pagination configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MetricsPath != "" {
		c.MetricsPath = overlay.MetricsPath
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MetricsPath == "" {
		c.MetricsPath = "/metrics"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("PROMPTVAULT_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv("PROMPTVAULT_API_METRICS_PATH"); v != "" {
		c.MetricsPath = v
	}
}
