package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
)

const (
	EnvPromptsProtectedLabels = "PROMPTVAULT_PROMPTS_PROTECTED_LABELS"
	EnvPromptsArchiveDeleted  = "PROMPTVAULT_PROMPTS_ARCHIVE_DELETED"
)

// PromptsConfig holds deletion engine settings.
type PromptsConfig struct {
	// ProtectedLabels are protected in every project, in addition to the
	// labels each project stores in prompt_protected_labels.
	ProtectedLabels []string `toml:"protected_labels"`
	// Archive is nil when no source set archive_deleted.
	Archive *bool `toml:"archive_deleted"`
}

// ArchiveDeleted reports whether deleted versions are written to storage.
func (c *PromptsConfig) ArchiveDeleted() bool {
	return c.Archive != nil && *c.Archive
}

// Finalize applies environment variable overrides and validation.
func (c *PromptsConfig) Finalize() error {
	c.loadEnv()
	return c.validate()
}

// Merge overwrites the fields the overlay sets.
func (c *PromptsConfig) Merge(overlay *PromptsConfig) {
	if overlay.ProtectedLabels != nil {
		c.ProtectedLabels = overlay.ProtectedLabels
	}
	if overlay.Archive != nil {
		c.Archive = overlay.Archive
	}
}

func (c *PromptsConfig) loadEnv() {
	if v := os.Getenv(EnvPromptsProtectedLabels); v != "" {
		c.ProtectedLabels = splitLabels(v)
	}
	if v := os.Getenv(EnvPromptsArchiveDeleted); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Archive = &b
		}
	}
}

func (c *PromptsConfig) validate() error {
	for _, l := range c.ProtectedLabels {
		if strings.TrimSpace(l) == "" {
			return fmt.Errorf("protected_labels must not contain empty labels")
		}
	}
	if slices.Contains(c.ProtectedLabels, "latest") {
		return fmt.Errorf("protected_labels cannot include latest")
	}
	return nil
}

func splitLabels(v string) []string {
	var labels []string
	for part := range strings.SplitSeq(v, ",") {
		if l := strings.TrimSpace(part); l != "" {
			labels = append(labels, l)
		}
	}
	return labels
}
