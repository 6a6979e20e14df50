// Package config provides site configuration loading and management for openhub.
package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/c360studio/openhub/repocache"
)

// Common configuration errors.
var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrInvalidConfig  = errors.New("invalid config")
)

// SiteConfigFile is the name of the per-site configuration file.
const SiteConfigFile = "_config.yml"

// Config represents the complete site configuration.
type Config struct {
	Title string `yaml:"title,omitempty"`
	URL   string `yaml:"url,omitempty"`

	// RefreshRemoteData is one of "always", "last-resort" or "skip".
	RefreshRemoteData string `yaml:"refresh_remote_data,omitempty"`

	// DefaultRepoBranch is used for remotes that don't declare a branch.
	DefaultRepoBranch string `yaml:"default_repo_branch,omitempty"`

	// IsHub is informational; hub detection is driven by the projects collection.
	IsHub bool `yaml:"is_hub,omitempty"`

	ParentHub *ParentHub `yaml:"parent_hub,omitempty"`

	// Collections lists the collection labels read from _<label> directories.
	Collections []string `yaml:"collections,omitempty"`

	// Exclude holds doublestar patterns, relative to the site root, that are never read.
	Exclude []string `yaml:"exclude,omitempty"`

	// Extra keeps every other key so templates downstream still see it.
	Extra map[string]any `yaml:",inline"`
}

// ParentHub points a standalone project site at the hub it belongs to.
type ParentHub struct {
	GitRepoURL    string `yaml:"git_repo_url"`
	GitRepoBranch string `yaml:"git_repo_branch,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		RefreshRemoteData: string(repocache.PolicyLastResort),
		DefaultRepoBranch: repocache.FallbackBranch,
		Collections:       []string{"projects", "software", "specs", "posts"},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if _, err := repocache.ParseRefreshPolicy(c.RefreshRemoteData); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.ParentHub != nil && c.ParentHub.GitRepoURL == "" {
		return fmt.Errorf("%w: parent_hub.git_repo_url is required when parent_hub is set", ErrInvalidConfig)
	}
	for _, label := range c.Collections {
		if label == "" || filepath.Base(label) != label {
			return fmt.Errorf("%w: invalid collection label %q", ErrInvalidConfig, label)
		}
	}
	return nil
}

// HasParentHub reports whether a parent hub repository is declared.
func (c *Config) HasParentHub() bool {
	return c.ParentHub != nil && c.ParentHub.GitRepoURL != ""
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Title != "" {
		c.Title = other.Title
	}
	if other.URL != "" {
		c.URL = other.URL
	}
	if other.RefreshRemoteData != "" {
		c.RefreshRemoteData = other.RefreshRemoteData
	}
	if other.DefaultRepoBranch != "" {
		c.DefaultRepoBranch = other.DefaultRepoBranch
	}
	if other.IsHub {
		c.IsHub = true
	}
	if other.ParentHub != nil {
		hub := *other.ParentHub
		c.ParentHub = &hub
	}
	if len(other.Collections) > 0 {
		c.Collections = other.Collections
	}
	if len(other.Exclude) > 0 {
		c.Exclude = other.Exclude
	}
	for k, v := range other.Extra {
		if c.Extra == nil {
			c.Extra = make(map[string]any)
		}
		c.Extra[k] = v
	}
}
