package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/openhub"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
)

// Overrides are command-line values applied after every file layer.
type Overrides struct {
	RefreshRemoteData string
	DefaultRepoBranch string
}

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger   *slog.Logger
	userPath string
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger, userPath: defaultUserConfigPath()}
}

// WithUserConfigPath points the loader at a different user-level file.
// An empty path disables the user layer.
func (l *Loader) WithUserConfigPath(path string) *Loader {
	l.userPath = path
	return l
}

// Load loads configuration for the site rooted at siteDir with layered precedence:
// 1. Default config
// 2. User config (~/.config/openhub/config.yaml)
// 3. Site config (<siteDir>/_config.yml)
// 4. Command-line overrides
func (l *Loader) Load(siteDir string, overrides Overrides) (*Config, error) {
	config := DefaultConfig()

	if l.userPath != "" {
		if userConfig, err := loadLayer(l.userPath); err == nil {
			l.logger.Debug("Loaded user config", slog.String("path", l.userPath))
			config.Merge(userConfig)
		} else if !errors.Is(err, ErrConfigNotFound) {
			l.logger.Warn("Failed to load user config", slog.String("path", l.userPath), slog.String("error", err.Error()))
		}
	}

	sitePath := filepath.Join(siteDir, SiteConfigFile)
	siteConfig, err := loadLayer(sitePath)
	switch {
	case err == nil:
		l.logger.Debug("Loaded site config", slog.String("path", sitePath))
		config.Merge(siteConfig)
	case errors.Is(err, ErrConfigNotFound):
		l.logger.Debug("No site config found", slog.String("path", sitePath))
	default:
		return nil, err
	}

	if overrides.RefreshRemoteData != "" {
		config.RefreshRemoteData = overrides.RefreshRemoteData
	}
	if overrides.DefaultRepoBranch != "" {
		config.DefaultRepoBranch = overrides.DefaultRepoBranch
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// loadLayer parses a file without defaults so that merging only carries
// the keys the file actually sets.
func loadLayer(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var layer Config
	if err := yaml.Unmarshal(data, &layer); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %w", ErrInvalidConfig, path, err)
	}
	return &layer, nil
}

// defaultUserConfigPath returns the path to the user config file
func defaultUserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}
