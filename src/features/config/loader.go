package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	envDatabasePath = "MUSCAT_DATABASE_PATH"
	envLogLevel     = "MUSCAT_LOG_LEVEL"

	dataFile = "muscat/catalog.db"
)

// Load reads a YAML file from the given path and returns a new Manager.
// If the file doesn't exist, creates a default configuration.
func Load(path string) (*Manager, error) {
	var cfg *Config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Info("Config file not found, creating default configuration", "path", path)
		cfg = createDefaultConfig()
		if err := saveDefaultConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		cfg, err = decode(path)
		if err != nil {
			return nil, err
		}
	}

	// Override with environment variables if set
	if p := os.Getenv(envDatabasePath); p != "" {
		cfg.Database.Path = p
	}
	if l := os.Getenv(envLogLevel); l != "" {
		cfg.Logger.Level = l
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	if err := resolveDatabasePath(cfg); err != nil {
		return nil, err
	}

	manager := NewManager(cfg)
	if err := manager.EnsureDirectories(); err != nil {
		return nil, err
	}
	return manager, nil
}

func decode(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Start from the defaults so a partial file only overrides what it sets.
	cfg := createDefaultConfig()
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the struct tags of the configuration.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// resolveDatabasePath fills an empty database path with the XDG data file.
// The memory driver needs no path.
func resolveDatabasePath(cfg *Config) error {
	if cfg.Database.Driver == "memory" || cfg.Database.Path != "" {
		return nil
	}
	p, err := xdg.DataFile(dataFile)
	if err != nil {
		return fmt.Errorf("failed to resolve data directory: %w", err)
	}
	cfg.Database.Path = p
	slog.Debug("Using default database path", "path", p)
	return nil
}

// saveDefaultConfig saves the default configuration to the specified file path
func saveDefaultConfig(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()
	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	slog.Info("Default configuration saved", "path", path)
	return nil
}
