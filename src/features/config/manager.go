package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/contre95/muscat/src/music"
	"gopkg.in/yaml.v3"
)

// Manager holds the application configuration and provides thread-safe access to it.
type Manager struct {
	mu     sync.RWMutex
	config *Config
}

// NewManager creates a new Manager.
func NewManager(config *Config) *Manager {
	return &Manager{config: config}
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Update updates the configuration.
func (m *Manager) Update(config *Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldConfig := m.config
	m.config = config

	// Log configuration changes
	if oldConfig != nil {
		slog.Debug("Configuration updated",
			"database_changed", oldConfig.Database != config.Database,
			"rating_changed", oldConfig.Rating != config.Rating,
			"unique_entries_changed", oldConfig.Playlists.UniqueEntries != config.Playlists.UniqueEntries,
			"delete_policy_changed", oldConfig.Library.DeletePolicy != config.Library.DeletePolicy,
			"watcher_enabled_changed", oldConfig.Watcher.Enabled != config.Watcher.Enabled,
		)
	}
}

// Save writes the current configuration to the specified file path.
func (m *Manager) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, err := os.Create(path)
	if err != nil {
		slog.Error("failed to create config file", "path", path, "error", err)
		return err
	}
	defer file.Close()

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	if err := encoder.Encode(m.config); err != nil {
		slog.Error("failed to encode config", "path", path, "error", err)
		return err
	}

	slog.Info("Configuration saved successfully", "path", path)
	return nil
}

// EnsureDirectories creates the database and log file directories if they don't exist.
func (m *Manager) EnsureDirectories() error {
	cfg := m.Get()

	var files []string
	if cfg.Database.Driver != "memory" && cfg.Database.Path != ":memory:" {
		files = append(files, cfg.Database.Path)
	}
	if cfg.Logger.File != "" {
		files = append(files, cfg.Logger.File)
	}
	for _, p := range files {
		dir := filepath.Dir(p)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	slog.Debug("Required directories created/verified", "database", cfg.Database.Path, "log", cfg.Logger.File)
	return nil
}

// CatalogOptions returns the store policies derived from the configuration.
func (m *Manager) CatalogOptions() music.Options {
	return music.Options{UniquePlaylistEntries: m.Get().Playlists.UniqueEntries}
}

// DeletePolicy returns the configured library delete policy.
func (m *Manager) DeletePolicy() music.DeletePolicy {
	p, err := music.ParseDeletePolicy(m.Get().Library.DeletePolicy)
	if err != nil {
		slog.Warn("Invalid library delete policy, falling back to reassign", "error", err)
		return music.ReassignTracks
	}
	return p
}

// GetJSON returns the current configuration as a JSON string.
func (m *Manager) GetJSON() string {
	jsonBytes, err := json.Marshal(m.Get())
	if err != nil {
		slog.Error("failed to marshal config to JSON", "error", err)
		return err.Error()
	}
	return string(jsonBytes)
}

// GetYAML returns the current configuration as a YAML string.
func (m *Manager) GetYAML() string {
	yamlBytes, err := yaml.Marshal(m.Get())
	if err != nil {
		slog.Error("failed to marshal config to YAML", "error", err)
		return err.Error()
	}
	return string(yamlBytes)
}
