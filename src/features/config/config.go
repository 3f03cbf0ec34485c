package config

// Config holds the application configuration.
type Config struct {
	Database  Database        `yaml:"database"`
	Logger    Logger          `yaml:"logger"`
	Rating    Rating          `yaml:"rating"`
	Playlists Playlists       `yaml:"playlists"`
	Libraries []LibraryConfig `yaml:"libraries" validate:"dive"`
	Library   Library         `yaml:"library"`
	Watcher   Watcher         `yaml:"watcher"`
	Metrics   Metrics         `yaml:"metrics"`
}

// Database holds the configuration for the catalog storage.
// An empty path resolves to the user's data directory.
type Database struct {
	Driver string `yaml:"driver" validate:"required,oneof=sqlite3 sqlite memory"`
	Path   string `yaml:"path"`
}

// Logger holds the configuration for the app logging
type Logger struct {
	Level      string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format     string `yaml:"format" validate:"omitempty,oneof=text json logfmt"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" validate:"gte=0"`
}

// Rating bounds the ratings users can give to tracks.
type Rating struct {
	Min int `yaml:"min" validate:"gte=0"`
	Max int `yaml:"max" validate:"gtefield=Min"`
}

// Playlists holds playlist behaviour switches.
type Playlists struct {
	// UniqueEntries turns playlists into sets: a track can only be added once.
	UniqueEntries bool `yaml:"unique_entries"`
	// ExportDir receives an M3U copy of every playlist on shutdown when set.
	ExportDir string `yaml:"export_dir"`
}

// LibraryConfig is an import root registered at startup when missing.
type LibraryConfig struct {
	Path string `yaml:"path" validate:"required"`
	Name string `yaml:"name"`
}

// Library holds library lifecycle settings.
type Library struct {
	DeletePolicy string `yaml:"delete_policy" validate:"required,oneof=reassign delete"`
}

// Watcher holds the configuration for the filesystem watcher.
type Watcher struct {
	Enabled    bool     `yaml:"enabled"`
	Extensions []string `yaml:"extensions"`
}

// Metrics holds the configuration for the Prometheus endpoint.
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address" validate:"required_if=Enabled true"`
}
