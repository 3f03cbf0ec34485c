package config

var defaultConfig = Config{
	Database: Database{
		Driver: "sqlite3",
		Path:   "", // resolved to $XDG_DATA_HOME/muscat/catalog.db
	},
	Logger: Logger{
		Level:      "info",
		Format:     "text",
		File:       "",
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 28,
	},
	Rating: Rating{
		Min: 0,
		Max: 5,
	},
	Playlists: Playlists{
		UniqueEntries: false,
	},
	Libraries: []LibraryConfig{},
	Library: Library{
		DeletePolicy: "reassign",
	},
	Watcher: Watcher{
		Enabled:    false,
		Extensions: []string{".mp3", ".flac", ".ogg", ".m4a", ".opus", ".wav"},
	},
	Metrics: Metrics{
		Enabled: false,
		Address: "127.0.0.1:9464",
	},
}

// createDefaultConfig returns a copy of the default configuration.
func createDefaultConfig() *Config {
	cfg := defaultConfig
	cfg.Libraries = append([]LibraryConfig{}, defaultConfig.Libraries...)
	cfg.Watcher.Extensions = append([]string{}, defaultConfig.Watcher.Extensions...)
	return &cfg
}
