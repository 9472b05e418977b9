package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path:          "~/.config/tally",
			SQLiteFile:    "tally.db",
			JournalMode:   "wal",
			BusyTimeoutMS: 5000,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
		Export: ExportConfig{
			Dir: "",
		},
	}
}
