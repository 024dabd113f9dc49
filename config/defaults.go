package config

// Default directories and file paths for the remind daemon.
const (
	// DefaultStateDir is the base directory for daemon-owned artifacts.
	DefaultStateDir = ".remind"
	// DefaultArchiveDir is the default directory for filesystem archive output.
	DefaultArchiveDir = DefaultStateDir + "/archive"
	// DefaultSQLiteDSN is the default data source name for history storage.
	DefaultSQLiteDSN = DefaultStateDir + "/history.db"
	// DefaultConfigPath is the default daemon config file location.
	DefaultConfigPath = DefaultStateDir + "/daemon.json"
)
