package config

const (
	defaultStagingDir          = "~/.local/share/extractor/staging"
	defaultOutputDir           = "~/Books"
	defaultLogDir              = "~/.local/share/extractor/logs"
	defaultHistoryFile         = "history.db"
	defaultMirrorWorkers       = 10
	defaultRequestTimeout      = 20
	defaultUserAgent           = "extractor/dev"
	defaultProgressShare       = 90
	defaultCancelCheckInterval = 50
	defaultMaxEntryMiB         = 256
	defaultStaleHours          = 24
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
		},
		Mirror: Mirror{
			Workers:               defaultMirrorWorkers,
			RequestTimeoutSeconds: defaultRequestTimeout,
			UserAgent:             defaultUserAgent,
			ProgressShare:         defaultProgressShare,
		},
		Carve: Carve{
			CancelCheckInterval: defaultCancelCheckInterval,
			MaxEntryMiB:         defaultMaxEntryMiB,
		},
		Staging: Staging{
			StaleHours: defaultStaleHours,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
