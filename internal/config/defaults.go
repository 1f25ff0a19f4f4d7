package config

const (
	defaultServerAddr         = ":8080"
	defaultAdminRateLimit     = 30
	defaultDataDir            = "./data"
	defaultDatabaseFile       = "webpoptimizer.db"
	defaultInboxDir           = "inbox"
	defaultQuality            = 80
	defaultLogFormat          = "auto"
	defaultLogLevel           = "info"
	defaultPollInterval       = 2
	defaultJanitorInterval    = 3600
	defaultEventRetentionDays = 90
)

// Default returns a Config populated with repository defaults. Database and
// inbox locations are derived from the data dir during normalization.
func Default() Config {
	return Config{
		Server: Server{
			Addr:           defaultServerAddr,
			AdminRateLimit: defaultAdminRateLimit,
		},
		Storage: Storage{
			DataDir: defaultDataDir,
		},
		Conversion: Conversion{
			Quality:    defaultQuality,
			AutoOrient: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Workers: Workers{
			PollInterval:       defaultPollInterval,
			JanitorInterval:    defaultJanitorInterval,
			EventRetentionDays: defaultEventRetentionDays,
		},
	}
}
