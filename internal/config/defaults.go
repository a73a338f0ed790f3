package config

const (
	defaultDataDir          = "~/.local/share/splitledger/data"
	defaultLogDir           = "~/.local/share/splitledger/logs"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultBatchLimit       = 0
	defaultInviteExpiryDays = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Jobs: Jobs{
			BatchLimit:       defaultBatchLimit,
			InviteExpiryDays: defaultInviteExpiryDays,
		},
	}
}
