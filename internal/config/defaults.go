package config

const (
	defaultWorkDir      = "~/.local/share/spool"
	defaultPollInterval = 5
	defaultPriority     = 10
	defaultLogFormat    = "console"
	defaultLogLevel     = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
		},
		Worker: Worker{
			PollInterval:    defaultPollInterval,
			DefaultPriority: defaultPriority,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
