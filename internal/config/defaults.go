package config

const (
	defaultConfigPath         = "~/.config/loopctl/config.toml"
	defaultRemoteMode         = ModeCohosted
	defaultRemoteHost         = "localhost"
	defaultControlPort        = 5000
	defaultCohostedOrigin     = "http://127.0.0.1:5000"
	defaultPollIntervalMillis = 2000
	defaultOrdering           = OrderingLastResolved
	defaultActivityCapacity   = 50
	defaultConsoleLockPath    = "~/.local/state/loopctl/console.lock"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Remote endpoint modes.
const (
	ModeCohosted = "cohosted"
	ModeDev      = "dev"
	ModeExplicit = "explicit"
)

// Response ordering policies for overlapping refreshes.
const (
	OrderingLastResolved = "last_resolved"
	OrderingLastIssued   = "last_issued"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Remote: Remote{
			Mode:           defaultRemoteMode,
			Host:           defaultRemoteHost,
			ControlPort:    defaultControlPort,
			CohostedOrigin: defaultCohostedOrigin,
		},
		Sync: Sync{
			PollIntervalMillis: defaultPollIntervalMillis,
			Ordering:           defaultOrdering,
		},
		Activity: Activity{
			Capacity: defaultActivityCapacity,
		},
		Console: Console{
			LockPath: defaultConsoleLockPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
