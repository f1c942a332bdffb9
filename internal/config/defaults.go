package config

import "time"

// DefaultAPIBaseURL is the REST root used for callback replies.
const DefaultAPIBaseURL = "https://discord.com/api/v10"

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL: DefaultAPIBaseURL,
		Server: ServerConfig{
			Port: 3000,
		},
		Database: DatabaseConfig{
			Path: "data/opbot.db",
		},
		Redis: RedisConfig{
			TTL: 10 * time.Minute,
		},
		Dispatch: DispatchConfig{
			AccountCommand: "start",
			AckDeadline:    2 * time.Second,
			HandlerTimeout: 10 * time.Minute,
			MaxBodyBytes:   1 << 20,
		},
		Callback: CallbackConfig{
			Timeout:       10 * time.Second,
			RatePerSecond: 40,
			Burst:         10,
		},
		Log: LogConfig{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"stderr"},
			Rotation: RotationConfig{
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 14,
			},
		},
	}
}
