package config

// DefaultAddress is the daemon's default listen address. It binds loopback
// only; the daemon is a local service.
const DefaultAddress = "127.0.0.1:7833"

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.custodian",
		Server: ServerConfig{
			Address:            DefaultAddress,
			ReadTimeoutSeconds: 30,
			RateLimit:          20,
			RateBurst:          40,
		},
		Security: SecurityConfig{
			HandleTTLSeconds:     60,
			SweepIntervalSeconds: 30,
			ScryptWorkFactor:     0, // age default
			MemoryLock:           true,
		},
		Storage: StorageConfig{
			DefaultDriver: "sqlite",
			Drivers:       []string{"sqlite", "file", "memory"},
			SQLitePath:    "wallets.db",
			FileDir:       "wallets",
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level:      "error",
			File:       "custodian.log",
			MaxSizeMB:  20,
			MaxBackups: 5,
		},
	}
}
