package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment variable names.
const (
	EnvHome          = "CUSTODIAN_HOME"
	EnvAddress       = "CUSTODIAN_ADDRESS"
	EnvAPIToken      = "CUSTODIAN_API_TOKEN" // #nosec G101 -- false positive, this is a const name not a credential
	EnvLogLevel      = "CUSTODIAN_LOG_LEVEL"
	EnvHandleTTL     = "CUSTODIAN_HANDLE_TTL"
	EnvDefaultDriver = "CUSTODIAN_DEFAULT_DRIVER"
	EnvOutputFormat  = "CUSTODIAN_OUTPUT_FORMAT"
	EnvVerbose       = "CUSTODIAN_VERBOSE"
	EnvNoColor       = "NO_COLOR"

	// Read by the CLI client only.
	EnvWalletPassword = "CUSTODIAN_WALLET_PASSWORD" // #nosec G101 -- false positive, this is a const name not a credential
	EnvHandle         = "CUSTODIAN_HANDLE"
)

// ApplyEnvironment applies environment variable overrides to the configuration.
//
//nolint:gocognit,gocyclo // Environment variable overrides require sequential checks
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}

	if v := os.Getenv(EnvAddress); v != "" {
		cfg.Server.Address = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvAPIToken); v != "" {
		cfg.Server.APIToken = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvOutputFormat); v != "" {
		cfg.Output.DefaultFormat = strings.ToLower(v)
	}

	if v := os.Getenv(EnvVerbose); v != "" {
		cfg.Output.Verbose = parseBool(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	if v := os.Getenv(EnvDefaultDriver); v != "" {
		cfg.Storage.DefaultDriver = strings.ToLower(strings.TrimSpace(v))
	}

	// NO_COLOR disables colored output
	if _, ok := os.LookupEnv(EnvNoColor); ok {
		cfg.Output.Color = "never"
	}

	// CUSTODIAN_HANDLE_TTL sets the handle lifetime in seconds
	if v := os.Getenv(EnvHandleTTL); v != "" {
		if ttl, err := strconv.Atoi(v); err == nil && ttl > 0 {
			cfg.Security.HandleTTLSeconds = ttl
		}
	}
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}
