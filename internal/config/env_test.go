package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"1", "1", true},
		{"true", "true", true},
		{"TRUE", "TRUE", true},
		{"yes", "yes", true},
		{"on", "on", true},
		{"with spaces", "  true  ", true},
		{"0", "0", false},
		{"false", "false", false},
		{"no", "no", false},
		{"empty", "", false},
		{"random", "random", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, parseBool(tc.input))
		})
	}
}

//nolint:paralleltest // t.Setenv is incompatible with t.Parallel
func TestApplyEnvironment(t *testing.T) {
	t.Setenv(EnvHome, "/tmp/custodian-home")
	t.Setenv(EnvAddress, " 127.0.0.1:4001 ")
	t.Setenv(EnvAPIToken, "cust_api_abc")
	t.Setenv(EnvLogLevel, "DEBUG")
	t.Setenv(EnvHandleTTL, "120")
	t.Setenv(EnvDefaultDriver, "File")
	t.Setenv(EnvOutputFormat, "JSON")
	t.Setenv(EnvVerbose, "yes")
	t.Setenv(EnvNoColor, "")

	cfg := Defaults()
	ApplyEnvironment(cfg)

	assert.Equal(t, "/tmp/custodian-home", cfg.Home)
	assert.Equal(t, "127.0.0.1:4001", cfg.Server.Address)
	assert.Equal(t, "cust_api_abc", cfg.Server.APIToken)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 120, cfg.Security.HandleTTLSeconds)
	assert.Equal(t, "file", cfg.Storage.DefaultDriver)
	assert.Equal(t, "json", cfg.Output.DefaultFormat)
	assert.True(t, cfg.Output.Verbose)
	assert.Equal(t, "never", cfg.Output.Color)
}

//nolint:paralleltest // t.Setenv is incompatible with t.Parallel
func TestApplyEnvironment_IgnoresBadTTL(t *testing.T) {
	for _, v := range []string{"abc", "-5", "0"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv(EnvHandleTTL, v)
			cfg := Defaults()
			ApplyEnvironment(cfg)
			assert.Equal(t, 60, cfg.Security.HandleTTLSeconds)
		})
	}
}
