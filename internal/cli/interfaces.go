package cli

import (
	"github.com/mrz1836/custodian/internal/config"
	"github.com/mrz1836/custodian/internal/output"
)

// Compile-time interface checks.
var (
	_ ConfigProvider = (*config.Config)(nil)
	_ LogWriter      = (*config.Logger)(nil)
	_ FormatProvider = (*output.Formatter)(nil)
)

// ConfigProvider provides the settings a client command needs to reach the
// daemon. This interface enables mocking configuration in tests.
type ConfigProvider interface {
	// GetServerAddress returns the configured daemon address.
	GetServerAddress() string

	// GetAPIToken returns the configured API token, if any.
	GetAPIToken() string

	// TokenPath returns the file the daemon writes its API token to.
	TokenPath() string

	// NetPath returns the file the daemon writes its listen address to.
	NetPath() string
}

// LogWriter provides logging capabilities.
type LogWriter interface {
	// Debug logs a debug-level message.
	Debug(format string, args ...any)

	// Info logs an info-level message.
	Info(format string, args ...any)

	// Error logs an error-level message.
	Error(format string, args ...any)

	// Close closes the logger and releases resources.
	Close() error
}

// FormatProvider provides output format information.
type FormatProvider interface {
	// Format returns the current output format.
	Format() output.Format
}
