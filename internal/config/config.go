// Package config provides configuration management for the custodian daemon
// and its command-line client.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/custodian/internal/fileutil"
	custerr "github.com/mrz1836/custodian/pkg/errors"
)

// Config represents the application configuration.
type Config struct {
	Version  int            `yaml:"version"`
	Home     string         `yaml:"home"`
	Server   ServerConfig   `yaml:"server"`
	Security SecurityConfig `yaml:"security"`
	Storage  StorageConfig  `yaml:"storage"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig defines the daemon's HTTP listener.
type ServerConfig struct {
	Address            string  `yaml:"address"`
	APIToken           string  `yaml:"api_token,omitempty"`
	ReadTimeoutSeconds int     `yaml:"read_timeout_seconds"`
	RateLimit          float64 `yaml:"rate_limit"`
	RateBurst          int     `yaml:"rate_burst"`
}

// SecurityConfig defines handle and key protection settings.
type SecurityConfig struct {
	HandleTTLSeconds     int  `yaml:"handle_ttl_seconds"`
	SweepIntervalSeconds int  `yaml:"sweep_interval_seconds"`
	ScryptWorkFactor     int  `yaml:"scrypt_work_factor"`
	MemoryLock           bool `yaml:"memory_lock"`
}

// StorageConfig selects wallet storage drivers.
type StorageConfig struct {
	DefaultDriver string   `yaml:"default_driver"`
	Drivers       []string `yaml:"drivers"`
	SQLitePath    string   `yaml:"sqlite_path"`
	FileDir       string   `yaml:"file_dir"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Color         string `yaml:"color"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Load reads configuration from the specified file. Fields absent from the
// file keep their defaults.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, custerr.WithDetails(custerr.ErrConfigNotFound, map[string]string{"path": path})
		}
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, custerr.Wrap(custerr.ErrConfigInvalid, "parsing %s: %v", path, err)
	}
	return cfg, nil
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return fileutil.WriteAtomic(path, data, 0o600)
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// Validate checks values that would otherwise fail late at startup.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return custerr.WithDetails(custerr.ErrConfigInvalid, map[string]string{"server.address": "empty"})
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return custerr.WithDetails(custerr.ErrConfigInvalid, map[string]string{"server.rate_limit": "negative"})
	}
	if c.Security.HandleTTLSeconds <= 0 {
		return custerr.WithDetails(custerr.ErrConfigInvalid, map[string]string{"security.handle_ttl_seconds": fmt.Sprintf("%d", c.Security.HandleTTLSeconds)})
	}
	if w := c.Security.ScryptWorkFactor; w != 0 && (w < 10 || w > 22) {
		return custerr.WithDetails(custerr.ErrConfigInvalid, map[string]string{"security.scrypt_work_factor": fmt.Sprintf("%d", w)})
	}
	found := false
	for _, d := range c.Storage.Drivers {
		if d == c.Storage.DefaultDriver {
			found = true
		}
	}
	if !found {
		return custerr.WithSuggestion(
			custerr.WithDetails(custerr.ErrUnknownDriver, map[string]string{"driver": c.Storage.DefaultDriver}),
			"add it to storage.drivers or pick one of "+strings.Join(c.Storage.Drivers, ", "),
		)
	}
	return nil
}

// GetHome returns the custodian home directory path.
func (c *Config) GetHome() string {
	return ExpandHome(c.Home)
}

// GetServerAddress returns the daemon listen address.
func (c *Config) GetServerAddress() string {
	return c.Server.Address
}

// GetAPIToken returns the configured API token, if any.
func (c *Config) GetAPIToken() string {
	return c.Server.APIToken
}

// GetHandleTTL returns the handle lifetime.
func (c *Config) GetHandleTTL() time.Duration {
	return time.Duration(c.Security.HandleTTLSeconds) * time.Second
}

// GetSweepInterval returns how often expired handles are reclaimed.
func (c *Config) GetSweepInterval() time.Duration {
	return time.Duration(c.Security.SweepIntervalSeconds) * time.Second
}

// GetReadTimeout returns the HTTP read timeout.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeoutSeconds) * time.Second
}

// GetSQLitePath returns the sqlite database path, relative paths resolved
// against the home directory.
func (c *Config) GetSQLitePath() string {
	return c.underHome(c.Storage.SQLitePath)
}

// GetFileDir returns the file driver's wallet directory.
func (c *Config) GetFileDir() string {
	return c.underHome(c.Storage.FileDir)
}

// GetLoggingLevel returns the configured logging level.
func (c *Config) GetLoggingLevel() string {
	return c.Logging.Level
}

// GetLoggingFile returns the configured log file path.
func (c *Config) GetLoggingFile() string {
	if c.Logging.File == "" {
		return ""
	}
	return c.underHome(c.Logging.File)
}

// GetOutputFormat returns the default output format.
func (c *Config) GetOutputFormat() string {
	return c.Output.DefaultFormat
}

// IsVerbose returns true if verbose output is enabled.
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}

// TokenPath returns the file holding the daemon API token.
func (c *Config) TokenPath() string {
	return filepath.Join(c.GetHome(), "custodian.token")
}

// NetPath returns the file holding the daemon's listen address.
func (c *Config) NetPath() string {
	return filepath.Join(c.GetHome(), "custodian.net")
}

func (c *Config) underHome(p string) string {
	p = ExpandHome(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.GetHome(), p)
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}

// DefaultHome returns the default custodian home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".custodian"
	}
	return filepath.Join(home, ".custodian")
}
