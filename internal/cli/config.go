package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/custodian/internal/config"
	"github.com/mrz1836/custodian/internal/fileutil"
	custerr "github.com/mrz1836/custodian/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var configForce bool

// configCmd is the parent command for configuration operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and modify custodian configuration settings.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long: `Create a default configuration file at <home>/config.yaml.

If a configuration file already exists, this command will not overwrite it
unless --force is specified.`,
	Example: `  custodian config init
  custodian config init --force`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configShowCmd = &cobra.Command{
	Use:     "show",
	Short:   "Show current configuration",
	Long:    `Display the effective configuration: file, then environment, then flags.`,
	Example: `  custodian config show -o json`,
	Args:    cobra.NoArgs,
	RunE:    runConfigShow,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configGetCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Get a configuration value",
	Long:  `Get a configuration value by its dotted path.`,
	Example: `  custodian config get server.address
  custodian config get security.handle_ttl_seconds`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configSetCmd = &cobra.Command{
	Use:   "set <path> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value by its dotted path and save the file. The
result is validated before it is written.`,
	Example: `  custodian config set security.handle_ttl_seconds 120
  custodian config set storage.default_driver file`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	configCmd.GroupID = groupDaemon
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configGetCmd, configSetCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite existing configuration")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	configPath := config.Path(cfg.GetHome())

	if _, err := os.Stat(configPath); err == nil && !configForce {
		return custerr.WithSuggestion(
			custerr.ErrGeneral,
			fmt.Sprintf("configuration already exists at %s. Use --force to overwrite.", configPath),
		)
	}
	if err := os.MkdirAll(cfg.GetHome(), fileutil.DirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	defaults := config.Defaults()
	defaults.Home = cfg.Home
	if err := config.Save(defaults, configPath); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	w := cmd.OutOrStdout()
	out(w, "Configuration initialized at %s\n", configPath)
	outln(w)
	outln(w, "Edit this file to configure:")
	outln(w, "  - server.address: Daemon listen address (loopback by default)")
	outln(w, "  - security.handle_ttl_seconds: Handle lifetime")
	outln(w, "  - storage.default_driver: sqlite, file or memory")
	outln(w, "  - logging.level: Log level (off/error/info/debug)")
	return nil
}

// configView is the printable configuration, with the API token masked.
type configView struct {
	*config.Config
}

func (v configView) masked() *config.Config {
	c := *v.Config
	if c.Server.APIToken != "" {
		c.Server.APIToken = maskSecret(c.Server.APIToken)
	}
	return &c
}

func (v configView) Text() string {
	c := v.masked()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Configuration:\n\n  Home: %s\n\n", c.Home)
	fmt.Fprintf(&sb, "  Server:\n    address: %s\n    api_token: %s\n    read_timeout_seconds: %d\n    rate_limit: %g\n    rate_burst: %d\n\n",
		c.Server.Address, orNotConfigured(c.Server.APIToken), c.Server.ReadTimeoutSeconds, c.Server.RateLimit, c.Server.RateBurst)
	fmt.Fprintf(&sb, "  Security:\n    handle_ttl_seconds: %d\n    sweep_interval_seconds: %d\n    scrypt_work_factor: %d\n    memory_lock: %t\n\n",
		c.Security.HandleTTLSeconds, c.Security.SweepIntervalSeconds, c.Security.ScryptWorkFactor, c.Security.MemoryLock)
	fmt.Fprintf(&sb, "  Storage:\n    default_driver: %s\n    drivers: %s\n    sqlite_path: %s\n    file_dir: %s\n\n",
		c.Storage.DefaultDriver, strings.Join(c.Storage.Drivers, ", "), c.Storage.SQLitePath, c.Storage.FileDir)
	fmt.Fprintf(&sb, "  Output:\n    default_format: %s\n    verbose: %t\n    color: %s\n\n",
		c.Output.DefaultFormat, c.Output.Verbose, c.Output.Color)
	fmt.Fprintf(&sb, "  Logging:\n    level: %s\n    file: %s\n", c.Logging.Level, c.Logging.File)
	return sb.String()
}

func maskSecret(s string) string {
	if len(s) < 12 {
		return "***..."
	}
	return s[:12] + "..."
}

func orNotConfigured(s string) string {
	if s == "" {
		return "(not configured)"
	}
	return s
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	v := configView{Config: cfg}
	if formatter.IsJSON() {
		return formatter.Print(v.masked())
	}
	return formatter.Print(v)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	value, err := getConfigValue(cfg, args[0])
	if err != nil {
		return err
	}
	outln(cmd.OutOrStdout(), value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	path, value := args[0], args[1]

	configPath := config.Path(cfg.GetHome())
	current, err := config.Load(configPath)
	if err != nil {
		if !custerr.Is(err, custerr.ErrConfigNotFound) {
			return err
		}
		current = config.Defaults()
		current.Home = cfg.Home
	}

	if err := setConfigValue(current, path, value); err != nil {
		return err
	}
	if err := current.Validate(); err != nil {
		return err
	}
	if err := config.Save(current, configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	out(cmd.OutOrStdout(), "Set %s = %s\n", path, value)
	return nil
}

func unknownKey(path string) error {
	return custerr.WithSuggestion(
		custerr.WithDetails(custerr.ErrUnknownConfigKey, map[string]string{"path": path}),
		"run 'custodian config show' to see available settings",
	)
}

// getConfigValue retrieves a value from the config using dot notation.
//
//nolint:gocyclo // flat key switch
func getConfigValue(c *config.Config, path string) (string, error) {
	switch path {
	case "home":
		return c.Home, nil
	case "server.address":
		return c.Server.Address, nil
	case "server.read_timeout_seconds":
		return strconv.Itoa(c.Server.ReadTimeoutSeconds), nil
	case "server.rate_limit":
		return strconv.FormatFloat(c.Server.RateLimit, 'g', -1, 64), nil
	case "server.rate_burst":
		return strconv.Itoa(c.Server.RateBurst), nil
	case "security.handle_ttl_seconds":
		return strconv.Itoa(c.Security.HandleTTLSeconds), nil
	case "security.sweep_interval_seconds":
		return strconv.Itoa(c.Security.SweepIntervalSeconds), nil
	case "security.scrypt_work_factor":
		return strconv.Itoa(c.Security.ScryptWorkFactor), nil
	case "security.memory_lock":
		return strconv.FormatBool(c.Security.MemoryLock), nil
	case "storage.default_driver":
		return c.Storage.DefaultDriver, nil
	case "storage.drivers":
		return strings.Join(c.Storage.Drivers, ","), nil
	case "storage.sqlite_path":
		return c.Storage.SQLitePath, nil
	case "storage.file_dir":
		return c.Storage.FileDir, nil
	case "output.default_format":
		return c.Output.DefaultFormat, nil
	case "output.verbose":
		return strconv.FormatBool(c.Output.Verbose), nil
	case "output.color":
		return c.Output.Color, nil
	case "logging.level":
		return c.Logging.Level, nil
	case "logging.file":
		return c.Logging.File, nil
	case "logging.max_size_mb":
		return strconv.Itoa(c.Logging.MaxSizeMB), nil
	case "logging.max_backups":
		return strconv.Itoa(c.Logging.MaxBackups), nil
	}
	return "", unknownKey(path)
}

// setConfigValue sets a value using dot notation. The API token is not
// settable here; it lives in the token file.
//
//nolint:gocyclo // flat key switch
func setConfigValue(c *config.Config, path, value string) error {
	var err error
	switch path {
	case "server.address":
		c.Server.Address = value
	case "server.read_timeout_seconds":
		c.Server.ReadTimeoutSeconds, err = strconv.Atoi(value)
	case "server.rate_limit":
		c.Server.RateLimit, err = strconv.ParseFloat(value, 64)
	case "server.rate_burst":
		c.Server.RateBurst, err = strconv.Atoi(value)
	case "security.handle_ttl_seconds":
		c.Security.HandleTTLSeconds, err = strconv.Atoi(value)
	case "security.sweep_interval_seconds":
		c.Security.SweepIntervalSeconds, err = strconv.Atoi(value)
	case "security.scrypt_work_factor":
		c.Security.ScryptWorkFactor, err = strconv.Atoi(value)
	case "security.memory_lock":
		c.Security.MemoryLock, err = strconv.ParseBool(value)
	case "storage.default_driver":
		c.Storage.DefaultDriver = value
	case "storage.drivers":
		c.Storage.Drivers = strings.Split(value, ",")
	case "storage.sqlite_path":
		c.Storage.SQLitePath = value
	case "storage.file_dir":
		c.Storage.FileDir = value
	case "output.default_format":
		c.Output.DefaultFormat = value
	case "output.verbose":
		c.Output.Verbose, err = strconv.ParseBool(value)
	case "output.color":
		c.Output.Color = value
	case "logging.level":
		c.Logging.Level = value
	case "logging.file":
		c.Logging.File = value
	case "logging.max_size_mb":
		c.Logging.MaxSizeMB, err = strconv.Atoi(value)
	case "logging.max_backups":
		c.Logging.MaxBackups, err = strconv.Atoi(value)
	default:
		return unknownKey(path)
	}
	if err != nil {
		return custerr.WithDetails(custerr.ErrInvalidInput, map[string]string{path: value})
	}
	return nil
}
