package cli

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/custodian/internal/client"
	"github.com/mrz1836/custodian/internal/config"
	"github.com/mrz1836/custodian/internal/output"
	"github.com/mrz1836/custodian/internal/token"
	custerr "github.com/mrz1836/custodian/pkg/errors"
)

// requestTimeout bounds a single CLI round trip to the daemon.
const requestTimeout = 30 * time.Second

// CommandContext holds dependencies for CLI commands.
type CommandContext struct {
	Config    *config.Config
	Logger    *config.Logger
	Formatter *output.Formatter
	Client    *client.Client
}

// NewCommandContext creates a context with the given dependencies.
func NewCommandContext(
	cfg *config.Config,
	logger *config.Logger,
	formatter *output.Formatter,
) *CommandContext {
	return &CommandContext{
		Config:    cfg,
		Logger:    logger,
		Formatter: formatter,
	}
}

// WithClient sets the daemon client.
func (c *CommandContext) WithClient(cl *client.Client) *CommandContext {
	c.Client = cl
	return c
}

// clientCommandContext builds the context for a command that talks to the
// daemon.
func clientCommandContext() (*CommandContext, error) {
	cl, err := newDaemonClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewCommandContext(cfg, logger, formatter).WithClient(cl), nil
}

// newDaemonClient resolves the daemon endpoint and API token. Flags win,
// then the environment, then the files the daemon writes into its home
// directory, then the config file.
func newDaemonClient(c ConfigProvider) (*client.Client, error) {
	endpoint := endpointFlag
	if endpoint == "" {
		endpoint = strings.TrimSpace(os.Getenv(config.EnvAddress))
	}
	if endpoint == "" {
		endpoint = readNetFile(c.NetPath())
	}
	if endpoint == "" {
		endpoint = c.GetServerAddress()
	}

	apiToken := tokenFlag
	if apiToken == "" {
		apiToken = c.GetAPIToken()
	}
	if apiToken == "" {
		tok, err := token.Load(c.TokenPath())
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, custerr.WithSuggestion(
					custerr.WithDetails(custerr.ErrInvalidClientConfig, map[string]string{"token": c.TokenPath()}),
					"start the daemon with 'custodian serve' or pass --token",
				)
			}
			return nil, err
		}
		apiToken = tok
	}

	return client.New(client.Config{Endpoint: endpoint, Token: apiToken, Timeout: requestTimeout})
}

func readNetFile(path string) string {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from daemon home
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// contextWithTimeout returns a timeout context rooted in the command context.
func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmdContext(cmd), d)
}
