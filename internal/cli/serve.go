package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mrz1836/custodian/internal/daemon"
	"github.com/mrz1836/custodian/internal/fileutil"
	"github.com/mrz1836/custodian/internal/server"
	"github.com/mrz1836/custodian/internal/token"
	"github.com/mrz1836/custodian/internal/version"
)

// netFilePermissions is the mode of the listen address file.
const netFilePermissions = 0o600

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var serveAddress string

// serveCmd runs the daemon in the foreground.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the custody daemon",
	Long: `Run the custody daemon in the foreground until interrupted.

On start the daemon writes its listen address to <home>/custodian.net and, if
no API token is configured, generates one into <home>/custodian.token. Client
commands read both files when --endpoint and --token are not given.`,
	Example: `  custodian serve
  custodian serve --address 127.0.0.1:0 --home /var/lib/custodian`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	serveCmd.GroupID = groupDaemon
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddress, "address", "", "listen address (default: server.address from config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if serveAddress != "" {
		cfg.Server.Address = serveAddress
	}

	d, err := daemon.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	apiToken := cfg.Server.APIToken
	if apiToken == "" {
		tok, created, tokErr := token.LoadOrCreate(cfg.TokenPath())
		if tokErr != nil {
			return tokErr
		}
		if created {
			logger.Info("generated API token %s at %s", token.ID(tok), cfg.TokenPath())
		}
		apiToken = tok
	}

	srv, err := server.New(d, server.Options{
		Address:     cfg.Server.Address,
		APIToken:    apiToken,
		ReadTimeout: cfg.GetReadTimeout(),
		RateLimit:   cfg.Server.RateLimit,
		RateBurst:   cfg.Server.RateBurst,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", srv.Address())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", srv.Address(), err)
	}

	addr := ln.Addr().String()
	if err := fileutil.WriteAtomic(cfg.NetPath(), []byte(addr+"\n"), netFilePermissions); err != nil {
		_ = ln.Close()
		return fmt.Errorf("writing %s: %w", cfg.NetPath(), err)
	}
	defer func() { _ = os.Remove(cfg.NetPath()) }()

	go d.Run(ctx)

	logger.Info("%s listening on %s", version.Get(), addr)
	out(cmd.ErrOrStderr(), "custodian %s listening on %s\n", version.Version, addr)

	return srv.Serve(ctx, ln)
}

// cmdContext returns the command's context or Background.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
