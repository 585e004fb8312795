// Package server exposes the custody daemon over a local HTTP JSON API.
// Every /v1 route requires the daemon API token; /versions, /health and
// /metrics are open.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mrz1836/custodian/internal/api"
	"github.com/mrz1836/custodian/internal/config"
	"github.com/mrz1836/custodian/internal/daemon"
	"github.com/mrz1836/custodian/internal/metrics"
	custerr "github.com/mrz1836/custodian/pkg/errors"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 5 * time.Second

// maxBodySize caps request bodies.
const maxBodySize = "1M"

// Options configures the HTTP listener.
type Options struct {
	Address     string
	APIToken    string
	ReadTimeout time.Duration
	RateLimit   float64
	RateBurst   int
}

// Server serves the daemon's API.
type Server struct {
	echo     *echo.Echo
	daemon   *daemon.Daemon
	logger   *config.Logger
	metrics  *metrics.Metrics
	limiter  *RateLimiter
	apiToken string
	address  string
	timeout  time.Duration
	now      func() time.Time
}

// New builds a server for d. An API token is required.
func New(d *daemon.Daemon, opts Options) (*Server, error) {
	if opts.APIToken == "" {
		return nil, custerr.WithDetails(custerr.ErrConfigInvalid, map[string]string{"server.api_token": "empty"})
	}

	s := &Server{
		echo:     echo.New(),
		daemon:   d,
		logger:   d.Logger,
		metrics:  d.Metrics,
		limiter:  NewRateLimiter(opts.RateLimit, opts.RateBurst),
		apiToken: opts.APIToken,
		address:  opts.Address,
		timeout:  opts.ReadTimeout,
		now:      time.Now,
	}
	if s.address == "" {
		s.address = config.DefaultAddress
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(maxBodySize))
	e.Use(s.observe)

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	e := s.echo
	guard := []echo.MiddlewareFunc{s.rateLimit, s.authenticate}

	e.GET(api.PathVersions, s.versions)
	e.GET(api.PathHealth, s.health)
	e.GET(api.PathMetrics, echo.WrapHandler(s.metrics.Handler()))

	e.GET(api.PathWallets, s.listWallets, guard...)
	e.POST(api.PathWallet, s.createWallet, guard...)
	e.POST(api.PathWalletInit, s.initHandle, guard...)
	e.POST(api.PathWalletRelease, s.releaseHandle, guard...)
	e.POST(api.PathWalletRenew, s.renewHandle, guard...)
	e.POST(api.PathWalletRename, s.renameWallet, guard...)
	e.POST(api.PathWalletInfo, s.walletInfo, guard...)
	e.POST(api.PathMasterKey, s.exportMasterKey, guard...)

	e.POST(api.PathKey, s.generateKey, guard...)
	e.DELETE(api.PathKey, s.deleteKey, guard...)
	e.POST(api.PathKeyImport, s.importKey, guard...)
	e.POST(api.PathKeyExport, s.exportKey, guard...)
	e.POST(api.PathKeyList, s.listKeys, guard...)

	e.POST(api.PathMultisigImport, s.importMultisig, guard...)
	e.POST(api.PathMultisigExport, s.exportMultisig, guard...)
	e.DELETE(api.PathMultisig, s.deleteMultisig, guard...)
	e.POST(api.PathMultisigList, s.listMultisig, guard...)

	e.POST(api.PathTxSign, s.signTransaction, guard...)
	e.POST(api.PathMultisigSign, s.signMultisig, guard...)
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.address
}

// ListenAndServe listens on the configured address and serves until ctx is
// done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.address)
	if err != nil {
		return custerr.Wrap(err, "listening on %s", s.address)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.echo,
		ReadTimeout:       s.timeout,
		ReadHeaderTimeout: s.timeout,
		WriteTimeout:      s.timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("listening on %s", ln.Addr().String())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		<-errCh
		return err
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
