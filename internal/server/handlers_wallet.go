package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mrz1836/custodian/internal/api"
	"github.com/mrz1836/custodian/internal/protocol"
	"github.com/mrz1836/custodian/internal/service/wallet"
	"github.com/mrz1836/custodian/internal/version"
)

func walletOf(s wallet.Summary) api.Wallet {
	return api.Wallet{ID: s.ID, Name: s.Name, Driver: s.Driver, CreatedAt: s.CreatedAt}
}

func (s *Server) secondsUntil(t time.Time) int64 {
	d := t.Sub(s.now())
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}

func (s *Server) versions(c echo.Context) error {
	return c.JSON(http.StatusOK, api.VersionsResponse{
		Versions: []string{version.APIVersion},
		Build:    version.Get(),
	})
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, api.HealthResponse{
		Status:      "ok",
		OpenHandles: s.daemon.Sessions.Count(),
	})
}

func (s *Server) listWallets(c echo.Context) error {
	summaries, err := s.daemon.Wallets.List(c.Request().Context())
	s.metrics.RecordWalletOp("list", err)
	if err != nil {
		return err
	}
	resp := api.ListWalletsResponse{Wallets: make([]api.Wallet, 0, len(summaries))}
	for _, w := range summaries {
		resp.Wallets = append(resp.Wallets, walletOf(w))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) createWallet(c echo.Context) error {
	var req api.CreateWalletRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	mdk, err := protocol.MasterDerivationKeyFromBytes(req.MasterDerivationKey)
	if err != nil {
		return err
	}

	created, err := s.daemon.Wallets.Create(c.Request().Context(), wallet.CreateRequest{
		Name:                req.Name,
		Password:            []byte(req.Password),
		Driver:              req.Driver,
		MasterDerivationKey: mdk,
	})
	s.metrics.RecordWalletOp("create", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, api.WalletResponse{Wallet: walletOf(*created)})
}

func (s *Server) initHandle(c echo.Context) error {
	var req api.InitHandleRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	sess, err := s.daemon.Sessions.Init(c.Request().Context(), req.WalletID, []byte(req.Password))
	s.metrics.RecordHandleOp("init", err)
	s.metrics.SetHandlesOpen(s.daemon.Sessions.Count())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, api.HandleResponse{
		Handle:           sess.Token,
		WalletID:         sess.WalletID,
		ExpiresAt:        sess.ExpiresAt,
		ExpiresInSeconds: s.secondsUntil(sess.ExpiresAt),
		MemoryLocked:     sess.MemoryLocked,
	})
}

func (s *Server) releaseHandle(c echo.Context) error {
	var req api.HandleRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	err := s.daemon.Sessions.Release(req.Handle)
	s.metrics.RecordHandleOp("release", err)
	s.metrics.SetHandlesOpen(s.daemon.Sessions.Count())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, api.Empty{})
}

func (s *Server) renewHandle(c echo.Context) error {
	var req api.HandleRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	sess, err := s.daemon.Sessions.Renew(req.Handle)
	s.metrics.RecordHandleOp("renew", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, api.HandleResponse{
		Handle:           sess.Token,
		WalletID:         sess.WalletID,
		ExpiresAt:        sess.ExpiresAt,
		ExpiresInSeconds: s.secondsUntil(sess.ExpiresAt),
		MemoryLocked:     sess.MemoryLocked,
	})
}

func (s *Server) renameWallet(c echo.Context) error {
	var req api.RenameWalletRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	err := s.daemon.Wallets.Rename(c.Request().Context(), req.WalletID, []byte(req.Password), req.NewName)
	s.metrics.RecordWalletOp("rename", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, api.Empty{})
}

func (s *Server) walletInfo(c echo.Context) error {
	var req api.HandleRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	info, err := s.daemon.Wallets.Info(c.Request().Context(), req.Handle)
	s.metrics.RecordWalletOp("info", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, api.WalletInfoResponse{
		Wallet:           walletOf(info.Wallet),
		ExpiresAt:        info.ExpiresAt,
		ExpiresInSeconds: s.secondsUntil(info.ExpiresAt),
	})
}

func (s *Server) exportMasterKey(c echo.Context) error {
	var req api.PasswordRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	mdk, err := s.daemon.Wallets.ExportMasterDerivationKey(c.Request().Context(), req.Handle, []byte(req.Password))
	s.metrics.RecordWalletOp("export_master_key", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, api.MasterKeyResponse{MasterDerivationKey: mdk[:]})
}
