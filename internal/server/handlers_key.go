package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mrz1836/custodian/internal/api"
	"github.com/mrz1836/custodian/internal/keycrypto"
	"github.com/mrz1836/custodian/internal/protocol"
)

func (s *Server) generateKey(c echo.Context) error {
	var req api.HandleRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	info, err := s.daemon.Keys.Generate(c.Request().Context(), req.Handle)
	s.metrics.RecordWalletOp("generate_key", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, api.KeyResponse{Address: info.Address, PublicKey: info.PublicKey})
}

func (s *Server) importKey(c echo.Context) error {
	var req api.ImportKeyRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	defer keycrypto.ZeroBytes(req.PrivateKey)

	seed, err := protocol.SeedFromBytes(req.PrivateKey)
	if err != nil {
		return err
	}
	info, err := s.daemon.Keys.Import(c.Request().Context(), req.Handle, seed)
	keycrypto.ZeroBytes(seed[:])
	s.metrics.RecordWalletOp("import_key", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, api.KeyResponse{Address: info.Address, PublicKey: info.PublicKey})
}

func (s *Server) exportKey(c echo.Context) error {
	var req api.AddressRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	seed, err := s.daemon.Keys.Export(c.Request().Context(), req.Handle, []byte(req.Password), req.Address)
	s.metrics.RecordWalletOp("export_key", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, api.ExportKeyResponse{PrivateKey: seed[:]})
}

func (s *Server) deleteKey(c echo.Context) error {
	var req api.AddressRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	err := s.daemon.Keys.Delete(c.Request().Context(), req.Handle, []byte(req.Password), req.Address)
	s.metrics.RecordWalletOp("delete_key", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, api.Empty{})
}

func (s *Server) listKeys(c echo.Context) error {
	var req api.HandleRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	addrs, err := s.daemon.Keys.List(c.Request().Context(), req.Handle)
	s.metrics.RecordWalletOp("list_keys", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, api.AddressesResponse{Addresses: nonNil(addrs)})
}

func nonNil(addrs []protocol.Address) []protocol.Address {
	if addrs == nil {
		return []protocol.Address{}
	}
	return addrs
}
