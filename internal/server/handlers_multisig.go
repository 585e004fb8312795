package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mrz1836/custodian/internal/api"
	"github.com/mrz1836/custodian/internal/service/multisig"
)

func (s *Server) importMultisig(c echo.Context) error {
	var req api.ImportMultisigRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	addr, err := s.daemon.Multisigs.Import(c.Request().Context(), req.Handle, multisig.Preimage{
		Version:    req.Version,
		Threshold:  req.Threshold,
		PublicKeys: req.PublicKeys,
	})
	s.metrics.RecordWalletOp("import_multisig", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, api.AddressResponse{Address: addr})
}

func (s *Server) exportMultisig(c echo.Context) error {
	var req api.ExportMultisigRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	pre, err := s.daemon.Multisigs.Export(c.Request().Context(), req.Handle, req.Address)
	s.metrics.RecordWalletOp("export_multisig", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, api.MultisigResponse{
		Version:    pre.Version,
		Threshold:  pre.Threshold,
		PublicKeys: pre.PublicKeys,
	})
}

func (s *Server) deleteMultisig(c echo.Context) error {
	var req api.AddressRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	err := s.daemon.Multisigs.Delete(c.Request().Context(), req.Handle, []byte(req.Password), req.Address)
	s.metrics.RecordWalletOp("delete_multisig", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, api.Empty{})
}

func (s *Server) listMultisig(c echo.Context) error {
	var req api.HandleRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	addrs, err := s.daemon.Multisigs.List(c.Request().Context(), req.Handle)
	s.metrics.RecordWalletOp("list_multisig", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, api.AddressesResponse{Addresses: nonNil(addrs)})
}
