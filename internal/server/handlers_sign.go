package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mrz1836/custodian/internal/api"
	"github.com/mrz1836/custodian/internal/metrics"
	"github.com/mrz1836/custodian/internal/protocol"
	"github.com/mrz1836/custodian/internal/service/signing"
)

func (s *Server) signTransaction(c echo.Context) error {
	var req api.SignTransactionRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	tx, err := protocol.DecodeTransaction(req.Transaction)
	if err != nil {
		s.metrics.RecordSignature(metrics.SignatureSingle, err)
		return err
	}
	stx, err := s.daemon.Signer.Sign(c.Request().Context(), req.Handle, []byte(req.Password), tx)
	s.metrics.RecordSignature(metrics.SignatureSingle, err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, api.SignTransactionResponse{SignedTransaction: stx.Encode()})
}

// partialOf decodes the optional partial bag. An absent or blank bag starts
// a new signature.
func partialOf(b []byte) (signing.Partial, error) {
	if len(b) == 0 {
		return signing.NoPartial(), nil
	}
	m, err := protocol.DecodeMultisigSig(b)
	if err != nil {
		return signing.Partial{}, err
	}
	return signing.PartialFrom(m), nil
}

func (s *Server) signMultisig(c echo.Context) error {
	var req api.SignMultisigRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	tx, err := protocol.DecodeTransaction(req.Transaction)
	if err != nil {
		s.metrics.RecordSignature(metrics.SignatureMultisig, err)
		return err
	}
	partial, err := partialOf(req.PartialMultisig)
	if err != nil {
		s.metrics.RecordSignature(metrics.SignatureMultisig, err)
		return err
	}

	stx, err := s.daemon.Signer.SignMultisig(c.Request().Context(), req.Handle, []byte(req.Password), tx, req.PublicKey, partial)
	s.metrics.RecordSignature(metrics.SignatureMultisig, err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, api.SignMultisigResponse{
		Multisig:          stx.Msig.Encode(),
		SignedTransaction: stx.Encode(),
	})
}
