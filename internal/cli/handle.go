package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/custodian/internal/api"
	"github.com/mrz1836/custodian/internal/config"
	"github.com/mrz1836/custodian/internal/keycrypto"
	"github.com/mrz1836/custodian/internal/output"
	custerr "github.com/mrz1836/custodian/pkg/errors"
)

// handleFlag is the wallet handle token shared by handle-scoped commands.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var handleFlag string

// addHandleFlag registers --handle on cmd.
func addHandleFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&handleFlag, "handle", "", "wallet handle token (default: $"+config.EnvHandle+")")
}

// resolveHandle returns the handle from --handle or the environment.
func resolveHandle() (string, error) {
	h := strings.TrimSpace(handleFlag)
	if h == "" {
		h = strings.TrimSpace(os.Getenv(config.EnvHandle))
	}
	if h == "" {
		return "", custerr.WithSuggestion(
			custerr.WithDetails(custerr.ErrInvalidInput, map[string]string{"handle": "missing"}),
			"run 'custodian handle init <wallet>' and pass the token with --handle or $"+config.EnvHandle,
		)
	}
	return h, nil
}

// handleCmd is the parent command for wallet handles.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var handleCmd = &cobra.Command{
	Use:   "handle",
	Short: "Unlock wallets and manage handles",
	Long: `A handle is a short-lived token that unlocks one wallet. Key, multisig and
signing commands take a handle instead of a wallet name.

Handles expire after the daemon's handle TTL (default 60 seconds) unless
renewed, and are revoked by "handle release".`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var handleInitCmd = &cobra.Command{
	Use:   "init <wallet>",
	Short: "Unlock a wallet and print a handle",
	Long: `Unlock a wallet, identified by its name or ID, with its password and print
a new handle token for it.`,
	Example: `  custodian handle init main
  export CUSTODIAN_HANDLE=$(custodian handle init main -o json | jq -r .handle)`,
	Args: cobra.ExactArgs(1),
	RunE: runHandleInit,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var handleRenewCmd = &cobra.Command{
	Use:   "renew",
	Short: "Extend a handle's lifetime",
	Long: `Reset a handle's expiry to a full TTL from now. Expired or released
handles cannot be renewed.`,
	Example: `  custodian handle renew --handle cust_hdl_...`,
	Args:    cobra.NoArgs,
	RunE:    runHandleRenew,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var handleReleaseCmd = &cobra.Command{
	Use:     "release",
	Short:   "Revoke a handle",
	Long:    `Revoke a handle immediately. Releasing an unknown or expired handle succeeds.`,
	Example: `  custodian handle release --handle cust_hdl_...`,
	Args:    cobra.NoArgs,
	RunE:    runHandleRelease,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	handleCmd.GroupID = groupCustody
	rootCmd.AddCommand(handleCmd)
	handleCmd.AddCommand(handleInitCmd, handleRenewCmd, handleReleaseCmd)

	addHandleFlag(handleRenewCmd)
	addHandleFlag(handleReleaseCmd)
}

// handleResult is a handle as printed by the CLI.
type handleResult struct {
	Handle           string    `json:"handle"`
	WalletID         string    `json:"wallet_id"`
	ExpiresAt        time.Time `json:"expires_at"`
	ExpiresInSeconds int64     `json:"expires_in_seconds"`
}

func handleResultOf(h *api.HandleResponse) handleResult {
	return handleResult{
		Handle:           h.Handle,
		WalletID:         h.WalletID,
		ExpiresAt:        h.ExpiresAt,
		ExpiresInSeconds: h.ExpiresInSeconds,
	}
}

func (r handleResult) Text() string {
	return fmt.Sprintf("%s\n(expires in %ds)", r.Handle, r.ExpiresInSeconds)
}

func runHandleInit(cmd *cobra.Command, args []string) error {
	cmdCtx, err := clientCommandContext()
	if err != nil {
		return err
	}
	ctx, cancel := contextWithTimeout(cmd, requestTimeout)
	defer cancel()

	w, err := findWallet(ctx, cmdCtx.Client, args[0])
	if err != nil {
		return err
	}

	password, err := walletPassword(fmt.Sprintf("Password for %s: ", w.Name))
	if err != nil {
		return err
	}
	defer keycrypto.ZeroBytes(password)

	h, err := cmdCtx.Client.InitHandle(ctx, w.ID, string(password))
	if err != nil {
		return err
	}
	return cmdCtx.Formatter.Print(handleResultOf(h))
}

func runHandleRenew(cmd *cobra.Command, _ []string) error {
	cmdCtx, err := clientCommandContext()
	if err != nil {
		return err
	}
	handle, err := resolveHandle()
	if err != nil {
		return err
	}
	ctx, cancel := contextWithTimeout(cmd, requestTimeout)
	defer cancel()

	h, err := cmdCtx.Client.RenewHandle(ctx, handle)
	if err != nil {
		return err
	}
	return cmdCtx.Formatter.Print(handleResultOf(h))
}

func runHandleRelease(cmd *cobra.Command, _ []string) error {
	cmdCtx, err := clientCommandContext()
	if err != nil {
		return err
	}
	handle, err := resolveHandle()
	if err != nil {
		return err
	}
	ctx, cancel := contextWithTimeout(cmd, requestTimeout)
	defer cancel()

	if err := cmdCtx.Client.ReleaseHandle(ctx, handle); err != nil {
		return err
	}
	return output.FormatSuccess(cmd.OutOrStdout(), "Handle released", cmdCtx.Formatter.Format())
}
