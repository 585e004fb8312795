package cli

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/custodian/internal/api"
	"github.com/mrz1836/custodian/internal/client"
	"github.com/mrz1836/custodian/internal/keycrypto"
	"github.com/mrz1836/custodian/internal/mnemonic"
	"github.com/mrz1836/custodian/internal/output"
	"github.com/mrz1836/custodian/internal/protocol"
	"github.com/mrz1836/custodian/internal/shamir"
	custerr "github.com/mrz1836/custodian/pkg/errors"
)

// out is a helper for CLI output that ignores write errors (standard pattern for CLI tools).
//
//nolint:errcheck // CLI output writes to stdout are intentionally unchecked
func out(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}

// outln is a helper for CLI output with newline.
//
//nolint:errcheck // CLI output writes to stdout are intentionally unchecked
func outln(w io.Writer, args ...any) {
	fmt.Fprintln(w, args...)
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// createDriver selects the storage driver for a new wallet.
	createDriver string
	// createMnemonic restores the master derivation key from a phrase.
	createMnemonic bool
	// createShares restores the master derivation key from Shamir shares.
	createShares bool
	// exportMnemonic renders the exported key as a BIP39 phrase.
	exportMnemonic bool
	// exportShares splits the exported key into this many Shamir shares.
	exportShares int
	// exportShareThreshold is the number of shares needed to recombine.
	exportShareThreshold int
)

// walletCmd is the parent command for wallet operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage wallets",
	Long:  `Create, list, rename and inspect password-protected wallets.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List all wallets",
	Long:    `List every wallet known to the daemon across all storage drivers.`,
	Example: `  custodian wallet list -o json`,
	Args:    cobra.NoArgs,
	RunE:    runWalletList,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new wallet",
	Long: `Create a new wallet protected by a password.

A fresh master derivation key is generated unless --mnemonic or --shares is
given. With --mnemonic the key is restored from a 24-word phrase produced by
"wallet export-seed --mnemonic"; with --shares it is recombined from the shares
produced by "wallet export-seed --shares", entered one per line. Generated keys
are then re-derived in order.`,
	Example: `  custodian wallet create main
  custodian wallet create cold --driver file
  custodian wallet create restored --mnemonic
  custodian wallet create restored --shares`,
	Args: cobra.ExactArgs(1),
	RunE: runWalletCreate,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletRenameCmd = &cobra.Command{
	Use:     "rename <wallet> <new-name>",
	Short:   "Rename a wallet",
	Long:    `Rename a wallet, identified by its name or ID. Requires the wallet password.`,
	Example: `  custodian wallet rename main savings`,
	Args:    cobra.ExactArgs(2),
	RunE:    runWalletRename,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletInfoCmd = &cobra.Command{
	Use:     "info",
	Short:   "Show the wallet behind a handle",
	Long:    `Show the wallet a handle unlocks and how long the handle remains valid.`,
	Example: `  custodian wallet info --handle cust_hdl_...`,
	Args:    cobra.NoArgs,
	RunE:    runWalletInfo,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletExportSeedCmd = &cobra.Command{
	Use:   "export-seed",
	Short: "Export the wallet's master derivation key",
	Long: `Export the master derivation key of the wallet behind a handle.

Anyone holding this key can re-derive every generated key of the wallet.
Imported keys are not covered and must be exported one by one.

With --shares the key is split into Shamir shares instead, any
--share-threshold of which recombine it.`,
	Example: `  custodian wallet export-seed --handle cust_hdl_... --mnemonic
  custodian wallet export-seed --handle cust_hdl_... --shares 5 --share-threshold 3`,
	Args:    cobra.NoArgs,
	RunE:    runWalletExportSeed,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	walletCmd.GroupID = groupCustody
	rootCmd.AddCommand(walletCmd)
	walletCmd.AddCommand(walletListCmd, walletCreateCmd, walletRenameCmd, walletInfoCmd, walletExportSeedCmd)

	walletCreateCmd.Flags().StringVar(&createDriver, "driver", "", "storage driver (default: daemon default)")
	walletCreateCmd.Flags().BoolVar(&createMnemonic, "mnemonic", false, "restore the master derivation key from a 24-word phrase")
	walletCreateCmd.Flags().BoolVar(&createShares, "shares", false, "restore the master derivation key from Shamir shares")
	walletCreateCmd.MarkFlagsMutuallyExclusive("mnemonic", "shares")

	walletExportSeedCmd.Flags().BoolVar(&exportMnemonic, "mnemonic", false, "print the key as a 24-word phrase instead of hex")
	walletExportSeedCmd.Flags().IntVar(&exportShares, "shares", 0, "split the key into this many Shamir shares")
	walletExportSeedCmd.Flags().IntVar(&exportShareThreshold, "share-threshold", 0, "shares needed to recombine (with --shares)")
	walletExportSeedCmd.MarkFlagsMutuallyExclusive("mnemonic", "shares")
	walletExportSeedCmd.MarkFlagsRequiredTogether("shares", "share-threshold")

	addHandleFlag(walletInfoCmd)
	addHandleFlag(walletExportSeedCmd)
}

// walletResult is a wallet as printed by the CLI.
type walletResult struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Driver    string    `json:"driver"`
	CreatedAt time.Time `json:"created_at"`
}

func walletResultOf(w api.Wallet) walletResult {
	return walletResult{ID: w.ID, Name: w.Name, Driver: w.Driver, CreatedAt: w.CreatedAt}
}

func (r walletResult) Text() string {
	return fmt.Sprintf("Wallet:  %s\nID:      %s\nDriver:  %s\nCreated: %s",
		r.Name, r.ID, r.Driver, r.CreatedAt.Local().Format(time.RFC3339))
}

// findWallet resolves a wallet by ID, then by name.
func findWallet(ctx context.Context, cl *client.Client, ref string) (api.Wallet, error) {
	wallets, err := cl.ListWallets(ctx)
	if err != nil {
		return api.Wallet{}, err
	}
	for _, w := range wallets {
		if w.ID == ref {
			return w, nil
		}
	}
	for _, w := range wallets {
		if w.Name == ref {
			return w, nil
		}
	}
	return api.Wallet{}, custerr.WithSuggestion(
		custerr.WithDetails(custerr.ErrWalletNotFound, map[string]string{"wallet": ref}),
		"run 'custodian wallet list' to see available wallets",
	)
}

func runWalletList(cmd *cobra.Command, _ []string) error {
	cmdCtx, err := clientCommandContext()
	if err != nil {
		return err
	}
	ctx, cancel := contextWithTimeout(cmd, requestTimeout)
	defer cancel()

	wallets, err := cmdCtx.Client.ListWallets(ctx)
	if err != nil {
		return err
	}

	if cmdCtx.Formatter.IsJSON() {
		results := make([]walletResult, 0, len(wallets))
		for _, w := range wallets {
			results = append(results, walletResultOf(w))
		}
		return cmdCtx.Formatter.Print(results)
	}

	if len(wallets) == 0 {
		outln(cmd.OutOrStdout(), "No wallets found. Create one with 'custodian wallet create <name>'.")
		return nil
	}
	table := output.NewTable("NAME", "ID", "DRIVER", "CREATED")
	for _, w := range wallets {
		table.AddRow(w.Name, w.ID, w.Driver, w.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return cmdCtx.Formatter.Print(table)
}

func runWalletCreate(cmd *cobra.Command, args []string) error {
	cmdCtx, err := clientCommandContext()
	if err != nil {
		return err
	}

	var mdk protocol.MasterDerivationKey
	switch {
	case createMnemonic:
		out(os.Stderr, "Enter the 24-word phrase: ")
		phrase, lineErr := promptLineFn()
		if lineErr != nil {
			return lineErr
		}
		mdk, err = mnemonic.ToKey(phrase)
	case createShares:
		mdk, err = readShares()
	}
	if err != nil {
		return err
	}
	defer keycrypto.ZeroBytes(mdk[:])

	password, err := newWalletPassword()
	if err != nil {
		return err
	}
	defer keycrypto.ZeroBytes(password)

	ctx, cancel := contextWithTimeout(cmd, requestTimeout)
	defer cancel()

	created, err := cmdCtx.Client.CreateWallet(ctx, args[0], string(password), createDriver, mdk)
	if err != nil {
		return err
	}
	cmdCtx.Logger.Info("created wallet %s on driver %s", created.ID, created.Driver)
	return cmdCtx.Formatter.Print(walletResultOf(*created))
}

func runWalletRename(cmd *cobra.Command, args []string) error {
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

	if err := cmdCtx.Client.RenameWallet(ctx, w.ID, string(password), args[1]); err != nil {
		return err
	}
	return output.FormatSuccess(cmd.OutOrStdout(), fmt.Sprintf("Renamed %s to %s", w.Name, args[1]), cmdCtx.Formatter.Format())
}

// walletInfoResult adds the handle expiry to a wallet.
type walletInfoResult struct {
	walletResult

	ExpiresAt        time.Time `json:"expires_at"`
	ExpiresInSeconds int64     `json:"expires_in_seconds"`
}

func (r walletInfoResult) Text() string {
	return fmt.Sprintf("%s\nHandle expires in %ds", r.walletResult.Text(), r.ExpiresInSeconds)
}

func runWalletInfo(cmd *cobra.Command, _ []string) error {
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

	info, err := cmdCtx.Client.WalletInfo(ctx, handle)
	if err != nil {
		return err
	}
	return cmdCtx.Formatter.Print(walletInfoResult{
		walletResult:     walletResultOf(info.Wallet),
		ExpiresAt:        info.ExpiresAt,
		ExpiresInSeconds: info.ExpiresInSeconds,
	})
}

// readShares prompts for Shamir shares until the threshold named by the
// first one is reached, then recombines them.
func readShares() (protocol.MasterDerivationKey, error) {
	out(os.Stderr, "Share 1: ")
	first, err := promptLineFn()
	if err != nil {
		return protocol.MasterDerivationKey{}, err
	}
	k, err := shamir.Threshold(first)
	if err != nil {
		return protocol.MasterDerivationKey{}, err
	}

	shares := []string{first}
	for i := 2; i <= k; i++ {
		out(os.Stderr, "Share %d of %d: ", i, k)
		line, lineErr := promptLineFn()
		if lineErr != nil {
			return protocol.MasterDerivationKey{}, lineErr
		}
		shares = append(shares, line)
	}
	return shamir.Combine(shares)
}

// seedResult is an exported master derivation key.
type seedResult struct {
	MasterDerivationKey string   `json:"master_derivation_key,omitempty"`
	Mnemonic            string   `json:"mnemonic,omitempty"`
	Shares              []string `json:"shares,omitempty"`
	ShareThreshold      int      `json:"share_threshold,omitempty"`
}

func (r seedResult) Text() string {
	switch {
	case len(r.Shares) > 0:
		return fmt.Sprintf("Any %d of these %d shares recover the wallet:\n%s",
			r.ShareThreshold, len(r.Shares), strings.Join(r.Shares, "\n"))
	case r.Mnemonic != "":
		return r.Mnemonic
	}
	return r.MasterDerivationKey
}

func runWalletExportSeed(cmd *cobra.Command, _ []string) error {
	cmdCtx, err := clientCommandContext()
	if err != nil {
		return err
	}
	handle, err := resolveHandle()
	if err != nil {
		return err
	}
	password, err := walletPassword("Wallet password: ")
	if err != nil {
		return err
	}
	defer keycrypto.ZeroBytes(password)

	ctx, cancel := contextWithTimeout(cmd, requestTimeout)
	defer cancel()

	mdk, err := cmdCtx.Client.ExportMasterDerivationKey(ctx, handle, string(password))
	if err != nil {
		return err
	}
	defer keycrypto.ZeroBytes(mdk[:])

	var result seedResult
	switch {
	case exportShares > 0:
		shares, splitErr := shamir.Split(mdk, exportShares, exportShareThreshold)
		if splitErr != nil {
			return splitErr
		}
		result.Shares = shares
		result.ShareThreshold = exportShareThreshold
	case exportMnemonic:
		phrase, phraseErr := mnemonic.FromKey(mdk)
		if phraseErr != nil {
			return phraseErr
		}
		result.Mnemonic = phrase
	default:
		result.MasterDerivationKey = hex.EncodeToString(mdk[:])
	}

	output.Warn(os.Stderr, "this key controls every generated key in the wallet; store it offline")
	return cmdCtx.Formatter.Print(result)
}

// parseAddressArg parses a command-line address argument.
func parseAddressArg(s string) (protocol.Address, error) {
	addr, err := protocol.ParseAddress(strings.TrimSpace(s))
	if err != nil {
		return protocol.Address{}, err
	}
	return addr, nil
}
