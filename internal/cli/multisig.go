package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/custodian/internal/keycrypto"
	"github.com/mrz1836/custodian/internal/output"
	"github.com/mrz1836/custodian/internal/protocol"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	msigVersion   uint8
	msigThreshold uint8
)

// multisigCmd is the parent command for multisig accounts.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var multisigCmd = &cobra.Command{
	Use:   "multisig",
	Short: "Manage multisig accounts",
	Long: `Register threshold multisig accounts in a wallet. Only the preimage
(version, threshold and ordered public keys) is stored; signing uses whichever
member keys the wallet holds.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var multisigImportCmd = &cobra.Command{
	Use:   "import <public-key>...",
	Short: "Register a multisig account",
	Long: `Register a multisig account from its ordered member public keys (base64).
The order of the keys is part of the account's address.`,
	Example: `  custodian multisig import --threshold 2 <pk1> <pk2> <pk3>`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runMultisigImport,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var multisigExportCmd = &cobra.Command{
	Use:     "export <address>",
	Short:   "Show a multisig account's preimage",
	Long:    `Show the version, threshold and ordered member keys of a multisig account.`,
	Example: `  custodian multisig export --handle cust_hdl_... <address>`,
	Args:    cobra.ExactArgs(1),
	RunE:    runMultisigExport,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var multisigDeleteCmd = &cobra.Command{
	Use:     "delete <address>",
	Short:   "Remove a multisig account",
	Long:    `Remove a multisig account from the wallet. Member keys are not touched.`,
	Example: `  custodian multisig delete --handle cust_hdl_... <address> --force`,
	Args:    cobra.ExactArgs(1),
	RunE:    runMultisigDelete,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var multisigListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List multisig addresses",
	Long:    `List the addresses of every multisig account registered in the wallet.`,
	Example: `  custodian multisig list --handle cust_hdl_...`,
	Args:    cobra.NoArgs,
	RunE:    runMultisigList,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	multisigCmd.GroupID = groupCustody
	rootCmd.AddCommand(multisigCmd)
	multisigCmd.AddCommand(multisigImportCmd, multisigExportCmd, multisigDeleteCmd, multisigListCmd)

	for _, c := range multisigCmd.Commands() {
		addHandleFlag(c)
	}
	multisigImportCmd.Flags().Uint8Var(&msigVersion, "version", 1, "multisig version")
	multisigImportCmd.Flags().Uint8VarP(&msigThreshold, "threshold", "t", 0, "signatures required (required)")
	_ = multisigImportCmd.MarkFlagRequired("threshold")
	multisigDeleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "do not ask for confirmation")
}

// multisigResult is a multisig preimage as printed by the CLI.
type multisigResult struct {
	Address    protocol.Address     `json:"address"`
	Version    uint8                `json:"version"`
	Threshold  uint8                `json:"threshold"`
	PublicKeys []protocol.PublicKey `json:"public_keys"`
}

func (r multisigResult) Text() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Address:   %s\nVersion:   %d\nThreshold: %d of %d\n", r.Address, r.Version, r.Threshold, len(r.PublicKeys)))
	for i, pk := range r.PublicKeys {
		text, _ := pk.MarshalText()
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, text))
	}
	return sb.String()
}

func runMultisigImport(cmd *cobra.Command, args []string) error {
	cmdCtx, err := clientCommandContext()
	if err != nil {
		return err
	}
	handle, err := resolveHandle()
	if err != nil {
		return err
	}

	pks := make([]protocol.PublicKey, len(args))
	for i, a := range args {
		if err := pks[i].UnmarshalText([]byte(strings.TrimSpace(a))); err != nil {
			return err
		}
	}

	ctx, cancel := contextWithTimeout(cmd, requestTimeout)
	defer cancel()

	addr, err := cmdCtx.Client.ImportMultisig(ctx, handle, msigVersion, msigThreshold, pks)
	if err != nil {
		return err
	}
	return cmdCtx.Formatter.Print(multisigResult{Address: addr, Version: msigVersion, Threshold: msigThreshold, PublicKeys: pks})
}

func runMultisigExport(cmd *cobra.Command, args []string) error {
	cmdCtx, err := clientCommandContext()
	if err != nil {
		return err
	}
	handle, err := resolveHandle()
	if err != nil {
		return err
	}
	addr, err := parseAddressArg(args[0])
	if err != nil {
		return err
	}
	ctx, cancel := contextWithTimeout(cmd, requestTimeout)
	defer cancel()

	pre, err := cmdCtx.Client.ExportMultisig(ctx, handle, addr)
	if err != nil {
		return err
	}
	return cmdCtx.Formatter.Print(multisigResult{
		Address:    addr,
		Version:    pre.Version,
		Threshold:  pre.Threshold,
		PublicKeys: pre.PublicKeys,
	})
}

func runMultisigDelete(cmd *cobra.Command, args []string) error {
	cmdCtx, err := clientCommandContext()
	if err != nil {
		return err
	}
	handle, err := resolveHandle()
	if err != nil {
		return err
	}
	addr, err := parseAddressArg(args[0])
	if err != nil {
		return err
	}
	if err := confirmDelete("multisig account " + addr.String()); err != nil {
		return err
	}
	password, err := walletPassword("Wallet password: ")
	if err != nil {
		return err
	}
	defer keycrypto.ZeroBytes(password)

	ctx, cancel := contextWithTimeout(cmd, requestTimeout)
	defer cancel()

	if err := cmdCtx.Client.DeleteMultisig(ctx, handle, string(password), addr); err != nil {
		return err
	}
	return output.FormatSuccess(cmd.OutOrStdout(), "Deleted multisig account "+addr.String(), cmdCtx.Formatter.Format())
}

func runMultisigList(cmd *cobra.Command, _ []string) error {
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

	addrs, err := cmdCtx.Client.ListMultisig(ctx, handle)
	if err != nil {
		return err
	}
	if addrs == nil {
		addrs = []protocol.Address{}
	}
	return cmdCtx.Formatter.Print(addressList{Addresses: addrs})
}
