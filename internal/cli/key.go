package cli

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/custodian/internal/api"
	"github.com/mrz1836/custodian/internal/keycrypto"
	"github.com/mrz1836/custodian/internal/output"
	"github.com/mrz1836/custodian/internal/protocol"
	custerr "github.com/mrz1836/custodian/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// deleteForce skips the confirmation prompt.
	deleteForce bool
)

// keyCmd is the parent command for key operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Generate, import and export keys",
	Long: `Manage the ed25519 keys of the wallet behind a handle.

Generated keys are derived from the wallet's master derivation key and can be
recovered from it. Imported keys cannot.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keyGenerateCmd = &cobra.Command{
	Use:     "generate",
	Short:   "Derive the next key",
	Long:    `Derive the wallet's next key from its master derivation key and store it.`,
	Example: `  custodian key generate --handle cust_hdl_...`,
	Args:    cobra.NoArgs,
	RunE:    runKeyGenerate,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keyImportCmd = &cobra.Command{
	Use:   "import [seed-hex]",
	Short: "Import a 32-byte ed25519 seed",
	Long: `Import a raw 32-byte ed25519 seed given as 64 hex characters. When the
argument is omitted the seed is read from a hidden prompt.`,
	Example: `  custodian key import --handle cust_hdl_...`,
	Args:    cobra.MaximumNArgs(1),
	RunE:    runKeyImport,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keyExportCmd = &cobra.Command{
	Use:     "export <address>",
	Short:   "Export a key's seed",
	Long:    `Print the 32-byte ed25519 seed of a key as hex. Requires the wallet password.`,
	Example: `  custodian key export --handle cust_hdl_... <address>`,
	Args:    cobra.ExactArgs(1),
	RunE:    runKeyExport,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keyDeleteCmd = &cobra.Command{
	Use:   "delete <address>",
	Short: "Delete a key",
	Long: `Delete a key from the wallet. A deleted generated key can be brought back
by generating again after restoring the wallet; a deleted imported key is gone.`,
	Example: `  custodian key delete --handle cust_hdl_... <address> --force`,
	Args:    cobra.ExactArgs(1),
	RunE:    runKeyDelete,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keyListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List key addresses",
	Long:    `List the addresses of every key in the wallet, generated and imported.`,
	Example: `  custodian key list --handle cust_hdl_...`,
	Args:    cobra.NoArgs,
	RunE:    runKeyList,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	keyCmd.GroupID = groupCustody
	rootCmd.AddCommand(keyCmd)
	keyCmd.AddCommand(keyGenerateCmd, keyImportCmd, keyExportCmd, keyDeleteCmd, keyListCmd)

	for _, c := range keyCmd.Commands() {
		addHandleFlag(c)
	}
	keyDeleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "do not ask for confirmation")
}

// keyResult is a key as printed by the CLI.
type keyResult struct {
	Address   protocol.Address   `json:"address"`
	PublicKey protocol.PublicKey `json:"public_key"`
}

func (r keyResult) Text() string {
	pk, _ := r.PublicKey.MarshalText()
	return fmt.Sprintf("Address:    %s\nPublic key: %s", r.Address, pk)
}

func keyResultOf(k *api.KeyResponse) keyResult {
	return keyResult{Address: k.Address, PublicKey: k.PublicKey}
}

// addressList prints as one address per line.
type addressList struct {
	Addresses []protocol.Address `json:"addresses"`
}

func (l addressList) Text() string {
	if len(l.Addresses) == 0 {
		return "(none)"
	}
	lines := make([]string, 0, len(l.Addresses))
	for _, a := range l.Addresses {
		lines = append(lines, a.String())
	}
	return strings.Join(lines, "\n")
}

// confirmDelete asks before deleting unless --force or JSON output.
func confirmDelete(what string) error {
	if deleteForce || formatter.IsJSON() {
		return nil
	}
	if !promptConfirmFn(fmt.Sprintf("Delete %s?", what)) {
		return custerr.WithSuggestion(custerr.ErrInvalidInput, "aborted; pass --force to skip the prompt")
	}
	return nil
}

func runKeyGenerate(cmd *cobra.Command, _ []string) error {
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

	k, err := cmdCtx.Client.GenerateKey(ctx, handle)
	if err != nil {
		return err
	}
	return cmdCtx.Formatter.Print(keyResultOf(k))
}

func runKeyImport(cmd *cobra.Command, args []string) error {
	cmdCtx, err := clientCommandContext()
	if err != nil {
		return err
	}
	handle, err := resolveHandle()
	if err != nil {
		return err
	}

	var raw []byte
	if len(args) == 1 {
		raw = []byte(args[0])
	} else {
		raw, err = promptPasswordFn("Seed (hex): ")
		if err != nil {
			return err
		}
	}
	defer keycrypto.ZeroBytes(raw)

	seedBytes, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return custerr.WithDetails(custerr.ErrInvalidSeed, map[string]string{"encoding": "expected hex"})
	}
	defer keycrypto.ZeroBytes(seedBytes)

	seed, err := protocol.SeedFromBytes(seedBytes)
	if err != nil {
		return err
	}
	defer keycrypto.ZeroBytes(seed[:])

	ctx, cancel := contextWithTimeout(cmd, requestTimeout)
	defer cancel()

	k, err := cmdCtx.Client.ImportKey(ctx, handle, seed)
	if err != nil {
		return err
	}
	return cmdCtx.Formatter.Print(keyResultOf(k))
}

// exportedKey is an exported seed.
type exportedKey struct {
	Address protocol.Address `json:"address"`
	Seed    string           `json:"seed"`
}

func (e exportedKey) Text() string {
	return e.Seed
}

func runKeyExport(cmd *cobra.Command, args []string) error {
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
	password, err := walletPassword("Wallet password: ")
	if err != nil {
		return err
	}
	defer keycrypto.ZeroBytes(password)

	ctx, cancel := contextWithTimeout(cmd, requestTimeout)
	defer cancel()

	seed, err := cmdCtx.Client.ExportKey(ctx, handle, string(password), addr)
	if err != nil {
		return err
	}
	defer keycrypto.ZeroBytes(seed[:])

	output.Warn(os.Stderr, "anyone with this seed can sign for %s", addr)
	return cmdCtx.Formatter.Print(exportedKey{Address: addr, Seed: hex.EncodeToString(seed[:])})
}

func runKeyDelete(cmd *cobra.Command, args []string) error {
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
	if err := confirmDelete("key " + addr.String()); err != nil {
		return err
	}
	password, err := walletPassword("Wallet password: ")
	if err != nil {
		return err
	}
	defer keycrypto.ZeroBytes(password)

	ctx, cancel := contextWithTimeout(cmd, requestTimeout)
	defer cancel()

	if err := cmdCtx.Client.DeleteKey(ctx, handle, string(password), addr); err != nil {
		return err
	}
	return output.FormatSuccess(cmd.OutOrStdout(), "Deleted key "+addr.String(), cmdCtx.Formatter.Format())
}

func runKeyList(cmd *cobra.Command, _ []string) error {
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

	addrs, err := cmdCtx.Client.ListKeys(ctx, handle)
	if err != nil {
		return err
	}
	if addrs == nil {
		addrs = []protocol.Address{}
	}
	return cmdCtx.Formatter.Print(addressList{Addresses: addrs})
}
