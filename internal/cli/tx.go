package cli

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mrz1836/custodian/internal/fileutil"
	"github.com/mrz1836/custodian/internal/keycrypto"
	"github.com/mrz1836/custodian/internal/protocol"
	"github.com/mrz1836/custodian/internal/service/signing"
	custerr "github.com/mrz1836/custodian/pkg/errors"
)

// signedTxPermissions is the mode of signed transaction files.
const signedTxPermissions = 0o600

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	txIn      string
	txOut     string
	txPartial string
	txSigner  string

	// Inline payment fields, used when --in is absent.
	txFrom       string
	txTo         string
	txAmount     uint64
	txFee        uint64
	txFirstValid uint64
	txLastValid  uint64
	txGenesisID  string
	txNote       string
)

// txCmd is the parent command for signing.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var txCmd = &cobra.Command{
	Use:   "tx",
	Short: "Sign transactions",
	Long: `Sign transactions with keys held by the daemon.

The transaction comes from a msgpack file (--in, "-" for stdin) or is built
from the payment flags. The signed transaction is written to --out, or printed
as base64.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var txSignCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign with the sender's key",
	Long:  `Sign a transaction with the wallet key whose address is the sender.`,
	Example: `  custodian tx sign --handle cust_hdl_... --in tx.msgp --out tx.stx
  custodian tx sign --handle cust_hdl_... --from <addr> --to <addr> --amount 1000 --first-valid 1 --last-valid 1000`,
	Args: cobra.NoArgs,
	RunE: runTxSign,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var txSignMultisigCmd = &cobra.Command{
	Use:   "sign-multisig",
	Short: "Add one member's signature to a multisig transaction",
	Long: `Add the signature of --signer (a member public key held by the wallet) to
a multisig transaction. Pass the output of a previous signer with --partial to
accumulate signatures; the result is complete once the threshold is met.`,
	Example: `  custodian tx sign-multisig --handle cust_hdl_... --in tx.msgp --signer <pk> --out part1.stx
  custodian tx sign-multisig --handle cust_hdl_... --in tx.msgp --signer <pk2> --partial part1.stx --out final.stx`,
	Args: cobra.NoArgs,
	RunE: runTxSignMultisig,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	txCmd.GroupID = groupCustody
	rootCmd.AddCommand(txCmd)
	txCmd.AddCommand(txSignCmd, txSignMultisigCmd)

	for _, c := range txCmd.Commands() {
		addHandleFlag(c)
		f := c.Flags()
		f.StringVar(&txIn, "in", "", `msgpack transaction file ("-" for stdin)`)
		f.StringVar(&txOut, "out", "", "write the signed transaction here")
		f.StringVar(&txFrom, "from", "", "payment sender address")
		f.StringVar(&txTo, "to", "", "payment receiver address")
		f.Uint64Var(&txAmount, "amount", 0, "payment amount")
		f.Uint64Var(&txFee, "fee", 1000, "transaction fee")
		f.Uint64Var(&txFirstValid, "first-valid", 0, "first valid round")
		f.Uint64Var(&txLastValid, "last-valid", 0, "last valid round")
		f.StringVar(&txGenesisID, "genesis-id", "", "genesis ID")
		f.StringVar(&txNote, "note", "", "transaction note")
	}
	txSignMultisigCmd.Flags().StringVar(&txSigner, "signer", "", "member public key to sign with, base64 (required)")
	txSignMultisigCmd.Flags().StringVar(&txPartial, "partial", "", "signed transaction from a previous signer")
	_ = txSignMultisigCmd.MarkFlagRequired("signer")
}

// signedResult summarizes a signed transaction.
type signedResult struct {
	TxID              string `json:"txid"`
	SignedTransaction string `json:"signed_transaction,omitempty"`
	File              string `json:"file,omitempty"`
	Signatures        int    `json:"signatures,omitempty"`
	Threshold         uint8  `json:"threshold,omitempty"`
}

func (r signedResult) Text() string {
	s := "Transaction " + r.TxID
	if r.Threshold > 0 {
		s += fmt.Sprintf("\nSignatures: %d of %d", r.Signatures, r.Threshold)
	}
	if r.File != "" {
		return s + "\nWritten to " + r.File
	}
	return s + "\n" + r.SignedTransaction
}

// readInput reads a file, or stdin for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: user-supplied path
	if err != nil {
		return nil, custerr.Wrap(custerr.ErrInvalidInput, "reading %s: %v", path, err)
	}
	return data, nil
}

// loadTransaction returns the transaction to sign.
func loadTransaction(cmd *cobra.Command) (protocol.Transaction, error) {
	if txIn != "" {
		data, err := readInput(cmd, txIn)
		if err != nil {
			return protocol.Transaction{}, err
		}
		return protocol.DecodeTransaction(data)
	}

	if txFrom == "" || txTo == "" {
		return protocol.Transaction{}, custerr.WithSuggestion(
			custerr.ErrInvalidTransaction,
			"pass --in <file> or build a payment with --from and --to",
		)
	}
	from, err := parseAddressArg(txFrom)
	if err != nil {
		return protocol.Transaction{}, err
	}
	to, err := parseAddressArg(txTo)
	if err != nil {
		return protocol.Transaction{}, err
	}
	tx := protocol.Transaction{
		Type: protocol.PaymentTx,
		Header: protocol.Header{
			Sender:     from,
			Fee:        txFee,
			FirstValid: txFirstValid,
			LastValid:  txLastValid,
			GenesisID:  txGenesisID,
		},
		PaymentFields: protocol.PaymentFields{Receiver: to, Amount: txAmount},
	}
	if txNote != "" {
		tx.Note = []byte(txNote)
	}
	return tx, tx.Validate()
}

// emitSigned writes stx to --out or prints it.
func emitSigned(stx protocol.SignedTxn) error {
	encoded := stx.Encode()
	result := signedResult{TxID: stx.Txn.ID()}
	if !stx.Msig.Blank() {
		result.Signatures = stx.Msig.SignatureCount()
		result.Threshold = stx.Msig.Threshold
	}

	if txOut != "" {
		if err := fileutil.WriteAtomic(txOut, encoded, signedTxPermissions); err != nil {
			return fmt.Errorf("writing %s: %w", txOut, err)
		}
		result.File = txOut
	} else {
		result.SignedTransaction = base64.StdEncoding.EncodeToString(encoded)
	}
	return formatter.Print(result)
}

func runTxSign(cmd *cobra.Command, _ []string) error {
	cmdCtx, err := clientCommandContext()
	if err != nil {
		return err
	}
	handle, err := resolveHandle()
	if err != nil {
		return err
	}
	tx, err := loadTransaction(cmd)
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

	stx, err := cmdCtx.Client.SignTransaction(ctx, handle, string(password), tx)
	if err != nil {
		return err
	}
	cmdCtx.Logger.Debug("signed transaction %s", stx.Txn.ID())
	return emitSigned(stx)
}

func runTxSignMultisig(cmd *cobra.Command, _ []string) error {
	cmdCtx, err := clientCommandContext()
	if err != nil {
		return err
	}
	handle, err := resolveHandle()
	if err != nil {
		return err
	}
	tx, err := loadTransaction(cmd)
	if err != nil {
		return err
	}

	var signer protocol.PublicKey
	if err := signer.UnmarshalText([]byte(txSigner)); err != nil {
		return err
	}

	partial := signing.NoPartial()
	if txPartial != "" {
		data, readErr := readInput(cmd, txPartial)
		if readErr != nil {
			return readErr
		}
		prev, decodeErr := protocol.DecodeSignedTxn(data)
		if decodeErr != nil {
			return decodeErr
		}
		partial = signing.PartialFrom(prev.Msig)
	}

	password, err := walletPassword("Wallet password: ")
	if err != nil {
		return err
	}
	defer keycrypto.ZeroBytes(password)

	ctx, cancel := contextWithTimeout(cmd, requestTimeout)
	defer cancel()

	stx, err := cmdCtx.Client.SignMultisigTransaction(ctx, handle, string(password), tx, signer, partial)
	if err != nil {
		return err
	}
	cmdCtx.Logger.Debug("multisig transaction %s has %d signature(s)", stx.Txn.ID(), stx.Msig.SignatureCount())
	return emitSigned(stx)
}
