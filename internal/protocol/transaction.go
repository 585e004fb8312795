package protocol

import (
	"crypto/ed25519"
	"crypto/sha512"

	custerr "github.com/mrz1836/custodian/pkg/errors"
)

// TxType names the payload carried by a transaction.
type TxType string

// Supported transaction types.
const (
	PaymentTx         TxType = "pay"
	KeyRegistrationTx TxType = "keyreg"
)

// Domain separation prefixes for signed and hashed objects.
const (
	txPrefix       = "TX"
	multisigPrefix = "MultisigAddr"
)

// Header holds the fields common to every transaction.
type Header struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Sender      Address `codec:"snd"`
	Fee         uint64  `codec:"fee"`
	FirstValid  uint64  `codec:"fv"`
	LastValid   uint64  `codec:"lv"`
	Note        []byte  `codec:"note"`
	GenesisID   string  `codec:"gen"`
	GenesisHash Digest  `codec:"gh"`
}

// PaymentFields is the payload of a payment.
type PaymentFields struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Receiver         Address `codec:"rcv"`
	Amount           uint64  `codec:"amt"`
	CloseRemainderTo Address `codec:"close"`
}

// KeyregFields is the payload of a participation key registration.
type KeyregFields struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	VotePK           PublicKey `codec:"votekey"`
	SelectionPK      PublicKey `codec:"selkey"`
	VoteFirst        uint64    `codec:"votefst"`
	VoteLast         uint64    `codec:"votelst"`
	VoteKeyDilution  uint64    `codec:"votekd"`
	Nonparticipation bool      `codec:"nonpart"`
}

// Transaction is an unsigned transaction.
type Transaction struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Type TxType `codec:"type"`

	Header
	PaymentFields
	KeyregFields
}

// Validate checks the fields the daemon relies on before signing.
func (tx Transaction) Validate() error {
	switch tx.Type {
	case PaymentTx:
		if tx.Receiver.IsZero() && tx.CloseRemainderTo.IsZero() {
			return custerr.WithDetails(custerr.ErrInvalidTransaction, map[string]string{"field": "receiver"})
		}
	case KeyRegistrationTx:
		if tx.VoteFirst > tx.VoteLast {
			return custerr.WithDetails(custerr.ErrInvalidTransaction, map[string]string{"field": "vote range"})
		}
	default:
		return custerr.WithDetails(custerr.ErrInvalidTransaction, map[string]string{"type": string(tx.Type)})
	}
	if tx.Sender.IsZero() {
		return custerr.WithDetails(custerr.ErrInvalidTransaction, map[string]string{"field": "sender"})
	}
	if tx.FirstValid > tx.LastValid {
		return custerr.WithDetails(custerr.ErrInvalidTransaction, map[string]string{"field": "validity range"})
	}
	return nil
}

// SigningBytes returns the exact bytes a signature covers.
func (tx Transaction) SigningBytes() []byte {
	enc := Encode(tx)
	out := make([]byte, 0, len(txPrefix)+len(enc))
	out = append(out, txPrefix...)
	return append(out, enc...)
}

// ID returns the transaction identifier, the base32 hash of its signing bytes.
func (tx Transaction) ID() string {
	sum := sha512.Sum512_256(tx.SigningBytes())
	return base32Encoder.EncodeToString(sum[:])
}

// DecodeTransaction parses a canonical-encoded transaction.
func DecodeTransaction(b []byte) (Transaction, error) {
	var tx Transaction
	if len(b) == 0 {
		return tx, custerr.WithDetails(custerr.ErrInvalidTransaction, map[string]string{"reason": "empty"})
	}
	if err := Decode(b, &tx); err != nil {
		return Transaction{}, custerr.Wrap(custerr.ErrInvalidTransaction, "decoding transaction: %v", err)
	}
	return tx, nil
}

// SignedTxn is a transaction with either a single signature or a multisig bag.
type SignedTxn struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Sig  Signature   `codec:"sig"`
	Msig MultisigSig `codec:"msig"`
	Txn  Transaction `codec:"txn"`
}

// Encode returns the canonical encoding of the signed transaction.
func (s SignedTxn) Encode() []byte {
	return Encode(s)
}

// DecodeSignedTxn parses a canonical-encoded signed transaction.
func DecodeSignedTxn(b []byte) (SignedTxn, error) {
	var s SignedTxn
	if err := Decode(b, &s); err != nil {
		return SignedTxn{}, custerr.Wrap(custerr.ErrInvalidTransaction, "decoding signed transaction: %v", err)
	}
	return s, nil
}

// SignTransaction signs tx with sk.
func SignTransaction(sk ed25519.PrivateKey, tx Transaction) SignedTxn {
	var sig Signature
	copy(sig[:], ed25519.Sign(sk, tx.SigningBytes()))
	return SignedTxn{Sig: sig, Txn: tx}
}

// VerifySingle reports whether s carries a valid single signature by pk.
func (s SignedTxn) VerifySingle(pk PublicKey) bool {
	if s.Sig.Blank() {
		return false
	}
	return ed25519.Verify(pk[:], s.Txn.SigningBytes(), s.Sig[:])
}
