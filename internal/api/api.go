// Package api defines the JSON bodies exchanged between the custodian daemon
// and its clients. Byte fields travel as standard base64, addresses as their
// checksummed base32 string and public keys as base64.
package api

import (
	"time"

	"github.com/mrz1836/custodian/internal/protocol"
	"github.com/mrz1836/custodian/internal/version"
)

// Routes served by the daemon.
const (
	PathVersions       = "/versions"
	PathHealth         = "/health"
	PathMetrics        = "/metrics"
	PathWallets        = "/v1/wallets"
	PathWallet         = "/v1/wallet"
	PathWalletInit     = "/v1/wallet/init"
	PathWalletRelease  = "/v1/wallet/release"
	PathWalletRenew    = "/v1/wallet/renew"
	PathWalletRename   = "/v1/wallet/rename"
	PathWalletInfo     = "/v1/wallet/info"
	PathMasterKey      = "/v1/master-key/export"
	PathKey            = "/v1/key"
	PathKeyImport      = "/v1/key/import"
	PathKeyExport      = "/v1/key/export"
	PathKeyList        = "/v1/key/list"
	PathMultisig       = "/v1/multisig"
	PathMultisigImport = "/v1/multisig/import"
	PathMultisigExport = "/v1/multisig/export"
	PathMultisigList   = "/v1/multisig/list"
	PathMultisigSign   = "/v1/multisig/sign"
	PathTxSign         = "/v1/transaction/sign"
)

// Authentication headers. Either carries the daemon API token.
const (
	HeaderAPIToken      = "X-KMD-API-Token" //nolint:gosec // G101: header name
	HeaderAuthorization = "Authorization"
	BearerPrefix        = "Bearer "
)

// VersionsResponse lists the API versions the daemon serves plus its build.
type VersionsResponse struct {
	Versions []string     `json:"versions"`
	Build    version.Info `json:"build"`
}

// HealthResponse reports daemon liveness.
type HealthResponse struct {
	Status      string `json:"status"`
	OpenHandles int    `json:"open_handles"`
}

// Wallet describes a wallet without key material.
type Wallet struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Driver    string    `json:"driver_name"`
	CreatedAt time.Time `json:"created_at"`
}

// ListWalletsResponse is the body of GET /v1/wallets.
type ListWalletsResponse struct {
	Wallets []Wallet `json:"wallets"`
}

// CreateWalletRequest creates a wallet. An empty master derivation key asks
// the daemon for a random one.
type CreateWalletRequest struct {
	Name                string `json:"wallet_name"`
	Password            string `json:"wallet_password"`
	Driver              string `json:"wallet_driver_name,omitempty"`
	MasterDerivationKey []byte `json:"master_derivation_key,omitempty"`
}

// WalletResponse wraps a single wallet.
type WalletResponse struct {
	Wallet Wallet `json:"wallet"`
}

// InitHandleRequest unlocks a wallet.
type InitHandleRequest struct {
	WalletID string `json:"wallet_id"`
	Password string `json:"wallet_password"`
}

// HandleRequest names a handle and nothing else.
type HandleRequest struct {
	Handle string `json:"wallet_handle_token"`
}

// HandleResponse returns a handle token and its expiry.
type HandleResponse struct {
	Handle           string    `json:"wallet_handle_token"`
	WalletID         string    `json:"wallet_id"`
	ExpiresAt        time.Time `json:"expires_at"`
	ExpiresInSeconds int64     `json:"expires_seconds"`
	MemoryLocked     bool      `json:"memory_locked"`
}

// RenameWalletRequest renames a wallet.
type RenameWalletRequest struct {
	WalletID string `json:"wallet_id"`
	Password string `json:"wallet_password"`
	NewName  string `json:"wallet_name"`
}

// WalletInfoResponse describes the wallet behind a handle.
type WalletInfoResponse struct {
	Wallet           Wallet    `json:"wallet"`
	ExpiresAt        time.Time `json:"expires_at"`
	ExpiresInSeconds int64     `json:"expires_seconds"`
}

// PasswordRequest is a handle plus the wallet password.
type PasswordRequest struct {
	Handle   string `json:"wallet_handle_token"`
	Password string `json:"wallet_password"`
}

// MasterKeyResponse carries an exported master derivation key.
type MasterKeyResponse struct {
	MasterDerivationKey []byte `json:"master_derivation_key"`
}

// KeyResponse returns a key's address and public key.
type KeyResponse struct {
	Address   protocol.Address   `json:"address"`
	PublicKey protocol.PublicKey `json:"public_key"`
}

// ImportKeyRequest imports a raw ed25519 seed.
type ImportKeyRequest struct {
	Handle     string `json:"wallet_handle_token"`
	PrivateKey []byte `json:"private_key"`
}

// AddressRequest targets one address with password re-verification.
type AddressRequest struct {
	Handle   string           `json:"wallet_handle_token"`
	Password string           `json:"wallet_password"`
	Address  protocol.Address `json:"address"`
}

// ExportKeyResponse carries an exported seed.
type ExportKeyResponse struct {
	PrivateKey []byte `json:"private_key"`
}

// AddressesResponse lists addresses.
type AddressesResponse struct {
	Addresses []protocol.Address `json:"addresses"`
}

// ImportMultisigRequest registers a multisig preimage.
type ImportMultisigRequest struct {
	Handle     string               `json:"wallet_handle_token"`
	Version    uint8                `json:"multisig_version"`
	Threshold  uint8                `json:"threshold"`
	PublicKeys []protocol.PublicKey `json:"pks"`
}

// AddressResponse returns a single address.
type AddressResponse struct {
	Address protocol.Address `json:"address"`
}

// ExportMultisigRequest looks up a multisig preimage.
type ExportMultisigRequest struct {
	Handle  string           `json:"wallet_handle_token"`
	Address protocol.Address `json:"address"`
}

// MultisigResponse is an exported multisig preimage.
type MultisigResponse struct {
	Version    uint8                `json:"multisig_version"`
	Threshold  uint8                `json:"threshold"`
	PublicKeys []protocol.PublicKey `json:"pks"`
}

// SignTransactionRequest signs with a single key. Transaction is the
// canonical encoding of the unsigned transaction.
type SignTransactionRequest struct {
	Handle      string `json:"wallet_handle_token"`
	Password    string `json:"wallet_password"`
	Transaction []byte `json:"transaction"`
}

// SignTransactionResponse carries the canonical encoding of the signed
// transaction.
type SignTransactionResponse struct {
	SignedTransaction []byte `json:"signed_transaction"`
}

// SignMultisigRequest adds one member signature to a multisig bag.
// PartialMultisig is the canonical encoding of an existing bag; leaving it
// empty starts a new one.
type SignMultisigRequest struct {
	Handle          string             `json:"wallet_handle_token"`
	Password        string             `json:"wallet_password"`
	Transaction     []byte             `json:"transaction"`
	PublicKey       protocol.PublicKey `json:"public_key"`
	PartialMultisig []byte             `json:"partial_multisig,omitempty"`
}

// SignMultisigResponse returns the merged bag both on its own and wrapped
// in a signed transaction.
type SignMultisigResponse struct {
	Multisig          []byte `json:"multisig"`
	SignedTransaction []byte `json:"signed_transaction"`
}

// Empty is the body of operations that return nothing.
type Empty struct{}
