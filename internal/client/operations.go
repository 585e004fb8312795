package client

import (
	"context"
	"net/http"

	"github.com/mrz1836/custodian/internal/api"
	"github.com/mrz1836/custodian/internal/protocol"
	"github.com/mrz1836/custodian/internal/service/signing"
)

// Versions returns the API versions and build the daemon reports.
func (c *Client) Versions(ctx context.Context) (*api.VersionsResponse, error) {
	var resp api.VersionsResponse
	if err := c.do(ctx, http.MethodGet, api.PathVersions, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks that the daemon is up.
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	if err := c.do(ctx, http.MethodGet, api.PathHealth, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListWallets lists every wallet across all drivers.
func (c *Client) ListWallets(ctx context.Context) ([]api.Wallet, error) {
	var resp api.ListWalletsResponse
	if err := c.do(ctx, http.MethodGet, api.PathWallets, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Wallets, nil
}

// CreateWallet creates a wallet. An empty driver selects the daemon default
// and a zero master derivation key asks for a random one.
func (c *Client) CreateWallet(ctx context.Context, name, password, driver string, mdk protocol.MasterDerivationKey) (*api.Wallet, error) {
	req := api.CreateWalletRequest{Name: name, Password: password, Driver: driver}
	if !mdk.IsZero() {
		req.MasterDerivationKey = mdk[:]
	}
	var resp api.WalletResponse
	if err := c.do(ctx, http.MethodPost, api.PathWallet, req, &resp); err != nil {
		return nil, err
	}
	return &resp.Wallet, nil
}

// InitHandle unlocks a wallet and returns a handle.
func (c *Client) InitHandle(ctx context.Context, walletID, password string) (*api.HandleResponse, error) {
	var resp api.HandleResponse
	if err := c.do(ctx, http.MethodPost, api.PathWalletInit, api.InitHandleRequest{WalletID: walletID, Password: password}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ReleaseHandle revokes a handle. Releasing an unknown handle succeeds.
func (c *Client) ReleaseHandle(ctx context.Context, handle string) error {
	return c.do(ctx, http.MethodPost, api.PathWalletRelease, api.HandleRequest{Handle: handle}, nil)
}

// RenewHandle extends a handle's lifetime.
func (c *Client) RenewHandle(ctx context.Context, handle string) (*api.HandleResponse, error) {
	var resp api.HandleResponse
	if err := c.do(ctx, http.MethodPost, api.PathWalletRenew, api.HandleRequest{Handle: handle}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RenameWallet renames a wallet.
func (c *Client) RenameWallet(ctx context.Context, walletID, password, newName string) error {
	return c.do(ctx, http.MethodPost, api.PathWalletRename, api.RenameWalletRequest{
		WalletID: walletID,
		Password: password,
		NewName:  newName,
	}, nil)
}

// WalletInfo describes the wallet behind a handle.
func (c *Client) WalletInfo(ctx context.Context, handle string) (*api.WalletInfoResponse, error) {
	var resp api.WalletInfoResponse
	if err := c.do(ctx, http.MethodPost, api.PathWalletInfo, api.HandleRequest{Handle: handle}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ExportMasterDerivationKey exports the wallet's master derivation key.
func (c *Client) ExportMasterDerivationKey(ctx context.Context, handle, password string) (protocol.MasterDerivationKey, error) {
	var resp api.MasterKeyResponse
	if err := c.do(ctx, http.MethodPost, api.PathMasterKey, api.PasswordRequest{Handle: handle, Password: password}, &resp); err != nil {
		return protocol.MasterDerivationKey{}, err
	}
	return protocol.MasterDerivationKeyFromBytes(resp.MasterDerivationKey)
}

// GenerateKey derives the wallet's next key.
func (c *Client) GenerateKey(ctx context.Context, handle string) (*api.KeyResponse, error) {
	var resp api.KeyResponse
	if err := c.do(ctx, http.MethodPost, api.PathKey, api.HandleRequest{Handle: handle}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ImportKey imports a raw ed25519 seed.
func (c *Client) ImportKey(ctx context.Context, handle string, seed protocol.Seed) (*api.KeyResponse, error) {
	var resp api.KeyResponse
	if err := c.do(ctx, http.MethodPost, api.PathKeyImport, api.ImportKeyRequest{Handle: handle, PrivateKey: seed[:]}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ExportKey exports the seed of a key.
func (c *Client) ExportKey(ctx context.Context, handle, password string, addr protocol.Address) (protocol.Seed, error) {
	var resp api.ExportKeyResponse
	req := api.AddressRequest{Handle: handle, Password: password, Address: addr}
	if err := c.do(ctx, http.MethodPost, api.PathKeyExport, req, &resp); err != nil {
		return protocol.Seed{}, err
	}
	return protocol.SeedFromBytes(resp.PrivateKey)
}

// DeleteKey removes a key.
func (c *Client) DeleteKey(ctx context.Context, handle, password string, addr protocol.Address) error {
	return c.do(ctx, http.MethodDelete, api.PathKey, api.AddressRequest{Handle: handle, Password: password, Address: addr}, nil)
}

// ListKeys lists the wallet's key addresses.
func (c *Client) ListKeys(ctx context.Context, handle string) ([]protocol.Address, error) {
	var resp api.AddressesResponse
	if err := c.do(ctx, http.MethodPost, api.PathKeyList, api.HandleRequest{Handle: handle}, &resp); err != nil {
		return nil, err
	}
	return resp.Addresses, nil
}

// ImportMultisig registers a multisig account. Key order is significant.
func (c *Client) ImportMultisig(ctx context.Context, handle string, version, threshold uint8, pks []protocol.PublicKey) (protocol.Address, error) {
	var resp api.AddressResponse
	req := api.ImportMultisigRequest{Handle: handle, Version: version, Threshold: threshold, PublicKeys: pks}
	if err := c.do(ctx, http.MethodPost, api.PathMultisigImport, req, &resp); err != nil {
		return protocol.Address{}, err
	}
	return resp.Address, nil
}

// ExportMultisig returns a multisig account's preimage.
func (c *Client) ExportMultisig(ctx context.Context, handle string, addr protocol.Address) (*api.MultisigResponse, error) {
	var resp api.MultisigResponse
	if err := c.do(ctx, http.MethodPost, api.PathMultisigExport, api.ExportMultisigRequest{Handle: handle, Address: addr}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteMultisig removes a multisig account.
func (c *Client) DeleteMultisig(ctx context.Context, handle, password string, addr protocol.Address) error {
	return c.do(ctx, http.MethodDelete, api.PathMultisig, api.AddressRequest{Handle: handle, Password: password, Address: addr}, nil)
}

// ListMultisig lists the wallet's multisig addresses.
func (c *Client) ListMultisig(ctx context.Context, handle string) ([]protocol.Address, error) {
	var resp api.AddressesResponse
	if err := c.do(ctx, http.MethodPost, api.PathMultisigList, api.HandleRequest{Handle: handle}, &resp); err != nil {
		return nil, err
	}
	return resp.Addresses, nil
}

// SignTransaction signs tx with the key of its sender.
func (c *Client) SignTransaction(ctx context.Context, handle, password string, tx protocol.Transaction) (protocol.SignedTxn, error) {
	var resp api.SignTransactionResponse
	req := api.SignTransactionRequest{Handle: handle, Password: password, Transaction: protocol.Encode(tx)}
	if err := c.do(ctx, http.MethodPost, api.PathTxSign, req, &resp); err != nil {
		return protocol.SignedTxn{}, err
	}
	return protocol.DecodeSignedTxn(resp.SignedTransaction)
}

// SignMultisigTransaction adds the signature of member to a multisig bag
// for tx, merging into partial when one is given.
func (c *Client) SignMultisigTransaction(ctx context.Context, handle, password string, tx protocol.Transaction, member protocol.PublicKey, partial signing.Partial) (protocol.SignedTxn, error) {
	req := api.SignMultisigRequest{
		Handle:      handle,
		Password:    password,
		Transaction: protocol.Encode(tx),
		PublicKey:   member,
	}
	if bag, ok := partial.Get(); ok {
		req.PartialMultisig = bag.Encode()
	}

	var resp api.SignMultisigResponse
	if err := c.do(ctx, http.MethodPost, api.PathMultisigSign, req, &resp); err != nil {
		return protocol.SignedTxn{}, err
	}
	return protocol.DecodeSignedTxn(resp.SignedTransaction)
}
