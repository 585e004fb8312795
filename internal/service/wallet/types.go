package wallet

import (
	"time"

	"github.com/mrz1836/custodian/internal/protocol"
)

// CreateRequest contains parameters for creating a wallet.
type CreateRequest struct {
	Name     string
	Password []byte

	// Driver selects the storage backend; empty means the default driver.
	Driver string

	// MasterDerivationKey seeds key generation. The zero value asks the
	// store to generate a random one.
	MasterDerivationKey protocol.MasterDerivationKey
}

// Summary describes a wallet without any key material.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Driver    string    `json:"driver"`
	CreatedAt time.Time `json:"created_at"`
}

// Info describes the wallet behind a handle and the handle's expiry.
type Info struct {
	Wallet    Summary   `json:"wallet"`
	ExpiresAt time.Time `json:"expires_at"`
}
