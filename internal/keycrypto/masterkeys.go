package keycrypto

import (
	"fmt"
)

// SealMasterKeys creates a fresh master encryption key, seals it under
// password, and seals mdk under it. It returns both ciphertexts.
func SealMasterKeys(password string, mdk []byte) (encMEK, encMDK []byte, err error) {
	if len(mdk) != MasterKeySize {
		return nil, nil, ErrMasterKeySize
	}
	mek, err := SecureRandomBytes(KeySize)
	if err != nil {
		return nil, nil, fmt.Errorf("generating master encryption key: %w", err)
	}
	defer mek.Destroy()

	encMEK, err = Encrypt(mek.Bytes(), password)
	if err != nil {
		return nil, nil, fmt.Errorf("sealing master encryption key: %w", err)
	}
	encMDK, err = Seal(mdk, mek.Bytes(), PurposeMasterDerivationKey)
	if err != nil {
		return nil, nil, fmt.Errorf("sealing master derivation key: %w", err)
	}
	return encMEK, encMDK, nil
}

// OpenMasterKeys reverses SealMasterKeys. A wrong password yields ErrDecrypt.
func OpenMasterKeys(password string, encMEK, encMDK []byte) (mek, mdk *SecureBytes, err error) {
	mek, err = DecryptSecure(encMEK, password)
	if err != nil {
		return nil, nil, err
	}
	if mek.Len() != KeySize {
		mek.Destroy()
		return nil, nil, fmt.Errorf("%w: master encryption key has %d bytes", ErrDecrypt, mek.Len())
	}

	plain, err := Open(encMDK, mek.Bytes(), PurposeMasterDerivationKey)
	if err != nil {
		mek.Destroy()
		return nil, nil, fmt.Errorf("opening master derivation key: %w", err)
	}
	defer ZeroBytes(plain)

	mdk, err = SecureBytesFromSlice(plain)
	if err != nil {
		mek.Destroy()
		return nil, nil, err
	}
	return mek, mdk, nil
}
