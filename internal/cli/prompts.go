package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/mrz1836/custodian/internal/config"
	"github.com/mrz1836/custodian/internal/keycrypto"
	custerr "github.com/mrz1836/custodian/pkg/errors"
)

// Prompt hooks, replaced in tests.
//
//nolint:gochecknoglobals // swapped by tests
var (
	promptPasswordFn    = promptPassword
	promptNewPasswordFn = promptNewPassword
	promptConfirmFn     = promptConfirmation
	promptLineFn        = promptLine
)

// promptPassword prompts for a password with hidden input.
// The caller is responsible for zeroing the returned bytes after use.
func promptPassword(prompt string) ([]byte, error) {
	out(os.Stderr, "%s", prompt)

	password, err := term.ReadPassword(int(os.Stdin.Fd())) //nolint:gosec // G115: Fd() fits in int
	outln(os.Stderr)

	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	return password, nil
}

// promptNewPassword prompts for a new wallet password with confirmation.
// The caller is responsible for zeroing the returned bytes after use.
func promptNewPassword() ([]byte, error) {
	password, err := promptPasswordFn("Enter wallet password: ")
	if err != nil {
		return nil, err
	}
	if len(password) == 0 {
		return nil, custerr.ErrEmptyPassword
	}

	confirm, err := promptPasswordFn("Confirm password: ")
	if err != nil {
		keycrypto.ZeroBytes(password)
		return nil, err
	}
	defer keycrypto.ZeroBytes(confirm)

	if string(password) != string(confirm) {
		keycrypto.ZeroBytes(password)
		return nil, custerr.WithSuggestion(custerr.ErrInvalidInput, "passwords do not match")
	}
	return password, nil
}

// promptConfirmation asks a yes/no question, defaulting to no.
func promptConfirmation(question string) bool {
	out(os.Stderr, "%s [y/N]: ", question)

	response, err := promptLineFn()
	if err != nil {
		return false
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}

// promptLine reads one line from stdin.
func promptLine() (string, error) {
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// walletPassword returns the wallet password from the environment, or
// prompts for it.
func walletPassword(prompt string) ([]byte, error) {
	if v, ok := os.LookupEnv(config.EnvWalletPassword); ok {
		return []byte(v), nil
	}
	return promptPasswordFn(prompt)
}

// newWalletPassword is walletPassword for a password being set.
func newWalletPassword() ([]byte, error) {
	if v, ok := os.LookupEnv(config.EnvWalletPassword); ok {
		if v == "" {
			return nil, custerr.ErrEmptyPassword
		}
		return []byte(v), nil
	}
	return promptNewPasswordFn()
}
