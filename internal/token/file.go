package token

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mrz1836/custodian/internal/fileutil"
)

const tokenFilePermissions = 0o600

// LoadOrCreate reads the API token stored at path, or generates and writes a
// new one when the file does not exist. created reports which happened.
func LoadOrCreate(path string) (tok string, created bool, err error) {
	tok, err = Load(path)
	if err == nil {
		return tok, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", false, err
	}

	tok, err = Generate(APIPrefix)
	if err != nil {
		return "", false, err
	}
	if err := fileutil.WriteAtomic(path, []byte(tok+"\n"), tokenFilePermissions); err != nil {
		return "", false, fmt.Errorf("writing token file: %w", err)
	}
	return tok, true, nil
}

// Load reads an API token file.
func Load(path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from daemon home
	if err != nil {
		return "", err
	}
	tok := strings.TrimSpace(string(data))
	if _, err := Parse(APIPrefix, tok); err != nil {
		return "", fmt.Errorf("token file %s: %w", path, err)
	}
	return tok, nil
}
