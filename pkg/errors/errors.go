// Package errors provides structured error handling for custodian.
// Every error carries a Kind from the custody taxonomy (authentication,
// not found, validation, conflict, transport) plus a finer machine-readable
// Code, and maps onto CLI exit codes and HTTP status codes.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
)

// Exit codes.
const (
	ExitSuccess   = 0 // Successful execution
	ExitGeneral   = 1 // General/unknown error
	ExitInput     = 2 // Invalid input
	ExitAuth      = 3 // Authentication failed
	ExitNotFound  = 4 // Resource not found
	ExitConflict  = 5 // Resource already exists or signature slot conflict
	ExitTransport = 6 // Daemon unreachable
)

// Kind is the coarse error category shared by the daemon and its clients.
type Kind string

// Error kinds.
const (
	KindGeneral        Kind = "GENERAL_ERROR"
	KindAuthentication Kind = "AUTHENTICATION_FAILED"
	KindNotFound       Kind = "NOT_FOUND"
	KindValidation     Kind = "VALIDATION_FAILED"
	KindConflict       Kind = "CONFLICT"
	KindTransport      Kind = "TRANSPORT_ERROR"
)

// ExitCode returns the CLI exit code for the kind.
func (k Kind) ExitCode() int {
	switch k {
	case KindAuthentication:
		return ExitAuth
	case KindNotFound:
		return ExitNotFound
	case KindValidation:
		return ExitInput
	case KindConflict:
		return ExitConflict
	case KindTransport:
		return ExitTransport
	case KindGeneral:
		return ExitGeneral
	}
	return ExitGeneral
}

// HTTPStatus returns the HTTP status code the daemon answers with for the kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindTransport:
		return http.StatusBadGateway
	case KindGeneral:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// CustodianError is the structured error type for custodian.
type CustodianError struct {
	Code       string            // Machine-readable error code
	Kind       Kind              // Taxonomy category
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *CustodianError) Error() string {
	msg := e.Message

	// Include details in error message (sorted for deterministic output)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *CustodianError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for CustodianError. A target whose code equals its
// kind (ErrAuthentication, ErrNotFound, ...) matches every error of that kind.
func (e *CustodianError) Is(target error) bool {
	var t *CustodianError
	if !errors.As(target, &t) {
		return false
	}
	if e.Code == t.Code {
		return true
	}
	return t.Code == string(t.Kind) && e.Kind == t.Kind
}

func newSentinel(kind Kind, code, message string) *CustodianError {
	return &CustodianError{
		Code:     code,
		Kind:     kind,
		Message:  message,
		ExitCode: kind.ExitCode(),
	}
}

// Kind sentinels.
var (
	ErrGeneral        = newSentinel(KindGeneral, string(KindGeneral), "an error occurred")
	ErrAuthentication = newSentinel(KindAuthentication, string(KindAuthentication), "authentication failed")
	ErrNotFound       = newSentinel(KindNotFound, string(KindNotFound), "resource not found")
	ErrValidation     = newSentinel(KindValidation, string(KindValidation), "validation failed")
	ErrConflict       = newSentinel(KindConflict, string(KindConflict), "conflict")
	ErrTransport      = newSentinel(KindTransport, string(KindTransport), "daemon communication failed")
)

// Authentication errors.
var (
	ErrWrongPassword  = newSentinel(KindAuthentication, "WRONG_PASSWORD", "wrong wallet password")
	ErrInvalidHandle  = newSentinel(KindAuthentication, "INVALID_HANDLE", "wallet handle is invalid, expired or released")
	ErrInvalidAPIKey  = newSentinel(KindAuthentication, "INVALID_API_TOKEN", "missing or invalid API token")
	ErrUnknownWallet  = newSentinel(KindAuthentication, "UNKNOWN_WALLET", "wallet id not recognized")
	ErrRateLimited    = newSentinel(KindAuthentication, "RATE_LIMITED", "too many requests")
	ErrDecryptionFail = newSentinel(KindAuthentication, "DECRYPTION_FAILED", "decryption failed - wrong password or corrupted data")
)

// Not found errors.
var (
	ErrWalletNotFound   = newSentinel(KindNotFound, "WALLET_NOT_FOUND", "wallet not found")
	ErrKeyNotFound      = newSentinel(KindNotFound, "KEY_NOT_FOUND", "key not found in wallet")
	ErrMultisigNotFound = newSentinel(KindNotFound, "MULTISIG_NOT_FOUND", "multisig account not found in wallet")
	ErrConfigNotFound   = newSentinel(KindNotFound, "CONFIG_NOT_FOUND", "configuration file not found")
)

// Validation errors.
var (
	ErrInvalidInput        = newSentinel(KindValidation, "INVALID_INPUT", "invalid input")
	ErrInvalidWalletName   = newSentinel(KindValidation, "INVALID_WALLET_NAME", "invalid wallet name")
	ErrEmptyPassword       = newSentinel(KindValidation, "EMPTY_PASSWORD", "password must not be empty")
	ErrUnknownDriver       = newSentinel(KindValidation, "UNKNOWN_DRIVER", "unknown storage driver")
	ErrInvalidAddress      = newSentinel(KindValidation, "INVALID_ADDRESS", "invalid address format")
	ErrInvalidChecksum     = newSentinel(KindValidation, "INVALID_CHECKSUM", "invalid address checksum")
	ErrInvalidPublicKey    = newSentinel(KindValidation, "INVALID_PUBLIC_KEY", "invalid public key")
	ErrInvalidSeed         = newSentinel(KindValidation, "INVALID_SEED", "invalid key seed")
	ErrInvalidMnemonic     = newSentinel(KindValidation, "INVALID_MNEMONIC", "invalid mnemonic phrase")
	ErrInvalidShare        = newSentinel(KindValidation, "INVALID_SHARE", "invalid or insufficient key shares")
	ErrInvalidThreshold    = newSentinel(KindValidation, "INVALID_THRESHOLD", "threshold must be between 1 and the number of public keys")
	ErrUnsupportedVersion  = newSentinel(KindValidation, "UNSUPPORTED_VERSION", "unsupported multisig version")
	ErrInvalidTransaction  = newSentinel(KindValidation, "INVALID_TRANSACTION", "invalid transaction")
	ErrNotMultisigMember   = newSentinel(KindValidation, "NOT_MULTISIG_MEMBER", "public key is not a member of the multisig account")
	ErrPartialMismatch     = newSentinel(KindValidation, "PARTIAL_MISMATCH", "partial multisig does not match the sender account")
	ErrInvalidSignature    = newSentinel(KindValidation, "INVALID_SIGNATURE", "signature does not verify")
	ErrConfigInvalid       = newSentinel(KindValidation, "CONFIG_INVALID", "configuration is invalid")
	ErrUnknownConfigKey    = newSentinel(KindValidation, "UNKNOWN_CONFIG_KEY", "unknown config key")
	ErrInvalidClientConfig = newSentinel(KindValidation, "INVALID_CLIENT_CONFIG", "invalid client configuration")
)

// Conflict errors.
var (
	ErrWalletExists = newSentinel(KindConflict, "WALLET_EXISTS", "a wallet with this name already exists")
	ErrKeyExists    = newSentinel(KindConflict, "KEY_EXISTS", "key already exists in wallet")
	ErrSlotConflict = newSentinel(KindConflict, "SIGNATURE_SLOT_CONFLICT", "different signatures for the same multisig slot")
)

// General errors.
var (
	ErrTampered = newSentinel(KindGeneral, "DATA_TAMPERED", "stored key material does not match its address")
)

// New creates a new CustodianError with the given code and message.
func New(code, message string) *CustodianError {
	return &CustodianError{
		Code:     code,
		Kind:     KindGeneral,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// FromWire rebuilds an error received from the daemon. Unknown kinds fall
// back to KindGeneral.
func FromWire(kind, code, message string) *CustodianError {
	k := Kind(kind)
	switch k {
	case KindAuthentication, KindNotFound, KindValidation, KindConflict, KindTransport, KindGeneral:
	default:
		k = KindGeneral
	}
	if code == "" {
		code = string(k)
	}
	return &CustodianError{
		Code:     code,
		Kind:     k,
		Message:  message,
		ExitCode: k.ExitCode(),
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var ce *CustodianError
	if errors.As(err, &ce) {
		return &CustodianError{
			Code:       ce.Code,
			Kind:       ce.Kind,
			Message:    fmt.Sprintf("%s: %s", msg, ce.Message),
			Details:    ce.Details,
			Suggestion: ce.Suggestion,
			Cause:      err,
			ExitCode:   ce.ExitCode,
		}
	}

	return &CustodianError{
		Code:     string(KindGeneral),
		Kind:     KindGeneral,
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var ce *CustodianError
	if errors.As(err, &ce) {
		return &CustodianError{
			Code:       ce.Code,
			Kind:       ce.Kind,
			Message:    ce.Message,
			Details:    details,
			Suggestion: ce.Suggestion,
			Cause:      ce.Cause,
			ExitCode:   ce.ExitCode,
		}
	}

	return &CustodianError{
		Code:     string(KindGeneral),
		Kind:     KindGeneral,
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var ce *CustodianError
	if errors.As(err, &ce) {
		return &CustodianError{
			Code:       ce.Code,
			Kind:       ce.Kind,
			Message:    ce.Message,
			Details:    ce.Details,
			Suggestion: suggestion,
			Cause:      ce.Cause,
			ExitCode:   ce.ExitCode,
		}
	}

	return &CustodianError{
		Code:       string(KindGeneral),
		Kind:       KindGeneral,
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var ce *CustodianError
	if errors.As(err, &ce) {
		return ce.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var ce *CustodianError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return string(KindGeneral)
}

// KindOf returns the taxonomy kind of an error.
func KindOf(err error) Kind {
	var ce *CustodianError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindGeneral
}

// HTTPStatus returns the HTTP status code for an error.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return KindOf(err).HTTPStatus()
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
