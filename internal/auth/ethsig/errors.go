package ethsig

import "errors"

// Sentinel errors returned for malformed claims. Callers classify
// failures with errors.Is; VerifyMessageAt wraps these with detail so
// the match keeps working.
var (
	// ErrInvalidAddress indicates the address is not a 0x-prefixed
	// string of 40 hex digits.
	ErrInvalidAddress = errors.New("invalid address format")

	// ErrChecksumMismatch indicates the address casing does not match
	// its checksum form.
	ErrChecksumMismatch = errors.New("invalid address checksum")

	// ErrInvalidDate indicates the date message does not parse with
	// DateLayout.
	ErrInvalidDate = errors.New("invalid date message")

	// ErrInvalidSignature indicates the signature is not hex encoding
	// exactly 65 bytes.
	ErrInvalidSignature = errors.New("invalid signature format")

	// ErrCrypto indicates a signing or recovery primitive failed.
	ErrCrypto = errors.New("crypto operation failed")
)

// FailureReason maps a claim validation error to a stable label for
// logs and metrics. It returns an empty string for a nil error.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrChecksumMismatch):
		return "checksum_mismatch"
	case errors.Is(err, ErrInvalidAddress):
		return "invalid_address"
	case errors.Is(err, ErrInvalidDate):
		return "invalid_date"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrCrypto):
		return "crypto_failure"
	default:
		return "unknown"
	}
}
