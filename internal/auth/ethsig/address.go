package ethsig

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// AddressLength is the length of an address in bytes.
const AddressLength = 20

// Address holds the 20 right-most bytes of the Keccak-256 hash of an
// uncompressed secp256k1 public key.
type Address [AddressLength]byte

// keccak256 computes the legacy Keccak-256 digest of the concatenated
// chunks. Ethereum predates the finalized SHA-3 padding, so the
// standard sha3 package constructors do not apply here.
func keccak256(chunks ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, chunk := range chunks {
		h.Write(chunk)
	}
	return h.Sum(nil)
}

// Hex returns the 0x-prefixed mixed-case checksum form of the address.
// Each hex letter is uppercased when the corresponding nibble of the
// Keccak-256 hash of the lowercase hex string has its high bit set.
func (a Address) Hex() string {
	buf := []byte(hex.EncodeToString(a[:]))
	hash := keccak256(buf)
	for i, c := range buf {
		if c >= 'a' && c <= 'f' && hash[i/2]&(1<<(7-4*(i%2))) != 0 {
			buf[i] = c - ('a' - 'A')
		}
	}
	return "0x" + string(buf)
}

// String implements fmt.Stringer and returns the checksum form.
func (a Address) String() string {
	return a.Hex()
}

// ParseAddress parses a 0x-prefixed 40-hex-digit address in any
// casing. Use ParseValidAddress when the casing must also carry a
// valid checksum.
func ParseAddress(s string) (Address, error) {
	var a Address
	if !strings.HasPrefix(s, "0x") {
		return a, fmt.Errorf("%w: missing 0x prefix", ErrInvalidAddress)
	}
	body := s[2:]
	if len(body) != AddressLength*2 {
		return a, fmt.Errorf("%w: expected %d hex digits, got %d", ErrInvalidAddress, AddressLength*2, len(body))
	}
	raw, err := hex.DecodeString(body)
	if err != nil {
		return a, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	copy(a[:], raw)
	return a, nil
}

// ParseValidAddress parses s and requires its casing to match the
// checksum form exactly.
func ParseValidAddress(s string) (Address, error) {
	a, err := ParseAddress(s)
	if err != nil {
		return Address{}, err
	}
	if a.Hex() != s {
		return Address{}, fmt.Errorf("%w: %s", ErrChecksumMismatch, s)
	}
	return a, nil
}

// ChecksumAddress returns the canonical checksum form of s, accepting
// any input casing.
func ChecksumAddress(s string) (string, error) {
	a, err := ParseAddress(s)
	if err != nil {
		return "", err
	}
	return a.Hex(), nil
}

// IsChecksumAddress reports whether s is already in canonical checksum
// form. Unparseable input is reported as false.
func IsChecksumAddress(s string) bool {
	a, err := ParseAddress(s)
	if err != nil {
		return false
	}
	return a.Hex() == s
}
