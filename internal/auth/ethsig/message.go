package ethsig

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// DateLayout is the reference layout for claim expiry timestamps, for
// example "2025-06-01 12:00:00 +0000".
const DateLayout = "2006-01-02 15:04:05 -0700"

// signedMessagePrefix is bound into every digest so a signed claim can
// never double as a signed transaction.
const signedMessagePrefix = "\x19Ethereum Signed Message:\n"

// signatureLength is the serialized size of a recoverable signature:
// r (32 bytes), s (32 bytes), recovery id (1 byte).
const signatureLength = 65

// privateKeyLength is the serialized size of a secp256k1 secret key.
const privateKeyLength = 32

// SignedMessage is a time-boxed authentication claim. The holder of
// the key behind Address signs DateMessage; once that instant passes
// the claim is void and verification reports it as unauthenticated.
type SignedMessage struct {
	Address     string `json:"address"`
	DateMessage string `json:"date_message"`
	Signature   string `json:"signature"`
}

// MessageHash computes the personal-message digest of msg. The decimal
// byte length of msg sits between the prefix and the payload with no
// separator, so equal-prefix messages of different lengths never
// collide.
func MessageHash(msg string) []byte {
	return keccak256([]byte(signedMessagePrefix), []byte(strconv.Itoa(len(msg))), []byte(msg))
}

// SignMessage signs dateMessage with key and returns a claim carrying
// the canonical signer address and the 0x-prefixed 130-hex-digit
// signature.
func SignMessage(key *secp256k1.PrivateKey, dateMessage string) (*SignedMessage, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: nil private key", ErrCrypto)
	}

	// SignCompact produces [v+27] || r || s. The wire format wants
	// r || s || v with v in {0, 1}.
	compact := secpecdsa.SignCompact(key, MessageHash(dateMessage), false)
	sig := make([]byte, signatureLength)
	copy(sig, compact[1:])
	sig[signatureLength-1] = compact[0] - 27

	return &SignedMessage{
		Address:     PublicKeyAddress(key.PubKey()).Hex(),
		DateMessage: dateMessage,
		Signature:   "0x" + hex.EncodeToString(sig),
	}, nil
}

// PublicKeyAddress derives the address of pub: the last 20 bytes of
// the Keccak-256 hash of the uncompressed point without its 0x04 tag.
func PublicKeyAddress(pub *secp256k1.PublicKey) Address {
	var a Address
	hash := keccak256(pub.SerializeUncompressed()[1:])
	copy(a[:], hash[len(hash)-AddressLength:])
	return a
}

// PrivateKeyFromHex parses a hex-encoded 32-byte secret key. A leading
// 0x prefix is accepted.
func PrivateKeyFromHex(s string) (*secp256k1.PrivateKey, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	if len(raw) != privateKeyLength {
		return nil, fmt.Errorf("%w: secret key must be %d bytes, got %d", ErrCrypto, privateKeyLength, len(raw))
	}
	return secp256k1.PrivKeyFromBytes(raw), nil
}

// parseSignature decodes a claim signature: an optional 0x prefix
// followed by hex for exactly 65 bytes.
func parseSignature(s string) ([]byte, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if len(sig) != signatureLength {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSignature, signatureLength, len(sig))
	}
	return sig, nil
}

// recoverAddress recovers the signer address of hash from a wire
// format signature. Recovery ids above 3 are rejected rather than
// normalized, so legacy v values of 27 and 28 must be rewritten by the
// caller before they reach this package.
func recoverAddress(sig, hash []byte) (Address, error) {
	v := sig[signatureLength-1]
	if v > 3 {
		return Address{}, fmt.Errorf("%w: recovery id %d out of range", ErrCrypto, v)
	}

	// RecoverCompact expects the recovery flag first: [v+27] || r || s.
	compact := make([]byte, signatureLength)
	compact[0] = v + 27
	copy(compact[1:], sig[:signatureLength-1])

	pub, _, err := secpecdsa.RecoverCompact(compact, hash)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	return PublicKeyAddress(pub), nil
}
