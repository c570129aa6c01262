// Package ethsig authenticates Ethereum-style signed message claims.
//
// A claim is a SignedMessage: an address, a date message naming the
// instant the claim expires, and a recoverable secp256k1 signature
// over the personal-message digest of the date message. Verification
// recovers the signer from the signature and compares it against the
// claimed address, so no key material is ever stored or distributed
// ahead of time.
//
// # Addresses
//
// Addresses are the usual 20-byte Ethereum account identifiers and are
// always rendered in mixed-case checksum form (EIP-55). Incoming
// claims must carry the checksum casing exactly; ParseAddress accepts
// any casing for callers that only need the raw bytes.
//
// # Usage
//
// Verify an incoming claim:
//
//	verifier := ethsig.NewVerifier(
//	    ethsig.WithVerifierLogger(logger),
//	    ethsig.WithVerifierMetrics(metrics),
//	)
//
//	ok, err := verifier.Verify(ctx, claim)
//	if err != nil {
//	    // Malformed claim: bad address, date, or signature.
//	}
//	if !ok {
//	    // Well-formed but expired or signed by someone else.
//	}
//
// Produce a claim for a client, usually in tooling or tests:
//
//	key, _ := ethsig.PrivateKeyFromHex(secret)
//	claim, _ := ethsig.SignMessage(key, time.Now().Add(time.Hour).Format(ethsig.DateLayout))
//
// Expired claims and signer mismatches are reported as (false, nil);
// only malformed input produces an error, wrapped around one of the
// package sentinels so callers can classify it with errors.Is.
package ethsig
