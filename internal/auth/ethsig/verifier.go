package ethsig

import (
	"context"
	"fmt"
	"time"

	"github.com/vyrodovalexey/avgwguard/internal/observability"
)

// Verification result labels.
const (
	resultAuthenticated = "authenticated"
	resultRejected      = "rejected"
	resultError         = "error"
)

// VerifyMessageAt checks msg against the instant now. It returns
// (true, nil) when the claim has not expired and the recovered signer
// matches the claimed address, (false, nil) for a clean rejection
// (expired claim or signer mismatch), and (false, err) with one of the
// package sentinels when the claim is malformed.
//
// Checks run in a fixed order: date format, expiry, address format and
// checksum, signature format, recovery. An expired claim is rejected
// before its address or signature is looked at.
func VerifyMessageAt(msg *SignedMessage, now time.Time) (bool, error) {
	validUntil, err := time.Parse(DateLayout, msg.DateMessage)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	if now.After(validUntil) {
		return false, nil
	}

	claimed, err := ParseValidAddress(msg.Address)
	if err != nil {
		return false, err
	}

	sig, err := parseSignature(msg.Signature)
	if err != nil {
		return false, err
	}

	recovered, err := recoverAddress(sig, MessageHash(msg.DateMessage))
	if err != nil {
		return false, err
	}

	return recovered == claimed, nil
}

// Verifier wraps VerifyMessageAt with a clock, structured logging, and
// metrics. The zero options produce a silent verifier on the wall
// clock.
type Verifier struct {
	logger  observability.Logger
	metrics *Metrics
	now     func() time.Time
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithVerifierLogger sets the logger.
func WithVerifierLogger(logger observability.Logger) VerifierOption {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// WithVerifierMetrics sets the metrics recorder.
func WithVerifierMetrics(metrics *Metrics) VerifierOption {
	return func(v *Verifier) {
		v.metrics = metrics
	}
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.now = now
	}
}

// NewVerifier creates a Verifier.
func NewVerifier(opts ...VerifierOption) *Verifier {
	v := &Verifier{
		logger: observability.NopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks msg against the verifier clock and records the
// outcome.
func (v *Verifier) Verify(ctx context.Context, msg *SignedMessage) (bool, error) {
	start := time.Now()
	ok, err := VerifyMessageAt(msg, v.now())

	result := resultAuthenticated
	switch {
	case err != nil:
		result = resultError
	case !ok:
		result = resultRejected
	}
	if v.metrics != nil {
		v.metrics.RecordVerification(result, time.Since(start))
		if err != nil {
			v.metrics.RecordMalformed(FailureReason(err))
		}
	}

	logger := v.logger.WithContext(ctx)
	switch {
	case err != nil:
		logger.Warn("malformed signed message claim",
			observability.String("address", msg.Address),
			observability.String("reason", FailureReason(err)),
			observability.Error(err),
		)
	case !ok:
		logger.Debug("signed message claim rejected",
			observability.String("address", msg.Address),
			observability.String("valid_until", msg.DateMessage),
		)
	default:
		logger.Debug("signed message claim authenticated",
			observability.String("address", msg.Address),
		)
	}

	return ok, err
}
