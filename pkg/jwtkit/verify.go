package jwtkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var (
	errPartCount      = errors.New("token must have 3 parts")
	errEmptySignature = errors.New("signature segment is empty")
	errUnsigned       = errors.New(`alg "none" is never verified`)
)

// Verifier checks token signatures through a CryptoProvider.
type Verifier struct {
	provider CryptoProvider
	log      *slog.Logger
}

// NewVerifier creates a Verifier. A nil provider selects GoCrypto and a nil
// logger discards output.
func NewVerifier(provider CryptoProvider, log *slog.Logger) *Verifier {
	if provider == nil {
		provider = GoCrypto{}
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Verifier{provider: provider, log: log}
}

var defaultVerifier = NewVerifier(nil, nil)

// Verify checks token with the default provider. See Verifier.Verify.
func Verify(ctx context.Context, token string, key KeyMaterial, alg string) bool {
	return defaultVerifier.Verify(ctx, token, key, alg)
}

// VerifyDecoded verifies the raw segments of t and records the outcome in
// t.IsValid.
func VerifyDecoded(ctx context.Context, t *DecodedToken, key KeyMaterial, alg string) bool {
	return defaultVerifier.VerifyDecoded(ctx, t, key, alg)
}

// Verify reports whether token carries a valid signature for key. An empty
// alg means the header's "alg" is used. Every failure, including a malformed
// token, an unsupported algorithm, an unusable key and alg "none", yields
// false.
func (v *Verifier) Verify(ctx context.Context, token string, key KeyMaterial, alg string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			v.log.Debug("Verification panicked", "panic", r)
			ok = false
		}
	}()

	ok, err := v.verify(ctx, token, key, alg)
	if err != nil {
		v.log.Debug("Verification failed", "alg", alg, "error", err)
		return false
	}
	return ok
}

// VerifyDecoded verifies a token previously produced by Decode and sets
// t.IsValid to the result. Tokens the decoder rejected as empty or without
// exactly three parts never verify.
func (v *Verifier) VerifyDecoded(ctx context.Context, t *DecodedToken, key KeyMaterial, alg string) bool {
	if t == nil {
		return false
	}
	if t.HasDiagnostic(CodeEmptyToken) || t.HasDiagnostic(CodeInvalidFormat) {
		v.log.Debug("Verification failed", "alg", alg, "error", errPartCount)
		t.IsValid = false
		return false
	}
	token := t.Raw.Header + "." + t.Raw.Payload + "." + t.Raw.Signature
	t.IsValid = v.Verify(ctx, token, key, alg)
	return t.IsValid
}

func (v *Verifier) verify(ctx context.Context, token string, key KeyMaterial, alg string) (bool, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false, errPartCount
	}

	name := alg
	if name == "" {
		var header Header
		if err := decodeJSONSegment(parts[0], &header); err != nil {
			return false, fmt.Errorf("read header: %w", err)
		}
		if name = header.Alg(); name == "" {
			return false, ErrMissingAlgorithm
		}
	}
	if name == string(None) {
		return false, errUnsigned
	}

	a, err := ParseAlgorithm(name)
	if err != nil {
		return false, err
	}
	spec, err := a.Spec()
	if err != nil {
		return false, err
	}

	if parts[2] == "" {
		return false, errEmptySignature
	}
	sig, err := DecodeSegment(parts[2])
	if err != nil {
		return false, fmt.Errorf("signature: %w", err)
	}

	format, data, err := prepareKey(key, spec, UsageVerify)
	if err != nil {
		return false, err
	}
	ck, err := v.provider.ImportKey(ctx, format, data, spec, UsageVerify)
	if err != nil {
		return false, fmt.Errorf("import key: %w", err)
	}
	return v.provider.Verify(ctx, spec, ck, sig, []byte(parts[0]+"."+parts[1]))
}
