package jwtkit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
)

// Signer produces compact tokens through a CryptoProvider.
type Signer struct {
	provider CryptoProvider
	log      *slog.Logger
}

// NewSigner creates a Signer. A nil provider selects GoCrypto and a nil
// logger discards output.
func NewSigner(provider CryptoProvider, log *slog.Logger) *Signer {
	if provider == nil {
		provider = GoCrypto{}
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Signer{provider: provider, log: log}
}

var defaultSigner = NewSigner(nil, nil)

// Sign builds a token with the default provider. See Signer.Sign.
func Sign(ctx context.Context, header Header, claims Claims, key KeyMaterial) (string, error) {
	return defaultSigner.Sign(ctx, header, claims, key)
}

// Sign encodes header and claims and signs them with key. "typ" defaults to
// "JWT". An "alg" of "none" yields an unsigned token with a trailing dot.
// Failures are returned as *SigningError.
func (s *Signer) Sign(ctx context.Context, header Header, claims Claims, key KeyMaterial) (string, error) {
	h := make(Header, len(header)+1)
	for k, v := range header {
		h[k] = v
	}
	if !h.Has("typ") {
		h["typ"] = "JWT"
	}

	name := h.Alg()
	if name == "" {
		return "", &SigningError{Op: "algorithm", Err: ErrMissingAlgorithm}
	}
	a, err := ParseAlgorithm(name)
	if err != nil {
		return "", &SigningError{Alg: name, Op: "algorithm", Err: err}
	}

	if claims == nil {
		claims = Claims{}
	}
	headerSeg, err := encodeJSONSegment(h)
	if err != nil {
		return "", &SigningError{Alg: name, Op: "encode", Err: err}
	}
	payloadSeg, err := encodeJSONSegment(claims)
	if err != nil {
		return "", &SigningError{Alg: name, Op: "encode", Err: err}
	}
	signingInput := headerSeg + "." + payloadSeg

	if a == None {
		return signingInput + ".", nil
	}

	spec, err := a.Spec()
	if err != nil {
		return "", &SigningError{Alg: name, Op: "algorithm", Err: err}
	}
	format, data, err := prepareKey(key, spec, UsageSign)
	if err != nil {
		return "", &SigningError{Alg: name, Op: "import", Err: err}
	}
	ck, err := s.provider.ImportKey(ctx, format, data, spec, UsageSign)
	if err != nil {
		return "", &SigningError{Alg: name, Op: "import", Err: err}
	}
	sig, err := s.provider.Sign(ctx, spec, ck, []byte(signingInput))
	if err != nil {
		return "", &SigningError{Alg: name, Op: "sign", Err: err}
	}

	s.log.Debug("Token signed", "alg", name, "bytes", len(sig))
	return signingInput + "." + EncodeSegment(sig), nil
}

// encodeJSONSegment marshals v without HTML escaping and base64url-encodes it.
func encodeJSONSegment(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return EncodeSegment(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
