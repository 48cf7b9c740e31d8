package jwks

import (
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v4"

	"github.com/mydebugger/jwtkit/pkg/jwtkit"
)

// PublicKeyPEM converts an RSA or EC JWK into SPKI PEM, the key material
// jwtkit.Verify accepts.
func PublicKeyPEM(k jwtkit.JWK) (string, error) {
	raw, err := json.Marshal(k)
	if err != nil {
		return "", fmt.Errorf("failed to encode JWK: %w", err)
	}
	var jwk jose.JSONWebKey
	if err := jwk.UnmarshalJSON(raw); err != nil {
		return "", fmt.Errorf("invalid JWK %q: %w", k.Kid, err)
	}
	if !jwk.Valid() {
		return "", fmt.Errorf("invalid JWK %q", k.Kid)
	}
	pub := jwk.Public()
	if pub.Key == nil {
		return "", errors.New("JWK has no public key")
	}
	der, err := x509.MarshalPKIXPublicKey(pub.Key)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

// FromPublicKeyPEM builds a JWK for a PEM public key, for publishing keys
// produced by jwtkit.GenerateKeyPair.
func FromPublicKeyPEM(publicPEM, kid string, alg jwtkit.Algorithm) (jwtkit.JWK, error) {
	block, _ := pem.Decode([]byte(publicPEM))
	if block == nil {
		return jwtkit.JWK{}, errors.New("no PEM block found")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return jwtkit.JWK{}, fmt.Errorf("failed to parse public key: %w", err)
	}
	raw, err := jose.JSONWebKey{Key: pub, KeyID: kid, Algorithm: string(alg), Use: "sig"}.MarshalJSON()
	if err != nil {
		return jwtkit.JWK{}, fmt.Errorf("failed to encode JWK: %w", err)
	}
	var out jwtkit.JWK
	if err := json.Unmarshal(raw, &out); err != nil {
		return jwtkit.JWK{}, err
	}
	return out, nil
}
