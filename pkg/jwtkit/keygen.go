package jwtkit

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
)

// DefaultRSABits is the modulus size used when GenerateKeyPair gets 0.
const DefaultRSABits = 2048

// KeyPair holds PEM-armored keys: SPKI public and PKCS#8 private.
type KeyPair struct {
	Alg        Algorithm `json:"alg"`
	PublicKey  string    `json:"publicKey"`
	PrivateKey string    `json:"privateKey"`
}

// GenerateKeyPair creates a fresh RSA or ECDSA key pair suitable for alg.
// rsaBits is ignored for ECDSA.
func GenerateKeyPair(alg Algorithm, rsaBits int) (*KeyPair, error) {
	spec, err := alg.Spec()
	if err != nil {
		return nil, err
	}

	var priv any
	var pub any
	switch spec.Family {
	case FamilyRSA:
		if rsaBits == 0 {
			rsaBits = DefaultRSABits
		}
		if rsaBits < 2048 {
			return nil, fmt.Errorf("%w: RSA keys must be at least 2048 bits, got %d", ErrInvalidKey, rsaBits)
		}
		k, err := rsa.GenerateKey(rand.Reader, rsaBits)
		if err != nil {
			return nil, fmt.Errorf("generate RSA key: %w", err)
		}
		priv, pub = k, &k.PublicKey
	case FamilyECDSA:
		k, err := ecdsa.GenerateKey(spec.Curve, rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generate EC key: %w", err)
		}
		priv, pub = k, &k.PublicKey
	default:
		return nil, fmt.Errorf("key pairs are not used with %s: %w", alg, ErrUnsupportedAlgorithm)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}

	return &KeyPair{
		Alg:        alg,
		PublicKey:  string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})),
		PrivateKey: string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})),
	}, nil
}

// GenerateSecret returns a random hex HMAC secret of n bytes of entropy.
func GenerateSecret(n int) (string, error) {
	if n <= 0 {
		n = 32
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
