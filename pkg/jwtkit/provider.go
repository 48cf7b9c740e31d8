package jwtkit

import (
	"context"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// KeyFormat is the encoding handed to CryptoProvider.ImportKey.
type KeyFormat string

const (
	FormatRaw   KeyFormat = "raw"
	FormatSPKI  KeyFormat = "spki"
	FormatPKCS8 KeyFormat = "pkcs8"
)

// KeyUsage is the operation an imported key will be used for.
type KeyUsage string

const (
	UsageSign   KeyUsage = "sign"
	UsageVerify KeyUsage = "verify"
)

// CryptoKey is an imported, provider-specific key handle.
type CryptoKey any

// CryptoProvider supplies the hash, HMAC, RSA and ECDSA primitives. The
// engine never implements them itself.
type CryptoProvider interface {
	ImportKey(ctx context.Context, format KeyFormat, data []byte, spec AlgorithmSpec, usage KeyUsage) (CryptoKey, error)
	Sign(ctx context.Context, spec AlgorithmSpec, key CryptoKey, data []byte) ([]byte, error)
	// Verify returns false with a nil error for a well-formed signature that
	// does not match.
	Verify(ctx context.Context, spec AlgorithmSpec, key CryptoKey, signature, data []byte) (bool, error)
}

// GoCrypto is the default CryptoProvider. Keys are parsed with crypto/x509 and
// the primitives are the golang-jwt signing methods.
type GoCrypto struct{}

var _ CryptoProvider = GoCrypto{}

// ImportKey parses key bytes for the given algorithm family.
func (GoCrypto) ImportKey(ctx context.Context, format KeyFormat, data []byte, spec AlgorithmSpec, usage KeyUsage) (CryptoKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch spec.Family {
	case FamilyHMAC:
		if format != FormatRaw {
			return nil, fmt.Errorf("%w: HMAC keys must be raw, got %s", ErrInvalidKey, format)
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("%w: empty HMAC secret", ErrInvalidKey)
		}
		return append([]byte(nil), data...), nil
	case FamilyRSA, FamilyECDSA:
		return importAsymmetric(format, data, spec, usage)
	default:
		return nil, &UnsupportedAlgorithmError{Alg: string(spec.Alg)}
	}
}

func importAsymmetric(format KeyFormat, data []byte, spec AlgorithmSpec, usage KeyUsage) (CryptoKey, error) {
	var parsed any
	var err error
	switch format {
	case FormatSPKI:
		if usage == UsageSign {
			return nil, fmt.Errorf("%w: signing requires a private key", ErrInvalidKey)
		}
		parsed, err = parsePublicDER(data)
	case FormatPKCS8:
		parsed, err = parsePrivateDER(data)
	default:
		return nil, fmt.Errorf("%w: unsupported key format %s for %s", ErrInvalidKey, format, spec.Alg)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	if usage == UsageVerify {
		switch k := parsed.(type) {
		case *rsa.PrivateKey:
			parsed = &k.PublicKey
		case *ecdsa.PrivateKey:
			parsed = &k.PublicKey
		}
	}

	switch k := parsed.(type) {
	case *rsa.PublicKey, *rsa.PrivateKey:
		if spec.Family != FamilyRSA {
			return nil, fmt.Errorf("%w: RSA key cannot be used with %s", ErrInvalidKey, spec.Alg)
		}
	case *ecdsa.PublicKey:
		if err := checkCurve(k.Curve.Params().Name, spec); err != nil {
			return nil, err
		}
	case *ecdsa.PrivateKey:
		if err := checkCurve(k.Curve.Params().Name, spec); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unsupported key type %T", ErrInvalidKey, parsed)
	}
	return parsed, nil
}

func checkCurve(name string, spec AlgorithmSpec) error {
	if spec.Family != FamilyECDSA {
		return fmt.Errorf("%w: EC key cannot be used with %s", ErrInvalidKey, spec.Alg)
	}
	if name != spec.CurveName() {
		return fmt.Errorf("%w: %s requires curve %s, key uses %s", ErrInvalidKey, spec.Alg, spec.CurveName(), name)
	}
	return nil
}

func parsePublicDER(der []byte) (any, error) {
	if pub, err := x509.ParsePKIXPublicKey(der); err == nil {
		return pub, nil
	}
	if pub, err := x509.ParsePKCS1PublicKey(der); err == nil {
		return pub, nil
	}
	if cert, err := x509.ParseCertificate(der); err == nil {
		return cert.PublicKey, nil
	}
	return nil, errors.New("not an SPKI, PKCS#1 or X.509 public key")
}

func parsePrivateDER(der []byte) (any, error) {
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	return nil, errors.New("not a PKCS#8, PKCS#1 or SEC 1 private key")
}

// Sign produces a raw JWS signature over data.
func (GoCrypto) Sign(ctx context.Context, spec AlgorithmSpec, key CryptoKey, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	method, err := signingMethod(spec)
	if err != nil {
		return nil, err
	}
	return method.Sign(string(data), key)
}

// Verify checks a raw JWS signature over data.
func (GoCrypto) Verify(ctx context.Context, spec AlgorithmSpec, key CryptoKey, signature, data []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	method, err := signingMethod(spec)
	if err != nil {
		return false, err
	}
	err = method.Verify(string(data), signature, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, jwt.ErrSignatureInvalid),
		errors.Is(err, jwt.ErrECDSAVerification),
		errors.Is(err, rsa.ErrVerification):
		return false, nil
	default:
		return false, err
	}
}

func signingMethod(spec AlgorithmSpec) (jwt.SigningMethod, error) {
	if spec.Family == FamilyNone {
		return nil, fmt.Errorf("%w: alg none has no signature primitive", ErrUnsupportedAlgorithm)
	}
	method := jwt.GetSigningMethod(string(spec.Alg))
	if method == nil {
		return nil, &UnsupportedAlgorithmError{Alg: string(spec.Alg)}
	}
	return method, nil
}
