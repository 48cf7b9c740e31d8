package jwtkit

import (
	"bytes"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"strings"
)

// KeyMaterial is the key text a caller supplies. For HMAC algorithms it is
// the raw secret. For RSA and ECDSA it is either a PEM block or the
// base64-encoded DER body (SPKI for verification, PKCS#8 for signing).
type KeyMaterial []byte

// prepareKey turns caller key material into the format and bytes handed to
// CryptoProvider.ImportKey.
func prepareKey(key KeyMaterial, spec AlgorithmSpec, usage KeyUsage) (KeyFormat, []byte, error) {
	if spec.Family == FamilyHMAC {
		return FormatRaw, []byte(key), nil
	}

	trimmed := bytes.TrimSpace(key)
	if len(trimmed) == 0 {
		return "", nil, fmt.Errorf("%w: empty key", ErrInvalidKey)
	}

	if block, _ := pem.Decode(trimmed); block != nil {
		switch {
		case strings.Contains(block.Type, "PRIVATE KEY"):
			return FormatPKCS8, block.Bytes, nil
		case block.Type == "CERTIFICATE":
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return "", nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
			}
			return FormatSPKI, cert.RawSubjectPublicKeyInfo, nil
		case strings.Contains(block.Type, "PUBLIC KEY"):
			return FormatSPKI, block.Bytes, nil
		default:
			return "", nil, fmt.Errorf("%w: unexpected PEM block %q", ErrInvalidKey, block.Type)
		}
	}

	der, err := base64.StdEncoding.DecodeString(stripWhitespace(string(trimmed)))
	if err != nil {
		return "", nil, fmt.Errorf("%w: key is neither PEM nor base64 DER", ErrInvalidKey)
	}
	if usage == UsageSign {
		return FormatPKCS8, der, nil
	}
	return FormatSPKI, der, nil
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)
}
