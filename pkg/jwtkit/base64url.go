package jwtkit

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Base64URLEncode encodes the UTF-8 bytes of s as unpadded base64url.
func Base64URLEncode(s string) string {
	return EncodeSegment([]byte(s))
}

// Base64URLDecode reverses Base64URLEncode. It fails with a *DecodeError when
// s contains characters outside the base64url alphabet or its length leaves a
// remainder of 1 modulo 4.
func Base64URLDecode(s string) (string, error) {
	b, err := DecodeSegment(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// EncodeSegment encodes raw bytes as an unpadded base64url JWT segment.
func EncodeSegment(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeSegment decodes a base64url JWT segment. Trailing "=" padding is
// accepted when the padded length is a multiple of 4.
func DecodeSegment(s string) ([]byte, error) {
	in := s
	if n := len(s) - len(strings.TrimRight(s, "=")); n > 0 {
		if n > 2 || len(s)%4 != 0 {
			return nil, &DecodeError{Input: in, Reason: "invalid padding"}
		}
		s = s[:len(s)-n]
	}
	for i := 0; i < len(s); i++ {
		if !isBase64URLChar(s[i]) {
			return nil, &DecodeError{Input: in, Reason: fmt.Sprintf("invalid character %q at offset %d", s[i], i)}
		}
	}
	if len(s)%4 == 1 {
		return nil, &DecodeError{Input: in, Reason: "invalid length"}
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, &DecodeError{Input: in, Reason: err.Error()}
	}
	return b, nil
}

func isBase64URLChar(c byte) bool {
	return (c >= 'A' && c <= 'Z') ||
		(c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_'
}
