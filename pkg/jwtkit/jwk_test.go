package jwtkit

import (
	"encoding/json"
	"testing"
)

const sampleJWKS = `{
  "keys": [
    {"kty": "RSA", "kid": "rsa-1", "alg": "RS256", "use": "sig", "n": "0vx7", "e": "AQAB"},
    {"kty": "EC", "kid": "ec-1", "crv": "P-256", "x": "f83O", "y": "x_FE"},
    {"kty": "RSA", "kid": "rsa-1", "n": "dup", "e": "AQAB"}
  ]
}`

func TestFindKey(t *testing.T) {
	var set JWKS
	if err := json.Unmarshal([]byte(sampleJWKS), &set); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	k := FindKey(set.Keys, "ec-1")
	if k == nil || k.Kty != "EC" || k.Crv != "P-256" {
		t.Fatalf("Expected EC key, got %+v", k)
	}

	k = FindKey(set.Keys, "rsa-1")
	if k == nil || k.N != "0vx7" {
		t.Errorf("Expected first matching key, got %+v", k)
	}

	if FindKey(set.Keys, "missing") != nil {
		t.Error("Expected nil for unknown kid")
	}
	if FindKey(set.Keys, "") != nil {
		t.Error("Expected nil for empty kid")
	}
	if FindKey(nil, "rsa-1") != nil {
		t.Error("Expected nil for empty key set")
	}
}

func TestFindKey_ReturnsCopy(t *testing.T) {
	keys := []JWK{{Kty: "RSA", Kid: "a", N: "orig"}}
	k := FindKey(keys, "a")
	k.N = "changed"
	if keys[0].N != "orig" {
		t.Error("FindKey must not expose the caller's slice element")
	}
}

func TestFindKeyForToken(t *testing.T) {
	keys := []JWK{{Kty: "EC", Kid: "key-1"}}
	d := &DecodedToken{Header: Header{"alg": "ES256", "kid": "key-1"}}
	if FindKeyForToken(keys, d) == nil {
		t.Error("Expected key for token kid")
	}
	if FindKeyForToken(keys, &DecodedToken{}) != nil {
		t.Error("Expected nil for token without header")
	}
}
