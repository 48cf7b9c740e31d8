package jwks

import (
	"context"
	"testing"

	"github.com/mydebugger/jwtkit/pkg/jwtkit"
)

func TestPublicKeyPEM_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for _, alg := range []jwtkit.Algorithm{jwtkit.RS256, jwtkit.ES256, jwtkit.ES384, jwtkit.ES512} {
		t.Run(string(alg), func(t *testing.T) {
			kp, err := jwtkit.GenerateKeyPair(alg, 0)
			if err != nil {
				t.Fatalf("GenerateKeyPair failed: %v", err)
			}
			jwk, err := FromPublicKeyPEM(kp.PublicKey, "kid-1", alg)
			if err != nil {
				t.Fatalf("FromPublicKeyPEM failed: %v", err)
			}
			if jwk.Kid != "kid-1" || jwk.Alg != string(alg) || jwk.Use != "sig" {
				t.Errorf("Unexpected JWK metadata %+v", jwk)
			}

			pemKey, err := PublicKeyPEM(jwk)
			if err != nil {
				t.Fatalf("PublicKeyPEM failed: %v", err)
			}
			token, err := jwtkit.Sign(ctx, jwtkit.Header{"alg": string(alg), "kid": "kid-1"}, jwtkit.Claims{"sub": "x"}, jwtkit.KeyMaterial(kp.PrivateKey))
			if err != nil {
				t.Fatalf("Sign failed: %v", err)
			}
			if !jwtkit.Verify(ctx, token, jwtkit.KeyMaterial(pemKey), "") {
				t.Error("Expected token to verify with the converted JWK")
			}
		})
	}
}

func TestPublicKeyPEM_Invalid(t *testing.T) {
	cases := []jwtkit.JWK{
		{Kty: "RSA", Kid: "broken", N: "!!", E: "AQAB"},
		{Kty: "EC", Kid: "no-curve", X: "AA", Y: "AA"},
		{Kty: "oct", Kid: "symmetric"},
	}
	for _, k := range cases {
		if _, err := PublicKeyPEM(k); err == nil {
			t.Errorf("Expected error for %s", k.Kid)
		}
	}
	if _, err := FromPublicKeyPEM("not pem", "k", jwtkit.RS256); err == nil {
		t.Error("Expected error for non-PEM input")
	}
}
