package jwtkit

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestVerify_MockProvider(t *testing.T) {
	sig, err := DecodeSegment("valid-signature")
	if err != nil {
		t.Fatalf("DecodeSegment failed: %v", err)
	}
	provider := &mockProvider{signature: sig}
	v := NewVerifier(provider, nil)
	ctx := context.Background()

	if !v.Verify(ctx, "h.p.valid-signature", KeyMaterial("secret"), "HS256") {
		t.Error("Expected mock signature to verify")
	}
	if v.Verify(ctx, "h.p.other-signature", KeyMaterial("secret"), "HS256") {
		t.Error("Expected mismatched signature to fail")
	}
	if len(provider.imports) == 0 || provider.imports[0] != FormatRaw {
		t.Errorf("Expected raw key import for HMAC, got %v", provider.imports)
	}
}

func TestVerify_ProviderFailuresAreFalse(t *testing.T) {
	ctx := context.Background()

	failing := NewVerifier(&mockProvider{importErr: errors.New("boom")}, nil)
	if failing.Verify(ctx, "h.p.sig", KeyMaterial("secret"), "HS256") {
		t.Error("Expected import error to yield false")
	}

	panicking := NewVerifier(&mockProvider{panicOnUse: true}, nil)
	if panicking.Verify(ctx, "h.p.sig", KeyMaterial("secret"), "HS256") {
		t.Error("Expected provider panic to yield false")
	}
}

func TestVerify_HS256(t *testing.T) {
	ctx := context.Background()
	if !Verify(ctx, validJWT, KeyMaterial(validJWTSecret), "") {
		t.Error("Expected jwt.io sample to verify with its secret")
	}
	if !Verify(ctx, validJWT, KeyMaterial(validJWTSecret), "HS256") {
		t.Error("Expected explicit HS256 to verify")
	}
	if Verify(ctx, validJWT, KeyMaterial("wrong-secret"), "") {
		t.Error("Expected wrong secret to fail")
	}
	if Verify(ctx, validJWT, KeyMaterial(validJWTSecret), "HS512") {
		t.Error("Expected algorithm override mismatch to fail")
	}
}

func TestVerify_AlwaysFalse(t *testing.T) {
	ctx := context.Background()
	parts := strings.Split(validJWT, ".")
	noneHeader := Base64URLEncode(`{"alg":"none","typ":"JWT"}`)
	psHeader := Base64URLEncode(`{"alg":"PS256","typ":"JWT"}`)

	tests := []struct {
		name  string
		token string
		alg   string
	}{
		{"empty signature", parts[0] + "." + parts[1] + ".", ""},
		{"alg none in header", noneHeader + "." + parts[1] + "." + parts[2], ""},
		{"alg none override", validJWT, "none"},
		{"two parts", parts[0] + "." + parts[1], ""},
		{"four parts", validJWT + ".extra", ""},
		{"empty token", "", ""},
		{"unsupported alg", psHeader + "." + parts[1] + "." + parts[2], ""},
		{"unknown override", validJWT, "HS1024"},
		{"garbage header", "!!!." + parts[1] + "." + parts[2], ""},
		{"bad signature encoding", parts[0] + "." + parts[1] + ".a", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if Verify(ctx, tt.token, KeyMaterial(validJWTSecret), tt.alg) {
				t.Errorf("Expected false for %s", tt.name)
			}
		})
	}
}

func TestVerify_Asymmetric(t *testing.T) {
	ctx := context.Background()
	for _, alg := range []Algorithm{RS256, RS384, RS512, ES256, ES384, ES512} {
		t.Run(string(alg), func(t *testing.T) {
			kp := GenerateTestKeyPair(t, alg, "kid-"+string(alg))
			other := GenerateTestKeyPair(t, alg, "other")
			token := NewTokenBuilder(t, alg, kp.Private).WithHeader("kid", kp.Kid).Build()

			if !Verify(ctx, token, KeyMaterial(kp.PublicPEM), "") {
				t.Fatal("Expected golang-jwt token to verify with matching public key")
			}
			if Verify(ctx, token, KeyMaterial(other.PublicPEM), "") {
				t.Error("Expected verification with a different key to fail")
			}

			// bare base64 DER body, as pasted from a PEM without armor
			body := strings.Join(strings.Split(kp.PublicPEM, "\n")[1:], "\n")
			body = strings.Split(body, "-----END")[0]
			if !Verify(ctx, token, KeyMaterial(body), "") {
				t.Error("Expected base64 DER public key to verify")
			}

			// a private key is accepted for verification
			if !Verify(ctx, token, KeyMaterial(kp.PrivatePEM), "") {
				t.Error("Expected private key PEM to verify")
			}

			tampered := token[:len(token)-4] + "AAAA"
			if Verify(ctx, tampered, KeyMaterial(kp.PublicPEM), "") {
				t.Error("Expected tampered signature to fail")
			}
		})
	}
}

func TestVerify_CurveMismatch(t *testing.T) {
	ctx := context.Background()
	p256 := GenerateTestKeyPair(t, ES256, "p256")
	token := NewTokenBuilder(t, ES256, p256.Private).Build()

	if Verify(ctx, token, KeyMaterial(p256.PublicPEM), "ES384") {
		t.Error("Expected ES384 with a P-256 key to fail")
	}
	if Verify(ctx, token, KeyMaterial(p256.PublicPEM), "RS256") {
		t.Error("Expected RS256 with an EC key to fail")
	}
}

func TestVerifyDecoded_SetsIsValid(t *testing.T) {
	ctx := context.Background()
	decoded := Decode(validJWT)
	if decoded.IsValid {
		t.Fatal("Decode must leave IsValid false")
	}
	if !VerifyDecoded(ctx, decoded, KeyMaterial(validJWTSecret), "") {
		t.Fatal("Expected decoded token to verify")
	}
	if !decoded.IsValid {
		t.Error("Expected IsValid to be set")
	}
	if VerifyDecoded(ctx, decoded, KeyMaterial("nope"), "") || decoded.IsValid {
		t.Error("Expected IsValid to be reset on failure")
	}
}

func TestVerifyDecoded_Malformed(t *testing.T) {
	ctx := context.Background()
	parts := strings.Split(validJWT, ".")

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"two parts", parts[0] + "." + parts[1]},
		{"four parts", validJWT + ".extra"},
		{"four parts empty tail", validJWT + "."},
		{"garbage header", "!!!." + parts[1] + "." + parts[2]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded := Decode(tt.token)
			decoded.IsValid = true
			if VerifyDecoded(ctx, decoded, KeyMaterial(validJWTSecret), "") {
				t.Errorf("Expected %q not to verify", tt.token)
			}
			if decoded.IsValid {
				t.Error("Expected IsValid to be false")
			}
			if VerifyDecoded(ctx, decoded, KeyMaterial(validJWTSecret), "HS256") {
				t.Errorf("Expected %q not to verify with explicit alg", tt.token)
			}
		})
	}
}

func TestVerify_ExpiredTokenStillVerifies(t *testing.T) {
	ctx := context.Background()
	kp := GenerateTestKeyPair(t, RS256, "kid")
	token := NewTokenBuilder(t, RS256, kp.Private).Expired().Build()

	if !Verify(ctx, token, KeyMaterial(kp.PublicPEM), "") {
		t.Error("Signature verification is independent of exp")
	}
	if !hasFinding(Analyze(Decode(token)), "JWT-EXPIRED") {
		t.Error("Expected JWT-EXPIRED finding")
	}
}
