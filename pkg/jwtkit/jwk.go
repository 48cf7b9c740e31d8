package jwtkit

// JWK is a JSON Web Key as published in a key set. Only the members needed
// to select and convert RSA and EC public keys are modelled.
type JWK struct {
	Kty string   `json:"kty"`
	Kid string   `json:"kid,omitempty"`
	Alg string   `json:"alg,omitempty"`
	Use string   `json:"use,omitempty"`
	N   string   `json:"n,omitempty"`
	E   string   `json:"e,omitempty"`
	Crv string   `json:"crv,omitempty"`
	X   string   `json:"x,omitempty"`
	Y   string   `json:"y,omitempty"`
	X5c []string `json:"x5c,omitempty"`
}

// JWKS is a JSON Web Key Set document.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// FindKey returns the first key whose kid equals kid. It returns nil when kid
// is empty or nothing matches.
func FindKey(keys []JWK, kid string) *JWK {
	if kid == "" {
		return nil
	}
	for i := range keys {
		if keys[i].Kid == kid {
			k := keys[i]
			return &k
		}
	}
	return nil
}

// FindKeyForToken looks up the key named by the token's "kid" header.
func FindKeyForToken(keys []JWK, t *DecodedToken) *JWK {
	if t == nil || t.Header == nil {
		return nil
	}
	return FindKey(keys, t.Header.Kid())
}
