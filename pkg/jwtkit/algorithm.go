package jwtkit

import (
	"crypto"
	"crypto/elliptic"
	"strings"
)

// Algorithm is a JWS "alg" value supported by the engine.
type Algorithm string

const (
	HS256 Algorithm = "HS256"
	HS384 Algorithm = "HS384"
	HS512 Algorithm = "HS512"
	RS256 Algorithm = "RS256"
	RS384 Algorithm = "RS384"
	RS512 Algorithm = "RS512"
	ES256 Algorithm = "ES256"
	ES384 Algorithm = "ES384"
	ES512 Algorithm = "ES512"
	None  Algorithm = "none"
)

// Family groups algorithms by the primitive they need.
type Family string

const (
	FamilyHMAC  Family = "HMAC"
	FamilyRSA   Family = "RSASSA-PKCS1-v1_5"
	FamilyECDSA Family = "ECDSA"
	FamilyNone  Family = "none"
)

// AlgorithmSpec is the primitive parameter set for one algorithm.
type AlgorithmSpec struct {
	Alg    Algorithm
	Family Family
	Hash   crypto.Hash
	// Curve is set for ECDSA only.
	Curve elliptic.Curve
}

// CurveName returns the NIST name of the ECDSA curve, or "".
func (s AlgorithmSpec) CurveName() string {
	if s.Curve == nil {
		return ""
	}
	return s.Curve.Params().Name
}

var algorithmSpecs = map[Algorithm]AlgorithmSpec{
	HS256: {Alg: HS256, Family: FamilyHMAC, Hash: crypto.SHA256},
	HS384: {Alg: HS384, Family: FamilyHMAC, Hash: crypto.SHA384},
	HS512: {Alg: HS512, Family: FamilyHMAC, Hash: crypto.SHA512},
	RS256: {Alg: RS256, Family: FamilyRSA, Hash: crypto.SHA256},
	RS384: {Alg: RS384, Family: FamilyRSA, Hash: crypto.SHA384},
	RS512: {Alg: RS512, Family: FamilyRSA, Hash: crypto.SHA512},
	ES256: {Alg: ES256, Family: FamilyECDSA, Hash: crypto.SHA256, Curve: elliptic.P256()},
	ES384: {Alg: ES384, Family: FamilyECDSA, Hash: crypto.SHA384, Curve: elliptic.P384()},
	ES512: {Alg: ES512, Family: FamilyECDSA, Hash: crypto.SHA512, Curve: elliptic.P521()},
	None:  {Alg: None, Family: FamilyNone},
}

// Algorithms lists the supported algorithms in table order, "none" last.
func Algorithms() []Algorithm {
	return []Algorithm{HS256, HS384, HS512, RS256, RS384, RS512, ES256, ES384, ES512, None}
}

// ParseAlgorithm maps an "alg" string to an Algorithm. Matching is exact,
// so "NONE" or "hs256" are rejected like any other unknown value.
func ParseAlgorithm(alg string) (Algorithm, error) {
	a := Algorithm(alg)
	if _, ok := algorithmSpecs[a]; !ok {
		return "", &UnsupportedAlgorithmError{Alg: alg}
	}
	return a, nil
}

// Spec returns the primitive parameters for a.
func (a Algorithm) Spec() (AlgorithmSpec, error) {
	spec, ok := algorithmSpecs[a]
	if !ok {
		return AlgorithmSpec{}, &UnsupportedAlgorithmError{Alg: string(a)}
	}
	return spec, nil
}

// IsSymmetric reports whether a is an HMAC algorithm.
func (a Algorithm) IsSymmetric() bool {
	return strings.HasPrefix(string(a), "HS")
}

func (a Algorithm) String() string { return string(a) }
