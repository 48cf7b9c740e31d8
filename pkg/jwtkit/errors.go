package jwtkit

import (
	"errors"
	"fmt"
)

var (
	ErrDecode               = errors.New("invalid base64url input")
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	ErrMissingAlgorithm     = errors.New("algorithm is required in header")
	ErrInvalidKey           = errors.New("invalid key material")
	ErrSigning              = errors.New("signing failed")
)

// DecodeError is returned by the base64url codec for malformed input.
type DecodeError struct {
	Input  string
	Reason string
}

func (e *DecodeError) Error() string {
	return "base64url decode: " + e.Reason
}

func (e *DecodeError) Unwrap() error {
	return ErrDecode
}

// UnsupportedAlgorithmError reports an alg value outside the supported set.
type UnsupportedAlgorithmError struct {
	Alg string
}

func (e *UnsupportedAlgorithmError) Error() string {
	return fmt.Sprintf("unsupported algorithm: %q", e.Alg)
}

func (e *UnsupportedAlgorithmError) Unwrap() error {
	return ErrUnsupportedAlgorithm
}

// SigningError is returned by Sign. Op names the failed step
// ("algorithm", "encode", "import", "sign").
type SigningError struct {
	Alg string
	Op  string
	Err error
}

func (e *SigningError) Error() string {
	if e.Alg == "" {
		return fmt.Sprintf("sign %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("sign %s (%s): %v", e.Op, e.Alg, e.Err)
}

// Unwrap exposes both ErrSigning and the underlying cause to errors.Is.
func (e *SigningError) Unwrap() []error {
	return []error{ErrSigning, e.Err}
}
