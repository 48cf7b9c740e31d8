package jwtkit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

var errNotObject = errors.New("segment is not a JSON object")

// Decoder performs structural decoding. It never verifies signatures.
type Decoder struct {
	now func() time.Time
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithDecoderClock sets the clock used for the exp/nbf warnings.
func WithDecoderClock(now func() time.Time) DecoderOption {
	return func(d *Decoder) { d.now = now }
}

// NewDecoder creates a Decoder using the wall clock unless overridden.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var defaultDecoder = NewDecoder()

// Decode splits and parses a compact token with the wall clock.
func Decode(input string) *DecodedToken {
	return defaultDecoder.Decode(input)
}

// Decode normalizes the input and parses header and payload. It is total:
// every failure is reported through the returned diagnostics.
func (d *Decoder) Decode(input string) *DecodedToken {
	t := &DecodedToken{}

	token := strings.TrimSpace(input)
	if token == "" {
		t.fail(CodeEmptyToken, "Empty token")
		return t
	}
	if token != input {
		t.warn(CodeWhitespace, "Token contains extra whitespace that was removed")
	}
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
		t.warn(CodeBearerPrefix, `Bearer prefix was removed from token`)
	}
	if strings.Contains(token, `\n`) {
		token = strings.ReplaceAll(token, `\n`, "")
		t.warn(CodeEscapedNewlines, "Escaped newlines were removed from token")
	}
	if strings.ContainsAny(token, "\r\n") {
		token = strings.NewReplacer("\r", "", "\n", "").Replace(token)
		t.warn(CodeNewlines, "Newlines were removed from token")
	}

	parts := strings.Split(token, ".")
	if len(parts) > 0 {
		t.Raw.Header = parts[0]
	}
	if len(parts) > 1 {
		t.Raw.Payload = parts[1]
	}
	if len(parts) > 2 {
		t.Raw.Signature = parts[2]
		t.Signature = parts[2]
	}
	if len(parts) != 3 {
		t.fail(CodeInvalidFormat, "Invalid JWT header: expected 3 parts")
		t.warn(CodePartCount, fmt.Sprintf("Token has %d parts instead of the expected 3 parts", len(parts)))
		return t
	}

	var header Header
	if err := decodeJSONSegment(parts[0], &header); err != nil {
		t.warn(CodeHeaderDecode, "Failed to decode header as JSON")
		t.fail(CodeInvalidHeader, fmt.Sprintf("Invalid JWT header: failed to parse (%v)", err))
	} else {
		t.Header = header
		if isBlank(header["alg"]) {
			t.warn(CodeMissingAlg, `Token header is missing the "alg" field`)
		}
		if isBlank(header["typ"]) {
			t.warn(CodeMissingTyp, `Token header is missing the "typ" field`)
		}
	}

	var payload Claims
	if err := decodeJSONSegment(parts[1], &payload); err != nil {
		t.warn(CodePayloadDecode, "Failed to decode payload as JSON")
		t.fail(CodeInvalidPayload, fmt.Sprintf("Invalid JWT payload: failed to parse (%v)", err))
	} else {
		t.Payload = payload
		d.checkTimes(t)
	}

	return t
}

func (d *Decoder) checkTimes(t *DecodedToken) {
	now := d.now()
	nowMillis := float64(now.UnixMilli())
	p := t.Payload

	if !p.Has("exp") {
		t.warn(CodeMissingExp, `Token payload is missing the "exp" field`)
	} else if exp, ok := p.Exp(); ok && exp*1000 < nowMillis {
		t.warn(CodeExpired, fmt.Sprintf("Token is expired (exp: %s, now: %s)", isoTime(exp), now.UTC().Format(isoMillis)))
	}

	if nbf, ok := p.Nbf(); ok && nbf*1000 > nowMillis {
		t.warn(CodeNotYetValid, fmt.Sprintf("Token is not yet valid (nbf: %s, now: %s)", isoTime(nbf), now.UTC().Format(isoMillis)))
	}

	if !p.Has("iat") {
		t.warn(CodeMissingIat, `Token payload is missing the "iat" field`)
	}
}

// decodeJSONSegment decodes a base64url segment holding a JSON object.
func decodeJSONSegment(seg string, v any) error {
	raw, err := DecodeSegment(seg)
	if err != nil {
		return err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return errNotObject
	}
	return json.Unmarshal(trimmed, v)
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func isoTime(seconds float64) string {
	return time.UnixMilli(int64(seconds * 1000)).UTC().Format(isoMillis)
}
