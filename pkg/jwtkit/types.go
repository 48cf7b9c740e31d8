package jwtkit

import (
	"encoding/json"
	"math"
)

// Header is a decoded JOSE header. Unknown members are preserved.
type Header map[string]any

// Alg returns the "alg" member, or "" when absent or not a string.
func (h Header) Alg() string { return h.str("alg") }

// Typ returns the "typ" member.
func (h Header) Typ() string { return h.str("typ") }

// Kid returns the "kid" member.
func (h Header) Kid() string { return h.str("kid") }

// Has reports whether the member is present with a non-null value.
func (h Header) Has(name string) bool {
	v, ok := h[name]
	return ok && v != nil
}

// Crit returns the extension names listed in "crit".
func (h Header) Crit() []string {
	switch v := h["crit"].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v != "" {
			return []string{v}
		}
	}
	return nil
}

func (h Header) str(name string) string {
	s, _ := h[name].(string)
	return s
}

// Claims is a decoded JWT payload.
type Claims map[string]any

// Has reports whether the claim is present with a non-null value.
func (c Claims) Has(name string) bool {
	v, ok := c[name]
	return ok && v != nil
}

// Number returns a numeric claim (exp, nbf, iat, ...) as seconds.
func (c Claims) Number(name string) (float64, bool) {
	return numeric(c[name])
}

// Exp returns the "exp" claim in Unix seconds.
func (c Claims) Exp() (float64, bool) { return c.Number("exp") }

// Nbf returns the "nbf" claim in Unix seconds.
func (c Claims) Nbf() (float64, bool) { return c.Number("nbf") }

// Iat returns the "iat" claim in Unix seconds.
func (c Claims) Iat() (float64, bool) { return c.Number("iat") }

// Audience returns "aud" normalized to a list; it accepts a string or a list of strings.
func (c Claims) Audience() []string {
	switch v := c["aud"].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func numeric(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// RawSegments holds the three token segments exactly as split.
type RawSegments struct {
	Header    string `json:"header"`
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
}

// DiagnosticSeverity distinguishes decode errors from warnings.
type DiagnosticSeverity string

const (
	DiagnosticError   DiagnosticSeverity = "error"
	DiagnosticWarning DiagnosticSeverity = "warning"
)

// Diagnostic codes emitted by the decoder.
const (
	CodeEmptyToken      = "EMPTY_TOKEN"
	CodeWhitespace      = "WHITESPACE_REMOVED"
	CodeBearerPrefix    = "BEARER_PREFIX_REMOVED"
	CodeEscapedNewlines = "ESCAPED_NEWLINES_REMOVED"
	CodeNewlines        = "NEWLINES_REMOVED"
	CodePartCount       = "PART_COUNT"
	CodeInvalidFormat   = "INVALID_FORMAT"
	CodeHeaderDecode    = "HEADER_DECODE"
	CodeInvalidHeader   = "INVALID_HEADER"
	CodePayloadDecode   = "PAYLOAD_DECODE"
	CodeInvalidPayload  = "INVALID_PAYLOAD"
	CodeMissingAlg      = "MISSING_ALG"
	CodeMissingTyp      = "MISSING_TYP"
	CodeMissingExp      = "MISSING_EXP"
	CodeMissingIat      = "MISSING_IAT"
	CodeExpired         = "EXPIRED"
	CodeNotYetValid     = "NOT_YET_VALID"
)

// Diagnostic is a single decoder observation.
type Diagnostic struct {
	Code     string             `json:"code"`
	Severity DiagnosticSeverity `json:"severity"`
	Message  string             `json:"message"`
}

// DecodedToken is the result of structural decoding. Header and Payload are
// nil only when their JSON could not be parsed. IsValid reflects signature
// verification and stays false until VerifyDecoded succeeds.
type DecodedToken struct {
	Header      Header       `json:"header"`
	Payload     Claims       `json:"payload"`
	Signature   string       `json:"signature"`
	Raw         RawSegments  `json:"raw"`
	IsValid     bool         `json:"isValid"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// ErrorMessage returns the first error diagnostic, or "" when the token
// decoded without structural errors.
func (t *DecodedToken) ErrorMessage() string {
	for _, d := range t.Diagnostics {
		if d.Severity == DiagnosticError {
			return d.Message
		}
	}
	return ""
}

// ParsingWarnings returns the warning messages in the order they were raised.
func (t *DecodedToken) ParsingWarnings() []string {
	out := []string{}
	for _, d := range t.Diagnostics {
		if d.Severity == DiagnosticWarning {
			out = append(out, d.Message)
		}
	}
	return out
}

// HasDiagnostic reports whether a diagnostic with the given code was raised.
func (t *DecodedToken) HasDiagnostic(code string) bool {
	for _, d := range t.Diagnostics {
		if d.Code == code {
			return true
		}
	}
	return false
}

// MarshalJSON adds the flattened error and parsingWarnings views.
func (t *DecodedToken) MarshalJSON() ([]byte, error) {
	type plain DecodedToken
	var errMsg *string
	if msg := t.ErrorMessage(); msg != "" {
		errMsg = &msg
	}
	return json.Marshal(struct {
		*plain
		Error           *string  `json:"error"`
		ParsingWarnings []string `json:"parsingWarnings"`
	}{
		plain:           (*plain)(t),
		Error:           errMsg,
		ParsingWarnings: t.ParsingWarnings(),
	})
}

func (t *DecodedToken) warn(code, msg string) {
	t.Diagnostics = append(t.Diagnostics, Diagnostic{Code: code, Severity: DiagnosticWarning, Message: msg})
}

func (t *DecodedToken) fail(code, msg string) {
	t.Diagnostics = append(t.Diagnostics, Diagnostic{Code: code, Severity: DiagnosticError, Message: msg})
}
