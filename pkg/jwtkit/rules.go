package jwtkit

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
)

const timeLayout = "2006-01-02 15:04:05 MST"

var nestedTokenPattern = regexp.MustCompile(`^ey[A-Za-z0-9_-]+\.ey[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+$`)

// DefaultRules returns the built-in rules in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		CheckMalformed,
		CheckNoneAlgorithm,
		CheckMissingExpiration,
		CheckExpired,
		CheckLongLived,
		CheckExpiringSoon,
		CheckMissingIssuedAt,
		CheckFutureIssuedAt,
		CheckFutureNotBefore,
		CheckWeakAlgorithm,
		CheckMissingAudience,
		CheckMissingKeyID,
		CheckMissingType,
		CheckUnusualType,
		CheckMissingSignature,
		CheckNestedToken,
		CheckCriticalHeader,
	}
}

// CheckMalformed flags tokens whose header or payload could not be parsed.
func CheckMalformed(t *DecodedToken, _ RuleContext) *Finding {
	if t.Header != nil && t.Payload != nil {
		return nil
	}
	part := "header"
	switch {
	case t.Header == nil && t.Payload == nil:
		part = "header and payload"
	case t.Header != nil:
		part = "payload"
	}
	return &Finding{
		ID:             "JWT-MALFORMED",
		Title:          "Malformed token",
		Description:    fmt.Sprintf("The token %s could not be decoded as JSON, so the remaining %s checks were skipped.", part, part),
		Severity:       SeverityHigh,
		Recommendation: "Reject this token. A verifier must never accept a token it cannot parse.",
	}
}

// CheckNoneAlgorithm flags unsigned tokens.
func CheckNoneAlgorithm(t *DecodedToken, _ RuleContext) *Finding {
	if t.Header == nil || t.Header.Alg() != string(None) {
		return nil
	}
	return &Finding{
		ID:             "JWT-NONE-ALG",
		Title:          "Unsigned token (alg: none)",
		Description:    `This token uses the "none" algorithm, which means it has no cryptographic signature for verification.`,
		Severity:       SeverityHigh,
		Recommendation: "UNSIGNED TOKEN: do not accept in production. Always reject tokens with alg: none.",
	}
}

// CheckMissingExpiration flags a payload without exp.
func CheckMissingExpiration(t *DecodedToken, _ RuleContext) *Finding {
	if t.Payload == nil || t.Payload.Has("exp") {
		return nil
	}
	return &Finding{
		ID:             "JWT-NO-EXP",
		Title:          "No expiration claim (exp)",
		Description:    "This token does not have an expiration time, which means it could be valid forever.",
		Severity:       SeverityMedium,
		Recommendation: `Always include an "exp" claim to limit token lifetime. Short-lived tokens (< 1 hour) are recommended.`,
	}
}

// CheckExpired flags an exp in the past.
func CheckExpired(t *DecodedToken, rc RuleContext) *Finding {
	exp, ok := payloadTime(t, "exp")
	if !ok || exp >= unixNow(rc) {
		return nil
	}
	return &Finding{
		ID:             "JWT-EXPIRED",
		Title:          "Token has expired",
		Description:    fmt.Sprintf("Token is expired: it expired on %s.", formatUnix(exp)),
		Severity:       SeverityMedium,
		Recommendation: "This token should be rejected by any verifier checking the exp claim.",
	}
}

// CheckLongLived flags an exp further out than rc.LongLived.
func CheckLongLived(t *DecodedToken, rc RuleContext) *Finding {
	exp, ok := payloadTime(t, "exp")
	now := unixNow(rc)
	if !ok || exp <= now+rc.LongLived.Seconds() {
		return nil
	}
	days := int(math.Round((exp - now) / (24 * 60 * 60)))
	return &Finding{
		ID:             "JWT-LONG-EXP",
		Title:          fmt.Sprintf("Long expiration time (%d days)", days),
		Description:    fmt.Sprintf("This token will be valid for %d days, which is longer than recommended.", days),
		Severity:       SeverityLow,
		Recommendation: "Use shorter lived tokens, preferably less than 1 hour for sensitive operations.",
	}
}

// CheckExpiringSoon flags an exp within rc.ExpiringSoon.
func CheckExpiringSoon(t *DecodedToken, rc RuleContext) *Finding {
	exp, ok := payloadTime(t, "exp")
	now := unixNow(rc)
	if !ok || exp <= now || exp-now >= rc.ExpiringSoon.Seconds() {
		return nil
	}
	minutes := int(math.Floor((exp - now) / 60))
	unit := "minutes"
	if minutes == 1 {
		unit = "minute"
	}
	return &Finding{
		ID:             "JWT-EXPIRING-SOON",
		Title:          fmt.Sprintf("Token expires soon (%d %s)", minutes, unit),
		Description:    fmt.Sprintf("This token will expire in %d %s at %s.", minutes, unit, formatUnix(exp)),
		Severity:       SeverityLow,
		Recommendation: "Consider refreshing this token soon to prevent authentication failures.",
	}
}

// CheckMissingIssuedAt flags a payload without iat.
func CheckMissingIssuedAt(t *DecodedToken, _ RuleContext) *Finding {
	if t.Payload == nil || t.Payload.Has("iat") {
		return nil
	}
	return &Finding{
		ID:             "JWT-NO-IAT",
		Title:          "No issued-at time (iat)",
		Description:    "This token does not have an issued-at time, which makes it harder to determine token age.",
		Severity:       SeverityLow,
		Recommendation: `Include an "iat" claim to enable precise token age calculation and revocation strategies.`,
	}
}

// CheckFutureIssuedAt flags an iat beyond the allowed clock skew.
func CheckFutureIssuedAt(t *DecodedToken, rc RuleContext) *Finding {
	iat, ok := payloadTime(t, "iat")
	if !ok || iat <= unixNow(rc)+rc.ClockSkew.Seconds() {
		return nil
	}
	return &Finding{
		ID:             "JWT-FUTURE-IAT",
		Title:          "Token issued in the future",
		Description:    fmt.Sprintf("This token claims to be issued at %s, which is in the future.", formatUnix(iat)),
		Severity:       SeverityMedium,
		Recommendation: "Check for clock skew between your servers or potential manipulation.",
	}
}

// CheckFutureNotBefore flags an nbf beyond the allowed clock skew.
func CheckFutureNotBefore(t *DecodedToken, rc RuleContext) *Finding {
	nbf, ok := payloadTime(t, "nbf")
	if !ok || nbf <= unixNow(rc)+rc.ClockSkew.Seconds() {
		return nil
	}
	return &Finding{
		ID:             "JWT-FUTURE-NBF",
		Title:          "Token not valid yet",
		Description:    fmt.Sprintf("This token will become valid at %s.", formatUnix(nbf)),
		Severity:       SeverityInfo,
		Recommendation: `The token should be rejected until the "nbf" time is reached.`,
	}
}

// CheckWeakAlgorithm flags HS256 and RS256.
func CheckWeakAlgorithm(t *DecodedToken, _ RuleContext) *Finding {
	if t.Header == nil {
		return nil
	}
	alg := t.Header.Alg()
	f := &Finding{
		ID:    "JWT-WEAK-ALG-" + alg,
		Title: "Potentially weak algorithm: " + alg,
	}
	switch Algorithm(alg) {
	case HS256:
		f.Severity = SeverityLow
		f.Description = "This token uses HS256, which may be vulnerable if used with short or weak secrets."
		f.Recommendation = "Consider using at least HS384 or HS512 with a strong secret (>= 32 bytes), or switch to a public key algorithm like ES256."
	case RS256:
		f.Severity = SeverityInfo
		f.Description = "This token uses RS256, which is common but has known issues with padding oracles."
		f.Recommendation = "Consider using PS256 (RSA-PSS) or ES256 (ECDSA) for better security."
	default:
		return nil
	}
	return f
}

// CheckMissingAudience flags an absent or empty aud.
func CheckMissingAudience(t *DecodedToken, _ RuleContext) *Finding {
	if t.Payload == nil || !isBlank(t.Payload["aud"]) {
		return nil
	}
	return &Finding{
		ID:             "JWT-NO-AUD",
		Title:          "No audience claim (aud)",
		Description:    "This token does not specify an intended audience, which may allow it to be accepted by unintended services.",
		Severity:       SeverityLow,
		Recommendation: `Include an "aud" claim to restrict which services should accept this token.`,
	}
}

// CheckMissingKeyID flags a missing kid for any alg outside the HS family,
// "none" included.
func CheckMissingKeyID(t *DecodedToken, _ RuleContext) *Finding {
	if t.Header == nil {
		return nil
	}
	alg := t.Header.Alg()
	if alg == "" || strings.HasPrefix(alg, "HS") || !isBlank(t.Header["kid"]) {
		return nil
	}
	return &Finding{
		ID:             "JWT-NO-KID",
		Title:          "Missing key identifier (kid)",
		Description:    "This token uses an asymmetric algorithm but does not include a key identifier in the header.",
		Severity:       SeverityLow,
		Recommendation: `Include a "kid" claim in the header to help recipients identify which key should be used for verification.`,
	}
}

// CheckMissingType flags a header without typ.
func CheckMissingType(t *DecodedToken, _ RuleContext) *Finding {
	if t.Header == nil || !isBlank(t.Header["typ"]) {
		return nil
	}
	return &Finding{
		ID:             "JWT-NO-TYP",
		Title:          "Missing type header (typ)",
		Description:    `This token does not specify the "typ" header, which helps identify it as a JWT token.`,
		Severity:       SeverityLow,
		Recommendation: `Include a "typ" header set to "JWT" to clearly identify the token type.`,
	}
}

// CheckUnusualType flags any typ other than exactly "JWT".
func CheckUnusualType(t *DecodedToken, _ RuleContext) *Finding {
	if t.Header == nil || isBlank(t.Header["typ"]) {
		return nil
	}
	typ := fmt.Sprint(t.Header["typ"])
	if typ == "JWT" {
		return nil
	}
	return &Finding{
		ID:             "JWT-UNUSUAL-TYP",
		Title:          fmt.Sprintf("Unusual token type: %q", typ),
		Description:    `This token uses an unusual "typ" value. Standard JWTs use "typ": "JWT".`,
		Severity:       SeverityInfo,
		Recommendation: fmt.Sprintf(`Verify that the "typ": %q is expected for your application.`, typ),
	}
}

// CheckMissingSignature flags a signed alg with an empty signature segment.
func CheckMissingSignature(t *DecodedToken, _ RuleContext) *Finding {
	if t.Header == nil {
		return nil
	}
	alg := t.Header.Alg()
	if alg == "" || alg == string(None) || t.Signature != "" {
		return nil
	}
	return &Finding{
		ID:             "JWT-MISSING-SIG",
		Title:          "Missing signature despite algorithm",
		Description:    fmt.Sprintf("This token uses algorithm %q but has no signature part.", alg),
		Severity:       SeverityHigh,
		Recommendation: "This token is malformed and should be rejected. A proper JWT with this algorithm requires a signature.",
	}
}

// CheckNestedToken looks at top-level string claims only, in key order.
func CheckNestedToken(t *DecodedToken, _ RuleContext) *Finding {
	if t.Payload == nil {
		return nil
	}
	keys := make([]string, 0, len(t.Payload))
	for k := range t.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s, ok := t.Payload[k].(string)
		if !ok || !nestedTokenPattern.MatchString(s) {
			continue
		}
		return &Finding{
			ID:             "JWT-NESTED",
			Title:          fmt.Sprintf("Nested JWT detected in %q claim", k),
			Description:    fmt.Sprintf("This token contains what appears to be another JWT in the %q claim. Nested tokens can create security challenges.", k),
			Severity:       SeverityMedium,
			Recommendation: "Consider flattening the token structure or reviewing your architecture to avoid nested tokens.",
		}
	}
	return nil
}

// CheckCriticalHeader flags a non-empty crit header.
func CheckCriticalHeader(t *DecodedToken, _ RuleContext) *Finding {
	if t.Header == nil || len(t.Header.Crit()) == 0 {
		return nil
	}
	return &Finding{
		ID:             "JWT-CRIT-CLAIM",
		Title:          "Critical claims extension detected",
		Description:    fmt.Sprintf(`This token uses the "crit" header parameter (%s), which requires special handling by JWT processors.`, strings.Join(t.Header.Crit(), ", ")),
		Severity:       SeverityMedium,
		Recommendation: "Verify that your JWT processor correctly handles the critical claims extension and rejects the token if it doesn't understand the critical claims.",
	}
}

func payloadTime(t *DecodedToken, claim string) (float64, bool) {
	if t.Payload == nil {
		return 0, false
	}
	return t.Payload.Number(claim)
}

func unixNow(rc RuleContext) float64 {
	return float64(rc.Now.Unix())
}

func formatUnix(seconds float64) string {
	return time.Unix(int64(seconds), 0).UTC().Format(timeLayout)
}
