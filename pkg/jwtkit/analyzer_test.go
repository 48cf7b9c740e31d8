package jwtkit

import (
	"strings"
	"testing"
	"time"
)

var analyzerNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func hasFinding(findings []Finding, id string) bool {
	return findingByID(findings, id) != nil
}

func findingByID(findings []Finding, id string) *Finding {
	for i := range findings {
		if findings[i].ID == id {
			return &findings[i]
		}
	}
	return nil
}

func findingIDs(findings []Finding) []string {
	ids := make([]string, len(findings))
	for i, f := range findings {
		ids[i] = f.ID
	}
	return ids
}

// wellFormed returns a token that triggers no findings at analyzerNow.
func wellFormed() *DecodedToken {
	now := analyzerNow.Unix()
	return &DecodedToken{
		Header: Header{"alg": "ES384", "typ": "JWT", "kid": "key-1"},
		Payload: Claims{
			"sub": "1234567890",
			"aud": "api",
			"iat": float64(now - 60),
			"exp": float64(now + 3600),
		},
		Signature: "c2lnbmF0dXJl",
	}
}

func newTestAnalyzer() *Analyzer {
	return NewAnalyzer(WithAnalyzerClock(fixedClock(analyzerNow)))
}

func TestAnalyze_CleanToken(t *testing.T) {
	findings := newTestAnalyzer().Analyze(wellFormed())
	if len(findings) != 0 {
		t.Errorf("Expected no findings, got %v", findingIDs(findings))
	}
}

func TestAnalyze_NilToken(t *testing.T) {
	findings := Analyze(nil)
	if findings == nil || len(findings) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", findings)
	}
}

func TestAnalyze_Rules(t *testing.T) {
	now := float64(analyzerNow.Unix())

	tests := []struct {
		name     string
		mutate   func(d *DecodedToken)
		id       string
		severity Severity
	}{
		{"none alg", func(d *DecodedToken) { d.Header["alg"] = "none"; d.Signature = "" }, "JWT-NONE-ALG", SeverityHigh},
		{"no exp", func(d *DecodedToken) { delete(d.Payload, "exp") }, "JWT-NO-EXP", SeverityMedium},
		{"expired", func(d *DecodedToken) { d.Payload["exp"] = now - 3600 }, "JWT-EXPIRED", SeverityMedium},
		{"long lived", func(d *DecodedToken) { d.Payload["exp"] = now + 30*86400 }, "JWT-LONG-EXP", SeverityLow},
		{"expiring soon", func(d *DecodedToken) { d.Payload["exp"] = now + 120 }, "JWT-EXPIRING-SOON", SeverityLow},
		{"no iat", func(d *DecodedToken) { delete(d.Payload, "iat") }, "JWT-NO-IAT", SeverityLow},
		{"future iat", func(d *DecodedToken) { d.Payload["iat"] = now + 3600 }, "JWT-FUTURE-IAT", SeverityMedium},
		{"future nbf", func(d *DecodedToken) { d.Payload["nbf"] = now + 3600 }, "JWT-FUTURE-NBF", SeverityInfo},
		{"hs256", func(d *DecodedToken) { d.Header["alg"] = "HS256" }, "JWT-WEAK-ALG-HS256", SeverityLow},
		{"rs256", func(d *DecodedToken) { d.Header["alg"] = "RS256" }, "JWT-WEAK-ALG-RS256", SeverityInfo},
		{"no aud", func(d *DecodedToken) { delete(d.Payload, "aud") }, "JWT-NO-AUD", SeverityLow},
		{"empty aud", func(d *DecodedToken) { d.Payload["aud"] = "" }, "JWT-NO-AUD", SeverityLow},
		{"no kid", func(d *DecodedToken) { delete(d.Header, "kid") }, "JWT-NO-KID", SeverityLow},
		{"no typ", func(d *DecodedToken) { delete(d.Header, "typ") }, "JWT-NO-TYP", SeverityLow},
		{"unusual typ", func(d *DecodedToken) { d.Header["typ"] = "CUSTOM" }, "JWT-UNUSUAL-TYP", SeverityInfo},
		{"lowercase typ", func(d *DecodedToken) { d.Header["typ"] = "jwt" }, "JWT-UNUSUAL-TYP", SeverityInfo},
		{"none without kid", func(d *DecodedToken) { d.Header["alg"] = "none"; delete(d.Header, "kid") }, "JWT-NO-KID", SeverityLow},
		{"missing sig", func(d *DecodedToken) { d.Signature = "" }, "JWT-MISSING-SIG", SeverityHigh},
		{"nested", func(d *DecodedToken) { d.Payload["inner"] = validJWT }, "JWT-NESTED", SeverityMedium},
		{"crit", func(d *DecodedToken) { d.Header["crit"] = []any{"exp"} }, "JWT-CRIT-CLAIM", SeverityMedium},
		{"malformed", func(d *DecodedToken) { d.Payload = nil }, "JWT-MALFORMED", SeverityHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := wellFormed()
			tt.mutate(d)
			findings := newTestAnalyzer().Analyze(d)
			f := findingByID(findings, tt.id)
			if f == nil {
				t.Fatalf("Expected %s, got %v", tt.id, findingIDs(findings))
			}
			if f.Severity != tt.severity {
				t.Errorf("Expected severity %s, got %s", tt.severity, f.Severity)
			}
			if f.Title == "" || f.Description == "" || f.Recommendation == "" {
				t.Errorf("Finding has empty text: %+v", f)
			}
		})
	}
}

func TestAnalyze_Boundaries(t *testing.T) {
	now := float64(analyzerNow.Unix())
	tests := []struct {
		name    string
		mutate  func(d *DecodedToken)
		absent  string
		present string
	}{
		{"iat inside skew", func(d *DecodedToken) { d.Payload["iat"] = now + 60 }, "JWT-FUTURE-IAT", ""},
		{"nbf inside skew", func(d *DecodedToken) { d.Payload["nbf"] = now + 30 }, "JWT-FUTURE-NBF", ""},
		{"exp exactly one day", func(d *DecodedToken) { d.Payload["exp"] = now + 86400 }, "JWT-LONG-EXP", ""},
		{"exp at five minutes", func(d *DecodedToken) { d.Payload["exp"] = now + 300 }, "JWT-EXPIRING-SOON", ""},
		{"expired is not expiring soon", func(d *DecodedToken) { d.Payload["exp"] = now - 10 }, "JWT-EXPIRING-SOON", "JWT-EXPIRED"},
		{"hmac needs no kid", func(d *DecodedToken) { d.Header["alg"] = "HS512"; delete(d.Header, "kid") }, "JWT-NO-KID", ""},
		{"kid present for none", func(d *DecodedToken) { d.Header["alg"] = "none" }, "JWT-NO-KID", "JWT-NONE-ALG"},
		{"none has no signature", func(d *DecodedToken) { d.Header["alg"] = "none"; d.Signature = "" }, "JWT-MISSING-SIG", "JWT-NONE-ALG"},
		{"exact typ", func(d *DecodedToken) { d.Header["typ"] = "JWT" }, "JWT-UNUSUAL-TYP", ""},
		{"empty crit", func(d *DecodedToken) { d.Header["crit"] = []any{} }, "JWT-CRIT-CLAIM", ""},
		{"nested in array ignored", func(d *DecodedToken) { d.Payload["tokens"] = []any{validJWT} }, "JWT-NESTED", ""},
		{"nil header skips header rules", func(d *DecodedToken) { d.Header = nil }, "JWT-NONE-ALG", "JWT-MALFORMED"},
		{"non numeric exp is present", func(d *DecodedToken) { d.Payload["exp"] = "tomorrow" }, "JWT-NO-EXP", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := wellFormed()
			tt.mutate(d)
			findings := newTestAnalyzer().Analyze(d)
			if hasFinding(findings, tt.absent) {
				t.Errorf("Did not expect %s, got %v", tt.absent, findingIDs(findings))
			}
			if tt.present != "" && !hasFinding(findings, tt.present) {
				t.Errorf("Expected %s, got %v", tt.present, findingIDs(findings))
			}
		})
	}
}

func TestAnalyze_ExpiredDescription(t *testing.T) {
	d := wellFormed()
	d.Payload["exp"] = float64(analyzerNow.Unix() - 3600)
	f := findingByID(newTestAnalyzer().Analyze(d), "JWT-EXPIRED")
	if f == nil {
		t.Fatal("Expected JWT-EXPIRED")
	}
	if !strings.Contains(f.Description, "Token is expired") {
		t.Errorf("Unexpected description %q", f.Description)
	}
}

func TestAnalyze_LongExpTitle(t *testing.T) {
	d := wellFormed()
	d.Payload["exp"] = float64(analyzerNow.Unix() + 30*86400)
	f := findingByID(newTestAnalyzer().Analyze(d), "JWT-LONG-EXP")
	if f == nil || f.Title != "Long expiration time (30 days)" {
		t.Errorf("Unexpected finding %+v", f)
	}
}

func TestAnalyze_IndependentRulesAndOrder(t *testing.T) {
	d := wellFormed()
	delete(d.Payload, "exp")
	delete(d.Payload, "aud")
	d.Header["alg"] = "none"
	d.Signature = ""

	got := findingIDs(newTestAnalyzer().Analyze(d))
	want := []string{"JWT-NONE-ALG", "JWT-NO-EXP", "JWT-NO-AUD"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Findings = %v, want %v", got, want)
	}
}

func TestAnalyze_DecodedNestedExample(t *testing.T) {
	inner := validJWT
	outer := Base64URLEncode(`{"alg":"HS256","typ":"JWT"}`) + "." +
		Base64URLEncode(`{"sub":"x","aud":"y","iat":1,"exp":99999999999,"token":"`+inner+`"}`) + ".c2ln"
	findings := newTestAnalyzer().Analyze(Decode(outer))
	f := findingByID(findings, "JWT-NESTED")
	if f == nil {
		t.Fatalf("Expected JWT-NESTED, got %v", findingIDs(findings))
	}
	if !strings.Contains(f.Title, `"token"`) {
		t.Errorf("Expected claim name in title, got %q", f.Title)
	}
}

func TestAnalyzer_CustomRules(t *testing.T) {
	always := func(*DecodedToken, RuleContext) *Finding {
		return &Finding{ID: "CUSTOM", Severity: SeverityInfo}
	}
	a := NewAnalyzer(WithRules(always, CheckNoneAlgorithm))
	findings := a.Analyze(wellFormed())
	if len(findings) != 1 || findings[0].ID != "CUSTOM" {
		t.Errorf("Unexpected findings %v", findingIDs(findings))
	}
}

func TestAnalyzer_ExpiringSoonWindow(t *testing.T) {
	d := wellFormed()
	d.Payload["exp"] = float64(analyzerNow.Unix() + 600)
	a := NewAnalyzer(WithAnalyzerClock(fixedClock(analyzerNow)), WithExpiringSoon(15*time.Minute))
	if !hasFinding(a.Analyze(d), "JWT-EXPIRING-SOON") {
		t.Error("Expected JWT-EXPIRING-SOON with a 15 minute window")
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Finding{
		{ID: "a", Severity: SeverityLow},
		{ID: "b", Severity: SeverityHigh},
		{ID: "c", Severity: SeverityLow},
	})
	if s.Total != 3 || s.Counts[SeverityLow] != 2 || s.Counts[SeverityHigh] != 1 {
		t.Errorf("Unexpected summary %+v", s)
	}
	if s.Highest != SeverityHigh {
		t.Errorf("Expected highest=high, got %s", s.Highest)
	}
	if empty := Summarize(nil); empty.Highest != "" || empty.Total != 0 {
		t.Errorf("Unexpected empty summary %+v", empty)
	}
}

func TestParseSeverity(t *testing.T) {
	if s, err := ParseSeverity("medium"); err != nil || s != SeverityMedium {
		t.Errorf("ParseSeverity(medium) = %v, %v", s, err)
	}
	if _, err := ParseSeverity("critical"); err == nil {
		t.Error("Expected error for unknown severity")
	}
	if SeverityHigh.Rank() <= SeverityMedium.Rank() || SeverityLow.Rank() <= SeverityInfo.Rank() {
		t.Error("Severity ranks out of order")
	}
}
