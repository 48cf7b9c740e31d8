package jwtkit

import (
	"fmt"
	"time"
)

// Severity ranks analyzer findings.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
	SeverityInfo   Severity = "info"
)

// Rank orders severities; high is 3 and info is 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Emoji returns the marker used when printing findings.
func (s Severity) Emoji() string {
	switch s {
	case SeverityHigh:
		return "🔴"
	case SeverityMedium:
		return "🟠"
	case SeverityLow:
		return "🟡"
	default:
		return "ℹ️"
	}
}

// ParseSeverity accepts high, medium, low or info.
func ParseSeverity(s string) (Severity, error) {
	switch sev := Severity(s); sev {
	case SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return sev, nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// Finding is one analyzer observation.
type Finding struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Severity       Severity `json:"severity"`
	Recommendation string   `json:"recommendation"`
}

// RuleContext carries the clock reading and thresholds shared by all rules
// of one analysis.
type RuleContext struct {
	Now          time.Time
	ClockSkew    time.Duration
	ExpiringSoon time.Duration
	LongLived    time.Duration
}

// Rule inspects a decoded token and returns a finding or nil.
type Rule func(t *DecodedToken, rc RuleContext) *Finding

// Analyzer runs a fixed, ordered list of rules.
type Analyzer struct {
	rules        []Rule
	now          func() time.Time
	clockSkew    time.Duration
	expiringSoon time.Duration
	longLived    time.Duration
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithAnalyzerClock overrides the wall clock.
func WithAnalyzerClock(now func() time.Time) AnalyzerOption {
	return func(a *Analyzer) { a.now = now }
}

// WithClockSkew sets the tolerance for future iat and nbf values.
func WithClockSkew(d time.Duration) AnalyzerOption {
	return func(a *Analyzer) { a.clockSkew = d }
}

// WithExpiringSoon sets the window for JWT-EXPIRING-SOON.
func WithExpiringSoon(d time.Duration) AnalyzerOption {
	return func(a *Analyzer) { a.expiringSoon = d }
}

// WithLongLived sets the lifetime beyond which JWT-LONG-EXP fires.
func WithLongLived(d time.Duration) AnalyzerOption {
	return func(a *Analyzer) { a.longLived = d }
}

// WithRules replaces the rule list.
func WithRules(rules ...Rule) AnalyzerOption {
	return func(a *Analyzer) { a.rules = rules }
}

// NewAnalyzer creates an Analyzer with DefaultRules.
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		rules:        DefaultRules(),
		now:          time.Now,
		clockSkew:    60 * time.Second,
		expiringSoon: 5 * time.Minute,
		longLived:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var defaultAnalyzer = NewAnalyzer()

// Analyze runs the default rules against t.
func Analyze(t *DecodedToken) []Finding {
	return defaultAnalyzer.Analyze(t)
}

// Analyze returns the findings in rule order. It never fails and returns an
// empty slice when no rule fires.
func (a *Analyzer) Analyze(t *DecodedToken) []Finding {
	findings := []Finding{}
	if t == nil {
		return findings
	}
	rc := RuleContext{
		Now:          a.now(),
		ClockSkew:    a.clockSkew,
		ExpiringSoon: a.expiringSoon,
		LongLived:    a.longLived,
	}
	for _, rule := range a.rules {
		if f := rule(t, rc); f != nil {
			findings = append(findings, *f)
		}
	}
	return findings
}

// Summary counts findings per severity.
type Summary struct {
	Total   int              `json:"total"`
	Counts  map[Severity]int `json:"counts"`
	Highest Severity         `json:"highest,omitempty"`
}

// Summarize tallies findings.
func Summarize(findings []Finding) Summary {
	s := Summary{
		Total: len(findings),
		Counts: map[Severity]int{
			SeverityHigh:   0,
			SeverityMedium: 0,
			SeverityLow:    0,
			SeverityInfo:   0,
		},
	}
	for _, f := range findings {
		s.Counts[f.Severity]++
		if s.Highest == "" || f.Severity.Rank() > s.Highest.Rank() {
			s.Highest = f.Severity
		}
	}
	return s
}
