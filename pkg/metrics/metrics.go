// Package metrics provides Prometheus metrics for token processing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mydebugger/jwtkit/pkg/jwtkit"
)

const namespace = "jwtkit"

// Result label values.
const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultError   = "error"
	ResultCached  = "cached"
)

var (
	// TokensDecoded counts decode calls by outcome.
	TokensDecoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_decoded_total",
			Help:      "Total number of tokens decoded by result",
		},
		[]string{"result"},
	)

	// Verifications counts signature checks by algorithm and outcome.
	Verifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Total number of signature verifications by algorithm and result",
		},
		[]string{"alg", "result"},
	)

	// Signatures counts signing calls by algorithm and outcome.
	Signatures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signatures_total",
			Help:      "Total number of tokens signed by algorithm and result",
		},
		[]string{"alg", "result"},
	)

	// Findings counts analyzer findings by rule id and severity.
	Findings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "findings_total",
			Help:      "Total number of security analyzer findings by rule and severity",
		},
		[]string{"id", "severity"},
	)

	// JWKSFetches counts key set retrievals by outcome.
	JWKSFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jwks",
			Name:      "fetches_total",
			Help:      "Total number of JWKS retrievals by result",
		},
		[]string{"result"},
	)

	// PolicyDecisions counts policy gate outcomes.
	PolicyDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "policy",
			Name:      "decisions_total",
			Help:      "Total number of policy decisions by outcome",
		},
		[]string{"decision"},
	)

	// CryptoDuration tracks sign and verify latency.
	CryptoDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "crypto_duration_seconds",
			Help:      "Latency of signing and verification operations",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		},
		[]string{"op", "alg"},
	)
)

// RecordDecode counts a decode by whether it produced an error diagnostic.
func RecordDecode(t *jwtkit.DecodedToken) {
	if t.ErrorMessage() != "" {
		TokensDecoded.WithLabelValues(ResultError).Inc()
		return
	}
	TokensDecoded.WithLabelValues(ResultOK).Inc()
}

// RecordVerify counts a verification and observes its latency.
func RecordVerify(alg string, valid bool, start time.Time) {
	result := ResultOK
	if !valid {
		result = ResultInvalid
	}
	Verifications.WithLabelValues(labelAlg(alg), result).Inc()
	CryptoDuration.WithLabelValues("verify", labelAlg(alg)).Observe(time.Since(start).Seconds())
}

// RecordSign counts a signing call and observes its latency.
func RecordSign(alg string, err error, start time.Time) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	Signatures.WithLabelValues(labelAlg(alg), result).Inc()
	CryptoDuration.WithLabelValues("sign", labelAlg(alg)).Observe(time.Since(start).Seconds())
}

// RecordFindings counts each finding.
func RecordFindings(findings []jwtkit.Finding) {
	for _, f := range findings {
		Findings.WithLabelValues(f.ID, string(f.Severity)).Inc()
	}
}

// RecordPolicyDecision counts an allow or deny.
func RecordPolicyDecision(allow bool) {
	decision := "deny"
	if allow {
		decision = "allow"
	}
	PolicyDecisions.WithLabelValues(decision).Inc()
}

// labelAlg keeps the alg label bounded to the supported set.
func labelAlg(alg string) string {
	if alg == "" {
		return "header"
	}
	if _, err := jwtkit.ParseAlgorithm(alg); err != nil {
		return "unsupported"
	}
	return alg
}
