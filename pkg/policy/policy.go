// Package policy gates analyzed tokens with a Rego policy evaluated by OPA.
package policy

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/mydebugger/jwtkit/pkg/jwtkit"
	"github.com/mydebugger/jwtkit/pkg/metrics"
	"github.com/mydebugger/jwtkit/pkg/telemetry"
)

// Query is the rule every policy must define. It evaluates to an object with
// a boolean "allow" and a list of string "reasons".
const Query = "data.jwtkit.decision"

//go:embed default.rego
var defaultPolicy string

// Input is the document a policy sees as input.
type Input struct {
	Header   jwtkit.Header    `json:"header"`
	Payload  jwtkit.Claims    `json:"payload"`
	Error    string           `json:"error,omitempty"`
	Findings []jwtkit.Finding `json:"findings"`
	Summary  jwtkit.Summary   `json:"summary"`
}

// Decision is the outcome of a policy evaluation.
type Decision struct {
	Allow   bool     `json:"allow"`
	Reasons []string `json:"reasons"`
}

// Engine holds a compiled policy.
type Engine struct {
	query  rego.PreparedEvalQuery
	source string
	log    *slog.Logger
}

// New compiles the built-in policy, which denies tokens with high severity
// findings.
func New(ctx context.Context, log *slog.Logger) (*Engine, error) {
	return compile(ctx, "default.rego", defaultPolicy, log)
}

// Load compiles the policy at path, or the built-in policy when path is
// empty.
func Load(ctx context.Context, path string, log *slog.Logger) (*Engine, error) {
	if path == "" {
		return New(ctx, log)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy %s: %w", path, err)
	}
	return compile(ctx, filepath.Base(path), string(src), log)
}

func compile(ctx context.Context, name, src string, log *slog.Logger) (*Engine, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	query, err := rego.New(
		rego.Query(Query),
		rego.Module(name, src),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare policy %s: %w", name, err)
	}
	log.Info("Loaded policy", "module", name)
	return &Engine{query: query, source: name, log: log}, nil
}

// Source names the module the engine was compiled from.
func (e *Engine) Source() string {
	return e.source
}

// NewInput assembles the policy input for a decoded token and its findings.
func NewInput(t *jwtkit.DecodedToken, findings []jwtkit.Finding) Input {
	in := Input{
		Findings: findings,
		Summary:  jwtkit.Summarize(findings),
	}
	if in.Findings == nil {
		in.Findings = []jwtkit.Finding{}
	}
	if t != nil {
		in.Header = t.Header
		in.Payload = t.Payload
		in.Error = t.ErrorMessage()
	}
	return in
}

// Evaluate runs the policy against t and its findings.
func (e *Engine) Evaluate(ctx context.Context, t *jwtkit.DecodedToken, findings []jwtkit.Finding) (*Decision, error) {
	ctx, span := telemetry.StartSpan(ctx, "policy.evaluate")
	defer span.End()

	results, err := e.query.Eval(ctx, rego.EvalInput(NewInput(t, findings)))
	if err != nil {
		telemetry.SetSpanError(span, err)
		return nil, fmt.Errorf("evaluation error: %w", err)
	}

	decision := decisionFrom(results)
	metrics.RecordPolicyDecision(decision.Allow)

	label := "deny"
	if decision.Allow {
		label = "allow"
	}
	span.SetAttributes(telemetry.AttrDecision.String(label))
	telemetry.SetSpanOK(span)
	e.log.Debug("Policy evaluated", "decision", label, "reasons", strings.Join(decision.Reasons, "; "))
	return decision, nil
}

// decisionFrom reads the first result. A missing or malformed decision
// denies.
func decisionFrom(results rego.ResultSet) *Decision {
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return &Decision{Reasons: []string{"policy produced no decision"}}
	}
	resultMap, ok := results[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return &Decision{Reasons: []string{"invalid policy result format"}}
	}

	decision := &Decision{Reasons: []string{}}
	if allow, ok := resultMap["allow"].(bool); ok {
		decision.Allow = allow
	}
	if reasons, ok := resultMap["reasons"].([]any); ok {
		for _, r := range reasons {
			if s, ok := r.(string); ok {
				decision.Reasons = append(decision.Reasons, s)
			}
		}
	}
	return decision
}
