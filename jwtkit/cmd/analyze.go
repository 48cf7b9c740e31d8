package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mydebugger/jwtkit/pkg/jwtkit"
	"github.com/mydebugger/jwtkit/pkg/logger"
	"github.com/mydebugger/jwtkit/pkg/metrics"
	"github.com/mydebugger/jwtkit/pkg/policy"
)

var errPolicyDenied = errors.New("token denied by policy")

var analyzeCmd = &cobra.Command{
	Use:   "analyze [token]",
	Short: "Report security findings for a token",
	Long: `Analyze decodes a token and runs the security rules against it. With
--policy the findings are also evaluated by a Rego policy (the built-in one
denies high severity findings, --policy-file replaces it) and the command
exits non-zero on deny. --fail-on exits non-zero when a finding at or above
the given severity is reported.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().Bool("json", false, "Print the report as JSON")
	analyzeCmd.Flags().Bool("policy", false, "Evaluate the findings with the Rego policy")
	analyzeCmd.Flags().String("fail-on", "", "Exit non-zero on findings at or above this severity (high, medium, low, info)")
}

type analyzeReport struct {
	Token    *jwtkit.DecodedToken `json:"token"`
	Findings []jwtkit.Finding     `json:"findings"`
	Summary  jwtkit.Summary       `json:"summary"`
	Decision *policy.Decision     `json:"decision,omitempty"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	token, err := readToken(cmd, args)
	if err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("json")
	failOn, _ := cmd.Flags().GetString("fail-on")
	usePolicy, _ := cmd.Flags().GetBool("policy")

	var threshold jwtkit.Severity
	if failOn != "" {
		if threshold, err = jwtkit.ParseSeverity(failOn); err != nil {
			return err
		}
	}

	t := jwtkit.Decode(token)
	metrics.RecordDecode(t)
	findings := newAnalyzer().Analyze(t)
	metrics.RecordFindings(findings)

	report := analyzeReport{Token: t, Findings: findings, Summary: jwtkit.Summarize(findings)}
	if usePolicy || cfg.Policy.Enabled {
		engine, err := policy.Load(cmd.Context(), cfg.Policy.File, log.For(logger.ComponentPolicy).Logger)
		if err != nil {
			return err
		}
		if report.Decision, err = engine.Evaluate(cmd.Context(), t, findings); err != nil {
			return err
		}
	}

	if asJSON {
		err = printJSON(cmd, report)
	} else {
		printReport(cmd.OutOrStdout(), report)
	}
	if err != nil {
		return err
	}

	if report.Decision != nil && !report.Decision.Allow {
		return errPolicyDenied
	}
	if threshold != "" && report.Summary.Highest != "" && report.Summary.Highest.Rank() >= threshold.Rank() {
		return fmt.Errorf("%d finding(s), highest severity %s", report.Summary.Total, report.Summary.Highest)
	}
	return nil
}

func printReport(w io.Writer, r analyzeReport) {
	if msg := r.Token.ErrorMessage(); msg != "" {
		fmt.Fprintf(w, "Error: %s\n", msg)
	}
	for _, warning := range r.Token.ParsingWarnings() {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}
	if len(r.Findings) == 0 {
		fmt.Fprintln(w, "No findings")
	}
	for _, f := range r.Findings {
		fmt.Fprintf(w, "%s [%s] %s: %s\n", f.Severity.Emoji(), f.ID, f.Title, f.Description)
		fmt.Fprintf(w, "    → %s\n", f.Recommendation)
	}
	s := r.Summary
	fmt.Fprintf(w, "\n%d finding(s): %d high, %d medium, %d low, %d info\n",
		s.Total, s.Counts[jwtkit.SeverityHigh], s.Counts[jwtkit.SeverityMedium],
		s.Counts[jwtkit.SeverityLow], s.Counts[jwtkit.SeverityInfo])
	if r.Decision != nil {
		verdict := "ALLOW"
		if !r.Decision.Allow {
			verdict = "DENY"
		}
		fmt.Fprintf(w, "Policy: %s\n", verdict)
		for _, reason := range r.Decision.Reasons {
			fmt.Fprintf(w, "  - %s\n", reason)
		}
	}
}
