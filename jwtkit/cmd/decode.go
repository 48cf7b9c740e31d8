package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mydebugger/jwtkit/pkg/jwtkit"
	"github.com/mydebugger/jwtkit/pkg/metrics"
)

var decodeCmd = &cobra.Command{
	Use:   "decode [token]",
	Short: "Decode a token without verifying it",
	Long: `Decode splits a token into header, payload and signature and prints them
as JSON together with any error and parsing warnings. It never fails on a
malformed token; problems are reported in the output.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	token, err := readToken(cmd, args)
	if err != nil {
		return err
	}
	t := jwtkit.Decode(token)
	metrics.RecordDecode(t)
	for _, w := range t.ParsingWarnings() {
		log.Warn(w)
	}
	return printJSON(cmd, t)
}
