package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mydebugger/jwtkit/pkg/jwtkit"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure signing throughput",
	Long: `Bench signs a fixed payload repeatedly and reports operations per second.
Without --alg every supported algorithm is measured with a generated key.`,
	Args: cobra.NoArgs,
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)
	benchCmd.Flags().String("alg", "", "Algorithm to benchmark (default all)")
	benchCmd.Flags().IntP("iterations", "n", 100, "Tokens to sign per algorithm")
	benchCmd.Flags().String("key", "", "HMAC secret or private key (default generated)")
	benchCmd.Flags().String("key-file", "", "File containing the secret or private key")
}

func runBench(cmd *cobra.Command, args []string) error {
	algName, _ := cmd.Flags().GetString("alg")
	n, _ := cmd.Flags().GetInt("iterations")
	literal, _ := cmd.Flags().GetString("key")
	keyFile, _ := cmd.Flags().GetString("key-file")

	key, err := readKey(literal, keyFile)
	if err != nil {
		return err
	}

	var algs []jwtkit.Algorithm
	if algName != "" {
		alg, err := jwtkit.ParseAlgorithm(algName)
		if err != nil {
			return err
		}
		algs = []jwtkit.Algorithm{alg}
	} else {
		if len(key) > 0 {
			return errors.New("--key needs --alg")
		}
		for _, alg := range jwtkit.Algorithms() {
			if alg != jwtkit.None {
				algs = append(algs, alg)
			}
		}
	}

	signer := jwtkit.NewSigner(nil, cryptoLogger().Logger)
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ALG\tITERATIONS\tELAPSED\tOPS/SEC")
	for _, alg := range algs {
		res, err := jwtkit.Benchmark(cmd.Context(), signer, alg, key, n)
		if err != nil {
			return fmt.Errorf("%s: %w", alg, err)
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\n", res.Alg, res.Iterations, res.Elapsed, res.OpsPerSec)
	}
	return w.Flush()
}
