package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mydebugger/jwtkit/pkg/jwtkit"
	"github.com/mydebugger/jwtkit/pkg/metrics"
)

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign a new token",
	Long: `Sign encodes a header and claims and signs them. --header and --claims take
a JSON object inline or as @file. --alg and --kid are merged into the header.

  jwtkit sign --alg HS256 --key s3cret --claims '{"sub":"alice"}'
  jwtkit sign --alg ES256 --key-file ec.pem --kid k1 --exp 1h --claims @claims.json`,
	Args: cobra.NoArgs,
	RunE: runSign,
}

func init() {
	rootCmd.AddCommand(signCmd)
	signCmd.Flags().String("alg", "", "Signing algorithm (HS256, RS256, ES256, ..., none)")
	signCmd.Flags().String("kid", "", "Key ID header")
	signCmd.Flags().String("header", "", "Header JSON object or @file")
	signCmd.Flags().String("claims", "", "Claims JSON object or @file")
	signCmd.Flags().String("key", "", "HMAC secret or private key")
	signCmd.Flags().String("key-file", "", "File containing the secret or private key")
	signCmd.Flags().Duration("exp", 0, "Set iat to now and exp to now plus this duration")
}

func runSign(cmd *cobra.Command, args []string) error {
	headerArg, _ := cmd.Flags().GetString("header")
	claimsArg, _ := cmd.Flags().GetString("claims")
	alg, _ := cmd.Flags().GetString("alg")
	kid, _ := cmd.Flags().GetString("kid")
	literal, _ := cmd.Flags().GetString("key")
	keyFile, _ := cmd.Flags().GetString("key-file")
	exp, _ := cmd.Flags().GetDuration("exp")

	header, err := readJSONObject(headerArg)
	if err != nil {
		return fmt.Errorf("header: %w", err)
	}
	claims, err := readJSONObject(claimsArg)
	if err != nil {
		return fmt.Errorf("claims: %w", err)
	}
	if alg != "" {
		header["alg"] = alg
	}
	if kid != "" {
		header["kid"] = kid
	}
	if exp > 0 {
		now := time.Now()
		claims["iat"] = now.Unix()
		claims["exp"] = now.Add(exp).Unix()
	}
	key, err := readKey(literal, keyFile)
	if err != nil {
		return err
	}

	start := time.Now()
	signer := jwtkit.NewSigner(nil, cryptoLogger().Logger)
	token, err := signer.Sign(cmd.Context(), jwtkit.Header(header), jwtkit.Claims(claims), key)
	metrics.RecordSign(jwtkit.Header(header).Alg(), err, start)
	if err != nil {
		return err
	}
	log.Success("Token signed", "alg", jwtkit.Header(header).Alg())
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
