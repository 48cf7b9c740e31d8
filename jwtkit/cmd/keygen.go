package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mydebugger/jwtkit/pkg/jwks"
	"github.com/mydebugger/jwtkit/pkg/jwtkit"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a signing key",
	Long: `Keygen prints a fresh PEM key pair for RS*/ES* algorithms or a random hex
secret for HS*. With --jwk the public key is also printed as a JWK.`,
	Args: cobra.NoArgs,
	RunE: runKeygen,
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	keygenCmd.Flags().String("alg", "ES256", "Algorithm the key is for")
	keygenCmd.Flags().Int("bits", jwtkit.DefaultRSABits, "RSA modulus size")
	keygenCmd.Flags().Int("bytes", 32, "HMAC secret length in bytes")
	keygenCmd.Flags().String("kid", "", "Key ID for --jwk output")
	keygenCmd.Flags().Bool("jwk", false, "Also print the public key as a JWK")
}

func runKeygen(cmd *cobra.Command, args []string) error {
	algName, _ := cmd.Flags().GetString("alg")
	bits, _ := cmd.Flags().GetInt("bits")
	n, _ := cmd.Flags().GetInt("bytes")
	kid, _ := cmd.Flags().GetString("kid")
	asJWK, _ := cmd.Flags().GetBool("jwk")

	alg, err := jwtkit.ParseAlgorithm(algName)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if alg.IsSymmetric() {
		secret, err := jwtkit.GenerateSecret(n)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, secret)
		return nil
	}

	kp, err := jwtkit.GenerateKeyPair(alg, bits)
	if err != nil {
		return err
	}
	log.Key(kid, "Generated key pair", "alg", alg)
	fmt.Fprint(out, kp.PrivateKey)
	fmt.Fprint(out, kp.PublicKey)

	if asJWK {
		jwk, err := jwks.FromPublicKeyPEM(kp.PublicKey, kid, alg)
		if err != nil {
			return err
		}
		return printJSON(cmd, jwtkit.JWKS{Keys: []jwtkit.JWK{jwk}})
	}
	return nil
}
