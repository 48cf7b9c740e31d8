package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mydebugger/jwtkit/pkg/jwks"
	"github.com/mydebugger/jwtkit/pkg/jwtkit"
)

var jwksCmd = &cobra.Command{
	Use:   "jwks",
	Short: "Work with JSON Web Key Sets",
}

var jwksMatchCmd = &cobra.Command{
	Use:   "match [token]",
	Short: "Find the key a token names by kid",
	Long: `Match looks up the token's kid header in a key set read from --file, fetched
from --url, or discovered from --issuer, and prints the matching key.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJWKSMatch,
}

var jwksFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch and print a key set",
	Args:  cobra.NoArgs,
	RunE:  runJWKSFetch,
}

func init() {
	rootCmd.AddCommand(jwksCmd)
	jwksCmd.AddCommand(jwksMatchCmd, jwksFetchCmd)
	for _, c := range []*cobra.Command{jwksMatchCmd, jwksFetchCmd} {
		c.Flags().String("url", "", "JWKS URL")
		c.Flags().String("issuer", "", "OIDC issuer to discover the JWKS from")
	}
	jwksMatchCmd.Flags().String("file", "", "JWKS file")
	jwksMatchCmd.Flags().Bool("pem", false, "Print the matching key as a PEM public key")
}

// loadKeySet reads a key set from a file, a URL or an issuer, in that order.
func loadKeySet(cmd *cobra.Command) (*jwtkit.JWKS, error) {
	file, _ := cmd.Flags().GetString("file")
	url, _ := cmd.Flags().GetString("url")
	issuer, _ := cmd.Flags().GetString("issuer")

	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read JWKS file: %w", err)
		}
		var set jwtkit.JWKS
		if err := json.Unmarshal(b, &set); err != nil {
			return nil, fmt.Errorf("failed to parse JWKS file: %w", err)
		}
		return &set, nil
	}

	fetcher := newFetcher()
	if url == "" {
		if issuer == "" {
			return nil, errors.New("one of --file, --url or --issuer is required")
		}
		d, err := fetcher.Discover(cmd.Context(), issuer)
		if err != nil {
			return nil, err
		}
		url = d.JWKSURI
	}
	return fetcher.FetchJWKS(cmd.Context(), url)
}

func runJWKSMatch(cmd *cobra.Command, args []string) error {
	token, err := readToken(cmd, args)
	if err != nil {
		return err
	}
	asPEM, _ := cmd.Flags().GetBool("pem")

	set, err := loadKeySet(cmd)
	if err != nil {
		return err
	}
	t := jwtkit.Decode(token)
	key := jwtkit.FindKeyForToken(set.Keys, t)
	if key == nil {
		kid := ""
		if t.Header != nil {
			kid = t.Header.Kid()
		}
		return fmt.Errorf("%w %q among %d key(s)", jwks.ErrKeyNotFound, kid, len(set.Keys))
	}
	log.Key(key.Kid, "Matched key", "kty", key.Kty)

	if asPEM {
		pemKey, err := jwks.PublicKeyPEM(*key)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), pemKey)
		return nil
	}
	return printJSON(cmd, key)
}

func runJWKSFetch(cmd *cobra.Command, args []string) error {
	set, err := loadKeySet(cmd)
	if err != nil {
		return err
	}
	return printJSON(cmd, set)
}
