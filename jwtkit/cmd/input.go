package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mydebugger/jwtkit/pkg/jwtkit"
)

// readToken returns the first argument, or stdin when there is none or it
// is "-". Surrounding whitespace is left for the decoder to report.
func readToken(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && args[0] != "-" {
		return args[0], nil
	}
	b, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read token from stdin: %w", err)
	}
	token := strings.TrimRight(string(b), "\r\n")
	if token == "" {
		return "", errors.New("no token given")
	}
	return token, nil
}

// readKey resolves key material from a literal --key value or a --key-file
// path. The file wins when both are set.
func readKey(literal, path string) (jwtkit.KeyMaterial, error) {
	if path == "" {
		return jwtkit.KeyMaterial(literal), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	return jwtkit.KeyMaterial(b), nil
}

// readJSONObject parses a JSON object given inline or as @path.
func readJSONObject(value string) (map[string]any, error) {
	if value == "" {
		return map[string]any{}, nil
	}
	raw := []byte(value)
	if strings.HasPrefix(value, "@") {
		b, err := os.ReadFile(value[1:])
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", value[1:], err)
		}
		raw = b
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("invalid JSON object: %w", err)
	}
	if m == nil {
		return nil, errors.New("invalid JSON object: null")
	}
	return m, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
