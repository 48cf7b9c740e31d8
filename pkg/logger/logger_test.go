package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestColorHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(ComponentCLI, &buf, false, "info")
	log.Info("Token decoded", "alg", "HS256")

	out := buf.String()
	if !strings.Contains(out, "[CLI] Token decoded alg=HS256") {
		t.Errorf("Unexpected output %q", out)
	}
	if strings.Contains(out, "\033[") {
		t.Error("Expected no ANSI codes when colors are disabled")
	}
}

func TestColorHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(ComponentAPI, &buf, false, "warn")
	log.Info("hidden")
	log.Debug("hidden")
	log.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Expected info and debug to be filtered, got %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("Expected warn to be written, got %q", out)
	}
}

func TestLogger_ForAndWith(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(ComponentCLI, &buf, false, "debug")
	jwks := log.For(ComponentJWKS)
	jwks.With("url", "https://example.com/keys").Debug("fetched")

	out := buf.String()
	if !strings.Contains(out, "[JWKS] fetched url=https://example.com/keys") {
		t.Errorf("Unexpected output %q", out)
	}
}

func TestLogger_Helpers(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(ComponentCrypto, &buf, true, "info")
	log.Key("k1", "Loaded key")
	log.Success("verified")
	log.Deny("rejected")

	out := buf.String()
	for _, want := range []string{"[k1] Loaded key", "✅ verified", "❌ rejected", colorMagenta} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output %q", want, out)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
