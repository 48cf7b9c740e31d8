// Package api serves the token engine as a JSON HTTP API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/mydebugger/jwtkit/pkg/jwks"
	"github.com/mydebugger/jwtkit/pkg/jwtkit"
	"github.com/mydebugger/jwtkit/pkg/logger"
	"github.com/mydebugger/jwtkit/pkg/policy"
)

// maxBodySize bounds request bodies.
const maxBodySize = 1 << 20

// Options wires the engine components into a Server. Nil fields select
// defaults; a nil Policy disables the policy gate and a nil Fetcher rejects
// requests that name a jwks_url.
type Options struct {
	Decoder  *jwtkit.Decoder
	Verifier *jwtkit.Verifier
	Signer   *jwtkit.Signer
	Analyzer *jwtkit.Analyzer
	Policy   *policy.Engine
	Fetcher  *jwks.Fetcher
	Logger   *logger.Logger
}

// Server handles the /v1 endpoints.
type Server struct {
	decoder  *jwtkit.Decoder
	verifier *jwtkit.Verifier
	signer   *jwtkit.Signer
	analyzer *jwtkit.Analyzer
	policy   *policy.Engine
	fetcher  *jwks.Fetcher
	log      *logger.Logger
}

// New creates a Server.
func New(opts Options) *Server {
	s := &Server{
		decoder:  opts.Decoder,
		verifier: opts.Verifier,
		signer:   opts.Signer,
		analyzer: opts.Analyzer,
		policy:   opts.Policy,
		fetcher:  opts.Fetcher,
		log:      opts.Logger,
	}
	if s.log == nil {
		s.log = logger.New(logger.ComponentAPI, "info")
	}
	if s.decoder == nil {
		s.decoder = jwtkit.NewDecoder()
	}
	if s.verifier == nil {
		s.verifier = jwtkit.NewVerifier(nil, s.log.For(logger.ComponentCrypto).Logger)
	}
	if s.signer == nil {
		s.signer = jwtkit.NewSigner(nil, s.log.For(logger.ComponentCrypto).Logger)
	}
	if s.analyzer == nil {
		s.analyzer = jwtkit.NewAnalyzer()
	}
	return s
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.HandleHealth)
	mux.HandleFunc("/v1/decode", s.handleDecode)
	mux.HandleFunc("/v1/verify", s.handleVerify)
	mux.HandleFunc("/v1/sign", s.handleSign)
	mux.HandleFunc("/v1/analyze", s.handleAnalyze)
	mux.HandleFunc("/v1/jwks/match", s.handleMatch)
	return mux
}

// HandleHealth reports liveness. It is also mounted on the health port.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// jsonError writes a JSON error response
func jsonError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// readJSON decodes a POST body into v, writing the error response itself
// when it returns false.
func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}
