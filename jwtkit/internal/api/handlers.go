package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/mydebugger/jwtkit/pkg/jwks"
	"github.com/mydebugger/jwtkit/pkg/jwtkit"
	"github.com/mydebugger/jwtkit/pkg/metrics"
	"github.com/mydebugger/jwtkit/pkg/policy"
	"github.com/mydebugger/jwtkit/pkg/telemetry"
)

// TokenRequest carries a compact token.
type TokenRequest struct {
	Token string `json:"token"`
}

// VerifyRequest asks for a signature check. Key may be an HMAC secret or
// PEM/base64 DER key material; when it is empty the key is looked up by kid
// in the key set at JWKSURL.
type VerifyRequest struct {
	Token   string `json:"token"`
	Key     string `json:"key,omitempty"`
	Alg     string `json:"alg,omitempty"`
	JWKSURL string `json:"jwks_url,omitempty"`
}

// VerifyResponse reports a signature check.
type VerifyResponse struct {
	Valid bool   `json:"valid"`
	Alg   string `json:"alg,omitempty"`
	Kid   string `json:"kid,omitempty"`
}

// SignRequest asks for a signed token.
type SignRequest struct {
	Header  jwtkit.Header `json:"header"`
	Payload jwtkit.Claims `json:"payload"`
	Key     string        `json:"key,omitempty"`
}

// SignResponse carries the produced token.
type SignResponse struct {
	Token string `json:"token"`
}

// AnalyzeResponse is a full report on one token.
type AnalyzeResponse struct {
	Token    *jwtkit.DecodedToken `json:"token"`
	Findings []jwtkit.Finding     `json:"findings"`
	Summary  jwtkit.Summary       `json:"summary"`
	Decision *policy.Decision     `json:"decision,omitempty"`
}

// MatchRequest looks up the token's kid in an inline key set or the one at
// JWKSURL.
type MatchRequest struct {
	Token   string       `json:"token"`
	JWKS    *jwtkit.JWKS `json:"jwks,omitempty"`
	JWKSURL string       `json:"jwks_url,omitempty"`
}

// MatchResponse carries the matching key, if any.
type MatchResponse struct {
	Matched bool        `json:"matched"`
	Kid     string      `json:"kid,omitempty"`
	Key     *jwtkit.JWK `json:"key"`
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if !readJSON(w, r, &req) {
		return
	}
	_, span := telemetry.StartSpan(r.Context(), "api.decode")
	defer span.End()

	t := s.decoder.Decode(req.Token)
	metrics.RecordDecode(t)
	if msg := t.ErrorMessage(); msg != "" {
		span.SetAttributes(telemetry.AttrDecodeError.String(msg))
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		jsonError(w, "token is required", http.StatusBadRequest)
		return
	}

	ctx, span := telemetry.StartSpan(r.Context(), "api.verify")
	defer span.End()

	t := s.decoder.Decode(req.Token)
	key := jwtkit.KeyMaterial(req.Key)
	if len(key) == 0 {
		if req.JWKSURL == "" {
			jsonError(w, "key or jwks_url is required", http.StatusBadRequest)
			return
		}
		if s.fetcher == nil {
			jsonError(w, "JWKS lookups are disabled", http.StatusBadRequest)
			return
		}
		jwk, err := s.fetcher.KeyForToken(ctx, req.JWKSURL, t)
		if err != nil {
			telemetry.SetSpanError(span, err)
			s.log.Warn("Key lookup failed", "url", req.JWKSURL, "error", err)
			code := http.StatusBadGateway
			if errors.Is(err, jwks.ErrKeyNotFound) {
				code = http.StatusNotFound
			}
			jsonError(w, err.Error(), code)
			return
		}
		pemKey, err := jwks.PublicKeyPEM(*jwk)
		if err != nil {
			jsonError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		key = jwtkit.KeyMaterial(pemKey)
	}

	start := time.Now()
	alg := req.Alg
	if alg == "" && t.Header != nil {
		alg = t.Header.Alg()
	}
	valid := s.verifier.VerifyDecoded(ctx, t, key, req.Alg)
	metrics.RecordVerify(alg, valid, start)
	if valid {
		s.log.Success("Signature verified", "alg", alg)
	} else {
		s.log.Deny("Signature rejected", "alg", alg)
	}

	resp := VerifyResponse{Valid: valid, Alg: alg}
	if t.Header != nil {
		resp.Kid = t.Header.Kid()
	}
	span.SetAttributes(
		telemetry.AttrAlg.String(alg),
		telemetry.AttrKid.String(resp.Kid),
		telemetry.AttrTokenValid.Bool(valid),
	)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSign(w http.ResponseWriter, r *http.Request) {
	var req SignRequest
	if !readJSON(w, r, &req) {
		return
	}

	start := time.Now()
	token, err := s.signer.Sign(r.Context(), req.Header, req.Payload, jwtkit.KeyMaterial(req.Key))
	metrics.RecordSign(req.Header.Alg(), err, start)
	if err != nil {
		s.log.Error("Signing failed", "alg", req.Header.Alg(), "error", err)
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, SignResponse{Token: token})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if !readJSON(w, r, &req) {
		return
	}

	ctx, span := telemetry.StartSpan(r.Context(), "api.analyze")
	defer span.End()

	t := s.decoder.Decode(req.Token)
	metrics.RecordDecode(t)
	findings := s.analyzer.Analyze(t)
	metrics.RecordFindings(findings)

	resp := AnalyzeResponse{
		Token:    t,
		Findings: findings,
		Summary:  jwtkit.Summarize(findings),
	}
	span.SetAttributes(
		telemetry.AttrFindingCount.Int(resp.Summary.Total),
		telemetry.AttrHighestSev.String(string(resp.Summary.Highest)),
	)
	if s.policy != nil {
		decision, err := s.policy.Evaluate(ctx, t, findings)
		if err != nil {
			telemetry.SetSpanError(span, err)
			s.log.Error("Policy evaluation failed", "error", err)
			jsonError(w, "Policy evaluation failed", http.StatusInternalServerError)
			return
		}
		s.log.Policy("Policy decision", "allow", decision.Allow, "module", s.policy.Source())
		resp.Decision = decision
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if !readJSON(w, r, &req) {
		return
	}

	t := s.decoder.Decode(req.Token)
	kid := ""
	if t.Header != nil {
		kid = t.Header.Kid()
	}

	var keys []jwtkit.JWK
	switch {
	case req.JWKS != nil:
		keys = req.JWKS.Keys
	case req.JWKSURL != "" && s.fetcher != nil:
		set, err := s.fetcher.FetchJWKS(r.Context(), req.JWKSURL)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadGateway)
			return
		}
		keys = set.Keys
	default:
		jsonError(w, "jwks or jwks_url is required", http.StatusBadRequest)
		return
	}

	key := jwtkit.FindKey(keys, kid)
	writeJSON(w, http.StatusOK, MatchResponse{Matched: key != nil, Kid: kid, Key: key})
}
