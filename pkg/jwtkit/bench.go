package jwtkit

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// BenchResult reports signing throughput for one algorithm.
type BenchResult struct {
	Alg        Algorithm     `json:"alg"`
	Iterations int           `json:"iterations"`
	Elapsed    time.Duration `json:"elapsed"`
	OpsPerSec  int           `json:"opsPerSec"`
}

// Benchmark signs n tokens with alg and reports operations per second. When
// key is empty a secret or key pair is generated first.
func Benchmark(ctx context.Context, s *Signer, alg Algorithm, key KeyMaterial, n int) (BenchResult, error) {
	if n <= 0 {
		n = 100
	}
	if s == nil {
		s = defaultSigner
	}
	if alg == None {
		return BenchResult{}, fmt.Errorf("nothing to benchmark for %s: %w", alg, ErrUnsupportedAlgorithm)
	}

	if len(key) == 0 {
		generated, err := benchKey(alg)
		if err != nil {
			return BenchResult{}, err
		}
		key = generated
	}

	now := time.Now().Unix()
	header := Header{"alg": string(alg), "typ": "JWT"}
	claims := Claims{
		"sub":  "1234567890",
		"name": "John Doe",
		"iat":  now,
		"exp":  now + 3600,
		"data": strings.Repeat("a", 1024),
	}

	start := time.Now()
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return BenchResult{}, err
		}
		claims["nonce"] = i
		if _, err := s.Sign(ctx, header, claims, key); err != nil {
			return BenchResult{}, err
		}
	}
	elapsed := time.Since(start)

	res := BenchResult{Alg: alg, Iterations: n, Elapsed: elapsed}
	if elapsed > 0 {
		res.OpsPerSec = int(float64(n) / elapsed.Seconds())
	}
	return res, nil
}

func benchKey(alg Algorithm) (KeyMaterial, error) {
	if alg.IsSymmetric() {
		secret, err := GenerateSecret(32)
		if err != nil {
			return nil, err
		}
		return KeyMaterial(secret), nil
	}
	kp, err := GenerateKeyPair(alg, 0)
	if err != nil {
		return nil, err
	}
	return KeyMaterial(kp.PrivateKey), nil
}
