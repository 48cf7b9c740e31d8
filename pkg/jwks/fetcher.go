package jwks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mydebugger/jwtkit/pkg/jwtkit"
	"github.com/mydebugger/jwtkit/pkg/metrics"
	"github.com/mydebugger/jwtkit/pkg/telemetry"
)

const (
	// maxDocumentSize bounds key set and discovery responses.
	maxDocumentSize = 1 << 20
	// fetchTimeout bounds a shared download once no caller is waiting on it.
	fetchTimeout = 30 * time.Second
)

var (
	ErrNoKeys      = errors.New("key set contains no keys")
	ErrNoJWKSURI   = errors.New("discovery document has no jwks_uri")
	ErrKeyNotFound = errors.New("no key matches kid")
)

// Options configures a Fetcher.
type Options struct {
	HTTPClient *http.Client
	Store      KeyStore
	Logger     *slog.Logger
}

// Fetcher retrieves JWKS documents over HTTP and caches them in a KeyStore.
// Concurrent requests for the same URL share one round trip.
type Fetcher struct {
	client *http.Client
	store  KeyStore
	log    *slog.Logger
	group  singleflight.Group
}

// NewFetcher creates a Fetcher. Zero options select an instrumented client
// with a 10 second timeout, a default MemoryStore and a discarding logger.
func NewFetcher(opts Options) *Fetcher {
	f := &Fetcher{client: opts.HTTPClient, store: opts.Store, log: opts.Logger}
	if f.client == nil {
		f.client = telemetry.NewHTTPClient(10 * time.Second)
	}
	if f.store == nil {
		f.store = NewMemoryStore(0, 0)
	}
	if f.log == nil {
		f.log = slog.New(slog.DiscardHandler)
	}
	return f
}

// FetchJWKS returns the key set at url, from the store when fresh.
func (f *Fetcher) FetchJWKS(ctx context.Context, url string) (*jwtkit.JWKS, error) {
	ctx, span := telemetry.StartSpan(ctx, "jwks.fetch", telemetry.AttrJWKSURL.String(url))
	defer span.End()

	if set, ok := f.store.Get(url); ok {
		span.SetAttributes(telemetry.AttrJWKSCached.Bool(true))
		metrics.JWKSFetches.WithLabelValues(metrics.ResultCached).Inc()
		return set, nil
	}
	span.SetAttributes(telemetry.AttrJWKSCached.Bool(false))

	// The shared download outlives any single caller; each caller stops
	// waiting when its own context ends.
	ch := f.group.DoChan(url, func() (any, error) {
		if set, ok := f.store.Get(url); ok {
			return set, nil
		}
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		set, err := f.download(dctx, url)
		if err != nil {
			return nil, err
		}
		f.store.Set(url, set)
		return set, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		res = singleflight.Result{Err: ctx.Err()}
	}
	v, err, shared := res.Val, res.Err, res.Shared
	if err != nil {
		metrics.JWKSFetches.WithLabelValues(metrics.ResultError).Inc()
		telemetry.SetSpanError(span, err)
		f.log.Warn("JWKS fetch failed", "url", url, "error", err)
		return nil, err
	}
	metrics.JWKSFetches.WithLabelValues(metrics.ResultOK).Inc()
	set := v.(*jwtkit.JWKS)
	f.log.Debug("JWKS fetched", "url", url, "keys", len(set.Keys), "shared", shared)
	return set, nil
}

// Invalidate drops url from the store so the next fetch goes to the network.
func (f *Fetcher) Invalidate(url string) {
	f.store.Delete(url)
}

// KeyForToken fetches the key set at url and returns the key named by the
// token's kid. When the kid is unknown the key set is refetched once in case
// keys were rotated.
func (f *Fetcher) KeyForToken(ctx context.Context, url string, t *jwtkit.DecodedToken) (*jwtkit.JWK, error) {
	kid := ""
	if t != nil && t.Header != nil {
		kid = t.Header.Kid()
	}
	if kid == "" {
		return nil, fmt.Errorf("%w: token has no kid header", ErrKeyNotFound)
	}

	set, err := f.FetchJWKS(ctx, url)
	if err != nil {
		return nil, err
	}
	if k := jwtkit.FindKey(set.Keys, kid); k != nil {
		return k, nil
	}

	f.log.Info("Kid not in cached key set, refreshing", "kid", kid, "url", url)
	f.Invalidate(url)
	set, err = f.FetchJWKS(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh JWKS: %w", err)
	}
	if k := jwtkit.FindKey(set.Keys, kid); k != nil {
		return k, nil
	}
	return nil, fmt.Errorf("%w %q", ErrKeyNotFound, kid)
}

func (f *Fetcher) download(ctx context.Context, url string) (*jwtkit.JWKS, error) {
	body, err := f.get(ctx, url)
	if err != nil {
		return nil, err
	}
	var set jwtkit.JWKS
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("failed to parse JWKS: %w", err)
	}
	if len(set.Keys) == 0 {
		return nil, ErrNoKeys
	}
	return &set, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
