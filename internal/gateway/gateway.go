// Package gateway issues chat-completion requests against a rotating pool of
// model providers. A failed attempt advances a shared rotation pointer so
// subsequent requests start from a likely-healthy provider.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/mentor/internal/telemetry"
)

var (
	// ErrNoCredentials is returned when no API key is configured. No request
	// is attempted and the rotation pointer does not move.
	ErrNoCredentials = errors.New("no provider credentials configured")

	// ErrAllProvidersFailed is the terminal condition of a full rotation:
	// every provider was attempted once and none succeeded.
	ErrAllProvidersFailed = errors.New("all providers failed")
)

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 120 * time.Second

// Rotation is the shared current-provider pointer. It is gateway-instance
// state, not per-request state: a failure on one request shifts which
// provider serves the next. The atomic index keeps concurrent pipeline
// invocations race-free; which provider a racing request tries first is
// deliberately unspecified.
type Rotation struct {
	idx atomic.Int64
}

// NewRotation returns a rotation pointing at the first provider.
func NewRotation() *Rotation {
	return &Rotation{}
}

// Current returns the current index within a pool of size n.
func (r *Rotation) Current(n int) int {
	if n <= 0 {
		return 0
	}
	idx := int(r.idx.Load()) % n
	if idx < 0 {
		idx += n
	}
	return idx
}

// Advance moves to the next provider, wrapping at the end of the pool.
func (r *Rotation) Advance(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.idx.Add(1)) % n
}

// Config configures a Gateway.
type Config struct {
	APIKey    string
	BaseURL   string
	Providers []string
	Timeout   time.Duration
	SiteName  string
}

// Gateway is the rotating provider pool.
type Gateway struct {
	apiKey     string
	baseURL    string
	providers  []string
	siteName   string
	rotation   *Rotation
	httpClient *http.Client
	metrics    *telemetry.Metrics
}

// New creates a Gateway. A nil rotation gets a fresh one, so tests can
// construct independent gateways with independent rotation state.
func New(cfg Config, rotation *Rotation, metrics *telemetry.Metrics) *Gateway {
	if rotation == nil {
		rotation = NewRotation()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Gateway{
		apiKey:    cfg.APIKey,
		baseURL:   cfg.BaseURL,
		providers: append([]string(nil), cfg.Providers...),
		siteName:  cfg.SiteName,
		rotation:  rotation,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		metrics: metrics,
	}
}

// HasCredentials reports whether a provider API key is configured.
func (g *Gateway) HasCredentials() bool {
	return g.apiKey != "" && len(g.providers) > 0
}

// ProviderCount returns the size of the provider pool.
func (g *Gateway) ProviderCount() int {
	return len(g.providers)
}

// CurrentProvider returns the provider the next attempt will use.
func (g *Gateway) CurrentProvider() string {
	if len(g.providers) == 0 {
		return ""
	}
	return g.providers[g.rotation.Current(len(g.providers))]
}

// Advance moves the rotation to the next provider. Callers use this when a
// response arrived but was unusable (for example, unparseable structured
// output), which counts against the provider the same as a transport
// failure.
func (g *Gateway) Advance() {
	g.rotation.Advance(len(g.providers))
	g.recordRotation(context.Background())
}

// Complete issues one request against the current provider. On success the
// rotation is unchanged; on any failure it advances and the error is
// returned. The gateway never loops internally - retry composition belongs
// to the caller.
func (g *Gateway) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if !g.HasCredentials() {
		return "", ErrNoCredentials
	}

	provider := g.CurrentProvider()
	text, err := g.completeOnce(ctx, provider, systemPrompt, userPrompt)
	if err != nil {
		log.Warn().Str("provider", provider).Err(err).Msg("Provider attempt failed, rotating")
		g.rotation.Advance(len(g.providers))
		g.recordRotation(ctx)
		g.recordCompletion(ctx, provider, false)
		return "", fmt.Errorf("provider %s: %w", provider, err)
	}

	g.recordCompletion(ctx, provider, true)
	return text, nil
}

// CompleteWithRotation attempts each provider once, in rotation starting
// from the current index, returning the first success. When every provider
// fails in this call it returns ErrAllProvidersFailed; the caller composes
// its own fallback payload.
func (g *Gateway) CompleteWithRotation(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if !g.HasCredentials() {
		return "", ErrNoCredentials
	}

	var lastErr error
	for attempt := 0; attempt < len(g.providers); attempt++ {
		text, err := g.Complete(ctx, systemPrompt, userPrompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}

	g.recordExhausted(ctx)
	return "", fmt.Errorf("%w: last error: %v", ErrAllProvidersFailed, lastErr)
}

func (g *Gateway) recordCompletion(ctx context.Context, provider string, ok bool) {
	if g.metrics != nil {
		g.metrics.Completion(ctx, provider, ok)
	}
}

func (g *Gateway) recordRotation(ctx context.Context) {
	if g.metrics != nil {
		g.metrics.Rotation(ctx)
	}
}

func (g *Gateway) recordExhausted(ctx context.Context) {
	if g.metrics != nil {
		g.metrics.Exhausted(ctx)
	}
}
