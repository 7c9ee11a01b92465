package classifier

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spec-kit/dispatch-service/internal/observability"
	"github.com/spec-kit/dispatch-service/internal/rules"
)

// Model is a text-completion backend.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(ctx context.Context, prompt string) (string, error)

func (f ModelFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Fallback reasons reported to metrics and logs.
const (
	ReasonRateLimit  = "rate_limit"
	ReasonTimeout    = "timeout"
	ReasonModelError = "model_error"
	ReasonParse      = "parse"
)

// Options tunes a Gateway.
type Options struct {
	Provider      string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	Logger        *zap.Logger
	Metrics       *observability.Metrics
}

// Gateway wraps a Model with prompting, rate limiting, a deadline and tolerant parsing.
type Gateway struct {
	model    Model
	catalog  *rules.Catalog
	limiter  *rate.Limiter
	timeout  time.Duration
	provider string
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewGateway builds a gateway. A nil catalog sends prompts without a rule profile.
func NewGateway(model Model, catalog *rules.Catalog, opts Options) *Gateway {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	provider := opts.Provider
	if provider == "" {
		provider = "custom"
	}
	return &Gateway{
		model:    model,
		catalog:  catalog,
		limiter:  limiter,
		timeout:  timeout,
		provider: provider,
		logger:   logger,
		metrics:  opts.Metrics,
	}
}

// Analyze classifies a description against the default rule profile.
func (g *Gateway) Analyze(ctx context.Context, description string) Result {
	var profile *rules.Profile
	if g.catalog != nil {
		p := g.catalog.DefaultProfile()
		profile = &p
	}
	return g.analyze(ctx, description, profile)
}

// AnalyzeCategory classifies a description against the profile mapped to categoryID.
func (g *Gateway) AnalyzeCategory(ctx context.Context, categoryID, description string) Result {
	var profile *rules.Profile
	if g.catalog != nil {
		p := g.catalog.ProfileForCategory(categoryID)
		profile = &p
	}
	return g.analyze(ctx, description, profile)
}

func (g *Gateway) analyze(ctx context.Context, description string, profile *rules.Profile) Result {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if g.limiter != nil {
		if err := g.limiter.Wait(callCtx); err != nil {
			return g.fallback(ReasonRateLimit, err)
		}
	}

	start := time.Now()
	raw, err := g.model.Generate(callCtx, buildPrompt(description, profile))
	g.metrics.ObserveClassifier(g.provider, time.Since(start))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return g.fallback(ReasonTimeout, err)
		}
		return g.fallback(ReasonModelError, err)
	}

	result, err := parseOutput(raw)
	if err != nil {
		return g.fallback(ReasonParse, err)
	}
	return result
}

func (g *Gateway) fallback(reason string, err error) Result {
	g.logger.Warn("classifier fallback",
		zap.String("provider", g.provider),
		zap.String("reason", reason),
		zap.Error(err),
	)
	g.metrics.RecordFallback(reason)
	return FallbackResult()
}
