package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/botbridge/routecore/internal/core/domain"
	"github.com/botbridge/routecore/internal/core/ports"
	"github.com/botbridge/routecore/internal/store/cache"
)

// ChainDefaults is the trigger policy applied to chains synthesized from
// ranked candidates.
type ChainDefaults struct {
	TriggerStatusCodes []int              `mapstructure:"trigger_status_codes"`
	TriggerErrorTypes  []domain.ErrorType `mapstructure:"trigger_error_types"`
	Timeout            time.Duration      `mapstructure:"timeout"`
	MaxRetries         int                `mapstructure:"max_retries"`
	RetryDelay         time.Duration      `mapstructure:"retry_delay"`
}

// DefaultChainDefaults covers the transient failure classes every vendor
// exhibits: throttling, overload and generic 5xx.
func DefaultChainDefaults() ChainDefaults {
	return ChainDefaults{
		TriggerStatusCodes: []int{408, 429, 500, 502, 503, 504, 529},
		TriggerErrorTypes: []domain.ErrorType{
			domain.ErrorTypeTimeout,
			domain.ErrorTypeRateLimit,
			domain.ErrorTypeOverloaded,
			domain.ErrorTypeServer,
		},
		Timeout:    60 * time.Second,
		MaxRetries: 2,
		RetryDelay: 250 * time.Millisecond,
	}
}

// WithFallbacks fills any unset field from DefaultChainDefaults, so a
// partially specified config section still yields a usable policy.
func (d ChainDefaults) WithFallbacks() ChainDefaults {
	def := DefaultChainDefaults()
	if len(d.TriggerStatusCodes) == 0 {
		d.TriggerStatusCodes = def.TriggerStatusCodes
	}
	if len(d.TriggerErrorTypes) == 0 {
		d.TriggerErrorTypes = def.TriggerErrorTypes
	}
	if d.Timeout <= 0 {
		d.Timeout = def.Timeout
	}
	if d.MaxRetries <= 0 {
		d.MaxRetries = def.MaxRetries
	}
	if d.RetryDelay <= 0 {
		d.RetryDelay = def.RetryDelay
	}
	return d
}

// Router is the engine's entry point. It resolves tags and strategy for
// a request, obtains a ranked candidate list (or a pre-declared chain)
// and drives the executor. All retry policy lives in the chain and the
// executor; the router never retries at its own level.
type Router struct {
	store    ports.ConfigStore
	cache    cache.CacheService
	exec     *Executor
	defaults ChainDefaults

	// DefaultStrategyID is used when a request names no strategy.
	defaultStrategyID string

	cacheTTL time.Duration
	logger   *zap.Logger
}

type RouterOption func(*Router)

// WithConfigCacheTTL overrides how long resolved tags, strategies and
// chains stay in the read-through cache.
func WithConfigCacheTTL(ttl time.Duration) RouterOption {
	return func(r *Router) {
		if ttl > 0 {
			r.cacheTTL = ttl
		}
	}
}

func NewRouter(
	store ports.ConfigStore,
	cacheSvc cache.CacheService,
	exec *Executor,
	defaults ChainDefaults,
	defaultStrategyID string,
	logger *zap.Logger,
	opts ...RouterOption,
) *Router {
	r := &Router{
		store:             store,
		cache:             cacheSvc,
		exec:              exec,
		defaults:          defaults,
		defaultStrategyID: defaultStrategyID,
		cacheTTL:          configCacheTTL,
		logger:            logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route produces a final invocation result or exactly one of the four
// routing error kinds.
func (r *Router) Route(ctx context.Context, req domain.RouteRequest) (*domain.RouteResult, error) {
	start := time.Now()

	chain, err := r.selectChain(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := r.exec.Execute(ctx, *chain, req)
	if err != nil {
		r.logger.Warn("Routing failed",
			zap.String("request_id", req.ID),
			zap.String("tenant", req.TenantID),
			zap.String("chain", chain.ID),
			zap.Error(err),
		)
		return nil, err
	}

	r.logger.Info("Request routed",
		zap.String("request_id", req.ID),
		zap.String("tenant", req.TenantID),
		zap.String("vendor", result.Vendor),
		zap.String("model", result.Model),
		zap.Int("attempts", len(result.Attempts)),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// Preview runs selection only (matcher + scorer) without any network
// calls. Used by the dry-run endpoint.
func (r *Router) Preview(ctx context.Context, req domain.RouteRequest) ([]domain.Candidate, error) {
	if req.ChainID != "" {
		chain, err := r.resolveChain(ctx, req.ChainID)
		if err != nil {
			return nil, err
		}
		candidates := make([]domain.Candidate, 0, len(chain.Steps))
		for _, s := range chain.Steps {
			candidates = append(candidates, domain.Candidate{
				Vendor:       s.Vendor,
				Model:        s.Model,
				Protocol:     s.Protocol,
				CredentialID: s.CredentialID,
			})
		}
		return candidates, nil
	}
	return r.rank(ctx, req)
}

// selectChain turns a request into the single chain the executor runs:
// either the pre-declared chain it names, or an ephemeral chain
// synthesized from ranked candidates. Ranked selection and fallback
// execution share one mechanism.
func (r *Router) selectChain(ctx context.Context, req domain.RouteRequest) (*domain.FallbackChain, error) {
	if req.ChainID != "" {
		return r.resolveChain(ctx, req.ChainID)
	}

	ranked, err := r.rank(ctx, req)
	if err != nil {
		return nil, err
	}

	steps := make([]domain.ChainStep, 0, len(ranked))
	for _, c := range ranked {
		steps = append(steps, c.Step())
	}

	return &domain.FallbackChain{
		ID:                 "synthesized:" + req.ID,
		Steps:              steps,
		TriggerStatusCodes: r.defaults.TriggerStatusCodes,
		TriggerErrorTypes:  r.defaults.TriggerErrorTypes,
		TriggerTimeout:     r.defaults.Timeout,
		MaxRetries:         r.defaults.MaxRetries,
		RetryDelay:         r.defaults.RetryDelay,
	}, nil
}

func (r *Router) rank(ctx context.Context, req domain.RouteRequest) ([]domain.Candidate, error) {
	tags, err := r.resolveTags(ctx, req.TagIDs)
	if err != nil {
		return nil, err
	}

	strategy, err := r.resolveStrategy(ctx, req.StrategyID)
	if err != nil {
		return nil, err
	}

	catalog, err := r.store.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading model catalog: %w", err)
	}

	matched := MatchCandidates(tags, catalog)
	if len(matched) == 0 {
		return nil, domain.NoCapabilityMatch(
			fmt.Sprintf("no catalog model satisfies tags %v", req.TagIDs))
	}

	ranked := RankCandidates(*strategy, req, matched)
	if len(ranked) == 0 {
		return nil, domain.AllCandidatesCapped(
			fmt.Sprintf("strategy %q caps eliminated all %d matched candidates", strategy.ID, len(matched)))
	}
	return ranked, nil
}

func (r *Router) resolveTags(ctx context.Context, ids []string) ([]domain.CapabilityTag, error) {
	tags := make([]domain.CapabilityTag, 0, len(ids))
	for _, id := range ids {
		var tag domain.CapabilityTag
		if r.cached(ctx, "tag:"+id, &tag) {
			tags = append(tags, tag)
			continue
		}
		t, err := r.store.Tag(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolving capability tag %q: %w", id, err)
		}
		r.cacheSet(ctx, "tag:"+id, t)
		tags = append(tags, *t)
	}
	return tags, nil
}

func (r *Router) resolveStrategy(ctx context.Context, id string) (*domain.CostStrategy, error) {
	if id == "" {
		id = r.defaultStrategyID
	}
	var s domain.CostStrategy
	if r.cached(ctx, "strategy:"+id, &s) {
		return &s, nil
	}
	strategy, err := r.store.Strategy(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolving cost strategy %q: %w", id, err)
	}
	r.cacheSet(ctx, "strategy:"+id, strategy)
	return strategy, nil
}

func (r *Router) resolveChain(ctx context.Context, id string) (*domain.FallbackChain, error) {
	var c domain.FallbackChain
	if r.cached(ctx, "chain:"+id, &c) {
		return &c, nil
	}
	chain, err := r.store.Chain(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolving fallback chain %q: %w", id, err)
	}
	r.cacheSet(ctx, "chain:"+id, chain)
	return chain, nil
}

const configCacheTTL = 30 * time.Second

func (r *Router) cached(ctx context.Context, key string, dest interface{}) bool {
	if r.cache == nil {
		return false
	}
	return r.cache.Get(ctx, key, dest) == nil
}

func (r *Router) cacheSet(ctx context.Context, key string, value interface{}) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, key, value, r.cacheTTL); err != nil {
		r.logger.Debug("Config cache write failed", zap.String("key", key), zap.Error(err))
	}
}
