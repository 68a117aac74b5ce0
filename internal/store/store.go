package store

import (
	"context"

	"github.com/botbridge/routecore/internal/core/domain"
	"github.com/botbridge/routecore/internal/core/ports"
)

// Repository is the main contract for the data layer.
type Repository interface {
	Tags() TagRepository
	Strategies() StrategyRepository
	Chains() ChainRepository
	Models() ModelRepository

	// transaction support
	WithTx(ctx context.Context, fn func(repo Repository) error) error

	Close() error
}

type TagRepository interface {
	// Get retrieves a capability tag by id.
	Get(ctx context.Context, id string) (*domain.CapabilityTag, error)
	// List returns all tags.
	List(ctx context.Context) ([]domain.CapabilityTag, error)
	// Upsert creates or replaces a tag.
	Upsert(ctx context.Context, tag *domain.CapabilityTag) error
	// Delete removes a tag. Built-in tags cannot be deleted.
	Delete(ctx context.Context, id string) error
}

type StrategyRepository interface {
	Get(ctx context.Context, id string) (*domain.CostStrategy, error)
	List(ctx context.Context) ([]domain.CostStrategy, error)
	Upsert(ctx context.Context, strategy *domain.CostStrategy) error
	Delete(ctx context.Context, id string) error
}

type ChainRepository interface {
	Get(ctx context.Context, id string) (*domain.FallbackChain, error)
	List(ctx context.Context) ([]domain.FallbackChain, error)
	Upsert(ctx context.Context, chain *domain.FallbackChain) error
	Delete(ctx context.Context, id string) error
}

type ModelRepository interface {
	// ListEnabled returns the routable catalog.
	ListEnabled(ctx context.Context) ([]domain.Candidate, error)
	// Upsert creates or replaces a catalog entry keyed by (vendor, model).
	Upsert(ctx context.Context, c *domain.Candidate) error
	// SetEnabled toggles a catalog entry without removing it.
	SetEnabled(ctx context.Context, vendor, model string, enabled bool) error
	Delete(ctx context.Context, vendor, model string) error
}

// Config adapts a Repository to the read-only view the routing engine
// consumes.
func Config(repo Repository) ports.ConfigStore {
	return configStore{repo: repo}
}

type configStore struct {
	repo Repository
}

func (s configStore) Tag(ctx context.Context, id string) (*domain.CapabilityTag, error) {
	return s.repo.Tags().Get(ctx, id)
}

func (s configStore) Strategy(ctx context.Context, id string) (*domain.CostStrategy, error) {
	return s.repo.Strategies().Get(ctx, id)
}

func (s configStore) Chain(ctx context.Context, id string) (*domain.FallbackChain, error) {
	return s.repo.Chains().Get(ctx, id)
}

func (s configStore) Catalog(ctx context.Context) ([]domain.Candidate, error) {
	return s.repo.Models().ListEnabled(ctx)
}
