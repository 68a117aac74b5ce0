package ports

import (
	"context"
	"encoding/json"

	"github.com/botbridge/routecore/internal/core/domain"
)

// ConfigStore supplies validated routing configuration objects by id.
// Implementations are read-only from the engine's point of view.
type ConfigStore interface {
	Tag(ctx context.Context, id string) (*domain.CapabilityTag, error)
	Strategy(ctx context.Context, id string) (*domain.CostStrategy, error)
	Chain(ctx context.Context, id string) (*domain.FallbackChain, error)
	Catalog(ctx context.Context) ([]domain.Candidate, error)
}

// Invocation is the uniform outcome shape every invoker returns. A zero
// ErrorType with a 2xx status means success.
type Invocation struct {
	StatusCode int
	ErrorType  domain.ErrorType
	Payload    json.RawMessage
}

// OK reports whether the invocation succeeded.
func (i *Invocation) OK() bool {
	return i.ErrorType == domain.ErrorTypeNone && i.StatusCode >= 200 && i.StatusCode < 300
}

// Invoker performs one model invocation. Vendor wire protocols live
// entirely behind this interface. A non-nil error is reserved for
// transport-level failures (including context cancellation); upstream
// application failures come back as an Invocation.
type Invoker interface {
	Invoke(ctx context.Context, step domain.ChainStep, payload json.RawMessage) (*Invocation, error)
}

// ProtocolTranslator converts a request payload between protocols when a
// chain permits crossing protocol boundaries.
type ProtocolTranslator interface {
	Translate(ctx context.Context, payload json.RawMessage, from, to domain.Protocol) (json.RawMessage, error)
}

// Breaker is the health gate the executor consults per endpoint key.
type Breaker interface {
	Allow(key string) bool
	RecordSuccess(key string)
	RecordFailure(key string, reason string)
}

// EndpointKeyFunc maps a (vendor, credential) pair to the opaque key used
// to scope breaker state. Must be stable and collision-free across
// distinct credentials.
type EndpointKeyFunc func(vendor, credentialID string) string
