package invoker

import (
	"fmt"
	"sync"

	"github.com/botbridge/routecore/internal/core/ports"
)

// Factory builds an invoker from its endpoint table.
type Factory func(cfg Config) (ports.Invoker, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register installs a named invoker factory. Registering the same name
// twice is a programming error.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("invoker factory %s already registered", kind))
	}
	factories[kind] = f
}

// Get looks up a registered factory by name.
func Get(kind string) (Factory, error) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := factories[kind]
	if !ok {
		return nil, fmt.Errorf("invoker factory not found for kind: %s", kind)
	}
	return f, nil
}

// New builds an invoker of the given kind.
func New(kind string, cfg Config) (ports.Invoker, error) {
	f, err := Get(kind)
	if err != nil {
		return nil, err
	}
	return f(cfg)
}
