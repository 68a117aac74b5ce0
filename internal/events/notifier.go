package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Transition is a circuit breaker state change, delivered asynchronously
// to subscribers (log sinks, alerting hooks). State names are plain
// strings so this package stays free of engine imports.
type Transition struct {
	Endpoint string    `json:"endpoint"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	Reason   string    `json:"reason,omitempty"`
	At       time.Time `json:"at"`
}

// Notifier fans transitions out to subscribers on a dedicated worker.
// Publishing never blocks the request path; when the buffer is full the
// event is dropped with a warning.
type Notifier struct {
	logger *zap.Logger
	ch     chan Transition

	mu   sync.RWMutex
	subs []func(Transition)

	stopOnce sync.Once
}

func NewNotifier(logger *zap.Logger, buffer int) *Notifier {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Notifier{
		logger: logger,
		ch:     make(chan Transition, buffer),
	}
}

// Subscribe registers a handler. Handlers run sequentially on the worker
// goroutine and must not block for long.
func (n *Notifier) Subscribe(fn func(Transition)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs = append(n.subs, fn)
}

// Publish enqueues a transition, dropping it if the buffer is full.
func (n *Notifier) Publish(t Transition) {
	select {
	case n.ch <- t:
	default:
		n.logger.Warn("Event buffer full, dropping breaker transition",
			zap.String("endpoint", t.Endpoint),
			zap.String("to", t.To),
		)
	}
}

// Start launches the dispatch worker.
func (n *Notifier) Start(ctx context.Context) {
	go n.worker(ctx)
}

// Stop closes the queue; the worker drains remaining events and exits.
func (n *Notifier) Stop() {
	n.stopOnce.Do(func() { close(n.ch) })
}

func (n *Notifier) worker(ctx context.Context) {
	for {
		select {
		case t, ok := <-n.ch:
			if !ok {
				return
			}
			n.dispatch(t)
		case <-ctx.Done():
			// Drain whatever is already buffered before exiting.
			for {
				select {
				case t, ok := <-n.ch:
					if !ok {
						return
					}
					n.dispatch(t)
				default:
					return
				}
			}
		}
	}
}

func (n *Notifier) dispatch(t Transition) {
	n.mu.RLock()
	subs := n.subs
	n.mu.RUnlock()

	for _, fn := range subs {
		fn(t)
	}
}
