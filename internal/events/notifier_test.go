package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNotifierDeliversToAllSubscribers(t *testing.T) {
	n := NewNotifier(zap.NewNop(), 4)

	var mu sync.Mutex
	var got []string
	for i := 0; i < 2; i++ {
		n.Subscribe(func(tr Transition) {
			mu.Lock()
			got = append(got, tr.Endpoint)
			mu.Unlock()
		})
	}

	n.Start(context.Background())
	n.Publish(Transition{Endpoint: "anthropic#abc", From: "closed", To: "open", At: time.Now()})
	n.Stop()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestNotifierDropsWhenBufferFull(t *testing.T) {
	// Worker never started, so the buffer fills and stays full.
	n := NewNotifier(zap.NewNop(), 1)

	n.Publish(Transition{Endpoint: "a"})
	n.Publish(Transition{Endpoint: "b"}) // dropped, must not block

	var mu sync.Mutex
	var got []string
	n.Subscribe(func(tr Transition) {
		mu.Lock()
		got = append(got, tr.Endpoint)
		mu.Unlock()
	})
	n.Start(context.Background())
	n.Stop()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []string{"a"}, got)
	mu.Unlock()
}

func TestNotifierStopIsIdempotent(t *testing.T) {
	n := NewNotifier(zap.NewNop(), 1)
	n.Start(context.Background())
	n.Stop()
	n.Stop()
}
