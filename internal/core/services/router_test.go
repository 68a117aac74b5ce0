package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/botbridge/routecore/internal/core/domain"
	"github.com/botbridge/routecore/internal/store/cache/memory"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Tag(ctx context.Context, id string) (*domain.CapabilityTag, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CapabilityTag), args.Error(1)
}

func (m *mockStore) Strategy(ctx context.Context, id string) (*domain.CostStrategy, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CostStrategy), args.Error(1)
}

func (m *mockStore) Chain(ctx context.Context, id string) (*domain.FallbackChain, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FallbackChain), args.Error(1)
}

func (m *mockStore) Catalog(ctx context.Context) ([]domain.Candidate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Candidate), args.Error(1)
}

func newTestRouter(store *mockStore, inv *scriptedInvoker) *Router {
	exec := newTestExecutor(inv, newRecordingBreaker())
	return NewRouter(store, nil, exec, DefaultChainDefaults(), "default", zap.NewNop())
}

func TestRoute_RankedSelectionInvokesBestCandidate(t *testing.T) {
	store := &mockStore{}
	store.On("Tag", mock.Anything, "code").
		Return(&domain.CapabilityTag{ID: "code", RequiredSkills: []string{"code"}}, nil)
	store.On("Strategy", mock.Anything, "default").
		Return(&domain.CostStrategy{ID: "default", CostWeight: 1}, nil)
	store.On("Catalog", mock.Anything).Return([]domain.Candidate{
		{Vendor: "pricey", Model: "m1", Protocol: domain.ProtocolOpenAI, Skills: []string{"code"}, InputCostPerMTok: 10, OutputCostPerMTok: 10},
		{Vendor: "cheap", Model: "m2", Protocol: domain.ProtocolOpenAI, Skills: []string{"code"}, InputCostPerMTok: 1, OutputCostPerMTok: 1},
		{Vendor: "unskilled", Model: "m3", Protocol: domain.ProtocolOpenAI, InputCostPerMTok: 0, OutputCostPerMTok: 0},
	}, nil)

	inv := &scriptedInvoker{}
	router := newTestRouter(store, inv)

	result, err := router.Route(context.Background(), domain.RouteRequest{
		ID:     "r1",
		TagIDs: []string{"code"},
	})

	require.NoError(t, err)
	assert.Equal(t, "cheap", result.Vendor)
	store.AssertExpectations(t)
}

func TestRoute_FallsBackThroughSynthesizedChain(t *testing.T) {
	store := &mockStore{}
	store.On("Strategy", mock.Anything, "default").
		Return(&domain.CostStrategy{ID: "default", CostWeight: 1}, nil)
	store.On("Catalog", mock.Anything).Return([]domain.Candidate{
		{Vendor: "cheap", Model: "m1", Protocol: domain.ProtocolOpenAI, InputCostPerMTok: 1, OutputCostPerMTok: 1},
		{Vendor: "pricey", Model: "m2", Protocol: domain.ProtocolOpenAI, InputCostPerMTok: 10, OutputCostPerMTok: 10},
	}, nil)

	// Best candidate rate-limited, second succeeds.
	inv := &scriptedInvoker{script: []invokeOutcome{
		fail(429, domain.ErrorTypeRateLimit),
		fail(429, domain.ErrorTypeRateLimit),
		succeed(200),
	}}
	router := newTestRouter(store, inv)

	result, err := router.Route(context.Background(), domain.RouteRequest{ID: "r1"})

	require.NoError(t, err)
	assert.Equal(t, "pricey", result.Vendor)
	// Default policy: two attempts on the first step before advancing.
	assert.Equal(t, "cheap", result.Attempts[0].Vendor)
	assert.Equal(t, "cheap", result.Attempts[1].Vendor)
}

func TestRoute_NoCapabilityMatch(t *testing.T) {
	store := &mockStore{}
	store.On("Tag", mock.Anything, "vision").
		Return(&domain.CapabilityTag{ID: "vision", Vision: true}, nil)
	store.On("Strategy", mock.Anything, "default").
		Return(&domain.CostStrategy{ID: "default", CostWeight: 1}, nil)
	store.On("Catalog", mock.Anything).Return([]domain.Candidate{
		{Vendor: "text-only", Model: "m1", Protocol: domain.ProtocolOpenAI},
	}, nil)

	inv := &scriptedInvoker{}
	router := newTestRouter(store, inv)

	_, err := router.Route(context.Background(), domain.RouteRequest{
		ID:     "r1",
		TagIDs: []string{"vision"},
	})

	require.Error(t, err)
	assert.Equal(t, domain.KindNoCapabilityMatch, domain.KindOf(err))
	assert.Empty(t, inv.calls)
}

func TestRoute_AllCandidatesCapped(t *testing.T) {
	store := &mockStore{}
	store.On("Strategy", mock.Anything, "default").
		Return(&domain.CostStrategy{
			ID:         "default",
			CostWeight: 1,
			MaxLatency: 10 * time.Millisecond,
		}, nil)
	store.On("Catalog", mock.Anything).Return([]domain.Candidate{
		{Vendor: "slow", Model: "m1", Protocol: domain.ProtocolOpenAI, AvgLatency: time.Second},
	}, nil)

	inv := &scriptedInvoker{}
	router := newTestRouter(store, inv)

	_, err := router.Route(context.Background(), domain.RouteRequest{ID: "r1"})

	require.Error(t, err)
	assert.Equal(t, domain.KindAllCandidatesCapped, domain.KindOf(err))
	assert.Empty(t, inv.calls)
}

func TestRoute_NamedChainBypassesMatching(t *testing.T) {
	store := &mockStore{}
	store.On("Chain", mock.Anything, "pinned").Return(&domain.FallbackChain{
		ID:    "pinned",
		Steps: []domain.ChainStep{step("only")},
	}, nil)

	inv := &scriptedInvoker{}
	router := newTestRouter(store, inv)

	result, err := router.Route(context.Background(), domain.RouteRequest{
		ID:      "r1",
		ChainID: "pinned",
	})

	require.NoError(t, err)
	assert.Equal(t, "only", result.Vendor)
	// Catalog and strategy lookups never happen for a named chain.
	store.AssertNotCalled(t, "Catalog", mock.Anything)
	store.AssertNotCalled(t, "Strategy", mock.Anything, mock.Anything)
}

func TestRoute_UnknownTagFailsResolution(t *testing.T) {
	store := &mockStore{}
	store.On("Tag", mock.Anything, "ghost").Return(nil, errors.New("not found"))

	router := newTestRouter(store, &scriptedInvoker{})

	_, err := router.Route(context.Background(), domain.RouteRequest{
		ID:     "r1",
		TagIDs: []string{"ghost"},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestRoute_ConfigCacheReadThrough(t *testing.T) {
	store := &mockStore{}
	store.On("Strategy", mock.Anything, "default").
		Return(&domain.CostStrategy{ID: "default", CostWeight: 1}, nil).Once()
	store.On("Catalog", mock.Anything).Return([]domain.Candidate{
		{Vendor: "v", Model: "m", Protocol: domain.ProtocolOpenAI},
	}, nil)

	exec := newTestExecutor(&scriptedInvoker{}, newRecordingBreaker())
	router := NewRouter(store, memory.NewMemoryCache(), exec, DefaultChainDefaults(), "default", zap.NewNop())

	_, err := router.Route(context.Background(), domain.RouteRequest{ID: "r1"})
	require.NoError(t, err)

	// Second request hits the cache; the Once() expectation would fail
	// the test if the store saw a second Strategy call.
	_, err = router.Route(context.Background(), domain.RouteRequest{ID: "r2"})
	require.NoError(t, err)

	store.AssertExpectations(t)
}

func TestPreview_ReturnsRankedWithoutInvoking(t *testing.T) {
	store := &mockStore{}
	store.On("Strategy", mock.Anything, "default").
		Return(&domain.CostStrategy{ID: "default", CostWeight: 1}, nil)
	store.On("Catalog", mock.Anything).Return([]domain.Candidate{
		{Vendor: "pricey", Model: "m1", Protocol: domain.ProtocolOpenAI, InputCostPerMTok: 10, OutputCostPerMTok: 10},
		{Vendor: "cheap", Model: "m2", Protocol: domain.ProtocolOpenAI, InputCostPerMTok: 1, OutputCostPerMTok: 1},
	}, nil)

	inv := &scriptedInvoker{}
	router := newTestRouter(store, inv)

	ranked, err := router.Preview(context.Background(), domain.RouteRequest{ID: "r1"})

	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "cheap", ranked[0].Vendor)
	assert.Empty(t, inv.calls)
}
