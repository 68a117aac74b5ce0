package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/botbridge/routecore/internal/core/domain"
)

func pricedCandidate(vendor string, costPerMTok float64, latency time.Duration, capScore float64) domain.Candidate {
	return domain.Candidate{
		Vendor:            vendor,
		Model:             vendor + "-model",
		Protocol:          domain.ProtocolOpenAI,
		InputCostPerMTok:  costPerMTok,
		OutputCostPerMTok: costPerMTok,
		AvgLatency:        latency,
		CapabilityScore:   capScore,
	}
}

func TestRankCandidates_CostWeightDominates(t *testing.T) {
	strategy := domain.CostStrategy{
		ID:                "frugal",
		CostWeight:        0.8,
		PerformanceWeight: 0.1,
		CapabilityWeight:  0.1,
	}
	candidates := []domain.Candidate{
		pricedCandidate("expensive", 10, 500*time.Millisecond, 0.95),
		pricedCandidate("mid", 5, 800*time.Millisecond, 0.85),
		pricedCandidate("cheap", 1, 1200*time.Millisecond, 0.70),
	}

	ranked := RankCandidates(strategy, domain.RouteRequest{}, candidates)

	assert.Len(t, ranked, 3)
	assert.Equal(t, "cheap", ranked[0].Vendor)
	assert.Equal(t, "expensive", ranked[2].Vendor)
}

func TestRankCandidates_CapabilityWeightDominates(t *testing.T) {
	strategy := domain.CostStrategy{
		ID:                "quality",
		CostWeight:        0.1,
		PerformanceWeight: 0.1,
		CapabilityWeight:  0.8,
	}
	candidates := []domain.Candidate{
		pricedCandidate("cheap", 1, 1200*time.Millisecond, 0.70),
		pricedCandidate("expensive", 10, 500*time.Millisecond, 0.95),
	}

	ranked := RankCandidates(strategy, domain.RouteRequest{}, candidates)

	assert.Equal(t, "expensive", ranked[0].Vendor)
}

func TestRankCandidates_HardCapsAreFiltersNotPenalties(t *testing.T) {
	strategy := domain.CostStrategy{
		ID:         "capped",
		CostWeight: 1,
		// 1000 in + 1000 out tokens at 10/MTok each side = $0.02.
		MaxCostPerRequest: 0.015,
	}
	candidates := []domain.Candidate{
		pricedCandidate("over-cap", 10, 0, 0.99),
		pricedCandidate("under-cap", 5, 0, 0.50),
	}

	ranked := RankCandidates(strategy, domain.RouteRequest{}, candidates)

	assert.Len(t, ranked, 1)
	assert.Equal(t, "under-cap", ranked[0].Vendor)
}

func TestRankCandidates_AllCapped(t *testing.T) {
	strategy := domain.CostStrategy{
		ID:         "strict",
		MaxLatency: 100 * time.Millisecond,
	}
	candidates := []domain.Candidate{
		pricedCandidate("slow", 1, time.Second, 0.9),
		pricedCandidate("slower", 1, 2*time.Second, 0.9),
	}

	ranked := RankCandidates(strategy, domain.RouteRequest{}, candidates)

	assert.Nil(t, ranked)
}

func TestRankCandidates_RespectsCallerTokenEstimates(t *testing.T) {
	strategy := domain.CostStrategy{
		ID:                "capped",
		CostWeight:        1,
		MaxCostPerRequest: 0.015,
	}
	candidates := []domain.Candidate{
		pricedCandidate("pricey", 10, 0, 0.9),
	}

	// Under the default 1000/1000 estimate pricey costs $0.02 and is
	// filtered; a small declared request fits the cap.
	req := domain.RouteRequest{EstInputTokens: 100, EstOutputTokens: 100}
	ranked := RankCandidates(strategy, req, candidates)

	assert.Len(t, ranked, 1)
}

func TestRankCandidates_ScenarioWeightBoostsRatedCandidate(t *testing.T) {
	strategy := domain.CostStrategy{
		ID:               "balanced",
		CostWeight:       0.6,
		CapabilityWeight: 0.4,
		ScenarioWeights: domain.ScenarioWeights{
			domain.ScenarioCoding: 2,
		},
	}
	coder := pricedCandidate("coder", 6, 0, 0.90)
	coder.ScenarioRatings = map[domain.Scenario]float64{domain.ScenarioCoding: 0.95}
	generalist := pricedCandidate("generalist", 5, 0, 0.80)

	// Without a scenario the generalist wins on cost; the coding
	// scenario multiplies the coder's score past it.
	plain := RankCandidates(strategy, domain.RouteRequest{}, []domain.Candidate{coder, generalist})
	assert.Equal(t, "generalist", plain[0].Vendor)

	coding := RankCandidates(strategy, domain.RouteRequest{Scenario: domain.ScenarioCoding}, []domain.Candidate{coder, generalist})
	assert.Equal(t, "coder", coding[0].Vendor)
}

func TestRankCandidates_TieBreaksByPriorityThenOrder(t *testing.T) {
	strategy := domain.CostStrategy{ID: "flat", CostWeight: 1}

	// Identical pricing: every score ties and priority decides.
	a := pricedCandidate("a", 5, 0, 0.5)
	a.Priority = 1
	b := pricedCandidate("b", 5, 0, 0.5)
	b.Priority = 7
	c := pricedCandidate("c", 5, 0, 0.5)
	c.Priority = 7

	ranked := RankCandidates(strategy, domain.RouteRequest{}, []domain.Candidate{a, b, c})

	assert.Equal(t, "b", ranked[0].Vendor)
	assert.Equal(t, "c", ranked[1].Vendor)
	assert.Equal(t, "a", ranked[2].Vendor)
}
