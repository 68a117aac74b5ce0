package services

import (
	"sort"

	"github.com/botbridge/routecore/internal/core/domain"
)

// Token estimates used for the per-request cost cap when the caller does
// not supply its own.
const (
	defaultEstInputTokens  = 1000
	defaultEstOutputTokens = 1000
)

// RankCandidates orders matcher output under a cost strategy, best first.
// Strategy hard caps are filters applied before scoring, not penalties.
// Sub-scores are min-max normalized over the surviving set, so the
// cheapest candidate has costScore 1 and the most expensive 0. Ties break
// by tag priority, then by declaration order (stable sort).
func RankCandidates(strategy domain.CostStrategy, req domain.RouteRequest, candidates []domain.Candidate) []domain.Candidate {
	inTok, outTok := req.EstInputTokens, req.EstOutputTokens
	if inTok <= 0 {
		inTok = defaultEstInputTokens
	}
	if outTok <= 0 {
		outTok = defaultEstOutputTokens
	}

	survivors := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if strategy.MaxCostPerRequest > 0 && c.EstimateCost(inTok, outTok) > strategy.MaxCostPerRequest {
			continue
		}
		if strategy.MaxLatency > 0 && c.AvgLatency > strategy.MaxLatency {
			continue
		}
		if strategy.MinCapabilityScore > 0 && c.CapabilityScore < strategy.MinCapabilityScore {
			continue
		}
		survivors = append(survivors, c)
	}
	if len(survivors) == 0 {
		return nil
	}

	costs := make([]float64, len(survivors))
	lats := make([]float64, len(survivors))
	caps := make([]float64, len(survivors))
	for i, c := range survivors {
		costs[i] = c.BlendedCostPerMTok()
		lats[i] = float64(c.AvgLatency)
		caps[i] = c.CapabilityScore
	}

	scores := make([]float64, len(survivors))
	for i, c := range survivors {
		// Lower cost and latency are better, so those axes invert.
		costScore := 1 - normalize(costs[i], costs)
		perfScore := 1 - normalize(lats[i], lats)
		capScore := normalize(caps[i], caps)

		score := strategy.CostWeight*costScore +
			strategy.PerformanceWeight*perfScore +
			strategy.CapabilityWeight*capScore

		if req.Scenario != "" {
			if w, ok := strategy.ScenarioWeights[req.Scenario]; ok {
				score *= 1 + w*c.ScenarioRatings[req.Scenario]
			}
		}
		scores[i] = score
	}

	idx := make([]int, len(survivors))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if scores[idx[a]] != scores[idx[b]] {
			return scores[idx[a]] > scores[idx[b]]
		}
		return survivors[idx[a]].Priority > survivors[idx[b]].Priority
	})

	ranked := make([]domain.Candidate, len(survivors))
	for i, j := range idx {
		ranked[i] = survivors[j]
	}
	return ranked
}

// normalize maps v to [0,1] relative to the set's spread. A degenerate
// spread (all equal) yields 1 so the axis drops out of the ranking.
func normalize(v float64, all []float64) float64 {
	min, max := all[0], all[0]
	for _, x := range all[1:] {
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
	}
	if max == min {
		return 1
	}
	return (v - min) / (max - min)
}
