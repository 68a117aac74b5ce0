package services

import (
	"github.com/botbridge/routecore/internal/core/domain"
)

// MatchCandidates filters the catalog down to candidates satisfying every
// hard constraint of every applied tag. A candidate missing any single
// requirement is excluded outright, never merely scored down. Surviving
// candidates carry the highest tag priority as a tie-break signal.
//
// An empty result is not an error here; the router decides whether that
// is fatal or whether a pre-declared chain takes over.
func MatchCandidates(tags []domain.CapabilityTag, catalog []domain.Candidate) []domain.Candidate {
	if len(tags) == 0 {
		return append([]domain.Candidate(nil), catalog...)
	}

	matched := make([]domain.Candidate, 0, len(catalog))
	for _, c := range catalog {
		if !satisfiesAll(c, tags) {
			continue
		}
		c.Priority = maxPriority(tags)
		matched = append(matched, c)
	}
	return matched
}

func satisfiesAll(c domain.Candidate, tags []domain.CapabilityTag) bool {
	for _, tag := range tags {
		if !satisfies(c, tag) {
			return false
		}
	}
	return true
}

func satisfies(c domain.Candidate, tag domain.CapabilityTag) bool {
	if tag.RequiredProtocol != "" && c.Protocol != tag.RequiredProtocol {
		return false
	}
	if len(tag.RequiredModels) > 0 && !containsString(tag.RequiredModels, c.Model) {
		return false
	}
	for _, skill := range tag.RequiredSkills {
		if !c.HasSkill(skill) {
			return false
		}
	}
	if tag.ExtendedThinking && !c.ExtendedThinking {
		return false
	}
	if tag.CacheControl && !c.CacheControl {
		return false
	}
	if tag.Vision && !c.Vision {
		return false
	}
	if tag.MaxCostPerMTok > 0 && c.BlendedCostPerMTok() > tag.MaxCostPerMTok {
		return false
	}
	return true
}

func maxPriority(tags []domain.CapabilityTag) int {
	max := 0
	for _, t := range tags {
		if t.Priority > max {
			max = t.Priority
		}
	}
	return max
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
