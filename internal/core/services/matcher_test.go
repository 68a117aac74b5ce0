package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/botbridge/routecore/internal/core/domain"
)

func testCatalog() []domain.Candidate {
	return []domain.Candidate{
		{
			Vendor:            "anthropic",
			Model:             "claude-large",
			Protocol:          domain.ProtocolAnthropic,
			Skills:            []string{"tool_use", "code"},
			ExtendedThinking:  true,
			Vision:            true,
			InputCostPerMTok:  3,
			OutputCostPerMTok: 15,
		},
		{
			Vendor:            "openai",
			Model:             "gpt-large",
			Protocol:          domain.ProtocolOpenAI,
			Skills:            []string{"tool_use"},
			Vision:            true,
			InputCostPerMTok:  2.5,
			OutputCostPerMTok: 10,
		},
		{
			Vendor:            "local",
			Model:             "small-llm",
			Protocol:          domain.ProtocolOllama,
			Skills:            []string{"code"},
			InputCostPerMTok:  0,
			OutputCostPerMTok: 0,
		},
	}
}

func TestMatchCandidates_NoTagsReturnsCatalog(t *testing.T) {
	catalog := testCatalog()

	matched := MatchCandidates(nil, catalog)

	assert.Len(t, matched, len(catalog))
	// Must be a copy, not the caller's slice.
	matched[0].Vendor = "mutated"
	assert.Equal(t, "anthropic", catalog[0].Vendor)
}

func TestMatchCandidates_HardFilterExcludes(t *testing.T) {
	tests := []struct {
		name    string
		tag     domain.CapabilityTag
		vendors []string
	}{
		{
			name:    "protocol filter",
			tag:     domain.CapabilityTag{ID: "anthropic-only", RequiredProtocol: domain.ProtocolAnthropic},
			vendors: []string{"anthropic"},
		},
		{
			name:    "skill filter",
			tag:     domain.CapabilityTag{ID: "coder", RequiredSkills: []string{"code"}},
			vendors: []string{"anthropic", "local"},
		},
		{
			name:    "feature flag filter",
			tag:     domain.CapabilityTag{ID: "thinker", ExtendedThinking: true},
			vendors: []string{"anthropic"},
		},
		{
			name:    "model allowlist",
			tag:     domain.CapabilityTag{ID: "pinned", RequiredModels: []string{"gpt-large"}},
			vendors: []string{"openai"},
		},
		{
			name:    "cost ceiling",
			tag:     domain.CapabilityTag{ID: "cheap", MaxCostPerMTok: 7},
			vendors: []string{"openai", "local"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matched := MatchCandidates([]domain.CapabilityTag{tt.tag}, testCatalog())

			got := make([]string, 0, len(matched))
			for _, c := range matched {
				got = append(got, c.Vendor)
			}
			assert.Equal(t, tt.vendors, got)
		})
	}
}

func TestMatchCandidates_MultiTagUnion(t *testing.T) {
	tags := []domain.CapabilityTag{
		{ID: "coder", RequiredSkills: []string{"code"}},
		{ID: "vision", Vision: true},
	}

	// Only the anthropic model has both code and vision.
	matched := MatchCandidates(tags, testCatalog())

	assert.Len(t, matched, 1)
	assert.Equal(t, "anthropic", matched[0].Vendor)
}

func TestMatchCandidates_EmptyResultIsNotAnError(t *testing.T) {
	tags := []domain.CapabilityTag{
		{ID: "impossible", RequiredProtocol: domain.ProtocolGemini},
	}

	matched := MatchCandidates(tags, testCatalog())

	assert.Empty(t, matched)
}

func TestMatchCandidates_AttachesHighestTagPriority(t *testing.T) {
	tags := []domain.CapabilityTag{
		{ID: "low", Priority: 1, Vision: true},
		{ID: "high", Priority: 9, RequiredSkills: []string{"tool_use"}},
	}

	matched := MatchCandidates(tags, testCatalog())

	assert.Len(t, matched, 2)
	for _, c := range matched {
		assert.Equal(t, 9, c.Priority)
	}
}
