package api

import (
	"encoding/json"

	"github.com/botbridge/routecore/internal/core/domain"
)

// RouteRequest is the inbound routing call. Payload is passed to the
// selected model verbatim.
type RouteRequest struct {
	// Tags name the capability profiles a candidate must satisfy.
	Tags []string `json:"tags,omitempty"`

	// Strategy selects a cost strategy; empty uses the configured default.
	Strategy string `json:"strategy,omitempty"`

	// Chain names a pre-declared fallback chain, bypassing selection.
	Chain string `json:"chain,omitempty"`

	Scenario string `json:"scenario,omitempty" binding:"omitempty,oneof=reasoning coding creativity speed"`
	Protocol string `json:"protocol,omitempty" binding:"omitempty,oneof=openai anthropic gemini ollama"`

	EstInputTokens  int `json:"est_input_tokens,omitempty" binding:"omitempty,min=0"`
	EstOutputTokens int `json:"est_output_tokens,omitempty" binding:"omitempty,min=0"`

	// Payload is required for Route, optional for Preview.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ToDomain converts the DTO, attaching server-assigned identifiers.
func (r *RouteRequest) ToDomain(requestID, tenantID string) domain.RouteRequest {
	return domain.RouteRequest{
		ID:              requestID,
		TenantID:        tenantID,
		TagIDs:          r.Tags,
		StrategyID:      r.Strategy,
		ChainID:         r.Chain,
		Scenario:        domain.Scenario(r.Scenario),
		Protocol:        domain.Protocol(r.Protocol),
		EstInputTokens:  r.EstInputTokens,
		EstOutputTokens: r.EstOutputTokens,
		Payload:         r.Payload,
	}
}
