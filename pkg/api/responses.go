package api

import (
	"encoding/json"

	"github.com/botbridge/routecore/internal/core/domain"
)

// RouteResponse is the successful routing outcome.
type RouteResponse struct {
	RequestID string          `json:"request_id"`
	Vendor    string          `json:"vendor"`
	Model     string          `json:"model"`
	Protocol  string          `json:"protocol"`
	LatencyMS int64           `json:"latency_ms"`
	Attempts  []AttemptView   `json:"attempts,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// AttemptView is one invocation attempt, for client-side observability.
type AttemptView struct {
	Vendor    string `json:"vendor"`
	Model     string `json:"model"`
	Number    int    `json:"number"`
	Status    int    `json:"status,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

func NewRouteResponse(result *domain.RouteResult) RouteResponse {
	attempts := make([]AttemptView, 0, len(result.Attempts))
	for _, a := range result.Attempts {
		attempts = append(attempts, AttemptView{
			Vendor:    a.Vendor,
			Model:     a.Model,
			Number:    a.Number,
			Status:    a.StatusCode,
			ErrorType: string(a.ErrorType),
			LatencyMS: a.Latency.Milliseconds(),
		})
	}
	return RouteResponse{
		RequestID: result.RequestID,
		Vendor:    result.Vendor,
		Model:     result.Model,
		Protocol:  string(result.Protocol),
		LatencyMS: result.Latency.Milliseconds(),
		Attempts:  attempts,
		Payload:   result.Payload,
	}
}

// PreviewResponse lists ranked candidates without invoking any of them.
type PreviewResponse struct {
	Candidates []CandidateView `json:"candidates"`
}

type CandidateView struct {
	Vendor   string `json:"vendor"`
	Model    string `json:"model"`
	Protocol string `json:"protocol"`
	Rank     int    `json:"rank"`
}

func NewPreviewResponse(candidates []domain.Candidate) PreviewResponse {
	views := make([]CandidateView, 0, len(candidates))
	for i, c := range candidates {
		views = append(views, CandidateView{
			Vendor:   c.Vendor,
			Model:    c.Model,
			Protocol: string(c.Protocol),
			Rank:     i + 1,
		})
	}
	return PreviewResponse{Candidates: views}
}
