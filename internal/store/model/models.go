package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/botbridge/routecore/internal/core/domain"
)

// CapabilityTag is the row shape for the capability_tags table. List
// fields are stored as JSON text.
type CapabilityTag struct {
	ID               string    `db:"id"`
	Category         string    `db:"category"`
	Priority         int       `db:"priority"`
	RequiredProtocol string    `db:"required_protocol"`
	RequiredModels   string    `db:"required_models"`
	RequiredSkills   string    `db:"required_skills"`
	ExtendedThinking bool      `db:"extended_thinking"`
	CacheControl     bool      `db:"cache_control"`
	Vision           bool      `db:"vision"`
	MaxCostPerMTok   float64   `db:"max_cost_per_mtok"`
	Builtin          bool      `db:"builtin"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func TagFromDomain(t *domain.CapabilityTag, now time.Time) (*CapabilityTag, error) {
	models, err := marshalList(t.RequiredModels)
	if err != nil {
		return nil, err
	}
	skills, err := marshalList(t.RequiredSkills)
	if err != nil {
		return nil, err
	}
	return &CapabilityTag{
		ID:               t.ID,
		Category:         t.Category,
		Priority:         t.Priority,
		RequiredProtocol: string(t.RequiredProtocol),
		RequiredModels:   models,
		RequiredSkills:   skills,
		ExtendedThinking: t.ExtendedThinking,
		CacheControl:     t.CacheControl,
		Vision:           t.Vision,
		MaxCostPerMTok:   t.MaxCostPerMTok,
		Builtin:          t.Builtin,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func (r *CapabilityTag) ToDomain() (*domain.CapabilityTag, error) {
	var models, skills []string
	if err := unmarshalList(r.RequiredModels, &models); err != nil {
		return nil, fmt.Errorf("tag %s: decoding required_models: %w", r.ID, err)
	}
	if err := unmarshalList(r.RequiredSkills, &skills); err != nil {
		return nil, fmt.Errorf("tag %s: decoding required_skills: %w", r.ID, err)
	}
	return &domain.CapabilityTag{
		ID:               r.ID,
		Category:         r.Category,
		Priority:         r.Priority,
		RequiredProtocol: domain.Protocol(r.RequiredProtocol),
		RequiredModels:   models,
		RequiredSkills:   skills,
		ExtendedThinking: r.ExtendedThinking,
		CacheControl:     r.CacheControl,
		Vision:           r.Vision,
		MaxCostPerMTok:   r.MaxCostPerMTok,
		Builtin:          r.Builtin,
	}, nil
}

// CostStrategy is the row shape for the cost_strategies table.
// Durations are stored as integer milliseconds.
type CostStrategy struct {
	ID                 string    `db:"id"`
	CostWeight         float64   `db:"cost_weight"`
	PerformanceWeight  float64   `db:"performance_weight"`
	CapabilityWeight   float64   `db:"capability_weight"`
	MaxCostPerRequest  float64   `db:"max_cost_per_request"`
	MaxLatencyMS       int64     `db:"max_latency_ms"`
	MinCapabilityScore float64   `db:"min_capability_score"`
	ScenarioWeights    string    `db:"scenario_weights"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

func StrategyFromDomain(s *domain.CostStrategy, now time.Time) (*CostStrategy, error) {
	weights, err := marshalMap(s.ScenarioWeights)
	if err != nil {
		return nil, err
	}
	return &CostStrategy{
		ID:                 s.ID,
		CostWeight:         s.CostWeight,
		PerformanceWeight:  s.PerformanceWeight,
		CapabilityWeight:   s.CapabilityWeight,
		MaxCostPerRequest:  s.MaxCostPerRequest,
		MaxLatencyMS:       s.MaxLatency.Milliseconds(),
		MinCapabilityScore: s.MinCapabilityScore,
		ScenarioWeights:    weights,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

func (r *CostStrategy) ToDomain() (*domain.CostStrategy, error) {
	var weights domain.ScenarioWeights
	if r.ScenarioWeights != "" && r.ScenarioWeights != "{}" {
		if err := json.Unmarshal([]byte(r.ScenarioWeights), &weights); err != nil {
			return nil, fmt.Errorf("strategy %s: decoding scenario_weights: %w", r.ID, err)
		}
	}
	return &domain.CostStrategy{
		ID:                 r.ID,
		CostWeight:         r.CostWeight,
		PerformanceWeight:  r.PerformanceWeight,
		CapabilityWeight:   r.CapabilityWeight,
		MaxCostPerRequest:  r.MaxCostPerRequest,
		MaxLatency:         time.Duration(r.MaxLatencyMS) * time.Millisecond,
		MinCapabilityScore: r.MinCapabilityScore,
		ScenarioWeights:    weights,
	}, nil
}

// FallbackChain is the row shape for the fallback_chains table. Steps
// and trigger sets are stored as JSON text.
type FallbackChain struct {
	ID                 string    `db:"id"`
	Steps              string    `db:"steps"`
	TriggerStatusCodes string    `db:"trigger_status_codes"`
	TriggerErrorTypes  string    `db:"trigger_error_types"`
	TriggerTimeoutMS   int64     `db:"trigger_timeout_ms"`
	MaxRetries         int       `db:"max_retries"`
	RetryDelayMS       int64     `db:"retry_delay_ms"`
	PreserveProtocol   bool      `db:"preserve_protocol"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

func ChainFromDomain(c *domain.FallbackChain, now time.Time) (*FallbackChain, error) {
	steps, err := json.Marshal(c.Steps)
	if err != nil {
		return nil, err
	}
	statuses, err := json.Marshal(c.TriggerStatusCodes)
	if err != nil {
		return nil, err
	}
	errorTypes, err := json.Marshal(c.TriggerErrorTypes)
	if err != nil {
		return nil, err
	}
	return &FallbackChain{
		ID:                 c.ID,
		Steps:              string(steps),
		TriggerStatusCodes: string(statuses),
		TriggerErrorTypes:  string(errorTypes),
		TriggerTimeoutMS:   c.TriggerTimeout.Milliseconds(),
		MaxRetries:         c.MaxRetries,
		RetryDelayMS:       c.RetryDelay.Milliseconds(),
		PreserveProtocol:   c.PreserveProtocol,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

func (r *FallbackChain) ToDomain() (*domain.FallbackChain, error) {
	var steps []domain.ChainStep
	if err := json.Unmarshal([]byte(r.Steps), &steps); err != nil {
		return nil, fmt.Errorf("chain %s: decoding steps: %w", r.ID, err)
	}
	var statuses []int
	if err := unmarshalList(r.TriggerStatusCodes, &statuses); err != nil {
		return nil, fmt.Errorf("chain %s: decoding trigger_status_codes: %w", r.ID, err)
	}
	var errorTypes []domain.ErrorType
	if err := unmarshalList(r.TriggerErrorTypes, &errorTypes); err != nil {
		return nil, fmt.Errorf("chain %s: decoding trigger_error_types: %w", r.ID, err)
	}
	return &domain.FallbackChain{
		ID:                 r.ID,
		Steps:              steps,
		TriggerStatusCodes: statuses,
		TriggerErrorTypes:  errorTypes,
		TriggerTimeout:     time.Duration(r.TriggerTimeoutMS) * time.Millisecond,
		MaxRetries:         r.MaxRetries,
		RetryDelay:         time.Duration(r.RetryDelayMS) * time.Millisecond,
		PreserveProtocol:   r.PreserveProtocol,
	}, nil
}

// CatalogModel is the row shape for the catalog_models table, keyed by
// (vendor, model).
type CatalogModel struct {
	Vendor            string    `db:"vendor"`
	Model             string    `db:"model"`
	Protocol          string    `db:"protocol"`
	CredentialID      string    `db:"credential_id"`
	Skills            string    `db:"skills"`
	ExtendedThinking  bool      `db:"extended_thinking"`
	CacheControl      bool      `db:"cache_control"`
	Vision            bool      `db:"vision"`
	InputCostPerMTok  float64   `db:"input_cost_per_mtok"`
	OutputCostPerMTok float64   `db:"output_cost_per_mtok"`
	AvgLatencyMS      int64     `db:"avg_latency_ms"`
	CapabilityScore   float64   `db:"capability_score"`
	ScenarioRatings   string    `db:"scenario_ratings"`
	IsEnabled         bool      `db:"is_enabled"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func CatalogModelFromDomain(c *domain.Candidate, now time.Time) (*CatalogModel, error) {
	skills, err := marshalList(c.Skills)
	if err != nil {
		return nil, err
	}
	ratings, err := marshalMap(c.ScenarioRatings)
	if err != nil {
		return nil, err
	}
	return &CatalogModel{
		Vendor:            c.Vendor,
		Model:             c.Model,
		Protocol:          string(c.Protocol),
		CredentialID:      c.CredentialID,
		Skills:            skills,
		ExtendedThinking:  c.ExtendedThinking,
		CacheControl:      c.CacheControl,
		Vision:            c.Vision,
		InputCostPerMTok:  c.InputCostPerMTok,
		OutputCostPerMTok: c.OutputCostPerMTok,
		AvgLatencyMS:      c.AvgLatency.Milliseconds(),
		CapabilityScore:   c.CapabilityScore,
		ScenarioRatings:   ratings,
		IsEnabled:         true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

func (r *CatalogModel) ToDomain() (*domain.Candidate, error) {
	var skills []string
	if err := unmarshalList(r.Skills, &skills); err != nil {
		return nil, fmt.Errorf("catalog %s/%s: decoding skills: %w", r.Vendor, r.Model, err)
	}
	var ratings map[domain.Scenario]float64
	if r.ScenarioRatings != "" && r.ScenarioRatings != "{}" {
		if err := json.Unmarshal([]byte(r.ScenarioRatings), &ratings); err != nil {
			return nil, fmt.Errorf("catalog %s/%s: decoding scenario_ratings: %w", r.Vendor, r.Model, err)
		}
	}
	return &domain.Candidate{
		Vendor:            r.Vendor,
		Model:             r.Model,
		Protocol:          domain.Protocol(r.Protocol),
		CredentialID:      r.CredentialID,
		Skills:            skills,
		ExtendedThinking:  r.ExtendedThinking,
		CacheControl:      r.CacheControl,
		Vision:            r.Vision,
		InputCostPerMTok:  r.InputCostPerMTok,
		OutputCostPerMTok: r.OutputCostPerMTok,
		AvgLatency:        time.Duration(r.AvgLatencyMS) * time.Millisecond,
		CapabilityScore:   r.CapabilityScore,
		ScenarioRatings:   ratings,
	}, nil
}

func marshalList[T any](list []T) (string, error) {
	if len(list) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(list)
	return string(data), err
}

func marshalMap[K comparable, V any](m map[K]V) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	return string(data), err
}

// unmarshalList leaves dest nil for empty input so round-trips preserve
// nil slices.
func unmarshalList[T any](data string, dest *[]T) error {
	if data == "" || data == "[]" {
		return nil
	}
	return json.Unmarshal([]byte(data), dest)
}
