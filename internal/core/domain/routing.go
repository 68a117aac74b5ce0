package domain

import (
	"encoding/json"
	"time"
)

// Protocol identifies the wire dialect a model endpoint speaks.
type Protocol string

const (
	ProtocolOpenAI    Protocol = "openai"
	ProtocolAnthropic Protocol = "anthropic"
	ProtocolGemini    Protocol = "gemini"
	ProtocolOllama    Protocol = "ollama"
)

func (p Protocol) Valid() bool {
	switch p {
	case ProtocolOpenAI, ProtocolAnthropic, ProtocolGemini, ProtocolOllama:
		return true
	}
	return false
}

// Scenario tags a request with the workload it represents so a strategy
// can weight candidates differently per workload.
type Scenario string

const (
	ScenarioReasoning  Scenario = "reasoning"
	ScenarioCoding     Scenario = "coding"
	ScenarioCreativity Scenario = "creativity"
	ScenarioSpeed      Scenario = "speed"
)

// ErrorType is the semantic class of an upstream failure.
type ErrorType string

const (
	ErrorTypeNone          ErrorType = ""
	ErrorTypeTimeout       ErrorType = "timeout"
	ErrorTypeRateLimit     ErrorType = "rate_limit"
	ErrorTypeOverloaded    ErrorType = "overloaded"
	ErrorTypeServer        ErrorType = "server_error"
	ErrorTypeAuth          ErrorType = "auth"
	ErrorTypeBadRequest    ErrorType = "bad_request"
	ErrorTypeContentFilter ErrorType = "content_filter"
)

// CapabilityTag is a named requirement profile. Every non-zero field is a
// hard filter; Priority only breaks ties between candidates that already
// satisfy all hard constraints.
type CapabilityTag struct {
	ID               string   `json:"id" yaml:"id" validate:"required"`
	Category         string   `json:"category" yaml:"category"`
	Priority         int      `json:"priority" yaml:"priority"`
	RequiredProtocol Protocol `json:"required_protocol,omitempty" yaml:"required_protocol"`
	RequiredModels   []string `json:"required_models,omitempty" yaml:"required_models"`
	RequiredSkills   []string `json:"required_skills,omitempty" yaml:"required_skills"`
	ExtendedThinking bool     `json:"extended_thinking,omitempty" yaml:"extended_thinking"`
	CacheControl     bool     `json:"cache_control,omitempty" yaml:"cache_control"`
	Vision           bool     `json:"vision,omitempty" yaml:"vision"`
	// MaxCostPerMTok caps blended price per million tokens. Zero means no cap.
	MaxCostPerMTok float64 `json:"max_cost_per_mtok,omitempty" yaml:"max_cost_per_mtok"`
	Builtin        bool    `json:"builtin" yaml:"builtin"`
}

// ScenarioWeights are per-scenario multipliers a strategy may declare.
type ScenarioWeights map[Scenario]float64

// CostStrategy is a scoring policy balancing cost, performance and
// capability. Weights are expected to be comparable magnitudes; they are
// not required to sum to one.
type CostStrategy struct {
	ID                string  `json:"id" yaml:"id" validate:"required"`
	CostWeight        float64 `json:"cost_weight" yaml:"cost_weight"`
	PerformanceWeight float64 `json:"performance_weight" yaml:"performance_weight"`
	CapabilityWeight  float64 `json:"capability_weight" yaml:"capability_weight"`

	// Hard caps, applied as filters before scoring. Zero disables a cap.
	MaxCostPerRequest  float64       `json:"max_cost_per_request,omitempty" yaml:"max_cost_per_request"`
	MaxLatency         time.Duration `json:"max_latency,omitempty" yaml:"max_latency"`
	MinCapabilityScore float64       `json:"min_capability_score,omitempty" yaml:"min_capability_score"`

	ScenarioWeights ScenarioWeights `json:"scenario_weights,omitempty" yaml:"scenario_weights"`
}

// ChainStep is one ordered entry of a fallback chain.
type ChainStep struct {
	Vendor       string   `json:"vendor" yaml:"vendor" validate:"required"`
	Model        string   `json:"model" yaml:"model" validate:"required"`
	Protocol     Protocol `json:"protocol" yaml:"protocol" validate:"required"`
	CredentialID string   `json:"credential_id,omitempty" yaml:"credential_id"`

	ExtendedThinking bool `json:"extended_thinking,omitempty" yaml:"extended_thinking"`
	CacheControl     bool `json:"cache_control,omitempty" yaml:"cache_control"`
	Vision           bool `json:"vision,omitempty" yaml:"vision"`
}

// FallbackChain is an ordered, retryable sequence of model steps. Step
// order is strict sequential priority and is never reordered at runtime.
type FallbackChain struct {
	ID    string      `json:"id" yaml:"id" validate:"required"`
	Steps []ChainStep `json:"models" yaml:"models" validate:"required,min=1,dive"`

	// Failures matching either set advance the chain after retries are
	// spent; anything else is terminal.
	TriggerStatusCodes []int       `json:"trigger_status_codes,omitempty" yaml:"trigger_status_codes"`
	TriggerErrorTypes  []ErrorType `json:"trigger_error_types,omitempty" yaml:"trigger_error_types"`

	TriggerTimeout time.Duration `json:"trigger_timeout,omitempty" yaml:"trigger_timeout"`
	// MaxRetries bounds total invocation attempts within a single step.
	MaxRetries int           `json:"max_retries,omitempty" yaml:"max_retries"`
	RetryDelay time.Duration `json:"retry_delay,omitempty" yaml:"retry_delay"`

	// PreserveProtocol skips steps whose protocol differs from the
	// request's; when false the request may be translated per step.
	PreserveProtocol bool `json:"preserve_protocol" yaml:"preserve_protocol"`
}

// Triggered reports whether a failure class should advance the chain.
// Timeouts always advance regardless of the declared trigger sets.
func (c FallbackChain) Triggered(et ErrorType, status int) bool {
	if et == ErrorTypeTimeout {
		return true
	}
	for _, t := range c.TriggerErrorTypes {
		if t == et {
			return true
		}
	}
	for _, s := range c.TriggerStatusCodes {
		if s == status {
			return true
		}
	}
	return false
}

// Candidate is one catalog entry the matcher and scorer operate on.
type Candidate struct {
	Vendor       string   `json:"vendor" yaml:"vendor"`
	Model        string   `json:"model" yaml:"model"`
	Protocol     Protocol `json:"protocol" yaml:"protocol"`
	CredentialID string   `json:"credential_id,omitempty" yaml:"credential_id"`

	Skills           []string `json:"skills,omitempty" yaml:"skills"`
	ExtendedThinking bool     `json:"extended_thinking,omitempty" yaml:"extended_thinking"`
	CacheControl     bool     `json:"cache_control,omitempty" yaml:"cache_control"`
	Vision           bool     `json:"vision,omitempty" yaml:"vision"`

	InputCostPerMTok  float64       `json:"input_cost_per_mtok" yaml:"input_cost_per_mtok"`
	OutputCostPerMTok float64       `json:"output_cost_per_mtok" yaml:"output_cost_per_mtok"`
	AvgLatency        time.Duration `json:"avg_latency" yaml:"avg_latency"`
	// CapabilityScore is a raw quality rating in [0,1].
	CapabilityScore float64              `json:"capability_score" yaml:"capability_score"`
	ScenarioRatings map[Scenario]float64 `json:"scenario_ratings,omitempty" yaml:"scenario_ratings"`

	// Priority is the tie-break signal attached by the matcher from the
	// highest-priority tag the candidate satisfied. Not a filter.
	Priority int `json:"priority,omitempty" yaml:"-"`
}

// BlendedCostPerMTok is the cost signal used for ranking and tag caps.
func (c Candidate) BlendedCostPerMTok() float64 {
	return (c.InputCostPerMTok + c.OutputCostPerMTok) / 2
}

// EstimateCost prices a request against this candidate.
func (c Candidate) EstimateCost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1e6*c.InputCostPerMTok +
		float64(outputTokens)/1e6*c.OutputCostPerMTok
}

// HasSkill reports whether the candidate declares the given skill.
func (c Candidate) HasSkill(skill string) bool {
	for _, s := range c.Skills {
		if s == skill {
			return true
		}
	}
	return false
}

// Step converts a ranked candidate into a chain step for synthesized chains.
func (c Candidate) Step() ChainStep {
	return ChainStep{
		Vendor:           c.Vendor,
		Model:            c.Model,
		Protocol:         c.Protocol,
		CredentialID:     c.CredentialID,
		ExtendedThinking: c.ExtendedThinking,
		CacheControl:     c.CacheControl,
		Vision:           c.Vision,
	}
}

// RouteRequest is the engine's inbound unit of work. The payload is opaque
// to the engine; only routing metadata is inspected.
type RouteRequest struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenant_id"`
	TagIDs   []string `json:"tag_ids,omitempty"`

	// StrategyID selects a CostStrategy; empty means the configured default.
	StrategyID string `json:"strategy_id,omitempty"`
	// ChainID names a pre-declared fallback chain, bypassing catalog matching.
	ChainID string `json:"chain_id,omitempty"`

	Scenario Scenario `json:"scenario,omitempty"`
	Protocol Protocol `json:"protocol,omitempty"`

	EstInputTokens  int `json:"est_input_tokens,omitempty"`
	EstOutputTokens int `json:"est_output_tokens,omitempty"`

	Payload json.RawMessage `json:"payload,omitempty"`
}

// Attempt records one invocation attempt for observability.
type Attempt struct {
	Vendor     string        `json:"vendor"`
	Model      string        `json:"model"`
	Number     int           `json:"number"`
	StatusCode int           `json:"status_code,omitempty"`
	ErrorType  ErrorType     `json:"error_type,omitempty"`
	Latency    time.Duration `json:"latency"`
}

// RouteResult is a successful routing outcome.
type RouteResult struct {
	RequestID  string          `json:"request_id"`
	Vendor     string          `json:"vendor"`
	Model      string          `json:"model"`
	Protocol   Protocol        `json:"protocol"`
	StatusCode int             `json:"status_code"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Attempts   []Attempt       `json:"attempts,omitempty"`
	Latency    time.Duration   `json:"latency"`
}
