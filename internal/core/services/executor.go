package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/botbridge/routecore/internal/core/domain"
	"github.com/botbridge/routecore/internal/core/ports"
)

// Executor drives one logical request through an ordered fallback chain:
// retries within a step, advances across steps on persistent failure, and
// gates every attempt through the circuit breaker. Steps are attempted
// strictly in order and never concurrently; an earlier step is never
// revisited once advanced past.
type Executor struct {
	invoker     ports.Invoker
	breaker     ports.Breaker
	clock       ports.Clock
	translator  ports.ProtocolTranslator
	endpointKey ports.EndpointKeyFunc
	logger      *zap.Logger
}

func NewExecutor(
	invoker ports.Invoker,
	breaker ports.Breaker,
	clock ports.Clock,
	translator ports.ProtocolTranslator,
	endpointKey ports.EndpointKeyFunc,
	logger *zap.Logger,
) *Executor {
	return &Executor{
		invoker:     invoker,
		breaker:     breaker,
		clock:       clock,
		translator:  translator,
		endpointKey: endpointKey,
		logger:      logger,
	}
}

// Execute walks the chain for one request. It returns the first
// successful invocation, a terminal RouteError for non-retryable
// application failures, a ChainExhausted RouteError when every step was
// skipped or retried out, or ctx.Err() on caller cancellation.
func (e *Executor) Execute(ctx context.Context, chain domain.FallbackChain, req domain.RouteRequest) (*domain.RouteResult, error) {
	maxRetries := chain.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	start := e.clock.Now()
	var attempts []domain.Attempt
	var lastET domain.ErrorType
	var lastStatus int
	var lastVendor, lastModel string

	for _, step := range chain.Steps {
		if chain.PreserveProtocol && req.Protocol != "" && step.Protocol != req.Protocol {
			e.logger.Debug("Skipping step with mismatched protocol",
				zap.String("vendor", step.Vendor),
				zap.String("model", step.Model),
				zap.String("step_protocol", string(step.Protocol)),
				zap.String("request_protocol", string(req.Protocol)),
			)
			continue
		}

		key := e.endpointKey(step.Vendor, step.CredentialID)
		if !e.breaker.Allow(key) {
			// No call was made, so nothing is recorded against the step.
			e.logger.Debug("Skipping step with open circuit",
				zap.String("vendor", step.Vendor),
				zap.String("model", step.Model),
			)
			continue
		}

		payload, err := e.stepPayload(ctx, step, req)
		if err != nil {
			return nil, err
		}

		for attempt := 1; attempt <= maxRetries; attempt++ {
			inv, err := e.attempt(ctx, step, payload, chain.TriggerTimeout, attempt, &attempts)
			if err != nil {
				// Caller cancellation: abort without touching breaker state.
				return nil, err
			}

			if inv.OK() {
				e.breaker.RecordSuccess(key)
				return &domain.RouteResult{
					RequestID:  req.ID,
					Vendor:     step.Vendor,
					Model:      step.Model,
					Protocol:   step.Protocol,
					StatusCode: inv.StatusCode,
					Payload:    inv.Payload,
					Attempts:   attempts,
					Latency:    e.clock.Now().Sub(start),
				}, nil
			}

			lastET, lastStatus = inv.ErrorType, inv.StatusCode
			lastVendor, lastModel = step.Vendor, step.Model

			if !chain.Triggered(inv.ErrorType, inv.StatusCode) {
				// Non-retryable application error: no retry, no advance.
				return nil, domain.Terminal(
					fmt.Sprintf("upstream rejected request: %s", inv.ErrorType),
					step.Vendor, step.Model, inv.ErrorType, inv.StatusCode,
				)
			}

			e.breaker.RecordFailure(key, string(inv.ErrorType))

			if attempt < maxRetries {
				if err := e.clock.Sleep(ctx, chain.RetryDelay); err != nil {
					return nil, err
				}
			}
		}
		// Step retried out; advance.
	}

	msg := "every step unavailable or exhausted"
	if len(attempts) == 0 {
		msg = "no step attempted"
	}
	return nil, domain.ChainExhausted(msg, lastVendor, lastModel, lastET, lastStatus)
}

// attempt performs one invocation with the chain's per-attempt timeout
// and classifies transport failures into the uniform invocation shape.
func (e *Executor) attempt(
	ctx context.Context,
	step domain.ChainStep,
	payload json.RawMessage,
	timeout time.Duration,
	number int,
	attempts *[]domain.Attempt,
) (*ports.Invocation, error) {
	attemptCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	began := e.clock.Now()
	inv, err := e.invoker.Invoke(attemptCtx, step, payload)
	elapsed := e.clock.Now().Sub(began)

	if err != nil {
		if ctx.Err() != nil {
			// Parent cancelled: not a step failure.
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			inv = &ports.Invocation{ErrorType: domain.ErrorTypeTimeout}
		} else {
			inv = &ports.Invocation{ErrorType: domain.ErrorTypeServer}
		}
	}

	*attempts = append(*attempts, domain.Attempt{
		Vendor:     step.Vendor,
		Model:      step.Model,
		Number:     number,
		StatusCode: inv.StatusCode,
		ErrorType:  inv.ErrorType,
		Latency:    elapsed,
	})
	return inv, nil
}

func (e *Executor) stepPayload(ctx context.Context, step domain.ChainStep, req domain.RouteRequest) (json.RawMessage, error) {
	if req.Protocol == "" || step.Protocol == req.Protocol || e.translator == nil {
		return req.Payload, nil
	}
	translated, err := e.translator.Translate(ctx, req.Payload, req.Protocol, step.Protocol)
	if err != nil {
		return nil, fmt.Errorf("protocol translation %s -> %s failed: %w", req.Protocol, step.Protocol, err)
	}
	return translated, nil
}
