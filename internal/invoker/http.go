package invoker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/botbridge/routecore/internal/core/domain"
	"github.com/botbridge/routecore/internal/core/ports"
	"github.com/botbridge/routecore/internal/httpclient"
)

func init() {
	Register("http", func(cfg Config) (ports.Invoker, error) {
		return NewHTTPInvoker(cfg)
	})
}

// Endpoint is one upstream a vendor/credential pair maps to.
type Endpoint struct {
	BaseURL string            `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`
	APIKey  string            `mapstructure:"api_key" yaml:"api_key"`
	Headers map[string]string `mapstructure:"headers" yaml:"headers"`
}

// Config is the invoker's endpoint table. Keys are "vendor" or
// "vendor:credential_id" for vendors with multiple credentials; the
// longer key wins.
type Config struct {
	Endpoints map[string]Endpoint `mapstructure:"endpoints" yaml:"endpoints"`
	Timeout   time.Duration       `mapstructure:"timeout" yaml:"timeout"`
}

// HTTPInvoker posts the opaque payload to the endpoint resolved for a
// step and classifies the outcome. It never inspects payload contents.
type HTTPInvoker struct {
	cfg    Config
	client httpclient.HTTPClient
}

func NewHTTPInvoker(cfg Config) (*HTTPInvoker, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, errors.New("invoker: no endpoints configured")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPInvoker{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}, nil
}

func (h *HTTPInvoker) Invoke(ctx context.Context, step domain.ChainStep, payload json.RawMessage) (*ports.Invocation, error) {
	ep, err := h.endpoint(step)
	if err != nil {
		return nil, err
	}

	url := ep.BaseURL + protocolPath(step.Protocol)
	headers := authHeaders(step.Protocol, ep.APIKey)
	for k, v := range ep.Headers {
		headers[k] = v
	}

	var response json.RawMessage
	if err := httpclient.SendRequest(ctx, h.client, http.MethodPost, url, headers, payload, &response); err != nil {
		var upstream *httpclient.UpstreamError
		if errors.As(err, &upstream) {
			return &ports.Invocation{
				StatusCode: upstream.StatusCode,
				ErrorType:  ClassifyStatus(upstream.StatusCode),
				Payload:    upstream.Body,
			}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, context.DeadlineExceeded
		}
		return nil, err
	}

	return &ports.Invocation{StatusCode: http.StatusOK, Payload: response}, nil
}

func (h *HTTPInvoker) endpoint(step domain.ChainStep) (Endpoint, error) {
	if step.CredentialID != "" {
		if ep, ok := h.cfg.Endpoints[step.Vendor+":"+step.CredentialID]; ok {
			return ep, nil
		}
	}
	if ep, ok := h.cfg.Endpoints[step.Vendor]; ok {
		return ep, nil
	}
	return Endpoint{}, fmt.Errorf("no endpoint configured for vendor %q", step.Vendor)
}

// protocolPath maps a protocol to its canonical completion path.
func protocolPath(p domain.Protocol) string {
	switch p {
	case domain.ProtocolAnthropic:
		return "/v1/messages"
	case domain.ProtocolGemini:
		return "/v1beta/models:generateContent"
	case domain.ProtocolOllama:
		return "/api/chat"
	default:
		return "/v1/chat/completions"
	}
}

func authHeaders(p domain.Protocol, apiKey string) map[string]string {
	headers := make(map[string]string)
	if apiKey == "" {
		return headers
	}
	switch p {
	case domain.ProtocolAnthropic:
		headers["x-api-key"] = apiKey
		headers["anthropic-version"] = "2023-06-01"
	case domain.ProtocolGemini:
		headers["x-goog-api-key"] = apiKey
	default:
		headers["Authorization"] = "Bearer " + apiKey
	}
	return headers
}

// ClassifyStatus maps an upstream HTTP status to the failure taxonomy.
func ClassifyStatus(status int) domain.ErrorType {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrorTypeAuth
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return domain.ErrorTypeTimeout
	case http.StatusTooManyRequests:
		return domain.ErrorTypeRateLimit
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.ErrorTypeBadRequest
	case http.StatusServiceUnavailable, 529:
		return domain.ErrorTypeOverloaded
	}
	if status >= 500 {
		return domain.ErrorTypeServer
	}
	return domain.ErrorTypeBadRequest
}
