package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/botbridge/routecore/internal/core/domain"
	"github.com/botbridge/routecore/internal/server/middleware"
	"github.com/botbridge/routecore/internal/server/validator"
)

type stubService struct {
	result     *domain.RouteResult
	candidates []domain.Candidate
	err        error
}

func (s *stubService) Route(ctx context.Context, req domain.RouteRequest) (*domain.RouteResult, error) {
	return s.result, s.err
}

func (s *stubService) Preview(ctx context.Context, req domain.RouteRequest) ([]domain.Candidate, error) {
	return s.candidates, s.err
}

func newTestEngine(service RoutingService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	validator.InitValidator()
	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(middleware.ErrorHandler(zap.NewNop()))

	handler := NewRouteHandler(service)
	engine.POST("/v1/route", handler.Route)
	engine.POST("/v1/route/preview", handler.Preview)
	return engine
}

func postJSON(engine *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestRoute_Success(t *testing.T) {
	service := &stubService{result: &domain.RouteResult{
		RequestID:  "r1",
		Vendor:     "anthropic",
		Model:      "claude-large",
		Protocol:   domain.ProtocolAnthropic,
		StatusCode: 200,
		Payload:    json.RawMessage(`{"id":"resp"}`),
		Attempts: []domain.Attempt{
			{Vendor: "anthropic", Model: "claude-large", Number: 1, StatusCode: 200},
		},
	}}
	engine := newTestEngine(service)

	w := postJSON(engine, "/v1/route", `{"tags":["code"],"payload":{"prompt":"hi"}}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "anthropic", resp["vendor"])
	assert.Len(t, resp["attempts"], 1)
}

func TestRoute_MissingPayload(t *testing.T) {
	engine := newTestEngine(&stubService{})

	w := postJSON(engine, "/v1/route", `{"tags":["code"]}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoute_InvalidScenarioRejected(t *testing.T) {
	engine := newTestEngine(&stubService{})

	w := postJSON(engine, "/v1/route", `{"scenario":"juggling","payload":{}}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "scenario")
}

func TestRoute_ErrorKindsMapToStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"no capability match", domain.NoCapabilityMatch("nothing fits"), http.StatusUnprocessableEntity},
		{"all capped", domain.AllCandidatesCapped("caps too strict"), http.StatusUnprocessableEntity},
		{"chain exhausted", domain.ChainExhausted("all down", "v", "m", domain.ErrorTypeOverloaded, 503), http.StatusBadGateway},
		{"terminal passthrough", domain.Terminal("bad request", "v", "m", domain.ErrorTypeBadRequest, 400), http.StatusBadRequest},
		{"terminal auth", domain.Terminal("denied", "v", "m", domain.ErrorTypeAuth, 401), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(&stubService{err: tt.err})

			w := postJSON(engine, "/v1/route", `{"payload":{}}`)

			require.Equal(t, tt.status, w.Code)
			// Problem detail carries the taxonomy kind.
			var problem map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
			assert.Equal(t, string(domain.KindOf(tt.err)), problem["kind"])
		})
	}
}

func TestPreview_NoPayloadNeeded(t *testing.T) {
	service := &stubService{candidates: []domain.Candidate{
		{Vendor: "cheap", Model: "m", Protocol: domain.ProtocolOpenAI},
		{Vendor: "pricey", Model: "m", Protocol: domain.ProtocolOpenAI},
	}}
	engine := newTestEngine(service)

	w := postJSON(engine, "/v1/route/preview", `{"tags":["code"]}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string][]map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp["candidates"], 2)
	assert.Equal(t, "cheap", resp["candidates"][0]["vendor"])
	assert.Equal(t, float64(1), resp["candidates"][0]["rank"])
}

func TestRequestIDEchoed(t *testing.T) {
	engine := newTestEngine(&stubService{result: &domain.RouteResult{}})

	req := httptest.NewRequest(http.MethodPost, "/v1/route", strings.NewReader(`{"payload":{}}`))
	req.Header.Set("X-Request-ID", "given-id")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, "given-id", w.Header().Get("X-Request-ID"))
}
