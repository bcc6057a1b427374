package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelf-labs/scout/api"
	"github.com/shelf-labs/scout/api/handler"
	"github.com/shelf-labs/scout/config"
	"github.com/shelf-labs/scout/models"
)

type stubRunner struct {
	gotQuery string
	gotLimit int
	report   *models.Report
	err      error
}

func (s *stubRunner) Run(_ context.Context, query string, limit int) (*models.Report, models.ResearchTimingInfo, error) {
	s.gotQuery = query
	s.gotLimit = limit
	return s.report, models.ResearchTimingInfo{TotalMs: 1234}, s.err
}

func testRouterConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Mode: "test"},
		Auth:      config.AuthConfig{Enabled: true, APIKeys: []string{"valid-key"}},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100},
	}
}

func newTestServer(runner *stubRunner, cfg *config.Config) *httptest.Server {
	factory := func(_ *bool) handler.Runner { return runner }
	return httptest.NewServer(api.NewRouter(factory, cfg, time.Now()))
}

func postResearch(t *testing.T, srv *httptest.Server, apiKey string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/research", bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response) models.ResearchResponse {
	t.Helper()
	defer resp.Body.Close()
	var out models.ResearchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestResearch_Success(t *testing.T) {
	runner := &stubRunner{report: &models.Report{
		Query:     "water flosser",
		Harvested: 5,
		Entries: []models.ReportEntry{
			{ASIN: "B0AAAA0001", URL: "https://www.amazon.com/dp/B0AAAA0001"},
		},
	}}
	srv := newTestServer(runner, testRouterConfig())
	defer srv.Close()

	resp := postResearch(t, srv, "valid-key", map[string]any{"query": "water flosser", "limit": 5})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeResponse(t, resp)
	assert.True(t, out.Success)
	require.NotNil(t, out.Report)
	assert.Equal(t, "water flosser", out.Report.Query)
	assert.Equal(t, 5, out.Report.Harvested)
	assert.Equal(t, int64(1234), out.Timing.TotalMs)

	assert.Equal(t, "water flosser", runner.gotQuery)
	assert.Equal(t, 5, runner.gotLimit)
}

func TestResearch_DefaultLimit(t *testing.T) {
	runner := &stubRunner{report: &models.Report{Query: "q"}}
	srv := newTestServer(runner, testRouterConfig())
	defer srv.Close()

	resp := postResearch(t, srv, "valid-key", map[string]any{"query": "q"})
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, runner.gotLimit)
}

func TestResearch_MissingQuery(t *testing.T) {
	srv := newTestServer(&stubRunner{}, testRouterConfig())
	defer srv.Close()

	resp := postResearch(t, srv, "valid-key", map[string]any{"limit": 3})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	out := decodeResponse(t, resp)
	assert.False(t, out.Success)
	require.NotNil(t, out.Error)
	assert.Equal(t, models.ErrCodeInvalidInput, out.Error.Code)
}

func TestResearch_FatalPipelineError(t *testing.T) {
	runner := &stubRunner{err: models.NewResearchError(models.ErrCodeSearch, "search page broke", nil)}
	srv := newTestServer(runner, testRouterConfig())
	defer srv.Close()

	resp := postResearch(t, srv, "valid-key", map[string]any{"query": "q"})

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	out := decodeResponse(t, resp)
	assert.False(t, out.Success)
	require.NotNil(t, out.Error)
	assert.Equal(t, models.ErrCodeSearch, out.Error.Code)
}

func TestResearch_AuthRequired(t *testing.T) {
	srv := newTestServer(&stubRunner{}, testRouterConfig())
	defer srv.Close()

	missing := postResearch(t, srv, "", map[string]any{"query": "q"})
	assert.Equal(t, http.StatusUnauthorized, missing.StatusCode)
	missing.Body.Close()

	wrong := postResearch(t, srv, "wrong-key", map[string]any{"query": "q"})
	assert.Equal(t, http.StatusUnauthorized, wrong.StatusCode)
	wrong.Body.Close()
}

func TestHealth_OpenWithoutAuth(t *testing.T) {
	srv := newTestServer(&stubRunner{}, testRouterConfig())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health models.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)
}
