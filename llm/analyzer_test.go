package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelf-labs/scout/config"
	"github.com/shelf-labs/scout/models"
)

func strPtr(s string) *string { return &s }

func sampleInfo() *models.ProductInfo {
	return &models.ProductInfo{
		ASIN:        "B0BG52SJ5N",
		URL:         "https://www.amazon.com/dp/B0BG52SJ5N",
		Title:       "HydroFresh Cordless Water Flosser",
		Description: "Cordless flosser with three pressure modes.",
		Price:       strPtr("$39.99"),
		Brand:       strPtr("HydroFresh"),
		Rating:      strPtr("4.6 out of 5 stars"),
		ReviewCount: strPtr("12,438 ratings"),
	}
}

// modelServer returns an httptest server that answers every chat completion
// with content as the assistant message.
func modelServer(t *testing.T, content string, capture *chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if capture != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
			"usage": map[string]int{"prompt_tokens": 120, "completion_tokens": 60, "total_tokens": 180},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func newTestAnalyzer(baseURL string, includeBrandReputation bool) *Analyzer {
	return NewAnalyzer(nil, config.LLMConfig{
		BaseURL:                baseURL,
		APIKey:                 "test-key",
		Model:                  "gpt-4o-mini",
		Timeout:                5 * time.Second,
		IncludeBrandReputation: includeBrandReputation,
	})
}

func TestAnalyze_Success(t *testing.T) {
	var captured chatRequest
	srv := modelServer(t, `{"is_portable":true,"is_rechargeable":true,"value_score":8.5,"reasoning":"cordless and well reviewed"}`, &captured)
	defer srv.Close()

	analysis := newTestAnalyzer(srv.URL, false).Analyze(context.Background(), sampleInfo())

	assert.True(t, analysis.IsPortable)
	assert.True(t, analysis.IsRechargeable)
	assert.Equal(t, 8.5, analysis.ValueScore)
	assert.Nil(t, analysis.BrandReputation)
	assert.Equal(t, "cordless and well reviewed", analysis.Reasoning)

	// Request shape: deterministic decoding settings.
	assert.Equal(t, "gpt-4o-mini", captured.Model)
	assert.Zero(t, captured.Temperature)
	require.NotNil(t, captured.ResponseFormat)
	assert.Equal(t, "json_object", captured.ResponseFormat.Type)
	require.Len(t, captured.Messages, 2)
	assert.Contains(t, captured.Messages[1].Content, "Title: HydroFresh Cordless Water Flosser")
}

func TestAnalyze_BrandReputationVariant(t *testing.T) {
	var captured chatRequest
	srv := modelServer(t, `{"is_portable":true,"is_rechargeable":false,"value_score":7,"brand_reputation":4,"reasoning":"established brand"}`, &captured)
	defer srv.Close()

	analysis := newTestAnalyzer(srv.URL, true).Analyze(context.Background(), sampleInfo())

	require.NotNil(t, analysis.BrandReputation)
	assert.Equal(t, 4, *analysis.BrandReputation)
	assert.Contains(t, captured.Messages[0].Content, "brand_reputation")
}

func TestAnalyze_StringScoresCoerced(t *testing.T) {
	srv := modelServer(t, `{"is_portable":false,"is_rechargeable":true,"value_score":"6.5","brand_reputation":"3","reasoning":"ok"}`, nil)
	defer srv.Close()

	analysis := newTestAnalyzer(srv.URL, true).Analyze(context.Background(), sampleInfo())

	assert.Equal(t, 6.5, analysis.ValueScore)
	require.NotNil(t, analysis.BrandReputation)
	assert.Equal(t, 3, *analysis.BrandReputation)
}

func TestAnalyze_OutOfRangeScorePassesThrough(t *testing.T) {
	srv := modelServer(t, `{"is_portable":true,"is_rechargeable":true,"value_score":12,"reasoning":"overenthusiastic"}`, nil)
	defer srv.Close()

	analysis := newTestAnalyzer(srv.URL, false).Analyze(context.Background(), sampleInfo())

	assert.Equal(t, 12.0, analysis.ValueScore, "out-of-range scores are reported as-is")
	assert.Equal(t, "overenthusiastic", analysis.Reasoning)
}

func TestAnalyze_FailsClosed(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"malformed JSON", "here is my analysis: the product is great"},
		{"missing booleans", `{"value_score":7,"reasoning":"partial"}`},
		{"missing reasoning", `{"is_portable":true,"is_rechargeable":true,"value_score":7,"reasoning":"  "}`},
		{"non-numeric score", `{"is_portable":true,"is_rechargeable":true,"value_score":"high","reasoning":"vague"}`},
		{"fractional brand reputation", `{"is_portable":true,"is_rechargeable":true,"value_score":7,"brand_reputation":3.5,"reasoning":"ok"}`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			srv := modelServer(t, c.content, nil)
			defer srv.Close()

			includeBrand := strings.Contains(c.content, "brand_reputation")
			analysis := newTestAnalyzer(srv.URL, includeBrand).Analyze(context.Background(), sampleInfo())

			require.NotNil(t, analysis, "Analyze never returns nil")
			assert.False(t, analysis.IsPortable)
			assert.False(t, analysis.IsRechargeable)
			assert.Zero(t, analysis.ValueScore)
			assert.Nil(t, analysis.BrandReputation)
			assert.Contains(t, analysis.Reasoning, "analysis failed")
		})
	}
}

func TestAnalyze_APIErrorsFailClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
	}))
	defer srv.Close()

	analysis := newTestAnalyzer(srv.URL, false).Analyze(context.Background(), sampleInfo())

	assert.False(t, analysis.IsPortable)
	assert.Zero(t, analysis.ValueScore)
	assert.Contains(t, analysis.Reasoning, "Incorrect API key provided")
}

func TestAnalyze_UnreachableEndpointFailsClosed(t *testing.T) {
	analysis := newTestAnalyzer("http://127.0.0.1:1", false).Analyze(context.Background(), sampleInfo())

	assert.False(t, analysis.IsPortable)
	assert.Zero(t, analysis.ValueScore)
	assert.Contains(t, analysis.Reasoning, "analysis failed")
}

func TestClassifyAPIError(t *testing.T) {
	assert.Equal(t, models.ErrCodeLLMAuthFailure, classifyAPIError(401, nil).Code)
	assert.Equal(t, models.ErrCodeLLMAuthFailure, classifyAPIError(403, nil).Code)
	assert.Equal(t, models.ErrCodeLLMRateLimited, classifyAPIError(429, nil).Code)
	assert.Equal(t, models.ErrCodeLLMFailure, classifyAPIError(500, nil).Code)
}

func TestRenderProductBlock_PlaceholdersForAbsentFields(t *testing.T) {
	info := &models.ProductInfo{
		ASIN:  "B0AAAA0001",
		Title: "AquaClean Flosser",
	}
	block := renderProductBlock(info)

	assert.Contains(t, block, "Title: AquaClean Flosser")
	assert.Contains(t, block, "Description: not available")
	assert.Contains(t, block, "Price: not available")
	assert.Contains(t, block, "Brand: not available")
	assert.Contains(t, block, "Rating: not available")
	assert.Contains(t, block, "Review count: not available")
}

func TestSystemPrompt_BrandReputationIsOptIn(t *testing.T) {
	assert.NotContains(t, systemPrompt(false), "brand_reputation")
	assert.Contains(t, systemPrompt(true), "brand_reputation")
}
