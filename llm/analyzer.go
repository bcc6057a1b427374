// Package llm turns a ProductInfo into a validated ProductAnalysis via one
// round trip to an OpenAI-compatible structured-output model.
//
// The analyzer fails closed: any internal failure — network error,
// malformed model output, missing key, non-numeric score — collapses to a
// fully-populated negative default instead of an error. The orchestrator
// can therefore treat every extracted product uniformly, with no separate
// error channel. One attempt per product, no retry: this is a best-effort
// advisory score, not a correctness-critical computation.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/shelf-labs/scout/config"
	"github.com/shelf-labs/scout/models"
)

// Analyzer is the structured-analysis client.
type Analyzer struct {
	httpClient *http.Client
	cfg        config.LLMConfig
}

// NewAnalyzer creates an Analyzer. Pass nil to use an http.Client with the
// configured timeout.
func NewAnalyzer(httpClient *http.Client, cfg config.LLMConfig) *Analyzer {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Analyzer{httpClient: httpClient, cfg: cfg}
}

// chatRequest is the chat completion request body.
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatResponse is the minimal chat completion response we need.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// rawAnalysis is the model's JSON output before coercion. Scores arrive as
// raw messages because models occasionally return them as quoted strings.
type rawAnalysis struct {
	IsPortable      *bool           `json:"is_portable"`
	IsRechargeable  *bool           `json:"is_rechargeable"`
	ValueScore      json.RawMessage `json:"value_score"`
	BrandReputation json.RawMessage `json:"brand_reputation"`
	Reasoning       string          `json:"reasoning"`
}

// Analyze produces the model's judgment of info. It never fails outward:
// every internal error routes to a negative default whose reasoning
// describes what went wrong.
func (a *Analyzer) Analyze(ctx context.Context, info *models.ProductInfo) *models.ProductAnalysis {
	analysis, err := a.analyze(ctx, info)
	if err != nil {
		slog.Warn("analysis failed, returning negative default",
			"asin", info.ASIN, "error", err)
		return negativeDefault(err)
	}
	return analysis
}

// analyze is the fallible inner call: one request, one parse, one coercion
// pass. Analyze collapses its error path at the boundary.
func (a *Analyzer) analyze(ctx context.Context, info *models.ProductInfo) (*models.ProductAnalysis, error) {
	reqBody := chatRequest{
		Model: a.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(a.cfg.IncludeBrandReputation)},
			{Role: "user", Content: renderProductBlock(info)},
		},
		Temperature:    0,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(a.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, models.NewResearchError(models.ErrCodeLLMFailure, "model request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewResearchError(models.ErrCodeLLMFailure, "failed to read model response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyAPIError(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, models.NewResearchError(models.ErrCodeLLMFailure, "failed to parse model response", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, models.NewResearchError(models.ErrCodeLLMFailure, "model returned no choices", nil)
	}

	slog.Debug("analysis completed",
		"asin", info.ASIN,
		"promptTokens", chatResp.Usage.PromptTokens,
		"completionTokens", chatResp.Usage.CompletionTokens,
	)

	return a.parseAnalysis(chatResp.Choices[0].Message.Content)
}

// parseAnalysis validates and coerces the model's JSON into a
// ProductAnalysis. Any missing required key or uncoercible score fails the
// whole call.
func (a *Analyzer) parseAnalysis(raw string) (*models.ProductAnalysis, error) {
	var out rawAnalysis
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, models.NewResearchError(models.ErrCodeLLMFailure, "model returned invalid JSON", err)
	}

	if out.IsPortable == nil || out.IsRechargeable == nil {
		return nil, models.NewResearchError(models.ErrCodeLLMFailure, "model output missing boolean fields", nil)
	}
	if strings.TrimSpace(out.Reasoning) == "" {
		return nil, models.NewResearchError(models.ErrCodeLLMFailure, "model output missing reasoning", nil)
	}

	valueScore, err := coerceFloat(out.ValueScore)
	if err != nil {
		return nil, models.NewResearchError(models.ErrCodeLLMFailure, "model output has non-numeric value_score", err)
	}
	// Out-of-range scores pass through unmodified; clamping would silently
	// distort model output and rejecting would discard a usable record.
	if valueScore < 1 || valueScore > 10 {
		slog.Warn("value_score outside intended range", "valueScore", valueScore)
	}

	analysis := &models.ProductAnalysis{
		IsPortable:     *out.IsPortable,
		IsRechargeable: *out.IsRechargeable,
		ValueScore:     valueScore,
		Reasoning:      out.Reasoning,
	}

	if a.cfg.IncludeBrandReputation {
		rep, err := coerceInt(out.BrandReputation)
		if err != nil {
			return nil, models.NewResearchError(models.ErrCodeLLMFailure, "model output has non-integer brand_reputation", err)
		}
		if rep < 1 || rep > 5 {
			slog.Warn("brand_reputation outside intended range", "brandReputation", rep)
		}
		analysis.BrandReputation = &rep
	}

	return analysis, nil
}

// negativeDefault is the fail-closed stand-in: booleans false, value score
// at the floor, brand reputation omitted, reasoning carrying the diagnostic.
func negativeDefault(err error) *models.ProductAnalysis {
	return &models.ProductAnalysis{
		IsPortable:     false,
		IsRechargeable: false,
		ValueScore:     0,
		Reasoning:      fmt.Sprintf("analysis failed: %v", err),
	}
}

// coerceFloat accepts a JSON number or a numeric string.
func coerceFloat(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("value missing")
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("value %s is neither number nor string", raw)
	}
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// coerceInt accepts a JSON integer, a float with no fractional part, or a
// numeric string.
func coerceInt(raw json.RawMessage) (int, error) {
	f, err := coerceFloat(raw)
	if err != nil {
		return 0, err
	}
	i := int(f)
	if float64(i) != f {
		return 0, fmt.Errorf("value %v is not an integer", f)
	}
	return i, nil
}

// chatErrorResponse captures an API error from the model provider.
type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// classifyAPIError maps HTTP status codes to typed error codes.
func classifyAPIError(statusCode int, body []byte) *models.ResearchError {
	var errResp chatErrorResponse
	msg := "model API error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return models.NewResearchError(models.ErrCodeLLMAuthFailure, msg, nil)
	case statusCode == http.StatusTooManyRequests:
		return models.NewResearchError(models.ErrCodeLLMRateLimited, msg, nil)
	default:
		return models.NewResearchError(models.ErrCodeLLMFailure, fmt.Sprintf("model API returned %d: %s", statusCode, msg), nil)
	}
}
