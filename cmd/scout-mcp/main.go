// Command scout-mcp exposes the research pipeline as an MCP tool over
// stdio, backed by a running scout-server instance.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// researchRequest mirrors the scout-server API request model.
type researchRequest struct {
	Query                  string `json:"query"`
	Limit                  int    `json:"limit,omitempty"`
	IncludeBrandReputation *bool  `json:"include_brand_reputation,omitempty"`
}

// researchResponse mirrors the scout-server API response model.
type researchResponse struct {
	Success bool `json:"success"`
	Report  *struct {
		Query     string `json:"query"`
		ReplayURL string `json:"replay_url"`
		Harvested int    `json:"harvested"`
		Entries   []struct {
			ASIN string `json:"asin"`
			URL  string `json:"url"`
			Info *struct {
				Title string `json:"title"`
			} `json:"info"`
			Analysis *struct {
				IsPortable      bool    `json:"is_portable"`
				IsRechargeable  bool    `json:"is_rechargeable"`
				ValueScore      float64 `json:"value_score"`
				BrandReputation *int    `json:"brand_reputation"`
				Reasoning       string  `json:"reasoning"`
			} `json:"analysis"`
			Failure *struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"failure"`
		} `json:"entries"`
	} `json:"report"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("SCOUT_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("SCOUT_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "SCOUT_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"scout",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	researchTool := mcp.NewTool("research_products",
		mcp.WithDescription("Search a shopping site for products matching a query and return a structured analysis (portability, rechargeability, value score, reasoning) for each, produced by a language model from the live listing data."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The marketplace search query"),
		),
		mcp.WithNumber("limit",
			mcp.Description("How many of the top results to analyze (default: 3, max: 10)"),
		),
		mcp.WithBoolean("include_brand_reputation",
			mcp.Description("Also ask for a 1-5 brand reputation score"),
		),
	)
	s.AddTool(researchTool, handleResearch(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleResearch(apiURL, apiKey string) server.ToolHandlerFunc {
	// A research run drives a real browser end to end; allow it time.
	client := &http.Client{Timeout: 300 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}

		reqBody := researchRequest{Query: query}
		if limit := request.GetInt("limit", 0); limit > 0 {
			reqBody.Limit = limit
		}
		if args := request.GetArguments(); args != nil {
			if v, ok := args["include_brand_reputation"].(bool); ok {
				reqBody.IncludeBrandReputation = &v
			}
		}

		body, err := json.Marshal(reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal request: %v", err)), nil
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/api/v1/research", bytes.NewReader(body))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("X-API-Key", apiKey)

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		var researchResp researchResponse
		if err := json.Unmarshal(respBody, &researchResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !researchResp.Success || researchResp.Report == nil {
			errMsg := "research failed"
			if researchResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", researchResp.Error.Code, researchResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		return mcp.NewToolResultText(formatReport(&researchResp)), nil
	}
}

// formatReport renders the report as readable text for the tool result.
func formatReport(resp *researchResponse) string {
	r := resp.Report

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Research: %q — %d result(s) harvested, %d analyzed\n", r.Query, r.Harvested, len(r.Entries)))
	if r.ReplayURL != "" {
		sb.WriteString(fmt.Sprintf("Session replay: %s\n", r.ReplayURL))
	}

	for i, entry := range r.Entries {
		sb.WriteString(fmt.Sprintf("\n--- [%d] %s (%s) ---\n", i+1, entry.ASIN, entry.URL))

		if entry.Failure != nil {
			sb.WriteString(fmt.Sprintf("FAILED: [%s] %s\n", entry.Failure.Code, entry.Failure.Message))
			continue
		}

		if entry.Info != nil {
			sb.WriteString(fmt.Sprintf("Title: %s\n", entry.Info.Title))
		}
		if a := entry.Analysis; a != nil {
			sb.WriteString(fmt.Sprintf("Portable: %t | Rechargeable: %t | Value score: %g", a.IsPortable, a.IsRechargeable, a.ValueScore))
			if a.BrandReputation != nil {
				sb.WriteString(fmt.Sprintf(" | Brand reputation: %d", *a.BrandReputation))
			}
			sb.WriteString("\n" + a.Reasoning + "\n")
		}
	}

	return sb.String()
}
