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
	"github.com/rmn-raj/seo-tool/models"
)

func main() {
	apiURL := strings.TrimRight(os.Getenv("SEOAUDIT_API_URL"), "/")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}

	s := server.NewMCPServer(
		"seoaudit",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	auditTool := mcp.NewTool("seo_audit",
		mcp.WithDescription("Audit a web page for on-page SEO: title length, meta description length, H1 count and image alt text. Returns a 0-100 score with a verdict per signal."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the web page to audit"),
		),
		mcp.WithString("fetch_mode",
			mcp.Description("How to retrieve the page: 'auto' (default, races HTTP against a headless browser), 'http' (no JavaScript) or 'browser'"),
			mcp.Enum("auto", "http", "browser"),
		),
		mcp.WithBoolean("stealth",
			mcp.Description("Enable anti-bot-detection evasions when a headless browser retrieves the page (default: false)"),
		),
		mcp.WithNumber("timeout",
			mcp.Description("Retrieval timeout in seconds (default: 10, max: 120)"),
		),
		mcp.WithString("format",
			mcp.Description("Report format: 'markdown' (default) or 'text'"),
			mcp.Enum("markdown", "text"),
		),
	)
	s.AddTool(auditTool, handleSEOAudit(apiURL))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleSEOAudit(apiURL string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 150 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		reqBody := models.AnalyzeRequest{
			URL:       url,
			FetchMode: request.GetString("fetch_mode", ""),
			Stealth:   request.GetBool("stealth", false),
			Format:    request.GetString("format", "markdown"),
		}
		if t := request.GetFloat("timeout", 0); t > 0 {
			reqBody.Timeout = int(t)
		}

		body, err := json.Marshal(reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal request: %v", err)), nil
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/api/v1/analyze", bytes.NewReader(body))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		var auditResp models.AnalyzeResponse
		if err := json.Unmarshal(respBody, &auditResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !auditResp.Success {
			errMsg := "audit failed"
			if auditResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", auditResp.Error.Code, auditResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		result := auditResp.Rendered
		if auditResp.EngineUsed != "" {
			result += fmt.Sprintf("\n\n---\nFetched with %s in %dms", auditResp.EngineUsed, auditResp.Timing.FetchMs)
		}
		return mcp.NewToolResultText(result), nil
	}
}
