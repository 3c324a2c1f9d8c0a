package supervisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/opsgate/captainhook/internal/cerr"
	"github.com/opsgate/captainhook/internal/config"
)

// ApiBackend delegates to an Anthropic-Messages-API-shaped endpoint: a
// system prompt carrying the policy summary, a user message carrying
// the request, and a tolerant parse of the first {...} object in the
// reply text.
type ApiBackend struct {
	BaseURL     string
	ApiKey      string
	Model       string
	MaxTokens   int
	TimeoutSecs int
	httpClient  *http.Client
}

func (b *ApiBackend) client() *http.Client {
	if b.httpClient != nil {
		return b.httpClient
	}
	timeout := 30 * time.Second
	if b.TimeoutSecs > 0 {
		timeout = time.Duration(b.TimeoutSecs) * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func (b *ApiBackend) buildSystemPrompt(policy *config.PolicyConfig) string {
	return fmt.Sprintf(
		"You are a permission supervisor for an AI coding assistant. "+
			"Evaluate whether a tool call should be allowed, denied, or escalated to a human.\n\n"+
			"Policy:\n"+
			"- Sensitive paths: %v\n"+
			"- Confidence thresholds: org=%v, project=%v, user=%v\n\n"+
			`Respond with JSON: {"decision": "allow"|"deny"|"ask", "confidence": 0.0-1.0, "reason": "..."}`,
		policy.SensitivePaths.AskWrite,
		policy.Confidence.Org, policy.Confidence.Project, policy.Confidence.User,
	)
}

func buildUserMessage(req *Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Role: %s (%s)\nTool: %s\nInput: %s\nCWD: %s",
		req.Role, req.RoleDescription, req.ToolName, req.SanitizedInput, req.Cwd)
	if req.FilePath != nil {
		fmt.Fprintf(&b, "\nFile path: %s", *req.FilePath)
	}
	if req.TaskDescription != nil {
		fmt.Fprintf(&b, "\nTask: %s", *req.TaskDescription)
	}
	return b.String()
}

// parseResponse locates the first "{" and last "}" in the reply text
// and tolerates surrounding prose around the JSON object.
func parseResponse(text string) (*Response, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < 0 || start >= end {
		return nil, &cerr.Supervisor{Reason: fmt.Sprintf("no JSON found in supervisor response: %s", text)}
	}
	var resp Response
	if err := json.Unmarshal([]byte(text[start:end+1]), &resp); err != nil {
		return nil, &cerr.Supervisor{Reason: fmt.Sprintf("failed to parse supervisor JSON: %v", err)}
	}
	return &resp, nil
}

type messagesRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system"`
	Messages  []messagePart   `json:"messages"`
}

type messagePart struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (b *ApiBackend) Evaluate(ctx context.Context, req *Request, policy *config.PolicyConfig) (*Response, error) {
	maxTokens := b.MaxTokens
	if maxTokens == 0 {
		maxTokens = 512
	}

	body, err := json.Marshal(messagesRequest{
		Model:     b.Model,
		MaxTokens: maxTokens,
		System:    b.buildSystemPrompt(policy),
		Messages:  []messagePart{{Role: "user", Content: buildUserMessage(req)}},
	})
	if err != nil {
		return nil, &cerr.Supervisor{Reason: fmt.Sprintf("failed to encode request: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(b.BaseURL, "/")+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, &cerr.Supervisor{Reason: fmt.Sprintf("failed to build request: %v", err)}
	}
	httpReq.Header.Set("x-api-key", b.ApiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")
	httpReq.Header.Set("content-type", "application/json")

	resp, err := b.client().Do(httpReq)
	if err != nil {
		return nil, &cerr.Supervisor{Reason: fmt.Sprintf("API request failed: %v", err)}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &cerr.Api{Status: resp.StatusCode, Body: string(respBody)}
	}

	var parsed messagesResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &cerr.Supervisor{Reason: fmt.Sprintf("failed to parse API response: %v", err)}
	}

	text := ""
	if len(parsed.Content) > 0 {
		text = parsed.Content[0].Text
	}

	return parseResponse(text)
}
