package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/thebtf/mentor/pkg/models"
)

// maxResponseBytes caps how much of a provider response body is read.
const maxResponseBytes = 10 * 1024 * 1024

// chatRequest is the OpenRouter-compatible completion request body.
type chatRequest struct {
	Model    string               `json:"model"`
	Messages []models.ChatMessage `json:"messages"`
}

// chatResponse is the subset of the completion response the gateway reads.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// completeOnce sends a single chat-completion request to one provider. Any
// non-2xx status, transport error, or malformed body is a failure.
func (g *Gateway) completeOnce(ctx context.Context, provider, systemPrompt, userPrompt string) (string, error) {
	messages := make([]models.ChatMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, models.ChatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, models.ChatMessage{Role: models.RoleUser, Content: userPrompt})

	body, err := json.Marshal(chatRequest{Model: provider, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	if g.siteName != "" {
		req.Header.Set("X-Title", g.siteName)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("api error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no completion returned")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty completion returned")
	}
	return content, nil
}
