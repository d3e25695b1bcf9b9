package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/starford/soptranslator/internal/apperr"
)

// OllamaClient talks to the native Ollama chat API.
type OllamaClient struct {
	endpoint    string
	temperature float64
	client      *http.Client
}

// NewOllama creates a client for the Ollama host at s.Endpoint.
func NewOllama(s Settings) *OllamaClient {
	return &OllamaClient{
		endpoint:    strings.TrimRight(s.Endpoint, "/"),
		temperature: s.Temperature,
		client:      &http.Client{Timeout: s.Timeout},
	}
}

// Name returns the client identifier.
func (c *OllamaClient) Name() string { return APIOllama }

// Complete posts one non-streaming chat request to /api/chat.
func (c *OllamaClient) Complete(ctx context.Context, model, prompt string) (string, error) {
	body, err := json.Marshal(ollamaChatRequest{
		Model:    model,
		Messages: []ollamaMessage{{Role: "user", Content: prompt}},
		Stream:   false,
		Options:  ollamaOptions{Temperature: c.temperature},
	})
	if err != nil {
		return "", fmt.Errorf("ollama: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ollama: %w: create request: %w", apperr.ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama: %w: %w", apperr.ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ollama: %w: status %d: %s",
			apperr.ErrRequestFailed, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("ollama: %w: decode response: %w", apperr.ErrRequestFailed, err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama: %w: %s", apperr.ErrRequestFailed, out.Error)
	}
	return out.Message.Content, nil
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Error   string        `json:"error,omitempty"`
}
