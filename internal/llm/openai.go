package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/starford/soptranslator/internal/apperr"
)

// OpenAIClient talks to the OpenAI-compatible endpoint of a local model
// host (Ollama serves one under /v1).
type OpenAIClient struct {
	temperature float64
	opts        []option.RequestOption
}

// NewOpenAI creates a client for the /v1 API under s.Endpoint. SDK retries
// are disabled so a failure surfaces after a single attempt.
func NewOpenAI(s Settings) *OpenAIClient {
	base := strings.TrimRight(s.Endpoint, "/") + "/v1/"
	opts := []option.RequestOption{
		option.WithBaseURL(base),
		// Local hosts ignore the key, but the SDK requires one.
		option.WithAPIKey("ollama"),
		option.WithMaxRetries(0),
	}
	if s.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(s.Timeout))
	}
	return &OpenAIClient{temperature: s.Temperature, opts: opts}
}

// Name returns the client identifier.
func (c *OpenAIClient) Name() string { return APIOpenAI }

// Complete sends a single user message through the chat completions API.
func (c *OpenAIClient) Complete(ctx context.Context, model, prompt string) (string, error) {
	client := openai.NewClient(c.opts...)

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("openai: %w: %w", apperr.ErrRequestFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: %w: empty choices", apperr.ErrRequestFailed)
	}
	return resp.Choices[0].Message.Content, nil
}
