// Package llm sends a single prompt to a locally hosted chat model and
// returns the reply text.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Wire dialects understood by New.
const (
	APIOllama = "ollama"
	APIOpenAI = "openai"
)

// Client is a single-turn, non-streaming chat completion client.
type Client interface {
	// Complete sends prompt as one user message to model and returns the
	// reply content.
	Complete(ctx context.Context, model, prompt string) (string, error)
	// Name returns the client identifier, e.g. "ollama".
	Name() string
}

// Settings configure a Client.
type Settings struct {
	API         string
	Endpoint    string
	Temperature float64
	Timeout     time.Duration
}

// New returns the client for s.API.
func New(s Settings) (Client, error) {
	if s.Endpoint == "" {
		return nil, errors.New("llm: endpoint is required")
	}
	switch s.API {
	case APIOllama, "":
		return NewOllama(s), nil
	case APIOpenAI:
		return NewOpenAI(s), nil
	default:
		return nil, fmt.Errorf("llm: api %q not supported", s.API)
	}
}
