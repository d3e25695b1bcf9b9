// Package testutil provides shared test helpers: fake repository layouts and
// a stub model host speaking both the Ollama and OpenAI chat APIs.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// WriteFiles writes each relative path -> content pair under root, creating
// parent directories.
func WriteFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// ChatRequest is what the stub host recorded for one call, normalised
// across both dialects.
type ChatRequest struct {
	Path        string
	Model       string
	Role        string
	Content     string
	Stream      bool
	Temperature float64
	Messages    int
}

// ModelHost is a stub local model host.
type ModelHost struct {
	URL string

	mu       sync.Mutex
	reply    string
	status   int
	requests []ChatRequest
}

// NewModelHost starts a stub host that answers every chat request with
// reply. It is shut down when the test ends.
func NewModelHost(t *testing.T, reply string) *ModelHost {
	t.Helper()
	h := &ModelHost{reply: reply, status: http.StatusOK}

	r := chi.NewRouter()
	r.Post("/api/chat", h.ollamaChat)
	r.Post("/v1/chat/completions", h.openAIChat)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	h.URL = srv.URL
	return h
}

// SetStatus makes subsequent requests fail with the given HTTP status.
func (h *ModelHost) SetStatus(code int) {
	h.mu.Lock()
	h.status = code
	h.mu.Unlock()
}

// Requests returns a copy of the recorded requests.
func (h *ModelHost) Requests() []ChatRequest {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]ChatRequest(nil), h.requests...)
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (h *ModelHost) record(r *http.Request, req ChatRequest) (string, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	req.Path = r.URL.Path
	h.requests = append(h.requests, req)
	return h.reply, h.status
}

func (h *ModelHost) ollamaChat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Model    string    `json:"model"`
		Messages []message `json:"messages"`
		Stream   bool      `json:"stream"`
		Options  struct {
			Temperature float64 `json:"temperature"`
		} `json:"options"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rec := ChatRequest{
		Model:       body.Model,
		Stream:      body.Stream,
		Temperature: body.Options.Temperature,
		Messages:    len(body.Messages),
	}
	if len(body.Messages) > 0 {
		rec.Role = body.Messages[0].Role
		rec.Content = body.Messages[0].Content
	}
	reply, status := h.record(r, rec)
	if status != http.StatusOK {
		http.Error(w, `{"error":"model not found"}`, status)
		return
	}
	writeJSON(w, map[string]any{
		"model":   body.Model,
		"message": message{Role: "assistant", Content: reply},
		"done":    true,
	})
}

func (h *ModelHost) openAIChat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Model       string    `json:"model"`
		Messages    []message `json:"messages"`
		Stream      bool      `json:"stream"`
		Temperature float64   `json:"temperature"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rec := ChatRequest{
		Model:       body.Model,
		Stream:      body.Stream,
		Temperature: body.Temperature,
		Messages:    len(body.Messages),
	}
	if len(body.Messages) > 0 {
		rec.Role = body.Messages[0].Role
		rec.Content = body.Messages[0].Content
	}
	reply, status := h.record(r, rec)
	if status != http.StatusOK {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":{"message":"model not found","type":"invalid_request_error"}}`))
		return
	}
	writeJSON(w, map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 0,
		"model":   body.Model,
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": reply},
		}},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
