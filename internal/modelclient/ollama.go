package modelclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultOllamaEndpoint = "http://localhost:11434"
	defaultOllamaModel    = "gemma3:4b"
	defaultCallTimeout    = 60 * time.Second
)

// OllamaClient runs brand identification and domain judgment against a
// local Ollama server. It is the "fast/local" race side.
type OllamaClient struct {
	endpoint string
	model    string
	timeout  time.Duration
	client   *http.Client
}

// OllamaOption configures an OllamaClient.
type OllamaOption func(*OllamaClient)

// WithOllamaTimeout sets the per-call deadline.
func WithOllamaTimeout(d time.Duration) OllamaOption {
	return func(c *OllamaClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewOllamaClient creates a client for the given Ollama endpoint and
// model. Empty arguments fall back to localhost and gemma3:4b.
func NewOllamaClient(endpoint, model string, opts ...OllamaOption) *OllamaClient {
	if endpoint == "" {
		endpoint = defaultOllamaEndpoint
	}
	if model == "" {
		model = defaultOllamaModel
	}

	c := &OllamaClient{
		endpoint: endpoint,
		model:    model,
		timeout:  defaultCallTimeout,
		client:   &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ollamaChatRequest is the request body for POST /api/chat.
type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

// ollamaChatResponse is the non-streaming response body from /api/chat.
type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
}

// IdentifyBrand asks the local vision model which brand the screenshot
// presents itself as.
func (c *OllamaClient) IdentifyBrand(ctx context.Context, screenshot []byte) (string, error) {
	messages := []ollamaMessage{
		{Role: "system", Content: brandIdentificationPrompt},
		{
			Role:    "user",
			Content: "Identify the brand present in this screenshot.",
			Images:  []string{base64.StdEncoding.EncodeToString(screenshot)},
		},
	}

	text, err := c.chat(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("ollama identify brand: %w", err)
	}
	return text, nil
}

// JudgeDomain asks the local model whether brand and domain belong
// together, returning the raw free-text judgment.
func (c *OllamaClient) JudgeDomain(ctx context.Context, brand, domain string) (string, error) {
	messages := []ollamaMessage{
		{Role: "system", Content: domainMatchPrompt},
		{
			Role:    "user",
			Content: fmt.Sprintf("Here is the identified brand name: %s\nHere is the domain: %s", brand, domain),
		},
	}

	text, err := c.chat(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("ollama judge domain: %w", err)
	}
	return text, nil
}

// chat sends a non-streaming chat request and returns the reply content.
func (c *OllamaClient) chat(ctx context.Context, messages []ollamaMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// Temperature 0 keeps judgments deterministic across identical pages.
	body, err := json.Marshal(ollamaChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
		Options:  ollamaOptions{Temperature: 0},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	return result.Message.Content, nil
}
