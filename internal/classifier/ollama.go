package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxOllamaResponseBytes = 1 << 20

// OllamaModel calls a local Ollama server's generate endpoint.
type OllamaModel struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaModel builds an Ollama backend; a nil client uses http.DefaultClient.
func NewOllamaModel(baseURL, model string, client *http.Client) *OllamaModel {
	if client == nil {
		client = http.DefaultClient
	}
	return &OllamaModel{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  client,
	}
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Generate sends a non-streaming generate request in JSON mode.
func (m *OllamaModel) Generate(ctx context.Context, prompt string) (string, error) {
	data, err := json.Marshal(ollamaGenerateRequest{
		Model:  m.model,
		Prompt: prompt,
		System: systemInstruction,
		Stream: false,
		Format: "json",
	})
	if err != nil {
		return "", fmt.Errorf("marshalling ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/generate", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("calling ollama: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxOllamaResponseBytes))
	if err != nil {
		return "", fmt.Errorf("reading ollama response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("ollama returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var out ollamaGenerateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decoding ollama response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama: %s", out.Error)
	}
	return out.Response, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
