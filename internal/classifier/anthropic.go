package classifier

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicModel calls the Anthropic Messages API.
type AnthropicModel struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicModel builds an Anthropic backend. Extra options are appended after the API key.
func NewAnthropicModel(apiKey, model string, maxTokens int, opts ...option.RequestOption) *AnthropicModel {
	reqOpts := []option.RequestOption{}
	if apiKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(apiKey))
	}
	reqOpts = append(reqOpts, opts...)
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &AnthropicModel{
		client:    anthropic.NewClient(reqOpts...),
		model:     model,
		maxTokens: int64(maxTokens),
	}
}

// Generate sends the prompt as a single user turn and joins the text blocks of the reply.
func (m *AnthropicModel) Generate(ctx context.Context, prompt string) (string, error) {
	msg, err := m.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(m.model),
		MaxTokens: m.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemInstruction}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("anthropic: response contained no text")
	}
	return sb.String(), nil
}
