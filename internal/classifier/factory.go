package classifier

import (
	"fmt"
	"net/http"

	"github.com/spec-kit/dispatch-service/internal/config"
)

// NewModel selects the backend named by cfg.Provider.
func NewModel(cfg config.ClassifierConfig, httpClient *http.Client) (Model, error) {
	switch cfg.Provider {
	case config.ProviderOllama, "":
		return NewOllamaModel(cfg.BaseURL, cfg.Model, httpClient), nil
	case config.ProviderAnthropic:
		return NewAnthropicModel(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.MaxTokens), nil
	default:
		return nil, fmt.Errorf("unknown classifier provider %q", cfg.Provider)
	}
}
