package llm

import (
	"fmt"
	"strings"

	"forklift-assistant/internal/config"
)

// Factory creates LLM clients with consistent logic
type Factory struct {
	OpenaiAPIKey       string
	OpenaiBaseURL      string
	OpenRouterReferrer string
	OpenRouterTitle    string
	YandexOAuthToken   string
	YandexFolderID     string
}

func NewFactory(cfg *config.Config) *Factory {
	return &Factory{
		OpenaiAPIKey:       cfg.OpenAIAPIKey,
		OpenaiBaseURL:      cfg.OpenAIBaseURL,
		OpenRouterReferrer: cfg.OpenRouterReferrer,
		OpenRouterTitle:    cfg.OpenRouterTitle,
		YandexOAuthToken:   cfg.YandexOAuthToken,
		YandexFolderID:     cfg.YandexFolderID,
	}
}

func (f *Factory) CreateClient(provider config.LLMProvider, model string) (Client, error) {
	switch config.LLMProvider(strings.ToLower(string(provider))) {
	case config.ProviderOpenAI:
		return NewOpenAI(f.OpenaiAPIKey, f.OpenaiBaseURL, model, f.OpenRouterReferrer, f.OpenRouterTitle), nil
	case config.ProviderYandex:
		return NewYandex(f.YandexOAuthToken, f.YandexFolderID)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}

// CreateWithFallback builds a client for the primary model that falls back to
// the given models, in order, when a call fails. Yandex has a single model, so
// fallbacks only apply to the openai provider.
func (f *Factory) CreateWithFallback(provider config.LLMProvider, model string, fallbacks []string) (Client, error) {
	primary, err := f.CreateClient(provider, model)
	if err != nil {
		return nil, err
	}
	if config.LLMProvider(strings.ToLower(string(provider))) != config.ProviderOpenAI {
		return primary, nil
	}
	chain := []Client{primary}
	for _, m := range fallbacks {
		m = strings.TrimSpace(m)
		if m == "" || m == model {
			continue
		}
		chain = append(chain, NewOpenAI(f.OpenaiAPIKey, f.OpenaiBaseURL, m, f.OpenRouterReferrer, f.OpenRouterTitle))
	}
	if len(chain) == 1 {
		return primary, nil
	}
	return NewFallback(chain...), nil
}
