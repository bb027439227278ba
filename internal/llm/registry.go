package llm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Tanmay-Tiwaricyber/Vidya-Ai/internal/config"
	"github.com/Tanmay-Tiwaricyber/Vidya-Ai/internal/settings"
)

var ErrUnknownModel = errors.New("unknown model")

// Registry resolves model wire ids (<provider_id>/<model_name>) to a live
// provider adapter. API keys come from the secrets store at resolve time so
// key changes take effect without a restart.
type Registry struct {
	cfg     *config.Config
	secrets *settings.Secrets
}

func NewRegistry(cfg *config.Config, secrets *settings.Secrets) *Registry {
	return &Registry{cfg: cfg, secrets: secrets}
}

// SplitModelID splits "<provider_id>/<model_name>". The model name may
// itself contain slashes (openai_compatible gateways route that way).
func SplitModelID(modelID string) (providerID string, modelName string, ok bool) {
	modelID = strings.TrimSpace(modelID)
	parts := strings.SplitN(modelID, "/", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	providerID = strings.TrimSpace(parts[0])
	modelName = strings.TrimSpace(parts[1])
	if providerID == "" || modelName == "" {
		return "", "", false
	}
	return providerID, modelName, true
}

// Resolve returns the provider adapter and bare model name for a wire id.
// An empty modelID resolves to the configured default model.
func (r *Registry) Resolve(modelID string) (Provider, string, error) {
	if r == nil || r.cfg == nil || r.secrets == nil {
		return nil, "", errors.New("registry not initialized")
	}

	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		def, ok := r.cfg.DefaultModelID()
		if !ok {
			return nil, "", errors.New("no default model configured")
		}
		modelID = def
	}

	providerID, modelName, ok := SplitModelID(modelID)
	if !ok {
		return nil, "", fmt.Errorf("%w: malformed model id %q", ErrUnknownModel, modelID)
	}
	providerCfg, ok := r.cfg.FindProvider(providerID)
	if !ok {
		return nil, "", fmt.Errorf("%w: provider %q not configured", ErrUnknownModel, providerID)
	}
	if !providerCfg.AllowsModel(modelName) {
		return nil, "", fmt.Errorf("%w: model %q not listed for provider %q", ErrUnknownModel, modelName, providerID)
	}

	apiKey, hasKey, err := r.secrets.ProviderAPIKey(providerID)
	if err != nil {
		return nil, "", err
	}
	if !hasKey {
		return nil, "", fmt.Errorf("no api key set for provider %q", providerID)
	}

	adapter, err := newProviderAdapter(providerCfg.Type, providerCfg.BaseURL, apiKey)
	if err != nil {
		return nil, "", err
	}
	return adapter, modelName, nil
}

func newProviderAdapter(providerType string, baseURL string, apiKey string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(providerType)) {
	case config.ProviderTypeOpenAI, config.ProviderTypeOpenAICompatible:
		return newOpenAIProvider(baseURL, apiKey)
	case config.ProviderTypeAnthropic:
		return newAnthropicProvider(baseURL, apiKey)
	default:
		return nil, fmt.Errorf("unsupported provider type %q", providerType)
	}
}
