package llm

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/Tanmay-Tiwaricyber/Vidya-Ai/internal/config"
	"github.com/Tanmay-Tiwaricyber/Vidya-Ai/internal/settings"
)

func TestSplitModelID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in       string
		provider string
		model    string
		ok       bool
	}{
		{"openai/gpt-4o-mini", "openai", "gpt-4o-mini", true},
		{"gateway/meta-llama/llama-3-70b", "gateway", "meta-llama/llama-3-70b", true},
		{" openai / gpt-4o ", "openai", "gpt-4o", true},
		{"gpt-4o-mini", "", "", false},
		{"/gpt-4o", "", "", false},
		{"openai/", "", "", false},
		{"", "", "", false},
	}
	for _, tc := range cases {
		provider, model, ok := SplitModelID(tc.in)
		if provider != tc.provider || model != tc.model || ok != tc.ok {
			t.Fatalf("SplitModelID(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tc.in, provider, model, ok, tc.provider, tc.model, tc.ok)
		}
	}
}

func TestBuildOpenAIInput(t *testing.T) {
	t.Parallel()

	items, instructions := buildOpenAIInput("You are a tutor.", []Message{
		{Role: "system", Content: "Be concise."},
		{Role: "user", Content: "Explain recursion."},
		{Role: "assistant", Content: "Recursion is..."},
		{Role: "user", Content: "   "},
	})
	if len(items) != 2 {
		t.Fatalf("items: got %d, want 2", len(items))
	}
	if instructions != "You are a tutor.\n\nBe concise." {
		t.Fatalf("instructions: %q", instructions)
	}
}

func TestBuildAnthropicMessages(t *testing.T) {
	t.Parallel()

	msgs := buildAnthropicMessages([]Message{
		{Role: "system", Content: "Be concise."},
		{Role: "user", Content: "Hi"},
		{Role: "assistant", Content: "Hello"},
		{Role: "user", Content: ""},
	})
	if len(msgs) != 2 {
		t.Fatalf("messages: got %d, want 2", len(msgs))
	}
	if got := collectSystemText("Base prompt.", []Message{{Role: "system", Content: "Extra."}}); got != "Base prompt.\n\nExtra." {
		t.Fatalf("collectSystemText: %q", got)
	}
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	cfg := &config.Config{
		Providers: []config.Provider{
			{
				ID:   "openai",
				Type: config.ProviderTypeOpenAI,
				Models: []config.ProviderModel{
					{ModelName: "gpt-4o-mini", IsDefault: true},
				},
			},
		},
	}
	secrets := settings.NewSecrets(filepath.Join(t.TempDir(), "secrets.json"))
	return NewRegistry(cfg, secrets)
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()
	reg := testRegistry(t)

	if _, _, err := reg.Resolve("openai/gpt-4o-mini"); err == nil {
		t.Fatalf("expected error without api key")
	}

	if err := reg.secrets.SetProviderAPIKey("openai", "sk-test"); err != nil {
		t.Fatalf("SetProviderAPIKey: %v", err)
	}

	p, model, err := reg.Resolve("openai/gpt-4o-mini")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p == nil || model != "gpt-4o-mini" {
		t.Fatalf("Resolve: p=%v model=%q", p, model)
	}

	// Empty id falls back to the configured default model.
	if _, model, err := reg.Resolve(""); err != nil || model != "gpt-4o-mini" {
		t.Fatalf("Resolve default: model=%q err=%v", model, err)
	}
}

func TestRegistryResolveUnknown(t *testing.T) {
	t.Parallel()
	reg := testRegistry(t)

	for _, id := range []string{"missing/gpt-4o-mini", "openai/not-listed", "malformed"} {
		if _, _, err := reg.Resolve(id); !errors.Is(err, ErrUnknownModel) {
			t.Fatalf("Resolve(%q): expected ErrUnknownModel, got %v", id, err)
		}
	}
}
