package settings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSecretsSetGetClear(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "secrets.json")
	s := NewSecrets(path)

	if _, ok, err := s.ProviderAPIKey("openai"); err != nil || ok {
		t.Fatalf("ProviderAPIKey on empty store: ok=%v err=%v", ok, err)
	}

	if err := s.SetProviderAPIKey("openai", "sk-test-123"); err != nil {
		t.Fatalf("SetProviderAPIKey: %v", err)
	}
	v, ok, err := s.ProviderAPIKey("openai")
	if err != nil || !ok || v != "sk-test-123" {
		t.Fatalf("ProviderAPIKey: v=%q ok=%v err=%v", v, ok, err)
	}

	if err := s.ClearProviderAPIKey("openai"); err != nil {
		t.Fatalf("ClearProviderAPIKey: %v", err)
	}
	if _, ok, _ := s.ProviderAPIKey("openai"); ok {
		t.Fatalf("expected key cleared")
	}
}

func TestSecretsValidation(t *testing.T) {
	t.Parallel()

	s := NewSecrets(filepath.Join(t.TempDir(), "secrets.json"))
	if err := s.SetProviderAPIKey("", "sk-x"); err == nil {
		t.Fatalf("expected error for empty provider id")
	}
	if err := s.SetProviderAPIKey("openai", "   "); err == nil {
		t.Fatalf("expected error for empty api key")
	}
	var nilStore *Secrets
	if err := nilStore.SetProviderAPIKey("openai", "sk-x"); err == nil {
		t.Fatalf("expected error on nil store")
	}
}

func TestSecretsFileMode(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "secrets.json")
	s := NewSecrets(path)
	if err := s.SetProviderAPIKey("anthropic", "sk-ant-1"); err != nil {
		t.Fatalf("SetProviderAPIKey: %v", err)
	}

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if got := fi.Mode().Perm(); got != 0o600 {
		t.Fatalf("secrets file mode: got %v, want 0600", got)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(b), `"schema_version": 1`) {
		t.Fatalf("missing schema_version in %s", b)
	}
}

func TestSecretsKeySet(t *testing.T) {
	t.Parallel()

	s := NewSecrets(filepath.Join(t.TempDir(), "secrets.json"))
	if err := s.SetProviderAPIKey("openai", "sk-a"); err != nil {
		t.Fatalf("SetProviderAPIKey: %v", err)
	}

	got, err := s.KeySet([]string{"openai", "anthropic", ""})
	if err != nil {
		t.Fatalf("KeySet: %v", err)
	}
	if len(got) != 2 || !got["openai"] || got["anthropic"] {
		t.Fatalf("KeySet: got %v", got)
	}
}

func TestSecretsPersistAcrossInstances(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "secrets.json")
	if err := NewSecrets(path).SetProviderAPIKey("openai", "sk-keep"); err != nil {
		t.Fatalf("SetProviderAPIKey: %v", err)
	}
	v, ok, err := NewSecrets(path).ProviderAPIKey("openai")
	if err != nil || !ok || v != "sk-keep" {
		t.Fatalf("reload: v=%q ok=%v err=%v", v, ok, err)
	}
}
