package providers

import (
	"testing"

	"github.com/yungbote/scribe-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	return log
}

func clearProviderEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("XAI_API_KEY", "")
}

func TestRegistryLocalAlwaysConfigured(t *testing.T) {
	clearProviderEnv(t)
	r := NewRegistryFromEnv(testLogger(t), DefaultCatalog())

	res, err := r.Resolve("local")
	if err != nil {
		t.Fatalf("local should always resolve: %v", err)
	}
	if res.Adapter.Name() != "local" {
		t.Fatalf("expected local adapter, got %q", res.Adapter.Name())
	}

	configured := r.Configured()
	if len(configured) != 1 || configured[0] != "local" {
		t.Fatalf("expected only local configured, got %v", configured)
	}
}

func TestRegistryEmptyNameDefaultsToLocal(t *testing.T) {
	clearProviderEnv(t)
	r := NewRegistryFromEnv(testLogger(t), DefaultCatalog())

	res, err := r.Resolve("")
	if err != nil {
		t.Fatalf("empty provider should resolve to local: %v", err)
	}
	if res.Adapter.Name() != "local" {
		t.Fatalf("expected local adapter, got %q", res.Adapter.Name())
	}
}

func TestRegistryAliases(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ANTHROPIC_API_KEY", "ak-test")
	r := NewRegistryFromEnv(testLogger(t), DefaultCatalog())

	for alias, want := range map[string]string{
		"gpt":    "openai",
		"codex":  "openai",
		"claude": "anthropic",
		"ollama": "local",
		"OpenAI": "openai",
	} {
		res, err := r.Resolve(alias)
		if err != nil {
			t.Fatalf("alias %q failed to resolve: %v", alias, err)
		}
		if res.Adapter.Name() != want {
			t.Fatalf("alias %q resolved to %q, want %q", alias, res.Adapter.Name(), want)
		}
	}
}

func TestRegistryPremiumAliasOverridesModel(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	r := NewRegistryFromEnv(testLogger(t), DefaultCatalog())

	res, err := r.Resolve("openai-pro")
	if err != nil {
		t.Fatalf("openai-pro should resolve: %v", err)
	}
	if res.Adapter.Name() != "openai" {
		t.Fatalf("expected openai adapter, got %q", res.Adapter.Name())
	}
	if res.ModelOverride != "o3" {
		t.Fatalf("expected premium model override o3, got %q", res.ModelOverride)
	}

	base, err := r.Resolve("openai")
	if err != nil {
		t.Fatalf("openai should resolve: %v", err)
	}
	if base.ModelOverride != "" {
		t.Fatalf("base alias should carry no override, got %q", base.ModelOverride)
	}
}

func TestRegistryUnconfiguredProvider(t *testing.T) {
	clearProviderEnv(t)
	r := NewRegistryFromEnv(testLogger(t), DefaultCatalog())

	if _, err := r.Resolve("anthropic"); err == nil {
		t.Fatalf("expected error for provider without credentials")
	}
	if _, err := r.Resolve("no-such-provider"); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestRegistryXAIUsesOpenAIWireShape(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("XAI_API_KEY", "xk-test")
	r := NewRegistryFromEnv(testLogger(t), DefaultCatalog())

	res, err := r.Resolve("grok")
	if err != nil {
		t.Fatalf("grok should resolve: %v", err)
	}
	if res.Adapter.Name() != "xai" {
		t.Fatalf("expected xai adapter, got %q", res.Adapter.Name())
	}
	if res.Adapter.DefaultModel() != "grok-4" {
		t.Fatalf("expected catalog default model, got %q", res.Adapter.DefaultModel())
	}
}
