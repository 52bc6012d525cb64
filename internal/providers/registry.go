package providers

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/yungbote/scribe-backend/internal/platform/envutil"
	"github.com/yungbote/scribe-backend/internal/platform/logger"
)

// Resolution is a resolved mention or provider request: the adapter plus an
// optional model override for tiered aliases like "openai-pro".
type Resolution struct {
	Adapter       Adapter
	ModelOverride string
}

// Registry maps provider names and their aliases to configured adapters.
// Adapters register only when their backend is reachable in principle (API
// key set); the local adapter always registers so safe mode has a target.
type Registry struct {
	mu       sync.RWMutex
	log      *logger.Logger
	catalog  Catalog
	adapters map[string]Adapter
	aliases  map[string]string
	premium  map[string]string // alias -> model override
}

func NewRegistry(log *logger.Logger, catalog Catalog) *Registry {
	return &Registry{
		log:      log.With("service", "ProviderRegistry"),
		catalog:  catalog,
		adapters: map[string]Adapter{},
		aliases:  map[string]string{},
		premium:  map[string]string{},
	}
}

// NewRegistryFromEnv wires every adapter whose credentials are present.
func NewRegistryFromEnv(log *logger.Logger, catalog Catalog) *Registry {
	r := NewRegistry(log, catalog)

	if key := envutil.String("OPENAI_API_KEY", ""); key != "" {
		entry, _ := catalog.Entry("openai")
		r.Register(NewOpenAIAdapter(log, OpenAIOptions{
			Name:         "openai",
			Label:        labelOr(entry.Label, "Codex"),
			BaseURL:      envutil.String("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			APIKey:       key,
			DefaultModel: entry.DefaultModel,
		}), "gpt", "codex")
		if entry.PremiumModel != "" {
			r.RegisterPremiumAlias("openai-pro", "openai", entry.PremiumModel)
		}
	}

	if key := envutil.String("ANTHROPIC_API_KEY", ""); key != "" {
		entry, _ := catalog.Entry("anthropic")
		r.Register(NewAnthropicAdapter(log, AnthropicOptions{
			BaseURL:      envutil.String("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
			APIKey:       key,
			DefaultModel: entry.DefaultModel,
		}), "claude")
	}

	if key := envutil.String("XAI_API_KEY", ""); key != "" {
		entry, _ := catalog.Entry("xai")
		r.Register(NewOpenAIAdapter(log, OpenAIOptions{
			Name:         "xai",
			Label:        labelOr(entry.Label, "Grok"),
			BaseURL:      envutil.String("XAI_BASE_URL", "https://api.x.ai/v1"),
			APIKey:       key,
			DefaultModel: entry.DefaultModel,
		}), "grok")
	}

	// The local backend needs no credentials and anchors safe mode.
	localEntry, _ := catalog.Entry("local")
	r.Register(NewOpenAIAdapter(log, OpenAIOptions{
		Name:         "local",
		Label:        labelOr(localEntry.Label, "Local"),
		BaseURL:      envutil.String("OLLAMA_BASE_URL", "http://localhost:11434/v1"),
		APIKey:       envutil.String("OLLAMA_API_KEY", ""),
		DefaultModel: localEntry.DefaultModel,
	}), "ollama")

	return r
}

func labelOr(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// Register installs an adapter under its canonical name plus any aliases.
func (r *Registry) Register(a Adapter, aliases ...string) {
	if a == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	name := normalizeName(a.Name())
	r.adapters[name] = a
	for _, alias := range aliases {
		r.aliases[normalizeName(alias)] = name
	}
}

// RegisterPremiumAlias maps an alias to an existing adapter with a fixed
// model override.
func (r *Registry) RegisterPremiumAlias(alias, target, model string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[normalizeName(alias)] = normalizeName(target)
	r.premium[normalizeName(alias)] = model
}

// Resolve maps a provider name or alias to its adapter. Unknown or
// unconfigured providers return an error naming the request.
func (r *Registry) Resolve(name string) (Resolution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key := normalizeName(name)
	if key == "" {
		key = "local"
	}
	override := r.premium[key]
	if canonical, ok := r.aliases[key]; ok {
		key = canonical
	}
	a, ok := r.adapters[key]
	if !ok {
		return Resolution{}, fmt.Errorf("provider %q is not configured", name)
	}
	return Resolution{Adapter: a, ModelOverride: override}, nil
}

// Configured lists canonical provider names in stable order.
func (r *Registry) Configured() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Catalog() Catalog { return r.catalog }

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
