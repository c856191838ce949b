package llm

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Provider is the uniform completion contract over upstream AI dialects.
//
// GenerateStream writes zero or more delta chunks followed by exactly one
// done chunk to deltaCh, then returns nil. On failure it returns the error
// without sending done; the stream is closed on the first error. The caller
// owns deltaCh and closes it after GenerateStream returns.
type Provider interface {
	// Name returns the provider identifier (e.g. "openai", "mock").
	Name() string

	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	GenerateStream(ctx context.Context, req *GenerateRequest, deltaCh chan<- StreamChunk) error

	// IsAvailable reports whether the provider is usable (credentials present,
	// upstream reachable for remote providers).
	IsAvailable(ctx context.Context) bool
}

// ProviderConfig holds configuration for one provider instance.
type ProviderConfig struct {
	Name    string `json:"name"`
	Type    string `json:"type"` // "openai" (default) | "anthropic" | "gemini" | "mock" | "http-json"
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`
}

// --- Provider Factory Registry ---
// Providers register themselves via init() in their own package.
// Adding a new provider type = implement Provider + RegisterFactory("type", New).

// ProviderFactory creates a Provider from config.
type ProviderFactory func(cfg ProviderConfig, logger *zap.Logger) Provider

var (
	factoryMu sync.RWMutex
	factories = map[string]ProviderFactory{}
)

// RegisterFactory registers a provider factory for the given type name.
// Called from init() in each provider sub-package (e.g. llm/openai).
func RegisterFactory(typeName string, factory ProviderFactory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factories[typeName] = factory
}

// CreateProvider creates a Provider using the registered factory for cfg.Type.
// If Type is empty, defaults to "openai".
func CreateProvider(cfg ProviderConfig, logger *zap.Logger) (Provider, error) {
	t := cfg.Type
	if t == "" {
		t = "openai"
	}

	factoryMu.RLock()
	factory, ok := factories[t]
	factoryMu.RUnlock()

	if !ok {
		factoryMu.RLock()
		available := make([]string, 0, len(factories))
		for k := range factories {
			available = append(available, k)
		}
		factoryMu.RUnlock()
		return nil, fmt.Errorf("unknown provider type %q (available: %v)", t, available)
	}

	return factory(cfg, logger), nil
}
