// Package embedding turns query text into vectors through a pluggable provider.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"caseprep/internal/embedding/hashing"
	"caseprep/internal/embedding/ollama"
	"caseprep/internal/embedding/openai"
)

// Embedder converts free text into a vector.
// Dimension may be 0 for remote providers until the first call.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

const (
	ProviderOpenAI  = "openai"
	ProviderOllama  = "ollama"
	ProviderHashing = "hashing"

	DefaultProvider = ProviderOpenAI
	DefaultModel    = openai.DefaultModel
)

// ErrEmptyText is returned for blank query text.
var ErrEmptyText = errors.New("embedding: text is empty")

// Spec names a provider and the model to load from it.
type Spec struct {
	Provider  string
	Model     string
	BaseURL   string
	APIKeyEnv string
	Timeout   time.Duration
	// Dimension is the expected vector size; 0 accepts whatever the model returns.
	Dimension int
}

// Loader constructs an embedder for spec.
type Loader func(ctx context.Context, spec Spec) (Embedder, error)

// Registry maps provider names to loaders.
type Registry struct {
	mu      sync.RWMutex
	loaders map[string]Loader
}

func NewRegistry() *Registry {
	return &Registry{loaders: make(map[string]Loader)}
}

func (r *Registry) Register(provider string, l Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[strings.ToLower(provider)] = l
}

// Providers lists registered provider names in sorted order.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.loaders))
	for name := range r.loaders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load builds the embedder for spec and runs one probe embedding to learn
// and check its dimension. The returned embedder rejects blank text and
// any vector whose size differs from the probed dimension.
func (r *Registry) Load(ctx context.Context, spec Spec) (Embedder, error) {
	provider := strings.ToLower(strings.TrimSpace(spec.Provider))
	if provider == "" {
		provider = DefaultProvider
	}
	r.mu.RLock()
	load, ok := r.loaders[provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown embedding provider %q (available: %s)", spec.Provider, strings.Join(r.Providers(), ", "))
	}
	if spec.Model == "" {
		spec.Model = DefaultModel
	}

	e, err := load(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("loading %s model %q: %w", provider, spec.Model, err)
	}

	probe, err := e.Embed(ctx, probeText)
	if err != nil {
		return nil, fmt.Errorf("probing %s model %q: %w", provider, spec.Model, err)
	}
	if len(probe) == 0 {
		return nil, fmt.Errorf("probing %s model %q: empty vector", provider, spec.Model)
	}
	if spec.Dimension > 0 && len(probe) != spec.Dimension {
		return nil, fmt.Errorf("%s model %q produces %d-dimensional vectors, expected %d", provider, spec.Model, len(probe), spec.Dimension)
	}
	return &checked{Embedder: e, dim: len(probe)}, nil
}

const probeText = "dimension probe"

var defaultRegistry = func() *Registry {
	r := NewRegistry()
	r.Register(ProviderOpenAI, func(_ context.Context, s Spec) (Embedder, error) {
		return openai.NewClient(openai.Config{BaseURL: s.BaseURL, APIKeyEnv: s.APIKeyEnv, Model: s.Model, Timeout: s.Timeout})
	})
	r.Register(ProviderOllama, func(_ context.Context, s Spec) (Embedder, error) {
		return ollama.NewClient(ollama.Config{BaseURL: s.BaseURL, APIKeyEnv: s.APIKeyEnv, Model: s.Model, Timeout: s.Timeout})
	})
	r.Register(ProviderHashing, func(_ context.Context, s Spec) (Embedder, error) {
		return hashing.New(s.Dimension), nil
	})
	return r
}()

// Default returns the registry holding the built-in providers.
func Default() *Registry { return defaultRegistry }

// Load resolves spec against the default registry.
func Load(ctx context.Context, spec Spec) (Embedder, error) {
	return defaultRegistry.Load(ctx, spec)
}

type checked struct {
	Embedder
	dim int
}

func (c *checked) Dimension() int { return c.dim }

func (c *checked) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	vec, err := c.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) != c.dim {
		return nil, fmt.Errorf("%s returned %d-dimensional vector, expected %d", c.Name(), len(vec), c.dim)
	}
	return vec, nil
}
