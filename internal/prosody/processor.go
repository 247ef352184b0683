package prosody

import (
	"context"
	"fmt"
)

// Processor is a thin facade over one provider instance: it resolves the
// provider by name, validates its configuration once, and forwards analysis
// calls.
type Processor struct {
	name     string
	provider Provider
	registry *Registry
}

// NewProcessor resolves and constructs a provider via reg, then validates its
// configuration. Construction or validation failure is returned immediately;
// no lazily-deferred errors.
func NewProcessor(reg *Registry, name string, cfg Config) (*Processor, error) {
	p, err := reg.Create(name, cfg)
	if err != nil {
		return nil, err
	}
	if err := p.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("validate %s config: %w", name, err)
	}
	return &Processor{name: name, provider: p, registry: reg}, nil
}

// Analyze delegates to the held provider, returning its Result unchanged.
func (pr *Processor) Analyze(ctx context.Context, text string, opts AnalysisOptions) (*Result, error) {
	return pr.provider.Analyze(ctx, text, opts)
}

// BatchAnalyze runs the chunking engine over the held provider.
func (pr *Processor) BatchAnalyze(ctx context.Context, text string, opts AnalysisOptions, copts ChunkOptions) (*Result, error) {
	return BatchAnalyze(ctx, pr.provider, text, opts, copts)
}

// StreamAnalyze returns a lazy word stream over the held provider.
func (pr *Processor) StreamAnalyze(ctx context.Context, text string, opts AnalysisOptions) (*Stream, error) {
	return StreamAnalyze(ctx, pr.provider, text, opts)
}

// Provider exposes the held provider instance.
func (pr *Processor) Provider() Provider { return pr.provider }

// ProviderInfo reports the held provider's capabilities.
func (pr *Processor) ProviderInfo() Capabilities {
	return pr.provider.Capabilities()
}

// ListProviders reports every name registered in the backing registry.
func (pr *Processor) ListProviders() []string {
	return pr.registry.List()
}
