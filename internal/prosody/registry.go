package prosody

import (
	"fmt"
	"sort"
	"sync"
)

// Constructor builds a new provider instance from a Config. Providers are not
// singletons: every Create call produces an independent instance.
type Constructor func(cfg Config) (Provider, error)

// Registry maps provider names to constructors. It is populated at startup
// and read-only afterwards; pass it explicitly to whatever boundary
// constructs providers instead of relying on package globals.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// NewDefaultRegistry returns a registry preloaded with the built-in
// providers: rule-based, openai, and kokoro-tts.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	// Registration of the known constructors cannot fail.
	_ = r.Register(ProviderRuleBased, func(cfg Config) (Provider, error) {
		return NewRuleBased(cfg), nil
	})
	_ = r.Register(ProviderOpenAI, func(cfg Config) (Provider, error) {
		return NewOpenAI(cfg)
	})
	_ = r.Register(ProviderKokoroTTS, func(cfg Config) (Provider, error) {
		return NewKokoro(cfg), nil
	})
	return r
}

// Register binds a name to a constructor. It fails for an empty name, a nil
// constructor, or a name that is already registered: names are write-once.
func (r *Registry) Register(name string, ctor Constructor) error {
	if name == "" {
		return fmt.Errorf("register provider: empty name")
	}
	if ctor == nil {
		return fmt.Errorf("register provider %q: nil constructor", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ctors[name]; exists {
		return fmt.Errorf("register provider %q: already registered", name)
	}
	r.ctors[name] = ctor
	return nil
}

// Create constructs a fresh provider instance carrying its own configuration.
// Unknown names yield an UnknownProviderError listing everything registered.
func (r *Registry) Create(name string, cfg Config) (Provider, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnknownProviderError{Name: name, Available: r.List()}
	}
	return ctor(cfg)
}

// List returns the registered provider names, sorted, without instantiating
// any of them.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
