package acl

import (
	"log/slog"
	"sync"
)

// ProviderFunc evaluates one attribute term. It receives the term's
// attribute name, comparator and pattern, the subject and resource fact
// containers, the authentication info applying to this term (may be nil),
// the aggregate authentication plist of the whole ACE (may be nil) and the
// term's private cookie. It returns the outcome and a cacheability hint for
// the answer.
//
// Provider calls may read and write the fact containers; that is the
// intended cross-term memoization within one request.
type ProviderFunc func(attr string, cmp Comparator, pattern string, subject, resource *PList, authInfo, globalAuth *PList, cookie *Cookie) (EvalOutcome, Cacheability)

// FlushFunc releases provider-private state stored in a term cookie when the
// owning ACE is destroyed.
type FlushFunc func(cookie *Cookie)

// Provider is a registered attribute provider.
type Provider struct {
	Name  string
	Eval  ProviderFunc
	Flush FlushFunc
}

// Registry maps attribute names to providers. Registration is rare (startup,
// reconfiguration) while lookup is per-term; both are safe under concurrency.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]*Provider)}
}

// Register installs the provider for name, silently overwriting any existing
// one (a duplicate registration is logged).
func (r *Registry) Register(name string, eval ProviderFunc, flush FlushFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[name]; exists {
		slog.Warn("attribute provider re-registered", "attr", name)
	}
	r.providers[name] = &Provider{Name: name, Eval: eval, Flush: flush}
}

// Find returns the provider for name.
func (r *Registry) Find(name string) (*Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Names returns the registered attribute names, unordered.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
