package acl

import (
	"log/slog"
)

// Engine bundles a provider registry, a generic-rights table, a result
// policy and a verdict cache behind the single entry point a host server
// embeds.
type Engine struct {
	registry *Registry
	generics *GenericRights
	policy   ResultPolicy
	verdicts *VerdictCache
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithGenericRights replaces the default generic-rights table.
func WithGenericRights(g *GenericRights) EngineOption {
	return func(e *Engine) { e.generics = g }
}

// WithResultPolicy overrides the default outcome-to-decision policy.
func WithResultPolicy(p ResultPolicy) EngineOption {
	return func(e *Engine) { e.policy = p }
}

// WithVerdictCacheSize sizes the verdict cache.
func WithVerdictCacheSize(n int) EngineOption {
	return func(e *Engine) { e.verdicts, _ = NewVerdictCache(n) }
}

// NewEngine creates an engine with an empty registry, the default HTTP
// generic-rights table, the default result policy and a default-sized
// verdict cache.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		registry: NewRegistry(),
		generics: DefaultGenericRights(),
		policy:   DefaultResultPolicy(),
	}
	e.verdicts, _ = NewVerdictCache(0)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the engine's provider registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// GenericRights returns the engine's generic-rights table.
func (e *Engine) GenericRights() *GenericRights {
	return e.generics
}

// Authorize resolves the requested rights for the given subject and
// resource facts against the list. The list is borrowed for the duration of
// the call. Verdicts that came back indefinitely cacheable are served from
// the verdict cache on repeat requests.
func (e *Engine) Authorize(list *ACLList, subject, resource *PList, rights []string, defaultResult Decision) (*Verdict, error) {
	if list != nil && list != NoACLs {
		if v, ok := e.verdicts.Get(list.ID, rights, defaultResult); ok {
			return v, nil
		}
	}

	ctx := NewEvalContext(e.registry)
	ctx.SetACLList(list)
	if subject != nil {
		ctx.SetSubject(subject)
	}
	if resource != nil {
		ctx.SetResource(resource)
	}
	ctx.SetDefaultResult(defaultResult)
	ctx.SetPolicy(e.policy)
	defer ctx.DestroyBorrowed()

	v, err := ResolveRights(ctx, rights, e.generics)
	if err != nil {
		return v, err
	}
	if list != nil && list != NoACLs {
		e.verdicts.Put(list.ID, rights, defaultResult, v)
	}
	slog.Debug("acl authorize", "rights", rights, "decision", v.Decision, "cacheable", v.Cacheability)
	return v, nil
}

// AlwaysAllows reports whether the list can never deny the given rights.
func (e *Engine) AlwaysAllows(list *ACLList, rights []string) bool {
	return AlwaysAllows(list, rights, e.generics, e.registry)
}

// CanDeny reports whether any deny clause in the list could fire for the
// given rights.
func (e *Engine) CanDeny(list *ACLList, rights []string) bool {
	return CanDeny(list, rights, e.generics)
}
