package acl

import (
	"errors"
)

var ErrNoProvider = errors.New("no attribute provider registered")

// EvaluateExpression walks one flattened expression from term index 0,
// following true/false jump targets until a sentinel ends the walk or a
// provider reports a non-boolean outcome. termAuth carries the
// authentication info applying to each term (entries may be nil), globalAuth
// the aggregate authentication plist of the whole ACE; both may be nil.
//
// The returned cacheability is the minimum over every term consulted.
func EvaluateExpression(ctx *EvalContext, terms []*Term, termAuth []*PList, globalAuth *PList) (EvalOutcome, Cacheability) {
	cacheable := IndefinitelyCacheable
	var prevInfo *PList

	// The applied database facts are scoped to this walk; clear them on the
	// way out so the next expression does not see another clause's entries.
	defer func() {
		switchAuthInfo(ctx.resource, prevInfo, nil)
	}()

	idx := 0
	for {
		switch idx {
		case TargetTrue:
			return EvalTrue, cacheable
		case TargetFalse:
			return EvalFalse, cacheable
		}
		if idx < 0 || idx >= len(terms) {
			return EvalInvalid, cacheable
		}
		t := terms[idx]

		// Resolve the provider once per term, then reuse it.
		prov := t.prov.Load()
		if prov == nil {
			p, ok := ctx.registry.Find(t.Attr)
			if !ok {
				return EvalInvalid, cacheable
			}
			t.prov.Store(p)
			prov = p
		}

		// When the auth info changes between terms, swap the cached
		// database facts on the resource so providers see the database
		// configured for this term.
		var info *PList
		if termAuth != nil && idx < len(termAuth) {
			info = termAuth[idx]
		}
		if info != prevInfo {
			switchAuthInfo(ctx.resource, prevInfo, info)
			prevInfo = info
		}

		outcome, c := prov.Eval(t.Attr, t.Cmp, t.Pattern, ctx.subject, ctx.resource, info, globalAuth, &t.cookie)
		cacheable = cacheable.Min(c)

		switch outcome {
		case EvalTrue:
			idx = t.TrueTarget
		case EvalFalse:
			idx = t.FalseTarget
		default:
			return outcome, cacheable
		}
	}
}

// switchAuthInfo clears the entries cached on the resource for the previous
// auth info and repopulates them from the new one.
func switchAuthInfo(resource *PList, prev, next *PList) {
	if resource == nil {
		return
	}
	if prev != nil {
		for _, k := range prev.Keys() {
			resource.Delete(k)
		}
	}
	if next != nil {
		next.Range(func(k string, v any) bool {
			resource.Set(k, v)
			return true
		})
	}
}
