package acl

import (
	"errors"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

var ErrNoRegistry = errors.New("no provider registry attached")

// Verdict is the outcome of resolving a rights request: the decision, the
// responsible ACL tag and ACE sequence number when the decision is a denial
// or an error, the list's configured deny response and the overall
// cacheability of the answer.
type Verdict struct {
	Decision     Decision
	ACLTag       string
	ACESeq       int
	DenyType     string
	DenyResponse string
	Cacheability Cacheability
}

// chainCursor walks one right's chain of ACE global indices in order.
type chainCursor struct {
	chain []int
	pos   int
}

func (c *chainCursor) peek() (int, bool) {
	if c.pos >= len(c.chain) {
		return 0, false
	}
	return c.chain[c.pos], true
}

func (c *chainCursor) advanceIf(idx int) bool {
	if p, ok := c.peek(); ok && p == idx {
		c.pos++
		return true
	}
	return false
}

// rightState tracks one requested right through the merge: its canonical
// name, interim result, whether an absolute ACE fixed it, the chain cursors
// feeding it and the deny diagnostics for its interim result.
type rightState struct {
	name     string
	result   Decision
	absolute bool
	cursors  []*chainCursor

	denyTag string
	denySeq int
}

// pendingErr is a deferred error from an allow clause. It may be superseded
// by a later successful allow, but takes priority over any deny error about
// to be returned.
type pendingErr struct {
	decision Decision
	tag      string
	seq      int
}

// ResolveRights merges the ACE chains relevant to the requested rights in
// global declaration order and produces the final decision. generics may be
// nil. The returned error is non-nil only for internal failures (a failed
// cache build, a missing registry), never for a policy denial.
func ResolveRights(ctx *EvalContext, rights []string, generics *GenericRights) (*Verdict, error) {
	list := ctx.list
	if list == nil || list == NoACLs {
		return &Verdict{Decision: DecisionAllow, ACESeq: noSeq, Cacheability: IndefinitelyCacheable}, nil
	}
	if ctx.registry == nil {
		return &Verdict{Decision: DecisionFail, ACESeq: noSeq, Cacheability: NotCacheable}, ErrNoRegistry
	}

	cache, err := list.evalCache()
	if err != nil {
		return &Verdict{Decision: DecisionFail, ACESeq: noSeq, Cacheability: NotCacheable}, err
	}

	states := make([]*rightState, 0, len(rights))
	for _, r := range rights {
		st := &rightState{
			name:    strings.ToLower(strings.TrimSpace(r)),
			result:  ctx.defaultResult,
			denySeq: noSeq,
		}
		if chain, ok := cache.rights[st.name]; ok {
			st.cursors = append(st.cursors, &chainCursor{chain: chain})
		}
		for _, generic := range generics.GenericsFor(st.name) {
			if chain, ok := cache.rights[generic]; ok {
				st.cursors = append(st.cursors, &chainCursor{chain: chain})
			}
		}
		states = append(states, st)
	}
	allCursor := &chainCursor{chain: cache.rights[RightAll]}

	cacheable := IndefinitelyCacheable
	var pending *pendingErr
	pendingAbsolute := false
	var prevAuth *PList

	denied := func(d Decision, tag string, seq int) *Verdict {
		return &Verdict{
			Decision:     d,
			ACLTag:       tag,
			ACESeq:       seq,
			DenyType:     cache.denyType,
			DenyResponse: cache.denyResponse,
			Cacheability: cacheable,
		}
	}
	fromPending := func() *Verdict {
		return denied(pending.decision, pending.tag, pending.seq)
	}

	for {
		// Smallest not-yet-consumed global index across the cursors of
		// every non-fixed right plus the "all" chain.
		next := -1
		consider := func(c *chainCursor) {
			if p, ok := c.peek(); ok && (next == -1 || p < next) {
				next = p
			}
		}
		for _, st := range states {
			if st.absolute {
				continue
			}
			for _, cur := range st.cursors {
				consider(cur)
			}
		}
		consider(allCursor)
		if next == -1 {
			break
		}
		ca := cache.aces[next]
		ace := ca.ace

		// A different authenticate block governs this ACE: cached
		// subject facts for its attributes are stale, force
		// re-authentication under the new context.
		if ca.authPlist != prevAuth {
			if ca.authPlist != nil && ctx.subject != nil {
				for _, k := range ca.authPlist.Keys() {
					ctx.subject.Delete(k)
				}
			}
			prevAuth = ca.authPlist
		}

		outcome, c := EvaluateExpression(ctx, ace.Terms, ca.termAuth, ca.authPlist)
		cacheable = cacheable.Min(c)

		if !outcome.Bool() {
			switch ace.Kind {
			case ACEAllow:
				// Defer: a later successful allow may supersede.
				if pending == nil {
					pending = &pendingErr{
						decision: ctx.policy.DecisionFor(outcome),
						tag:      ace.ACLTag(),
						seq:      ace.Seq(),
					}
				}
				if ace.Absolute() {
					pendingAbsolute = true
				}
			case ACEDeny:
				// Deny errors are not deferred, but a pending
				// allow error takes priority.
				if pending != nil {
					return fromPending(), nil
				}
				return denied(ctx.policy.DecisionFor(outcome), ace.ACLTag(), ace.Seq()), nil
			}
			advanceCursors(states, allCursor, next)
			continue
		}

		fired := outcome == EvalTrue
		matchedAll := allCursor.advanceIf(next)
		newAbsolute := false

		for _, st := range states {
			matched := matchedAll
			for _, cur := range st.cursors {
				if cur.advanceIf(next) {
					matched = true
				}
			}
			if !matched || !fired || st.absolute {
				continue
			}
			switch ace.Kind {
			case ACEAllow:
				st.result = DecisionAllow
				if ace.Absolute() {
					st.absolute = true
					newAbsolute = true
					// An absolute success supersedes even an
					// absolute allow error.
					pending = nil
					pendingAbsolute = false
				} else if !pendingAbsolute {
					pending = nil
				}
			case ACEDeny:
				if ace.Absolute() {
					if pending != nil {
						return fromPending(), nil
					}
					return denied(DecisionDeny, ace.ACLTag(), ace.Seq()), nil
				}
				st.result = DecisionDeny
				st.denyTag = ace.ACLTag()
				st.denySeq = ace.Seq()
			}
		}

		if newAbsolute {
			done := true
			for _, st := range states {
				if !st.absolute || st.result != DecisionAllow {
					done = false
					break
				}
			}
			if done {
				return &Verdict{Decision: DecisionAllow, ACESeq: noSeq, Cacheability: cacheable}, nil
			}
		}
	}

	for _, st := range states {
		if st.result == DecisionAllow {
			continue
		}
		if pending != nil {
			return fromPending(), nil
		}
		return denied(st.result, st.denyTag, st.denySeq), nil
	}
	return &Verdict{Decision: DecisionAllow, ACESeq: noSeq, Cacheability: cacheable}, nil
}

// advanceCursors consumes idx from every cursor currently pointing at it.
func advanceCursors(states []*rightState, allCursor *chainCursor, idx int) {
	allCursor.advanceIf(idx)
	for _, st := range states {
		for _, cur := range st.cursors {
			cur.advanceIf(idx)
		}
	}
}

// AlwaysAllows reports whether resolving the given rights against the list
// yields allow with an indefinitely cacheable answer, meaning no future
// request against this exact list can ever be denied those rights. The list
// is borrowed, not owned.
func AlwaysAllows(list *ACLList, rights []string, generics *GenericRights, registry *Registry) bool {
	ctx := NewEvalContext(registry)
	ctx.SetACLList(list)
	defer ctx.DestroyBorrowed()
	v, err := ResolveRights(ctx, rights, generics)
	if err != nil {
		return false
	}
	return v.Decision == DecisionAllow && v.Cacheability == IndefinitelyCacheable
}

// CanDeny reports whether any deny clause in the list could possibly fire
// for one of the given rights. This is a static scan over declared right
// sets; no attribute provider is invoked.
func CanDeny(list *ACLList, rights []string, generics *GenericRights) bool {
	if list == nil || list == NoACLs {
		return false
	}
	wanted := mapset.NewSet[string]()
	for _, r := range rights {
		name := strings.ToLower(strings.TrimSpace(r))
		wanted.Add(name)
		for _, generic := range generics.GenericsFor(name) {
			wanted.Add(generic)
		}
	}
	could := false
	for _, a := range list.acls {
		for _, ace := range a.ACEs() {
			if ace.Kind != ACEDeny {
				continue
			}
			wanted.Each(func(right string) bool {
				if ace.governs(right) {
					could = true
				}
				return could
			})
			if could {
				return true
			}
		}
	}
	return false
}
