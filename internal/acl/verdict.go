package acl

import (
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/google/uuid"
)

const defaultVerdictCacheSize = 4096

// VerdictCache remembers allow verdicts that came back indefinitely
// cacheable, keyed by list identity, the canonical requested-rights set and
// the configured default result, so the host can skip evaluation entirely on
// repeated requests. Only allow is ever stored: an indefinite allow means no
// future request against this exact list can be denied those rights, while a
// non-allow verdict may still hinge on per-request state. A rebuilt policy
// gets a new list UUID, so stale entries simply stop being hit and age out.
type VerdictCache struct {
	lru *lru.Cache[string, *Verdict]
}

// NewVerdictCache creates a cache holding up to size verdicts; size <= 0
// uses the default.
func NewVerdictCache(size int) (*VerdictCache, error) {
	if size <= 0 {
		size = defaultVerdictCacheSize
	}
	c, err := lru.New[string, *Verdict](size)
	if err != nil {
		return nil, err
	}
	return &VerdictCache{lru: c}, nil
}

// Get returns the cached verdict for the list, rights set and default
// result.
func (c *VerdictCache) Get(listID uuid.UUID, rights []string, defaultResult Decision) (*Verdict, bool) {
	return c.lru.Get(verdictKey(listID, rights, defaultResult))
}

// Put stores a verdict if, and only if, it is an indefinitely cacheable
// allow. The default result is part of the key: a right no ACE mentions
// resolves to the configured default, so the same rights set can legitimately
// answer differently under different defaults.
func (c *VerdictCache) Put(listID uuid.UUID, rights []string, defaultResult Decision, v *Verdict) {
	if v == nil || v.Decision != DecisionAllow || v.Cacheability != IndefinitelyCacheable {
		return
	}
	c.lru.Add(verdictKey(listID, rights, defaultResult), v)
}

// Len returns the number of cached verdicts.
func (c *VerdictCache) Len() int {
	return c.lru.Len()
}

// verdictKey canonicalizes a rights set: lowercased, sorted, deduplicated.
func verdictKey(listID uuid.UUID, rights []string, defaultResult Decision) string {
	names := make([]string, 0, len(rights))
	for _, r := range rights {
		names = append(names, strings.ToLower(strings.TrimSpace(r)))
	}
	sort.Strings(names)
	var b strings.Builder
	b.WriteString(listID.String())
	b.WriteByte('/')
	b.WriteString(defaultResult.String())
	last := ""
	for _, n := range names {
		if n == last {
			continue
		}
		b.WriteByte('|')
		b.WriteString(n)
		last = n
	}
	return b.String()
}
