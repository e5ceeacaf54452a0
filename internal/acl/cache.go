package acl

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

var ErrCacheBuild = errors.New("evaluation cache build failed")

// cachedACE is one ACE in the list-wide evaluation order, with its
// precomputed authentication pointers.
type cachedACE struct {
	ace    *ACE
	global int

	// termAuth holds, per term, the auth info of whichever authenticate
	// clause governs that term's attribute; entries may be nil.
	termAuth []*PList

	// authPlist is the running authentication plist in effect when this
	// ACE was appended, set only when some term needs authentication.
	// Keys are attribute names, values the per-attribute auth info.
	authPlist *PList
}

// listCache is the evaluation cache of one ACL list: the right-name to
// ACE-chain mapping, the flat global ACE order, per-ACE authentication
// pointers and the list-wide deny response. Built at most once per list
// instance, immutable afterward.
type listCache struct {
	rights map[string][]int
	aces   []*cachedACE

	denyType     string
	denyResponse string
}

// buildMu serializes evaluation-cache construction across all lists. The
// lock only guards the build itself; readers of a published cache take no
// lock at all.
var buildMu sync.Mutex

// evalCache returns the list's evaluation cache, building it on first use.
// Concurrent first-touchers race to the lock and re-check, so exactly one
// cache is ever built and published per list instance; a failed build leaves
// the pointer null so the next caller retries.
func (l *ACLList) evalCache() (*listCache, error) {
	if c := l.cache.Load(); c != nil {
		return c, nil
	}
	buildMu.Lock()
	defer buildMu.Unlock()
	if c := l.cache.Load(); c != nil {
		return c, nil
	}
	start := time.Now()
	c, err := buildEvalCache(l)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheBuild, err)
	}
	l.cache.Store(c)
	slog.Debug("acl eval cache built", "list", l.ID, "acls", len(l.acls), "aces", len(c.aces), "rights", len(c.rights), "took", time.Since(start))
	return c, nil
}

// buildEvalCache runs the one-time pass over every ACL in list order,
// assigning global ACE indices, appending allow/deny ACEs to their rights'
// chains and threading the running authentication plist through.
func buildEvalCache(l *ACLList) (*listCache, error) {
	cache := &listCache{rights: make(map[string][]int)}

	// curAuth maps attribute name to the auth info of the authenticate
	// clause currently governing it. Extended copy-on-write so earlier
	// ACEs keep the plist they were built against. absAttrs records
	// attributes bound by an absolute authenticate; later non-absolute
	// clauses cannot override those.
	var curAuth *PList
	absAttrs := mapset.NewSet[string]()

	for _, a := range l.acls {
		firstAuthInACL := true
		for _, ace := range a.ACEs() {
			ca := &cachedACE{ace: ace, global: len(cache.aces)}

			switch ace.Kind {
			case ACEAllow, ACEDeny:
				if err := ValidateTerms(ace.Terms); err != nil {
					return nil, fmt.Errorf("acl %q ace %d: %w", a.Tag, ace.Seq(), err)
				}
				for _, right := range ace.Rights {
					cache.rights[right] = append(cache.rights[right], ca.global)
				}
				if curAuth != nil {
					needsAuth := false
					ca.termAuth = make([]*PList, len(ace.Terms))
					for i, t := range ace.Terms {
						if v, ok := curAuth.Get(t.Attr); ok {
							ca.termAuth[i] = v.(*PList)
							needsAuth = true
						}
					}
					if needsAuth {
						ca.authPlist = curAuth
					} else {
						ca.termAuth = nil
					}
				}

			case ACEAuthenticate:
				if firstAuthInACL {
					// A new ACL starts from a fresh plist; only
					// absolute bindings survive across ACLs.
					fresh := NewPList()
					if curAuth != nil {
						curAuth.Range(func(k string, v any) bool {
							if absAttrs.Contains(k) {
								fresh.Set(k, v)
							}
							return true
						})
					}
					curAuth = fresh
					firstAuthInACL = false
				} else {
					curAuth = curAuth.Clone()
				}
				for _, attr := range ace.AuthAttrs {
					if absAttrs.Contains(attr) {
						continue
					}
					curAuth.Set(attr, ace.AuthInfo)
					if ace.Absolute() {
						absAttrs.Add(attr)
					}
				}

			case ACEDenyResponse:
				// Later deny-with statements win.
				cache.denyType = ace.DenyType
				cache.denyResponse = ace.DenyResponse

			default:
				return nil, fmt.Errorf("acl %q: unknown ace kind %d", a.Tag, ace.Kind)
			}

			cache.aces = append(cache.aces, ca)
		}
	}
	return cache, nil
}
