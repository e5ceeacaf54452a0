package las

import (
	"net/netip"
	"strings"

	"github.com/webstead/aclengine/internal/acl"
)

// ipMatcher is the parsed form of an ip term pattern, cached in the term
// cookie so the address parsing happens once per term.
type ipMatcher struct {
	prefixes  []netip.Prefix
	wildcards []string
	bad       bool
}

// evalIP matches the client address from the resource facts against a comma
// separated list of addresses, CIDR prefixes or dotted wildcard patterns
// like "10.3.*". A malformed pattern is a policy error, not a denial.
func evalIP(attr string, cmp acl.Comparator, pattern string, subject, resource *acl.PList, authInfo, globalAuth *acl.PList, cookie *acl.Cookie) (acl.EvalOutcome, acl.Cacheability) {
	negate, ok := eqOrNE(attr, cmp)
	if !ok {
		return acl.EvalInvalid, acl.NotCacheable
	}

	m, ok := cookie.Value().(*ipMatcher)
	if !ok {
		m = parseIPPattern(pattern)
		cookie.SetValue(m)
	}
	if m.bad {
		return acl.EvalInvalid, acl.NotCacheable
	}

	raw := resource.GetString(FactIP)
	if raw == "" {
		return acl.EvalNeedMoreInfo, acl.NotCacheable
	}
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return acl.EvalFail, acl.NotCacheable
	}
	addr = addr.Unmap()

	matched := false
	for _, p := range m.prefixes {
		if p.Contains(addr) {
			matched = true
			break
		}
	}
	if !matched {
		s := addr.String()
		for _, w := range m.wildcards {
			if matchDotted(w, s) {
				matched = true
				break
			}
		}
	}
	return boolOutcome(matched, negate), acl.ContextCacheable
}

func parseIPPattern(pattern string) *ipMatcher {
	m := &ipMatcher{}
	for _, p := range splitPattern(pattern) {
		switch {
		case strings.Contains(p, "/"):
			pfx, err := netip.ParsePrefix(p)
			if err != nil {
				m.bad = true
				return m
			}
			m.prefixes = append(m.prefixes, pfx.Masked())
		case strings.Contains(p, "*"):
			m.wildcards = append(m.wildcards, p)
		default:
			addr, err := netip.ParseAddr(p)
			if err != nil {
				m.bad = true
				return m
			}
			m.prefixes = append(m.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
		}
	}
	return m
}

// matchDotted compares an address against a dotted wildcard pattern
// component by component; a "*" component matches anything, and a trailing
// "*" swallows the remaining components.
func matchDotted(pattern, addr string) bool {
	pp := strings.Split(pattern, ".")
	ap := strings.Split(addr, ".")
	for i, p := range pp {
		if p == "*" {
			if i == len(pp)-1 {
				return true
			}
			continue
		}
		if i >= len(ap) || p != ap[i] {
			return false
		}
	}
	return len(pp) == len(ap)
}
