package las

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/webstead/aclengine/internal/acl"
)

// evalDNS matches the client's resolved host name from the resource facts
// against a comma separated list of doublestar patterns, case insensitively.
// "*.example.com" style suffix patterns are the common case.
func evalDNS(attr string, cmp acl.Comparator, pattern string, subject, resource *acl.PList, authInfo, globalAuth *acl.PList, cookie *acl.Cookie) (acl.EvalOutcome, acl.Cacheability) {
	negate, ok := eqOrNE(attr, cmp)
	if !ok {
		return acl.EvalInvalid, acl.NotCacheable
	}

	host := strings.ToLower(resource.GetString(FactDNS))
	if host == "" {
		return acl.EvalNeedMoreInfo, acl.NotCacheable
	}

	matched := false
	for _, p := range patternList(cookie, pattern) {
		p = strings.ToLower(p)
		if p == host {
			matched = true
			break
		}
		if ok, err := doublestar.Match(p, host); err == nil && ok {
			matched = true
			break
		}
	}
	return boolOutcome(matched, negate), acl.ContextCacheable
}
