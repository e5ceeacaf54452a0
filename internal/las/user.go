package las

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/webstead/aclengine/internal/acl"
)

const (
	// userAnyone matches every request, authenticated or not.
	userAnyone = "anyone"

	// userAll matches any authenticated user.
	userAll = "all"
)

// evalUser matches the authenticated user name against a comma separated
// list of names or wildcard patterns. "anyone" short-circuits without
// touching the subject at all, so an anonymous-access clause stays
// indefinitely cacheable.
func evalUser(attr string, cmp acl.Comparator, pattern string, subject, resource *acl.PList, authInfo, globalAuth *acl.PList, cookie *acl.Cookie) (acl.EvalOutcome, acl.Cacheability) {
	negate, ok := eqOrNE(attr, cmp)
	if !ok {
		return acl.EvalInvalid, acl.NotCacheable
	}

	patterns := patternList(cookie, pattern)
	for _, p := range patterns {
		if strings.EqualFold(p, userAnyone) {
			return boolOutcome(true, negate), acl.IndefinitelyCacheable
		}
	}

	user := subject.GetString(FactUser)
	if user == "" {
		return acl.EvalNeedMoreInfo, acl.NotCacheable
	}

	matched := false
	for _, p := range patterns {
		if strings.EqualFold(p, userAll) {
			matched = true
			break
		}
		if ok, err := doublestar.Match(p, user); err == nil && ok {
			matched = true
			break
		}
	}
	return boolOutcome(matched, negate), acl.ContextCacheable
}

// patternList returns the split pattern, parsing it once per term and
// memoizing the slice in the term cookie.
func patternList(cookie *acl.Cookie, pattern string) []string {
	if v, ok := cookie.Value().([]string); ok {
		return v
	}
	parts := splitPattern(pattern)
	cookie.SetValue(parts)
	return parts
}
