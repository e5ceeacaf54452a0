package las

import (
	"github.com/bmatcuk/doublestar/v4"
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/webstead/aclengine/internal/acl"
)

// evalGroup matches the subject's group memberships against a comma
// separated list of group names or wildcard patterns. Memberships must have
// been established in the subject under FactGroups, either by the host or by
// an authentication provider; accepted shapes are a string set, a string
// slice or a comma separated string.
func evalGroup(attr string, cmp acl.Comparator, pattern string, subject, resource *acl.PList, authInfo, globalAuth *acl.PList, cookie *acl.Cookie) (acl.EvalOutcome, acl.Cacheability) {
	negate, ok := eqOrNE(attr, cmp)
	if !ok {
		return acl.EvalInvalid, acl.NotCacheable
	}

	groups := subjectGroups(subject)
	if groups == nil {
		return acl.EvalNeedMoreInfo, acl.NotCacheable
	}

	matched := false
	for _, p := range patternList(cookie, pattern) {
		if groups.Contains(p) {
			matched = true
			break
		}
		groups.Each(func(g string) bool {
			if ok, err := doublestar.Match(p, g); err == nil && ok {
				matched = true
			}
			return matched
		})
		if matched {
			break
		}
	}
	return boolOutcome(matched, negate), acl.ContextCacheable
}

func subjectGroups(subject *acl.PList) mapset.Set[string] {
	v, ok := subject.Get(FactGroups)
	if !ok {
		return nil
	}
	switch g := v.(type) {
	case mapset.Set[string]:
		return g
	case []string:
		return mapset.NewSet(g...)
	case string:
		return mapset.NewSet(splitPattern(g)...)
	default:
		return nil
	}
}
