// Package las provides the built-in attribute providers: user, group, ip,
// dns, dayofweek and timeofday. Each provider evaluates one attribute term
// against the request's subject or resource facts; none of them talks to a
// directory or network. Hosts that need richer identity sources register
// their own providers over these names.
package las

import (
	"log/slog"
	"strings"

	"github.com/webstead/aclengine/internal/acl"
)

// Attribute names the built-in providers answer for.
const (
	AttrUser      = "user"
	AttrGroup     = "group"
	AttrIP        = "ip"
	AttrDNS       = "dns"
	AttrDayOfWeek = "dayofweek"
	AttrTimeOfDay = "timeofday"
)

// Subject and resource fact keys the providers consume.
const (
	FactUser   = "user"
	FactGroups = "groups"
	FactIP     = "ip"
	FactDNS    = "dns"
)

// RegisterAll installs every built-in provider into the registry.
func RegisterAll(r *acl.Registry) {
	r.Register(AttrUser, evalUser, flushCookie)
	r.Register(AttrGroup, evalGroup, flushCookie)
	r.Register(AttrIP, evalIP, flushCookie)
	r.Register(AttrDNS, evalDNS, flushCookie)
	r.Register(AttrDayOfWeek, evalDayOfWeek, nil)
	r.Register(AttrTimeOfDay, evalTimeOfDay, nil)
}

// flushCookie drops whatever parsed pattern a provider stashed in the term
// cookie.
func flushCookie(cookie *acl.Cookie) {
	cookie.SetValue(nil)
}

// eqOrNE validates the comparator shared by every built-in provider and
// returns whether the sense is negated. The built-in attributes have no
// ordering, so anything beyond = and != is a policy error.
func eqOrNE(attr string, cmp acl.Comparator) (negate bool, ok bool) {
	switch cmp {
	case acl.CmpEQ:
		return false, true
	case acl.CmpNE:
		return true, true
	default:
		slog.Error("unsupported comparator for attribute", "attr", attr, "cmp", cmp.String())
		return false, false
	}
}

// splitPattern splits a comma separated pattern list, trimming whitespace
// and dropping empty items.
func splitPattern(pattern string) []string {
	parts := strings.Split(pattern, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// boolOutcome maps a match through the comparator sense.
func boolOutcome(matched, negate bool) acl.EvalOutcome {
	if matched != negate {
		return acl.EvalTrue
	}
	return acl.EvalFalse
}
