package acl

import (
	"strings"
)

// ACEKind is the clause kind of an access control expression.
type ACEKind int

const (
	ACEAllow ACEKind = iota
	ACEDeny
	ACEAuthenticate
	ACEDenyResponse
)

func (k ACEKind) String() string {
	switch k {
	case ACEAllow:
		return "allow"
	case ACEDeny:
		return "deny"
	case ACEAuthenticate:
		return "authenticate"
	case ACEDenyResponse:
		return "deny-with"
	default:
		return "unknown"
	}
}

// ACEFlags is the flag bitset of an ACE.
type ACEFlags uint32

const (
	// FlagAbsolute makes the ACE non-overridable once it fires true.
	FlagAbsolute ACEFlags = 1 << iota
	// FlagContent and FlagTerminal are source-compatibility flags carried
	// through from the compiled form; the evaluator does not act on them.
	FlagContent
	FlagTerminal
)

// noSeq marks ACEs that carry no rights-ordering sequence number
// (authenticate and deny-with clauses).
const noSeq = -1

// ACE is one compiled allow/deny/authenticate/deny-with clause. ACEs are
// created by the policy compiler, are immutable afterward and are destroyed
// with their owning ACL.
type ACE struct {
	Kind   ACEKind
	Flags  ACEFlags
	Rights []string // lowercased; allow/deny only
	Terms  []*Term

	// Authenticate clauses.
	AuthAttrs []string
	AuthInfo  *PList

	// Deny-with clauses.
	DenyType     string
	DenyResponse string

	owner *ACL
	seq   int
}

// NewAllowACE builds an allow clause over the given rights and flat terms.
func NewAllowACE(rights []string, terms []*Term, flags ACEFlags) *ACE {
	return &ACE{
		Kind:   ACEAllow,
		Flags:  flags,
		Rights: lowerAll(rights),
		Terms:  terms,
		seq:    noSeq,
	}
}

// NewDenyACE builds a deny clause over the given rights and flat terms.
func NewDenyACE(rights []string, terms []*Term, flags ACEFlags) *ACE {
	return &ACE{
		Kind:   ACEDeny,
		Flags:  flags,
		Rights: lowerAll(rights),
		Terms:  terms,
		seq:    noSeq,
	}
}

// NewAuthenticateACE builds an authenticate clause for the given attribute
// names with the given properties (database, method, ...).
func NewAuthenticateACE(attrs []string, info *PList, flags ACEFlags) *ACE {
	if info == nil {
		info = NewPList()
	}
	return &ACE{
		Kind:      ACEAuthenticate,
		Flags:     flags,
		AuthAttrs: lowerAll(attrs),
		AuthInfo:  info,
		seq:       noSeq,
	}
}

// NewDenyResponseACE builds a deny-with clause.
func NewDenyResponseACE(denyType, denyResponse string) *ACE {
	return &ACE{
		Kind:         ACEDenyResponse,
		DenyType:     denyType,
		DenyResponse: denyResponse,
		seq:          noSeq,
	}
}

// Absolute reports whether the ACE carries the absolute flag.
func (a *ACE) Absolute() bool {
	return a.Flags&FlagAbsolute != 0
}

// ACLTag returns the tag of the owning ACL, or "" when the ACE is detached.
func (a *ACE) ACLTag() string {
	if a.owner == nil {
		return ""
	}
	return a.owner.Tag
}

// Seq returns the sequence number within the owning ACL. Authenticate and
// deny-with clauses are not independently orderable and return -1.
func (a *ACE) Seq() int {
	return a.seq
}

// governs reports whether the ACE mentions the (lowercased) right, either
// directly or via the literal "all" right.
func (a *ACE) governs(right string) bool {
	for _, r := range a.Rights {
		if r == right || r == RightAll {
			return true
		}
	}
	return false
}

// destroy releases provider-private term state through the flush functions
// registered for each term's provider.
func (a *ACE) destroy() {
	for _, t := range a.Terms {
		if p := t.prov.Load(); p != nil && p.Flush != nil {
			p.Flush(&t.cookie)
		}
	}
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}
