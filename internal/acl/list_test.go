package acl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flushCounter builds an ACE whose term flush is observable, to pin down
// when destruction actually happens.
func flushCounter(t *testing.T, reg *Registry, count *int) []*Term {
	t.Helper()
	reg.Register("probe", func(string, Comparator, string, *PList, *PList, *PList, *PList, *Cookie) (EvalOutcome, Cacheability) {
		return EvalTrue, ContextCacheable
	}, func(*Cookie) {
		*count += 1
	})
	return mustTerms(t, term("probe", "x"))
}

func TestACLListRefCounting(t *testing.T) {
	var flushed int
	reg := NewRegistry()

	a := NewACL("counted")
	a.Append(NewAllowACE([]string{"read"}, flushCounter(t, reg, &flushed), 0))

	list := NewACLList()
	list.Append(a)
	a.Release() // list now holds the only ACL reference

	// evaluate once so the term's provider (and its flush) is bound
	v, err := resolveOn(t, list, reg, "", "read")
	require.NoError(t, err)
	require.Equal(t, DecisionAllow, v.Decision)

	list.Retain()
	list.Retain()

	list.Release()
	assert.Zero(t, flushed, "two references remain")
	list.Release()
	assert.Zero(t, flushed, "one reference remains")
	list.Release()
	assert.Equal(t, 1, flushed, "destroyed exactly on the last release")

	// releasing a destroyed list must not destroy again
	list.Release()
	assert.Equal(t, 1, flushed)
}

func TestACLListSentinelIgnoresRefCounting(t *testing.T) {
	NoACLs.Retain()
	NoACLs.Release()
	NoACLs.Release()
	assert.Equal(t, int32(0), NoACLs.refs.Load())
}

func TestACLListNamesFindDelete(t *testing.T) {
	list := NewACLList()
	defer list.Release()

	for _, tag := range []string{"alpha", "beta", "gamma"} {
		a := NewACL(tag)
		a.Append(NewAllowACE([]string{"read"}, nil, 0))
		list.Append(a)
		a.Release()
	}

	assert.Equal(t, []string{"alpha", "beta", "gamma"}, list.Names())
	assert.NotNil(t, list.Find("beta"))
	assert.Nil(t, list.Find("nosuch"))

	assert.True(t, list.Delete("beta"))
	assert.False(t, list.Delete("beta"))
	assert.Equal(t, []string{"alpha", "gamma"}, list.Names())
}

func TestACLListConcatSharesACLs(t *testing.T) {
	shared := NewACL("shared")
	shared.Append(NewAllowACE([]string{"read"}, nil, 0))

	l1 := NewACLList()
	l1.Append(shared)

	l2 := NewACLList()
	l2.Append(shared)
	shared.Release()

	l1.Concat(l2)
	assert.Equal(t, []string{"shared", "shared"}, l1.Names())

	// destroying either list must not invalidate the other's ACLs
	l2.Release()
	assert.Equal(t, 2, l1.Len())
	l1.Release()
}

func TestACLListMutationDropsCache(t *testing.T) {
	list := NewACLList()
	defer list.Release()

	a := NewACL("one")
	a.Append(NewAllowACE([]string{"read"}, nil, 0))
	list.Append(a)
	a.Release()

	_, err := list.evalCache()
	require.NoError(t, err)
	require.NotNil(t, list.cache.Load())

	b := NewACL("two")
	b.Append(NewDenyACE([]string{"read"}, nil, 0))
	list.Append(b)
	b.Release()

	assert.Nil(t, list.cache.Load(), "composition invalidates a built cache")
}

func TestACESequenceNumbers(t *testing.T) {
	a := NewACL("seq")
	auth := NewAuthenticateACE([]string{"user"}, nil, 0)
	allow := NewAllowACE([]string{"read"}, nil, 0)
	deny := NewDenyACE([]string{"read"}, nil, 0)
	resp := NewDenyResponseACE("text/plain", "no")
	for _, ace := range []*ACE{auth, allow, deny, resp} {
		a.Append(ace)
	}

	assert.Equal(t, -1, auth.Seq(), "authenticate clauses are not orderable")
	assert.Equal(t, 1, allow.Seq())
	assert.Equal(t, 2, deny.Seq())
	assert.Equal(t, -1, resp.Seq())
	assert.Equal(t, "seq", allow.ACLTag())
}
