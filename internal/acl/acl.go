package acl

import (
	"log/slog"
	"sync/atomic"
)

// ACL is a named, ordered container of ACEs. The same ACL object may be
// shared (reference-counted) across multiple ACL lists.
type ACL struct {
	Tag string

	aces    []*ACE
	nextSeq int
	refs    atomic.Int32
}

// NewACL creates an empty ACL with one reference held by the caller.
func NewACL(tag string) *ACL {
	a := &ACL{Tag: tag}
	a.refs.Store(1)
	return a
}

// Append adds an ACE in declared order. Allow and deny clauses get the next
// sequence number; authenticate and deny-with clauses are not orderable for
// rights purposes and keep none.
func (a *ACL) Append(ace *ACE) {
	ace.owner = a
	if ace.Kind == ACEAllow || ace.Kind == ACEDeny {
		a.nextSeq++
		ace.seq = a.nextSeq
	}
	a.aces = append(a.aces, ace)
}

// ACEs returns the ACEs in declared order.
func (a *ACL) ACEs() []*ACE {
	return a.aces
}

// Retain increments the reference count.
func (a *ACL) Retain() {
	a.refs.Add(1)
}

// Release decrements the reference count, destroying the ACL when it drops
// to zero.
func (a *ACL) Release() {
	n := a.refs.Add(-1)
	if n > 0 {
		return
	}
	if n < 0 {
		slog.Warn("acl released after destroy", "tag", a.Tag)
		return
	}
	for _, ace := range a.aces {
		ace.destroy()
	}
	a.aces = nil
}
