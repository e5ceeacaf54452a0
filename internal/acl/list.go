package acl

import (
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
)

// ACLList is an ordered sequence of ACLs that together apply to one
// resource. Lists are shared across concurrent requests through reference
// counting; the evaluation cache attached to a list is built lazily, at most
// once per list instance.
//
// Composition (Append, Concat, Delete) must happen before the first
// evaluation; mutating a list drops any cache already built.
type ACLList struct {
	// ID identifies the list instance in logs and verdict-cache keys.
	ID uuid.UUID

	acls  []*ACL
	refs  atomic.Int32
	cache atomic.Pointer[listCache]
}

// NoACLs is the sentinel list meaning no ACLs apply to the resource.
// Resolving any rights against it yields allow, indefinitely cacheable.
var NoACLs = &ACLList{ID: uuid.Nil}

// NewACLList creates an empty list with one reference held by the caller.
func NewACLList() *ACLList {
	l := &ACLList{ID: uuid.New()}
	l.refs.Store(1)
	return l
}

// Append adds an ACL to the end of the list, taking a reference on it.
func (l *ACLList) Append(a *ACL) {
	a.Retain()
	l.acls = append(l.acls, a)
	l.cache.Store(nil)
}

// Concat appends every ACL of other to l, taking references. other is left
// untouched.
func (l *ACLList) Concat(other *ACLList) {
	for _, a := range other.acls {
		l.Append(a)
	}
}

// Find returns the ACL with the given tag, or nil.
func (l *ACLList) Find(tag string) *ACL {
	for _, a := range l.acls {
		if a.Tag == tag {
			return a
		}
	}
	return nil
}

// Delete removes the named ACL from the list, releasing its reference.
// Returns false if no ACL with that tag is present.
func (l *ACLList) Delete(tag string) bool {
	for i, a := range l.acls {
		if a.Tag == tag {
			l.acls = append(l.acls[:i], l.acls[i+1:]...)
			l.cache.Store(nil)
			a.Release()
			return true
		}
	}
	return false
}

// Names returns the ACL tags in list order.
func (l *ACLList) Names() []string {
	names := make([]string, len(l.acls))
	for i, a := range l.acls {
		names[i] = a.Tag
	}
	return names
}

// Len returns the number of ACLs in the list.
func (l *ACLList) Len() int {
	return len(l.acls)
}

// Retain increments the list's reference count.
func (l *ACLList) Retain() {
	if l == nil || l == NoACLs {
		return
	}
	l.refs.Add(1)
}

// Release decrements the list's reference count, destroying the list and its
// evaluation cache exactly once, when the last reference is dropped.
func (l *ACLList) Release() {
	if l == nil || l == NoACLs {
		return
	}
	n := l.refs.Add(-1)
	if n > 0 {
		return
	}
	if n < 0 {
		slog.Warn("acl list released after destroy", "id", l.ID)
		return
	}
	for _, a := range l.acls {
		a.Release()
	}
	l.acls = nil
	l.cache.Store(nil)
}
