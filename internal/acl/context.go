package acl

// EvalContext is the per-request transient state of one evaluation: the ACL
// list in play, the subject and resource fact containers, the configured
// default result and the injected provider registry and result policy.
type EvalContext struct {
	list          *ACLList
	subject       *PList
	resource      *PList
	defaultResult Decision
	registry      *Registry
	policy        ResultPolicy
}

// NewEvalContext creates a context with default result deny, empty fact
// containers and the default result policy.
func NewEvalContext(registry *Registry) *EvalContext {
	return &EvalContext{
		subject:       NewPList(),
		resource:      NewPList(),
		defaultResult: DecisionDeny,
		registry:      registry,
		policy:        DefaultResultPolicy(),
	}
}

// SetACLList attaches the list to evaluate. The context borrows the caller's
// reference; Destroy releases it.
func (c *EvalContext) SetACLList(l *ACLList) { c.list = l }

// ACLList returns the attached list.
func (c *EvalContext) ACLList() *ACLList { return c.list }

// SetSubject attaches the subject fact container. No ownership transfer.
func (c *EvalContext) SetSubject(p *PList) { c.subject = p }

// Subject returns the subject fact container.
func (c *EvalContext) Subject() *PList { return c.subject }

// SetResource attaches the resource fact container. No ownership transfer.
func (c *EvalContext) SetResource(p *PList) { c.resource = p }

// Resource returns the resource fact container.
func (c *EvalContext) Resource() *PList { return c.resource }

// SetDefaultResult configures the result applied to any requested right that
// no ACE mentions.
func (c *EvalContext) SetDefaultResult(d Decision) { c.defaultResult = d }

// DefaultResult returns the configured default result.
func (c *EvalContext) DefaultResult() Decision { return c.defaultResult }

// SetPolicy overrides the mapping of non-boolean outcomes to decisions.
func (c *EvalContext) SetPolicy(p ResultPolicy) { c.policy = p }

// Destroy releases the context's reference on the attached ACL list,
// destroying the list if it was the last one.
func (c *EvalContext) Destroy() {
	if c.list != nil {
		c.list.Release()
		c.list = nil
	}
}

// DestroyBorrowed tears down a context that borrowed its list without taking
// ownership; the list's reference count is left untouched.
func (c *EvalContext) DestroyBorrowed() {
	c.list = nil
}
