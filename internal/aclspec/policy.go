package aclspec

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/webstead/aclengine/internal/acl"
)

// PolicyFile is the top-level document of one policy file.
type PolicyFile struct {
	ACLs []*ACLDef `yaml:"acls"`
	Path string    `yaml:"-"`
}

// ACLDef declares one named ACL.
type ACLDef struct {
	Name string    `yaml:"name"`
	ACEs []*ACEDef `yaml:"aces"`
}

// ACEDef declares one clause. Exactly one of Allow, Deny, Authenticate or
// DenyWith must be set.
type ACEDef struct {
	Allow        []string          `yaml:"allow,omitempty"`
	Deny         []string          `yaml:"deny,omitempty"`
	Authenticate []string          `yaml:"authenticate,omitempty"`
	DenyWith     *DenyWithDef      `yaml:"deny-with,omitempty"`
	Absolute     bool              `yaml:"absolute,omitempty"`
	Expr         *ExprDef          `yaml:"expr,omitempty"`
	Info         map[string]string `yaml:"info,omitempty"`
	InfoOrder    []string          `yaml:"-"`
}

// UnmarshalYAML decodes the clause and records the declaration order of the
// info map, which the compiled auth-info property list preserves.
func (d *ACEDef) UnmarshalYAML(node *yaml.Node) error {
	type plain ACEDef
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*d = ACEDef(p)
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value != "info" {
			continue
		}
		info := node.Content[i+1]
		for j := 0; j+1 < len(info.Content); j += 2 {
			d.InfoOrder = append(d.InfoOrder, info.Content[j].Value)
		}
	}
	return nil
}

// DenyWithDef declares the deny response returned with denials.
type DenyWithDef struct {
	Type     string `yaml:"type"`
	Response string `yaml:"response"`
}

// ExprDef is a node of the expression tree. Exactly one of And, Or, Not or
// the Attr/Op/Pattern leaf form must be set.
type ExprDef struct {
	And []*ExprDef `yaml:"and,omitempty"`
	Or  []*ExprDef `yaml:"or,omitempty"`
	Not *ExprDef   `yaml:"not,omitempty"`

	Attr    string `yaml:"attr,omitempty"`
	Op      string `yaml:"op,omitempty"`
	Pattern string `yaml:"pattern,omitempty"`
}

func (d *ExprDef) kindCount() int {
	n := 0
	if len(d.And) > 0 {
		n++
	}
	if len(d.Or) > 0 {
		n++
	}
	if d.Not != nil {
		n++
	}
	if d.Attr != "" {
		n++
	}
	return n
}

// toNode converts the definition into the engine's tagged expression tree.
// And/Or lists fold left-associatively.
func (d *ExprDef) toNode() (acl.ExprNode, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: missing expression", ErrInvalidExpr)
	}
	if d.kindCount() != 1 {
		return nil, fmt.Errorf("%w: exactly one of and/or/not/attr must be set", ErrInvalidExpr)
	}

	switch {
	case len(d.And) > 0:
		return d.foldNodes(d.And, func(l, r acl.ExprNode) acl.ExprNode {
			return &acl.AndNode{Left: l, Right: r}
		})
	case len(d.Or) > 0:
		return d.foldNodes(d.Or, func(l, r acl.ExprNode) acl.ExprNode {
			return &acl.OrNode{Left: l, Right: r}
		})
	case d.Not != nil:
		inner, err := d.Not.toNode()
		if err != nil {
			return nil, err
		}
		return &acl.NotNode{Expr: inner}, nil
	default:
		op := d.Op
		if op == "" {
			op = "="
		}
		cmp, err := acl.ParseComparator(op)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidExpr, err)
		}
		return &acl.TermNode{Attr: d.Attr, Cmp: cmp, Pattern: d.Pattern}, nil
	}
}

func (d *ExprDef) foldNodes(defs []*ExprDef, join func(l, r acl.ExprNode) acl.ExprNode) (acl.ExprNode, error) {
	if len(defs) < 2 {
		return nil, fmt.Errorf("%w: and/or needs at least two operands", ErrInvalidExpr)
	}
	node, err := defs[0].toNode()
	if err != nil {
		return nil, err
	}
	for _, def := range defs[1:] {
		right, err := def.toNode()
		if err != nil {
			return nil, err
		}
		node = join(node, right)
	}
	return node, nil
}

// kind returns which clause field of the ACE is set, or an error when the
// definition is ambiguous or empty.
func (d *ACEDef) kind() (acl.ACEKind, error) {
	n := 0
	kind := acl.ACEAllow
	if len(d.Allow) > 0 {
		n++
		kind = acl.ACEAllow
	}
	if len(d.Deny) > 0 {
		n++
		kind = acl.ACEDeny
	}
	if len(d.Authenticate) > 0 {
		n++
		kind = acl.ACEAuthenticate
	}
	if d.DenyWith != nil {
		n++
		kind = acl.ACEDenyResponse
	}
	if n != 1 {
		return 0, fmt.Errorf("%w: exactly one of allow/deny/authenticate/deny-with must be set", ErrInvalidACE)
	}
	return kind, nil
}

func (d *ACEDef) flags() acl.ACEFlags {
	var f acl.ACEFlags
	if d.Absolute {
		f |= acl.FlagAbsolute
	}
	return f
}

// compile turns the definition into a compiled ACE.
func (d *ACEDef) compile() (*acl.ACE, error) {
	kind, err := d.kind()
	if err != nil {
		return nil, err
	}

	switch kind {
	case acl.ACEAllow, acl.ACEDeny:
		node, err := d.Expr.toNode()
		if err != nil {
			return nil, err
		}
		terms, err := acl.CompileExpr(node)
		if err != nil {
			return nil, err
		}
		if kind == acl.ACEAllow {
			return acl.NewAllowACE(d.Allow, terms, d.flags()), nil
		}
		return acl.NewDenyACE(d.Deny, terms, d.flags()), nil

	case acl.ACEAuthenticate:
		if d.Expr != nil {
			return nil, fmt.Errorf("%w: authenticate takes no expression", ErrInvalidACE)
		}
		info := acl.NewPList()
		for _, k := range d.infoKeys() {
			info.Set(k, d.Info[k])
		}
		return acl.NewAuthenticateACE(d.Authenticate, info, d.flags()), nil

	default:
		return acl.NewDenyResponseACE(d.DenyWith.Type, d.DenyWith.Response), nil
	}
}

// infoKeys returns the info map keys, preferring the order captured during
// YAML decoding and falling back to map order.
func (d *ACEDef) infoKeys() []string {
	if len(d.InfoOrder) == len(d.Info) {
		return d.InfoOrder
	}
	keys := make([]string, 0, len(d.Info))
	for k := range d.Info {
		keys = append(keys, k)
	}
	return keys
}

// Compile builds the ACL list declared by the policy file. The caller owns
// the returned list's reference.
func (p *PolicyFile) Compile() (*acl.ACLList, error) {
	list := acl.NewACLList()
	if err := p.CompileInto(list); err != nil {
		list.Release()
		return nil, err
	}
	return list, nil
}

// CompileInto appends the policy file's ACLs to an existing list.
func (p *PolicyFile) CompileInto(list *acl.ACLList) error {
	if len(p.ACLs) == 0 {
		return fmt.Errorf("%w: no acls declared in %s", ErrInvalidPolicy, p.Path)
	}
	for _, def := range p.ACLs {
		if def.Name == "" {
			return fmt.Errorf("%w: acl without name in %s", ErrInvalidPolicy, p.Path)
		}
		if len(def.ACEs) == 0 {
			return fmt.Errorf("%w: acl %q has no aces", ErrInvalidPolicy, def.Name)
		}
		a := acl.NewACL(def.Name)
		for i, aceDef := range def.ACEs {
			ace, err := aceDef.compile()
			if err != nil {
				a.Release()
				return fmt.Errorf("acl %q ace %d: %w", def.Name, i, err)
			}
			a.Append(ace)
		}
		list.Append(a)
		a.Release()
	}
	return nil
}
