package acl

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	ErrInvalidExpression = errors.New("invalid expression")
	ErrBadComparator     = errors.New("unknown comparator")
)

// Jump targets in the flattened expression encoding. Non-negative values
// index another term; the sentinels end the walk with a boolean result.
const (
	TargetTrue  = -1
	TargetFalse = -2

	targetUnset = -3
)

// Comparator is the relational operator of one attribute term.
type Comparator int

const (
	CmpEQ Comparator = iota
	CmpNE
	CmpGT
	CmpLT
	CmpGE
	CmpLE
)

var cmpNames = map[Comparator]string{
	CmpEQ: "=",
	CmpNE: "!=",
	CmpGT: ">",
	CmpLT: "<",
	CmpGE: ">=",
	CmpLE: "<=",
}

func (c Comparator) String() string {
	if s, ok := cmpNames[c]; ok {
		return s
	}
	return "?"
}

// ParseComparator parses the textual form of a comparator.
func ParseComparator(s string) (Comparator, error) {
	for c, name := range cmpNames {
		if name == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrBadComparator, s)
}

// Cookie holds provider-private per-term state. It is created empty, written
// by the provider on first use and released through the provider's flush
// function when the owning ACE is destroyed.
type Cookie struct {
	mu sync.Mutex
	v  any
}

// Value returns the stored value.
func (c *Cookie) Value() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

// SetValue stores a value.
func (c *Cookie) SetValue(v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.v = v
}

// Term is one attribute test in a flattened decision graph. TrueTarget and
// FalseTarget are term indices or the TargetTrue/TargetFalse sentinels.
// Start marks the entry point of a compiled sub-expression.
type Term struct {
	Attr        string
	Cmp         Comparator
	Pattern     string
	TrueTarget  int
	FalseTarget int
	Start       bool

	prov   atomic.Pointer[Provider]
	cookie Cookie
}

func (t *Term) String() string {
	return fmt.Sprintf("%s %s %q", t.Attr, t.Cmp, t.Pattern)
}

// ExprNode is a node of the tagged expression tree form. Trees are what the
// policy loader produces; Compile lowers them to the flat jump-graph the
// evaluator consumes.
type ExprNode interface {
	exprNode()
}

// TermNode is a leaf attribute test.
type TermNode struct {
	Attr    string
	Cmp     Comparator
	Pattern string
}

// AndNode is a short-circuit conjunction.
type AndNode struct {
	Left, Right ExprNode
}

// OrNode is a short-circuit disjunction.
type OrNode struct {
	Left, Right ExprNode
}

// NotNode is a negation.
type NotNode struct {
	Expr ExprNode
}

func (*TermNode) exprNode() {}
func (*AndNode) exprNode()  {}
func (*OrNode) exprNode()   {}
func (*NotNode) exprNode()  {}

// hole is a jump target left open during compilation, to be patched once the
// destination index is known.
type hole struct {
	term   int
	onTrue bool
}

type exprCompiler struct {
	terms []*Term
}

func (c *exprCompiler) patch(holes []hole, target int) {
	for _, h := range holes {
		if h.onTrue {
			c.terms[h.term].TrueTarget = target
		} else {
			c.terms[h.term].FalseTarget = target
		}
	}
}

// compile emits n and returns its entry index plus the unresolved true/false
// exits. Terms are emitted in evaluation order so the entry of the whole
// expression lands at index 0.
func (c *exprCompiler) compile(n ExprNode) (start int, trueHoles, falseHoles []hole, err error) {
	switch node := n.(type) {
	case *TermNode:
		if node.Attr == "" {
			return 0, nil, nil, fmt.Errorf("%w: term with empty attribute", ErrInvalidExpression)
		}
		idx := len(c.terms)
		c.terms = append(c.terms, &Term{
			Attr:        node.Attr,
			Cmp:         node.Cmp,
			Pattern:     node.Pattern,
			TrueTarget:  targetUnset,
			FalseTarget: targetUnset,
			Start:       true,
		})
		return idx, []hole{{idx, true}}, []hole{{idx, false}}, nil
	case *AndNode:
		ls, lt, lf, err := c.compile(node.Left)
		if err != nil {
			return 0, nil, nil, err
		}
		rs, rt, rf, err := c.compile(node.Right)
		if err != nil {
			return 0, nil, nil, err
		}
		c.patch(lt, rs)
		return ls, rt, append(lf, rf...), nil
	case *OrNode:
		ls, lt, lf, err := c.compile(node.Left)
		if err != nil {
			return 0, nil, nil, err
		}
		rs, rt, rf, err := c.compile(node.Right)
		if err != nil {
			return 0, nil, nil, err
		}
		c.patch(lf, rs)
		return ls, append(lt, rt...), rf, nil
	case *NotNode:
		s, t, f, err := c.compile(node.Expr)
		if err != nil {
			return 0, nil, nil, err
		}
		return s, f, t, nil
	case nil:
		return 0, nil, nil, fmt.Errorf("%w: nil node", ErrInvalidExpression)
	default:
		return 0, nil, nil, fmt.Errorf("%w: unknown node type %T", ErrInvalidExpression, n)
	}
}

// CompileExpr lowers a tagged expression tree into the flat term array. The
// entry point is always index 0, exits are wired to the boolean sentinels
// and the entry term of every sub-expression carries the start flag.
func CompileExpr(root ExprNode) ([]*Term, error) {
	c := &exprCompiler{}
	start, trueHoles, falseHoles, err := c.compile(root)
	if err != nil {
		return nil, err
	}
	c.patch(trueHoles, TargetTrue)
	c.patch(falseHoles, TargetFalse)
	if start != 0 {
		return nil, fmt.Errorf("%w: entry term at index %d", ErrInvalidExpression, start)
	}
	for _, t := range c.terms {
		if t.TrueTarget == targetUnset || t.FalseTarget == targetUnset {
			return nil, fmt.Errorf("%w: unresolved jump target", ErrInvalidExpression)
		}
	}
	return c.terms, nil
}

// ValidateTerms checks that all jump targets of a flat term array are either
// sentinels or in-range term indices.
func ValidateTerms(terms []*Term) error {
	for i, t := range terms {
		for _, tgt := range []int{t.TrueTarget, t.FalseTarget} {
			if tgt == TargetTrue || tgt == TargetFalse {
				continue
			}
			if tgt < 0 || tgt >= len(terms) {
				return fmt.Errorf("%w: term %d target %d out of range", ErrInvalidExpression, i, tgt)
			}
		}
	}
	return nil
}
