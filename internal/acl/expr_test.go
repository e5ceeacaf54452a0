package acl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func term(attr, pattern string) *TermNode {
	return &TermNode{Attr: attr, Cmp: CmpEQ, Pattern: pattern}
}

// answerProvider returns a provider that answers by looking the pattern up
// in the given table, recording every pattern it was asked about.
func answerProvider(answers map[string]EvalOutcome, c Cacheability, calls *[]string) ProviderFunc {
	return func(attr string, cmp Comparator, pattern string, subject, resource *PList, authInfo, globalAuth *PList, cookie *Cookie) (EvalOutcome, Cacheability) {
		if calls != nil {
			*calls = append(*calls, pattern)
		}
		out, ok := answers[pattern]
		if !ok {
			return EvalInvalid, c
		}
		return out, c
	}
}

func TestParseComparator(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Comparator
	}{
		{"=", CmpEQ},
		{"!=", CmpNE},
		{">", CmpGT},
		{"<", CmpLT},
		{">=", CmpGE},
		{"<=", CmpLE},
	} {
		got, err := ParseComparator(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err := ParseComparator("~")
	assert.ErrorIs(t, err, ErrBadComparator)
}

func TestCompileExprSingleTerm(t *testing.T) {
	terms, err := CompileExpr(term("user", "joe"))
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, TargetTrue, terms[0].TrueTarget)
	assert.Equal(t, TargetFalse, terms[0].FalseTarget)
	assert.True(t, terms[0].Start)
	assert.NoError(t, ValidateTerms(terms))
}

func TestCompileExprAndWiring(t *testing.T) {
	// a and b: a true -> b, a false -> FALSE
	terms, err := CompileExpr(&AndNode{Left: term("x", "a"), Right: term("x", "b")})
	require.NoError(t, err)
	require.Len(t, terms, 2)
	assert.Equal(t, 1, terms[0].TrueTarget)
	assert.Equal(t, TargetFalse, terms[0].FalseTarget)
	assert.Equal(t, TargetTrue, terms[1].TrueTarget)
	assert.Equal(t, TargetFalse, terms[1].FalseTarget)
}

func TestCompileExprOrWiring(t *testing.T) {
	// a or b: a true -> TRUE, a false -> b
	terms, err := CompileExpr(&OrNode{Left: term("x", "a"), Right: term("x", "b")})
	require.NoError(t, err)
	require.Len(t, terms, 2)
	assert.Equal(t, TargetTrue, terms[0].TrueTarget)
	assert.Equal(t, 1, terms[0].FalseTarget)
}

func TestCompileExprNotSwapsTargets(t *testing.T) {
	terms, err := CompileExpr(&NotNode{Expr: term("x", "a")})
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, TargetFalse, terms[0].TrueTarget)
	assert.Equal(t, TargetTrue, terms[0].FalseTarget)
}

func TestCompileExprErrors(t *testing.T) {
	_, err := CompileExpr(nil)
	assert.ErrorIs(t, err, ErrInvalidExpression)

	_, err = CompileExpr(&AndNode{Left: term("x", "a"), Right: &TermNode{Cmp: CmpEQ}})
	assert.ErrorIs(t, err, ErrInvalidExpression)
}

func TestEvaluateExpressionTruthTables(t *testing.T) {
	testCases := []struct {
		desc    string
		expr    ExprNode
		answers map[string]EvalOutcome
		want    EvalOutcome
	}{
		{"and true/true", &AndNode{Left: term("x", "a"), Right: term("x", "b")}, map[string]EvalOutcome{"a": EvalTrue, "b": EvalTrue}, EvalTrue},
		{"and true/false", &AndNode{Left: term("x", "a"), Right: term("x", "b")}, map[string]EvalOutcome{"a": EvalTrue, "b": EvalFalse}, EvalFalse},
		{"and false short-circuits", &AndNode{Left: term("x", "a"), Right: term("x", "b")}, map[string]EvalOutcome{"a": EvalFalse, "b": EvalTrue}, EvalFalse},
		{"or false/true", &OrNode{Left: term("x", "a"), Right: term("x", "b")}, map[string]EvalOutcome{"a": EvalFalse, "b": EvalTrue}, EvalTrue},
		{"or true short-circuits", &OrNode{Left: term("x", "a"), Right: term("x", "b")}, map[string]EvalOutcome{"a": EvalTrue, "b": EvalFalse}, EvalTrue},
		{"not true", &NotNode{Expr: term("x", "a")}, map[string]EvalOutcome{"a": EvalTrue}, EvalFalse},
		{"not false", &NotNode{Expr: term("x", "a")}, map[string]EvalOutcome{"a": EvalFalse}, EvalTrue},
		{"nested (a or b) and not c", &AndNode{Left: &OrNode{Left: term("x", "a"), Right: term("x", "b")}, Right: &NotNode{Expr: term("x", "c")}}, map[string]EvalOutcome{"a": EvalFalse, "b": EvalTrue, "c": EvalFalse}, EvalTrue},
		{"error propagates", &AndNode{Left: term("x", "a"), Right: term("x", "b")}, map[string]EvalOutcome{"a": EvalTrue, "b": EvalFail}, EvalFail},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			terms, err := CompileExpr(tc.expr)
			require.NoError(t, err)

			reg := NewRegistry()
			reg.Register("x", answerProvider(tc.answers, IndefinitelyCacheable, nil), nil)
			ctx := NewEvalContext(reg)

			out, _ := EvaluateExpression(ctx, terms, nil, nil)
			assert.Equal(t, tc.want, out)
		})
	}
}

func TestEvaluateExpressionShortCircuitSkipsProviders(t *testing.T) {
	var calls []string
	terms, err := CompileExpr(&OrNode{Left: term("x", "a"), Right: term("x", "b")})
	require.NoError(t, err)

	reg := NewRegistry()
	reg.Register("x", answerProvider(map[string]EvalOutcome{"a": EvalTrue, "b": EvalTrue}, IndefinitelyCacheable, &calls), nil)
	ctx := NewEvalContext(reg)

	out, _ := EvaluateExpression(ctx, terms, nil, nil)
	assert.Equal(t, EvalTrue, out)
	assert.Equal(t, []string{"a"}, calls, "second disjunct must not be consulted")
}

func TestEvaluateExpressionNoProvider(t *testing.T) {
	terms, err := CompileExpr(term("nosuch", "a"))
	require.NoError(t, err)

	ctx := NewEvalContext(NewRegistry())
	out, _ := EvaluateExpression(ctx, terms, nil, nil)
	assert.Equal(t, EvalInvalid, out)
}

func TestEvaluateExpressionMinCacheability(t *testing.T) {
	terms, err := CompileExpr(&AndNode{Left: term("a", "p"), Right: term("b", "p")})
	require.NoError(t, err)

	reg := NewRegistry()
	reg.Register("a", answerProvider(map[string]EvalOutcome{"p": EvalTrue}, IndefinitelyCacheable, nil), nil)
	reg.Register("b", answerProvider(map[string]EvalOutcome{"p": EvalTrue}, NotCacheable, nil), nil)
	ctx := NewEvalContext(reg)

	out, c := EvaluateExpression(ctx, terms, nil, nil)
	assert.Equal(t, EvalTrue, out)
	assert.Equal(t, NotCacheable, c)
}

func TestEvaluateExpressionAuthFactsScopedToWalk(t *testing.T) {
	db1 := NewPList()
	db1.Set("database", "db1")

	var duringAuthed, duringPlain string
	reg := NewRegistry()
	reg.Register("authed", func(attr string, cmp Comparator, pattern string, subject, resource *PList, authInfo, globalAuth *PList, cookie *Cookie) (EvalOutcome, Cacheability) {
		duringAuthed = resource.GetString("database")
		return EvalTrue, ContextCacheable
	}, nil)
	reg.Register("plain", func(attr string, cmp Comparator, pattern string, subject, resource *PList, authInfo, globalAuth *PList, cookie *Cookie) (EvalOutcome, Cacheability) {
		duringPlain = resource.GetString("database")
		return EvalTrue, ContextCacheable
	}, nil)
	ctx := NewEvalContext(reg)

	authed := mustTerms(t, &TermNode{Attr: "authed", Cmp: CmpEQ, Pattern: "x"})
	out, _ := EvaluateExpression(ctx, authed, []*PList{db1}, db1)
	assert.Equal(t, EvalTrue, out)
	assert.Equal(t, "db1", duringAuthed, "database facts apply while the authenticated term runs")
	assert.False(t, ctx.Resource().Has("database"), "database facts must not outlive the walk")

	// a later expression without auth info must not see the earlier entries
	plain := mustTerms(t, &TermNode{Attr: "plain", Cmp: CmpEQ, Pattern: "x"})
	out, _ = EvaluateExpression(ctx, plain, nil, nil)
	assert.Equal(t, EvalTrue, out)
	assert.Empty(t, duringPlain)
}

func TestEvaluateExpressionCachesProviderOnTerm(t *testing.T) {
	terms, err := CompileExpr(term("x", "a"))
	require.NoError(t, err)

	var calls []string
	reg := NewRegistry()
	reg.Register("x", answerProvider(map[string]EvalOutcome{"a": EvalTrue}, IndefinitelyCacheable, &calls), nil)
	ctx := NewEvalContext(reg)

	for range 3 {
		out, _ := EvaluateExpression(ctx, terms, nil, nil)
		assert.Equal(t, EvalTrue, out)
	}
	assert.NotNil(t, terms[0].prov.Load(), "provider should be memoized on the term")
	assert.Len(t, calls, 3)
}
