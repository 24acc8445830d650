package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvaran/tabuforge/pkg/model"
)

// newExpr is a small helper to build an expression from terms + constant.
func newExpr(c *model.Container, name string, terms []model.Term, constant float64) model.ExprID {
	id := c.NewExpression(name)
	e := c.Expression(id)
	for _, t := range terms {
		e.AddTerm(t.Var, t.Coef)
	}
	e.AddConstant(constant)
	return id
}

// TestRunTrivialBoundFix covers scenario 1: min x s.t. 2x=4, 0<=x<=10. The
// fixed point should tighten x's bounds to [2,2], fix it, and disable the
// consumed constraint.
func TestRunTrivialBoundFix(t *testing.T) {
	c := model.NewContainer("trivial-bound-fix")
	x := c.NewVariable("x", 0, 10)
	obj := newExpr(c, "obj", []model.Term{{Var: x, Coef: 1}}, 0)
	c.SetObjective(obj, true)
	consExpr := newExpr(c, "e0", []model.Term{{Var: x, Coef: 2}}, -4)
	cid := c.NewConstraint("c0", consExpr, model.Equal)

	result, err := Run(c, Options{})
	require.NoError(t, err)

	assert.True(t, c.Variable(x).IsFixed())
	assert.Equal(t, 2, c.Variable(x).Value())
	assert.False(t, c.Constraint(cid).IsEnabled())
	assert.GreaterOrEqual(t, result.TotalConstraintsDisabled, 1)
}

// TestRunBinarySelectionExtraction covers scenario 2: ten binaries summing
// to exactly 1 should become a Selection, not a degenerate fix (n>1).
func TestRunBinarySelectionExtraction(t *testing.T) {
	c := model.NewContainer("binary-selection")
	vars := make([]model.VarID, 10)
	terms := make([]model.Term, 10)
	objTerms := make([]model.Term, 10)
	for i := 0; i < 10; i++ {
		vars[i] = c.NewVariable("", 0, 1)
		terms[i] = model.Term{Var: vars[i], Coef: 1}
		objTerms[i] = model.Term{Var: vars[i], Coef: float64(i)}
	}
	obj := newExpr(c, "obj", objTerms, 0)
	c.SetObjective(obj, true)
	selExpr := newExpr(c, "e0", terms, -1)
	cid := c.NewConstraint("c0", selExpr, model.Equal)

	result, err := Run(c, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.SelectionsExtracted)
	assert.False(t, c.Constraint(cid).IsEnabled())
	require.Equal(t, 1, c.NumSelections())
	sel := c.Selection(0)
	assert.Len(t, sel.Members(), 10)
	for _, v := range vars {
		assert.Equal(t, model.Selection, c.Variable(v).Sense())
	}

	// Extraction establishes invariant 3, not just bookkeeping: the
	// selected member actually holds value 1 and every other member 0.
	assert.Equal(t, vars[0], sel.Selected())
	assert.Equal(t, 1, c.Variable(vars[0]).Value())
	ones := 0
	for _, v := range vars {
		ones += c.Variable(v).Value()
	}
	assert.Equal(t, 1, ones)
}

// TestRunSelectionExtractionDegenerateSingleton covers §8's boundary case:
// a size-1 candidate ends with its sole member fixed rather than becoming a
// Selection. Through Run, bound tightening consumes the one-variable
// equality and fixes x before selection extraction sees it; the test checks
// the resulting state.
func TestRunSelectionExtractionDegenerateSingleton(t *testing.T) {
	c := model.NewContainer("degenerate")
	x := c.NewVariable("x", 0, 1)
	obj := newExpr(c, "obj", []model.Term{{Var: x, Coef: 1}}, 0)
	c.SetObjective(obj, true)
	e := newExpr(c, "e0", []model.Term{{Var: x, Coef: 1}}, -1)
	c.NewConstraint("c0", e, model.Equal)

	result, err := Run(c, Options{})
	require.NoError(t, err)

	assert.Equal(t, 0, c.NumSelections())
	assert.True(t, c.Variable(x).IsFixed())
	assert.Equal(t, 1, c.Variable(x).Value())
	assert.GreaterOrEqual(t, result.TotalConstraintsDisabled, 1)
}

// TestRunDuplicateConstraintPruning covers scenario 5: two copies of
// 2x+y=10 plus 2x+y<=10 disables two constraints (the duplicate equality
// and the inequality it implies).
func TestRunDuplicateConstraintPruning(t *testing.T) {
	c := model.NewContainer("dup")
	x := c.NewVariable("x", 0, 10)
	y := c.NewVariable("y", 0, 10)
	obj := newExpr(c, "obj", []model.Term{{Var: x, Coef: 1}, {Var: y, Coef: 1}}, 0)
	c.SetObjective(obj, true)

	e0 := newExpr(c, "e0", []model.Term{{Var: x, Coef: 2}, {Var: y, Coef: 1}}, -10)
	e1 := newExpr(c, "e1", []model.Term{{Var: x, Coef: 2}, {Var: y, Coef: 1}}, -10)
	e2 := newExpr(c, "e2", []model.Term{{Var: x, Coef: 2}, {Var: y, Coef: 1}}, -10)
	c.NewConstraint("eq0", e0, model.Equal)
	c.NewConstraint("eq1", e1, model.Equal)
	c.NewConstraint("le0", e2, model.Less)

	result, err := Run(c, Options{})
	require.NoError(t, err)

	disabled := 0
	for _, cid := range c.AllConstraints() {
		if !c.Constraint(cid).IsEnabled() {
			disabled++
		}
	}
	assert.Equal(t, 2, disabled)
	assert.GreaterOrEqual(t, result.TotalConstraintsDisabled, 2)
}

// TestRunRedundantSetVariableFixing covers scenario 6: a SetPartitioning
// constraint over the same variable set as a SetPacking constraint makes
// the SetPacking constraint redundant, so it is disabled.
func TestRunRedundantSetVariableFixing(t *testing.T) {
	c := model.NewContainer("redundant-set")
	vars := make([]model.VarID, 3)
	terms := make([]model.Term, 3)
	objTerms := make([]model.Term, 3)
	for i := range vars {
		vars[i] = c.NewVariable("", 0, 1)
		terms[i] = model.Term{Var: vars[i], Coef: 1}
		objTerms[i] = model.Term{Var: vars[i], Coef: 1}
	}
	obj := newExpr(c, "obj", objTerms, 0)
	c.SetObjective(obj, true)

	partExpr := newExpr(c, "e_part", terms, -1)
	partID := c.NewConstraint("partition", partExpr, model.Equal)

	packTerms := append([]model.Term(nil), terms...)
	packExpr := newExpr(c, "e_pack", packTerms, -1)
	packID := c.NewConstraint("pack", packExpr, model.Less)

	builder := model.NewBuilder(c)
	require.NoError(t, builder.Build())
	require.Equal(t, model.SetPartitioning, c.Constraint(partID).Type())
	require.Equal(t, model.SetPacking, c.Constraint(packID).Type())

	result, err := Run(c, Options{})
	require.NoError(t, err)

	assert.False(t, c.Constraint(packID).IsEnabled())
	assert.GreaterOrEqual(t, result.TotalConstraintsDisabled, 1)
}

// TestRunDependentVariableExtraction checks that an equality constraint
// with a unit-coefficient variable extracts that variable as dependent and
// keeps its value synchronized with the defining expression.
func TestRunDependentVariableExtraction(t *testing.T) {
	c := model.NewContainer("dependent")
	x := c.NewVariable("x", 0, 10)
	y := c.NewVariable("y", 0, 10)
	obj := newExpr(c, "obj", []model.Term{{Var: x, Coef: 1}}, 0)
	c.SetObjective(obj, true)
	// y = x + 3  <=>  y - x - 3 = 0
	e := newExpr(c, "e0", []model.Term{{Var: y, Coef: 1}, {Var: x, Coef: -1}}, -3)
	cid := c.NewConstraint("c0", e, model.Equal)

	result, err := Run(c, Options{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.DependentVariablesExtracted, 1)
	assert.False(t, c.Constraint(cid).IsEnabled())

	// x is the lower-VarID unit-coefficient variable, so it is the one
	// extracted as dependent: x = y - 3.
	dep := c.Variable(x)
	assert.True(t, dep.Sense().IsDependent())

	c.RecomputeAll()
	c.Variable(y).SetBounds(7, 7)
	move := &model.Move{Alterations: []model.Alteration{{Var: y, Value: 7}}}
	c.ApplyMove(move)
	assert.Equal(t, 4, c.Variable(x).Value())
}

// TestRunImplicitFixingAndIndependentVariableFixing exercises passes 1 and
// 2 in isolation: a variable with collapsed bounds gets fixed, and a
// variable with no constraints is fixed toward its objective-minimizing
// bound.
func TestRunImplicitFixingAndIndependentVariableFixing(t *testing.T) {
	c := model.NewContainer("fixing")
	collapsed := c.NewVariable("z", 5, 5)
	free := c.NewVariable("w", 0, 10)
	obj := newExpr(c, "obj", []model.Term{{Var: collapsed, Coef: 1}, {Var: free, Coef: -1}}, 0)
	c.SetObjective(obj, true)

	result, err := Run(c, Options{})
	require.NoError(t, err)

	assert.True(t, c.Variable(collapsed).IsFixed())
	assert.Equal(t, 5, c.Variable(collapsed).Value())
	assert.True(t, c.Variable(free).IsFixed())
	assert.Equal(t, 10, c.Variable(free).Value())
	assert.GreaterOrEqual(t, result.TotalFixed, 2)
}

// TestExtractFlippablePairs checks the supplemental flippable-pair
// extractor: two binaries with opposite coefficients in every shared
// constraint form a pair.
func TestExtractFlippablePairs(t *testing.T) {
	c := model.NewContainer("flippable")
	a := c.NewVariable("a", 0, 1)
	b := c.NewVariable("b", 0, 1)
	unrelated := c.NewVariable("u", 0, 1)
	obj := newExpr(c, "obj", []model.Term{{Var: a, Coef: 1}, {Var: b, Coef: 1}, {Var: unrelated, Coef: 1}}, 0)
	c.SetObjective(obj, true)
	e := newExpr(c, "e0", []model.Term{{Var: a, Coef: 1}, {Var: b, Coef: -1}}, 0)
	c.NewConstraint("c0", e, model.Equal)

	builder := model.NewBuilder(c)
	require.NoError(t, builder.Build())

	pairs := ExtractFlippablePairs(c, 1)
	require.Len(t, pairs, 1)
	assert.Equal(t, a, pairs[0].A)
	assert.Equal(t, b, pairs[0].B)
	assert.Equal(t, 1, pairs[0].CommonConstraints)
}

func TestSelectionStrategyString(t *testing.T) {
	assert.Equal(t, "DefinedOrder", DefinedOrder.String())
	assert.Equal(t, "AscendingSize", AscendingSize.String())
	assert.Equal(t, "DescendingSize", DescendingSize.String())
	assert.Equal(t, "Independent", Independent.String())
}
