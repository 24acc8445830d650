package neighborhood

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvaran/tabuforge/internal/parallel"
	"github.com/katalvaran/tabuforge/pkg/model"
)

func newExpr(c *model.Container, name string, terms []model.Term, constant float64) model.ExprID {
	id := c.NewExpression(name)
	e := c.Expression(id)
	for _, t := range terms {
		e.AddTerm(t.Var, t.Coef)
	}
	e.AddConstant(constant)
	return id
}

func buildBinaryModel(t *testing.T) (*model.Container, model.VarID, model.VarID) {
	t.Helper()
	c := model.NewContainer("binary")
	a := c.NewVariable("a", 0, 1)
	b := c.NewVariable("b", 0, 1)
	obj := newExpr(c, "obj", []model.Term{{Var: a, Coef: 1}, {Var: b, Coef: 1}}, 0)
	c.SetObjective(obj, true)
	e := newExpr(c, "e0", []model.Term{{Var: a, Coef: 1}, {Var: b, Coef: -1}}, 0)
	c.NewConstraint("c0", e, model.Equal)
	builder := model.NewBuilder(c)
	require.NoError(t, builder.Build())
	return c, a, b
}

func TestBinaryFlipGeneratorTogglesEveryUnfixedBinary(t *testing.T) {
	c, a, b := buildBinaryModel(t)
	moves := BinaryFlipGenerator{}.Generate(c)
	require.Len(t, moves, 2)
	for _, m := range moves {
		assert.Equal(t, model.MoveBinary, m.Sense)
		assert.True(t, m.IsUnivariable)
		assert.NotEmpty(t, m.RelatedConstraints)
	}
	_ = a
	_ = b
}

func TestIntegerStepGeneratorRespectsBoundsAndMaxStep(t *testing.T) {
	c := model.NewContainer("int")
	x := c.NewVariable("x", 0, 10)
	// Reposition bounds so the current value (0) has margin on both
	// sides — a freshly declared variable always starts at its lower
	// bound, which would otherwise suppress the downward moves below.
	c.Variable(x).SetBounds(-10, 10)
	obj := newExpr(c, "obj", []model.Term{{Var: x, Coef: 1}}, 0)
	c.SetObjective(obj, true)
	e := newExpr(c, "e0", []model.Term{{Var: x, Coef: 1}}, -5)
	c.NewConstraint("c0", e, model.Less)
	builder := model.NewBuilder(c)
	require.NoError(t, builder.Build())

	moves := IntegerStepGenerator{MaxStep: 2}.Generate(c)
	var values []int
	for _, m := range moves {
		require.Len(t, m.Alterations, 1)
		values = append(values, m.Alterations[0].Value)
	}
	assert.ElementsMatch(t, []int{1, 2, -1, -2}, values)
}

func TestSelectionGeneratorMovesSelectedToEveryOtherMember(t *testing.T) {
	c := model.NewContainer("sel")
	x := c.NewVariable("x0", 0, 1)
	y := c.NewVariable("x1", 0, 1)
	z := c.NewVariable("x2", 0, 1)
	obj := newExpr(c, "obj", []model.Term{{Var: x, Coef: 1}}, 0)
	c.SetObjective(obj, true)
	e := newExpr(c, "e0", []model.Term{{Var: x, Coef: 1}, {Var: y, Coef: 1}, {Var: z, Coef: 1}}, -1)
	cid := c.NewConstraint("c0", e, model.Equal)
	c.AddSelection([]model.VarID{x, y, z}, cid)

	moves := SelectionGenerator{}.Generate(c)
	require.Len(t, moves, 2)
	for _, m := range moves {
		assert.Equal(t, model.MoveSelection, m.Sense)
		assert.Len(t, m.Alterations, 2)
		assert.Equal(t, x, m.Alterations[0].Var)
		assert.Equal(t, 0, m.Alterations[0].Value)
		assert.Equal(t, 1, m.Alterations[1].Value)
	}
}

func TestConstraintEdgeGeneratorSlidesAggregationPair(t *testing.T) {
	c := model.NewContainer("agg")
	a := c.NewVariable("a", -10, 10)
	b := c.NewVariable("b", -10, 10)
	obj := newExpr(c, "obj", []model.Term{{Var: a, Coef: 1}}, 0)
	c.SetObjective(obj, true)
	e := newExpr(c, "e0", []model.Term{{Var: a, Coef: 1}, {Var: b, Coef: -1}}, 0)
	cid := c.NewConstraint("c0", e, model.Equal)
	builder := model.NewBuilder(c)
	require.NoError(t, builder.Build())
	require.Equal(t, model.Aggregation, c.Constraint(cid).Type())

	moves := ConstraintEdgeGenerator{}.Generate(c)
	require.NotEmpty(t, moves)
	for _, m := range moves {
		assert.Equal(t, model.MoveAggregation, m.Sense)
		d0 := m.Alterations[0].Value - c.Variable(m.Alterations[0].Var).Value()
		d1 := m.Alterations[1].Value - c.Variable(m.Alterations[1].Var).Value()
		assert.Equal(t, d0, d1)
	}
}

func TestTwoFlipGeneratorFlipsBothMembers(t *testing.T) {
	c, a, b := buildBinaryModel(t)
	moves := TwoFlipGenerator{Pairs: []Pair{{A: a, B: b}}}.Generate(c)
	require.Len(t, moves, 1)
	m := moves[0]
	assert.Equal(t, model.MoveTwoFlip, m.Sense)
	assert.Equal(t, 1, m.Alterations[0].Value)
	assert.Equal(t, 1, m.Alterations[1].Value)
}

func TestUpdateMovesAcceptAllConcatenatesEveryGenerator(t *testing.T) {
	c, _, _ := buildBinaryModel(t)
	n := New([]Generator{BinaryFlipGenerator{}}, nil, parallel.New(2))
	moves := n.UpdateMoves(c, AcceptPolicy{AcceptAll: true})
	assert.Len(t, moves, 2)
}

func TestUpdateMovesFiltersByImprovability(t *testing.T) {
	c := model.NewContainer("improv")
	x := c.NewVariable("x", 0, 10)
	y := c.NewVariable("y", 0, 10)
	obj := newExpr(c, "obj", []model.Term{{Var: x, Coef: 1}, {Var: y, Coef: 1}}, 0)
	c.SetObjective(obj, true)

	// x is moved up to its upper bound and released, so it has lower-bound
	// margin (decreasing it improves a minimizing objective) but not
	// upper-bound margin; y stays at its lower bound, with neither.
	require.NoError(t, c.FixVariable(x, 10))
	c.UnfixVariable(x)

	builder := model.NewBuilder(c)
	require.NoError(t, builder.Build())
	require.True(t, c.Variable(x).IsObjectiveImprovable())
	require.False(t, c.Variable(y).IsObjectiveImprovable())

	n := New([]Generator{IntegerStepGenerator{}}, nil, parallel.New(1))
	moves := n.UpdateMoves(c, AcceptPolicy{AcceptObjectiveImprovable: true})
	require.NotEmpty(t, moves)
	for _, m := range moves {
		for _, alt := range m.Alterations {
			assert.True(t, c.Variable(alt.Var).IsObjectiveImprovable())
			assert.Equal(t, x, alt.Var)
		}
	}
}

func TestShuffleIsDeterministicForASeed(t *testing.T) {
	moves := make([]*model.Move, 5)
	for i := range moves {
		moves[i] = model.NewMove(model.MoveGeneral, model.Alteration{Var: model.VarID(i), Value: 1})
	}
	a := append([]*model.Move(nil), moves...)
	b := append([]*model.Move(nil), moves...)
	ShuffleMoves(a, rand.New(rand.NewSource(42)))
	ShuffleMoves(b, rand.New(rand.NewSource(42)))
	assert.Equal(t, a, b)
}
