package neighborhood

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvaran/tabuforge/pkg/evaluator"
	"github.com/katalvaran/tabuforge/pkg/model"
)

func moveWithConstraints(varID model.VarID, value int, constraints ...model.ConstraintID) *model.Move {
	m := model.NewMove(model.MoveInteger, model.Alteration{Var: varID, Value: value})
	m.RelatedConstraints = constraints
	return m
}

func TestChainBuilderComposesLowOverlapPairs(t *testing.T) {
	b := &ChainBuilder{FIFOSize: 8, Capacity: 4, OverlapThreshold: 0.5}

	m1 := moveWithConstraints(0, 1, 0, 1)
	m2 := moveWithConstraints(1, 1, 2, 3)

	b.Record(m1, true)
	b.Record(m2, true)

	ready := b.Ready()
	require.Len(t, ready, 1)
	chain := ready[0]
	assert.Equal(t, model.MoveChain, chain.Sense)
	assert.Len(t, chain.Alterations, 2)
	assert.InDelta(t, 0.0, chain.OverlapRate, 1e-9)
}

func TestChainBuilderSkipsPairsAboveThreshold(t *testing.T) {
	b := &ChainBuilder{FIFOSize: 8, Capacity: 4, OverlapThreshold: 0.1}

	m1 := moveWithConstraints(0, 1, 0, 1)
	m2 := moveWithConstraints(1, 1, 0, 1)

	b.Record(m1, true)
	b.Record(m2, true)

	assert.Empty(t, b.Ready())
}

func TestChainBuilderIgnoresNonImprovingMoves(t *testing.T) {
	b := &ChainBuilder{FIFOSize: 8, Capacity: 4, OverlapThreshold: 0.5}
	b.Record(moveWithConstraints(0, 1, 0), false)
	b.Record(moveWithConstraints(1, 1, 1), false)
	assert.Empty(t, b.Ready())
}

func TestChainBuilderRespectsFIFOSize(t *testing.T) {
	b := &ChainBuilder{FIFOSize: 1, Capacity: 4, OverlapThreshold: 0.9}
	b.Record(moveWithConstraints(0, 1, 0), true)
	b.Record(moveWithConstraints(1, 1, 1), true)
	assert.Len(t, b.recent, 1)
}

func TestChainBuilderRespectsCapacity(t *testing.T) {
	b := &ChainBuilder{FIFOSize: 8, Capacity: 1, OverlapThreshold: 0.5}
	b.Record(moveWithConstraints(0, 1, 0, 1), true)
	b.Record(moveWithConstraints(1, 1, 2, 3), true)
	assert.Empty(t, b.Ready())
}

func TestOverlapRateIsZeroWithNoSharedConstraints(t *testing.T) {
	a := moveWithConstraints(0, 1, 0, 1)
	c := moveWithConstraints(1, 1, 2, 3)
	assert.Equal(t, 0.0, overlapRate(a, c))
}

func TestOverlapRateIsOneForIdenticalConstraintSets(t *testing.T) {
	a := moveWithConstraints(0, 1, 0, 1)
	c := moveWithConstraints(1, 1, 0, 1)
	assert.Equal(t, 1.0, overlapRate(a, c))
}

// buildTriangle models max x+y+z subject to x+y<=10, y+z<=10, x+z<=10 over
// integers in [0,10]: at a tight corner such as (10,0,0) no single ±1 step
// improves the augmented objective, but the three-variable chain
// {x-1, y+1, z+1} does.
func buildTriangle(t *testing.T) (*model.Container, [3]model.VarID) {
	t.Helper()
	c := model.NewContainer("triangle")

	x := c.NewVariable("x", 0, 10)
	y := c.NewVariable("y", 0, 10)
	z := c.NewVariable("z", 0, 10)

	obj := c.NewExpression("obj")
	c.Expression(obj).AddTerm(x, 1)
	c.Expression(obj).AddTerm(y, 1)
	c.Expression(obj).AddTerm(z, 1)
	c.SetObjective(obj, false)

	for i, pair := range [][2]model.VarID{{x, y}, {y, z}, {x, z}} {
		name := fmt.Sprintf("cap%d", i)
		e := c.NewExpression(name)
		c.Expression(e).AddTerm(pair[0], 1)
		c.Expression(e).AddTerm(pair[1], 1)
		c.Expression(e).AddConstant(-10)
		cid := c.NewConstraint(name, e, model.Less)
		c.Constraint(cid).SetPenaltyCoefficients(10, 10, 10)
	}

	require.NoError(t, model.NewBuilder(c).Build())
	return c, [3]model.VarID{x, y, z}
}

func TestChainMoveEscapesTriangleCorner(t *testing.T) {
	c, vars := buildTriangle(t)
	x, y, z := vars[0], vars[1], vars[2]

	c.ApplyMove(model.NewMove(model.MoveGeneral, model.Alteration{Var: x, Value: 10}))
	c.RecomputeAll()
	c.RefreshImprovability()

	base := evaluator.FromScratch(c)
	require.True(t, base.IsFeasible)

	// No single ±1 step improves the augmented objective at the corner.
	for _, mv := range (IntegerStepGenerator{}).Generate(c) {
		s := evaluator.EvaluateMove(c, mv, base)
		assert.GreaterOrEqual(t, s.LocalAugmentedObjective, base.LocalAugmentedObjective-model.Epsilon)
	}

	b := &ChainBuilder{FIFOSize: 8, Capacity: 3, OverlapThreshold: 0.9}
	stepX := newMove(c, model.MoveInteger, model.Alteration{Var: x, Value: 9})
	stepY := newMove(c, model.MoveInteger, model.Alteration{Var: y, Value: 1})
	stepZ := newMove(c, model.MoveInteger, model.Alteration{Var: z, Value: 1})

	b.Record(stepX, true)
	b.Record(stepY, true)
	pairs := b.Ready()
	require.NotEmpty(t, pairs)
	b.Record(pairs[0], true)
	b.Record(stepZ, true)

	var chain *model.Move
	for _, mv := range b.Ready() {
		if len(mv.Alterations) == 3 {
			chain = mv
		}
	}
	require.NotNil(t, chain)
	assert.Equal(t, model.MoveChain, chain.Sense)

	s := evaluator.EvaluateMove(c, chain, base)
	assert.Less(t, s.LocalAugmentedObjective, base.LocalAugmentedObjective-model.Epsilon)
	assert.True(t, s.IsFeasible)
	assert.InDelta(t, base.ObjectiveAfter-1, s.ObjectiveAfter, 1e-9)
}
