package localsearch

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvaran/tabuforge/internal/parallel"
	"github.com/katalvaran/tabuforge/pkg/evaluator"
	"github.com/katalvaran/tabuforge/pkg/incumbent"
	"github.com/katalvaran/tabuforge/pkg/memory"
	"github.com/katalvaran/tabuforge/pkg/model"
	"github.com/katalvaran/tabuforge/pkg/neighborhood"
	"github.com/katalvaran/tabuforge/pkg/options"
	"github.com/katalvaran/tabuforge/pkg/tabusearch"
)

// flipGenerator proposes flipping every mutable binary variable to its
// complementary value, one univariable move per variable.
type flipGenerator struct{}

func (flipGenerator) Name() string { return "flip" }

func (flipGenerator) Generate(c *model.Container) []*model.Move {
	var out []*model.Move
	for _, v := range c.MutableVariablesBySense(model.Binary) {
		variable := c.Variable(v)
		cur := variable.Value()
		mv := model.NewMove(model.MoveBinary, model.Alteration{Var: v, Value: 1 - cur})
		for _, s := range variable.Sensitivities {
			mv.RelatedConstraints = append(mv.RelatedConstraints, s.Constraint)
		}
		out = append(out, mv)
	}
	return out
}

type nullArchive struct{}

func (nullArchive) Push(score *evaluator.SolutionScore, c *model.Container) {}

func buildKnapsack(t *testing.T) *model.Container {
	t.Helper()
	c := model.NewContainer("knapsack")

	x := c.NewVariable("x", 0, 1)
	y := c.NewVariable("y", 0, 1)

	objID := c.NewExpression("objective")
	c.Expression(objID).AddTerm(x, -3)
	c.Expression(objID).AddTerm(y, -5)
	c.SetObjective(objID, true)

	capID := c.NewExpression("capacity")
	c.Expression(capID).AddTerm(x, 4)
	c.Expression(capID).AddTerm(y, 4)
	c.Expression(capID).AddConstant(-6)
	cid := c.NewConstraint("capacity", capID, model.Less)
	c.Constraint(cid).SetPenaltyCoefficients(2, 0, 10)

	require.NoError(t, model.NewBuilder(c).Build())
	return c
}

func TestRunReachesTheSameKnapsackOptimumAsTabuSearch(t *testing.T) {
	c := buildKnapsack(t)
	n := neighborhood.New([]neighborhood.Generator{flipGenerator{}}, nil, parallel.New(1))

	cfg := Config{
		Opt:                  options.LocalSearch{IterationMax: 50, TimeMaxSeconds: 10},
		Neighborhood:         n,
		Memory:               memory.New(c),
		Incumbent:            incumbent.New(),
		Archive:              nullArchive{},
		Rng:                  rand.New(rand.NewSource(1)),
		Linear:               true,
		TargetObjectiveValue: -1e100,
	}

	res := Run(context.Background(), c, cfg)

	assert.Equal(t, tabusearch.LocalOptimal, res.Reason)
	global, ok := cfg.Incumbent.Feasible()
	require.True(t, ok)
	assert.InDelta(t, -5.0, global, 1e-6)
	assert.Equal(t, 0, res.FinalTenure)
}

func TestRunNeverMarksAMoveTabu(t *testing.T) {
	c := buildKnapsack(t)
	n := neighborhood.New([]neighborhood.Generator{flipGenerator{}}, nil, parallel.New(1))
	mem := memory.New(c)

	cfg := Config{
		Opt:                  options.LocalSearch{IterationMax: 50, TimeMaxSeconds: 10},
		Neighborhood:         n,
		Memory:               mem,
		Incumbent:            incumbent.New(),
		Archive:              nullArchive{},
		Rng:                  rand.New(rand.NewSource(2)),
		Linear:               true,
		TargetObjectiveValue: -1e100,
	}

	res := Run(context.Background(), c, cfg)

	require.Greater(t, res.IterationsRun, int64(0))
	assert.False(t, mem.IsTabu(0, mem.LastUpdateIteration(0)+1, 0))
}

func TestRunRespectsCancellation(t *testing.T) {
	c := buildKnapsack(t)
	n := neighborhood.New([]neighborhood.Generator{flipGenerator{}}, nil, parallel.New(1))

	cfg := Config{
		Opt:          options.LocalSearch{IterationMax: 1000, TimeMaxSeconds: 10},
		Neighborhood: n,
		Memory:       memory.New(c),
		Incumbent:    incumbent.New(),
		Archive:      nullArchive{},
		Rng:          rand.New(rand.NewSource(3)),
		Linear:       true,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := Run(ctx, c, cfg)

	assert.Equal(t, tabusearch.Cancelled, res.Reason)
	assert.Equal(t, int64(0), res.IterationsRun)
}
