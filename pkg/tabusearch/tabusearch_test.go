package tabusearch

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
	"github.com/katalvaran/tabuforge/pkg/preprocess"
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

type nullArchive struct{ count int }

func (a *nullArchive) Push(score *evaluator.SolutionScore, c *model.Container) { a.count++ }

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

func buildRun(c *model.Container, opt options.TabuSearch, forceTenure *int) (Config, *incumbent.Holder, *memory.Memory) {
	n := neighborhood.New([]neighborhood.Generator{flipGenerator{}}, nil, parallel.New(1))
	mem := memory.New(c)
	hold := incumbent.New()
	cfg := Config{
		Opt:                  opt,
		ForceTenure:          forceTenure,
		Neighborhood:         n,
		Memory:               mem,
		Incumbent:            hold,
		Archive:              &nullArchive{},
		Rng:                  rand.New(rand.NewSource(1)),
		Linear:               true,
		TargetObjectiveValue: -1e100,
	}
	return cfg, hold, mem
}

func TestRunFindsKnapsackOptimumAndReportsLocalOptimal(t *testing.T) {
	c := buildKnapsack(t)
	opt := options.Default().TabuSearch
	opt.IterationMax = 50
	opt.IsEnabledShuffle = false
	opt.InitialTabuTenure = 1

	cfg, hold, _ := buildRun(c, opt, nil)
	res := Run(context.Background(), c, cfg)

	assert.Equal(t, LocalOptimal, res.Reason)
	// Best feasible augmented objective is -5 (y=1, x=0): capacity=4-6=-2, no violation.
	global, ok := hold.Feasible()
	require.True(t, ok)
	assert.InDelta(t, -5.0, global, 1e-6)
}

func TestRunRespectsIterationCap(t *testing.T) {
	c := buildKnapsack(t)
	opt := options.Default().TabuSearch
	opt.IterationMax = 1
	opt.InitialTabuTenure = 5
	opt.IsEnabledAutomaticTabuTenureAdjustment = false

	cfg, _, _ := buildRun(c, opt, nil)
	res := Run(context.Background(), c, cfg)

	assert.LessOrEqual(t, res.IterationsRun, int64(1))
}

func TestRunWithZeroTenureActsAsLocalSearch(t *testing.T) {
	c := buildKnapsack(t)
	opt := options.Default().TabuSearch
	opt.IterationMax = 50
	opt.IsEnabledShuffle = false
	zero := 0

	cfg, _, mem := buildRun(c, opt, &zero)
	cfg.DisablePenaltyFeedback = true
	res := Run(context.Background(), c, cfg)

	assert.Equal(t, LocalOptimal, res.Reason)
	// A forced tenure of 0 means a variable is never tabu, however recently
	// it moved, even one iteration after it was last touched.
	assert.False(t, mem.IsTabu(0, mem.LastUpdateIteration(0)+1, 0))
	assert.GreaterOrEqual(t, mem.LastUpdateIteration(0), int64(0))
}

func TestNextIterationMaxGrowsAndShrinks(t *testing.T) {
	opt := options.Default().TabuSearch

	grown := NextIterationMax(100, true, opt)
	assert.Greater(t, grown, 100)

	shrunk := NextIterationMax(100, false, opt)
	assert.Less(t, shrunk, 100)

	opt.IsEnabledAutomaticIterationAdjustment = false
	unchanged := NextIterationMax(100, true, opt)
	assert.Equal(t, 100, unchanged)
}

func TestCancellationStopsTheLoop(t *testing.T) {
	c := buildKnapsack(t)
	opt := options.Default().TabuSearch
	opt.IterationMax = 1000

	cfg, _, _ := buildRun(c, opt, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := Run(ctx, c, cfg)

	assert.Equal(t, Cancelled, res.Reason)
	assert.Equal(t, int64(0), res.IterationsRun)
}

// buildTenSelection is scenario 4's model: ten binaries summing to one,
// objective min sum(i*x_i), extracted into a Selection by preprocessing.
func buildTenSelection(t *testing.T) (*model.Container, []model.VarID) {
	t.Helper()
	c := model.NewContainer("selection-switch")

	vars := make([]model.VarID, 10)
	obj := c.NewExpression("obj")
	for i := range vars {
		vars[i] = c.NewVariable("", 0, 1)
		c.Expression(obj).AddTerm(vars[i], float64(i))
	}
	c.SetObjective(obj, true)

	sum := c.NewExpression("choose_one")
	for _, v := range vars {
		c.Expression(sum).AddTerm(v, 1)
	}
	c.Expression(sum).AddConstant(-1)
	cid := c.NewConstraint("choose_one", sum, model.Equal)
	c.Constraint(cid).SetPenaltyCoefficients(10, 10, 10)

	_, err := preprocess.Run(c, preprocess.Options{SelectionStrategy: preprocess.DefinedOrder})
	require.NoError(t, err)
	return c, vars
}

func TestRunSelectionSwitchThenLocalOptimal(t *testing.T) {
	c, vars := buildTenSelection(t)

	// Move the selection off its extracted default so exactly one
	// improving switch remains.
	c.ApplyMove(model.NewMove(model.MoveSelection,
		model.Alteration{Var: vars[2], Value: 1},
		model.Alteration{Var: vars[0], Value: 0},
	))
	c.RecomputeAll()

	opt := options.Default().TabuSearch
	opt.IterationMax = 50
	opt.IsEnabledShuffle = false
	opt.InitialTabuTenure = 1

	n := neighborhood.New([]neighborhood.Generator{neighborhood.SelectionGenerator{}}, nil, parallel.New(1))
	cfg := Config{
		Opt:                  opt,
		Neighborhood:         n,
		Memory:               memory.New(c),
		Incumbent:            incumbent.New(),
		Archive:              &nullArchive{},
		Rng:                  rand.New(rand.NewSource(1)),
		TargetObjectiveValue: -1e100,
	}
	res := Run(context.Background(), c, cfg)

	assert.Equal(t, LocalOptimal, res.Reason)
	assert.Equal(t, int64(1), res.IterationsRun)
	assert.Equal(t, 1, c.Variable(vars[0]).Value())
	assert.Equal(t, 0, c.Variable(vars[2]).Value())
	assert.InDelta(t, 0, res.FinalScore.ObjectiveAfter, 1e-9)
}

// TestRunReportsNoMovesWhenNothingIsImprovable covers the boundary where
// the objective has zero coefficients on every mutable variable: the run
// ends after a single improvability scan with no candidates at all.
func TestRunReportsNoMovesWhenNothingIsImprovable(t *testing.T) {
	c := model.NewContainer("flat")
	x := c.NewVariable("x", 0, 1)
	y := c.NewVariable("y", 0, 1)
	require.NoError(t, c.FixVariable(y, 0))

	obj := c.NewExpression("obj")
	c.Expression(obj).AddTerm(y, 1)
	c.SetObjective(obj, true)
	require.NoError(t, model.NewBuilder(c).Build())

	opt := options.Default().TabuSearch
	opt.IterationMax = 50

	cfg, _, _ := buildRun(c, opt, nil)
	res := Run(context.Background(), c, cfg)

	assert.Equal(t, NoMoves, res.Reason)
	assert.Equal(t, int64(0), res.IterationsRun)
	assert.Equal(t, 0, c.Variable(x).Value())
}
