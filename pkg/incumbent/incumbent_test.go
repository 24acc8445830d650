package incumbent

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/katalvaran/tabuforge/pkg/evaluator"
)

const eps = 1e-6

func TestNewHolderStartsAtInfinity(t *testing.T) {
	h := New()
	assert.True(t, math.IsInf(h.LocalAugmented(), 1))
	assert.True(t, math.IsInf(h.GlobalAugmented(), 1))
	feasible, ok := h.Feasible()
	assert.False(t, ok)
	assert.True(t, math.IsInf(feasible, 1))
}

func TestTryUpdateImprovesAllThreeOnFirstFeasibleScore(t *testing.T) {
	h := New()
	score := &evaluator.SolutionScore{
		ObjectiveAfter:           -10,
		LocalAugmentedObjective:  -10,
		GlobalAugmentedObjective: -10,
		IsFeasible:               true,
	}
	mask := h.TryUpdate(score, eps)
	assert.True(t, mask.Has(Local))
	assert.True(t, mask.Has(Global))
	assert.True(t, mask.Has(Feasible))

	assert.Equal(t, -10.0, h.LocalAugmented())
	assert.Equal(t, -10.0, h.GlobalAugmented())
	feasible, ok := h.Feasible()
	assert.True(t, ok)
	assert.Equal(t, -10.0, feasible)
}

func TestTryUpdateInfeasibleScoreNeverImprovesFeasibleIncumbent(t *testing.T) {
	h := New()
	score := &evaluator.SolutionScore{
		ObjectiveAfter:           -100,
		LocalAugmentedObjective:  -5,
		GlobalAugmentedObjective: -5,
		IsFeasible:               false,
	}
	mask := h.TryUpdate(score, eps)
	assert.True(t, mask.Has(Local))
	assert.True(t, mask.Has(Global))
	assert.False(t, mask.Has(Feasible))
	_, ok := h.Feasible()
	assert.False(t, ok)
}

func TestTryUpdateRejectsNonImprovingScore(t *testing.T) {
	h := New()
	h.TryUpdate(&evaluator.SolutionScore{
		ObjectiveAfter: -10, LocalAugmentedObjective: -10, GlobalAugmentedObjective: -10, IsFeasible: true,
	}, eps)

	mask := h.TryUpdate(&evaluator.SolutionScore{
		ObjectiveAfter: -5, LocalAugmentedObjective: -5, GlobalAugmentedObjective: -5, IsFeasible: true,
	}, eps)
	assert.Equal(t, UpdateFlag(0), mask)
	assert.Equal(t, -10.0, h.LocalAugmented())
}

func TestResetLocalAugmentedIncumbentLeavesGlobalAndFeasibleIntact(t *testing.T) {
	h := New()
	h.TryUpdate(&evaluator.SolutionScore{
		ObjectiveAfter: -10, LocalAugmentedObjective: -10, GlobalAugmentedObjective: -10, IsFeasible: true,
	}, eps)

	h.ResetLocalAugmentedIncumbent()
	assert.True(t, math.IsInf(h.LocalAugmented(), 1))
	assert.Equal(t, -10.0, h.GlobalAugmented())
	feasible, ok := h.Feasible()
	assert.True(t, ok)
	assert.Equal(t, -10.0, feasible)

	mask := h.TryUpdate(&evaluator.SolutionScore{
		ObjectiveAfter: -3, LocalAugmentedObjective: -3, GlobalAugmentedObjective: -3, IsFeasible: true,
	}, eps)
	assert.True(t, mask.Has(Local))
	assert.False(t, mask.Has(Global))
	assert.False(t, mask.Has(Feasible))
}

func TestUpdateFlagHasIsBitwise(t *testing.T) {
	mask := Local | Feasible
	assert.True(t, mask.Has(Local))
	assert.False(t, mask.Has(Global))
	assert.True(t, mask.Has(Feasible))
}
