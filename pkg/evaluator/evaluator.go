// Package evaluator scores moves and whole states against a model.Container,
// producing the SolutionScore the tabu-search core and outer solver compare
// incumbents by (§4.F).
package evaluator

import "github.com/katalvaran/tabuforge/pkg/model"

// SolutionScore is the evaluator's output: the objective value and
// augmented-objective variants a move (or the current state) would produce,
// plus the improvement flags the tabu-search core's first-improvement
// selection and incumbent holder consume.
//
// Every field here is in the model's internal, always-minimizing sense
// (model.Objective.Sign applied only at the reporting boundary in
// pkg/solution) so that "improves" always means "decreases," regardless of
// whether the original problem minimized or maximized.
type SolutionScore struct {
	ObjectiveAfter           float64
	TotalViolation           float64
	LocalAugmentedObjective  float64
	GlobalAugmentedObjective float64

	IsFeasible              bool
	IsObjectiveImprovable   bool
	IsFeasibilityImprovable bool
}

// FromScratch recomputes a SolutionScore over every enabled constraint and
// the objective, from the container's current variable values. Used for the
// very first evaluation and as a periodic verification cross-check against
// the incremental path below; the two must agree to within model.Epsilon.
func FromScratch(c *model.Container) *SolutionScore {
	c.RecomputeAll()

	objective := c.Expression(c.Objective().Expression()).Value()
	totalViolation := 0.0
	localPenalty := 0.0
	globalPenalty := 0.0

	for _, cid := range c.EnabledConstraints() {
		cons := c.Constraint(cid)
		totalViolation += cons.Violation()
		localPenalty += cons.LocalPenalty()
		globalPenalty += cons.GlobalPenalty()
	}

	return &SolutionScore{
		ObjectiveAfter:           objective,
		TotalViolation:           totalViolation,
		LocalAugmentedObjective:  objective + localPenalty,
		GlobalAugmentedObjective: objective + globalPenalty,
		IsFeasible:               totalViolation < model.Epsilon,
	}
}

// EvaluateMove scores move against the container's current state, given the
// SolutionScore prev describes. It touches only the altered variables and
// move.RelatedConstraints — O(|move|) — rather than recomputing the whole
// model, by carrying prev's aggregate penalty sums forward and applying
// only the delta each related constraint's violation/penalty contributes.
// It does not mutate c; callers apply the move separately (model.ApplyMove)
// once it is selected.
func EvaluateMove(c *model.Container, move *model.Move, prev *SolutionScore) *SolutionScore {
	deltaObjective := 0.0
	for _, a := range move.Alterations {
		v := c.Variable(a.Var)
		if coef := v.ObjectiveSensitivity(); coef != 0 {
			deltaObjective += coef * float64(a.Value-v.Value())
		}
	}
	objectiveAfter := prev.ObjectiveAfter + deltaObjective

	prevLocalPenalty := prev.LocalAugmentedObjective - prev.ObjectiveAfter
	prevGlobalPenalty := prev.GlobalAugmentedObjective - prev.ObjectiveAfter

	totalViolation := prev.TotalViolation
	deltaLocalPenalty := 0.0
	deltaGlobalPenalty := 0.0

	for _, cid := range move.RelatedConstraints {
		cons := c.Constraint(cid)
		oldViolation := cons.Violation()
		oldLocal := cons.LocalPenalty()
		oldGlobal := cons.GlobalPenalty()

		newValue := c.Expression(cons.Expression()).EvaluateUnderMove(c, move)
		newViolation, _, newPositive, newNegative := model.DeriveConstraintState(cons.Sense(), newValue)

		localLess, localGreater, global := cons.PenaltyCoefficients()
		newLocal := model.LocalPenaltyFor(cons.Sense(), localLess, localGreater, newPositive, newNegative)
		newGlobal := model.GlobalPenaltyFor(global, newViolation)

		totalViolation += newViolation - oldViolation
		deltaLocalPenalty += newLocal - oldLocal
		deltaGlobalPenalty += newGlobal - oldGlobal
	}

	return &SolutionScore{
		ObjectiveAfter:           objectiveAfter,
		TotalViolation:           totalViolation,
		LocalAugmentedObjective:  objectiveAfter + prevLocalPenalty + deltaLocalPenalty,
		GlobalAugmentedObjective: objectiveAfter + prevGlobalPenalty + deltaGlobalPenalty,
		IsFeasible:               totalViolation < model.Epsilon,
		IsObjectiveImprovable:    objectiveAfter < prev.ObjectiveAfter-model.Epsilon,
		IsFeasibilityImprovable:  totalViolation < prev.TotalViolation-model.Epsilon,
	}
}
