// Package incumbent tracks the best solutions a tabu-search run has seen,
// in the three senses the outer solver and inner loop both need (§4.G).
package incumbent

import (
	"math"

	"github.com/katalvaran/tabuforge/pkg/evaluator"
)

// UpdateFlag is a bit in the mask Holder.TryUpdate returns, naming which
// incumbents a newly evaluated score improved.
type UpdateFlag int

const (
	Local UpdateFlag = 1 << iota
	Global
	Feasible
)

// Has reports whether flag is set in the mask.
func (m UpdateFlag) Has(flag UpdateFlag) bool { return m&flag != 0 }

// Holder keeps the three running incumbents the solver's inner and outer
// loops compare against: the local-augmented incumbent (best since the
// last reset, which the outer solver issues between tabu-search rounds),
// the global-augmented incumbent (best ever seen, drives aspiration), and
// the feasible incumbent (best objective among ever-seen feasible scores).
type Holder struct {
	localAugmented  float64
	globalAugmented float64
	feasible        float64

	hasFeasible bool
}

// New returns a Holder with every incumbent at +infinity (minimization
// convention: nothing has been beaten yet).
func New() *Holder {
	h := &Holder{}
	h.reset()
	return h
}

func (h *Holder) reset() {
	h.localAugmented = math.Inf(1)
	h.globalAugmented = math.Inf(1)
	h.feasible = math.Inf(1)
	h.hasFeasible = false
}

// ResetLocalAugmentedIncumbent clears only the local-augmented incumbent,
// called by the outer solver between tabu-search rounds so each round's
// first-improvement comparisons start fresh without losing the global or
// feasible history.
func (h *Holder) ResetLocalAugmentedIncumbent() {
	h.localAugmented = math.Inf(1)
}

// LocalAugmented returns the current local-augmented incumbent value.
func (h *Holder) LocalAugmented() float64 { return h.localAugmented }

// GlobalAugmented returns the current global-augmented incumbent value.
func (h *Holder) GlobalAugmented() float64 { return h.globalAugmented }

// Feasible returns the current feasible incumbent's objective value and
// whether any feasible score has been observed yet.
func (h *Holder) Feasible() (float64, bool) { return h.feasible, h.hasFeasible }

// TryUpdate compares score against all three incumbents and updates any it
// beats by more than the model's floating-point tolerance, returning a
// bitmask of which were improved.
func (h *Holder) TryUpdate(score *evaluator.SolutionScore, epsilon float64) UpdateFlag {
	var mask UpdateFlag

	if score.LocalAugmentedObjective < h.localAugmented-epsilon {
		h.localAugmented = score.LocalAugmentedObjective
		mask |= Local
	}
	if score.GlobalAugmentedObjective < h.globalAugmented-epsilon {
		h.globalAugmented = score.GlobalAugmentedObjective
		mask |= Global
	}
	if score.IsFeasible && score.ObjectiveAfter < h.feasible-epsilon {
		h.feasible = score.ObjectiveAfter
		h.hasFeasible = true
		mask |= Feasible
	}
	return mask
}
