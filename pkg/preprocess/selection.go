package preprocess

import (
	"sort"

	"github.com/katalvaran/tabuforge/pkg/model"
)

// selectionExtraction finds enabled equality constraints of the shape
// Σxᵢ=1 over binary variables and extracts them into Selection objects in
// the order given by strategy, skipping any candidate that would overlap a
// selection already extracted this pass (§4.D pass 7). A size-1 candidate
// degenerates per §8's boundary behavior: its sole member is fixed to 1
// instead of becoming a one-element Selection.
func selectionExtraction(c *model.Container, strategy SelectionStrategy) (int, error) {
	candidates := findSelectionCandidates(c)

	if strategy == Independent {
		candidates = filterPairwiseDisjoint(c, candidates)
	}
	orderCandidates(c, candidates, strategy)

	used := make(map[model.VarID]bool)
	extracted := 0

	for _, cid := range candidates {
		cons := c.Constraint(cid)
		if !cons.IsEnabled() {
			continue
		}
		e := c.Expression(cons.Expression())
		terms := e.Terms()

		overlap := false
		for _, t := range terms {
			if used[t.Var] {
				overlap = true
				break
			}
		}
		if overlap {
			continue
		}

		members := make([]model.VarID, len(terms))
		for i, t := range terms {
			members[i] = t.Var
		}

		if len(members) == 1 {
			if err := c.FixVariable(members[0], 1); err != nil {
				return extracted, err
			}
			cons.SetEnabled(false)
			used[members[0]] = true
			extracted++
			continue
		}

		selID := c.AddSelection(members, cid)
		for _, m := range members {
			v := c.Variable(m)
			v.SetSense(model.Selection)
			v.SetDefiningSelection(selID)
			used[m] = true
		}
		cons.SetEnabled(false)
		extracted++
	}
	return extracted, nil
}

func findSelectionCandidates(c *model.Container) []model.ConstraintID {
	var candidates []model.ConstraintID
	for _, cid := range c.EnabledConstraints() {
		cons := c.Constraint(cid)
		if cons.IsUserDefinedSelection() {
			candidates = append(candidates, cid)
			continue
		}
		if cons.Sense() != model.Equal {
			continue
		}
		e := c.Expression(cons.Expression())
		if e.Constant() != -1 {
			continue
		}
		terms := e.Terms()
		if len(terms) == 0 || !e.Structure().HasOnlyBinaryOrSelectionVars {
			continue
		}
		allUnit := true
		for _, t := range terms {
			if t.Coef != 1 {
				allUnit = false
				break
			}
		}
		if allUnit {
			candidates = append(candidates, cid)
		}
	}
	return candidates
}

// filterPairwiseDisjoint keeps only candidates that share no member
// variable with any other candidate.
func filterPairwiseDisjoint(c *model.Container, candidates []model.ConstraintID) []model.ConstraintID {
	membership := make(map[model.VarID]int)
	for _, cid := range candidates {
		for _, t := range c.Expression(c.Constraint(cid).Expression()).Terms() {
			membership[t.Var]++
		}
	}
	var out []model.ConstraintID
	for _, cid := range candidates {
		independent := true
		for _, t := range c.Expression(c.Constraint(cid).Expression()).Terms() {
			if membership[t.Var] > 1 {
				independent = false
				break
			}
		}
		if independent {
			out = append(out, cid)
		}
	}
	return out
}

func orderCandidates(c *model.Container, candidates []model.ConstraintID, strategy SelectionStrategy) {
	size := func(cid model.ConstraintID) int {
		return len(c.Expression(c.Constraint(cid).Expression()).Terms())
	}
	switch strategy {
	case AscendingSize:
		sort.SliceStable(candidates, func(i, j int) bool { return size(candidates[i]) < size(candidates[j]) })
	case DescendingSize:
		sort.SliceStable(candidates, func(i, j int) bool { return size(candidates[i]) > size(candidates[j]) })
	default: // DefinedOrder, Independent
	}
}
