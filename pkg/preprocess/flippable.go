package preprocess

import "github.com/katalvaran/tabuforge/pkg/model"

// FlippablePair is a pair of binary-like variables with opposite
// coefficients in CommonConstraints of the constraints they share; flipping
// one from 1 to 0 and the other from 0 to 1 simultaneously preserves the
// value of each of those constraints. Shared constraints where the
// coefficients are not opposite are not checked. This backs the CLI's --extract-flippable-variable-pairs mode and
// the TwoFlip move generator (§4.E).
type FlippablePair struct {
	A, B              model.VarID
	CommonConstraints int
}

// ExtractFlippablePairs reports every pair of mutable binary-or-selection
// variables whose number of opposite-coefficient shared constraints is at
// least minCommonElement (the CLI's -c flag).
func ExtractFlippablePairs(c *model.Container, minCommonElement int) []FlippablePair {
	candidates := append(append([]model.VarID(nil), c.MutableVariablesBySense(model.Binary)...),
		c.MutableVariablesBySense(model.Selection)...)

	var pairs []FlippablePair
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			a, b := candidates[i], candidates[j]
			common := sharedOpposingConstraints(c, a, b)
			if common >= minCommonElement && common > 0 {
				pairs = append(pairs, FlippablePair{A: a, B: b, CommonConstraints: common})
			}
		}
	}
	return pairs
}

func sharedOpposingConstraints(c *model.Container, a, b model.VarID) int {
	va, vb := c.Variable(a), c.Variable(b)
	coefA := make(map[model.ConstraintID]float64, len(va.Sensitivities))
	for _, s := range va.Sensitivities {
		coefA[s.Constraint] = s.Coefficient
	}
	count := 0
	for _, s := range vb.Sensitivities {
		if ca, ok := coefA[s.Constraint]; ok && ca == -s.Coefficient {
			count++
		}
	}
	return count
}
