package preprocess

import (
	"math"

	"github.com/katalvaran/tabuforge/internal/errs"
	"github.com/katalvaran/tabuforge/pkg/model"
)

// boundTightening scans every enabled constraint with at most one unfixed
// variable and derives a tightened bound on it, disabling the now-consumed
// constraint (§4.D pass 3). A constraint with zero unfixed variables is
// checked for feasibility and disabled.
func boundTightening(c *model.Container) (int, error) {
	changed := 0
	for _, cid := range c.EnabledConstraints() {
		cons := c.Constraint(cid)
		expr := c.Expression(cons.Expression())
		terms := expr.Terms()

		sum := expr.Constant()
		freeCount := 0
		var freeTerm model.Term
		for _, t := range terms {
			v := c.Variable(t.Var)
			if v.IsFixed() {
				sum += t.Coef * float64(v.Value())
			} else {
				freeCount++
				freeTerm = t
			}
		}
		if freeCount > 1 {
			continue
		}

		if freeCount == 0 {
			if violationOf(cons.Sense(), sum) > model.Epsilon {
				return changed, errs.At(errs.PreprocessContradiction, cons.Name(),
					"constraint is violated once all variables are fixed: value=%g", sum)
			}
			cons.SetEnabled(false)
			changed++
			continue
		}

		v := c.Variable(freeTerm.Var)
		lo, hi := v.Bounds()
		newLo, newHi, err := tightenedBounds(cons.Sense(), freeTerm.Coef, sum, lo, hi)
		if err != nil {
			return changed, errs.At(errs.PreprocessContradiction, cons.Name(), "%s", err.Error())
		}
		if newLo > newHi {
			return changed, errs.At(errs.PreprocessContradiction, cons.Name(),
				"bound tightening derives an empty range [%d,%d] for %q", newLo, newHi, v.Name())
		}
		if newLo != lo || newHi != hi {
			v.SetBounds(newLo, newHi)
		}
		cons.SetEnabled(false)
		changed++
		if newLo == newHi {
			if err := c.FixVariable(freeTerm.Var, newLo); err != nil {
				return changed, err
			}
		}
	}
	return changed, nil
}

// violationOf returns how far value is on the infeasible side of sense.
func violationOf(sense model.ConstraintSense, value float64) float64 {
	switch sense {
	case model.Less:
		if value > 0 {
			return value
		}
	case model.Greater:
		if value < 0 {
			return -value
		}
	case model.Equal:
		v := value
		if v < 0 {
			v = -v
		}
		return v
	}
	return 0
}

// tightenedBounds derives the tightened [lo,hi] for coef*x + sum <sense> 0,
// i.e. coef*x <sense> -sum.
func tightenedBounds(sense model.ConstraintSense, coef, sum float64, lo, hi int) (int, int, error) {
	rhs := -sum
	switch sense {
	case model.Equal:
		if coef == 0 {
			return lo, hi, nil
		}
		val := rhs / coef
		rounded := math.Round(val)
		if math.Abs(val-rounded) > 1e-6 {
			return lo, hi, errInfeasibleNonInteger(val)
		}
		return int(rounded), int(rounded), nil
	case model.Less:
		if coef > 0 {
			bound := int(math.Floor(rhs/coef + 1e-9))
			if bound < hi {
				hi = bound
			}
		} else if coef < 0 {
			bound := int(math.Ceil(rhs/coef - 1e-9))
			if bound > lo {
				lo = bound
			}
		}
	case model.Greater:
		if coef > 0 {
			bound := int(math.Ceil(rhs/coef - 1e-9))
			if bound > lo {
				lo = bound
			}
		} else if coef < 0 {
			bound := int(math.Floor(rhs/coef + 1e-9))
			if bound < hi {
				hi = bound
			}
		}
	}
	return lo, hi, nil
}

type infeasibleNonIntegerError struct{ value float64 }

func (e infeasibleNonIntegerError) Error() string {
	return "equality constraint requires a non-integer value for an integer variable"
}

func errInfeasibleNonInteger(value float64) error {
	return infeasibleNonIntegerError{value: value}
}
