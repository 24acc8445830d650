package preprocess

import "github.com/katalvaran/tabuforge/pkg/model"

// implicitFixing fixes every mutable variable whose bounds already collapse
// to a single value (§4.D pass 1).
func implicitFixing(c *model.Container) (int, error) {
	fixed := 0
	for _, vid := range c.AllVariables() {
		v := c.Variable(vid)
		if v.IsFixed() || v.Sense().IsDependent() {
			continue
		}
		lo, hi := v.Bounds()
		if lo == hi {
			if err := c.FixVariable(vid, lo); err != nil {
				return fixed, err
			}
			fixed++
		}
	}
	return fixed, nil
}

// independentVariableFixing fixes every mutable variable that appears in no
// enabled constraint to the bound that minimizes its objective contribution
// (§4.D pass 2). A zero objective coefficient fixes to the lower bound for
// determinism.
func independentVariableFixing(c *model.Container) (int, error) {
	fixed := 0
	for _, vid := range c.MutableVariables() {
		v := c.Variable(vid)
		if v.IsFixed() || len(v.Sensitivities) > 0 || v.Sense().IsDependent() || v.Sense() == model.Selection {
			continue
		}
		lo, hi := v.Bounds()
		target := lo
		if v.ObjectiveSensitivity() < 0 {
			target = hi
		}
		if err := c.FixVariable(vid, target); err != nil {
			return fixed, err
		}
		fixed++
	}
	return fixed, nil
}
