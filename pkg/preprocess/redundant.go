package preprocess

import "github.com/katalvaran/tabuforge/pkg/model"

// redundantSetVariableFixing disables SetPacking/SetCovering constraints
// whose variable set exactly matches an enabled SetPartitioning
// constraint's: a partitioning constraint Σxᵢ=1 already implies both
// Σxᵢ<=1 and Σxᵢ>=1 over the same set, so those are redundant (§4.D pass
// 6, narrowed from general dominance-based variable fixing to the concrete
// same-variable-set case; see DESIGN.md).
func redundantSetVariableFixing(c *model.Container) (int, error) {
	changed := 0
	for _, pid := range c.EnabledConstraintsByType(model.SetPartitioning) {
		pvars := variableSet(c, c.Constraint(pid))

		for _, t := range []model.ConstraintType{model.SetPacking, model.SetCovering} {
			for _, cid := range c.EnabledConstraintsByType(t) {
				cons := c.Constraint(cid)
				if !cons.IsEnabled() {
					continue
				}
				if sameVarSet(variableSet(c, cons), pvars) {
					cons.SetEnabled(false)
					changed++
				}
			}
		}
	}
	return changed, nil
}

func variableSet(c *model.Container, cons *model.Constraint) map[model.VarID]bool {
	e := c.Expression(cons.Expression())
	set := make(map[model.VarID]bool, len(e.Terms()))
	for _, t := range e.Terms() {
		set[t.Var] = true
	}
	return set
}

func sameVarSet(a, b map[model.VarID]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
