package preprocess

import "github.com/katalvaran/tabuforge/pkg/model"

// duplicateConstraintRemoval disables one of every pair of enabled
// constraints that share an identical coefficient map, sense, and rhs, and
// combines sign-negated complementary-sense pairs into a single equality
// (§4.D pass 4).
func duplicateConstraintRemoval(c *model.Container) (int, error) {
	changed := 0
	cids := c.EnabledConstraints()

	for i := 0; i < len(cids); i++ {
		a := c.Constraint(cids[i])
		if !a.IsEnabled() {
			continue
		}
		ea := c.Expression(a.Expression())

		for j := i + 1; j < len(cids); j++ {
			b := c.Constraint(cids[j])
			if !b.IsEnabled() {
				continue
			}
			eb := c.Expression(b.Expression())

			switch {
			case a.Sense() == b.Sense() && exprEqual(ea, eb):
				b.SetEnabled(false)
				changed++
			case a.Sense() == model.Equal && b.Sense() != model.Equal && exprEqual(ea, eb):
				// An equality implies any inequality over the identical LHS.
				b.SetEnabled(false)
				changed++
			case b.Sense() == model.Equal && a.Sense() != model.Equal && exprEqual(ea, eb):
				a.SetEnabled(false)
				changed++
			case complementarySense(a.Sense(), b.Sense()) && exprNegated(ea, eb):
				a.SetEnabled(false)
				b.SetEnabled(false)
				newID := c.NewExpression(ea.Name() + "_combined")
				copyExpression(c.Expression(newID), ea)
				c.NewConstraint(a.Name()+"_eq_"+b.Name(), newID, model.Equal)
				changed += 2
			}
		}
	}
	return changed, nil
}

// implicitEqualityExtraction combines two opposite-sense inequalities over
// the identical (not negated) expression into a single equality (§4.D pass
// 5), which is the one remaining case duplicateConstraintRemoval does not
// already cover (identical-sense duplicates and sign-negated
// complementary pairs).
func implicitEqualityExtraction(c *model.Container) (int, error) {
	changed := 0
	cids := c.EnabledConstraints()

	for i := 0; i < len(cids); i++ {
		a := c.Constraint(cids[i])
		if !a.IsEnabled() || a.Sense() == model.Equal {
			continue
		}
		ea := c.Expression(a.Expression())

		for j := i + 1; j < len(cids); j++ {
			b := c.Constraint(cids[j])
			if !b.IsEnabled() || b.Sense() == model.Equal {
				continue
			}
			if !complementarySense(a.Sense(), b.Sense()) {
				continue
			}
			eb := c.Expression(b.Expression())
			if !exprEqual(ea, eb) {
				continue
			}

			a.SetEnabled(false)
			b.SetEnabled(false)
			newID := c.NewExpression(ea.Name() + "_implied_eq")
			copyExpression(c.Expression(newID), ea)
			c.NewConstraint(a.Name()+"_eq_"+b.Name(), newID, model.Equal)
			changed += 2
		}
	}
	return changed, nil
}

func complementarySense(a, b model.ConstraintSense) bool {
	return (a == model.Less && b == model.Greater) || (a == model.Greater && b == model.Less)
}

func exprEqual(a, b *model.Expression) bool {
	if a.Constant() != b.Constant() {
		return false
	}
	ta, tb := a.Terms(), b.Terms()
	if len(ta) != len(tb) {
		return false
	}
	for i := range ta {
		if ta[i].Var != tb[i].Var || ta[i].Coef != tb[i].Coef {
			return false
		}
	}
	return true
}

func exprNegated(a, b *model.Expression) bool {
	if a.Constant() != -b.Constant() {
		return false
	}
	ta, tb := a.Terms(), b.Terms()
	if len(ta) != len(tb) {
		return false
	}
	for i := range ta {
		if ta[i].Var != tb[i].Var || ta[i].Coef != -tb[i].Coef {
			return false
		}
	}
	return true
}

func copyExpression(dst, src *model.Expression) {
	for _, t := range src.Terms() {
		dst.AddTerm(t.Var, t.Coef)
	}
	dst.AddConstant(src.Constant())
}
