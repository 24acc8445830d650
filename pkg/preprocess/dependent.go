package preprocess

import "github.com/katalvaran/tabuforge/pkg/model"

// dependentVariableExtraction recognizes any enabled equality constraint
// with a unit-coefficient unfixed, non-dependent, non-Selection variable
// and solves the constraint for it, designating it Dependent{Binary,
// Integer} with a defining expression over the remaining variables (§4.D
// pass 8). The eight named patterns in §4.E (ExclusiveOr, ExclusiveNor,
// InvertedIntegers, BalancedIntegers, ConstantSum/Difference/Ratio,
// general intermediate) are all specializations of this one mechanism,
// distinguished only by the coefficient shape of the constraint the
// neighborhood generator later reads off — see DESIGN.md. Dependency
// chains are broken by inlining any already-dependent variable's defining
// expression at extraction time, so no defining expression ever
// transitively references another dependent variable.
func dependentVariableExtraction(c *model.Container) (int, error) {
	extracted := 0
	for _, cid := range c.EnabledConstraints() {
		cons := c.Constraint(cid)
		if cons.Sense() != model.Equal || cons.IsUserDefinedSelection() {
			continue
		}
		e := c.Expression(cons.Expression())
		terms := e.Terms()
		if len(terms) < 2 {
			continue
		}

		keyIdx := -1
		for i, t := range terms {
			v := c.Variable(t.Var)
			if v.IsFixed() || v.Sense() == model.Selection || v.Sense().IsDependent() {
				continue
			}
			if t.Coef == 1 || t.Coef == -1 {
				keyIdx = i
				break
			}
		}
		if keyIdx == -1 {
			continue
		}

		keyTerm := terms[keyIdx]
		keyVar := c.Variable(keyTerm.Var)
		scale := -1.0 / keyTerm.Coef

		defID := c.NewExpression(keyVar.Name() + "_def")
		def := c.Expression(defID)
		for i, t := range terms {
			if i == keyIdx {
				continue
			}
			inlineDependentTerm(c, def, t.Var, t.Coef*scale)
		}
		def.AddConstant(e.Constant() * scale)

		if keyVar.Sense() == model.Binary {
			keyVar.SetSense(model.DependentBinary)
		} else {
			keyVar.SetSense(model.DependentInteger)
		}
		keyVar.SetDefiningExpression(defID)
		cons.SetKeyVariable(keyTerm.Var)
		cons.SetEnabled(false)
		extracted++
	}
	return extracted, nil
}

// inlineDependentTerm adds coef*v to def, expanding v's own defining
// expression first if v is itself dependent, so def never references a
// dependent variable.
func inlineDependentTerm(c *model.Container, def *model.Expression, v model.VarID, coef float64) {
	variable := c.Variable(v)
	if !variable.Sense().IsDependent() {
		def.AddTerm(v, coef)
		return
	}
	inner := c.Expression(variable.DefiningExpression())
	for _, t := range inner.Terms() {
		inlineDependentTerm(c, def, t.Var, coef*t.Coef)
	}
	def.AddConstant(coef * inner.Constant())
}
