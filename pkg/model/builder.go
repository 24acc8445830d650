package model

import "sort"

// Builder computes every derived index described in §4.C from a Container's
// raw entities: variable/constraint partitions, per-variable sensitivity
// lists and hashes, per-constraint structure classification, and the
// objective's sensitivity cache. Build must be called once after all
// variables/expressions/constraints/selections have been declared and
// before preprocessing or evaluation begins.
type Builder struct {
	c *Container
}

// NewBuilder returns a Builder over c.
func NewBuilder(c *Container) *Builder { return &Builder{c: c} }

// Build computes all derived indices. Safe to call again after the model
// is mutated (fixing/unfixing variables, enabling/disabling constraints);
// each call fully recomputes derived state rather than incrementally
// patching it.
func (b *Builder) Build() error {
	c := b.c
	c.RecomputeAll()

	b.classifyVariableStructure()
	b.partitionVariables()
	b.computeSensitivities()
	b.classifyConstraints()
	b.partitionConstraints()
	b.computeCoefficientScreeningLists()
	b.computeObjectiveSensitivities()
	b.refreshImprovability()

	c.built = true
	return nil
}

// classifyVariableStructure fills in each Expression's
// HasOnlyBinaryOrSelectionVars flag, which depends on variable senses and
// so cannot be computed by Expression.refreshStructure alone.
func (b *Builder) classifyVariableStructure() {
	c := b.c
	for i := range c.expressions {
		e := &c.expressions[i]
		onlyBinaryLike := true
		for _, t := range e.terms {
			s := c.variables[t.Var].sense
			if s != Binary && s != Selection && s != DependentBinary {
				onlyBinaryLike = false
				break
			}
		}
		e.structure.HasOnlyBinaryOrSelectionVars = onlyBinaryLike
	}
}

// partitionVariables fills derivedIndices.{mutableBySense,fixedBySense,mutableAll}.
func (b *Builder) partitionVariables() {
	c := b.c
	c.refs.mutableBySense = make(map[VariableSense][]VarID)
	c.refs.fixedBySense = make(map[VariableSense][]VarID)
	c.refs.mutableAll = c.refs.mutableAll[:0]

	for i := range c.variables {
		v := &c.variables[i]
		if v.fixed {
			c.refs.fixedBySense[v.sense] = append(c.refs.fixedBySense[v.sense], v.id)
			continue
		}
		c.refs.mutableBySense[v.sense] = append(c.refs.mutableBySense[v.sense], v.id)
		c.refs.mutableAll = append(c.refs.mutableAll, v.id)
	}
}

// computeSensitivities fills every variable's Sensitivities slice (sorted,
// duplicate-free by invariant 6) and stable Hash, from the enabled
// constraints referencing it.
func (b *Builder) computeSensitivities() {
	c := b.c
	byVar := make(map[VarID][]Sensitivity)

	for i := range c.constraints {
		cons := &c.constraints[i]
		if !cons.enabled {
			continue
		}
		e := &c.expressions[cons.expr]
		for _, t := range e.terms {
			byVar[t.Var] = append(byVar[t.Var], Sensitivity{Constraint: cons.id, Coefficient: t.Coef})
		}
	}

	for i := range c.variables {
		v := &c.variables[i]
		list := byVar[v.id]
		sort.Slice(list, func(i, j int) bool { return list[i].Constraint < list[j].Constraint })
		v.Sensitivities = list

		var hash uint64
		for _, s := range list {
			hash ^= constraintHash(s.Constraint)
		}
		v.hash = hash
	}
}

// constraintHash derives a stable per-constraint hash contribution from its
// handle, used to seed variable hashes (§3's "XOR of variable pointers",
// adapted to stable integer handles instead of raw pointers).
func constraintHash(id ConstraintID) uint64 {
	x := uint64(id) + 1
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	return x
}

// classifyConstraints assigns each enabled constraint's ConstraintType from
// its expression's coefficient structure and the senses of its variables.
// Classification follows standard MIP presolve structure recognition
// (single-variable bounds, equality/inequality aggregations, set-type
// covering/packing/partitioning, cardinality, and knapsack forms); the
// reference implementation's own classifier was not available to copy, so
// this is a from-scratch but conventional implementation (see DESIGN.md).
func (b *Builder) classifyConstraints() {
	c := b.c
	for i := range c.constraints {
		cons := &c.constraints[i]
		if !cons.enabled {
			continue
		}
		cons.ctype = classifyOne(c, cons)
	}
}

func classifyOne(c *Container, cons *Constraint) ConstraintType {
	e := &c.expressions[cons.expr]
	terms := e.terms
	n := len(terms)

	if n == 1 {
		return Singleton
	}
	if n == 2 {
		if isUnitCoefficientPair(terms) {
			bothBinaryLike := c.variables[terms[0].Var].sense != Integer &&
				c.variables[terms[1].Var].sense != Integer
			switch {
			case cons.sense == Equal:
				return Aggregation
			case bothBinaryLike:
				return Precedence
			default:
				return VariableBound
			}
		}
	}

	allUnitMagnitude, allPositiveUnit := unitMagnitudeSummary(terms)
	binaryLike := e.structure.HasOnlyBinaryOrSelectionVars

	if binaryLike && allPositiveUnit {
		switch {
		case cons.sense == Equal && e.constant == -1:
			return SetPartitioning
		case cons.sense == Less && e.constant == -1:
			return SetPacking
		case cons.sense == Greater && e.constant == -1:
			return SetCovering
		case e.constant != -1 && e.constant != 0:
			return Cardinality
		}
	}

	if binaryLike && allUnitMagnitude && !allPositiveUnit {
		// mixed +1/-1 binary coefficients with no set-type rhs: leave General.
	}

	if binaryLike && cons.sense == Less && !allPositiveUnit {
		// falls through to knapsack/bin-packing checks below
	}

	if cons.sense == Less && isKnapsackShape(terms) {
		return InvariantKnapsack
	}
	if cons.sense == Less && isBinPackingShape(terms) {
		return BinPacking
	}

	return General
}

func isUnitCoefficientPair(terms []Term) bool {
	if len(terms) != 2 {
		return false
	}
	a, b := terms[0].Coef, terms[1].Coef
	return (a == 1 && b == -1) || (a == -1 && b == 1)
}

func unitMagnitudeSummary(terms []Term) (allUnitMagnitude, allPositiveUnit bool) {
	allUnitMagnitude, allPositiveUnit = true, true
	for _, t := range terms {
		if t.Coef != 1 && t.Coef != -1 {
			allUnitMagnitude = false
		}
		if t.Coef != 1 {
			allPositiveUnit = false
		}
	}
	return
}

// isKnapsackShape recognizes Σ wᵢ xᵢ <= b with all wᵢ > 0 and not all equal
// to 1 (the all-ones case is Cardinality/SetPacking instead).
func isKnapsackShape(terms []Term) bool {
	sawNonUnit := false
	for _, t := range terms {
		if t.Coef <= 0 {
			return false
		}
		if t.Coef != 1 {
			sawNonUnit = true
		}
	}
	return sawNonUnit
}

// isBinPackingShape recognizes Σ sizeᵢ xᵢ - capacity·y <= 0: exactly one
// negative coefficient whose magnitude dominates the positive coefficients
// (supplemented from original_source/printemps/model_component/constraint.h;
// see DESIGN.md).
func isBinPackingShape(terms []Term) bool {
	if len(terms) < 2 {
		return false
	}
	negCount := 0
	var negMag, maxPos float64
	for _, t := range terms {
		if t.Coef < 0 {
			negCount++
			if -t.Coef > negMag {
				negMag = -t.Coef
			}
		} else if t.Coef > maxPos {
			maxPos = t.Coef
		}
	}
	return negCount == 1 && negMag >= maxPos && negMag > 1
}

// partitionConstraints fills derivedIndices.{enabledByType,enabledAll,disabledAll}.
func (b *Builder) partitionConstraints() {
	c := b.c
	c.refs.enabledByType = make(map[ConstraintType][]ConstraintID)
	c.refs.enabledAll = c.refs.enabledAll[:0]
	c.refs.disabledAll = c.refs.disabledAll[:0]

	for i := range c.constraints {
		cons := &c.constraints[i]
		if cons.enabled {
			c.refs.enabledAll = append(c.refs.enabledAll, cons.id)
			c.refs.enabledByType[cons.ctype] = append(c.refs.enabledByType[cons.ctype], cons.id)
		} else {
			c.refs.disabledAll = append(c.refs.disabledAll, cons.id)
		}
	}
}

// computeCoefficientScreeningLists fills, for every enabled constraint, the
// mutable variables with a positive and with a negative coefficient in its
// expression, exposed through PositiveCoefficientVars and
// NegativeCoefficientVars (§4.C). RefreshImprovability does not read these
// lists; it walks each variable's Sensitivities instead.
func (b *Builder) computeCoefficientScreeningLists() {
	c := b.c
	c.refs.positiveCoefVars = make(map[ConstraintID][]VarID)
	c.refs.negativeCoefVars = make(map[ConstraintID][]VarID)

	for i := range c.constraints {
		cons := &c.constraints[i]
		if !cons.enabled {
			continue
		}
		e := &c.expressions[cons.expr]
		for _, t := range e.terms {
			if c.variables[t.Var].fixed {
				continue
			}
			if t.Coef > 0 {
				c.refs.positiveCoefVars[cons.id] = append(c.refs.positiveCoefVars[cons.id], t.Var)
			} else if t.Coef < 0 {
				c.refs.negativeCoefVars[cons.id] = append(c.refs.negativeCoefVars[cons.id], t.Var)
			}
		}
	}
}

// computeObjectiveSensitivities fills the Objective's per-variable
// coefficient cache and each Variable's objectiveSensitivity field.
func (b *Builder) computeObjectiveSensitivities() {
	c := b.c
	if !c.hasObjective {
		return
	}
	e := &c.expressions[c.objective.expr]
	c.objective.sensitivities = make(map[VarID]float64, len(e.terms))
	for _, t := range e.terms {
		c.objective.sensitivities[t.Var] = t.Coef
	}
	for i := range c.variables {
		c.variables[i].objectiveSensitivity = c.objective.sensitivities[c.variables[i].id]
	}
}

// refreshImprovability recomputes every mutable variable's
// IsObjectiveImprovable and IsFeasibilityImprovable flags from the current
// solution and penalty coefficients (§4.E), used once at Build time and
// again every tabu-search iteration via RefreshImprovability.
func (b *Builder) refreshImprovability() {
	b.c.RefreshImprovability()
}

// RefreshImprovability recomputes improvability flags for every mutable
// variable without rebuilding the other derived indices. The tabu-search
// inner loop calls this once per iteration after applying a move (§4.H).
func (c *Container) RefreshImprovability() {
	for _, vid := range c.refs.mutableAll {
		v := &c.variables[vid]
		v.isObjectiveImprovable = variableHasObjectiveSlack(v)
		v.isFeasibilityImprovable = c.variableHasFeasibilitySlack(v)
	}
}

func variableHasObjectiveSlack(v *Variable) bool {
	if v.objectiveSensitivity == 0 {
		return false
	}
	if v.objectiveSensitivity > 0 {
		return v.hasLowerBoundMargin
	}
	return v.hasUpperBoundMargin
}

func (c *Container) variableHasFeasibilitySlack(v *Variable) bool {
	for _, s := range v.Sensitivities {
		cons := &c.constraints[s.Constraint]
		if cons.violation <= Epsilon {
			continue
		}
		switch cons.sense {
		case Less:
			if s.Coefficient > 0 && v.hasLowerBoundMargin {
				return true
			}
			if s.Coefficient < 0 && v.hasUpperBoundMargin {
				return true
			}
		case Greater:
			if s.Coefficient > 0 && v.hasUpperBoundMargin {
				return true
			}
			if s.Coefficient < 0 && v.hasLowerBoundMargin {
				return true
			}
		case Equal:
			if v.hasLowerBoundMargin || v.hasUpperBoundMargin {
				return true
			}
		}
	}
	return false
}
