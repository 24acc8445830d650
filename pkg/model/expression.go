package model

import "sort"

// Term is one coefficient in an Expression's linear form.
type Term struct {
	Var  VarID
	Coef float64
}

// StructureDescriptor summarizes the shape of an Expression's coefficients,
// used by neighborhood generators and the preprocessing pipeline to
// recognize exploitable structure without re-scanning terms.
type StructureDescriptor struct {
	MaxAbsCoefficient            float64
	HasOnlyBinaryOrSelectionVars bool
}

// Expression is a linear form Σ cᵢ xᵢ + c₀ over variables (§3).
type Expression struct {
	id   ExprID
	name string

	terms     []Term // sorted by Var, unique
	coefIndex map[VarID]float64
	constant  float64

	value     float64
	structure StructureDescriptor
}

// ID returns the expression's stable handle.
func (e *Expression) ID() ExprID { return e.id }

// Name returns the expression's display name.
func (e *Expression) Name() string { return e.name }

// Terms returns the expression's coefficient terms, sorted by VarID.
func (e *Expression) Terms() []Term { return e.terms }

// Constant returns the expression's constant term.
func (e *Expression) Constant() float64 { return e.constant }

// Value returns the cached current value.
func (e *Expression) Value() float64 { return e.value }

// Structure returns the cached structure descriptor.
func (e *Expression) Structure() StructureDescriptor { return e.structure }

// Coefficient returns the coefficient of v in the expression (0 if absent).
func (e *Expression) Coefficient(v VarID) float64 {
	return e.coefIndex[v]
}

// AddTerm adds c·v to the expression, combining with any existing
// coefficient for v, and refreshes the structure descriptor.
func (e *Expression) AddTerm(v VarID, c float64) {
	if e.coefIndex == nil {
		e.coefIndex = make(map[VarID]float64)
	}
	cur, ok := e.coefIndex[v]
	newCoef := cur + c
	e.coefIndex[v] = newCoef
	if ok {
		for i := range e.terms {
			if e.terms[i].Var == v {
				e.terms[i].Coef = newCoef
				break
			}
		}
	} else {
		e.terms = append(e.terms, Term{Var: v, Coef: newCoef})
		sort.Slice(e.terms, func(i, j int) bool { return e.terms[i].Var < e.terms[j].Var })
	}
	e.refreshStructure()
}

// AddConstant adds c to the expression's constant term.
func (e *Expression) AddConstant(c float64) {
	e.constant += c
}

// Scale multiplies every coefficient and the constant term by factor.
func (e *Expression) Scale(factor float64) {
	for i := range e.terms {
		e.terms[i].Coef *= factor
		e.coefIndex[e.terms[i].Var] = e.terms[i].Coef
	}
	e.constant *= factor
	e.refreshStructure()
}

func (e *Expression) refreshStructure() {
	maxAbs := 0.0
	for _, t := range e.terms {
		c := t.Coef
		if c < 0 {
			c = -c
		}
		if c > maxAbs {
			maxAbs = c
		}
	}
	e.structure.MaxAbsCoefficient = maxAbs
}

// variableValue abstracts the lookup an Expression needs to recompute
// itself: the current value of a variable by handle. Container implements
// this; kept as a narrow interface so Expression has no dependency on the
// rest of the model package's mutable state.
type variableValue interface {
	VariableValue(VarID) int
}

// Recompute computes the expression's full value from scratch,
// Σ cᵢ xᵢ + c₀, over every term: O(|terms|). Used for initial evaluation
// and verification (§4.F's "recomputes from scratch" overload).
func (e *Expression) Recompute(values variableValue) float64 {
	sum := e.constant
	for _, t := range e.terms {
		sum += t.Coef * float64(values.VariableValue(t.Var))
	}
	e.value = sum
	return sum
}

// EvaluateUnderMove returns what the expression's value would be if move
// were applied, computed only over the move's alterations plus the cached
// current value: O(|move|), per §4.B.
func (e *Expression) EvaluateUnderMove(values variableValue, move *Move) float64 {
	delta := 0.0
	for _, a := range move.Alterations {
		coef, ok := e.coefIndex[a.Var]
		if !ok {
			continue
		}
		oldVal := values.VariableValue(a.Var)
		delta += coef * float64(a.Value-oldVal)
	}
	return e.value + delta
}

// UpdateCached sets the expression's cached value directly, without
// recomputing it from the terms. EvaluateUnderMove uses the cached value as
// its baseline.
func (e *Expression) UpdateCached(value float64) { e.value = value }
