package model

import (
	"fmt"
	"sort"

	"github.com/katalvaran/tabuforge/internal/errs"
)

// Container owns every entity's storage for the model's whole lifetime
// (§3 Ownership). Variables, expressions, constraints, and selections live
// in typed arenas (plain slices); everything else holds non-owning VarID /
// ExprID / ConstraintID / SelectionID handles into them.
type Container struct {
	name string

	variables   []Variable
	expressions []Expression
	constraints []Constraint
	selections  []SelectionGroup
	objective   Objective
	hasObjective bool

	varNames        map[string]VarID
	exprNames       map[string]ExprID
	constraintNames map[string]ConstraintID

	refs derivedIndices
	built bool
}

// derivedIndices holds everything the Builder computes (component C).
type derivedIndices struct {
	mutableBySense map[VariableSense][]VarID
	fixedBySense   map[VariableSense][]VarID
	mutableAll     []VarID

	enabledByType  map[ConstraintType][]ConstraintID
	enabledAll     []ConstraintID
	disabledAll    []ConstraintID

	// per-constraint positive/negative-coefficient mutable variable lists
	// (§4.C), read through PositiveCoefficientVars/NegativeCoefficientVars.
	// Keyed by ConstraintID.
	positiveCoefVars map[ConstraintID][]VarID
	negativeCoefVars map[ConstraintID][]VarID
}

// NewContainer creates an empty model container with the given display
// name (e.g. derived from the MPS file's base name).
func NewContainer(name string) *Container {
	return &Container{
		name:            name,
		varNames:        make(map[string]VarID),
		exprNames:       make(map[string]ExprID),
		constraintNames: make(map[string]ConstraintID),
		objective:       Objective{expr: NoExpr, minimize: true, sign: 1},
	}
}

// Name returns the model's display name.
func (c *Container) Name() string { return c.name }

// SetName sets the model's display name.
func (c *Container) SetName(name string) { c.name = name }

// NewVariable declares a new integer variable with inclusive bounds
// [lo, hi] and an initial value of lo. Sense defaults to Binary if
// [lo,hi] == [0,1], else Integer; callers may override via SetSense.
func (c *Container) NewVariable(name string, lo, hi int) VarID {
	if name == "" {
		name = fmt.Sprintf("x[%d]", len(c.variables))
	}
	sense := Integer
	if lo == 0 && hi == 1 {
		sense = Binary
	}
	id := VarID(len(c.variables))
	c.variables = append(c.variables, Variable{
		id:    id,
		name:  name,
		value: lo,
		lo:    lo,
		hi:    hi,
		sense: sense,
		definingSelection: NoSelection,
		definingExpr:      NoExpr,
	})
	c.variables[id].refreshBoundMargins()
	c.varNames[name] = id
	c.built = false
	return id
}

// NewExpression declares a new, initially empty linear expression.
func (c *Container) NewExpression(name string) ExprID {
	if name == "" {
		name = fmt.Sprintf("e[%d]", len(c.expressions))
	}
	id := ExprID(len(c.expressions))
	c.expressions = append(c.expressions, Expression{id: id, name: name})
	c.exprNames[name] = id
	return id
}

// NewConstraint declares a new constraint `expr <sense> 0` over an already
// declared expression.
func (c *Container) NewConstraint(name string, expr ExprID, sense ConstraintSense) ConstraintID {
	if name == "" {
		name = fmt.Sprintf("c[%d]", len(c.constraints))
	}
	id := ConstraintID(len(c.constraints))
	c.constraints = append(c.constraints, Constraint{
		id:          id,
		name:        name,
		expr:        expr,
		sense:       sense,
		enabled:     true,
		keyVariable: NoVar,
	})
	c.constraintNames[name] = id
	c.built = false
	return id
}

// SetObjective installs the model's objective. If minimize is false, the
// expression is negated internally and Sign is recorded as -1 so that
// displayed values can be recovered (§3 Objective).
func (c *Container) SetObjective(expr ExprID, minimize bool) {
	sign := 1.0
	if !minimize {
		sign = -1.0
		e := &c.expressions[expr]
		e.Scale(-1)
	}
	c.objective = Objective{expr: expr, minimize: true, sign: sign}
	c.hasObjective = true
	c.built = false
}

// HasObjective reports whether SetObjective has been called.
func (c *Container) HasObjective() bool { return c.hasObjective }

// Objective returns the model's objective.
func (c *Container) Objective() *Objective { return &c.objective }

// Variable returns a pointer to the variable with the given handle.
func (c *Container) Variable(id VarID) *Variable { return &c.variables[id] }

// Expression returns a pointer to the expression with the given handle.
func (c *Container) Expression(id ExprID) *Expression { return &c.expressions[id] }

// Constraint returns a pointer to the constraint with the given handle.
func (c *Container) Constraint(id ConstraintID) *Constraint { return &c.constraints[id] }

// Selection returns a pointer to the selection with the given handle.
func (c *Container) Selection(id SelectionID) *SelectionGroup { return &c.selections[id] }

// NumVariables, NumExpressions, NumConstraints, NumSelections return arena
// sizes.
func (c *Container) NumVariables() int   { return len(c.variables) }
func (c *Container) NumExpressions() int { return len(c.expressions) }
func (c *Container) NumConstraints() int { return len(c.constraints) }
func (c *Container) NumSelections() int  { return len(c.selections) }

// VariableByName, ExpressionByName, ConstraintByName resolve a declared
// name to its handle.
func (c *Container) VariableByName(name string) (VarID, bool) {
	id, ok := c.varNames[name]
	return id, ok
}
func (c *Container) ExpressionByName(name string) (ExprID, bool) {
	id, ok := c.exprNames[name]
	return id, ok
}
func (c *Container) ConstraintByName(name string) (ConstraintID, bool) {
	id, ok := c.constraintNames[name]
	return id, ok
}

// VariableValue implements the variableValue interface used by
// Expression.Recompute.
func (c *Container) VariableValue(v VarID) int { return c.variables[v].value }

// AllVariables, AllConstraints, AllExpressions iterate arena indices in
// creation order.
func (c *Container) AllVariables() []VarID {
	ids := make([]VarID, len(c.variables))
	for i := range ids {
		ids[i] = VarID(i)
	}
	return ids
}
func (c *Container) AllConstraints() []ConstraintID {
	ids := make([]ConstraintID, len(c.constraints))
	for i := range ids {
		ids[i] = ConstraintID(i)
	}
	return ids
}

// MutableVariables returns every unfixed variable, partitioned by the
// Builder's last Build() call.
func (c *Container) MutableVariables() []VarID { return c.refs.mutableAll }

// MutableVariablesBySense returns mutable variables of the given sense.
func (c *Container) MutableVariablesBySense(s VariableSense) []VarID {
	return c.refs.mutableBySense[s]
}

// FixedVariablesBySense returns fixed variables of the given sense.
func (c *Container) FixedVariablesBySense(s VariableSense) []VarID {
	return c.refs.fixedBySense[s]
}

// EnabledConstraints returns every enabled constraint's handle.
func (c *Container) EnabledConstraints() []ConstraintID { return c.refs.enabledAll }

// DisabledConstraints returns every disabled constraint's handle.
func (c *Container) DisabledConstraints() []ConstraintID { return c.refs.disabledAll }

// EnabledConstraintsByType returns enabled constraints of the given type.
func (c *Container) EnabledConstraintsByType(t ConstraintType) []ConstraintID {
	return c.refs.enabledByType[t]
}

// PositiveCoefficientVars returns the mutable variables with a positive
// coefficient in the given constraint's expression.
func (c *Container) PositiveCoefficientVars(cid ConstraintID) []VarID {
	return c.refs.positiveCoefVars[cid]
}

// NegativeCoefficientVars returns the mutable variables with a negative
// coefficient in the given constraint's expression.
func (c *Container) NegativeCoefficientVars(cid ConstraintID) []VarID {
	return c.refs.negativeCoefVars[cid]
}

// FixVariable freezes v at value. Returns a PreprocessContradiction error,
// and changes nothing, if value lies outside [lo, hi].
func (c *Container) FixVariable(v VarID, value int) error {
	variable := &c.variables[v]
	if value < variable.lo || value > variable.hi {
		return errs.At(errs.PreprocessContradiction, variable.name,
			"cannot fix variable to %d outside bounds [%d,%d]", value, variable.lo, variable.hi)
	}
	variable.value = value
	variable.fixed = true
	variable.refreshBoundMargins()
	c.built = false
	return nil
}

// UnfixVariable releases a previously fixed variable.
func (c *Container) UnfixVariable(v VarID) {
	c.variables[v].fixed = false
	c.built = false
}

// FixVariables fixes every named variable to its given value (CLI -f file).
func (c *Container) FixVariables(nameValues map[string]int) error {
	for name, value := range nameValues {
		id, ok := c.varNames[name]
		if !ok {
			return errs.At(errs.InputFormat, name, "fixed-variable file references unknown variable %q", name)
		}
		if err := c.FixVariable(id, value); err != nil {
			return err
		}
	}
	return nil
}

// UnfixVariables marks exactly the named variables mutable and fixes every
// other variable at its current value (CLI -m file: "only the variables
// listed in the file can be changed").
func (c *Container) UnfixVariables(names []string) error {
	allowed := make(map[VarID]bool, len(names))
	for _, name := range names {
		id, ok := c.varNames[name]
		if !ok {
			return errs.At(errs.InputFormat, name, "mutable-variable file references unknown variable %q", name)
		}
		allowed[id] = true
	}
	for i := range c.variables {
		v := VarID(i)
		if allowed[v] {
			c.variables[i].fixed = false
		} else {
			c.variables[i].fixed = true
		}
	}
	c.built = false
	return nil
}

// SetUserDefinedSelectionConstraints marks the named constraints as
// user-forced selection candidates (CLI -s file).
func (c *Container) SetUserDefinedSelectionConstraints(names []string) error {
	for _, name := range names {
		id, ok := c.constraintNames[name]
		if !ok {
			return errs.At(errs.InputFormat, name, "selection-constraint file references unknown constraint %q", name)
		}
		c.constraints[id].SetUserDefinedSelection(true)
	}
	return nil
}

// AddSelection registers a new Selection extracted from constraint def over
// members and establishes its one-hot assignment: the first member already
// holding value 1 stays selected, or members[0] is raised to 1 when none
// does, and every other member is zeroed. Constraint caches are recomputed
// so invariant 3 holds the moment the selection exists. Preprocessing is
// responsible for disabling def and setting members' sense to Selection.
func (c *Container) AddSelection(members []VarID, def ConstraintID) SelectionID {
	selected := members[0]
	for _, m := range members {
		if c.variables[m].value == 1 {
			selected = m
			break
		}
	}

	id := SelectionID(len(c.selections))
	c.selections = append(c.selections, SelectionGroup{
		id:                 id,
		members:            append([]VarID(nil), members...),
		selected:           selected,
		definingConstraint: def,
	})

	changed := false
	for _, m := range members {
		v := &c.variables[m]
		value := 0
		if m == selected {
			value = 1
		}
		if v.fixed || v.value == value {
			continue
		}
		v.value = value
		v.refreshBoundMargins()
		changed = true
	}
	if changed {
		c.RecomputeAll()
	}

	c.built = false
	return id
}

// ApplyMove mutates the underlying variable values and constraint caches to
// reflect move, then refreshes dependent variables. Callers are expected to
// have already evaluated the move (pkg/evaluator) before applying it.
func (c *Container) ApplyMove(move *Move) {
	for _, a := range move.Alterations {
		v := &c.variables[a.Var]
		if v.fixed {
			continue
		}
		v.value = a.Value
		v.refreshBoundMargins()
	}
	for _, cid := range move.RelatedConstraints {
		cons := &c.constraints[cid]
		e := &c.expressions[cons.expr]
		value := e.Recompute(c)
		cons.recomputeFromValue(value)
	}
	c.updateDependentVariables()
	c.updateSelections(move)
}

// RecomputeAll recomputes every enabled constraint and expression from
// scratch, used for initial state setup and verification.
func (c *Container) RecomputeAll() {
	for i := range c.expressions {
		c.expressions[i].Recompute(c)
	}
	for i := range c.constraints {
		if !c.constraints[i].enabled {
			continue
		}
		value := c.expressions[c.constraints[i].expr].value
		c.constraints[i].recomputeFromValue(value)
	}
}

// NormalizeSelections re-establishes invariant 3 after a bulk assignment
// (initial-state perturbation, a committed Lagrangian primal) that set
// member values independently: for every selection, the first member
// holding value 1 becomes the selected one and every other member is
// zeroed; if no member holds 1, the bookkeeping selected member is raised
// back to 1. Callers recompute constraint caches afterward (RecomputeAll).
func (c *Container) NormalizeSelections() {
	for i := range c.selections {
		sel := &c.selections[i]
		winner := NoVar
		for _, m := range sel.members {
			if c.variables[m].value == 1 {
				winner = m
				break
			}
		}
		if winner == NoVar {
			winner = sel.selected
		}
		sel.selected = winner
		for _, m := range sel.members {
			v := &c.variables[m]
			value := 0
			if m == winner {
				value = 1
			}
			if v.fixed || v.value == value {
				continue
			}
			v.value = value
			v.refreshBoundMargins()
		}
	}
}

// updateDependentVariables enforces invariant 4: every dependent variable's
// value equals its defining expression's value.
func (c *Container) updateDependentVariables() {
	for i := range c.variables {
		v := &c.variables[i]
		if !v.sense.IsDependent() || v.definingExpr == NoExpr {
			continue
		}
		e := &c.expressions[v.definingExpr]
		e.Recompute(c)
		v.value = int(e.value + 0.5)
		v.refreshBoundMargins()
	}
}

// updateSelections enforces invariant 3 for every selection touched by
// move: exactly one member has value 1.
func (c *Container) updateSelections(move *Move) {
	for i := range c.selections {
		sel := &c.selections[i]
		touched := false
		for _, m := range sel.members {
			if move.Touches(m) {
				touched = true
				break
			}
		}
		if !touched {
			continue
		}
		for _, m := range sel.members {
			if c.variables[m].value == 1 {
				sel.selected = m
				break
			}
		}
	}
}

// sortedUnique sorts ids in place and returns its distinct values.
func sortedUnique(ids []ConstraintID) []ConstraintID {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := ids[:0]
	var last ConstraintID = -1
	first := true
	for _, id := range ids {
		if first || id != last {
			out = append(out, id)
			last = id
			first = false
		}
	}
	return out
}
