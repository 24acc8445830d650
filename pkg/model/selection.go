package model

// Selection groups binary variables constrained to sum to 1 (§3). Extracted
// by the preprocessing pipeline from an equality constraint of the form
// Σ xᵢ = 1, which is disabled once extracted.
type SelectionGroup struct {
	id SelectionID

	members            []VarID
	selected           VarID
	definingConstraint ConstraintID
}

// ID returns the selection's stable handle.
func (s *SelectionGroup) ID() SelectionID { return s.id }

// Members returns the ordered list of member variables.
func (s *SelectionGroup) Members() []VarID { return s.members }

// Selected returns the currently selected member variable.
func (s *SelectionGroup) Selected() VarID { return s.selected }

// SetSelected records which member currently holds value 1. Callers must
// keep this consistent with the underlying variable values (invariant 3);
// it does not itself mutate variable values.
func (s *SelectionGroup) SetSelected(v VarID) { s.selected = v }

// DefiningConstraint returns the (disabled) constraint this selection was
// extracted from.
func (s *SelectionGroup) DefiningConstraint() ConstraintID { return s.definingConstraint }
