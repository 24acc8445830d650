// Package model implements the data model of §3: variables, expressions,
// constraints, selections, the objective, and moves, plus the model
// container and builder of §4.B/§4.C.
//
// Entities live in three typed arenas owned by the Container (DESIGN NOTES
// §9's "pointer graphs → arena + indices"): VarID, ExprID, ConstraintID, and
// SelectionID are stable non-owning handles into those arenas, so
// cross-references (variable → defining expression, constraint → variables)
// never form an ownership cycle even though the logical graph is cyclic.
package model

import "math"

// VarID is a stable handle to a Variable in the Container's arena.
type VarID int

// ExprID is a stable handle to an Expression in the Container's arena.
type ExprID int

// ConstraintID is a stable handle to a Constraint in the Container's arena.
type ConstraintID int

// SelectionID is a stable handle to a Selection in the Container's arena.
type SelectionID int

// NoVar, NoExpr, NoConstraint, NoSelection are the "absent handle" sentinels,
// used in place of a nullable pointer (DESIGN NOTES §9's "replace HUGE_VAL
// sentinels with explicit, well-defined sentinels, documented once").
const (
	NoVar        VarID        = -1
	NoExpr       ExprID       = -1
	NoConstraint ConstraintID = -1
	NoSelection  SelectionID  = -1
)

// Unbounded sentinels for half-infinite integer variable bounds. Chosen far
// enough from any realistic MPS coefficient range that arithmetic on them
// cannot wrap, while still being ordinary, comparable ints (no optional
// wrapper needed at the hot evaluation path).
const (
	NegInf = math.MinInt32 / 2
	PosInf = math.MaxInt32 / 2
)

// Epsilon is the floating-point tolerance used throughout feasibility and
// improvement comparisons (§3 invariant 2, §4.F, §8 property 5).
const Epsilon = 1e-6
