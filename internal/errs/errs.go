// Package errs defines the located, typed error taxonomy used across
// TabuForge: input-format errors, model-validity errors, preprocessing
// contradictions, option errors, and the boundary between those (fatal)
// and runtime termination reasons (not errors at all).
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a fatal error by the subsystem that raised it.
type Kind int

const (
	// InputFormat covers malformed MPS sections, unknown bound types,
	// duplicate row names, and references to undeclared variables.
	InputFormat Kind = iota
	// ModelValidity covers structurally invalid models: no decision
	// variables, no objective and no constraints, an infeasible initial
	// assignment with correction disabled.
	ModelValidity
	// PreprocessContradiction covers presolve deriving lo > hi or a fixed
	// variable disagreeing with an implied equality.
	PreprocessContradiction
	// Option covers mutually exclusive flags and out-of-range option
	// values.
	Option
)

func (k Kind) String() string {
	switch k {
	case InputFormat:
		return "input-format"
	case ModelValidity:
		return "model-validity"
	case PreprocessContradiction:
		return "preprocessing-contradiction"
	case Option:
		return "option"
	default:
		return "unknown"
	}
}

// Located is a fatal error carrying subsystem classification plus
// human-readable location metadata: the originating source (file name,
// preprocessing pass name, or constraint name), as required by §7.
type Located struct {
	Kind     Kind
	Location string
	cause    error
}

func (e *Located) Error() string {
	if e.Location == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.cause)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Kind, e.Location, e.cause)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Located) Unwrap() error { return e.cause }

// New constructs a Located error of the given kind with a formatted message
// and no location context.
func New(kind Kind, format string, args ...interface{}) *Located {
	return &Located{Kind: kind, cause: errors.Errorf(format, args...)}
}

// At constructs a Located error with explicit location context (e.g. an MPS
// file:line, a preprocessing pass name, or a constraint name).
func At(kind Kind, location string, format string, args ...interface{}) *Located {
	return &Located{Kind: kind, Location: location, cause: errors.Errorf(format, args...)}
}

// Wrap attaches kind and location context to an existing error, preserving
// it as the cause for errors.Unwrap/errors.As.
func Wrap(kind Kind, location string, cause error) *Located {
	if cause == nil {
		return nil
	}
	return &Located{Kind: kind, Location: location, cause: errors.WithStack(cause)}
}

// Is reports whether err is a Located error of the given kind.
func Is(err error, kind Kind) bool {
	var located *Located
	if !errors.As(err, &located) {
		return false
	}
	return located.Kind == kind
}
