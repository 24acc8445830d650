// Package preprocess implements the presolve pipeline that runs once
// before search: bound tightening, variable fixing, duplicate/redundant
// constraint removal, implicit-equality extraction, selection extraction,
// and dependent-variable extraction.
package preprocess

import (
	"github.com/sirupsen/logrus"

	"github.com/katalvaran/tabuforge/pkg/model"
)

// SelectionStrategy chooses the order selection-extraction considers
// candidate Σxᵢ=1 constraints in.
type SelectionStrategy int

const (
	// DefinedOrder extracts candidates in declaration order.
	DefinedOrder SelectionStrategy = iota
	// AscendingSize extracts the smallest candidates first.
	AscendingSize
	// DescendingSize extracts the largest candidates first.
	DescendingSize
	// Independent extracts only candidates that share no member variable
	// with any other candidate, in declaration order.
	Independent
)

func (s SelectionStrategy) String() string {
	switch s {
	case AscendingSize:
		return "AscendingSize"
	case DescendingSize:
		return "DescendingSize"
	case Independent:
		return "Independent"
	default:
		return "DefinedOrder"
	}
}

// Options configures the preprocessing driver.
type Options struct {
	SelectionStrategy SelectionStrategy
	// MaxRounds bounds the fixed-point driver loop (0 uses a sane default).
	MaxRounds int
	Logger    *logrus.Logger
}

// PassReport records how many structural changes a single pass made in a
// single round.
type PassReport struct {
	Name    string
	Round   int
	Changed int
}

// Result summarizes everything the pipeline did, for status.json and for
// DESIGN-level testable properties (scenario 5's "newly_disabled").
type Result struct {
	Passes                       []PassReport
	Rounds                       int
	TotalFixed                   int
	TotalConstraintsDisabled     int
	SelectionsExtracted          int
	DependentVariablesExtracted  int
}

const defaultMaxRounds = 25

// Run drives the eight-pass pipeline (§4.D) to a fixed point: each round
// runs every pass once, in order, and the driver stops as soon as a round
// makes no further change (or MaxRounds is hit). The Builder is rebuilt
// once per round so every pass sees derived indices consistent with the
// previous round's structural changes.
func Run(c *model.Container, opts Options) (*Result, error) {
	maxRounds := opts.MaxRounds
	if maxRounds <= 0 {
		maxRounds = defaultMaxRounds
	}
	log := opts.Logger
	result := &Result{}

	builder := model.NewBuilder(c)
	if err := builder.Build(); err != nil {
		return nil, err
	}

	for round := 0; round < maxRounds; round++ {
		roundChanged := false

		runPass := func(name string, fn func() (int, error)) error {
			n, err := fn()
			if err != nil {
				return err
			}
			result.Passes = append(result.Passes, PassReport{Name: name, Round: round, Changed: n})
			if n > 0 {
				roundChanged = true
			}
			if log != nil && n > 0 {
				log.WithField("pass", name).WithField("round", round).Infof("preprocessing: %d changes", n)
			}
			return nil
		}

		if err := runPass("implicit_fixing", func() (int, error) { return implicitFixing(c) }); err != nil {
			return result, err
		}
		if err := runPass("independent_variable_fixing", func() (int, error) { return independentVariableFixing(c) }); err != nil {
			return result, err
		}
		if err := runPass("bound_tightening", func() (int, error) { return boundTightening(c) }); err != nil {
			return result, err
		}
		if err := runPass("duplicate_constraint_removal", func() (int, error) { return duplicateConstraintRemoval(c) }); err != nil {
			return result, err
		}
		if err := runPass("implicit_equality_extraction", func() (int, error) { return implicitEqualityExtraction(c) }); err != nil {
			return result, err
		}
		if err := runPass("redundant_set_variable_fixing", func() (int, error) { return redundantSetVariableFixing(c) }); err != nil {
			return result, err
		}

		selN := 0
		if err := runPass("selection_extraction", func() (int, error) {
			n, err := selectionExtraction(c, opts.SelectionStrategy)
			selN = n
			return n, err
		}); err != nil {
			return result, err
		}
		result.SelectionsExtracted += selN

		depN := 0
		if err := runPass("dependent_variable_extraction", func() (int, error) {
			n, err := dependentVariableExtraction(c)
			depN = n
			return n, err
		}); err != nil {
			return result, err
		}
		result.DependentVariablesExtracted += depN

		if err := builder.Build(); err != nil {
			return result, err
		}
		result.Rounds = round + 1

		if !roundChanged {
			break
		}
	}

	for _, p := range result.Passes {
		switch p.Name {
		case "implicit_fixing", "independent_variable_fixing":
			result.TotalFixed += p.Changed
		case "bound_tightening", "duplicate_constraint_removal", "implicit_equality_extraction", "redundant_set_variable_fixing":
			result.TotalConstraintsDisabled += p.Changed
		}
	}

	return result, nil
}
