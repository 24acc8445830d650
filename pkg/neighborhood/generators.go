package neighborhood

import (
	"sort"

	"github.com/katalvaran/tabuforge/pkg/model"
)

// relatedConstraints unions the enabled constraints every altered variable
// has a nonzero sensitivity in, sorted and deduplicated — the set
// Container.ApplyMove recomputes after applying a move.
func relatedConstraints(c *model.Container, alterations ...model.Alteration) []model.ConstraintID {
	var ids []model.ConstraintID
	for _, a := range alterations {
		for _, s := range c.Variable(a.Var).Sensitivities {
			ids = append(ids, s.Constraint)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return dedupeConstraints(ids)
}

func newMove(c *model.Container, sense model.MoveSense, alterations ...model.Alteration) *model.Move {
	m := model.NewMove(sense, alterations...)
	m.RelatedConstraints = relatedConstraints(c, alterations...)
	for _, a := range alterations {
		m.Hash ^= c.Variable(a.Var).Hash()
	}
	return m
}

// BinaryFlipGenerator toggles every unfixed binary-sense variable.
type BinaryFlipGenerator struct{}

func (BinaryFlipGenerator) Name() string { return "binary_flip" }

func (BinaryFlipGenerator) Generate(c *model.Container) []*model.Move {
	var moves []*model.Move
	for _, vid := range c.MutableVariablesBySense(model.Binary) {
		v := c.Variable(vid)
		moves = append(moves, newMove(c, model.MoveBinary, model.Alteration{Var: vid, Value: 1 - v.Value()}))
	}
	return moves
}

// IntegerStepGenerator emits ±1 (and, when the variable's bound margin and
// MaxStep allow, wider ±k) moves for every unfixed integer-sense variable.
type IntegerStepGenerator struct {
	// MaxStep bounds how far a single move may shift a variable; 0 means 1.
	MaxStep int
}

func (IntegerStepGenerator) Name() string { return "integer_step" }

func (g IntegerStepGenerator) Generate(c *model.Container) []*model.Move {
	maxStep := g.MaxStep
	if maxStep <= 0 {
		maxStep = 1
	}
	var moves []*model.Move
	for _, vid := range c.MutableVariablesBySense(model.Integer) {
		v := c.Variable(vid)
		lo, hi := v.Bounds()
		cur := v.Value()
		for step := 1; step <= maxStep; step++ {
			if v.HasUpperBoundMargin() && cur+step <= hi {
				moves = append(moves, newMove(c, model.MoveInteger, model.Alteration{Var: vid, Value: cur + step}))
			}
			if v.HasLowerBoundMargin() && cur-step >= lo {
				moves = append(moves, newMove(c, model.MoveInteger, model.Alteration{Var: vid, Value: cur - step}))
			}
		}
	}
	return moves
}

// SelectionGenerator moves the currently selected member of every Selection
// to each other member in turn.
type SelectionGenerator struct{}

func (SelectionGenerator) Name() string { return "selection" }

func (SelectionGenerator) Generate(c *model.Container) []*model.Move {
	var moves []*model.Move
	for i := 0; i < c.NumSelections(); i++ {
		sel := c.Selection(model.SelectionID(i))
		selected := sel.Selected()
		for _, z := range sel.Members() {
			if z == selected {
				continue
			}
			moves = append(moves, newMove(c, model.MoveSelection,
				model.Alteration{Var: selected, Value: 0},
				model.Alteration{Var: z, Value: 1},
			))
		}
	}
	return moves
}

// ConstraintEdgeGenerator moves the two variables of a classified
// Aggregation/Precedence/VariableBound constraint together by the same
// signed step so that the constraint's value is unchanged, sliding along
// its feasible edge rather than violating it. All three types are
// recognized by the builder only as unit-coefficient two-variable
// constraints, so one generator covers them; SoftSelection and
// TrinomialExclusiveNor from the named pattern list have no corresponding
// ConstraintType in this classifier and are not generated (see DESIGN.md).
type ConstraintEdgeGenerator struct{}

func (ConstraintEdgeGenerator) Name() string { return "constraint_edge" }

func (ConstraintEdgeGenerator) Generate(c *model.Container) []*model.Move {
	var moves []*model.Move
	for _, ctype := range []model.ConstraintType{model.Aggregation, model.Precedence, model.VariableBound} {
		for _, cid := range c.EnabledConstraintsByType(ctype) {
			cons := c.Constraint(cid)
			terms := c.Expression(cons.Expression()).Terms()
			if len(terms) != 2 {
				continue
			}
			a, b := c.Variable(terms[0].Var), c.Variable(terms[1].Var)
			if a.IsFixed() || b.IsFixed() {
				continue
			}
			for _, step := range [2]int{1, -1} {
				av, bv := a.Value()+step, b.Value()+step
				if !withinBounds(a, av) || !withinBounds(b, bv) {
					continue
				}
				sense := model.MoveAggregation
				switch ctype {
				case model.Precedence:
					sense = model.MovePrecedence
				case model.VariableBound:
					sense = model.MoveVariableBound
				}
				moves = append(moves, newMove(c, sense,
					model.Alteration{Var: terms[0].Var, Value: av},
					model.Alteration{Var: terms[1].Var, Value: bv},
				))
			}
		}
	}
	return moves
}

func withinBounds(v *model.Variable, value int) bool {
	lo, hi := v.Bounds()
	return value >= lo && value <= hi
}

// TwoFlipGenerator flips both members of every registered flippable pair
// simultaneously. Pairs are supplied by the caller, typically computed
// once via preprocess.ExtractFlippablePairs.
type TwoFlipGenerator struct {
	Pairs []Pair
}

// Pair is a two-variable flip target, decoupled from
// preprocess.FlippablePair so this package does not import pkg/preprocess.
type Pair struct {
	A, B model.VarID
}

func (TwoFlipGenerator) Name() string { return "two_flip" }

func (g TwoFlipGenerator) Generate(c *model.Container) []*model.Move {
	var moves []*model.Move
	for _, p := range g.Pairs {
		a, b := c.Variable(p.A), c.Variable(p.B)
		if a.IsFixed() || b.IsFixed() {
			continue
		}
		moves = append(moves, newMove(c, model.MoveTwoFlip,
			model.Alteration{Var: p.A, Value: 1 - a.Value()},
			model.Alteration{Var: p.B, Value: 1 - b.Value()},
		))
	}
	return moves
}
