// Package lagrange implements the optional Lagrangian-dual warm-up: a
// projected-subgradient ascent on per-constraint multipliers that produces
// a primal starting point and a set of dual-derived penalty hints for the
// outer solver (§4.J).
package lagrange

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/katalvaran/tabuforge/pkg/evaluator"
	"github.com/katalvaran/tabuforge/pkg/incumbent"
	"github.com/katalvaran/tabuforge/pkg/model"
	"github.com/katalvaran/tabuforge/pkg/options"
	"github.com/katalvaran/tabuforge/pkg/valuestore"
)

// TerminationStatus names why Run returned.
type TerminationStatus int

const (
	IterationOver TerminationStatus = iota
	TimeOver
	ReachTarget
	Converge
	Cancelled
)

func (s TerminationStatus) String() string {
	switch s {
	case TimeOver:
		return "TimeOver"
	case ReachTarget:
		return "ReachTarget"
	case Converge:
		return "Converge"
	case Cancelled:
		return "Cancelled"
	default:
		return "IterationOver"
	}
}

// Result is the warm-up's output: the best Lagrangian bound found, the
// primal assignment that produced it, the matching dual multipliers
// (usable as per-constraint global-penalty hints), and the incumbent
// holder updated along the way.
type Result struct {
	TerminationStatus TerminationStatus
	Iterations        int

	Lagrangian     float64
	PrimalValues   []int // indexed by model.VarID
	DualValues     *valuestore.Array[float64]
	IncumbentFinal *incumbent.Holder
}

// Config bundles Run's tuning knobs, narrowed from options.LagrangeDual.
type Config struct {
	Opt                  options.LagrangeDual
	TargetObjectiveValue float64
	Logger               *logrus.Logger
}

// Run drives the subgradient loop against c's current state, grounded on
// lagrange_dual.h's bound_dual / primal-reconstruction / step-size-extend
// iteration (see DESIGN.md).
//
// The model's internal sense is always minimization (maximized problems are
// represented as minimizing the negated objective, §3), so the primal
// reconstruction step never needs the reference implementation's explicit
// is_minimization branch: a positive Lagrangian coefficient always sends the
// variable to its lower bound, a negative one to its upper bound.
func Run(ctx context.Context, c *model.Container, cfg Config) *Result {
	opt := cfg.Opt
	deadline := time.Now().Add(time.Duration(opt.TimeMaxSeconds * float64(time.Second)))

	hold := incumbent.New()
	hold.ResetLocalAugmentedIncumbent()

	score := evaluator.FromScratch(c)
	hold.TryUpdate(score, model.Epsilon)

	duals := valuestore.New[float64](max1(c.NumConstraints()))
	for _, cid := range c.EnabledConstraints() {
		boundDual(c, cid, duals)
	}

	bestLagrangian := math.Inf(-1)
	bestPrimal := snapshotValues(c)
	bestDuals := cloneDuals(duals)

	stepSize := 1.0 / float64(max1(c.NumVariables()))
	queue := newFixedSizeQueue(opt.QueueSize)

	status := IterationOver
	iteration := 0

	for ; ; iteration++ {
		select {
		case <-ctx.Done():
			status = Cancelled
			goto finish
		default:
		}
		if opt.TimeMaxSeconds > 0 && time.Now().After(deadline) {
			status = TimeOver
			goto finish
		}
		if opt.IterationMax > 0 && iteration >= opt.IterationMax {
			status = IterationOver
			goto finish
		}
		if feasible, ok := hold.Feasible(); ok && feasible <= cfg.TargetObjectiveValue {
			status = ReachTarget
			goto finish
		}

		ascendDuals(c, duals, stepSize)
		boundDuals(c, duals)
		reconstructPrimal(c, duals)

		score = evaluator.FromScratch(c)
		hold.TryUpdate(score, model.Epsilon)

		lagrangian := computeLagrangian(c, duals, score.ObjectiveAfter)
		if lagrangian > bestLagrangian {
			bestLagrangian = lagrangian
			bestPrimal = snapshotValues(c)
			bestDuals = cloneDuals(duals)
		}

		queue.push(lagrangian)
		if queue.size() > 0 {
			avg, mx := queue.average(), queue.max()
			if lagrangian > avg {
				stepSize *= opt.StepSizeExtendRate
			}
			if lagrangian < mx {
				stepSize *= opt.StepSizeReduceRate
			}
		}

		if cfg.Logger != nil && opt.LogInterval > 0 && iteration%opt.LogInterval == 0 {
			cfg.Logger.WithFields(logrus.Fields{
				"iteration":  iteration,
				"lagrangian": lagrangian,
				"step_size":  stepSize,
			}).Info("lagrange dual progress")
		}

		if queue.size() == opt.QueueSize {
			avg := queue.average()
			if math.Abs(lagrangian-avg) < math.Max(1.0, math.Abs(avg))*opt.Tolerance {
				status = Converge
				goto finish
			}
		}
	}

finish:
	return &Result{
		TerminationStatus: status,
		Iterations:        iteration,
		Lagrangian:        bestLagrangian,
		PrimalValues:      bestPrimal,
		DualValues:        bestDuals,
		IncumbentFinal:    hold,
	}
}

// boundDual clips a single constraint's dual to the sign its sense permits:
// Less requires λ >= 0, Greater requires λ <= 0, Equal is unrestricted.
func boundDual(c *model.Container, cid model.ConstraintID, duals *valuestore.Array[float64]) {
	cons := c.Constraint(cid)
	v := duals.Flat(int(cid))
	switch cons.Sense() {
	case model.Less:
		if v < 0 {
			duals.SetFlat(int(cid), 0)
		}
	case model.Greater:
		if v > 0 {
			duals.SetFlat(int(cid), 0)
		}
	}
}

func boundDuals(c *model.Container, duals *valuestore.Array[float64]) {
	for _, cid := range c.EnabledConstraints() {
		boundDual(c, cid, duals)
	}
}

// ascendDuals applies the subgradient step λ ← λ + step·constraint_value
// to every enabled constraint's multiplier.
func ascendDuals(c *model.Container, duals *valuestore.Array[float64], stepSize float64) {
	for _, cid := range c.EnabledConstraints() {
		cons := c.Constraint(cid)
		idx := int(cid)
		duals.SetFlat(idx, duals.Flat(idx)+stepSize*cons.Value())
	}
}

// reconstructPrimal sets every mutable variable to the bound that minimizes
// its Lagrangian coefficient: objective_sensitivity plus the dual-weighted
// sum of its constraint sensitivities. Selection members are not chosen
// independently — each selection grants its single 1 to the member with the
// lowest Lagrangian coefficient, so the one-hot property (invariant 3)
// survives the reconstruction.
func reconstructPrimal(c *model.Container, duals *valuestore.Array[float64]) {
	lagrangianCoefficient := func(vid model.VarID) float64 {
		v := c.Variable(vid)
		coefficient := v.ObjectiveSensitivity()
		for _, s := range v.Sensitivities {
			coefficient += duals.Flat(int(s.Constraint)) * s.Coefficient
		}
		return coefficient
	}

	var alterations []model.Alteration
	for _, vid := range c.MutableVariables() {
		v := c.Variable(vid)
		if v.Sense() == model.Selection {
			continue
		}
		lo, hi := v.Bounds()
		target := hi
		if lagrangianCoefficient(vid) > 0 {
			target = lo
		}
		if target != v.Value() {
			alterations = append(alterations, model.Alteration{Var: vid, Value: target})
		}
	}

	for i := 0; i < c.NumSelections(); i++ {
		sel := c.Selection(model.SelectionID(i))
		members := sel.Members()
		if len(members) == 0 {
			continue
		}
		best := members[0]
		bestCoefficient := lagrangianCoefficient(best)
		for _, m := range members[1:] {
			if coefficient := lagrangianCoefficient(m); coefficient < bestCoefficient {
				best, bestCoefficient = m, coefficient
			}
		}
		for _, m := range members {
			target := 0
			if m == best {
				target = 1
			}
			if c.Variable(m).Value() != target {
				alterations = append(alterations, model.Alteration{Var: m, Value: target})
			}
		}
	}

	if len(alterations) == 0 {
		return
	}
	move := model.NewMove(model.MoveGeneral, alterations...)
	c.ApplyMove(move)
}

// computeLagrangian evaluates objective + Σ λ_c · constraint_value_c over
// every enabled constraint, in the model's internal always-minimizing
// sense.
func computeLagrangian(c *model.Container, duals *valuestore.Array[float64], objective float64) float64 {
	total := objective
	for _, cid := range c.EnabledConstraints() {
		cons := c.Constraint(cid)
		total += duals.Flat(int(cid)) * cons.Value()
	}
	return total
}

func snapshotValues(c *model.Container) []int {
	out := make([]int, c.NumVariables())
	for _, vid := range c.AllVariables() {
		out[vid] = c.VariableValue(vid)
	}
	return out
}

func cloneDuals(duals *valuestore.Array[float64]) *valuestore.Array[float64] {
	clone := valuestore.New[float64](max1(duals.Len()))
	for i := 0; i < duals.Len(); i++ {
		clone.SetFlat(i, duals.Flat(i))
	}
	return clone
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
