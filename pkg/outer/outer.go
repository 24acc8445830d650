// Package outer implements the penalty/Lagrangian controller: the
// top-level repeat-loop that calls the Lagrangian dual warm-up and
// deterministic local search once, then repeatedly invokes tabu search with
// updated penalties, memory, and a perturbed starting point, until the
// global time/iteration budget is exhausted or the target objective is
// reached (§4.K).
package outer

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/katalvaran/tabuforge/pkg/evaluator"
	"github.com/katalvaran/tabuforge/pkg/incumbent"
	"github.com/katalvaran/tabuforge/pkg/lagrange"
	"github.com/katalvaran/tabuforge/pkg/localsearch"
	"github.com/katalvaran/tabuforge/pkg/memory"
	"github.com/katalvaran/tabuforge/pkg/model"
	"github.com/katalvaran/tabuforge/pkg/neighborhood"
	"github.com/katalvaran/tabuforge/pkg/options"
	"github.com/katalvaran/tabuforge/pkg/tabusearch"
)

// TerminationReason names why Solve returned, merged across the outer
// loop's own budget checks and whatever the last tabu-search invocation
// reported (§7: runtime budget exhaustion is not an error).
type TerminationReason int

const (
	// IterationOver means the outer iteration budget (options.General.
	// IterationMax, counted in cumulative tabu-search iterations) was
	// exhausted.
	IterationOver TerminationReason = iota
	// TimeOver means the outer wall-clock budget was exhausted.
	TimeOver
	// TargetReached means the feasible incumbent crossed
	// options.General.TargetObjectiveValue.
	TargetReached
	// Cancelled means the caller's context was done.
	Cancelled
	// NoMoves means a tabu-search round produced no candidate moves at
	// all (every variable fixed, or screening filtered everything);
	// perturbation cannot help, so the session ends.
	NoMoves
)

func (r TerminationReason) String() string {
	switch r {
	case TimeOver:
		return "TimeOver"
	case TargetReached:
		return "TargetReached"
	case Cancelled:
		return "Cancelled"
	case NoMoves:
		return "NoMoves"
	default:
		return "IterationOver"
	}
}

// minPenalty floors every penalty coefficient so repeated relaxing never
// drives a constraint's penalty to exactly zero, which would make it
// permanently invisible to the augmented objective even if later violated
// again.
const minPenalty = 1e-6

// RoundSummary records one outer-loop iteration's tabu-search invocation,
// enough to reconstruct status.json's per-round history.
type RoundSummary struct {
	Round                   int
	TabuReason              tabusearch.StopReason
	IterationsRun           int64
	GlobalAugmentedImproved bool
	FeasibleImproved        bool
}

// Archive receives feasible solutions found during local search and tabu
// search, satisfying tabusearch.Archive.
type Archive = tabusearch.Archive

// Config bundles Solve's dependencies: the full option bundle (the outer
// loop is the one component that needs every section), the neighborhood
// shared across every inner invocation, and the shared RNG driving
// shuffling and perturbation.
type Config struct {
	Opt          *options.Options
	Neighborhood *neighborhood.Neighborhood
	Archive      Archive
	Logger       *logrus.Logger
	Rng          *rand.Rand

	// ElapsedAtStart is added to the reported wall time, for the CLI's
	// --include-mps-loading-time flag (mirrors mps_solver.h's optional
	// TimeKeeper argument to solver.setup).
	ElapsedAtStart time.Duration
}

// Result mirrors mps_solver.h's solve() output: the incumbent holder, the
// warm-up results (nil if disabled), the round-by-round history, and the
// reason the whole session stopped.
type Result struct {
	TerminationReason TerminationReason
	Rounds            []RoundSummary

	LagrangeResult    *lagrange.Result
	LocalSearchResult *tabusearch.Result

	FinalScore *evaluator.SolutionScore
	Incumbent  *incumbent.Holder

	WallTime time.Duration
}

// Solve drives c through the full penalty-controller algorithm of §4.K
// against its current (possibly preprocessed, possibly CLI-overridden)
// state.
func Solve(ctx context.Context, c *model.Container, cfg Config) *Result {
	opt := cfg.Opt
	start := time.Now()

	var deadline time.Time
	hasDeadline := opt.General.TimeMaxSeconds > 0
	if hasDeadline {
		budget := opt.General.TimeMaxSeconds - opt.General.TimeOffsetSeconds
		if budget < 0 {
			budget = 0
		}
		deadline = start.Add(time.Duration(budget * float64(time.Second)))
	}

	hold := incumbent.New()
	mem := memory.New(c)

	initPenalties(c, opt.Penalty.InitialPenaltyCoefficient)

	res := &Result{Incumbent: hold, FinalScore: evaluator.FromScratch(c)}
	hold.TryUpdate(res.FinalScore, model.Epsilon)

	if opt.General.IsEnabledLagrangeDual {
		lr := lagrange.Run(ctx, c, lagrange.Config{
			Opt:                  opt.LagrangeDual,
			TargetObjectiveValue: opt.General.TargetObjectiveValue,
			Logger:               cfg.Logger,
		})
		res.LagrangeResult = lr
		applyValues(c, lr.PrimalValues)
		seedPenaltiesFromDual(c, lr)
		res.FinalScore = evaluator.FromScratch(c)
		hold.TryUpdate(res.FinalScore, model.Epsilon)
		if cfg.Logger != nil {
			cfg.Logger.WithField("lagrangian", lr.Lagrangian).Info("lagrange dual warm-up finished")
		}
	}

	if opt.General.IsEnabledLocalSearch {
		lsr := localsearch.Run(ctx, c, localsearch.Config{
			Opt:                        opt.LocalSearch,
			Neighborhood:               cfg.Neighborhood,
			Memory:                     mem,
			Incumbent:                  hold,
			Archive:                    cfg.Archive,
			Rng:                        cfg.Rng,
			Linear:                     true,
			ParallelNeighborhoodUpdate: opt.Parallel.IsEnabledParallelNeighborhoodUpdate,
			TargetObjectiveValue:       opt.General.TargetObjectiveValue,
			Logger:                     cfg.Logger,
		})
		res.LocalSearchResult = lsr
		res.FinalScore = lsr.FinalScore
		mem.Reset()
	}

	var startIteration int64
	iterationMax := opt.TabuSearch.IterationMax
	var resetCount int
	round := 0

loop:
	for {
		round++

		select {
		case <-ctx.Done():
			res.TerminationReason = Cancelled
			break loop
		default:
		}

		if opt.General.IterationMax > 0 && startIteration >= int64(opt.General.IterationMax) {
			res.TerminationReason = IterationOver
			break loop
		}
		if feasible, ok := hold.Feasible(); ok && feasible <= opt.General.TargetObjectiveValue {
			res.TerminationReason = TargetReached
			break loop
		}

		roundOpt := opt.TabuSearch
		roundOpt.IterationMax = iterationMax
		if hasDeadline {
			remaining := time.Until(deadline).Seconds()
			if remaining <= 0 {
				res.TerminationReason = TimeOver
				break loop
			}
			if roundOpt.TimeMaxSeconds <= 0 || remaining < roundOpt.TimeMaxSeconds {
				roundOpt.TimeMaxSeconds = remaining
			}
		}

		hold.ResetLocalAugmentedIncumbent()
		tr := tabusearch.Run(ctx, c, tabusearch.Config{
			Opt:                        roundOpt,
			Neighborhood:               cfg.Neighborhood,
			Memory:                     mem,
			Incumbent:                  hold,
			Archive:                    cfg.Archive,
			Rng:                        cfg.Rng,
			Logger:                     cfg.Logger,
			StartIteration:             startIteration,
			Linear:                     true,
			ParallelNeighborhoodUpdate: opt.Parallel.IsEnabledParallelNeighborhoodUpdate,
			TargetObjectiveValue:       opt.General.TargetObjectiveValue,
		})

		startIteration = tr.LastIteration
		res.FinalScore = tr.FinalScore
		res.Rounds = append(res.Rounds, RoundSummary{
			Round:                   round,
			TabuReason:              tr.Reason,
			IterationsRun:           tr.IterationsRun,
			GlobalAugmentedImproved: tr.GlobalAugmentedImproved,
			FeasibleImproved:        tr.FeasibleImproved,
		})

		if cfg.Logger != nil {
			cfg.Logger.WithField("round", round).WithField("reason", tr.Reason).
				Info("outer solver: tabu-search round finished")
		}

		switch tr.Reason {
		case tabusearch.Cancelled:
			res.TerminationReason = Cancelled
			break loop
		case tabusearch.TargetReached:
			res.TerminationReason = TargetReached
			break loop
		case tabusearch.TimeOver:
			if hasDeadline {
				res.TerminationReason = TimeOver
				break loop
			}
		case tabusearch.NoMoves:
			// A round that cannot move at all cannot be helped by
			// perturbation either: perturb only touches mutable variables,
			// and a zero-candidate neighborhood means there are none worth
			// touching (§8's NO_MOVE boundary).
			res.TerminationReason = NoMoves
			break loop
		}

		updatePenalties(c, mem, opt.Penalty, tr.FinalScore.IsFeasible)

		if tr.GlobalAugmentedImproved {
			resetCount = 0
		} else {
			resetCount++
		}
		if opt.Penalty.ResetCountThreshold > 0 && resetCount > opt.Penalty.ResetCountThreshold {
			initPenalties(c, opt.Penalty.InitialPenaltyCoefficient)
			resetCount = 0
		}

		perturb(c, cfg.Rng, opt.TabuSearch)
		mem.Reset()
		iterationMax = tabusearch.NextIterationMax(iterationMax, tr.ImprovedLate, opt.TabuSearch)
	}

	res.WallTime = time.Since(start) + cfg.ElapsedAtStart
	return res
}

// initPenalties sets every enabled constraint's three penalty coefficients
// to value, the outer loop's starting point and its stagnation-triggered
// reset target.
func initPenalties(c *model.Container, value float64) {
	if value < minPenalty {
		value = minPenalty
	}
	for _, cid := range c.EnabledConstraints() {
		c.Constraint(cid).SetPenaltyCoefficients(value, value, value)
	}
}

// updatePenalties implements §4.K's penalty-update branch: when the round
// ended on a feasible incumbent, every penalty relaxes uniformly (the
// solver can afford to de-emphasize feasibility since it currently has a
// feasible solution in hand); otherwise every still-violated constraint's
// global penalty tightens by a factor proportional to its current
// violation and how persistently it has been violated across the run, and
// every constraint's local penalties are reset to the (possibly just
// updated) global value so the next round's local-augmented objective
// starts in sync with global.
//
// penalty_coefficient_updating_balance is applied to the tightening branch
// only, never to relaxing (DESIGN.md's resolution of the corresponding
// Open Question): relaxing already has its own independent rate, and
// applying the balance term there too would make the two rates
// non-orthogonal.
func updatePenalties(c *model.Container, mem *memory.Memory, pen options.Penalty, isFeasible bool) {
	relaxingRate := pen.RelaxingRate
	if relaxingRate <= 0 {
		relaxingRate = 1
	}
	tighteningRate := pen.TighteningRate
	if tighteningRate <= 0 {
		tighteningRate = 1
	}

	for _, cid := range c.EnabledConstraints() {
		cons := c.Constraint(cid)
		_, _, global := cons.PenaltyCoefficients()

		switch {
		case isFeasible:
			global *= relaxingRate
		case cons.Violation() > model.Epsilon:
			balance := updatingBalanceTerm(pen.UpdatingBalance, mem.ViolationCount(cid))
			global *= tighteningRate * math.Max(cons.Violation(), 1) * balance
		}
		if global < minPenalty {
			global = minPenalty
		}
		cons.SetPenaltyCoefficients(global, global, global)
	}
}

// updatingBalanceTerm biases tightening by how persistently a constraint
// has been violated over the run: a constraint violated in nearly every
// iteration earns a larger multiplier than one violated only occasionally.
// log1p keeps the term from growing unboundedly over a long run.
func updatingBalanceTerm(balance float64, violationCount int64) float64 {
	if balance <= 0 {
		return 1
	}
	return 1 + balance*math.Log1p(float64(violationCount))
}

// applyValues sets every mutable variable in c to values[v] (clamped to
// the variable's bounds), re-establishes the one-hot property of every
// selection, then recomputes every cached constraint and expression value
// once. Used to commit the Lagrangian dual's best primal point, which may
// differ from whatever state the subgradient loop's last iteration
// happened to leave c in.
func applyValues(c *model.Container, values []int) {
	if len(values) == 0 {
		return
	}
	for _, vid := range c.MutableVariables() {
		if int(vid) >= len(values) {
			continue
		}
		v := c.Variable(vid)
		lo, hi := v.Bounds()
		target := values[vid]
		if target < lo {
			target = lo
		}
		if target > hi {
			target = hi
		}
		if target == v.Value() {
			continue
		}
		c.ApplyMove(model.NewMove(model.MoveGeneral, model.Alteration{Var: vid, Value: target}))
	}
	c.NormalizeSelections()
	c.RecomputeAll()
}

// seedPenaltiesFromDual raises (never lowers) each enabled constraint's
// penalty coefficients to the magnitude of its Lagrangian dual multiplier,
// giving the outer solver's first round a head start informed by the
// warm-up instead of always starting from the flat initial value.
func seedPenaltiesFromDual(c *model.Container, lr *lagrange.Result) {
	if lr == nil || lr.DualValues == nil {
		return
	}
	for _, cid := range c.EnabledConstraints() {
		d := math.Abs(lr.DualValues.Flat(int(cid)))
		if d <= 0 {
			continue
		}
		cons := c.Constraint(cid)
		_, _, global := cons.PenaltyCoefficients()
		if d > global {
			cons.SetPenaltyCoefficients(d, d, d)
		}
	}
}

// perturb implements §4.K's "modify initial state" step: a fraction
// move_preserve_rate of the current assignment is kept as-is, and the
// remainder is randomized. number_of_initial_modification takes precedence
// over initial_modification_randomize_rate's computed count when set, and
// initial_modification_fixed_rate (when positive) overrides both with a
// fixed fraction of the randomizable pool — the "optional fixed fraction"
// §4.K names, applied as a dominance: fixed rate, then explicit count,
// then randomize rate, matching the descending specificity the option
// bundle's field order suggests.
func perturb(c *model.Container, rng *rand.Rand, opt options.TabuSearch) {
	if !opt.IsEnabledInitialModification || rng == nil {
		return
	}
	mutable := c.MutableVariables()
	n := len(mutable)
	if n == 0 {
		return
	}

	preserve := opt.MovePreserveRate
	if preserve <= 0 {
		preserve = 1
	}
	if preserve > 1 {
		preserve = 1
	}
	keep := int(preserve * float64(n))
	if keep > n {
		keep = n
	}
	perm := rng.Perm(n)
	randomizable := perm[keep:]

	numFlips := len(randomizable)
	switch {
	case opt.InitialModificationFixedRate > 0:
		numFlips = int(opt.InitialModificationFixedRate * float64(len(randomizable)))
	case opt.NumberOfInitialModification > 0:
		numFlips = opt.NumberOfInitialModification
	case opt.InitialModificationRandomizeRate > 0:
		numFlips = int(opt.InitialModificationRandomizeRate * float64(len(randomizable)))
	}
	if numFlips > len(randomizable) {
		numFlips = len(randomizable)
	}

	for i := 0; i < numFlips; i++ {
		vid := mutable[randomizable[i]]
		if c.Variable(vid).Sense() == model.Selection {
			randomizeSelection(c, rng, c.Variable(vid).DefiningSelection())
			continue
		}
		randomizeVariable(c, rng, vid)
	}
	c.RecomputeAll()
}

// randomizeVariable sets v to a uniformly random value in its bounds.
func randomizeVariable(c *model.Container, rng *rand.Rand, v model.VarID) {
	variable := c.Variable(v)
	lo, hi := variable.Bounds()
	if hi < lo {
		return
	}
	width := int64(hi) - int64(lo) + 1
	if width <= 0 {
		return
	}
	value := lo + int(rng.Int63n(width))
	c.ApplyMove(model.NewMove(model.MoveGeneral, model.Alteration{Var: v, Value: value}))
}

// randomizeSelection re-picks a selection's selected member uniformly,
// applying the coupled {old→0, new→1} switch so the one-hot property
// (invariant 3) survives the perturbation. Randomizing a Selection member
// on its own would leave the group with zero or two members at value 1.
func randomizeSelection(c *model.Container, rng *rand.Rand, id model.SelectionID) {
	if id == model.NoSelection {
		return
	}
	sel := c.Selection(id)
	members := sel.Members()
	if len(members) < 2 {
		return
	}
	next := members[rng.Intn(len(members))]
	current := sel.Selected()
	if next == current {
		return
	}
	c.ApplyMove(model.NewMove(model.MoveSelection,
		model.Alteration{Var: current, Value: 0},
		model.Alteration{Var: next, Value: 1},
	))
}
