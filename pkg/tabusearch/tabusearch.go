// Package tabusearch implements the solver's inner loop: a first-improvement
// tabu-search core that drives a model.Container through a sequence of
// neighborhood moves, tracking the best solutions seen in an
// incumbent.Holder and the move history in a memory.Memory (§4.I).
//
// The same driver, invoked with Config.ForceTenure set to 0 and
// Config.DisablePenaltyFeedback set, implements local search (§4.J).
package tabusearch

import (
	"context"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/katalvaran/tabuforge/pkg/evaluator"
	"github.com/katalvaran/tabuforge/pkg/incumbent"
	"github.com/katalvaran/tabuforge/pkg/memory"
	"github.com/katalvaran/tabuforge/pkg/model"
	"github.com/katalvaran/tabuforge/pkg/neighborhood"
	"github.com/katalvaran/tabuforge/pkg/options"
)

// StopReason names why Run returned.
type StopReason int

const (
	// TimeOver means the wall-clock budget was exhausted.
	TimeOver StopReason = iota
	// IterationOver means the iteration cap was reached.
	IterationOver
	// TargetReached means a feasible objective crossed the configured target.
	TargetReached
	// LocalOptimal means no improving move was found in an iteration.
	LocalOptimal
	// NoMoves means the neighborhood produced no candidates at all.
	NoMoves
	// Cancelled means the caller's context was done.
	Cancelled
)

func (r StopReason) String() string {
	switch r {
	case TimeOver:
		return "TimeOver"
	case IterationOver:
		return "IterationOver"
	case TargetReached:
		return "TargetReached"
	case LocalOptimal:
		return "LocalOptimal"
	case NoMoves:
		return "NoMoves"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Result summarizes one Run invocation, enough for the outer solver to
// decide how to adjust penalties, tenure, and the next iteration budget.
type Result struct {
	Reason StopReason

	IterationsRun int64
	// LastIteration is StartIteration + IterationsRun, the value the next
	// Run call should pass back in as StartIteration to keep memory's tenure
	// arithmetic continuous across invocations.
	LastIteration int64

	FinalScore *evaluator.SolutionScore

	// GlobalAugmentedImproved and FeasibleImproved report whether the
	// respective incumbent improved at any point during this run, for the
	// outer solver's penalty-update branch (§4.K).
	GlobalAugmentedImproved bool
	FeasibleImproved        bool

	// ImprovedLate reports whether the last improvement of the global
	// augmented incumbent landed in the final quarter of the iterations
	// actually run, input to automatic
	// iteration-budget adjustment across repeated invocations.
	ImprovedLate bool

	// FinalTenure is the adaptive tenure value at exit, useful for
	// diagnostics; the next Run call recomputes its own initial tenure from
	// opt.InitialTabuTenure rather than resuming this value.
	FinalTenure int
}

// Archive receives every feasible solution found during Run, size-bounded
// by the caller. A nil Archive disables the feasible-solution callback.
type Archive interface {
	Push(score *evaluator.SolutionScore, c *model.Container)
}

// Config bundles Run's tuning knobs, narrowed from options.TabuSearch so
// Run itself stays free of JSON/option-file concerns.
type Config struct {
	Opt options.TabuSearch

	// ForceTenure, when non-nil, overrides the adaptive tenure entirely
	// (local search passes a pointer to 0; tabu search passes nil).
	ForceTenure *int

	// DisablePenaltyFeedback skips the adaptive-tenure bookkeeping that only
	// makes sense under penalty adaptation (local search sets this true).
	DisablePenaltyFeedback bool

	Neighborhood *neighborhood.Neighborhood
	Memory       *memory.Memory
	Incumbent    *incumbent.Holder
	Archive      Archive

	Rng *rand.Rand

	// Logger receives one entry every opt.LogInterval applied moves, at
	// Info level. A nil Logger disables logging entirely.
	Logger *logrus.Logger

	// StartIteration is the absolute iteration number memory's tenure
	// arithmetic is anchored to; the caller threads LastIteration from the
	// previous Result back in here to keep tenure continuous across
	// repeated invocations within one outer-solver session.
	StartIteration int64

	// Linear reports whether the model has no nonlinear structure, gating
	// step 3's acceptance-policy choice (§4.I).
	Linear bool

	// ParallelNeighborhoodUpdate mirrors options.Parallel.
	// IsEnabledParallelNeighborhoodUpdate, threaded in separately so Run
	// does not need the full Options bundle.
	ParallelNeighborhoodUpdate bool

	// TargetObjectiveValue ends the run early once the objective crosses
	// it, mirroring options.General.TargetObjectiveValue (Config stays
	// independent of the General section so Run can be unit-tested without
	// constructing a full Options bundle). Leave at its zero value's
	// caller-supplied sentinel (a very negative number) to disable.
	TargetObjectiveValue float64
}

// Run drives c through the tabu-search inner loop until termination,
// following §4.I's seven numbered steps each iteration.
func Run(ctx context.Context, c *model.Container, cfg Config) *Result {
	opt := cfg.Opt
	timeMax := time.Duration(opt.TimeMaxSeconds * float64(time.Second))
	deadline := time.Now().Add(timeMax)

	maxTenure := len(c.MutableVariables())
	if maxTenure < 1 {
		maxTenure = 1
	}

	var tenure int
	if cfg.ForceTenure != nil {
		// A forced tenure (local search passes 0) is used as-is: 0 means
		// memory.IsTabu never reports tabu, which clamping to 1 would undo.
		tenure = *cfg.ForceTenure
	} else {
		tenure = clampTenure(opt.InitialTabuTenure, maxTenure)
	}

	score := evaluator.FromScratch(c)
	cfg.Incumbent.TryUpdate(score, model.Epsilon)

	res := &Result{FinalScore: score, LastIteration: cfg.StartIteration}

	var sinceGlobalImprovement int64
	var lastImprovementIteration int64
	var curtailLimit int // 0 means unbounded

	var i int64
	for ; ; i++ {
		iteration := cfg.StartIteration + i

		select {
		case <-ctx.Done():
			res.Reason = Cancelled
			res.IterationsRun = i
			goto finish
		default:
		}
		if opt.IterationMax > 0 && int(i) >= opt.IterationMax {
			res.Reason = IterationOver
			res.IterationsRun = i
			goto finish
		}
		if timeMax > 0 && time.Now().After(deadline) {
			res.Reason = TimeOver
			res.IterationsRun = i
			goto finish
		}
		if opt.IsEnabledAutomaticBreak && score.IsFeasible && score.ObjectiveAfter <= cfg.TargetObjectiveValue {
			res.Reason = TargetReached
			res.IterationsRun = i
			goto finish
		}

		// Step 2: refresh improvability flags. TabuForge implements only
		// the Automatic screening mode: Container.RefreshImprovability
		// rescans every mutable variable each iteration rather than
		// restricting the rescan to the variables the last move touched
		// (see options.ImprovabilityScreeningMode's doc comment).
		c.RefreshImprovability()

		// Step 3: acceptance policy.
		policy := neighborhood.AcceptPolicy{
			Parallel: cfg.ParallelNeighborhoodUpdate,
		}
		switch {
		case cfg.Linear && score.IsFeasible:
			policy.AcceptObjectiveImprovable = true
		case !score.IsFeasible:
			policy.AcceptFeasibilityImprovable = true
		default:
			policy.AcceptAll = true
		}

		// Step 4: generate and shuffle.
		candidates := cfg.Neighborhood.UpdateMoves(c, policy)
		if len(candidates) == 0 {
			res.Reason = NoMoves
			res.IterationsRun = i
			goto finish
		}
		if opt.IsEnabledShuffle {
			neighborhood.ShuffleMoves(candidates, cfg.Rng)
		}
		if opt.IsEnabledMoveCurtail && curtailLimit > 0 && curtailLimit < len(candidates) {
			candidates = candidates[:curtailLimit]
		}

		// Step 5: first-improvement selection, tabu-aware with aspiration.
		var selected *model.Move
		var selectedScore *evaluator.SolutionScore
		nonImprovingNonTabu := 0
		for _, mv := range candidates {
			cand := evaluator.EvaluateMove(c, mv, score)
			tabu := isTabu(cfg.Memory, mv, iteration, tenure, opt.TabuMode)
			improves := cand.LocalAugmentedObjective < score.LocalAugmentedObjective-model.Epsilon
			aspires := tabu && opt.IgnoreTabuIfGlobalIncumbent &&
				cand.GlobalAugmentedObjective < cfg.Incumbent.GlobalAugmented()-model.Epsilon
			if tabu && !aspires {
				continue
			}
			if improves {
				selected = mv
				selectedScore = cand
				break
			}
			nonImprovingNonTabu++
		}

		if selected == nil {
			res.Reason = LocalOptimal
			res.IterationsRun = i
			goto finish
		}

		// Step 7: apply, update incumbents and memory.
		c.ApplyMove(selected)
		score = selectedScore
		flags := cfg.Incumbent.TryUpdate(score, model.Epsilon)
		if flags.Has(incumbent.Global) {
			res.GlobalAugmentedImproved = true
			sinceGlobalImprovement = 0
			lastImprovementIteration = i
		} else {
			sinceGlobalImprovement++
		}
		if flags.Has(incumbent.Feasible) {
			res.FeasibleImproved = true
			if cfg.Archive != nil {
				cfg.Archive.Push(score, c)
			}
		}
		cfg.Memory.RecordMove(selected, iteration)
		cfg.Memory.RecordViolations(c, c.EnabledConstraints())
		cfg.Neighborhood.RecordChainCandidate(selected, flags.Has(incumbent.Local))

		if cfg.Logger != nil && opt.LogInterval > 0 && i%int64(opt.LogInterval) == 0 {
			cfg.Logger.WithFields(logrus.Fields{
				"iteration":         iteration,
				"objective":         score.ObjectiveAfter,
				"total_violation":   score.TotalViolation,
				"tabu_tenure":       tenure,
				"global_incumbent":  cfg.Incumbent.GlobalAugmented(),
			}).Info("tabu search progress")
		}

		if !cfg.DisablePenaltyFeedback && opt.IsEnabledAutomaticTabuTenureAdjustment {
			tenure = adjustTenure(tenure, sinceGlobalImprovement, opt, maxTenure)
		}

		// Pruning: if most of this iteration's scan was wasted on
		// non-improving, non-tabu candidates, shrink next iteration's scan.
		if opt.IsEnabledMoveCurtail && float64(nonImprovingNonTabu) >= opt.PruningRateThreshold*float64(len(candidates)) {
			curtailLimit = len(candidates) / 2
			if curtailLimit < 1 {
				curtailLimit = 1
			}
		} else if opt.IsEnabledMoveCurtail {
			curtailLimit = 0
		}
	}

finish:
	res.FinalScore = score
	res.FinalTenure = tenure
	res.LastIteration = cfg.StartIteration + res.IterationsRun
	if res.IterationsRun > 0 {
		res.ImprovedLate = lastImprovementIteration >= (res.IterationsRun*3)/4
	}
	return res
}

func clampTenure(tenure, maxTenure int) int {
	if tenure < 1 {
		return 1
	}
	if tenure > maxTenure {
		return maxTenure
	}
	return tenure
}

func adjustTenure(tenure int, sinceImprovement int64, opt options.TabuSearch, maxTenure int) int {
	if opt.BiasIncreaseCountThreshold > 0 && sinceImprovement > int64(opt.BiasIncreaseCountThreshold) {
		return clampTenure(tenure+1, maxTenure)
	}
	if opt.BiasDecreaseCountThreshold > 0 && sinceImprovement < int64(opt.BiasDecreaseCountThreshold) {
		return clampTenure(tenure-1, maxTenure)
	}
	return tenure
}

func isTabu(m *memory.Memory, mv *model.Move, iteration int64, tenure int, mode options.TabuMode) bool {
	if len(mv.Alterations) == 0 {
		return false
	}
	switch mode {
	case options.TabuAny:
		for _, a := range mv.Alterations {
			if m.IsTabu(a.Var, iteration, tenure) {
				return true
			}
		}
		return false
	default: // TabuAll
		for _, a := range mv.Alterations {
			if !m.IsTabu(a.Var, iteration, tenure) {
				return false
			}
		}
		return true
	}
}

// NextIterationMax applies §4.I's automatic iteration-budget adjustment
// across repeated Run invocations: grow the budget when the previous run
// improved late, shrink it when it improved early or found nothing,
// clamped to never fall below 1.
func NextIterationMax(previousMax int, improvedLate bool, opt options.TabuSearch) int {
	if !opt.IsEnabledAutomaticIterationAdjustment {
		return previousMax
	}
	next := float64(previousMax)
	if improvedLate {
		next *= opt.IterationIncreaseRate
	} else {
		next *= opt.IterationDecreaseRate
	}
	if next < 1 {
		next = 1
	}
	return int(next)
}
