// Package localsearch runs the tabu-search core with tabu tenure pinned at
// zero and no penalty feedback, grounded on
// original_source/printemps/solver/local_search/core/local_search.h: every
// move is eligible on every iteration, so the scan degenerates to plain
// first-improvement local search and stops at the first local optimum.
package localsearch

import (
	"context"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/katalvaran/tabuforge/pkg/incumbent"
	"github.com/katalvaran/tabuforge/pkg/memory"
	"github.com/katalvaran/tabuforge/pkg/model"
	"github.com/katalvaran/tabuforge/pkg/neighborhood"
	"github.com/katalvaran/tabuforge/pkg/options"
	"github.com/katalvaran/tabuforge/pkg/tabusearch"
)

// Result is tabusearch.Result under another name. The underlying loop is
// identical, so no translation is needed beyond the type alias.
type Result = tabusearch.Result

// Config bundles local search's tuning knobs, narrowed from
// options.LocalSearch, plus the shared state it reads and mutates.
type Config struct {
	Opt options.LocalSearch

	Neighborhood *neighborhood.Neighborhood
	Memory       *memory.Memory
	Incumbent    *incumbent.Holder
	Archive      tabusearch.Archive

	Rng *rand.Rand

	StartIteration             int64
	Linear                     bool
	ParallelNeighborhoodUpdate bool
	TargetObjectiveValue       float64
	Logger                     *logrus.Logger
}

// Run solves c to a local optimum. It forwards to tabusearch.Run with tenure
// forced to zero (no move is ever tabu) and penalty feedback disabled (no
// adaptive tenure, since there is no tenure to adapt).
func Run(ctx context.Context, c *model.Container, cfg Config) *Result {
	zero := 0
	return tabusearch.Run(ctx, c, tabusearch.Config{
		Opt: options.TabuSearch{
			IterationMax:   cfg.Opt.IterationMax,
			TimeMaxSeconds: cfg.Opt.TimeMaxSeconds,
			LogInterval:    cfg.Opt.LogInterval,

			IsEnabledShuffle:        true,
			IsEnabledAutomaticBreak: true,
		},
		ForceTenure:                &zero,
		DisablePenaltyFeedback:     true,
		Neighborhood:               cfg.Neighborhood,
		Memory:                     cfg.Memory,
		Incumbent:                  cfg.Incumbent,
		Archive:                    cfg.Archive,
		Rng:                        cfg.Rng,
		StartIteration:             cfg.StartIteration,
		Linear:                     cfg.Linear,
		ParallelNeighborhoodUpdate: cfg.ParallelNeighborhoodUpdate,
		TargetObjectiveValue:       cfg.TargetObjectiveValue,
		Logger:                     cfg.Logger,
	})
}
