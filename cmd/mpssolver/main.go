// Command mpssolver reads an MPS file and an optional JSON option file, runs
// the tabu-search solver, and writes the result files mps_solver.h's
// standalone driver writes: incumbent.json, incumbent.sol, status.json,
// feasible.json (whenever a feasible solution was archived), and, when
// requested, <name>.json and flip.txt.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/katalvaran/tabuforge/internal/errs"
	"github.com/katalvaran/tabuforge/internal/optionfile"
	"github.com/katalvaran/tabuforge/internal/parallel"
	"github.com/katalvaran/tabuforge/internal/progress"
	"github.com/katalvaran/tabuforge/internal/solverlog"
	"github.com/katalvaran/tabuforge/pkg/model"
	"github.com/katalvaran/tabuforge/pkg/mps"
	"github.com/katalvaran/tabuforge/pkg/neighborhood"
	"github.com/katalvaran/tabuforge/pkg/options"
	"github.com/katalvaran/tabuforge/pkg/outer"
	"github.com/katalvaran/tabuforge/pkg/preprocess"
	"github.com/katalvaran/tabuforge/pkg/solution"
)

// flags mirrors argparser.h's Argparser struct: one field per CLI knob.
type flags struct {
	optionFile            string
	initialSolutionFile   string
	mutableVariableFile   string
	fixedVariableFile     string
	selectionFile         string
	flippablePairFile     string
	minimumCommonElement  int
	acceptContinuous      bool
	extractFlippablePairs bool
	includeMPSLoadingTime bool
	exportJSONInstance    bool
	minimization          bool
	maximization          bool
}

func main() {
	f := &flags{}
	start := time.Now()

	cmd := &cobra.Command{
		Use:           "mpssolver [flags] MPS_FILE",
		Short:         "Tabu-search solver for pure/mixed 0-1 integer programs in MPS format",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args[0], f, start)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.optionFile, "option-file", "p", "", "Specify option file name.")
	fl.StringVarP(&f.initialSolutionFile, "initial-solution", "i", "", "Specify initial solution file name.")
	fl.StringVarP(&f.mutableVariableFile, "mutable-variables", "m", "", "Specify mutable variable file name.")
	fl.StringVarP(&f.fixedVariableFile, "fixed-variables", "f", "", "Specify fixed variable file name.")
	fl.StringVarP(&f.selectionFile, "selection-constraints", "s", "", "Specify user-defined selection constraint file name.")
	fl.StringVarP(&f.flippablePairFile, "flippable-pairs", "x", "", "Specify flippable variable pair file name.")
	fl.IntVarP(&f.minimumCommonElement, "minimum-common-element", "c", 5,
		"Minimum number of shared opposite-coefficient constraints for --extract-flippable-variable-pairs.")
	fl.BoolVar(&f.acceptContinuous, "accept-continuous", false, "Accept continuous variables as integer variables.")
	fl.BoolVar(&f.extractFlippablePairs, "extract-flippable-variable-pairs", false, "Extract 2-flippable variable pairs instead of solving.")
	fl.BoolVar(&f.includeMPSLoadingTime, "include-mps-loading-time", false, "Include MPS file loading time in the reported calculation time.")
	fl.BoolVar(&f.exportJSONInstance, "export-json-instance", false, "Export the target instance as JSON format.")
	fl.BoolVar(&f.minimization, "minimization", false, "Minimize the objective function value regardless of the MPS file.")
	fl.BoolVar(&f.maximization, "maximization", false, "Maximize the objective function value regardless of the MPS file.")
	fl.BoolVar(&f.minimization, "minimize", false, "Alias of --minimization.")
	fl.BoolVar(&f.minimization, "min", false, "Alias of --minimization.")
	fl.BoolVar(&f.maximization, "maximize", false, "Alias of --maximization.")
	fl.BoolVar(&f.maximization, "max", false, "Alias of --maximization.")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mpssolver:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a returned error to §9's three-value exit policy: 1 is a
// usage error (mutually exclusive flags), 2 is everything else (I/O,
// malformed input, model validity, preprocessing contradiction).
func exitCode(err error) int {
	if _, ok := err.(*usageError); ok {
		return 1
	}
	return 2
}

// usageError marks a mutually-exclusive-flag violation.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func run(ctx context.Context, mpsFile string, f *flags, start time.Time) error {
	if f.mutableVariableFile != "" && f.fixedVariableFile != "" {
		return &usageError{"the flags -m and -f cannot be used simultaneously"}
	}
	if f.minimization && f.maximization {
		return &usageError{"the flags --minimization and --maximization cannot be used simultaneously"}
	}

	c, err := mps.Read(mpsFile, mps.Options{AcceptContinuous: f.acceptContinuous})
	if err != nil {
		return err
	}
	c.SetName(baseName(mpsFile))

	if f.minimization {
		overrideObjectiveSense(c, true)
	} else if f.maximization {
		overrideObjectiveSense(c, false)
	}

	opt := options.Default()
	if f.optionFile != "" {
		opt, err = optionfile.Read(f.optionFile, solverlog.New(solverlog.Warning))
		if err != nil {
			return err
		}
	}
	logger := solverlog.New(opt.General.Verbose)

	if f.mutableVariableFile != "" {
		names, rerr := readNames(f.mutableVariableFile)
		if rerr != nil {
			return rerr
		}
		if err := c.UnfixVariables(names); err != nil {
			return err
		}
	}
	if f.fixedVariableFile != "" {
		nameValues, rerr := readNameValues(f.fixedVariableFile)
		if rerr != nil {
			return rerr
		}
		if err := c.FixVariables(nameValues); err != nil {
			return err
		}
	}
	if f.selectionFile != "" {
		names, rerr := readNames(f.selectionFile)
		if rerr != nil {
			return rerr
		}
		if err := c.SetUserDefinedSelectionConstraints(names); err != nil {
			return err
		}
	}

	var flipPairs []neighborhood.Pair
	if f.flippablePairFile != "" {
		pairs, rerr := readNamePairs(f.flippablePairFile)
		if rerr != nil {
			return rerr
		}
		flipPairs, rerr = resolvePairs(c, pairs)
		if rerr != nil {
			return rerr
		}
	}

	if f.initialSolutionFile != "" {
		values, rerr := solution.Read(f.initialSolutionFile)
		if rerr != nil {
			return rerr
		}
		if err := solution.Apply(c, values); err != nil {
			return err
		}
	}

	if f.extractFlippablePairs {
		return extractFlippablePairs(c, opt, f.minimumCommonElement)
	}

	if f.exportJSONInstance {
		if err := exportInstance(c); err != nil {
			return err
		}
	}

	var elapsedAtStart time.Duration
	if f.includeMPSLoadingTime {
		elapsedAtStart = time.Since(start)
	}
	return solve(ctx, c, opt, logger, flipPairs, elapsedAtStart)
}

func solve(ctx context.Context, c *model.Container, opt *options.Options, logger *logrus.Logger,
	flipPairs []neighborhood.Pair, elapsedAtStart time.Duration) error {

	if opt.General.IsEnabledPresolve {
		if _, err := preprocess.Run(c, preprocess.Options{
			SelectionStrategy: preprocessStrategy(opt),
			Logger:            logger,
		}); err != nil {
			return err
		}
	} else if err := model.NewBuilder(c).Build(); err != nil {
		return err
	}

	nb := buildNeighborhood(opt, flipPairs)
	archive := solution.NewFeasibleArchive(100)
	rng := rand.New(rand.NewSource(opt.General.Seed))

	res := outer.Solve(ctx, c, outer.Config{
		Opt:            opt,
		Neighborhood:   nb,
		Archive:        archive,
		Logger:         logger,
		Rng:            rng,
		ElapsedAtStart: elapsedAtStart,
	})

	return writeResult(c, opt, res, archive)
}

func writeResult(c *model.Container, opt *options.Options, res *outer.Result, archive *solution.FeasibleArchive) error {
	inc := solution.NewIncumbent(c, res.FinalScore)

	progress.Report(inc, opt.Output.IsEnabledPrintingLog)

	if err := solution.WriteJSON("incumbent.json", inc); err != nil {
		return err
	}
	if err := solution.Write("incumbent.sol", c); err != nil {
		return err
	}

	status := &solution.Status{
		Name:              c.Name(),
		TerminationReason: res.TerminationReason.String(),
		WallTimeSeconds:   res.WallTime.Seconds(),
		ObjectiveValue:    inc.ObjectiveValue,
		TotalViolation:    res.FinalScore.TotalViolation,
		IsFeasible:        res.FinalScore.IsFeasible,
	}
	for _, r := range res.Rounds {
		status.Rounds = append(status.Rounds, solution.RoundStatus{
			Round:                   r.Round,
			Reason:                  r.TabuReason.String(),
			IterationsRun:           r.IterationsRun,
			GlobalAugmentedImproved: r.GlobalAugmentedImproved,
			FeasibleImproved:        r.FeasibleImproved,
		})
	}
	if err := solution.WriteJSON("status.json", status); err != nil {
		return err
	}

	if archive.Len() > 0 {
		if err := solution.WriteJSON("feasible.json", archive.Entries()); err != nil {
			return err
		}
	}
	return nil
}

func extractFlippablePairs(c *model.Container, opt *options.Options, minimumCommonElement int) error {
	if opt.General.IsEnabledPresolve {
		if _, err := preprocess.Run(c, preprocess.Options{SelectionStrategy: preprocessStrategy(opt)}); err != nil {
			return err
		}
	} else if err := model.NewBuilder(c).Build(); err != nil {
		return err
	}

	pairs := preprocess.ExtractFlippablePairs(c, minimumCommonElement)

	out, err := os.Create("flip.txt")
	if err != nil {
		return errs.At(errs.InputFormat, "flip.txt", "cannot create flip pair file: %v", err)
	}
	defer out.Close()
	for _, p := range pairs {
		if _, err := fmt.Fprintf(out, "%s %s\n", c.Variable(p.A).Name(), c.Variable(p.B).Name()); err != nil {
			return errs.At(errs.InputFormat, "flip.txt", "write error: %v", err)
		}
	}
	return nil
}

func preprocessStrategy(opt *options.Options) preprocess.SelectionStrategy {
	strategy, ok := opt.Preprocess.SelectionMode.Strategy()
	if !ok {
		return preprocess.DefinedOrder
	}
	return strategy
}

func buildNeighborhood(opt *options.Options, flipPairs []neighborhood.Pair) *neighborhood.Neighborhood {
	var gens []neighborhood.Generator
	n := opt.Neighborhood
	if n.IsEnabledBinaryMove {
		gens = append(gens, neighborhood.BinaryFlipGenerator{})
	}
	if n.IsEnabledIntegerMove {
		gens = append(gens, neighborhood.IntegerStepGenerator{})
	}
	gens = append(gens, neighborhood.SelectionGenerator{})
	if n.IsEnabledAggregationMove || n.IsEnabledPrecedenceMove || n.IsEnabledVariableBoundMove {
		gens = append(gens, neighborhood.ConstraintEdgeGenerator{})
	}
	if len(flipPairs) > 0 {
		gens = append(gens, neighborhood.TwoFlipGenerator{Pairs: flipPairs})
	}

	var chain *neighborhood.ChainBuilder
	if n.IsEnabledChainMove {
		chain = &neighborhood.ChainBuilder{
			FIFOSize:         20,
			Capacity:         n.ChainMoveCapacity,
			OverlapThreshold: 0.5,
			Mode:             chainModeFrom(n.ChainMoveReduceMode),
			Rng:              rand.New(rand.NewSource(opt.General.Seed)),
		}
	}

	return neighborhood.New(gens, chain, parallel.New(0))
}

func chainModeFrom(m options.ChainMoveReduceMode) neighborhood.PruningMode {
	if m == options.Shuffle {
		return neighborhood.Shuffle
	}
	return neighborhood.ByOverlapRate
}

func resolvePairs(c *model.Container, pairs []namePair) ([]neighborhood.Pair, error) {
	out := make([]neighborhood.Pair, 0, len(pairs))
	for _, p := range pairs {
		a, ok := c.VariableByName(p.A)
		if !ok {
			return nil, errs.At(errs.InputFormat, p.A, "flippable-variable-pair file references unknown variable %q", p.A)
		}
		b, ok := c.VariableByName(p.B)
		if !ok {
			return nil, errs.At(errs.InputFormat, p.B, "flippable-variable-pair file references unknown variable %q", p.B)
		}
		out = append(out, neighborhood.Pair{A: a, B: b})
	}
	return out, nil
}

// overrideObjectiveSense forces the model's user-facing objective sense to
// wantMinimize, for --minimization/--maximization. SetObjective mutates its
// expression in place (negating it when minimize is false) and expects to
// be called on the expression's original, not-yet-negated orientation, so
// any sense mps.Read already applied is undone first.
func overrideObjectiveSense(c *model.Container, wantMinimize bool) {
	if c.Objective().Sign() < 0 {
		c.Expression(c.Objective().Expression()).Scale(-1)
	}
	c.SetObjective(c.Objective().Expression(), wantMinimize)
}

func baseName(path string) string {
	base := path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			base = path[i+1:]
			break
		}
	}
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '.' {
			return base[:i]
		}
	}
	return base
}
