// Package progress prints a short colorized one-line summary of a solver
// run's incumbent to the terminal, mirroring mps_solver.h's three
// print_info calls (status, objective, total violation) but with color
// coding: green for a feasible incumbent, yellow for infeasible, and the
// objective value always in bold cyan (it is not compared against any
// earlier value).
package progress

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/katalvaran/tabuforge/pkg/solution"
)

// Report prints inc's summary to stdout when enabled is true. Color is
// disabled automatically when stdout is not a terminal (piped output,
// redirected to a file), matching fatih/color's own NO_COLOR convention.
func Report(inc *solution.Incumbent, enabled bool) {
	if !enabled {
		return
	}

	feasibility := color.New(color.FgYellow).SprintFunc()
	if inc.IsFeasible {
		feasibility = color.New(color.FgGreen).SprintFunc()
	}
	objective := color.New(color.FgCyan, color.Bold).SprintFunc()

	if !isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Printf("status: %v\n", inc.IsFeasible)
		fmt.Printf("objective: %v\n", inc.ObjectiveValue)
		fmt.Printf("total violation: %v\n", inc.TotalViolation)
		return
	}

	fmt.Printf("status: %s\n", feasibility(inc.IsFeasible))
	fmt.Printf("objective: %s\n", objective(inc.ObjectiveValue))
	fmt.Printf("total violation: %v\n", inc.TotalViolation)
}
