// Package solution reads and writes solver solutions in the plain-text
// "name value" format and the JSON export shapes mps_solver.h writes
// (incumbent.json, incumbent.sol, status.json, feasible.json), grounded on
// mps_utility.h's read_solution and mps_solver.h's solve().
package solution

import (
	"bufio"
	"encoding/json"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/katalvaran/tabuforge/internal/errs"
	"github.com/katalvaran/tabuforge/pkg/evaluator"
	"github.com/katalvaran/tabuforge/pkg/model"
)

// Read parses a plain-text solution file: each non-blank line holds exactly
// two whitespace-separated tokens, a variable name and a value, rounded to
// the nearest integer via floor(0.5+v) exactly as read_solution does. Lines
// with any other token count are silently skipped, matching the reference.
func Read(path string) (map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.At(errs.InputFormat, path, "cannot open solution file: %v", err)
	}
	defer f.Close()

	out := make(map[string]int)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		items := strings.Fields(scanner.Text())
		if len(items) != 2 {
			continue
		}
		v, err := strconv.ParseFloat(items[1], 64)
		if err != nil {
			continue
		}
		out[items[0]] = int(math.Floor(0.5 + v))
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.At(errs.InputFormat, path, "read error: %v", err)
	}
	return out, nil
}

// Apply assigns every name in values found in c to that variable, via
// FixVariable-free direct value assignment followed by a single
// RecomputeAll (the CLI's -i initial-solution flag).
func Apply(c *model.Container, values map[string]int) error {
	for _, vid := range c.AllVariables() {
		v := c.Variable(vid)
		value, ok := values[v.Name()]
		if !ok {
			continue
		}
		lo, hi := v.Bounds()
		if value < lo || value > hi {
			return errs.At(errs.InputFormat, v.Name(),
				"initial-solution value %d is outside bounds [%d,%d]", value, lo, hi)
		}
		c.ApplyMove(model.NewMove(model.MoveGeneral, model.Alteration{Var: vid, Value: value}))
	}
	c.RecomputeAll()
	return nil
}

// Write emits c's current variable assignment in the plain-text "name
// value" format, one variable per line in declaration order.
func Write(path string, c *model.Container) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.At(errs.InputFormat, path, "cannot create solution file: %v", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, vid := range c.AllVariables() {
		v := c.Variable(vid)
		if _, err := w.WriteString(v.Name() + " " + strconv.Itoa(v.Value()) + "\n"); err != nil {
			return errs.At(errs.InputFormat, path, "write error: %v", err)
		}
	}
	return w.Flush()
}

// Incumbent is incumbent.json's shape: the best solution found, by name,
// plus the score it achieved.
type Incumbent struct {
	Name            string         `json:"name"`
	Variables       map[string]int `json:"variables"`
	ObjectiveValue  float64        `json:"objective"`
	TotalViolation  float64        `json:"total_violation"`
	IsFeasible      bool           `json:"is_feasible"`
}

// NewIncumbent captures c's current assignment and score into an Incumbent.
// The reported objective is converted back to the user's original
// minimize/maximize sense via Objective.Sign; every other package works in
// the model's internal always-minimizing sense (§3).
func NewIncumbent(c *model.Container, score *evaluator.SolutionScore) *Incumbent {
	vars := make(map[string]int, c.NumVariables())
	for _, vid := range c.AllVariables() {
		v := c.Variable(vid)
		vars[v.Name()] = v.Value()
	}
	return &Incumbent{
		Name:           c.Name(),
		Variables:      vars,
		ObjectiveValue: score.ObjectiveAfter * c.Objective().Sign(),
		TotalViolation: score.TotalViolation,
		IsFeasible:     score.IsFeasible,
	}
}

// WriteJSON marshals v to path as indented JSON.
func WriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errs.At(errs.InputFormat, path, "cannot marshal JSON: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errs.At(errs.InputFormat, path, "cannot write %s: %v", path, err)
	}
	return nil
}

// RoundStatus is one outer-loop round's entry in status.json's history.
type RoundStatus struct {
	Round                   int    `json:"round"`
	Reason                  string `json:"reason"`
	IterationsRun           int64  `json:"iterations_run"`
	GlobalAugmentedImproved bool   `json:"global_augmented_improved"`
	FeasibleImproved        bool   `json:"feasible_improved"`
}

// Status is status.json's shape: the whole run's termination summary.
type Status struct {
	Name              string        `json:"name"`
	TerminationReason string        `json:"termination_reason"`
	WallTimeSeconds   float64       `json:"wall_time_seconds"`
	ObjectiveValue    float64       `json:"objective"`
	TotalViolation    float64       `json:"total_violation"`
	IsFeasible        bool          `json:"is_feasible"`
	Rounds            []RoundStatus `json:"rounds"`
}

// FeasibleArchive is a size-bounded in-memory collection of feasible
// solutions seen during a run, implementing tabusearch.Archive. Once full,
// the worst-objective entry is evicted in favor of a strictly better one;
// ties keep whichever arrived first.
type FeasibleArchive struct {
	capacity int
	entries  []*Incumbent
	internal []float64 // ObjectiveAfter alongside entries, always-minimizing sense
}

// NewFeasibleArchive allocates an archive holding at most capacity
// solutions (capacity <= 0 means unbounded).
func NewFeasibleArchive(capacity int) *FeasibleArchive {
	return &FeasibleArchive{capacity: capacity}
}

// Push records a feasible score, satisfying tabusearch.Archive. Infeasible
// scores are ignored. Ranking uses score.ObjectiveAfter, the model's
// internal always-minimizing value, not Incumbent.ObjectiveValue — that
// field is already converted to the user's original sense (§3), and
// sorting by it directly would rank worst-first whenever the model
// minimizes a maximization problem's negated objective.
func (a *FeasibleArchive) Push(score *evaluator.SolutionScore, c *model.Container) {
	if !score.IsFeasible {
		return
	}
	a.entries = append(a.entries, NewIncumbent(c, score))
	a.internal = append(a.internal, score.ObjectiveAfter)
	sort.Stable(a)
	if a.capacity > 0 && len(a.entries) > a.capacity {
		a.entries = a.entries[:a.capacity]
		a.internal = a.internal[:a.capacity]
	}
}

func (a *FeasibleArchive) Len() int           { return len(a.entries) }
func (a *FeasibleArchive) Less(i, j int) bool { return a.internal[i] < a.internal[j] }
func (a *FeasibleArchive) Swap(i, j int) {
	a.entries[i], a.entries[j] = a.entries[j], a.entries[i]
	a.internal[i], a.internal[j] = a.internal[j], a.internal[i]
}

// Entries returns every archived solution, best objective first.
func (a *FeasibleArchive) Entries() []*Incumbent { return a.entries }
