// Package memory holds the tabu-search core's per-variable and
// per-constraint bookkeeping: when a variable was last altered, and how
// often a constraint has been found violated (§4.H).
package memory

import "github.com/katalvaran/tabuforge/pkg/model"

// negativeInfinity marks a variable that has never been altered in the
// current run — any iteration number compares greater than it, so tenure
// checks against a fresh variable always read "not tabu."
const negativeInfinity = -1 << 62

// Memory tracks tabu-search's mutable state across iterations: the last
// iteration each variable was altered, and the cumulative violation count
// of each constraint. It is constructed once per outer-solver session and
// threaded through every repeated tabu-search invocation within that
// session — tenure and violation history are meant to persist across
// rounds. Reset is exposed for the outer solver's initial-state
// perturbation, which restarts tabu-search bookkeeping from scratch.
type Memory struct {
	lastUpdateIteration []int64
	violationCount      []int64
}

// New allocates a Memory sized to c's variables and constraints, with
// every last-update iteration at -infinity and every violation count at 0.
func New(c *model.Container) *Memory {
	m := &Memory{
		lastUpdateIteration: make([]int64, c.NumVariables()),
		violationCount:      make([]int64, c.NumConstraints()),
	}
	m.Reset()
	return m
}

// Reset restores every variable's last-update iteration to -infinity and
// zeroes every constraint's violation count, without reallocating.
func (m *Memory) Reset() {
	for i := range m.lastUpdateIteration {
		m.lastUpdateIteration[i] = negativeInfinity
	}
	for i := range m.violationCount {
		m.violationCount[i] = 0
	}
}

// LastUpdateIteration returns the last iteration v was altered in the
// current run, or -infinity if it never has been.
func (m *Memory) LastUpdateIteration(v model.VarID) int64 {
	return m.lastUpdateIteration[v]
}

// IsTabu reports whether v was altered within the last tenure iterations
// as of iteration (exclusive of the current one).
func (m *Memory) IsTabu(v model.VarID, iteration int64, tenure int) bool {
	if tenure <= 0 {
		return false
	}
	return iteration-m.lastUpdateIteration[v] <= int64(tenure)
}

// RecordMove marks every variable move touches as updated at iteration.
func (m *Memory) RecordMove(move *model.Move, iteration int64) {
	for _, a := range move.Alterations {
		m.lastUpdateIteration[a.Var] = iteration
	}
}

// ViolationCount returns c's cumulative violation count in the current run.
func (m *Memory) ViolationCount(c model.ConstraintID) int64 {
	return m.violationCount[c]
}

// RecordViolations increments the violation counter of every currently
// violated constraint in ids, called once per iteration with the
// container's enabled constraint list.
func (m *Memory) RecordViolations(container *model.Container, ids []model.ConstraintID) {
	for _, cid := range ids {
		if container.Constraint(cid).Violation() > model.Epsilon {
			m.violationCount[cid]++
		}
	}
}
