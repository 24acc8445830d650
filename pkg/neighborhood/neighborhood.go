// Package neighborhood generates candidate moves around the current state
// of a model.Container: one generator per structural move sense, a
// concatenating/filtering driver (update_moves), and a seeded shuffle.
package neighborhood

import (
	"math/rand"

	"github.com/katalvaran/tabuforge/internal/parallel"
	"github.com/katalvaran/tabuforge/pkg/model"
)

// Generator proposes a set of candidate moves for the current state of c.
// Implementations must not mutate c.
type Generator interface {
	Generate(c *model.Container) []*model.Move
	Name() string
}

// Neighborhood owns the set of enabled generators and the chain-move
// composer, and drives UpdateMoves each tabu-search iteration.
type Neighborhood struct {
	generators []Generator
	chain      *ChainBuilder
	pool       *parallel.Pool
}

// New builds a Neighborhood from the given generators. A nil chain builder
// disables chain-move composition.
func New(generators []Generator, chain *ChainBuilder, pool *parallel.Pool) *Neighborhood {
	if pool == nil {
		pool = parallel.New(1)
	}
	return &Neighborhood{generators: generators, chain: chain, pool: pool}
}

// AcceptPolicy selects which moves UpdateMoves keeps, mirroring the tabu-
// search core's three accept flags.
type AcceptPolicy struct {
	AcceptAll                   bool
	AcceptObjectiveImprovable   bool
	AcceptFeasibilityImprovable bool
	Parallel                    bool
}

// UpdateMoves runs every enabled generator (in parallel if policy.Parallel
// is set), filters by policy, appends any chain moves the composer has
// ready, and returns the concatenated list in a stable (generator index,
// offset) order — never goroutine finish order.
func (n *Neighborhood) UpdateMoves(c *model.Container, policy AcceptPolicy) []*model.Move {
	perGenerator := make([][]*model.Move, len(n.generators))

	generate := func(i int) { perGenerator[i] = n.generators[i].Generate(c) }
	if policy.Parallel {
		n.pool.MapIndexed(len(n.generators), generate)
	} else {
		for i := range n.generators {
			generate(i)
		}
	}

	var out []*model.Move
	for _, moves := range perGenerator {
		for _, m := range moves {
			if accepts(c, m, policy) {
				out = append(out, m)
			}
		}
	}

	if n.chain != nil {
		out = append(out, n.chain.Ready()...)
	}

	return out
}

// accepts reports whether move passes policy: accept-all always passes;
// otherwise every altered variable must satisfy the requested
// improvability flag.
func accepts(c *model.Container, move *model.Move, policy AcceptPolicy) bool {
	if policy.AcceptAll {
		return true
	}
	if !policy.AcceptObjectiveImprovable && !policy.AcceptFeasibilityImprovable {
		return true
	}
	for _, a := range move.Alterations {
		v := c.Variable(a.Var)
		ok := false
		if policy.AcceptObjectiveImprovable && v.IsObjectiveImprovable() {
			ok = true
		}
		if policy.AcceptFeasibilityImprovable && v.IsFeasibilityImprovable() {
			ok = true
		}
		if !ok {
			return false
		}
	}
	return true
}

// RecordChainCandidate feeds an applied move and whether it improved the
// incumbent to the chain-move composer, a no-op if chain-move composition
// is disabled (nil chain builder).
func (n *Neighborhood) RecordChainCandidate(move *model.Move, improved bool) {
	if n.chain == nil {
		return
	}
	n.chain.Record(move, improved)
}

// ShuffleMoves pseudo-randomly permutes moves in place using rng, required for
// tabu-search first-improvement semantics over an otherwise generator-
// ordered list.
func ShuffleMoves(moves []*model.Move, rng *rand.Rand) {
	rng.Shuffle(len(moves), func(i, j int) { moves[i], moves[j] = moves[j], moves[i] })
}
