package neighborhood

import (
	"math"
	"math/rand"

	"github.com/katalvaran/tabuforge/pkg/model"
)

// PruningMode selects the order in which ChainBuilder tries earlier FIFO
// entries as partners for the newest move. Neither mode drops candidates:
// every partner under OverlapThreshold and within Capacity is composed.
type PruningMode int

const (
	// ByOverlapRate tries partners in FIFO order, oldest first; pairs are
	// not ranked by overlap rate.
	ByOverlapRate PruningMode = iota
	// Shuffle tries partners in a random order drawn from Rng.
	Shuffle
)

// ChainBuilder composes a size-bounded FIFO of recently applied improving
// moves into Chain-sense moves, up to Capacity links long, per §4.E: "pairs
// of such moves whose combined overlap rate falls below a threshold become
// a new chain move."
type ChainBuilder struct {
	// FIFOSize bounds how many recent improving moves are remembered.
	FIFOSize int
	// Capacity bounds the number of alterations in one chain move (a
	// two-variable move counts twice); 0 or less means 2.
	Capacity int
	// OverlapThreshold is the maximum combined overlap rate a candidate
	// pair may have to be composed.
	OverlapThreshold float64
	Mode             PruningMode
	Rng              *rand.Rand

	recent []*model.Move
	ready  []*model.Move
	seen   map[uint64]bool
}

// Record appends an applied move to the FIFO if it improved the
// incumbent, evicting the oldest entry once FIFOSize is exceeded, and
// immediately attempts composition against the rest of the FIFO.
func (b *ChainBuilder) Record(move *model.Move, improved bool) {
	if !improved {
		return
	}
	b.recent = append(b.recent, move)
	if len(b.recent) > b.FIFOSize && b.FIFOSize > 0 {
		b.recent = b.recent[len(b.recent)-b.FIFOSize:]
	}
	b.compose()
}

// Ready returns every chain move composed since the last call to Ready,
// clearing the internal buffer.
func (b *ChainBuilder) Ready() []*model.Move {
	out := b.ready
	b.ready = nil
	return out
}

// compose pairs the most recent move against earlier FIFO entries (and,
// once a chain exists, extends it) whenever the combined overlap rate
// clears OverlapThreshold, up to Capacity alterations per chain. A pair
// altering any common variable is never composed: the chain would carry
// two alterations of the same variable with an undefined application
// order. A composition whose variable-hash already produced a chain is
// skipped, per §3's hash-based dedup.
func (b *ChainBuilder) compose() {
	if len(b.recent) < 2 {
		return
	}
	newest := b.recent[len(b.recent)-1]
	candidates := b.candidatePartners()
	for _, a := range candidates {
		if sharesVariable(a, newest) {
			continue
		}
		rate := overlapRate(a, newest)
		if rate >= b.OverlapThreshold {
			continue
		}
		capacity := b.Capacity
		if capacity <= 0 {
			capacity = 2
		}
		if len(a.Alterations)+len(newest.Alterations) > capacity {
			continue
		}
		chain := composeChain(a, newest, rate)
		if b.seen == nil {
			b.seen = make(map[uint64]bool)
		}
		if b.seen[chain.Hash] {
			continue
		}
		b.seen[chain.Hash] = true
		b.ready = append(b.ready, chain)
	}
}

// candidatePartners enumerates the earlier FIFO entries to test against
// the newest, in the order Mode dictates.
func (b *ChainBuilder) candidatePartners() []*model.Move {
	partners := append([]*model.Move(nil), b.recent[:len(b.recent)-1]...)
	if b.Mode == Shuffle && b.Rng != nil {
		b.Rng.Shuffle(len(partners), func(i, j int) { partners[i], partners[j] = partners[j], partners[i] })
	}
	return partners
}

// sharesVariable reports whether two moves alter any common variable.
func sharesVariable(a, c *model.Move) bool {
	for _, alt := range a.Alterations {
		if c.Touches(alt.Var) {
			return true
		}
	}
	return false
}

// composeChain concatenates two moves' alterations and related constraints
// into a single Chain-sense move carrying the pair's overlap rate.
func composeChain(a, c *model.Move, rate float64) *model.Move {
	alterations := append(append([]model.Alteration(nil), a.Alterations...), c.Alterations...)
	related := dedupeConstraints(append(append([]model.ConstraintID(nil), a.RelatedConstraints...), c.RelatedConstraints...))
	m := model.NewMove(model.MoveChain, alterations...)
	m.RelatedConstraints = related
	m.OverlapRate = rate
	m.Hash = a.Hash ^ c.Hash
	return m
}

func dedupeConstraints(ids []model.ConstraintID) []model.ConstraintID {
	seen := make(map[model.ConstraintID]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// overlapRate is the geometric mean of the shared-constraint fraction each
// move sees of the other: sqrt((|shared|/|a|) * (|shared|/|c|)).
func overlapRate(a, c *model.Move) float64 {
	if len(a.RelatedConstraints) == 0 || len(c.RelatedConstraints) == 0 {
		return 0
	}
	inA := make(map[model.ConstraintID]bool, len(a.RelatedConstraints))
	for _, id := range a.RelatedConstraints {
		inA[id] = true
	}
	shared := 0
	for _, id := range c.RelatedConstraints {
		if inA[id] {
			shared++
		}
	}
	if shared == 0 {
		return 0
	}
	fracA := float64(shared) / float64(len(a.RelatedConstraints))
	fracC := float64(shared) / float64(len(c.RelatedConstraints))
	return math.Sqrt(fracA * fracC)
}
