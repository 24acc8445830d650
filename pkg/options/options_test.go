package options

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/katalvaran/tabuforge/internal/solverlog"
	"github.com/katalvaran/tabuforge/pkg/preprocess"
)

func TestDefaultProducesSaneBundle(t *testing.T) {
	o := Default()
	assert.Equal(t, 10000, o.General.IterationMax)
	assert.True(t, o.General.IsEnabledPresolve)
	assert.Equal(t, 0.90, o.Penalty.RelaxingRate)
	assert.Equal(t, 10, o.Neighborhood.ChainMoveCapacity)
}

func TestResolveDefaultsVerboseToWarning(t *testing.T) {
	o := Default()
	o.Resolve()
	assert.Equal(t, solverlog.Warning, o.General.Verbose)
}

func TestResolveAcceptsOrdinalOrName(t *testing.T) {
	o := Default()
	o.General.VerboseRaw = "Full"
	o.Preprocess.SelectionModeRaw = float64(2) // Smaller
	o.TabuSearch.TabuModeRaw = "Any"
	o.Resolve()

	assert.Equal(t, solverlog.Full, o.General.Verbose)
	assert.Equal(t, SelectionSmaller, o.Preprocess.SelectionMode)
	assert.Equal(t, TabuAny, o.TabuSearch.TabuMode)
}

func TestResolveFallsBackOnUnrecognizedName(t *testing.T) {
	o := Default()
	o.Preprocess.SelectionMode = SelectionDefined
	o.Preprocess.SelectionModeRaw = "NotARealMode"
	o.Resolve()
	assert.Equal(t, SelectionDefined, o.Preprocess.SelectionMode)
}

func TestSelectionModeStrategyMapping(t *testing.T) {
	strategy, ok := SelectionSmaller.Strategy()
	assert.True(t, ok)
	assert.Equal(t, preprocess.AscendingSize, strategy)

	_, ok = SelectionOff.Strategy()
	assert.False(t, ok)

	_, ok = SelectionUserDefined.Strategy()
	assert.False(t, ok)
}

func TestResolveComputesTimeMaxDuration(t *testing.T) {
	o := Default()
	o.General.TimeMaxSeconds = 2.5
	o.Resolve()
	assert.Equal(t, 2500*1000*1000, int(o.General.TimeMax))
}
