package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvaran/tabuforge/pkg/model"
	"github.com/katalvaran/tabuforge/pkg/mps"
)

const roundTripMPS = `NAME          RTRIP
ROWS
 N  COST
 L  LIM1
 E  BAL1
COLUMNS
    MARKER                 'MARKER'                 'INTORG'
    X1        COST            1.0   LIM1             2.0
    X1        BAL1            1.0
    X2        COST            3.0   LIM1             1.0
    X2        BAL1            1.0
    MARKER                 'MARKER'                 'INTEND'
RHS
    RHS       LIM1            8.0   BAL1             1.0
BOUNDS
 UP BND       X1              4.0
 BV BND       X2
ENDATA
`

// TestInstanceViewRoundTripsMPS covers the round-trip law: parsing an MPS
// file and exporting the instance view must preserve every name, bound,
// sense, and coefficient the file declared.
func TestInstanceViewRoundTripsMPS(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rtrip.mps")
	require.NoError(t, os.WriteFile(path, []byte(roundTripMPS), 0o644))

	c, err := mps.Read(path, mps.Options{})
	require.NoError(t, err)
	require.NoError(t, model.NewBuilder(c).Build())

	view := instanceView(c)

	assert.Equal(t, "RTRIP", view.Name)
	assert.True(t, view.Minimize)

	require.Len(t, view.Variables, 2)
	byName := make(map[string]instanceVariable)
	for _, v := range view.Variables {
		byName[v.Name] = v
	}
	assert.Equal(t, instanceVariable{Name: "X1", Lower: 0, Upper: 4}, byName["X1"])
	assert.Equal(t, instanceVariable{Name: "X2", Lower: 0, Upper: 1}, byName["X2"])

	require.Len(t, view.Constraints, 2)
	consByName := make(map[string]instanceConstraint)
	for _, k := range view.Constraints {
		consByName[k.Name] = k
	}
	lim := consByName["LIM1"]
	assert.Equal(t, model.Less.String(), lim.Sense)
	coefs := make(map[string]float64)
	for _, term := range lim.Terms {
		coefs[term.Variable] = term.Coef
	}
	assert.InDelta(t, 2.0, coefs["X1"], 1e-9)
	assert.InDelta(t, 1.0, coefs["X2"], 1e-9)

	bal := consByName["BAL1"]
	assert.Equal(t, model.Equal.String(), bal.Sense)

	objCoefs := make(map[string]float64)
	for _, term := range view.Objective {
		objCoefs[term.Variable] = term.Coef
	}
	assert.InDelta(t, 1.0, objCoefs["X1"], 1e-9)
	assert.InDelta(t, 3.0, objCoefs["X2"], 1e-9)
}

func TestExitCodeDistinguishesUsageErrors(t *testing.T) {
	assert.Equal(t, 1, exitCode(&usageError{"conflicting flags"}))
	assert.Equal(t, 2, exitCode(os.ErrNotExist))
}

func TestBaseNameStripsDirectoryAndExtension(t *testing.T) {
	assert.Equal(t, "model", baseName("/tmp/runs/model.mps"))
	assert.Equal(t, "model", baseName("model.mps"))
	assert.Equal(t, "model", baseName(`C:\data\model.mps`))
}
