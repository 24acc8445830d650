package options

import (
	"fmt"
	"time"

	"github.com/katalvaran/tabuforge/internal/solverlog"
)

// enumOrdinalOrName resolves a decoded JSON value (a float64 from a JSON
// number, or a string from a JSON name) against names, the enum's
// ordinal-to-name table inverted for name lookup. raw == nil (key absent)
// returns dflt unchanged. This is the shared core behind every *Raw field's
// resolution below, implementing "enumerated options accept both the
// integer ordinal and the string name."
func enumOrdinalOrName(raw interface{}, names map[string]int, dflt int) (int, error) {
	switch v := raw.(type) {
	case nil:
		return dflt, nil
	case float64:
		return int(v), nil
	case string:
		if n, ok := names[v]; ok {
			return n, nil
		}
		return dflt, fmt.Errorf("unrecognized enum name %q", v)
	default:
		return dflt, fmt.Errorf("unsupported enum value type %T", raw)
	}
}

func invert(m map[string]SelectionMode) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = int(v)
	}
	return out
}

func invertScreening(m map[string]ImprovabilityScreeningMode) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = int(v)
	}
	return out
}

func invertTabu(m map[string]TabuMode) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = int(v)
	}
	return out
}

func invertChain(m map[string]ChainMoveReduceMode) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = int(v)
	}
	return out
}

// Resolve converts every *Raw enum/duration field decoded from JSON into
// its typed counterpart. Called once after json.Unmarshal populates an
// Options value seeded from Default(); unresolvable enum values fall back
// to the value already present in the typed field (i.e. the default),
// matching option_utility.h's read_json returning false on a bad value
// rather than raising a fatal error.
func (o *Options) Resolve() {
	o.General.TimeMax = time.Duration(o.General.TimeMaxSeconds * float64(time.Second))

	if v, err := enumOrdinalOrName(o.General.VerboseRaw, verboseNameOrdinals(), int(o.General.Verbose)); err == nil {
		o.General.Verbose = verboseFromOrdinal(v)
	}

	if v, err := enumOrdinalOrName(o.Preprocess.SelectionModeRaw, invert(selectionModeNames), int(o.Preprocess.SelectionMode)); err == nil {
		o.Preprocess.SelectionMode = SelectionMode(v)
	}

	if v, err := enumOrdinalOrName(o.Neighborhood.ChainMoveReduceModeRaw, invertChain(chainMoveReduceModeNames), int(o.Neighborhood.ChainMoveReduceMode)); err == nil {
		o.Neighborhood.ChainMoveReduceMode = ChainMoveReduceMode(v)
	}

	if v, err := enumOrdinalOrName(o.Neighborhood.ImprovabilityScreeningModeRaw, invertScreening(screeningModeNames), int(o.Neighborhood.ImprovabilityScreeningMode)); err == nil {
		o.Neighborhood.ImprovabilityScreeningMode = ImprovabilityScreeningMode(v)
	}

	if v, err := enumOrdinalOrName(o.TabuSearch.TabuModeRaw, invertTabu(tabuModeNames), int(o.TabuSearch.TabuMode)); err == nil {
		o.TabuSearch.TabuMode = TabuMode(v)
	}
}

func verboseNameOrdinals() map[string]int {
	return map[string]int{"Off": 0, "Warning": 1, "Outer": 2, "Inner": 3, "Full": 4}
}

func verboseFromOrdinal(v int) solverlog.Verbose {
	return solverlog.Verbose(v)
}
