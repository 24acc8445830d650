// Package optionfile reads the solver's on-disk JSON option file into a
// pkg/options.Options bundle, grounded on option_utility.h's read_option.
package optionfile

import (
	"encoding/json"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/katalvaran/tabuforge/internal/errs"
	"github.com/katalvaran/tabuforge/pkg/options"
)

var knownSections = map[string]bool{
	"general": true, "penalty": true, "parallel": true, "preprocess": true,
	"neighborhood": true, "output": true, "pdlp": true,
	"lagrange_dual": true, "local_search": true, "tabu_search": true,
}

// sectionTargets points at each nested field of an in-progress
// options.Options so sectionTarget can dispatch a decoded top-level key to
// the right destination struct.
type sectionTargets struct {
	General      *options.General
	Penalty      *options.Penalty
	Parallel     *options.Parallel
	Preprocess   *options.Preprocess
	Neighborhood *options.Neighborhood
	Output       *options.Output
	LagrangeDual *options.LagrangeDual
	LocalSearch  *options.LocalSearch
	TabuSearch   *options.TabuSearch
}

// Read loads path, decodes it into a copy of options.Default(), and
// resolves every enumerated field (ordinal or name). Unknown top-level
// keys are logged once at Debug and otherwise ignored; a "pdlp" section is
// recognized (PDLPAccepted is set) but never decoded into a struct, since
// no solver component consumes it. Missing sections or fields keep their
// default value.
func Read(path string, logger *logrus.Logger) (*options.Options, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.InputFormat, path, err)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, errs.At(errs.Option, path, "malformed option file: %v", err)
	}

	opt := options.Default()
	targets := sectionTargets{
		General: &opt.General, Penalty: &opt.Penalty, Parallel: &opt.Parallel,
		Preprocess: &opt.Preprocess, Neighborhood: &opt.Neighborhood,
		Output: &opt.Output, LagrangeDual: &opt.LagrangeDual,
		LocalSearch: &opt.LocalSearch, TabuSearch: &opt.TabuSearch,
	}

	for key, body := range top {
		if !knownSections[key] {
			if logger != nil {
				logger.Debugf("optionfile: ignoring unknown section %q", key)
			}
			continue
		}
		if key == "pdlp" {
			opt.PDLPAccepted = true
			if logger != nil {
				logger.Debugf("optionfile: accepted but unused section %q (no corresponding component)", key)
			}
			continue
		}
		target := sectionTarget(&targets, key)
		if target == nil {
			continue
		}
		if err := json.Unmarshal(body, target); err != nil {
			return nil, errs.At(errs.Option, path, "section %q: %v", key, err)
		}
	}

	opt.Resolve()
	return opt, nil
}

func sectionTarget(t *sectionTargets, key string) interface{} {
	switch key {
	case "general":
		return t.General
	case "penalty":
		return t.Penalty
	case "parallel":
		return t.Parallel
	case "preprocess":
		return t.Preprocess
	case "neighborhood":
		return t.Neighborhood
	case "output":
		return t.Output
	case "lagrange_dual":
		return t.LagrangeDual
	case "local_search":
		return t.LocalSearch
	case "tabu_search":
		return t.TabuSearch
	default:
		return nil
	}
}
