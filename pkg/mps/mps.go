// Package mps reads a model.Container from an MPS-format file, grounded on
// original_source/application/printemps/utility/mps_utility.h's
// section-by-section parser, extended with OBJSENSE/OBJNAME recognition and
// genuine RANGES support (the reference throws on RANGES; spec.md requires
// it, so the sign rules below are derived from the MPS format standard
// directly rather than translated from existing code).
package mps

import (
	"bufio"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/katalvaran/tabuforge/internal/errs"
	"github.com/katalvaran/tabuforge/pkg/model"
)

// Options narrows the reader's caller-facing knobs.
type Options struct {
	// AcceptContinuous, when false (the default, matching the reference),
	// rejects any column never bracketed by an INTORG/INTEND marker pair.
	// When true, continuous columns are accepted and treated as integer.
	AcceptContinuous bool
	Logger           *logrus.Logger
}

type readMode int

const (
	modeInitial readMode = iota
	modeName
	modeObjSense
	modeObjName
	modeRows
	modeColumns
	modeRhs
	modeRanges
	modeBounds
	modeEndata
)

type rowKind int

const (
	rowObjective rowKind = iota
	rowLess
	rowEqual
	rowGreater
)

type row struct {
	name    string
	kind    rowKind
	isFree  bool // a non-selected N row: parsed, never built
	rhs     float64
	hasRhs  bool
	rng     float64
	hasRng  bool
	terms   map[string]float64
	varOrd  []string
}

type column struct {
	name      string
	order     int
	isInteger bool

	lo, hi       int
	loSet, hiSet bool
	free         bool
	fixed        bool
	fixedVal     int
}

func newRow(name string, kind rowKind) *row {
	return &row{name: name, kind: kind, terms: make(map[string]float64)}
}

func (r *row) addTerm(varName string, coef float64) {
	if _, ok := r.terms[varName]; !ok {
		r.varOrd = append(r.varOrd, varName)
	}
	r.terms[varName] += coef
}

// Read parses path and returns a populated, not-yet-built model.Container
// (the caller is responsible for running model.NewBuilder(c).Build()).
func Read(path string, opt Options) (*model.Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.At(errs.InputFormat, path, "cannot open MPS file: %v", err)
	}
	defer f.Close()

	name := "model"
	minimize := true
	objNameOverride := ""

	rows := make(map[string]*row)
	var rowOrder []string
	objectiveRowName := ""

	columns := make(map[string]*column)
	var columnOrder []string
	markerInteger := false

	mode := modeInitial

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	endataSeen := false

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "*") {
			continue
		}
		items := strings.Fields(trimmed)

		switch items[0] {
		case "NAME":
			mode = modeName
			if len(items) >= 2 {
				name = items[1]
			}
			continue
		case "OBJSENSE":
			mode = modeObjSense
			continue
		case "OBJSENS":
			mode = modeObjSense
			continue
		case "OBJNAME":
			mode = modeObjName
			continue
		case "ROWS":
			mode = modeRows
			continue
		case "COLUMNS":
			mode = modeColumns
			continue
		case "RHS":
			mode = modeRhs
			continue
		case "RANGES":
			mode = modeRanges
			continue
		case "BOUNDS":
			mode = modeBounds
			continue
		case "ENDATA":
			mode = modeEndata
			endataSeen = true
			goto doneScan
		}

		switch mode {
		case modeObjSense:
			switch strings.ToUpper(items[0]) {
			case "MIN", "MINIMIZE", "MINIMIZATION":
				minimize = true
			case "MAX", "MAXIMIZE", "MAXIMIZATION":
				minimize = false
			default:
				return nil, errs.At(errs.InputFormat, path,
					"line %d: unrecognized OBJSENSE token %q", lineNo, items[0])
			}

		case modeObjName:
			objNameOverride = items[0]

		case modeRows:
			if len(items) < 2 {
				return nil, errs.At(errs.InputFormat, path, "line %d: malformed ROWS entry", lineNo)
			}
			rname := items[1]
			var kind rowKind
			switch items[0] {
			case "N":
				kind = rowObjective
			case "L":
				kind = rowLess
			case "E":
				kind = rowEqual
			case "G":
				kind = rowGreater
			default:
				return nil, errs.At(errs.InputFormat, path,
					"line %d: unrecognized row type %q", lineNo, items[0])
			}
			r := newRow(rname, kind)
			if kind == rowObjective && objectiveRowName == "" {
				objectiveRowName = rname
			}
			rows[rname] = r
			rowOrder = append(rowOrder, rname)

		case modeColumns:
			if len(items) >= 3 && (items[1] == "'MARKER'" || items[len(items)-1] == "'MARKER'") {
				switch items[len(items)-1] {
				case "'INTORG'":
					markerInteger = true
				case "'INTEND'":
					markerInteger = false
				}
				continue
			}
			if len(items) < 3 {
				return nil, errs.At(errs.InputFormat, path, "line %d: malformed COLUMNS entry", lineNo)
			}
			vname := items[0]
			col, ok := columns[vname]
			if !ok {
				col = &column{name: vname, order: len(columnOrder), isInteger: markerInteger}
				columns[vname] = col
				columnOrder = append(columnOrder, vname)
			} else if markerInteger {
				col.isInteger = true
			}
			for i := 1; i+1 < len(items); i += 2 {
				rowName := items[i]
				value, err := strconv.ParseFloat(items[i+1], 64)
				if err != nil {
					return nil, errs.At(errs.InputFormat, path,
						"line %d: bad coefficient %q", lineNo, items[i+1])
				}
				r, ok := rows[rowName]
				if !ok {
					return nil, errs.At(errs.InputFormat, path,
						"line %d: COLUMNS references undeclared row %q", lineNo, rowName)
				}
				r.addTerm(vname, value)
			}

		case modeRhs:
			for i := 1; i+1 < len(items); i += 2 {
				rowName := items[i]
				value, err := strconv.ParseFloat(items[i+1], 64)
				if err != nil {
					return nil, errs.At(errs.InputFormat, path, "line %d: bad RHS value %q", lineNo, items[i+1])
				}
				r, ok := rows[rowName]
				if !ok {
					return nil, errs.At(errs.InputFormat, path,
						"line %d: RHS references undeclared row %q", lineNo, rowName)
				}
				r.rhs, r.hasRhs = value, true
			}

		case modeRanges:
			for i := 1; i+1 < len(items); i += 2 {
				rowName := items[i]
				value, err := strconv.ParseFloat(items[i+1], 64)
				if err != nil {
					return nil, errs.At(errs.InputFormat, path, "line %d: bad RANGES value %q", lineNo, items[i+1])
				}
				r, ok := rows[rowName]
				if !ok {
					return nil, errs.At(errs.InputFormat, path,
						"line %d: RANGES references undeclared row %q", lineNo, rowName)
				}
				r.rng, r.hasRng = value, true
			}

		case modeBounds:
			if len(items) < 3 {
				return nil, errs.At(errs.InputFormat, path, "line %d: malformed BOUNDS entry", lineNo)
			}
			category := items[0]
			vname := items[2]
			col, ok := columns[vname]
			if !ok {
				return nil, errs.At(errs.InputFormat, path,
					"line %d: BOUNDS references undeclared variable %q", lineNo, vname)
			}
			if err := applyBound(col, category, items, path, lineNo, opt.Logger); err != nil {
				return nil, err
			}
		}
	}

doneScan:
	if err := scanner.Err(); err != nil {
		return nil, errs.At(errs.InputFormat, path, "read error: %v", err)
	}
	if !endataSeen {
		return nil, errs.At(errs.InputFormat, path, "missing ENDATA section")
	}

	if objNameOverride != "" {
		r, ok := rows[objNameOverride]
		if !ok || r.kind != rowObjective {
			return nil, errs.At(errs.InputFormat, path,
				"OBJNAME %q does not name a declared objective row", objNameOverride)
		}
		objectiveRowName = objNameOverride
	}
	if objectiveRowName == "" {
		return nil, errs.At(errs.InputFormat, path, "no objective (N) row declared")
	}

	for _, rname := range rowOrder {
		r := rows[rname]
		if r.kind == rowObjective && rname != objectiveRowName {
			r.isFree = true
		}
	}

	// Default an integer column with no explicit BOUNDS entry to [0,1], the
	// MPS-standard convention for undefined-bound integer columns.
	for _, vname := range columnOrder {
		col := columns[vname]
		if col.isInteger && !col.loSet && !col.hiSet && !col.free && !col.fixed {
			col.lo, col.hi = 0, 1
			col.loSet, col.hiSet = true, true
		}
	}

	c := model.NewContainer(name)
	varIDs := make(map[string]model.VarID, len(columnOrder))

	for _, vname := range columnOrder {
		col := columns[vname]
		if !col.isInteger && !opt.AcceptContinuous {
			return nil, errs.At(errs.InputFormat, path,
				"variable %q is continuous; pass accept_continuous to treat it as integer", vname)
		}

		lo, hi := col.lo, col.hi
		if col.free {
			lo, hi = model.NegInf, model.PosInf
		}
		if !col.loSet && !col.free {
			lo = 0
		}
		if !col.hiSet && !col.free {
			hi = model.PosInf
		}
		if col.fixed {
			lo, hi = col.fixedVal, col.fixedVal
		}
		id := c.NewVariable(vname, lo, hi)
		varIDs[vname] = id
	}

	objExpr := c.NewExpression(objectiveRowName)
	objRow := rows[objectiveRowName]
	for _, vname := range objRow.varOrd {
		vid, ok := varIDs[vname]
		if !ok {
			continue
		}
		c.Expression(objExpr).AddTerm(vid, objRow.terms[vname])
	}
	if objRow.hasRhs {
		// The objective row's RHS entry is the constant term to subtract
		// from the objective (standard MPS convention for N-row RHS).
		c.Expression(objExpr).AddConstant(-objRow.rhs)
	}
	c.SetObjective(objExpr, minimize)

	for _, rname := range rowOrder {
		r := rows[rname]
		if r.kind == rowObjective {
			continue
		}
		if err := buildConstraintRow(c, varIDs, r, path); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// buildConstraintRow installs r as one or two model constraints, splitting
// into a Less/Greater pair when RANGES narrowed the row to a two-sided
// bound (the sign rules below are the MPS format standard's, not the
// teacher's — see the package doc comment).
func buildConstraintRow(c *model.Container, varIDs map[string]model.VarID, r *row, path string) error {
	buildExpr := func(constant float64) model.ExprID {
		id := c.NewExpression(r.name)
		for _, vname := range r.varOrd {
			vid, ok := varIDs[vname]
			if !ok {
				return id
			}
			c.Expression(id).AddTerm(vid, r.terms[vname])
		}
		c.Expression(id).AddConstant(constant)
		return id
	}

	if !r.hasRng {
		var sense model.ConstraintSense
		switch r.kind {
		case rowLess:
			sense = model.Less
		case rowGreater:
			sense = model.Greater
		default:
			sense = model.Equal
		}
		expr := buildExpr(-r.rhs)
		cid := c.NewConstraint(r.name, expr, sense)
		c.Constraint(cid).SetPenaltyCoefficients(1, 1, 1)
		return nil
	}

	lo, hi := rangeBounds(r.kind, r.rhs, r.rng)

	upperExpr := buildExpr(-hi)
	upperID := c.NewConstraint(r.name+"_upper", upperExpr, model.Less)
	c.Constraint(upperID).SetPenaltyCoefficients(1, 1, 1)

	lowerExpr := buildExpr(-lo)
	lowerID := c.NewConstraint(r.name+"_lower", lowerExpr, model.Greater)
	c.Constraint(lowerID).SetPenaltyCoefficients(1, 1, 1)

	return nil
}

// rangeBounds computes [lo, hi] for a ranged row per the MPS standard's sign
// rules: an E row's range sign decides which side the magnitude extends;
// L and G rows always extend away from their single declared side.
func rangeBounds(kind rowKind, rhs, r float64) (lo, hi float64) {
	mag := math.Abs(r)
	switch kind {
	case rowLess:
		return rhs - mag, rhs
	case rowGreater:
		return rhs, rhs + mag
	default: // Equal
		if r >= 0 {
			return rhs, rhs + mag
		}
		return rhs - mag, rhs
	}
}

// applyBound updates col per one BOUNDS-section line, mirroring
// mps_utility.h's category dispatch. Fractional bound values are floored
// (with a logged warning) since every TabuForge variable is integer-valued.
func applyBound(col *column, category string, items []string, path string, lineNo int, logger *logrus.Logger) error {
	switch category {
	case "FR":
		col.free = true
		return nil
	case "BV":
		col.isInteger = true
		col.lo, col.hi = 0, 1
		col.loSet, col.hiSet = true, true
		return nil
	case "MI":
		col.lo = model.NegInf
		col.loSet = true
		if !col.hiSet {
			col.hi = 0
			col.hiSet = true
		}
		return nil
	case "PL":
		col.hi = model.PosInf
		col.hiSet = true
		if !col.loSet {
			col.lo = 0
			col.loSet = true
		}
		return nil
	}

	if len(items) < 4 {
		return errs.At(errs.InputFormat, path, "line %d: BOUNDS category %q requires a value", lineNo, category)
	}
	raw, err := strconv.ParseFloat(items[3], 64)
	if err != nil {
		return errs.At(errs.InputFormat, path, "line %d: bad bound value %q", lineNo, items[3])
	}
	value := floorWithWarning(raw, col.name, logger)

	switch category {
	case "LO":
		col.lo, col.loSet = value, true
	case "LI":
		col.isInteger = true
		col.lo, col.loSet = value, true
	case "UP":
		col.hi, col.hiSet = value, true
	case "UI":
		col.isInteger = true
		col.hi, col.hiSet = value, true
	case "FX":
		col.fixed = true
		col.fixedVal = value
	default:
		return errs.At(errs.InputFormat, path, "line %d: unrecognized BOUNDS category %q", lineNo, category)
	}
	return nil
}

func floorWithWarning(v float64, varName string, logger *logrus.Logger) int {
	floored := math.Floor(v)
	if floored != v && logger != nil {
		logger.WithField("variable", varName).WithField("value", v).
			Warn("MPS bound value is not integral; flooring to the nearest integer")
	}
	return int(floored)
}
