// Package solverlog provides the structured logger shared by the
// preprocessing pipeline, the tabu-search core, and the outer solver. It
// maps the option file's five-level Verbose enum onto logrus levels so
// that every subsystem logs through one consistently configured sink.
package solverlog

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Verbose mirrors option_utility.h's verbose enum: Off, Warning, Outer,
// Inner, Full, in increasing order of detail.
type Verbose int

const (
	Off Verbose = iota
	Warning
	Outer
	Inner
	Full
)

var verboseNames = map[string]Verbose{
	"Off":     Off,
	"Warning": Warning,
	"Outer":   Outer,
	"Inner":   Inner,
	"Full":    Full,
}

// ParseVerbose accepts either the string name or its integer ordinal,
// matching the option file's "enumerated options accept either their
// integer ordinal or their string name" contract.
func ParseVerbose(name string) (Verbose, bool) {
	if v, ok := verboseNames[name]; ok {
		return v, true
	}
	ordinal, err := strconv.Atoi(name)
	if err != nil || ordinal < int(Off) || ordinal > int(Full) {
		return 0, false
	}
	return Verbose(ordinal), true
}

// New builds a logrus.Logger whose level is derived from verbose. Off
// suppresses all output; Warning and above log through increasing detail.
func New(verbose Verbose) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	switch {
	case verbose <= Off:
		logger.SetOutput(discardWriter{})
	case verbose == Warning:
		logger.SetLevel(logrus.WarnLevel)
	case verbose == Outer:
		logger.SetLevel(logrus.InfoLevel)
	case verbose == Inner:
		logger.SetLevel(logrus.DebugLevel)
	default: // Full
		logger.SetLevel(logrus.TraceLevel)
	}
	return logger
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
