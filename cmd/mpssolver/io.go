package main

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/katalvaran/tabuforge/internal/errs"
)

// readNames parses a file of one variable (or constraint) name per
// non-blank line, for the -m and -s flags.
func readNames(path string) ([]string, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, fields := range lines {
		if len(fields) != 1 {
			continue
		}
		names = append(names, fields[0])
	}
	return names, nil
}

// readNameValues parses a file of "name value" lines, for the -f flag (the
// same two-token format solution.Read uses for -i, but with exact integer
// parsing since fixed values must match the container's bounds precisely).
func readNameValues(path string) (map[string]int, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(lines))
	for _, fields := range lines {
		if len(fields) != 2 {
			continue
		}
		value, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, errs.At(errs.InputFormat, path, "bad value %q for %q", fields[1], fields[0])
		}
		out[fields[0]] = value
	}
	return out, nil
}

// namePair is one "name name" line from a flippable-variable-pair file.
type namePair struct{ A, B string }

// readNamePairs parses a file of "name name" lines, for the -x flag.
func readNamePairs(path string) ([]namePair, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	var pairs []namePair
	for _, fields := range lines {
		if len(fields) != 2 {
			continue
		}
		pairs = append(pairs, namePair{A: fields[0], B: fields[1]})
	}
	return pairs, nil
}

// readLines returns every non-blank line's whitespace-separated fields.
func readLines(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.At(errs.InputFormat, path, "cannot open file: %v", err)
	}
	defer f.Close()

	var out [][]string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		out = append(out, fields)
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.At(errs.InputFormat, path, "read error: %v", err)
	}
	return out, nil
}
