// Package robot reads Robot Framework suite files — their variable tables,
// metadata and test lists — and launches the robot child processes that
// execute them. It implements only the small slice of the suite file format
// that metadata extraction needs; everything else in the file is ignored and
// left to the real runner.
package robot

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/vk/medusa/internal/errdefs"
	"github.com/vk/medusa/internal/meta"
	"github.com/vk/medusa/internal/value"
)

// Test is one test case of a suite, as far as stats care about it.
type Test struct {
	Name string
	Tags []string
}

// File is one parsed suite file.
type File struct {
	Path     string
	Name     string
	Vars     *value.Table
	Metadata []meta.Item
	Tests    []Test
}

type section int

const (
	sectionNone section = iota
	sectionSettings
	sectionVariables
	sectionTests
	sectionOther
)

var (
	cellSplitRe = regexp.MustCompile(` {2,}|\t+`)
	varNameRe   = regexp.MustCompile(`^([$@&])\{([^{}]+)\}$`)
)

// ParseFile reads and parses one suite file.
func ParseFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &errdefs.SuiteError{Suite: path, Err: err}
	}
	defer f.Close()

	file, err := parse(path, bufio.NewScanner(f))
	if err != nil {
		return nil, &errdefs.SuiteError{Suite: path, Err: err}
	}
	return file, nil
}

func parse(path string, scanner *bufio.Scanner) (*File, error) {
	file := &File{
		Path: path,
		Name: SuiteName(path),
		Vars: value.NewTable(),
	}

	current := sectionNone
	var lastMeta *meta.Item
	var pending *pendingVar

	// A variable is only defined once its continuation rows are consumed,
	// but before the next declaration, because later rows may reference it.
	flushVar := func() error {
		if pending == nil {
			return nil
		}
		err := defineVariable(file.Vars, *pending)
		pending = nil
		return err
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" {
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}

		if strings.HasPrefix(line, "*") {
			if err := flushVar(); err != nil {
				return nil, err
			}
			current = parseSectionHeader(line)
			lastMeta = nil
			continue
		}

		indented := strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
		cells := splitCells(line)
		if len(cells) == 0 {
			continue
		}

		switch current {
		case sectionSettings:
			lastMeta = parseSettingsRow(file, cells, lastMeta)
		case sectionVariables:
			if cells[0] == "..." && pending != nil {
				pending.values = append(pending.values, cells[1:]...)
				continue
			}
			if err := flushVar(); err != nil {
				return nil, err
			}
			name := strings.TrimSpace(strings.TrimSuffix(cells[0], "="))
			m := varNameRe.FindStringSubmatch(name)
			if m == nil {
				return nil, errdefs.NewVariableError(cells[0], "invalid variable declaration")
			}
			pending = &pendingVar{sigil: m[1][0], name: m[2], values: cells[1:]}
		case sectionTests:
			if !indented {
				file.Tests = append(file.Tests, Test{Name: cells[0]})
			} else if len(file.Tests) > 0 && strings.EqualFold(cells[0], "[Tags]") {
				t := &file.Tests[len(file.Tests)-1]
				t.Tags = append(t.Tags, cells[1:]...)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := flushVar(); err != nil {
		return nil, err
	}
	return file, nil
}

type pendingVar struct {
	sigil  byte
	name   string
	values []string
}

func parseSectionHeader(line string) section {
	name := strings.ToLower(strings.TrimSpace(strings.Trim(line, "*")))
	switch name {
	case "settings", "setting":
		return sectionSettings
	case "variables", "variable":
		return sectionVariables
	case "test cases", "test case", "tasks", "task":
		return sectionTests
	default:
		return sectionOther
	}
}

// parseSettingsRow handles one row of the settings section. Only Metadata
// rows matter; a continuation row extends the previous metadata value.
func parseSettingsRow(file *File, cells []string, lastMeta *meta.Item) *meta.Item {
	if cells[0] == "..." {
		if lastMeta != nil && len(cells) > 1 {
			lastMeta.Value += tokenSep + strings.Join(cells[1:], tokenSep)
		}
		return lastMeta
	}
	if !strings.EqualFold(cells[0], "Metadata") || len(cells) < 2 {
		return nil
	}
	file.Metadata = append(file.Metadata, meta.Item{
		Key:   cells[1],
		Value: strings.Join(cells[2:], tokenSep),
	})
	return &file.Metadata[len(file.Metadata)-1]
}

// tokenSep rejoins value cells so that the metadata reader's split on runs
// of two or more spaces recovers the original cell boundaries.
const tokenSep = "    "

func defineVariable(tbl *value.Table, pv pendingVar) error {
	switch pv.sigil {
	case '$':
		v, err := scalarVariable(tbl, pv.values)
		if err != nil {
			return errdefs.NewVariableError(pv.name, err.Error())
		}
		tbl.Set(pv.name, v)
	case '@':
		elems := make([]value.Value, 0, len(pv.values))
		for _, cell := range pv.values {
			v, err := tbl.Resolve(cell)
			if err != nil {
				return errdefs.NewVariableError(pv.name, err.Error())
			}
			elems = append(elems, v)
		}
		tbl.Set(pv.name, value.Sequence(elems))
	case '&':
		pairs := make([]value.Pair, 0, len(pv.values))
		for _, cell := range pv.values {
			key, rawVal, found := strings.Cut(cell, "=")
			if !found {
				return errdefs.NewVariableError(pv.name, fmt.Sprintf("dictionary entry '%s' has no '='", cell))
			}
			v, err := tbl.Resolve(rawVal)
			if err != nil {
				return errdefs.NewVariableError(pv.name, err.Error())
			}
			pairs = append(pairs, value.Pair{Key: key, Val: v})
		}
		tbl.Set(pv.name, value.Mapping(pairs))
	}
	return nil
}

// scalarVariable resolves the value cells of a ${name} declaration. A single
// cell keeps the shape of whatever it resolves to, so aliasing a list is
// possible; several cells are catenated with single spaces.
func scalarVariable(tbl *value.Table, cells []string) (value.Value, error) {
	switch len(cells) {
	case 0:
		return value.String(""), nil
	case 1:
		return tbl.Resolve(cells[0])
	default:
		parts := make([]string, 0, len(cells))
		for _, cell := range cells {
			s, err := tbl.Substitute(cell)
			if err != nil {
				return value.Value{}, err
			}
			parts = append(parts, s)
		}
		return value.String(strings.Join(parts, " ")), nil
	}
}

func splitCells(line string) []string {
	cells := cellSplitRe.Split(strings.TrimSpace(line), -1)
	out := cells[:0]
	for _, c := range cells {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// SuiteName derives the display name of a suite from its file name, the way
// the runner does: an optional two-underscore ordering prefix is dropped,
// underscores become spaces, and all-lowercase words get title-cased.
func SuiteName(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if _, rest, found := strings.Cut(name, "__"); found {
		name = rest
	}
	words := strings.Split(strings.ReplaceAll(name, "_", " "), " ")
	for i, w := range words {
		if w != "" && w == strings.ToLower(w) {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
