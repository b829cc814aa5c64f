// Package manifest parses Viper's plain-text, line-oriented project
// manifest (spec.md §6): one directive per line, blank lines and
// `#`-prefixed comments ignored. Unknown directives and duplicate
// single-valued directives are rejected with a `file:line: <message>`
// diagnostic, matching the discipline internal/module's loader uses for
// its own load errors.
package manifest

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Lang is the source language a project's entry point is written in.
type Lang string

const (
	LangZia   Lang = "zia"
	LangBasic Lang = "basic"
)

// OptLevel is the default optimisation pipeline a manifest selects.
type OptLevel string

const (
	O0 OptLevel = "O0"
	O1 OptLevel = "O1"
	O2 OptLevel = "O2"
)

// Manifest is the fully parsed, validated contents of a project manifest
// file.
type Manifest struct {
	Project  string
	Version  string
	Lang     Lang
	Entry    string
	Sources  []string
	Exclude  []string
	Optimize OptLevel

	BoundsChecks   bool
	OverflowChecks bool
	NullChecks     bool

	// seen tracks which single-valued directives have already appeared,
	// to reject a second occurrence as a duplicate.
	seen map[string]int
}

// defaults matches §6's stated invariant-check defaults: every
// correctness check on, O1 optimisation.
func defaults() *Manifest {
	return &Manifest{
		Optimize:       O1,
		BoundsChecks:   true,
		OverflowChecks: true,
		NullChecks:     true,
		seen:           map[string]int{},
	}
}

// Load reads, parses, and validates a project manifest file.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	m := defaults()
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if err := m.applyDirective(path, line, text); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	if err := m.validate(path); err != nil {
		return nil, err
	}
	return m, nil
}

// applyDirective parses one non-blank, non-comment line of the form
// `key value...` and applies it to m, or returns a `file:line: message`
// error for an unknown directive, a missing value, or a duplicate
// single-valued directive.
func (m *Manifest) applyDirective(path string, line int, text string) error {
	fields := strings.Fields(text)
	key := fields[0]
	value := strings.TrimSpace(strings.TrimPrefix(text, key))

	if !knownDirectives[key] {
		return lineErr(path, line, fmt.Sprintf("unknown directive %q", key))
	}

	repeatable := key == "sources" || key == "exclude"
	if !repeatable && m.seen[key] > 0 {
		return lineErr(path, line, fmt.Sprintf("duplicate directive %q", key))
	}
	m.seen[key]++

	if value == "" {
		return lineErr(path, line, fmt.Sprintf("missing value for directive %q", key))
	}

	switch key {
	case "project":
		m.Project = value
	case "version":
		m.Version = value
	case "lang":
		switch Lang(value) {
		case LangZia, LangBasic:
			m.Lang = Lang(value)
		default:
			return lineErr(path, line, fmt.Sprintf("invalid lang %q (want zia or basic)", value))
		}
	case "entry":
		m.Entry = value
	case "sources":
		m.Sources = append(m.Sources, value)
	case "exclude":
		m.Exclude = append(m.Exclude, value)
	case "optimize":
		switch OptLevel(value) {
		case O0, O1, O2:
			m.Optimize = OptLevel(value)
		default:
			return lineErr(path, line, fmt.Sprintf("invalid optimize level %q (want O0, O1, or O2)", value))
		}
	case "bounds-checks":
		b, err := parseOnOff(value)
		if err != nil {
			return lineErr(path, line, err.Error())
		}
		m.BoundsChecks = b
	case "overflow-checks":
		b, err := parseOnOff(value)
		if err != nil {
			return lineErr(path, line, err.Error())
		}
		m.OverflowChecks = b
	case "null-checks":
		b, err := parseOnOff(value)
		if err != nil {
			return lineErr(path, line, err.Error())
		}
		m.NullChecks = b
	}
	return nil
}

var knownDirectives = map[string]bool{
	"project": true, "version": true, "lang": true, "entry": true,
	"sources": true, "exclude": true, "optimize": true,
	"bounds-checks": true, "overflow-checks": true, "null-checks": true,
}

func parseOnOff(value string) (bool, error) {
	switch value {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid value %q (want on or off)", value)
	}
}

// validate checks that every mandatory directive was supplied.
func (m *Manifest) validate(path string) error {
	var missing []string
	if m.Project == "" {
		missing = append(missing, "project")
	}
	if m.Version == "" {
		missing = append(missing, "version")
	}
	if m.Lang == "" {
		missing = append(missing, "lang")
	}
	if m.Entry == "" {
		missing = append(missing, "entry")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: missing required directive(s): %s", path, strings.Join(missing, ", "))
	}
	return nil
}

func lineErr(path string, line int, message string) error {
	return fmt.Errorf("%s:%d: %s", path, line, message)
}
