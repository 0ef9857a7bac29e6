// Package spacefile parses the bracketed resource definition format:
//
//	[package paramiko]
//	_provider: PipProvider
//	name: paramiko
//	version: 1.15.2
//
//	[virtualenv test]
//	_use: [virtualenv]
//	path: $WORKSPACE/venv
//
//	[project test] requires [repo test], [package paramiko]
//
// Blocks are opened by a `[kind name]` header and hold `key: value` lines.
// The keys `_provider` and `_use` are structural; everything else is a
// provider-specific attribute. Explicit dependencies are declared outside
// blocks as `[A] requires [B], [C]`. A `#` starts a comment; lines without
// a colon continue the previous option's value.
package spacefile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/vk/spacesd/internal/model"
)

var (
	bracketPattern  = regexp.MustCompile(`\[([^\[\]]+)\]`)
	requiresPattern = regexp.MustCompile(`^\[([^\[\]]+)\]\s+requires\s+(.+)$`)
	optionPattern   = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*:\s*(.*)$`)
)

// ParseError reports a syntax error with its line number.
type ParseError struct {
	Line int
	Text string
	Msg  string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d |%s| %s", e.Line, e.Text, e.Msg)
}

// pendingRequires is a requires declaration waiting for its target block.
type pendingRequires struct {
	line    int
	text    string
	id      model.ResourceID
	targets []model.ResourceID
}

// ParseFile parses the space file at path.
func ParseFile(path string) ([]*model.Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	defs, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// Parse reads resource definitions from r. Duplicate identifiers are passed
// through untouched; the graph builder owns that validation.
func Parse(r io.Reader) ([]*model.Definition, error) {
	var (
		defs     []*model.Definition
		current  *model.Definition
		lastKey  string
		requires []pendingRequires
	)

	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		raw := scanner.Text()
		line := raw
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case requiresPattern.MatchString(line):
			m := requiresPattern.FindStringSubmatch(line)
			id, err := model.ParseResourceID(m[1])
			if err != nil {
				return nil, &ParseError{Line: lineno, Text: raw, Msg: err.Error()}
			}
			targets, err := parseRefList(m[2])
			if err != nil {
				return nil, &ParseError{Line: lineno, Text: raw, Msg: err.Error()}
			}
			requires = append(requires, pendingRequires{line: lineno, text: raw, id: id, targets: targets})
			current, lastKey = nil, ""

		case strings.HasPrefix(line, "["):
			if !strings.HasSuffix(line, "]") {
				return nil, &ParseError{Line: lineno, Text: raw, Msg: "bad section syntax"}
			}
			id, err := model.ParseResourceID(line)
			if err != nil {
				return nil, &ParseError{Line: lineno, Text: raw, Msg: err.Error()}
			}
			current = model.NewDefinition(id)
			defs = append(defs, current)
			lastKey = ""

		case optionPattern.MatchString(line):
			if current == nil {
				return nil, &ParseError{Line: lineno, Text: raw, Msg: "option not within section"}
			}
			m := optionPattern.FindStringSubmatch(line)
			key, value := m[1], strings.TrimSpace(m[2])
			if err := setOption(current, key, value); err != nil {
				return nil, &ParseError{Line: lineno, Text: raw, Msg: err.Error()}
			}
			lastKey = key

		default:
			// Continuation line: appended to the previous option's value.
			if current == nil || lastKey == "" {
				return nil, &ParseError{Line: lineno, Text: raw, Msg: "continuation without preceding option"}
			}
			if err := appendOption(current, lastKey, line); err != nil {
				return nil, &ParseError{Line: lineno, Text: raw, Msg: err.Error()}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	byID := make(map[model.ResourceID]*model.Definition, len(defs))
	for _, d := range defs {
		if _, ok := byID[d.ID]; !ok {
			byID[d.ID] = d
		}
	}
	for _, req := range requires {
		def, ok := byID[req.id]
		if !ok {
			return nil, &ParseError{Line: req.line, Text: req.text,
				Msg: fmt.Sprintf("requires declaration references undefined resource %s", req.id.Bracket())}
		}
		def.Requires = append(def.Requires, req.targets...)
	}

	return defs, nil
}

// setOption records a key/value pair on the definition, routing the
// structural _provider and _use keys to their dedicated fields.
func setOption(def *model.Definition, key, value string) error {
	switch key {
	case model.ProviderKey:
		if def.Provider != "" {
			return fmt.Errorf("duplicate %s option", model.ProviderKey)
		}
		if value == "" {
			return fmt.Errorf("%s option has no value", model.ProviderKey)
		}
		def.Provider = value
	case model.UseKey:
		refs, err := parseRefList(value)
		if err != nil {
			return err
		}
		def.Uses = append(def.Uses, refs...)
	default:
		if _, ok := def.Attrs[key]; ok {
			return fmt.Errorf("duplicate option %q", key)
		}
		def.Attrs[key] = value
	}
	return nil
}

// appendOption extends a previously set option with a continuation value.
func appendOption(def *model.Definition, key, value string) error {
	if key == model.UseKey {
		refs, err := parseRefList(value)
		if err != nil {
			return err
		}
		def.Uses = append(def.Uses, refs...)
		return nil
	}
	if key == model.ProviderKey {
		return fmt.Errorf("%s option does not allow continuation lines", model.ProviderKey)
	}
	def.Attrs[key] = def.Attrs[key] + "\n" + value
	return nil
}

// parseRefList parses a comma or whitespace separated list of bracket
// references such as "[virtualenv], [env test]".
func parseRefList(s string) ([]model.ResourceID, error) {
	matches := bracketPattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("expected bracket references, got %q", s)
	}
	leftover := bracketPattern.ReplaceAllString(s, "")
	leftover = strings.Trim(leftover, " ,\t")
	if leftover != "" {
		return nil, fmt.Errorf("unexpected text %q in reference list", leftover)
	}
	refs := make([]model.ResourceID, 0, len(matches))
	for _, m := range matches {
		id, err := model.ParseResourceID(m[1])
		if err != nil {
			return nil, err
		}
		refs = append(refs, id)
	}
	return refs, nil
}
