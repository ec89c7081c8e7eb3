// Package template expands a user-supplied editor command pattern into a
// concrete argument list.
//
// A template is a shell-style command string whose tokens may contain the
// placeholders %f (source file), %l (line) and %c (column). %% produces a
// literal percent sign.
package template

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"github.com/vandalt/evince-synctex/internal/synctex"
)

// ColumnPolicy controls what Expand does when a template references %c but
// the viewer did not supply a column.
type ColumnPolicy int

const (
	// ColumnRequired fails the expansion with a TemplateError.
	ColumnRequired ColumnPolicy = iota
	// ColumnDefault substitutes the configured default value instead.
	ColumnDefault
)

// TemplateError indicates a malformed template or a placeholder that has no
// value and no configured default. It is a configuration bug, detected
// before any process is spawned.
type TemplateError struct {
	Template string
	Reason   string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("bad command template %q: %s", e.Template, e.Reason)
}

// Template is a parsed command pattern. Parsing validates all placeholders
// up front, so Expand can only fail on a missing column value.
type Template struct {
	raw           string
	tokens        []string
	policy        ColumnPolicy
	columnDefault string
	usesColumn    bool
}

// New parses command into a Template. The command is split with POSIX shell
// rules, so an editor argument may contain quoted spaces. columnDefault is
// only consulted when policy is ColumnDefault.
func New(command string, policy ColumnPolicy, columnDefault string) (*Template, error) {
	tokens, err := shlex.Split(command)
	if err != nil {
		return nil, &TemplateError{Template: command, Reason: err.Error()}
	}
	if len(tokens) == 0 {
		return nil, &TemplateError{Template: command, Reason: "empty command"}
	}

	t := &Template{
		raw:           command,
		tokens:        tokens,
		policy:        policy,
		columnDefault: columnDefault,
	}
	for _, tok := range tokens {
		uses, err := checkPlaceholders(tok)
		if err != nil {
			return nil, &TemplateError{Template: command, Reason: err.Error()}
		}
		t.usesColumn = t.usesColumn || uses
	}
	return t, nil
}

// UsesColumn reports whether the template references %c.
func (t *Template) UsesColumn() bool { return t.usesColumn }

// String returns the original command pattern.
func (t *Template) String() string { return t.raw }

// Expand substitutes the location into the template and returns the argument
// list for the editor process. The output contains no placeholder syntax.
func (t *Template) Expand(loc synctex.Location) ([]string, error) {
	column := ""
	if t.usesColumn {
		switch {
		case loc.Column > 0:
			column = strconv.Itoa(loc.Column)
		case t.policy == ColumnDefault:
			column = t.columnDefault
		default:
			return nil, &TemplateError{
				Template: t.raw,
				Reason:   "template references %c but the viewer supplied no column",
			}
		}
	}

	argv := make([]string, 0, len(t.tokens))
	for _, tok := range t.tokens {
		argv = append(argv, substitute(tok, loc.File, strconv.Itoa(loc.Line), column))
	}
	return argv, nil
}

// checkPlaceholders scans one token and rejects any %x that is not a
// recognized placeholder. Returns whether the token references %c.
func checkPlaceholders(tok string) (usesColumn bool, err error) {
	for i := 0; i < len(tok); i++ {
		if tok[i] != '%' {
			continue
		}
		if i+1 >= len(tok) {
			return false, fmt.Errorf("dangling %% at end of %q", tok)
		}
		switch tok[i+1] {
		case 'f', 'l', '%':
		case 'c':
			usesColumn = true
		default:
			return false, fmt.Errorf("unknown placeholder %%%c in %q", tok[i+1], tok)
		}
		i++
	}
	return usesColumn, nil
}

func substitute(tok, file, line, column string) string {
	var b strings.Builder
	for i := 0; i < len(tok); i++ {
		if tok[i] != '%' || i+1 >= len(tok) {
			b.WriteByte(tok[i])
			continue
		}
		switch tok[i+1] {
		case 'f':
			b.WriteString(file)
		case 'l':
			b.WriteString(line)
		case 'c':
			b.WriteString(column)
		case '%':
			b.WriteByte('%')
		}
		i++
	}
	return b.String()
}
