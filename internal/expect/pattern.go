// Package expect implements prompt matching over a live console byte stream.
//
// A Matcher consumes the chunk channel produced by a console reader and
// blocks callers until one of a set of candidate patterns appears, a
// timeout elapses, or the stream closes. Matching is evaluated on every
// arriving chunk rather than per line, because console prompts usually do
// not end with a newline. Matching is case-sensitive; callers that need to
// tolerate firmware wording differences pass several candidate patterns.
package expect

import (
	"fmt"
	"regexp"
)

// Pattern is a named, pre-compiled recognition pattern for console output.
// The name identifies the pattern in diagnostics and progress events; the
// expression is matched verbatim (case-sensitive) against the accumulated
// output.
type Pattern struct {
	Name string
	re   *regexp.Regexp
}

// NewPattern compiles expr into a named pattern.
func NewPattern(name, expr string) (Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("pattern %q: %w", name, err)
	}
	return Pattern{Name: name, re: re}, nil
}

// MustPattern is NewPattern for compiled-in pattern tables; it panics on an
// invalid expression.
func MustPattern(name, expr string) Pattern {
	p, err := NewPattern(name, expr)
	if err != nil {
		panic(err)
	}
	return p
}

// Zero reports whether the pattern is the zero value (never matches).
func (p Pattern) Zero() bool { return p.re == nil }

func (p Pattern) String() string { return p.Name }

// Match is the result of a successful wait: which pattern fired, the exact
// text it matched, and any output that preceded it within the same wait.
type Match struct {
	Pattern Pattern
	Text    string
	Before  string
}

// Is reports whether the match fired for the pattern with the given name.
func (m Match) Is(name string) bool { return m.Pattern.Name == name }
