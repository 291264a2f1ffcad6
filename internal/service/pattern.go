package service

import (
	"fmt"
	"regexp"
	"sort"
)

// DefaultPattern selects services named "S" followed by digits.
const DefaultPattern = `S\d+`

// Pattern selects service names out of raw enumeration output.
type Pattern struct {
	re *regexp.Regexp
}

// CompilePattern compiles expr into a Pattern.
func CompilePattern(expr string) (Pattern, error) {
	if expr == "" {
		expr = DefaultPattern
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("invalid service pattern %q: %w", expr, err)
	}
	return Pattern{re: re}, nil
}

// MustCompilePattern is like CompilePattern but panics on error.
func MustCompilePattern(expr string) Pattern {
	p, err := CompilePattern(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the source expression.
func (p Pattern) String() string {
	if p.re == nil {
		return DefaultPattern
	}
	return p.re.String()
}

// FilterNames returns every distinct substring of raw matching the pattern,
// sorted. The input order of raw is irrelevant.
func (p Pattern) FilterNames(raw string) []string {
	re := p.re
	if re == nil {
		re = regexp.MustCompile(DefaultPattern)
	}

	seen := make(map[string]struct{})
	for _, match := range re.FindAllString(raw, -1) {
		seen[match] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
