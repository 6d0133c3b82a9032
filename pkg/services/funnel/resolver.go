package funnel

import (
	"strings"
	"unicode"

	"github.com/de-tools/umami-digest/pkg/models/domain"
)

// Match is the resolution of one desired funnel name. Report is nil when unresolved.
type Match struct {
	Desired string
	Lookup  string
	Method  domain.MatchMethod
	Report  *domain.FunnelReportRef
}

// Resolved reports whether a stored report was found.
func (m Match) Resolved() bool {
	return m.Report != nil
}

// Resolve pairs each desired name with a provider report.
// Precedence is override, then case-insensitive exact, then normalized; the first report in
// listing order wins at each step. An override never falls through to automatic matching.
func Resolve(desired []string, reports []domain.FunnelReportRef, overrides map[string]string) []Match {
	matches := make([]Match, 0, len(desired))
	for _, name := range desired {
		matches = append(matches, resolveOne(name, reports, overrides))
	}
	return matches
}

func resolveOne(name string, reports []domain.FunnelReportRef, overrides map[string]string) Match {
	if target, ok := overrides[name]; ok {
		m := Match{Desired: name, Lookup: target}
		if idx := findExact(target, reports); idx >= 0 {
			m.Method = domain.MatchOverride
			m.Report = &reports[idx]
		}
		return m
	}

	m := Match{Desired: name, Lookup: name}
	if idx := findExact(name, reports); idx >= 0 {
		m.Method = domain.MatchExact
		m.Report = &reports[idx]
		return m
	}
	if idx := findNormalized(name, reports); idx >= 0 {
		m.Method = domain.MatchFuzzy
		m.Report = &reports[idx]
	}
	return m
}

func findExact(name string, reports []domain.FunnelReportRef) int {
	for i, r := range reports {
		if strings.EqualFold(r.Name, name) {
			return i
		}
	}
	return -1
}

func findNormalized(name string, reports []domain.FunnelReportRef) int {
	want := Normalize(name)
	if want == "" {
		return -1
	}
	for i, r := range reports {
		if Normalize(r.Name) == want {
			return i
		}
	}
	return -1
}

// Normalize lowercases name and drops whitespace and punctuation runes. Symbols such as '>'
// or '+' are kept, so "a -> b" and "a_b" stay distinct.
func Normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
