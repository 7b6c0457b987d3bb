package discover

import (
	"strings"
	"unicode/utf8"
)

// NormalizedPrefix is the number of runes kept by Normalize.
const NormalizedPrefix = 50

// Normalize lowercases s, joins whitespace-separated words with "-" and keeps the first
// NormalizedPrefix runes.
func Normalize(s string) string {
	n := strings.Join(strings.Fields(strings.ToLower(s)), "-")
	if utf8.RuneCountInString(n) > NormalizedPrefix {
		n = string([]rune(n)[:NormalizedPrefix])
	}
	return n
}

// IsDuplicate reports whether candidate near-matches any recent entry: after normalization one is a
// substring of the other. Empty candidates never match and empty recent entries are ignored.
func IsDuplicate(candidate string, recent []string) bool {
	c := Normalize(candidate)
	if c == "" {
		return false
	}
	for _, r := range recent {
		if matches(c, Normalize(r)) {
			return true
		}
	}
	return false
}

func matches(a, b string) bool {
	if b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// Filter deduplicates the candidates of one discovery pass against recent history and against
// candidates already accepted in the same pass.
type Filter struct {
	recent   []string
	accepted []string
}

// NewFilter normalizes recent once. The recent set is not modified during the pass.
func NewFilter(recent []string) *Filter {
	f := &Filter{recent: make([]string, 0, len(recent))}
	for _, r := range recent {
		if n := Normalize(r); n != "" {
			f.recent = append(f.recent, n)
		}
	}
	return f
}

// Accept reports whether title is new and, if so, remembers it for the rest of the pass.
func (f *Filter) Accept(title string) bool {
	c := Normalize(title)
	if c == "" {
		return false
	}
	for _, r := range f.recent {
		if matches(c, r) {
			return false
		}
	}
	for _, a := range f.accepted {
		if matches(c, a) {
			return false
		}
	}
	f.accepted = append(f.accepted, c)
	return true
}

// Len returns the number of accepted titles.
func (f *Filter) Len() int { return len(f.accepted) }
