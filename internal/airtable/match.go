package airtable

import (
	"regexp"
	"strings"
)

var (
	nonAlnum   = regexp.MustCompile(`[^a-z0-9\s]`)
	whitespace = regexp.MustCompile(`\s+`)
)

func normalizeName(name string) string {
	name = nonAlnum.ReplaceAllString(strings.ToLower(name), "")
	return strings.TrimSpace(whitespace.ReplaceAllString(name, " "))
}

// SameCompany reports whether got names exactly the company want once case,
// punctuation and spacing are ignored. Row visibility uses this rule.
func SameCompany(got, want string) bool {
	a := strings.ReplaceAll(normalizeName(got), " ", "")
	b := strings.ReplaceAll(normalizeName(want), " ", "")
	return a != "" && a == b
}

// MatchCompanyName decides whether a free-text company name typed into a
// spreadsheet refers to the portal company called want. It tries, in
// order: exact match after normalisation, match ignoring spaces, substring
// either way (with and without spaces), and finally overlap of words longer
// than two characters covering at least half of the shorter name. It is a
// search helper for agency admins and must not decide visibility.
func MatchCompanyName(got, want string) bool {
	a, b := normalizeName(got), normalizeName(want)
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}

	compactA := strings.ReplaceAll(a, " ", "")
	compactB := strings.ReplaceAll(b, " ", "")
	if compactA == compactB {
		return true
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	if strings.Contains(compactA, compactB) || strings.Contains(compactB, compactA) {
		return true
	}

	wordsA, wordsB := significantWords(a), significantWords(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return false
	}
	common := 0
	for _, wa := range wordsA {
		for _, wb := range wordsB {
			if strings.Contains(wb, wa) || strings.Contains(wa, wb) {
				common++
				break
			}
		}
	}
	shorter := min(len(wordsA), len(wordsB))
	return common > 0 && float64(common) >= float64(shorter)/2
}

func significantWords(s string) []string {
	var out []string
	for _, w := range strings.Split(s, " ") {
		if len(w) > 2 {
			out = append(out, w)
		}
	}
	return out
}
