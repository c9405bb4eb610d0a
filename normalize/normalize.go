// Package normalize defines the canonical comparison key used across the
// index and matcher: two titles are "the same" if and only if they
// normalize to the same string.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var articles = map[string]bool{
	"the": true,
	"a":   true,
	"an":  true,
	"le":  true,
	"la":  true,
	"les": true,
}

var folder = cases.Fold()

// Normalize reduces title to its canonical comparison key:
//
//  1. Unicode case-fold (handles accented Latin correctly, unlike a plain
//     strings.ToLower).
//  2. Strip bracketed groups ([…], (…), {…}); a nested group is removed
//     together with the group that encloses it.
//  3. Strip a single leading or trailing article (the/a/an/le/la/les),
//     including the "Title, The" form.
//  4. Collapse every run of non-alphanumeric Unicode to a single space.
//  5. Collapse whitespace runs and trim.
//
// Normalize is deterministic and idempotent: Normalize(Normalize(s)) ==
// Normalize(s).
func Normalize(title string) string {
	s := norm.NFC.String(title)
	s = folder.String(s)
	s = stripBracketGroups(s)
	s = stripArticles(s)
	s = collapseNonAlnum(s)
	return strings.TrimSpace(collapseSpaces(s))
}

// stripBracketGroups removes [...], (...), {...} groups. Each pass removes
// every opener together with its depth-matched closer of the same kind and
// everything between them; the pass repeats until it makes no change.
func stripBracketGroups(s string) string {
	for {
		next := stripOneBracketPass(s)
		if next == s {
			return next
		}
		s = next
	}
}

func stripOneBracketPass(s string) string {
	pairs := map[rune]rune{'[': ']', '(': ')', '{': '}'}
	var b strings.Builder
	runes := []rune(s)
	i := 0
	changed := false
	for i < len(runes) {
		r := runes[i]
		if closer, ok := pairs[r]; ok {
			// find the depth-matched closer, counting nested openers of
			// the same kind
			depth := 1
			j := i + 1
			for j < len(runes) {
				if runes[j] == r {
					depth++
				} else if runes[j] == closer {
					depth--
					if depth == 0 {
						break
					}
				}
				j++
			}
			if j < len(runes) && depth == 0 {
				i = j + 1
				changed = true
				continue
			}
		}
		b.WriteRune(r)
		i++
	}
	if !changed {
		return s
	}
	return b.String()
}

func stripArticles(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return s
	}

	// "the x" / "a x" form
	if articles[fields[0]] {
		fields = fields[1:]
	}
	if len(fields) == 0 {
		return ""
	}

	// "x, the" form: trailing article preceded by a comma.
	if len(fields) >= 2 {
		last := fields[len(fields)-1]
		prev := fields[len(fields)-2]
		if articles[last] && strings.HasSuffix(prev, ",") {
			fields = fields[:len(fields)-1]
			fields[len(fields)-1] = strings.TrimSuffix(fields[len(fields)-1], ",")
		}
	}

	return strings.Join(fields, " ")
}

func collapseNonAlnum(s string) string {
	var b strings.Builder
	lastWasSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
			lastWasSpace = false
			continue
		}
		if !lastWasSpace {
			b.WriteRune(' ')
			lastWasSpace = true
		}
	}
	return b.String()
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
