// SPDX-License-Identifier: Apache-2.0

package duplicate

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/xrash/smetrics"
)

// TokenSortRatio computes a name-similarity ratio in [0, 100] that is
// insensitive to token order: both token sequences are sorted before an
// indel edit-similarity is computed on the joined strings. A substitution
// costs two (one delete plus one insert), which makes the ratio
//
//	100 * (1 - distance / (len(a) + len(b)))
//
// the standard normalized indel similarity. Two empty names score 0: absent
// evidence is not a match.
func TokenSortRatio(a, b []string) float64 {
	sa := sortedJoin(a)
	sb := sortedJoin(b)
	if sa == "" && sb == "" {
		return 0
	}
	if sa == sb {
		return 100
	}

	total := utf8.RuneCountInString(sa) + utf8.RuneCountInString(sb)
	pa, pb, ok := runePacked(sa, sb)
	if !ok {
		pa, pb = sa, sb
		total = len(sa) + len(sb)
	}
	dist := smetrics.WagnerFischer(pa, pb, 1, 1, 2)
	ratio := 100 * (1 - float64(dist)/float64(total))
	if ratio < 0 {
		return 0
	}
	return ratio
}

// runePacked remaps both strings onto a shared single-byte alphabet so the
// byte-walking edit distance counts characters, not encoded bytes. Names in
// multi-byte scripts would otherwise weight one character edit as several.
// ok is false when the combined alphabet exceeds a byte (fall back to raw
// bytes, which no realistic pair of names reaches).
func runePacked(a, b string) (string, string, bool) {
	table := make(map[rune]byte)
	pack := func(s string) ([]byte, bool) {
		out := make([]byte, 0, utf8.RuneCountInString(s))
		for _, r := range s {
			c, seen := table[r]
			if !seen {
				if len(table) == 256 {
					return nil, false
				}
				c = byte(len(table))
				table[r] = c
			}
			out = append(out, c)
		}
		return out, true
	}
	pa, ok := pack(a)
	if !ok {
		return "", "", false
	}
	pb, ok := pack(b)
	if !ok {
		return "", "", false
	}
	return string(pa), string(pb), true
}

func sortedJoin(tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	sorted := make([]string, len(tokens))
	copy(sorted, tokens)
	sort.Strings(sorted)
	return strings.Join(sorted, " ")
}
