// SPDX-License-Identifier: Apache-2.0

package preprocess

import (
	"strings"
	"unicode"

	"github.com/xrash/smetrics"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripDiacritics decomposes to NFD, drops combining marks, recomposes.
var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName lower-cases a raw name, strips diacritics and punctuation,
// collapses whitespace and returns the ordered tokens. NormalizeName("") is
// nil.
func NormalizeName(raw string) []string {
	clean, _, err := transform.String(stripDiacritics, raw)
	if err != nil {
		clean = raw
	}

	var b strings.Builder
	for _, r := range strings.ToLower(clean) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '\'' || r == '.':
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}

// PhoneticKey derives one deterministic phonetic code for a normalized token
// sequence: the Soundex code of each alphabetic token, joined in order.
// Tokens without ASCII letters contribute nothing. An empty key means no
// phonetic evidence is available for the name.
func PhoneticKey(tokens []string) string {
	var codes []string
	for _, tok := range tokens {
		ascii := asciiLetters(tok)
		if ascii == "" {
			continue
		}
		codes = append(codes, smetrics.Soundex(ascii))
	}
	return strings.Join(codes, "")
}

func asciiLetters(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
