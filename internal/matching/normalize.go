// Package matching holds the text normalization, alias generation and fuzzy
// scoring primitives used to attribute report text to known projects.
package matching

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinAliasLength drops aliases too short to match reliably
const MinAliasLength = 3

var (
	separatorRun  = regexp.MustCompile(`[_\-]+`)
	whitespaceRun = regexp.MustCompile(`\s+`)
	letterSpDigit = regexp.MustCompile(`([A-Za-z])\s+(\d)`)
	digitSpLetter = regexp.MustCompile(`(\d)\s+([A-Za-z])`)
	allSeparators = regexp.MustCompile(`[\s_\-]+`)
)

// transliterations covers letters that NFKD leaves intact because they have
// no combining-mark decomposition
var transliterations = map[rune]string{
	'ø': "o", 'Ø': "O",
	'æ': "ae", 'Æ': "AE",
	'œ': "oe", 'Œ': "OE",
	'ł': "l", 'Ł': "L",
	'đ': "d", 'Đ': "D",
	'ð': "d", 'Ð': "D",
	'þ': "th", 'Þ': "TH",
	'ß': "ss", 'ẞ': "SS",
	'ı': "i",
}

func transliterate(s string) string {
	if strings.IndexFunc(s, func(r rune) bool { _, ok := transliterations[r]; return ok }) < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if t, ok := transliterations[r]; ok {
			b.WriteString(t)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func accentFolder() transform.Transformer {
	return transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
}

// FoldAccents decomposes s and strips combining marks ("Évora" -> "Evora").
// Letters without a decomposition are transliterated ("Øster" -> "Oster").
func FoldAccents(s string) string {
	out, _, err := transform.String(accentFolder(), s)
	if err != nil {
		return transliterate(s)
	}
	return transliterate(out)
}

// Normalize folds accents, lowercases, turns underscores and hyphens into
// spaces and collapses whitespace.
func Normalize(s string) string {
	s = strings.ToLower(FoldAccents(s))
	s = separatorRun.ReplaceAllString(s, " ")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// AliasVariants generates the spelling variants a project name may appear
// under in free text. The result is sorted and free of duplicates.
func AliasVariants(name string) []string {
	base := strings.TrimSpace(name)
	if base == "" {
		return nil
	}

	raw := []string{
		base,
		strings.ReplaceAll(base, "_", " "),
		strings.ReplaceAll(base, "_", "-"),
		strings.ReplaceAll(base, "-", " "),
		strings.ReplaceAll(base, "-", "_"),
		whitespaceRun.ReplaceAllString(base, " "),
		letterSpDigit.ReplaceAllString(base, "${1}${2}"),
		digitSpLetter.ReplaceAllString(base, "${1}${2}"),
		allSeparators.ReplaceAllString(base, ""),
	}

	seen := make(map[string]bool, len(raw))
	var out []string
	for _, v := range raw {
		v = strings.TrimSpace(whitespaceRun.ReplaceAllString(v, " "))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Folded is lowercased, accent-folded text that remembers where each of its
// bytes came from in the source string.
type Folded struct {
	Text    string
	source  string
	offsets []int
}

// Fold builds the matching view of s
func Fold(s string) Folded {
	var b strings.Builder
	b.Grow(len(s))
	offsets := make([]int, 0, len(s)+1)
	for i, r := range s {
		f := foldRune(r)
		for j := 0; j < len(f); j++ {
			offsets = append(offsets, i)
		}
		b.WriteString(f)
	}
	offsets = append(offsets, len(s))
	return Folded{Text: b.String(), source: s, offsets: offsets}
}

// SourceOffset maps a byte offset in Text back to the source string
func (f Folded) SourceOffset(i int) int {
	if i < 0 {
		return 0
	}
	if i >= len(f.offsets) {
		return len(f.source)
	}
	return f.offsets[i]
}

// SourceSpan returns the source text covering Text[start:end]
func (f Folded) SourceSpan(start, end int) (int, int, string) {
	s, e := f.SourceOffset(start), f.SourceOffset(end)
	if e < s {
		e = s
	}
	return s, e, f.source[s:e]
}

func foldRune(r rune) string {
	if r < utf8.RuneSelf {
		return string(unicode.ToLower(r))
	}
	if t, ok := transliterations[r]; ok {
		return strings.ToLower(t)
	}
	decomposed := norm.NFKD.String(string(r))
	var b strings.Builder
	for _, c := range decomposed {
		if unicode.Is(unicode.Mn, c) {
			continue
		}
		b.WriteRune(unicode.ToLower(c))
	}
	return b.String()
}
