package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cloo-solutions/statusdigest/internal/domain"
	"github.com/cloo-solutions/statusdigest/internal/matching"
)

// dedupePrefix is how much of summary and source text takes part in the
// duplicate key
const dedupePrefix = 200

var (
	leadingRegion  = regexp.MustCompile(`^\s*\([^)]*\)\s*`)
	capacityToken  = regexp.MustCompile(`(?i)\b\d+(?:[.,]\d+)?\s*(?:MWp?|MVA|MWh(?:/\d+h)?|kWp?|GW)\b`)
	parenthetical  = regexp.MustCompile(`\s*\([^)]*\)`)
	idToken        = regexp.MustCompile(`^[A-Z0-9][A-Z0-9_\-/]{5,}$`)
	underscoreRun  = regexp.MustCompile(`_+`)
	conjoinedNums  = regexp.MustCompile(`^(.*?)((?i:PV|Wind|ESS|BESS|Solar)|[A-D])?(\s*)(\d+)((?:\s*(?:\+|,|&|/|\band\b)\s*(?:(?i:PV|Wind|ESS|BESS|Solar)|[A-D])?\s*\d+)+)\s*$`)
	conjoinedAlpha = regexp.MustCompile(`^(.*\S)\s+([A-D])((?:\s*(?:\+|,|&|/|\band\b)\s*[A-D])+)\s*$`)
	digitsRe       = regexp.MustCompile(`\d+`)
	letterRe       = regexp.MustCompile(`[A-D]`)
)

// NormalizeName strips decoration a report adds around a project name: a
// leading region label, capacity figures, parenthetical detail and long
// uppercase ID tokens.
func NormalizeName(name string) string {
	s := leadingRegion.ReplaceAllString(name, "")
	s = parenthetical.ReplaceAllString(s, " ")
	s = capacityToken.ReplaceAllString(s, " ")
	s = underscoreRun.ReplaceAllString(s, " ")

	var kept []string
	for _, tok := range strings.Fields(s) {
		if isIDToken(tok) {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Trim(strings.Join(kept, " "), " -:;,.")
}

func isIDToken(tok string) bool {
	if len(tok) < 6 || !idToken.MatchString(tok) {
		return false
	}
	return strings.IndexFunc(tok, unicode.IsDigit) >= 0
}

// SplitConjoined expands names that list several sites at once.
// "Divor PV1+2" gives "Divor PV1" and "Divor PV2"; "Sisoneras 1,2 & 3"
// gives one name per numeral. Names that list nothing come back unchanged.
func SplitConjoined(name string) []string {
	name = strings.TrimSpace(name)

	if m := conjoinedNums.FindStringSubmatch(name); m != nil {
		base := strings.TrimSpace(m[1])
		prefix, sep := m[2], m[3]
		// a one-letter type only counts as a word of its own: in
		// "MADRID 1+2" the D belongs to the name
		if len(prefix) == 1 && m[1] != "" && !endsInSpace(m[1]) {
			base, prefix = strings.TrimSpace(m[1]+prefix), ""
		}
		if base != "" || prefix != "" {
			nums := append([]string{m[4]}, digitsRe.FindAllString(m[5], -1)...)
			out := make([]string, 0, len(nums))
			for _, n := range nums {
				tail := n
				if prefix != "" {
					tail = prefix + sep + n
				}
				out = append(out, joinName(base, tail))
			}
			return dedupeFold(out)
		}
	}

	if m := conjoinedAlpha.FindStringSubmatch(name); m != nil {
		base := strings.TrimSpace(m[1])
		letters := append([]string{m[2]}, letterRe.FindAllString(m[3], -1)...)
		out := make([]string, 0, len(letters))
		for _, l := range letters {
			out = append(out, joinName(base, l))
		}
		return dedupeFold(out)
	}

	if name == "" {
		return nil
	}
	return []string{name}
}

func endsInSpace(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return unicode.IsSpace(r)
}

func joinName(base, tail string) string {
	if base == "" {
		return tail
	}
	return base + " " + tail
}

func dedupeFold(names []string) []string {
	out := names[:0]
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		key := strings.ToLower(n)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}

// PostProcessor normalizes, splits, canonicalizes and deduplicates rows
// against one knowledge base snapshot.
type PostProcessor struct {
	matcher *matching.Matcher
}

func NewPostProcessor(kb domain.KnowledgeBase) *PostProcessor {
	return &PostProcessor{matcher: matching.NewMatcher(kb.Projects)}
}

// Canonicalize maps name to the closest known project, or returns it as is
// when nothing scores high enough.
func (p *PostProcessor) Canonicalize(name string) string {
	if m, ok := p.matcher.Resolve(name, matching.CanonicalThreshold); ok {
		return m.Choice
	}
	return name
}

// Process expands each row into one row per resolved project name and drops
// duplicates.
func (p *PostProcessor) Process(rows []domain.ExtractedRow) []domain.ExtractedRow {
	var out []domain.ExtractedRow
	for _, row := range rows {
		normalized := NormalizeName(row.ProjectName)
		if normalized == "" {
			normalized = strings.TrimSpace(row.ProjectName)
		}
		for _, part := range SplitConjoined(normalized) {
			r := row
			r.ProjectName = p.Canonicalize(part)
			out = append(out, r)
		}
	}
	return Dedupe(out)
}

// Dedupe keeps the first row per normalized (project, title, summary prefix,
// source prefix) key. It is idempotent.
func Dedupe(rows []domain.ExtractedRow) []domain.ExtractedRow {
	out := make([]domain.ExtractedRow, 0, len(rows))
	seen := make(map[[4]string]bool, len(rows))
	for _, r := range rows {
		key := [4]string{
			dedupeNorm(r.ProjectName),
			dedupeNorm(domain.Deref(r.Title)),
			prefixRunes(dedupeNorm(r.Summary), dedupePrefix),
			prefixRunes(dedupeNorm(domain.Deref(r.SourceText)), dedupePrefix),
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

func dedupeNorm(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func prefixRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
