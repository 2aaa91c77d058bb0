package matching

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// Score thresholds, on a 0-100 scale
const (
	AliasProjectThreshold   = 90
	AliasClusterThreshold   = 88
	GenericProjectThreshold = 86
	GenericClusterThreshold = 84
	CanonicalThreshold      = 90
)

// Ratio is the normalized indel similarity of a and b, 0-100
func Ratio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la+lb == 0 {
		return 100
	}
	lcs := edlib.LCS(a, b)
	return float64(2*lcs) / float64(la+lb) * 100
}

// TokenSetRatio compares the whitespace-token sets of a and b. A string whose
// tokens are a subset of the other's scores 100.
func TokenSetRatio(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var inter, diffAB, diffBA []string
	for tok := range ta {
		if tb[tok] {
			inter = append(inter, tok)
		} else {
			diffAB = append(diffAB, tok)
		}
	}
	for tok := range tb {
		if !ta[tok] {
			diffBA = append(diffBA, tok)
		}
	}
	sort.Strings(inter)
	sort.Strings(diffAB)
	sort.Strings(diffBA)

	if len(inter) > 0 && (len(diffAB) == 0 || len(diffBA) == 0) {
		return 100
	}

	sect := strings.Join(inter, " ")
	ab := strings.Join(diffAB, " ")
	ba := strings.Join(diffBA, " ")

	best := Ratio(ab, ba)
	sectLen := utf8.RuneCountInString(sect)
	if sectLen == 0 {
		return best
	}

	abLen := utf8.RuneCountInString(ab)
	baLen := utf8.RuneCountInString(ba)
	sectAB := sectLen + 1 + abLen
	sectBA := sectLen + 1 + baLen

	// sect is a prefix of both joined strings, so the only edits are the
	// separator and the differing tail.
	if r := (1 - float64(1+abLen)/float64(sectLen+sectAB)) * 100; r > best {
		best = r
	}
	if r := (1 - float64(1+baLen)/float64(sectLen+sectBA)) * 100; r > best {
		best = r
	}
	return best
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}

// Match is the best-scoring choice for a query
type Match struct {
	Choice string
	Score  float64
	Index  int
}

// Matcher scores queries against a fixed list of choices. Both sides are
// normalized first so separator and accent variants compare equal. A query
// equal to a choice once all separators are removed ("DivorPV1") scores 100.
type Matcher struct {
	choices    []string
	normalized []string
	compact    []string
}

// NewMatcher prepares choices for repeated scoring
func NewMatcher(choices []string) *Matcher {
	m := &Matcher{
		choices:    choices,
		normalized: make([]string, len(choices)),
		compact:    make([]string, len(choices)),
	}
	for i, c := range choices {
		m.normalized[i] = Normalize(c)
		m.compact[i] = strings.ReplaceAll(m.normalized[i], " ", "")
	}
	return m
}

// Len returns the number of choices
func (m *Matcher) Len() int {
	return len(m.choices)
}

// Best returns the highest-scoring choice. Ties keep the earliest choice.
func (m *Matcher) Best(query string) (Match, bool) {
	q := Normalize(query)
	if q == "" || len(m.choices) == 0 {
		return Match{}, false
	}
	qc := strings.ReplaceAll(q, " ", "")
	best := Match{Index: -1, Score: -1}
	for i, c := range m.normalized {
		score := TokenSetRatio(q, c)
		if qc == m.compact[i] {
			score = 100
		}
		if score > best.Score {
			best = Match{Choice: m.choices[i], Score: score, Index: i}
			if score == 100 {
				break
			}
		}
	}
	return best, best.Index >= 0
}

// Resolve returns the best choice if it reaches threshold
func (m *Matcher) Resolve(query string, threshold float64) (Match, bool) {
	best, ok := m.Best(query)
	if !ok || best.Score < threshold {
		return best, false
	}
	return best, true
}
