package matching

import (
	"regexp"
	"sort"
	"strings"
)

// DefaultAliasBatchSize is the number of alias patterns compiled into one
// alternation.
const DefaultAliasBatchSize = 1200

// Hit is an alias occurrence, in byte offsets of the folded text
type Hit struct {
	Start int
	End   int
}

// wordGuard is one character that cannot continue a word on either side of
// an alias. RE2's \b only knows ASCII word characters.
const wordGuard = `[^\p{L}\p{N}_]`

// AliasIndex matches every spelling variant of a set of names against
// folded text. Separators inside an alias match any run of space,
// underscore or hyphen.
type AliasIndex struct {
	patterns []*regexp.Regexp
	aliases  int
}

// NewAliasIndex compiles the variants of names into batched regexes.
// Longer aliases come first so alternation prefers the most specific one.
func NewAliasIndex(names []string, batchSize int) (*AliasIndex, error) {
	if batchSize <= 0 {
		batchSize = DefaultAliasBatchSize
	}

	seen := make(map[string]bool)
	var aliases []string
	for _, name := range names {
		for _, v := range AliasVariants(name) {
			a := Normalize(v)
			if len(a) < MinAliasLength || seen[a] {
				continue
			}
			seen[a] = true
			aliases = append(aliases, a)
		}
	}
	sort.Slice(aliases, func(i, j int) bool {
		if len(aliases[i]) != len(aliases[j]) {
			return len(aliases[i]) > len(aliases[j])
		}
		return aliases[i] < aliases[j]
	})

	idx := &AliasIndex{aliases: len(aliases)}
	for start := 0; start < len(aliases); start += batchSize {
		end := start + batchSize
		if end > len(aliases) {
			end = len(aliases)
		}
		pats := make([]string, 0, end-start)
		for _, a := range aliases[start:end] {
			if p := aliasPattern(a); p != "" {
				pats = append(pats, p)
			}
		}
		if len(pats) == 0 {
			continue
		}
		rx, err := regexp.Compile(`(?i)` + wordGuard + `(` + strings.Join(pats, "|") + `)` + wordGuard)
		if err != nil {
			return nil, err
		}
		idx.patterns = append(idx.patterns, rx)
	}
	return idx, nil
}

func aliasPattern(alias string) string {
	var parts []string
	for _, p := range strings.Split(alias, " ") {
		if p != "" {
			parts = append(parts, regexp.QuoteMeta(p))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, `[ _\-]+`)
}

// Aliases returns how many distinct aliases were indexed
func (x *AliasIndex) Aliases() int {
	return x.aliases
}

// Batches returns how many regexes the aliases were compiled into
func (x *AliasIndex) Batches() int {
	return len(x.patterns)
}

// FindAll returns every non-overlapping hit per batch, in batch order.
// The text is padded with a space at each end so the guards also match at
// its edges, and each search resumes on the trailing guard so that aliases
// separated by a single character are both found.
func (x *AliasIndex) FindAll(folded string) []Hit {
	padded := " " + folded + " "
	var hits []Hit
	for _, rx := range x.patterns {
		for pos := 0; pos < len(padded); {
			loc := rx.FindStringSubmatchIndex(padded[pos:])
			if loc == nil {
				break
			}
			start, end := pos+loc[2], pos+loc[3]
			hits = append(hits, Hit{Start: start - 1, End: end - 1})
			pos = end
		}
	}
	return hits
}
