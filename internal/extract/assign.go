package extract

import (
	"strings"
	"unicode/utf8"
)

// DefaultMinGap is the distance in characters under which two mention
// boundaries share one span. Positions stay byte offsets.
const DefaultMinGap = 80

// SpanAssignment attributes text[Start:End] to one project. The same span
// appears once per project sharing it.
type SpanAssignment struct {
	Start       int
	End         int
	ProjectName string
}

// Text returns the trimmed span text
func (a SpanAssignment) Text(full string) string {
	return strings.TrimSpace(full[a.Start:a.End])
}

// AssignSections turns sorted mention positions into spans. Each boundary
// owns the text up to the next one. When the next boundary is closer than
// minGap, both boundaries share a span running to the boundary after that
// (or the end of text) and their projects are merged.
func AssignSections(text string, packed []PositionedNames, minGap int) []SpanAssignment {
	if minGap <= 0 {
		minGap = DefaultMinGap
	}

	var out []SpanAssignment
	n := len(packed)
	for i := 0; i < n; {
		start := packed[i].Position
		next := len(text)
		if i+1 < n {
			next = packed[i+1].Position
		}

		var (
			end   int
			names []string
		)
		if i+1 < n && next >= start && utf8.RuneCountInString(text[start:next]) < minGap {
			end = len(text)
			if i+2 < n {
				end = packed[i+2].Position
			}
			names = mergeNames(packed[i].Names, packed[i+1].Names)
			i += 2
		} else {
			end = next
			names = packed[i].Names
			i++
		}

		if end < start || strings.TrimSpace(text[start:end]) == "" {
			continue
		}
		for _, name := range names {
			out = append(out, SpanAssignment{Start: start, End: end, ProjectName: name})
		}
	}
	return out
}

func mergeNames(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]bool, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, n := range list {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}
