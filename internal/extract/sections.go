// Package extract turns report blocks into attributed project rows, either
// deterministically from alias and pattern mentions or through an LLM.
package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxSectionChars caps the size of one section sent to the model
const DefaultMaxSectionChars = 4000

var regionLabel = regexp.MustCompile(`^\s*\([^)]+\)`)

// IsStrongBoundary reports whether line opens a new section: a region label
// such as "(Spain)" or a fully uppercase heading with at least four letters.
func IsStrongBoundary(line string) bool {
	if regionLabel.MatchString(line) {
		return true
	}
	letters := 0
	for _, r := range line {
		if !unicode.IsLetter(r) {
			continue
		}
		if !unicode.IsUpper(r) {
			return false
		}
		letters++
	}
	return letters >= 4
}

// SplitSections splits flattened text into sections at strong boundaries and
// blank lines. Text without any strong boundary stays one section. Sections
// longer than maxChars are sliced into consecutive chunks.
func SplitSections(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxSectionChars
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	hasBoundary := false
	for _, ln := range lines {
		if IsStrongBoundary(ln) {
			hasBoundary = true
			break
		}
	}
	if !hasBoundary {
		whole := cleanSection(lines)
		if whole == "" {
			return nil
		}
		return chunkText(whole, maxChars)
	}

	var (
		sections []string
		current  []string
	)
	closeSection := func() {
		if s := cleanSection(current); s != "" {
			sections = append(sections, chunkText(s, maxChars)...)
		}
		current = nil
	}

	for _, ln := range lines {
		switch {
		case strings.TrimSpace(ln) == "":
			closeSection()
		case IsStrongBoundary(ln):
			closeSection()
			current = append(current, ln)
		default:
			current = append(current, ln)
		}
	}
	closeSection()
	return sections
}

func cleanSection(lines []string) string {
	var kept []string
	for _, ln := range lines {
		if ln = strings.TrimSpace(ln); ln != "" {
			kept = append(kept, ln)
		}
	}
	return strings.Join(kept, "\n")
}

// chunkText slices s into pieces of at most maxChars runes
func chunkText(s string, maxChars int) []string {
	if utf8.RuneCountInString(s) <= maxChars {
		return []string{s}
	}
	var chunks []string
	runes := []rune(s)
	for start := 0; start < len(runes); start += maxChars {
		end := start + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}
