package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsStrongBoundary(t *testing.T) {
	tests := map[string]bool{
		"(Spain)":                 true,
		"  (Portugal) Divor PV1":  true,
		"WEEKLY HIGHLIGHTS":       true,
		"CW07 - EPC":              true,
		"EPC":                     false,
		"Project Alpha":           false,
		"":                        false,
		"Divor PV1 50MW on track": false,
	}
	for line, want := range tests {
		t.Run(line, func(t *testing.T) {
			assert.Equal(t, want, IsStrongBoundary(line))
		})
	}
}

func TestSplitSections_Boundaries(t *testing.T) {
	text := "(Spain)\nProject Alpha status updates...\n\nWEEKLY HIGHLIGHTS\nProject Beta progress is on track.\n\nMisc notes for Project Gamma."

	sections := SplitSections(text, DefaultMaxSectionChars)
	require.Len(t, sections, 3)
	assert.Equal(t, "(Spain)\nProject Alpha status updates...", sections[0])
	assert.Equal(t, "WEEKLY HIGHLIGHTS\nProject Beta progress is on track.", sections[1])
	assert.Equal(t, "Misc notes for Project Gamma.", sections[2])
}

func TestSplitSections_BoundaryWithoutBlankLine(t *testing.T) {
	text := "intro line\n(Spain)\nDivor PV1 energized\n(Portugal)\nÉvora Solar permits"

	sections := SplitSections(text, 0)
	assert.Equal(t, []string{
		"intro line",
		"(Spain)\nDivor PV1 energized",
		"(Portugal)\nÉvora Solar permits",
	}, sections)
}

func TestSplitSections_NoBoundaryKeepsOneSection(t *testing.T) {
	text := "first line\nsecond line\n\n\nthird line  "

	sections := SplitSections(text, DefaultMaxSectionChars)
	require.Len(t, sections, 1)
	assert.Equal(t, "first line\nsecond line\nthird line", sections[0])
	assert.NotContains(t, sections[0], "\n\n")
}

func TestSplitSections_Empty(t *testing.T) {
	assert.Empty(t, SplitSections("", 100))
	assert.Empty(t, SplitSections("\n\n  \n", 100))
}

func TestSplitSections_ChunksLongSections(t *testing.T) {
	text := "abcdefghijklmnopqrstuvwxy"

	assert.Equal(t, []string{"abcdefghij", "klmnopqrst", "uvwxy"}, SplitSections(text, 10))

	long := "(Spain)\n" + strings.Repeat("é", 25)
	for _, s := range SplitSections(long, 10) {
		assert.LessOrEqual(t, len([]rune(s)), 10)
	}
}
