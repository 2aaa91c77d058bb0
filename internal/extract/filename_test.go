package extract

import (
	"testing"
	"time"

	"github.com/cloo-solutions/statusdigest/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilename_Strict(t *testing.T) {
	meta, err := ParseFilename("/uploads/2025_CW07_DEV.docx")
	require.NoError(t, err)

	assert.Equal(t, 2025, meta.Year)
	assert.Equal(t, 7, meta.Week)
	assert.Equal(t, "CW07", meta.CWLabel)
	assert.Equal(t, "DEV", meta.RawCategory)
	assert.Equal(t, domain.CategoryDevelopment, meta.Category)

	meta, err = ParseFilename("2024_cw16_investment.docx")
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryInvestment, meta.Category)
	assert.Equal(t, "INVESTMENT", meta.RawCategory)
}

func TestParseFilename_Flexible(t *testing.T) {
	tests := []struct {
		name     string
		cw       string
		category domain.Category
	}{
		{"Weekly Report_CW16 - DEV.docx", "CW16", domain.CategoryDevelopment},
		{"DEV Report CW02.docx", "CW02", domain.CategoryDevelopment},
		{"FINANCE CW10 Weekly Update.docx", "CW10", domain.CategoryFinance},
		{"CW01 Development Report.docx", "CW01", domain.CategoryDevelopment},
		{"CW02 Financial Report.docx", "CW02", domain.CategoryFinance},
		{"CW03 FIN Update.docx", "CW03", domain.CategoryFinance},
		{"CW04 Investment Analysis.docx", "CW04", domain.CategoryInvestment},
		{"CW05 INVEST Report.docx", "CW05", domain.CategoryInvestment},
		{"Report CW7 EPC.md", "CW07", domain.CategoryEPC},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, err := ParseFilename(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.cw, meta.CWLabel)
			assert.Equal(t, tt.category, meta.Category)
			assert.Equal(t, time.Now().Year(), meta.Year)
		})
	}
}

func TestParseFilename_FlexibleYear(t *testing.T) {
	meta, err := ParseFilename("2025_CW07_DEV.md")
	require.NoError(t, err)
	assert.Equal(t, 2025, meta.Year)
	assert.Equal(t, 7, meta.Week)

	meta, err = ParseFilename("EPC report cw12 2023.txt")
	require.NoError(t, err)
	assert.Equal(t, 2023, meta.Year)
}

func TestParseFilename_Invalid(t *testing.T) {
	for _, name := range []string{
		"report.docx",
		"CW01 misc notes.docx",
		"2025_CW00_DEV.docx",
		"CW54 DEV.docx",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFilename(name)
			assert.ErrorIs(t, err, domain.ErrInvalidFilename)
		})
	}
}

func TestLogDate(t *testing.T) {
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), LogDate(2025, 1))
	assert.Equal(t, time.Date(2024, time.April, 17, 0, 0, 0, 0, time.UTC), LogDate(2024, 16))
	assert.Equal(t, time.Wednesday, LogDate(2026, 30).Weekday())

	meta, err := ParseFilename("2025_CW07_EPC.docx")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.February, 12, 0, 0, 0, 0, time.UTC), meta.LogDate())
}

func TestResolveMeta(t *testing.T) {
	meta, err := ResolveMeta("2025_CW07_DEV.docx", "", "")
	require.NoError(t, err)
	assert.Equal(t, "CW07", meta.CWLabel)

	meta, err = ResolveMeta("2025_CW07_DEV.docx", "cw9", "epc")
	require.NoError(t, err)
	assert.Equal(t, 9, meta.Week)
	assert.Equal(t, "CW09", meta.CWLabel)
	assert.Equal(t, domain.CategoryEPC, meta.Category)
	assert.Equal(t, 2025, meta.Year)

	meta, err = ResolveMeta("weekly notes 2024.md", "12", "Finance")
	require.NoError(t, err)
	assert.Equal(t, 2024, meta.Year)
	assert.Equal(t, "CW12", meta.CWLabel)
	assert.Equal(t, domain.CategoryFinance, meta.Category)

	_, err = ResolveMeta("weekly notes.md", "CW12", "")
	assert.ErrorIs(t, err, domain.ErrInvalidFilename)

	_, err = ResolveMeta("weekly notes.md", "CW60", "EPC")
	assert.ErrorIs(t, err, domain.ErrInvalidFilename)

	_, err = ResolveMeta("2025_CW07_DEV.docx", "", "Marketing")
	assert.ErrorIs(t, err, domain.ErrInvalidCategory)
}
