package extract

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cloo-solutions/statusdigest/internal/domain"
)

var (
	strictFilename = regexp.MustCompile(`(?i)^(\d{4})_CW(\d{2})_(DEV|EPC|FINANCE|INVESTMENT)\.docx$`)
	cwPattern      = regexp.MustCompile(`(?i)CW(\d{1,2})`)
	yearPattern    = regexp.MustCompile(`(?:^|[^0-9])(20\d{2})(?:[^0-9]|$)`)

	// Tried in order; the first hit wins
	categoryPatterns = []struct {
		rx  *regexp.Regexp
		raw string
	}{
		{regexp.MustCompile(`(?i)(?:^|[^a-zA-Z])(DEV|DEVELOPMENT)(?:[^a-zA-Z]|$)`), "DEV"},
		{regexp.MustCompile(`(?i)(?:^|[^a-zA-Z])(EPC)(?:[^a-zA-Z]|$)`), "EPC"},
		{regexp.MustCompile(`(?i)(?:^|[^a-zA-Z])(FINANCE|FINANCIAL|FIN)(?:[^a-zA-Z]|$)`), "FINANCE"},
		{regexp.MustCompile(`(?i)(?:^|[^a-zA-Z])(INVESTMENT|INVEST|INV)(?:[^a-zA-Z]|$)`), "INVESTMENT"},
	}
)

// FileMeta is what a report filename says about its content
type FileMeta struct {
	Year        int
	Week        int
	CWLabel     string
	RawCategory string
	Category    domain.Category
}

// LogDate is the Wednesday of the report's ISO week
func (m FileMeta) LogDate() time.Time {
	return LogDate(m.Year, m.Week)
}

// ParseFilename reads year, calendar week and category from a report
// filename such as "2025_CW07_DEV.docx" or "EPC report cw7 2025.md". The year
// defaults to the current one.
func ParseFilename(name string) (FileMeta, error) {
	base := filepath.Base(name)

	if m := strictFilename.FindStringSubmatch(base); m != nil {
		year, _ := strconv.Atoi(m[1])
		week, _ := strconv.Atoi(m[2])
		return newFileMeta(year, week, strings.ToUpper(m[3]))
	}

	cw := cwPattern.FindStringSubmatch(base)
	if cw == nil {
		return FileMeta{}, fmt.Errorf("%w: no calendar week (CW##) in %q", domain.ErrInvalidFilename, base)
	}
	week, _ := strconv.Atoi(cw[1])

	raw := ""
	for _, p := range categoryPatterns {
		if p.rx.MatchString(base) {
			raw = p.raw
			break
		}
	}
	if raw == "" {
		return FileMeta{}, fmt.Errorf("%w: no category (DEV, EPC, FINANCE, INVESTMENT) in %q", domain.ErrInvalidFilename, base)
	}

	year := time.Now().Year()
	if y := yearPattern.FindStringSubmatch(base); y != nil {
		year, _ = strconv.Atoi(y[1])
	}
	return newFileMeta(year, week, raw)
}

func newFileMeta(year, week int, raw string) (FileMeta, error) {
	if week < 1 || week > 53 {
		return FileMeta{}, fmt.Errorf("%w: calendar week %d out of range", domain.ErrInvalidFilename, week)
	}
	cat, err := domain.ParseCategory(raw)
	if err != nil {
		return FileMeta{}, fmt.Errorf("%w: %v", domain.ErrInvalidFilename, err)
	}
	return FileMeta{
		Year:        year,
		Week:        week,
		CWLabel:     fmt.Sprintf("CW%02d", week),
		RawCategory: raw,
		Category:    cat,
	}, nil
}

// LogDate returns the Wednesday of ISO week cw in year
func LogDate(year, cw int) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	monday := jan4.AddDate(0, 0, -offset)
	return monday.AddDate(0, 0, 7*(cw-1)+2)
}

// ResolveMeta is ParseFilename with explicit overrides. cwLabel ("CW7",
// "cw07" or "7") and category replace what the filename says; when both are
// given the filename need not carry either.
func ResolveMeta(name, cwLabel, category string) (FileMeta, error) {
	meta, err := ParseFilename(name)
	if err != nil {
		if cwLabel == "" || category == "" {
			return FileMeta{}, err
		}
		meta = FileMeta{Year: time.Now().Year()}
		if y := yearPattern.FindStringSubmatch(filepath.Base(name)); y != nil {
			meta.Year, _ = strconv.Atoi(y[1])
		}
	}

	if cwLabel != "" {
		digits := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(cwLabel)), "CW")
		week, err := strconv.Atoi(digits)
		if err != nil || week < 1 || week > 53 {
			return FileMeta{}, fmt.Errorf("%w: invalid calendar week %q", domain.ErrInvalidFilename, cwLabel)
		}
		meta.Week = week
		meta.CWLabel = fmt.Sprintf("CW%02d", week)
	}
	if category != "" {
		cat, err := domain.ParseCategory(category)
		if err != nil {
			return FileMeta{}, err
		}
		meta.Category = cat
		meta.RawCategory = strings.ToUpper(strings.TrimSpace(category))
	}
	return meta, nil
}
