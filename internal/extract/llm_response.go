package extract

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/cloo-solutions/statusdigest/internal/domain"
)

const defaultSummary = "No summary provided"

var (
	fenceOpen      = regexp.MustCompile("```(?:json)?\\s*")
	fenceClose     = regexp.MustCompile("\\s*```")
	firstArray     = regexp.MustCompile(`(?s)\[.*?\]`)
	rowsTail       = regexp.MustCompile(`(?s)"rows"\s*:\s*\[(.*)`)
	objectBoundary = regexp.MustCompile(`\}\s*,\s*\{`)
)

// stripFences removes markdown code fences around a JSON payload
func stripFences(content string) string {
	content = fenceOpen.ReplaceAllString(content, "")
	content = fenceClose.ReplaceAllString(content, "")
	return strings.TrimSpace(content)
}

// parseResult is the outcome of reading one model answer
type parseResult struct {
	rows []domain.ExtractedRow
	// valid is set when the payload had the expected shape and either listed
	// no entries or at least one entry passed validation
	valid   bool
	dropped int
}

// parseContent decodes {"rows": [...]} or a bare array, validating each
// entry on its own.
func parseContent(content string) parseResult {
	content = stripFences(content)
	if content == "" {
		return parseResult{}
	}

	var payload any
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return parseResult{}
	}

	var entries []any
	switch v := payload.(type) {
	case []any:
		entries = v
	case map[string]any:
		rows, ok := v["rows"].([]any)
		if !ok {
			return parseResult{}
		}
		entries = rows
	default:
		return parseResult{}
	}

	res := validateEntries(entries)
	res.valid = len(entries) == 0 || len(res.rows) > 0
	return res
}

func validateEntries(entries []any) parseResult {
	var res parseResult
	for _, e := range entries {
		obj, ok := e.(map[string]any)
		if !ok {
			res.dropped++
			continue
		}
		row, ok := validateEntry(obj)
		if !ok {
			res.dropped++
			continue
		}
		res.rows = append(res.rows, row)
	}
	return res
}

// validateEntry applies the row schema: project_name is required, a blank
// summary gets a placeholder, category must be one of the known values.
func validateEntry(obj map[string]any) (domain.ExtractedRow, bool) {
	name, ok := obj["project_name"].(string)
	if !ok || strings.TrimSpace(name) == "" {
		return domain.ExtractedRow{}, false
	}
	row := domain.ExtractedRow{ProjectName: strings.TrimSpace(name)}

	switch s := obj["summary"].(type) {
	case nil:
		row.Summary = defaultSummary
	case string:
		row.Summary = strings.TrimSpace(s)
		if row.Summary == "" {
			row.Summary = defaultSummary
		}
	default:
		return domain.ExtractedRow{}, false
	}

	for key, dst := range map[string]**string{
		"title":        &row.Title,
		"next_actions": &row.NextActions,
		"owner":        &row.Owner,
		"source_text":  &row.SourceText,
	} {
		switch v := obj[key].(type) {
		case nil:
		case string:
			*dst = domain.StringPtr(strings.TrimSpace(v))
		default:
			return domain.ExtractedRow{}, false
		}
	}

	switch c := obj["category"].(type) {
	case nil:
	case string:
		if strings.TrimSpace(c) == "" {
			break
		}
		cat, ok := matchCategory(c)
		if !ok {
			return domain.ExtractedRow{}, false
		}
		row.Category = &cat
	default:
		return domain.ExtractedRow{}, false
	}

	return row, true
}

func matchCategory(s string) (domain.Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range domain.Categories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}

// recoverEntries salvages rows from an answer that is not valid JSON: first
// the earliest bracketed array, then complete objects from a truncated
// "rows" list.
func recoverEntries(content string) []domain.ExtractedRow {
	content = stripFences(content)

	if loc := firstArray.FindString(content); loc != "" {
		var list []any
		if err := json.Unmarshal([]byte(loc), &list); err == nil {
			if rows := validateEntries(list).rows; len(rows) > 0 {
				return rows
			}
		}
	}

	m := rowsTail.FindStringSubmatch(content)
	if m == nil {
		return nil
	}
	pieces := objectBoundary.Split(m[1], -1)
	var entries []any
	for i, piece := range pieces {
		candidate := "{" + strings.TrimPrefix(strings.TrimSpace(piece), "{")
		if i < len(pieces)-1 {
			candidate += "}"
		}
		var obj map[string]any
		if err := json.NewDecoder(bytes.NewReader([]byte(candidate))).Decode(&obj); err != nil {
			continue
		}
		entries = append(entries, obj)
	}
	return validateEntries(entries).rows
}
