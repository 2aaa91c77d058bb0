package kb

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/statusdigest/internal/domain"
	"golang.org/x/text/encoding/charmap"
)

// CSVSource reads the project registry export: a semicolon-delimited file
// with the header project_code;project_name;portfolio_cluster;status.
type CSVSource struct {
	Path string
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

// ListActive implements Source
func (s *CSVSource) ListActive(ctx context.Context) ([]domain.KnowledgeEntry, error) {
	entries, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	active := entries[:0]
	for _, e := range entries {
		if e.Active {
			active = append(active, e)
		}
	}
	return active, nil
}

// ListAll returns every row, active or not. Used for seeding the database.
func (s *CSVSource) ListAll(_ context.Context) ([]domain.KnowledgeEntry, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project csv: %w", err)
	}
	return ParseCSV(data)
}

// ParseCSV decodes registry rows. Files that are not valid UTF-8 are read as
// Latin-1.
func ParseCSV(data []byte) ([]domain.KnowledgeEntry, error) {
	if !utf8.Valid(data) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode project csv: %w", err)
		}
		data = decoded
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = ';'
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read project csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	nameCol, ok := cols["project_name"]
	if !ok {
		return nil, fmt.Errorf("%w: project_name column", domain.ErrMissingRequiredField)
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var entries []domain.KnowledgeEntry
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read project csv: %w", err)
		}
		if nameCol >= len(rec) || strings.TrimSpace(rec[nameCol]) == "" {
			continue
		}
		entries = append(entries, domain.KnowledgeEntry{
			Code:    field(rec, "project_code"),
			Name:    field(rec, "project_name"),
			Cluster: field(rec, "portfolio_cluster"),
			Active:  isActive(field(rec, "status")),
		})
	}
	return entries, nil
}

func isActive(status string) bool {
	switch status {
	case "1", "true", "True", "TRUE":
		return true
	}
	return false
}
