package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/statusdigest/internal/document"
	"github.com/cloo-solutions/statusdigest/internal/domain"
	"github.com/cloo-solutions/statusdigest/internal/matching"
	"go.uber.org/zap"
)

// Deterministic extracts rows from mentions alone, without a model
type Deterministic struct {
	kb             KnowledgeLoader
	minGap         int
	aliasBatchSize int
	logger         *zap.Logger
}

// NewDeterministic creates the rule-based extractor. minGap and
// aliasBatchSize fall back to their defaults when zero.
func NewDeterministic(kb KnowledgeLoader, minGap, aliasBatchSize int, logger *zap.Logger) *Deterministic {
	if logger == nil {
		logger = zap.NewNop()
	}
	if minGap <= 0 {
		minGap = DefaultMinGap
	}
	return &Deterministic{kb: kb, minGap: minGap, aliasBatchSize: aliasBatchSize, logger: logger}
}

// Extract always returns at least one row: a document without attributable
// spans yields a single row holding its full text.
func (d *Deterministic) Extract(ctx context.Context, blocks []domain.Block, cwLabel string, category domain.Category) ([]domain.ExtractedRow, error) {
	lines := document.Lines(blocks)
	if len(lines) == 0 {
		return []domain.ExtractedRow{fallbackRow("")}, nil
	}
	text := strings.Join(lines, "\n")

	var kb domain.KnowledgeBase
	if d.kb != nil {
		loaded, err := d.kb.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load knowledge base: %w", err)
		}
		kb = loaded
	}
	if kb.Empty() {
		d.logger.Warn("no active projects loaded, emitting raw summary")
	}

	detector, err := NewMentionDetector(kb, d.aliasBatchSize, d.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build mention detector: %w", err)
	}
	det := detector.Detect(text)
	if len(det.Unmatched) > 0 || len(det.LowConfidence) > 0 {
		names := make([]string, 0, len(det.Unmatched)+len(det.LowConfidence))
		for _, u := range det.Unmatched {
			names = append(names, u.Text)
		}
		for _, l := range det.LowConfidence {
			names = append(names, l.Text)
		}
		d.logger.Info("unmatched or low-confidence mentions", zap.Int("count", len(names)), zap.Strings("names", names))
	}

	assignments := AssignSections(text, Pack(det.Mentions), d.minGap)
	projects := matching.NewMatcher(kb.Projects)

	var rows []domain.ExtractedRow
	for _, a := range assignments {
		name := a.ProjectName
		if !kb.HasProject(name) {
			m, ok := projects.Resolve(name, matching.GenericProjectThreshold)
			if !ok {
				continue
			}
			name = m.Choice
		}
		span := a.Text(text)
		if span == "" {
			continue
		}
		rows = append(rows, domain.ExtractedRow{
			ProjectName: name,
			Title:       domain.StringPtr(rowTitle(name, cwLabel)),
			Summary:     span,
			Category:    categoryPtr(category),
			SourceText:  domain.StringPtr(span),
		})
	}

	if len(rows) == 0 {
		d.logger.Info("no project mentions detected, emitting single summary row")
		return []domain.ExtractedRow{fallbackRow(strings.TrimSpace(text))}, nil
	}
	return rows, nil
}

func fallbackRow(text string) domain.ExtractedRow {
	return domain.ExtractedRow{Summary: text, SourceText: domain.StringPtr(text)}
}
