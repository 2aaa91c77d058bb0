package extract

import (
	"context"

	"github.com/cloo-solutions/statusdigest/internal/domain"
)

// Extractor turns document blocks into rows
type Extractor interface {
	Extract(ctx context.Context, blocks []domain.Block, cwLabel string, category domain.Category) ([]domain.ExtractedRow, error)
}

// Engine picks the model-backed or the deterministic path per request
type Engine struct {
	deterministic Extractor
	llm           Extractor
}

// NewEngine wires both paths. llm may be nil when no model is configured.
func NewEngine(deterministic, llm Extractor) *Engine {
	return &Engine{deterministic: deterministic, llm: llm}
}

// HasLLM reports whether the model-backed path is available
func (e *Engine) HasLLM() bool {
	return e.llm != nil
}

// Extract runs the requested path. Asking for the model without one
// configured is domain.ErrLLMNotConfigured.
func (e *Engine) Extract(ctx context.Context, blocks []domain.Block, cwLabel string, category domain.Category, useLLM bool) ([]domain.ExtractedRow, error) {
	if useLLM {
		if e.llm == nil {
			return nil, domain.ErrLLMNotConfigured
		}
		return e.llm.Extract(ctx, blocks, cwLabel, category)
	}
	return e.deterministic.Extract(ctx, blocks, cwLabel, category)
}
