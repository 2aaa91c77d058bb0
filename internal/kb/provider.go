// Package kb loads and caches the knowledge base of active projects and
// clusters used for attribution.
package kb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cloo-solutions/statusdigest/internal/domain"
	"go.uber.org/zap"
)

// Source lists registry entries
type Source interface {
	ListActive(ctx context.Context) ([]domain.KnowledgeEntry, error)
}

// Static is a fixed in-memory source
type Static []domain.KnowledgeEntry

// ListActive implements Source
func (s Static) ListActive(_ context.Context) ([]domain.KnowledgeEntry, error) {
	var out []domain.KnowledgeEntry
	for _, e := range s {
		if e.Active {
			out = append(out, e)
		}
	}
	return out, nil
}

var errNoSource = errors.New("kb: no source configured")

// Provider caches the knowledge base snapshot. The primary source is tried
// first and the fallback on error. A snapshot is swapped in whole, so
// concurrent readers see either the old or the new one.
type Provider struct {
	primary  Source
	fallback Source
	logger   *zap.Logger

	snapshot atomic.Pointer[domain.KnowledgeBase]
	mu       sync.Mutex
}

// NewProvider creates a provider. Either source may be nil.
func NewProvider(primary, fallback Source, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{primary: primary, fallback: fallback, logger: logger}
}

// Load returns the cached snapshot, building it on first use
func (p *Provider) Load(ctx context.Context) (domain.KnowledgeBase, error) {
	if kb := p.snapshot.Load(); kb != nil {
		return *kb, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if kb := p.snapshot.Load(); kb != nil {
		return *kb, nil
	}
	return p.rebuild(ctx)
}

// ForceReload discards the cache and reads the sources again
func (p *Provider) ForceReload(ctx context.Context) (domain.KnowledgeBase, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rebuild(ctx)
}

func (p *Provider) rebuild(ctx context.Context) (domain.KnowledgeBase, error) {
	entries, err := p.read(ctx)
	if err != nil {
		return domain.KnowledgeBase{}, err
	}
	kb := domain.NewKnowledgeBase(entries)
	p.snapshot.Store(&kb)

	p.logger.Info("knowledge base loaded",
		zap.Int("projects", len(kb.Projects)),
		zap.Int("clusters", len(kb.ClusterNames)),
	)
	return kb, nil
}

func (p *Provider) read(ctx context.Context) ([]domain.KnowledgeEntry, error) {
	if p.primary == nil && p.fallback == nil {
		return nil, errNoSource
	}

	if p.primary != nil {
		entries, err := p.primary.ListActive(ctx)
		if err == nil {
			return entries, nil
		}
		if p.fallback == nil {
			return nil, fmt.Errorf("failed to load knowledge base: %w", err)
		}
		p.logger.Warn("primary knowledge base source failed, using fallback", zap.Error(err))
	}

	entries, err := p.fallback.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge base: %w", err)
	}
	return entries, nil
}
