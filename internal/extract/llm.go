package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/statusdigest/internal/config"
	"github.com/cloo-solutions/statusdigest/internal/document"
	"github.com/cloo-solutions/statusdigest/internal/domain"
	"github.com/cloo-solutions/statusdigest/internal/openai"
	"github.com/cloo-solutions/statusdigest/internal/telemetry"
	"go.uber.org/zap"
)

const (
	// DefaultCandidateChunkSize is how many whitelist names go into one prompt
	DefaultCandidateChunkSize = 30
	// MaxRowSummaryChars caps the summary of a model-produced row
	MaxRowSummaryChars = 1000
	// MinEvidenceChars is the shortest model evidence kept as source text
	MinEvidenceChars = 80

	defaultTemperature = 0.2
)

// ChatCompleter sends one chat completion request
type ChatCompleter interface {
	Complete(ctx context.Context, req openai.Request) (openai.Reply, error)
}

// KnowledgeLoader returns the current knowledge base snapshot
type KnowledgeLoader interface {
	Load(ctx context.Context) (domain.KnowledgeBase, error)
}

// Strategy is one way of asking the model for structured output
type Strategy int

const (
	StrategyJSONMode Strategy = iota
	StrategyFunctionCalling
	StrategyPromptOnly
)

// Strategies lists the strategies in the order they are tried
var Strategies = []Strategy{StrategyJSONMode, StrategyFunctionCalling, StrategyPromptOnly}

func (s Strategy) String() string {
	switch s {
	case StrategyJSONMode:
		return "json_mode"
	case StrategyFunctionCalling:
		return "function_calling"
	case StrategyPromptOnly:
		return "prompt_only"
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

func (s Strategy) request(messages []openai.Message, temperature float32, maxTokens int) openai.Request {
	req := openai.Request{
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	switch s {
	case StrategyJSONMode:
		req.Mode = openai.ModeJSON
	case StrategyFunctionCalling:
		req.Mode = openai.ModeFunction
		req.Function = extractionFunction
	}
	return req
}

// attemptResult is the outcome of one strategy. content is kept for the
// recovery pass even when parsing failed.
type attemptResult struct {
	content string
	parsed  parseResult
	err     error
}

// LLMOptions tunes the model-backed extractor
type LLMOptions struct {
	Limits             config.TokenLimits
	WhitelistEnabled   bool
	ChunkAllCandidates bool
	MaxSectionChars    int
	CandidateChunkSize int
	AliasBatchSize     int
	Temperature        float32
}

// OptionsFromConfig maps application config onto LLMOptions
func OptionsFromConfig(cfg *config.Config) LLMOptions {
	return LLMOptions{
		Limits:             cfg.TokenLimits(),
		WhitelistEnabled:   cfg.WhitelistEnabled,
		ChunkAllCandidates: cfg.ChunkAllCandidates,
		MaxSectionChars:    cfg.MaxSectionChars,
		AliasBatchSize:     cfg.AliasBatchSize,
	}
}

// LLMExtractor extracts rows section by section through a chat model
type LLMExtractor struct {
	chat   ChatCompleter
	kb     KnowledgeLoader
	opts   LLMOptions
	logger *zap.Logger
}

// NewLLMExtractor returns domain.ErrLLMNotConfigured when chat is nil
func NewLLMExtractor(chat ChatCompleter, kb KnowledgeLoader, opts LLMOptions, logger *zap.Logger) (*LLMExtractor, error) {
	if chat == nil {
		return nil, domain.ErrLLMNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxSectionChars <= 0 {
		opts.MaxSectionChars = DefaultMaxSectionChars
	}
	if opts.CandidateChunkSize <= 0 {
		opts.CandidateChunkSize = DefaultCandidateChunkSize
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.Limits == (config.TokenLimits{}) {
		opts.Limits = config.TokenLimits{MaxContext: 8000, MaxInput: 3500, MaxOutput: 4000, SafetyBuffer: 500}
	}
	return &LLMExtractor{chat: chat, kb: kb, opts: opts, logger: logger}, nil
}

// Extract runs every section of the document through the model and
// post-processes the combined rows. Model failures never surface as errors;
// a section the model cannot answer yields no rows.
func (e *LLMExtractor) Extract(ctx context.Context, blocks []domain.Block, cwLabel string, category domain.Category) ([]domain.ExtractedRow, error) {
	ctx, span := telemetry.StartSpan(ctx, "extract.llm", telemetry.SpanAttributes{
		CWLabel:   cwLabel,
		Category:  string(category),
		Operation: "extract_llm",
	})
	defer span.End()

	var kb domain.KnowledgeBase
	if e.kb != nil {
		loaded, err := e.kb.Load(ctx)
		if err != nil {
			span.SetError(err)
			return nil, fmt.Errorf("failed to load knowledge base: %w", err)
		}
		kb = loaded
	}
	detector, err := NewMentionDetector(kb, e.opts.AliasBatchSize, e.logger)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to build mention detector: %w", err)
	}

	sections := SplitSections(document.Flatten(blocks), e.opts.MaxSectionChars)
	span.SetData("sections", len(sections))

	var rows []domain.ExtractedRow
	for i, section := range sections {
		sectionRows := e.extractSection(ctx, section, kb, detector, cwLabel, category)
		e.logger.Debug("section extracted",
			zap.Int("section", i),
			zap.Int("chars", utf8.RuneCountInString(section)),
			zap.Int("rows", len(sectionRows)),
		)
		rows = append(rows, sectionRows...)
	}

	out := NewPostProcessor(kb).Process(rows)
	e.logger.Info("llm extraction finished",
		zap.String("cw", cwLabel),
		zap.Int("sections", len(sections)),
		zap.Int("rows", len(out)),
	)
	return out, nil
}

func (e *LLMExtractor) extractSection(ctx context.Context, section string, kb domain.KnowledgeBase, detector *MentionDetector, cwLabel string, category domain.Category) []domain.ExtractedRow {
	det := detector.Detect(section)
	candidates, allowed := e.candidates(det, kb)

	chunks := chunkNames(candidates, e.opts.CandidateChunkSize)
	if len(chunks) == 0 {
		chunks = [][]string{nil}
	}
	if !e.opts.WhitelistEnabled && !e.opts.ChunkAllCandidates {
		chunks = chunks[:1]
	}

	text := SafeTruncate(section, e.opts.Limits.MaxInput)
	var rows []domain.ExtractedRow
	for _, chunk := range chunks {
		rows = append(rows, e.runStrategies(ctx, text, cwLabel, category, chunk)...)
	}

	if e.opts.WhitelistEnabled {
		rows = filterAllowed(rows, allowed)
	}

	if len(rows) == 0 && det.ClusterOnly() {
		return clusterFallback(det, kb, section, cwLabel, category)
	}

	for i := range rows {
		finalizeRow(&rows[i], section)
	}
	return rows
}

// candidates builds the names offered to the model and the allowed set used
// for filtering. With nothing detected the whole knowledge base is offered.
func (e *LLMExtractor) candidates(det Detection, kb domain.KnowledgeBase) ([]string, map[string]bool) {
	var names []string
	allowed := make(map[string]bool)
	add := func(n string, allow bool) {
		key := strings.ToLower(n)
		if allow {
			allowed[key] = true
		}
		for _, existing := range names {
			if strings.EqualFold(existing, n) {
				return
			}
		}
		names = append(names, n)
	}

	projects, clusters := det.Projects(), det.Clusters()
	if len(projects) == 0 && len(clusters) == 0 {
		for _, p := range kb.Projects {
			add(p, true)
		}
		for _, c := range kb.ClusterNames {
			add(c, false)
			for _, m := range kb.Members(c) {
				add(m, true)
			}
		}
		return names, allowed
	}

	for _, p := range projects {
		add(p, true)
	}
	for _, c := range clusters {
		add(c, false)
		for _, m := range kb.Members(c) {
			add(m, true)
		}
	}
	return names, allowed
}

// runStrategies tries each strategy in turn and falls back to recovering
// entries from the raw answers.
func (e *LLMExtractor) runStrategies(ctx context.Context, text, cwLabel string, category domain.Category, candidates []string) []domain.ExtractedRow {
	messages := buildMessages(text, cwLabel, string(category), candidates)
	inputTokens := 0
	for _, m := range messages {
		inputTokens += EstimateTokens(m.Content)
	}
	maxTokens := e.opts.Limits.OutputTokensFor(inputTokens)

	var contents []string
	for _, s := range Strategies {
		res := e.attempt(ctx, s, messages, maxTokens)
		if res.err != nil {
			e.logger.Warn("llm attempt failed", zap.Stringer("strategy", s), zap.Error(res.err))
			continue
		}
		if res.parsed.valid {
			if res.parsed.dropped > 0 {
				e.logger.Debug("llm entries dropped", zap.Stringer("strategy", s), zap.Int("dropped", res.parsed.dropped))
			}
			e.logger.Debug("llm attempt succeeded", zap.Stringer("strategy", s), zap.Int("rows", len(res.parsed.rows)))
			return res.parsed.rows
		}
		e.logger.Warn("llm answer did not parse", zap.Stringer("strategy", s))
		contents = append(contents, res.content)
	}

	for _, content := range contents {
		if rows := recoverEntries(content); len(rows) > 0 {
			e.logger.Info("recovered entries from malformed answer", zap.Int("rows", len(rows)))
			return rows
		}
	}

	if len(contents) > 0 {
		e.logger.Warn("all extraction attempts failed",
			zap.String("last_content", truncateRunes(contents[len(contents)-1], 500)))
	}
	return nil
}

func (e *LLMExtractor) attempt(ctx context.Context, s Strategy, messages []openai.Message, maxTokens int) attemptResult {
	reply, err := e.chat.Complete(ctx, s.request(messages, e.opts.Temperature, maxTokens))
	if err != nil {
		return attemptResult{err: err}
	}

	content := reply.Content
	if s == StrategyFunctionCalling && reply.FunctionName == extractionFunctionName {
		content = reply.FunctionArgs
	}
	content = strings.TrimSpace(content)
	return attemptResult{content: content, parsed: parseContent(content)}
}

func chunkNames(names []string, size int) [][]string {
	var chunks [][]string
	for start := 0; start < len(names); start += size {
		end := start + size
		if end > len(names) {
			end = len(names)
		}
		chunks = append(chunks, names[start:end])
	}
	return chunks
}

func filterAllowed(rows []domain.ExtractedRow, allowed map[string]bool) []domain.ExtractedRow {
	out := rows[:0]
	for _, r := range rows {
		if allowed[strings.ToLower(strings.TrimSpace(r.ProjectName))] {
			out = append(out, r)
		}
	}
	return out
}

// clusterFallback emits one row per member of each mentioned cluster
func clusterFallback(det Detection, kb domain.KnowledgeBase, section, cwLabel string, category domain.Category) []domain.ExtractedRow {
	var rows []domain.ExtractedRow
	seen := make(map[string]bool)
	for _, c := range det.Clusters() {
		for _, member := range kb.Members(c) {
			if seen[member] {
				continue
			}
			seen[member] = true
			rows = append(rows, domain.ExtractedRow{
				ProjectName: member,
				Title:       domain.StringPtr(rowTitle(member, cwLabel)),
				Summary:     truncateRunes(section, MaxRowSummaryChars),
				Category:    categoryPtr(category),
				SourceText:  domain.StringPtr(section),
			})
		}
	}
	return rows
}

// finalizeRow enforces the evidence and summary length rules. Evidence that
// is short or not found in the section is replaced by the section itself.
func finalizeRow(r *domain.ExtractedRow, section string) {
	source := section
	evidence := strings.TrimSpace(domain.Deref(r.SourceText))
	if utf8.RuneCountInString(evidence) >= MinEvidenceChars {
		if i := indexFold(section, evidence); i >= 0 {
			source = section[i : i+len(evidence)]
		}
	}
	r.SourceText = domain.StringPtr(source)
	r.Summary = truncateRunes(r.Summary, MaxRowSummaryChars)
}

// indexFold is a case-insensitive strings.Index
func indexFold(s, substr string) int {
	if i := strings.Index(s, substr); i >= 0 {
		return i
	}
	for i := range s {
		if len(s)-i < len(substr) {
			break
		}
		if strings.EqualFold(s[i:i+len(substr)], substr) {
			return i
		}
	}
	return -1
}

func rowTitle(project, cwLabel string) string {
	if cwLabel == "" {
		return project
	}
	return project + " - " + cwLabel
}

func categoryPtr(c domain.Category) *domain.Category {
	if !c.IsValid() {
		return nil
	}
	return &c
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
