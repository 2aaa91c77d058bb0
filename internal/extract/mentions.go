package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/cloo-solutions/statusdigest/internal/domain"
	"github.com/cloo-solutions/statusdigest/internal/matching"
	"go.uber.org/zap"
)

const (
	nameToken = `[A-Za-z0-9'’_\-\s\.+À-ÖØ-öø-ÿ]+?`
	capacity  = `(?:\d+(?:[.,]\d+)?\s*(?:MWp?|MVA|MWh(?:/\d+h)?))`
)

// Generic name patterns, tried in order over the original text
var genericPatterns = []*regexp.Regexp{
	// (Region) Name 105MW
	regexp.MustCompile(`(?i)\((?:[^)]+)\)\s*(` + nameToken + `)\s+` + capacity),
	// Name (65 MW)
	regexp.MustCompile(`(?i)(` + nameToken + `)\s*\(\s*` + capacity + `\s*\)`),
	// Name 62.5MWp
	regexp.MustCompile(`(?i)(` + nameToken + `)\s+` + capacity),
	// (Region) Name (Details)
	regexp.MustCompile(`(?i)\((?:[^)]+)\)\s*(` + nameToken + `)\s*\((?:[^)]+)\)`),
}

const captureCutset = " _-:;,.()"

// Unmatched is an alias hit that no candidate confirmed
type Unmatched struct {
	Text     string
	Position int
	Kind     domain.MentionKind
}

// LowConfidence is a generic-pattern capture that resolved to nothing
type LowConfidence struct {
	Text      string
	Position  int
	BestScore float64
}

// Detection is the outcome of scanning one text
type Detection struct {
	Mentions      []domain.Mention
	Unmatched     []Unmatched
	LowConfidence []LowConfidence
}

// Projects returns the distinct projects named directly, in first-seen order
func (d Detection) Projects() []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range d.Mentions {
		if m.Kind != domain.MentionProject {
			continue
		}
		for _, n := range m.CanonicalNames {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

// Clusters returns the distinct clusters mentioned, in first-seen order
func (d Detection) Clusters() []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range d.Mentions {
		if m.Kind == domain.MentionCluster && !seen[m.Matched] {
			seen[m.Matched] = true
			out = append(out, m.Matched)
		}
	}
	return out
}

// ClusterOnly reports whether clusters were mentioned but no project was
func (d Detection) ClusterOnly() bool {
	return len(d.Projects()) == 0 && len(d.Clusters()) > 0
}

// MentionDetector finds project and cluster mentions for one knowledge base
// snapshot.
type MentionDetector struct {
	kb             domain.KnowledgeBase
	projectAliases *matching.AliasIndex
	clusterAliases *matching.AliasIndex
	projects       *matching.Matcher
	clusters       *matching.Matcher
	logger         *zap.Logger
}

// NewMentionDetector compiles the alias index for kb
func NewMentionDetector(kb domain.KnowledgeBase, batchSize int, logger *zap.Logger) (*MentionDetector, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	projectAliases, err := matching.NewAliasIndex(kb.Projects, batchSize)
	if err != nil {
		return nil, err
	}
	clusterAliases, err := matching.NewAliasIndex(kb.ClusterNames, batchSize)
	if err != nil {
		return nil, err
	}
	return &MentionDetector{
		kb:             kb,
		projectAliases: projectAliases,
		clusterAliases: clusterAliases,
		projects:       matching.NewMatcher(kb.Projects),
		clusters:       matching.NewMatcher(kb.ClusterNames),
		logger:         logger,
	}, nil
}

// Detect scans text for alias and generic-pattern mentions. Positions are
// byte offsets into text. A generic mention overlapping an alias mention is
// dropped: the alias hit is the more specific signal.
func (d *MentionDetector) Detect(text string) Detection {
	var det Detection
	folded := matching.Fold(text)

	for _, hit := range d.projectAliases.FindAll(folded.Text) {
		start, end, raw := folded.SourceSpan(hit.Start, hit.End)
		m, ok := d.projects.Resolve(raw, matching.AliasProjectThreshold)
		if !ok {
			det.Unmatched = append(det.Unmatched, Unmatched{Text: raw, Position: start, Kind: domain.MentionProject})
			continue
		}
		det.Mentions = append(det.Mentions, domain.Mention{
			Position:       start,
			End:            end,
			RawText:        raw,
			Matched:        m.Choice,
			CanonicalNames: []string{m.Choice},
			Kind:           domain.MentionProject,
		})
	}

	for _, hit := range d.clusterAliases.FindAll(folded.Text) {
		start, end, raw := folded.SourceSpan(hit.Start, hit.End)
		m, ok := d.clusters.Resolve(raw, matching.AliasClusterThreshold)
		if !ok {
			det.Unmatched = append(det.Unmatched, Unmatched{Text: raw, Position: start, Kind: domain.MentionCluster})
			continue
		}
		if members := d.kb.Members(m.Choice); len(members) > 0 {
			det.Mentions = append(det.Mentions, domain.Mention{
				Position:       start,
				End:            end,
				RawText:        raw,
				Matched:        m.Choice,
				CanonicalNames: append([]string(nil), members...),
				Kind:           domain.MentionCluster,
			})
		}
	}

	aliasSpans := append([]domain.Mention(nil), det.Mentions...)
	for _, rx := range genericPatterns {
		for _, loc := range rx.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[2], loc[3]
			if overlapsAny(aliasSpans, start, end) {
				continue
			}
			d.acceptGeneric(&det, text[start:end], start, end)
		}
	}

	if len(det.Unmatched) > 0 || len(det.LowConfidence) > 0 {
		d.logger.Debug("unresolved mentions",
			zap.Int("unmatched", len(det.Unmatched)),
			zap.Int("low_confidence", len(det.LowConfidence)),
		)
	}
	return det
}

func (d *MentionDetector) acceptGeneric(det *Detection, capture string, start, end int) {
	name := strings.TrimSpace(strings.Trim(capture, captureCutset))
	if len([]rune(name)) < 3 {
		return
	}
	// keep the position on the trimmed name
	if i := strings.Index(capture, name); i >= 0 {
		start += i
		end = start + len(name)
	}

	best, ok := d.projects.Resolve(name, matching.GenericProjectThreshold)
	if ok {
		det.Mentions = append(det.Mentions, domain.Mention{
			Position:       start,
			End:            end,
			RawText:        name,
			Matched:        best.Choice,
			CanonicalNames: []string{best.Choice},
			Kind:           domain.MentionProject,
		})
		return
	}

	if c, ok := d.clusters.Resolve(name, matching.GenericClusterThreshold); ok {
		if members := d.kb.Members(c.Choice); len(members) > 0 {
			det.Mentions = append(det.Mentions, domain.Mention{
				Position:       start,
				End:            end,
				RawText:        name,
				Matched:        c.Choice,
				CanonicalNames: append([]string(nil), members...),
				Kind:           domain.MentionCluster,
			})
			return
		}
	}

	score := best.Score
	if score < 0 {
		score = 0
	}
	det.LowConfidence = append(det.LowConfidence, LowConfidence{Text: name, Position: start, BestScore: score})
}

func overlapsAny(mentions []domain.Mention, start, end int) bool {
	for _, m := range mentions {
		if start < m.End && m.Position < end {
			return true
		}
	}
	return false
}

// PositionedNames is the set of canonical projects mentioned at one offset
type PositionedNames struct {
	Position int
	Names    []string
}

// Pack expands mentions to (position, project) pairs, drops duplicates
// case-insensitively and groups them by position in ascending order.
func Pack(mentions []domain.Mention) []PositionedNames {
	type pair struct {
		pos  int
		name string
	}
	var pairs []pair
	for _, m := range mentions {
		for _, n := range m.CanonicalNames {
			pairs = append(pairs, pair{pos: m.Position, name: n})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].pos != pairs[j].pos {
			return pairs[i].pos < pairs[j].pos
		}
		return strings.ToLower(pairs[i].name) < strings.ToLower(pairs[j].name)
	})

	var out []PositionedNames
	seen := make(map[string]bool)
	for _, p := range pairs {
		key := strings.ToLower(p.name)
		if n := len(out); n == 0 || out[n-1].Position != p.pos {
			out = append(out, PositionedNames{Position: p.pos})
			seen = make(map[string]bool)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		last := &out[len(out)-1]
		last.Names = append(last.Names, p.name)
	}
	return out
}
