package domain

import (
	"fmt"
	"strings"
)

// Category is the business area a report row belongs to
type Category string

const (
	CategoryDevelopment Category = "Development"
	CategoryEPC         Category = "EPC"
	CategoryFinance     Category = "Finance"
	CategoryInvestment  Category = "Investment"
)

// Categories lists the accepted categories in canonical order
var Categories = []Category{CategoryDevelopment, CategoryEPC, CategoryFinance, CategoryInvestment}

// ParseCategory accepts a canonical category name or one of the short
// filename codes (DEV, EPC, FINANCE, INVESTMENT).
func ParseCategory(s string) (Category, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEVELOPMENT", "DEV":
		return CategoryDevelopment, nil
	case "EPC":
		return CategoryEPC, nil
	case "FINANCE", "FIN", "FINANCIAL":
		return CategoryFinance, nil
	case "INVESTMENT", "INV", "INVEST":
		return CategoryInvestment, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// IsValid reports whether c is one of the canonical categories
func (c Category) IsValid() bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// Section is a contiguous span of the flattened document text
type Section struct {
	Start int
	End   int
	Text  string
}

// MentionKind tells whether a mention resolved to a project or a cluster
type MentionKind string

const (
	MentionProject MentionKind = "project"
	MentionCluster MentionKind = "cluster"
)

// Mention is a detected reference to a known project or cluster. For cluster
// mentions CanonicalNames already holds the expanded member projects and
// Matched holds the cluster name.
type Mention struct {
	Position       int
	End            int
	RawText        string
	Matched        string
	CanonicalNames []string
	Kind           MentionKind
}

// ExtractedRow is one project update produced from a report
type ExtractedRow struct {
	ProjectName string    `json:"project_name"`
	Title       *string   `json:"title"`
	Summary     string    `json:"summary"`
	NextActions *string   `json:"next_actions"`
	Owner       *string   `json:"owner"`
	Category    *Category `json:"category"`
	SourceText  *string   `json:"source_text"`
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}

// Deref returns the pointed-to string or ""
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
