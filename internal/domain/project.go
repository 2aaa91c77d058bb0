package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// VirtualProjectPrefix marks projects created on the fly for names that did
// not resolve to the registry.
const VirtualProjectPrefix = "VIRT_"

// UnknownProjectName stands in for rows that carry no project name
const UnknownProjectName = "Unknown Project"

// VirtualProjectCode derives a stable code for an unregistered project name:
// VIRT_<log date as YYYYMMDD>_<first 8 hex chars of sha1(name)>.
func VirtualProjectCode(name string, logDate time.Time) string {
	sum := sha1.Sum([]byte(strings.TrimSpace(name)))
	return VirtualProjectPrefix + logDate.Format("20060102") + "_" + hex.EncodeToString(sum[:])[:8]
}

// Project is a row of the project registry
type Project struct {
	Code      string
	Name      string
	Cluster   string
	Active    bool
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewProject creates a new active Project instance
func NewProject(code, name, cluster string, createdAt time.Time) *Project {
	return &Project{
		Code:      code,
		Name:      name,
		Cluster:   cluster,
		Active:    true,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// IsVirtual reports whether the project was auto-created during an import
func (p *Project) IsVirtual() bool {
	return strings.HasPrefix(p.Code, VirtualProjectPrefix)
}

// Entry returns the knowledge-base view of the project
func (p *Project) Entry() KnowledgeEntry {
	return KnowledgeEntry{
		Code:    p.Code,
		Name:    p.Name,
		Cluster: p.Cluster,
		Active:  p.Active,
	}
}

// ValidateProject validates a Project instance
func ValidateProject(p *Project) error {
	if p == nil {
		return fmt.Errorf("project cannot be nil")
	}

	if p.Code == "" {
		return fmt.Errorf("%w: project code", ErrMissingRequiredField)
	}

	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyProjectName
	}

	return nil
}
