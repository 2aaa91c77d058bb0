package domain

import "strings"

// KnowledgeEntry is one known project as seen by the attribution engine.
// Cluster is empty when the project belongs to no portfolio cluster.
type KnowledgeEntry struct {
	Code    string
	Name    string
	Cluster string
	Active  bool
}

// KnowledgeBase is the active snapshot used for matching. It is built once
// and never mutated; reloads produce a new value.
type KnowledgeBase struct {
	Projects     []string
	Clusters     map[string][]string
	ClusterNames []string
	Codes        map[string]string
}

// NewKnowledgeBase derives the active view from raw entries. Project and
// cluster member order follows entry order; duplicates are dropped.
func NewKnowledgeBase(entries []KnowledgeEntry) KnowledgeBase {
	kb := KnowledgeBase{
		Clusters: make(map[string][]string),
		Codes:    make(map[string]string),
	}
	seen := make(map[string]bool)
	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		if !e.Active || name == "" {
			continue
		}
		if !seen[name] {
			seen[name] = true
			kb.Projects = append(kb.Projects, name)
			if e.Code != "" {
				kb.Codes[strings.ToLower(name)] = e.Code
			}
		}
		cluster := strings.TrimSpace(e.Cluster)
		if cluster == "" {
			continue
		}
		if _, ok := kb.Clusters[cluster]; !ok {
			kb.ClusterNames = append(kb.ClusterNames, cluster)
		}
		if !containsString(kb.Clusters[cluster], name) {
			kb.Clusters[cluster] = append(kb.Clusters[cluster], name)
		}
	}
	return kb
}

// HasProject reports whether name is an exact active project name
func (kb KnowledgeBase) HasProject(name string) bool {
	return containsString(kb.Projects, name)
}

// Members returns the member projects of a cluster
func (kb KnowledgeBase) Members(cluster string) []string {
	return kb.Clusters[cluster]
}

// CodeFor returns the project code for a name, matched case-insensitively
func (kb KnowledgeBase) CodeFor(name string) (string, bool) {
	code, ok := kb.Codes[strings.ToLower(strings.TrimSpace(name))]
	return code, ok
}

// Empty reports whether the snapshot holds no projects
func (kb KnowledgeBase) Empty() bool {
	return len(kb.Projects) == 0
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
