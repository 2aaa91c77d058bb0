package extract

import (
	"github.com/cloo-solutions/statusdigest/internal/domain"
	"github.com/cloo-solutions/statusdigest/internal/kb"
)

func testEntries() []domain.KnowledgeEntry {
	return []domain.KnowledgeEntry{
		{Code: "P001", Name: "Divor PV1", Cluster: "Cluster Madrid", Active: true},
		{Code: "P002", Name: "Divor PV2", Cluster: "Cluster Madrid", Active: true},
		{Code: "P003", Name: "Tordesillas A2", Active: true},
		{Code: "P004", Name: "Évora Solar", Active: true},
		{Code: "P005", Name: "Cabrera Solar", Active: true},
		{Code: "P006", Name: "Retired Site", Active: false},
	}
}

func testKB() domain.KnowledgeBase {
	return domain.NewKnowledgeBase(testEntries())
}

func testLoader(entries ...domain.KnowledgeEntry) *kb.Provider {
	if entries == nil {
		entries = testEntries()
	}
	return kb.NewProvider(kb.Static(entries), nil, nil)
}

func paragraphs(lines ...string) []domain.Block {
	var blocks []domain.Block
	for _, ln := range lines {
		if ln == "" {
			blocks = append(blocks, domain.Block{Kind: domain.BlockBlank})
			continue
		}
		blocks = append(blocks, domain.Block{Kind: domain.BlockParagraph, Lines: []string{ln}})
	}
	return blocks
}
