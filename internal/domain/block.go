package domain

import "strings"

// BlockKind classifies a structural unit of a document
type BlockKind string

const (
	BlockHeading   BlockKind = "heading"
	BlockBullet    BlockKind = "bullet"
	BlockParagraph BlockKind = "paragraph"
	BlockTableRow  BlockKind = "table_row"
	// BlockBlank marks a preserved empty paragraph. It acts as a section boundary.
	BlockBlank BlockKind = "blank"
)

// Block is an ordered unit of extracted document text
type Block struct {
	Kind  BlockKind
	Level *int
	Lines []string
}

// Text joins the non-empty lines of the block
func (b Block) Text() string {
	var parts []string
	for _, ln := range b.Lines {
		if ln != "" {
			parts = append(parts, ln)
		}
	}
	return strings.Join(parts, "\n")
}

// IsBlank reports whether the block is a boundary marker
func (b Block) IsBlank() bool {
	return b.Kind == BlockBlank
}
