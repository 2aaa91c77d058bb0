// Package document reads report files into ordered text blocks.
package document

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cloo-solutions/statusdigest/internal/domain"
	"go.uber.org/zap"
)

// Parser turns raw document bytes into blocks
type Parser interface {
	Parse(data []byte) ([]domain.Block, error)
}

// ParserFor selects a parser from the file extension
func ParserFor(filename string) (Parser, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".docx":
		return DOCXParser{}, nil
	case ".md", ".markdown":
		return NewMarkdownParser(), nil
	case ".txt", ".text":
		return TextParser{}, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedDocument, filepath.Ext(filename))
}

// Supported reports whether filename has a readable extension
func Supported(filename string) bool {
	_, err := ParserFor(filename)
	return err == nil
}

// Extract parses data with the parser matching filename. Only an unsupported
// file type is an error: a corrupt or unreadable document yields no blocks.
func Extract(filename string, data []byte) ([]domain.Block, error) {
	p, err := ParserFor(filename)
	if err != nil {
		return nil, err
	}
	blocks, err := p.Parse(data)
	if err != nil {
		zap.L().Warn("document: unreadable, treating as empty",
			zap.String("file", filepath.Base(filename)),
			zap.Error(err),
		)
		return nil, nil
	}
	return blocks, nil
}

// ExtractFile reads and parses a document from disk
func ExtractFile(path string) ([]domain.Block, error) {
	if _, err := ParserFor(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		zap.L().Warn("document: read failed, treating as empty", zap.String("path", path), zap.Error(err))
		return nil, nil
	}
	return Extract(path, data)
}

// Flatten joins block lines with newlines. Blank blocks contribute an empty
// line so section boundaries survive flattening.
func Flatten(blocks []domain.Block) string {
	var lines []string
	for _, b := range blocks {
		if b.IsBlank() {
			lines = append(lines, "")
			continue
		}
		for _, ln := range b.Lines {
			if ln != "" {
				lines = append(lines, ln)
			}
		}
	}
	return strings.Join(lines, "\n")
}

// Lines returns every non-empty block line in order
func Lines(blocks []domain.Block) []string {
	var lines []string
	for _, b := range blocks {
		for _, ln := range b.Lines {
			if strings.TrimSpace(ln) != "" {
				lines = append(lines, ln)
			}
		}
	}
	return lines
}

// Text is the flattened text without blank separators
func Text(blocks []domain.Block) string {
	return strings.Join(Lines(blocks), "\n")
}

var bulletPrefix = regexp.MustCompile(`^\s*(?:[-*•·–◦▪]|\d+[.)]|[A-Za-z][.)])\s+`)

// NormalizeBullet prefixes a bullet line with "- " unless it already starts
// with a bullet glyph or list numbering.
func NormalizeBullet(line string) string {
	line = strings.TrimSpace(line)
	if line == "" || bulletPrefix.MatchString(line) {
		return line
	}
	return "- " + line
}

func headingLevel(level int) *int {
	if level <= 0 {
		level = 1
	}
	return &level
}

// blockBuilder aggregates consecutive plain paragraphs into one block
type blockBuilder struct {
	blocks []domain.Block
	para   []string
}

func (b *blockBuilder) flush() {
	if len(b.para) > 0 {
		b.blocks = append(b.blocks, domain.Block{Kind: domain.BlockParagraph, Lines: b.para})
		b.para = nil
	}
}

func (b *blockBuilder) paragraph(line string) {
	b.para = append(b.para, line)
}

func (b *blockBuilder) add(block domain.Block) {
	b.flush()
	b.blocks = append(b.blocks, block)
}

func (b *blockBuilder) blank() {
	b.flush()
	if n := len(b.blocks); n == 0 || b.blocks[n-1].IsBlank() {
		return
	}
	b.blocks = append(b.blocks, domain.Block{Kind: domain.BlockBlank})
}

func (b *blockBuilder) result() []domain.Block {
	b.flush()
	if n := len(b.blocks); n > 0 && b.blocks[n-1].IsBlank() {
		b.blocks = b.blocks[:n-1]
	}
	return b.blocks
}
