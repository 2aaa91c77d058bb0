package document

import (
	"strings"

	"github.com/cloo-solutions/statusdigest/internal/domain"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser reads Markdown reports, including GFM tables
type MarkdownParser struct {
	md goldmark.Markdown
}

func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{
		md: goldmark.New(goldmark.WithExtensions(extension.Table)),
	}
}

// Parse implements Parser
func (p *MarkdownParser) Parse(data []byte) ([]domain.Block, error) {
	doc := p.md.Parser().Parse(text.NewReader(data))

	var b blockBuilder
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if n.Parent() != nil && n.Parent().Kind() == ast.KindDocument && n.HasBlankPreviousLines() {
			b.blank()
		}

		switch node := n.(type) {
		case *ast.Heading:
			if t := inlineText(node, data); t != "" {
				b.add(domain.Block{Kind: domain.BlockHeading, Level: headingLevel(node.Level), Lines: []string{t}})
			}
			return ast.WalkSkipChildren, nil

		case *ast.ListItem:
			var parts []string
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if c.Kind() == ast.KindList {
					continue
				}
				if t := inlineText(c, data); t != "" {
					parts = append(parts, t)
				}
			}
			if len(parts) > 0 {
				line := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
				b.add(domain.Block{Kind: domain.BlockBullet, Lines: []string{NormalizeBullet(line)}})
			}
			return ast.WalkContinue, nil

		case *ast.Paragraph, *ast.TextBlock:
			if n.Parent() != nil && n.Parent().Kind() == ast.KindListItem {
				return ast.WalkSkipChildren, nil
			}
			for _, ln := range strings.Split(inlineText(n, data), "\n") {
				if ln = strings.TrimSpace(ln); ln != "" {
					b.paragraph(ln)
				}
			}
			return ast.WalkSkipChildren, nil

		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				if ln := strings.TrimSpace(string(seg.Value(data))); ln != "" {
					b.paragraph(ln)
				}
			}
			return ast.WalkSkipChildren, nil

		case *east.Table:
			b.blank()
			return ast.WalkContinue, nil

		case *east.TableHeader, *east.TableRow:
			var cells []string
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				if t := inlineText(c, data); t != "" {
					cells = append(cells, t)
				}
			}
			if len(cells) > 0 {
				b.add(domain.Block{Kind: domain.BlockTableRow, Lines: []string{strings.Join(cells, " | ")}})
			}
			return ast.WalkSkipChildren, nil

		case *ast.ThematicBreak:
			b.blank()
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	return b.result(), nil
}

// inlineText renders the text content of n, turning line breaks into "\n"
func inlineText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.HardLineBreak() || t.SoftLineBreak() {
				sb.WriteByte('\n')
			}
		case *ast.String:
			sb.Write(t.Value)
		case *ast.CodeSpan:
			for cc := t.FirstChild(); cc != nil; cc = cc.NextSibling() {
				if txt, ok := cc.(*ast.Text); ok {
					sb.Write(txt.Segment.Value(source))
				}
			}
			return ast.WalkSkipChildren, nil
		case *ast.AutoLink:
			sb.Write(t.URL(source))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
