package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/cloo-solutions/statusdigest/internal/domain"
)

const wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

var errNoDocumentPart = errors.New("docx: word/document.xml not found")

// DOCXParser reads Office Open XML word documents
type DOCXParser struct{}

type docxStyles map[string]string

type stylesXML struct {
	Styles []struct {
		ID   string `xml:"styleId,attr"`
		Name struct {
			Val string `xml:"val,attr"`
		} `xml:"name"`
	} `xml:"style"`
}

type docxParagraph struct {
	styleID  string
	numbered bool
	text     strings.Builder
}

type docxCell struct {
	parts []string
}

// Parse implements Parser
func (DOCXParser) Parse(data []byte) ([]domain.Block, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("docx: open archive: %w", err)
	}

	var docFile, stylesFile *zip.File
	for _, f := range zr.File {
		switch f.Name {
		case "word/document.xml":
			docFile = f
		case "word/styles.xml":
			stylesFile = f
		}
	}
	if docFile == nil {
		return nil, errNoDocumentPart
	}

	styles := docxStyles{}
	if stylesFile != nil {
		if s, err := readStyles(stylesFile); err == nil {
			styles = s
		}
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("docx: open document part: %w", err)
	}
	defer rc.Close()

	return parseDocumentXML(rc, styles)
}

func readStyles(f *zip.File) (docxStyles, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var doc stylesXML
	if err := xml.NewDecoder(rc).Decode(&doc); err != nil {
		return nil, err
	}
	styles := make(docxStyles, len(doc.Styles))
	for _, s := range doc.Styles {
		styles[s.ID] = s.Name.Val
	}
	return styles, nil
}

func parseDocumentXML(r io.Reader, styles docxStyles) ([]domain.Block, error) {
	dec := xml.NewDecoder(r)
	var (
		b        blockBuilder
		para     *docxParagraph
		inText   bool
		tblDepth int
		row      []string
		cell     *docxCell
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("docx: decode document part: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordNS {
				continue
			}
			switch t.Name.Local {
			case "tbl":
				tblDepth++
			case "tr":
				if tblDepth == 1 {
					row = nil
				}
			case "tc":
				if tblDepth == 1 {
					cell = &docxCell{}
				}
			case "p":
				para = &docxParagraph{}
			case "pStyle":
				if para != nil {
					para.styleID = attrVal(t)
				}
			case "numPr":
				if para != nil {
					para.numbered = true
				}
			case "t":
				inText = true
			case "tab":
				if para != nil {
					para.text.WriteByte('\t')
				}
			case "br", "cr":
				if para != nil {
					para.text.WriteByte(' ')
				}
			}
		case xml.CharData:
			if inText && para != nil {
				para.text.Write(t)
			}
		case xml.EndElement:
			if t.Name.Space != wordNS {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if para == nil {
					continue
				}
				text := strings.TrimSpace(para.text.String())
				if tblDepth > 0 {
					if cell != nil && text != "" {
						cell.parts = append(cell.parts, text)
					}
				} else {
					emitParagraph(&b, para, text, styles)
				}
				para = nil
			case "tc":
				if tblDepth == 1 && cell != nil {
					if text := strings.TrimSpace(strings.Join(cell.parts, " ")); text != "" {
						row = append(row, text)
					}
					cell = nil
				}
			case "tr":
				if tblDepth == 1 && len(row) > 0 {
					b.add(domain.Block{Kind: domain.BlockTableRow, Lines: []string{strings.Join(row, " | ")}})
					row = nil
				}
			case "tbl":
				tblDepth--
			}
		}
	}

	return b.result(), nil
}

func emitParagraph(b *blockBuilder, p *docxParagraph, text string, styles docxStyles) {
	if text == "" {
		b.blank()
		return
	}

	styleName := strings.ToLower(p.styleID)
	if name, ok := styles[p.styleID]; ok && name != "" {
		styleName = strings.ToLower(name)
	}

	if level, ok := headingStyle(styleName); ok {
		b.add(domain.Block{Kind: domain.BlockHeading, Level: headingLevel(level), Lines: []string{text}})
		return
	}

	if p.numbered || strings.Contains(styleName, "bullet") ||
		strings.Contains(styleName, "list") || strings.Contains(styleName, "number") {
		b.add(domain.Block{Kind: domain.BlockBullet, Lines: []string{NormalizeBullet(text)}})
		return
	}

	b.paragraph(text)
}

// headingStyle recognizes "Heading N" and "Title" style names
func headingStyle(name string) (int, bool) {
	if name == "title" {
		return 1, true
	}
	if !strings.HasPrefix(name, "heading") {
		return 0, false
	}
	digits := strings.TrimLeftFunc(strings.TrimPrefix(name, "heading"), func(r rune) bool {
		return !unicode.IsDigit(r)
	})
	level, err := strconv.Atoi(digits)
	if err != nil {
		return 1, true
	}
	return level, true
}

func attrVal(el xml.StartElement) string {
	for _, a := range el.Attr {
		if a.Name.Local == "val" {
			return a.Value
		}
	}
	return ""
}
