package document

import (
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/statusdigest/internal/domain"
	"golang.org/x/text/encoding/charmap"
)

// TextParser reads plain-text reports line by line
type TextParser struct{}

// Parse implements Parser. Input that is not valid UTF-8 is decoded as
// Windows-1252.
func (TextParser) Parse(data []byte) ([]domain.Block, error) {
	content := string(data)
	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, err
		}
		content = string(decoded)
	}
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	var b blockBuilder
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			b.blank()
		case bulletPrefix.MatchString(line):
			b.add(domain.Block{Kind: domain.BlockBullet, Lines: []string{line}})
		default:
			b.paragraph(line)
		}
	}
	return b.result(), nil
}
