package content

import (
	"bytes"
	"fmt"
	"io"

	"github.com/yuin/goldmark"
)

// MarkdownSource handles Markdown chapter files by converting them to HTML
// with goldmark.
type MarkdownSource struct{}

func (s *MarkdownSource) Load(r io.Reader, filename string) (Chapter, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return Chapter{}, fmt.Errorf("read markdown: %w", err)
	}

	var buf bytes.Buffer
	if err := goldmark.New().Convert(src, &buf); err != nil {
		return Chapter{}, fmt.Errorf("convert markdown: %w", err)
	}
	markup := buf.String()

	title := titleFromName(filename)
	if t := documentTitle(markup); t != "" {
		title = t
	}

	return Chapter{
		Title:     title,
		Markup:    markup,
		WordCount: countWords(markup),
	}, nil
}
