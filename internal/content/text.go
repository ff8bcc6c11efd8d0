package content

import (
	"fmt"
	"html"
	"io"
	"strings"
)

// TextSource handles plain-text chapter files. Blank-line separated blocks
// become paragraphs.
type TextSource struct{}

func (s *TextSource) Load(r io.Reader, filename string) (Chapter, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Chapter{}, fmt.Errorf("read text: %w", err)
	}

	var buf strings.Builder
	for _, para := range strings.Split(string(data), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		buf.WriteString("<p>")
		buf.WriteString(html.EscapeString(strings.Join(strings.Fields(para), " ")))
		buf.WriteString("</p>\n")
	}
	markup := buf.String()

	return Chapter{
		Title:     titleFromName(filename),
		Markup:    markup,
		WordCount: countWords(markup),
	}, nil
}
