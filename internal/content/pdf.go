package content

import (
	"fmt"
	"html"
	"io"
	"os"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// PDFSource handles PDF chapter files. Extracted page text becomes
// paragraph markup.
type PDFSource struct{}

func (s *PDFSource) Load(r io.Reader, filename string) (Chapter, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "pagebreak-pdf-*.pdf")
	if err != nil {
		return Chapter{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return Chapter{}, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	text, err := extractPDFText(tmpPath)
	if err != nil {
		return Chapter{}, fmt.Errorf("extract pdf text: %w", err)
	}

	var buf strings.Builder
	for _, block := range strings.FieldsFunc(text, func(r rune) bool { return r == '\f' }) {
		for _, para := range strings.Split(block, "\n\n") {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			buf.WriteString("<p>")
			buf.WriteString(html.EscapeString(strings.Join(strings.Fields(para), " ")))
			buf.WriteString("</p>\n")
		}
	}
	markup := buf.String()

	return Chapter{
		Title:     titleFromName(filename),
		Markup:    markup,
		WordCount: countWords(markup),
	}, nil
}

func extractPDFText(path string) (string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i > 1 {
			buf.WriteString("\f")
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}
