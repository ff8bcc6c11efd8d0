package content

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// HTMLSource handles chapter files that are already HTML.
type HTMLSource struct{}

func (s *HTMLSource) Load(r io.Reader, filename string) (Chapter, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Chapter{}, fmt.Errorf("read html: %w", err)
	}
	markup := string(data)

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

// documentTitle prefers the <title> tag and falls back to the first heading.
func documentTitle(markup string) string {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	if t := findElementText(root, "title"); t != "" {
		return t
	}
	return findElementText(root, "h1")
}

func findElementText(n *html.Node, tag string) string {
	if n.Type == html.ElementNode && n.Data == tag {
		var buf strings.Builder
		var extract func(*html.Node)
		extract = func(n *html.Node) {
			if n.Type == html.TextNode {
				buf.WriteString(n.Data)
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				extract(c)
			}
		}
		extract(n)
		return strings.TrimSpace(buf.String())
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findElementText(c, tag); t != "" {
			return t
		}
	}
	return ""
}
