// Package content supplies sanitized chapter markup and word counts to the
// pagination engine. A book is a directory of chapter files in spine order;
// each supported format converts to HTML markup on load.
package content

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// Chapter is one unit of book content as the engine consumes it.
type Chapter struct {
	Title     string
	Markup    string // sanitized HTML
	WordCount int
}

// Provider is the content collaborator the engine depends on.
type Provider interface {
	Title() string
	ChapterCount() int
	Chapter(i int) (Chapter, error)
}

// Source converts raw chapter bytes into a Chapter.
type Source interface {
	Load(r io.Reader, filename string) (Chapter, error)
}

// SupportedExtensions lists chapter file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".html": true,
	".htm":  true,
	".md":   true,
	".txt":  true,
	".pdf":  true,
	".docx": true,
}

// ForFile returns the appropriate source for a filename.
func ForFile(filename string) (Source, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".html", ".htm":
		return &HTMLSource{}, nil
	case ".md", ".markdown":
		return &MarkdownSource{}, nil
	case ".txt":
		return &TextSource{}, nil
	case ".pdf":
		return &PDFSource{}, nil
	case ".docx":
		return &DOCXSource{}, nil
	default:
		return nil, fmt.Errorf("unsupported chapter extension: %s", ext)
	}
}

// Dir is a Provider backed by a directory of chapter files, ordered by
// filename. All chapters load eagerly at construction so word counts are
// available without I/O afterwards.
type Dir struct {
	title    string
	chapters []Chapter
}

// NewDir scans the directory and loads every supported chapter file.
func NewDir(path string) (*Dir, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read book dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if SupportedExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		return nil, fmt.Errorf("no chapter files in %s", path)
	}

	d := &Dir{title: filepath.Base(path)}
	for _, name := range names {
		src, err := ForFile(name)
		if err != nil {
			continue
		}
		f, err := os.Open(filepath.Join(path, name))
		if err != nil {
			return nil, fmt.Errorf("open chapter %s: %w", name, err)
		}
		ch, err := src.Load(f, name)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("load chapter %s: %w", name, err)
		}
		d.chapters = append(d.chapters, ch)
	}
	return d, nil
}

func (d *Dir) Title() string     { return d.title }
func (d *Dir) ChapterCount() int { return len(d.chapters) }

func (d *Dir) Chapter(i int) (Chapter, error) {
	if i < 0 || i >= len(d.chapters) {
		return Chapter{}, fmt.Errorf("chapter %d out of range [0,%d)", i, len(d.chapters))
	}
	return d.chapters[i], nil
}

// Static is a Provider over in-memory chapters, used in tests.
type Static struct {
	BookTitle string
	Chapters  []Chapter
}

func (s *Static) Title() string     { return s.BookTitle }
func (s *Static) ChapterCount() int { return len(s.Chapters) }

func (s *Static) Chapter(i int) (Chapter, error) {
	if i < 0 || i >= len(s.Chapters) {
		return Chapter{}, fmt.Errorf("chapter %d out of range [0,%d)", i, len(s.Chapters))
	}
	return s.Chapters[i], nil
}

// countWords strips tags from markup and counts whitespace-separated words.
func countWords(markup string) int {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return len(strings.Fields(markup))
	}
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return len(strings.Fields(buf.String()))
}

// titleFromName strips the extension and any leading sort prefix like "03-".
func titleFromName(filename string) string {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	name = strings.TrimLeft(name, "0123456789")
	name = strings.TrimLeft(name, "-_. ")
	if name == "" {
		return filename
	}
	return name
}
