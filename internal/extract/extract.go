// Package extract converts a mirrored HTML page into reviewable Markdown.
// The readable article is isolated first, so navigation, cookie banners and
// footer boilerplate do not end up in the output.
package extract

import (
	"fmt"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/mackee/go-readability"
	"gopkg.in/yaml.v3"
)

// Frontmatter is the metadata block heading each extracted document.
type Frontmatter struct {
	Title     string `yaml:"title"`
	SourceURL string `yaml:"source_url"`
	FetchedAt string `yaml:"fetched_at"`
}

// Document is one extracted page.
type Document struct {
	Frontmatter Frontmatter
	Markdown    string
}

// Page extracts the readable content of an HTML page and converts it to
// Markdown. sourceURL records where the page was originally mirrored from
// and fetchedAt when; both go into the frontmatter only.
func Page(htmlContent, sourceURL string, fetchedAt time.Time) (*Document, error) {
	article, err := readability.Extract(htmlContent, readability.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("extract article: %w", err)
	}
	if article.Root == nil {
		return nil, fmt.Errorf("no readable content in %s", sourceURL)
	}

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(readability.ToHTML(article.Root))
	if err != nil {
		return nil, fmt.Errorf("convert to markdown: %w", err)
	}

	return &Document{
		Frontmatter: Frontmatter{
			Title:     article.Title,
			SourceURL: sourceURL,
			FetchedAt: fetchedAt.UTC().Format(time.RFC3339),
		},
		Markdown: strings.TrimSpace(markdown),
	}, nil
}

// Render returns the document as Markdown with a YAML frontmatter block.
func (d *Document) Render() (string, error) {
	meta, err := yaml.Marshal(d.Frontmatter)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(meta)
	b.WriteString("---\n\n")
	b.WriteString(d.Markdown)
	b.WriteString("\n")
	return b.String(), nil
}
