package extract

import (
	"strings"
	"testing"
	"time"
)

const samplePage = `<!DOCTYPE html>
<html><head><title>Clinical Results</title></head>
<body>
<nav><a href="/">Home</a><a href="/news">News</a></nav>
<article>
<h1>Clinical Results</h1>
<p>The study enrolled participants across twelve clinics over a period of
eighteen months, during which every radiograph was independently reviewed by
three annotators before inclusion in the evaluation set. Agreement between
annotators was measured continuously and disagreements were adjudicated by a
senior reviewer with more than a decade of experience.</p>
<p>Across the full evaluation set the detection pipeline identified the
relevant findings with materially higher sensitivity than the unassisted
baseline, while the false positive rate stayed within the pre-registered
acceptance bounds. Secondary endpoints, including reading time and
inter-reader variability, improved as well.</p>
<p>These results held across subgroups split by device manufacturer, image
resolution and patient age, suggesting that the improvement is not an
artifact of any single acquisition setup but a property of the pipeline
itself. A follow-up study extends the analysis to longitudinal data.</p>
</article>
<footer>All rights reserved.</footer>
</body></html>`

func TestPage(t *testing.T) {
	fetched := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	doc, err := Page(samplePage, "https://site.example/results.html", fetched)
	if err != nil {
		t.Fatalf("Page() error = %v", err)
	}

	if doc.Frontmatter.Title != "Clinical Results" {
		t.Errorf("Title = %q", doc.Frontmatter.Title)
	}
	if doc.Frontmatter.FetchedAt != "2024-03-01T12:00:00Z" {
		t.Errorf("FetchedAt = %q", doc.Frontmatter.FetchedAt)
	}
	if !strings.Contains(doc.Markdown, "twelve clinics") {
		t.Errorf("article text missing from markdown:\n%s", doc.Markdown)
	}
}

func TestRender(t *testing.T) {
	doc := &Document{
		Frontmatter: Frontmatter{
			Title:     "Clinical Results",
			SourceURL: "https://site.example/results.html",
			FetchedAt: "2024-03-01T12:00:00Z",
		},
		Markdown: "# Clinical Results\n\nBody.",
	}

	got, err := doc.Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if !strings.HasPrefix(got, "---\n") {
		t.Errorf("missing opening frontmatter fence:\n%s", got)
	}
	for _, want := range []string{
		"title: Clinical Results",
		"source_url: https://site.example/results.html",
		"fetched_at: \"2024-03-01T12:00:00Z\"",
		"---\n\n# Clinical Results",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}
