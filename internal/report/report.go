// Package report audits a processed mirror: it lists per-page titles,
// references that still point at external hosts, and hreflang alternates
// with the preferred locale resolved against a priority list.
package report

import (
	"bytes"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Page is the audit result for one mirrored HTML file.
type Page struct {
	// File is the path relative to the site root.
	File string
	// Title is the page's <title> text, trimmed.
	Title string
	// ExternalURLs are href/src/srcset references that still point at an
	// absolute http(s) URL after post-processing.
	ExternalURLs []string
	// Alternates maps hreflang locale codes to their URLs.
	Alternates map[string]string
	// PreferredLocale and PreferredURL are the best alternate for the
	// configured locale priority; empty when the page declares none.
	PreferredLocale string
	PreferredURL    string
}

// Report is the audit of a whole mirrored site.
type Report struct {
	Pages []Page
	// ExternalHosts counts leftover external references per host, across
	// all pages. A fully localized mirror has an empty map.
	ExternalHosts map[string]int
}

// Audit walks the mirrored site at siteRoot and inspects every HTML page.
// localePriority orders hreflang preferences (e.g. ["en", "ja"]).
func Audit(siteRoot string, localePriority []string) (*Report, error) {
	root, err := filepath.Abs(siteRoot)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("site root not found: %s", root)
	}

	report := &Report{ExternalHosts: map[string]int{}}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".html") {
			return nil
		}

		page, err := auditPage(path, localePriority)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		page.File = filepath.ToSlash(rel)

		for _, raw := range page.ExternalURLs {
			if u, err := url.Parse(raw); err == nil && u.Hostname() != "" {
				report.ExternalHosts[strings.ToLower(u.Hostname())]++
			}
		}
		report.Pages = append(report.Pages, page)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(report.Pages, func(i, j int) bool {
		return report.Pages[i].File < report.Pages[j].File
	})
	return report, nil
}

func auditPage(path string, localePriority []string) (Page, error) {
	var page Page

	data, err := os.ReadFile(path)
	if err != nil {
		return page, err
	}

	node, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return page, err
	}
	doc := goquery.NewDocumentFromNode(node)

	page.Title = strings.TrimSpace(doc.Find("title").First().Text())

	seen := map[string]bool{}
	doc.Find("[href], [src], [srcset]").Each(func(_ int, sel *goquery.Selection) {
		// hreflang alternates are reported separately, not as leftovers.
		if goquery.NodeName(sel) == "link" && sel.AttrOr("rel", "") == "alternate" {
			return
		}
		for _, attr := range []string{"href", "src"} {
			if v, ok := sel.Attr(attr); ok && isExternal(v) && !seen[v] {
				seen[v] = true
				page.ExternalURLs = append(page.ExternalURLs, v)
			}
		}
		if v, ok := sel.Attr("srcset"); ok {
			for _, candidate := range strings.Split(v, ",") {
				u := strings.Fields(strings.TrimSpace(candidate))
				if len(u) > 0 && isExternal(u[0]) && !seen[u[0]] {
					seen[u[0]] = true
					page.ExternalURLs = append(page.ExternalURLs, u[0])
				}
			}
		}
	})
	sort.Strings(page.ExternalURLs)

	page.Alternates = ExtractAlternates(node)
	page.PreferredLocale, page.PreferredURL = PreferredAlternate(page.Alternates, localePriority)

	return page, nil
}

func isExternal(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}
