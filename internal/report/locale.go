package report

import (
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/language"
)

// ExtractAlternates collects hreflang alternate links from a parsed page,
// keyed by lower-cased locale code. Webflow emits these as
// <link rel="alternate" hreflang="..." href="...">.
func ExtractAlternates(doc *html.Node) map[string]string {
	alternates := map[string]string{}
	if doc == nil {
		return alternates
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "link" {
			var rel, hreflang, href string
			for _, attr := range n.Attr {
				switch attr.Key {
				case "rel":
					rel = attr.Val
				case "hreflang":
					hreflang = attr.Val
				case "href":
					href = attr.Val
				}
			}
			if rel == "alternate" && hreflang != "" && href != "" {
				alternates[strings.ToLower(hreflang)] = href
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return alternates
}

// PreferredAlternate picks the alternate best matching the priority list,
// using BCP 47 matching so that e.g. a "ja" preference accepts a "ja-jp"
// alternate. With no usable match the lexically first alternate is returned.
func PreferredAlternate(alternates map[string]string, priority []string) (locale, url string) {
	if len(alternates) == 0 {
		return "", ""
	}

	codes := make([]string, 0, len(alternates))
	for code := range alternates {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var supported []language.Tag
	var supportedCodes []string
	for _, code := range codes {
		// Skips x-default and other non-language entries.
		if tag, err := language.Parse(code); err == nil {
			supported = append(supported, tag)
			supportedCodes = append(supportedCodes, code)
		}
	}

	var desired []language.Tag
	for _, p := range priority {
		if tag, err := language.Parse(p); err == nil {
			desired = append(desired, tag)
		}
	}

	if len(supported) == 0 || len(desired) == 0 {
		return codes[0], alternates[codes[0]]
	}

	matcher := language.NewMatcher(supported)
	if _, idx, conf := matcher.Match(desired...); conf > language.No {
		return supportedCodes[idx], alternates[supportedCodes[idx]]
	}
	return codes[0], alternates[codes[0]]
}
