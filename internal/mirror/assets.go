// Package mirror post-processes a wget --mirror download of a site: it
// localizes external assets and rewrites references so the tree can be
// served and edited fully offline.
package mirror

import (
	"crypto/sha256"
	"encoding/hex"
	"html"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"
)

// assetExtensions are the file types worth localizing. Page links are left
// alone; wget already made those local.
var assetExtensions = map[string]bool{
	".css": true, ".js": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".svg": true, ".webp": true, ".ico": true,
	".woff": true, ".woff2": true, ".ttf": true, ".otf": true, ".eot": true,
	".mp4": true, ".webm": true,
	".pdf": true, ".json": true,
}

var (
	urlPattern    = regexp.MustCompile(`https?://[^"'<>\s)]+`)
	cssURLPattern = regexp.MustCompile(`url\((['"]?)(.*?)(['"]?)\)`)
	unsafeChars   = regexp.MustCompile(`[^A-Za-z0-9._-]`)
)

// ExtractURLs returns every absolute http(s) URL embedded in text. The text
// is HTML-unescaped first so URLs inside escaped attributes are found too.
func ExtractURLs(text string) []string {
	seen := map[string]bool{}
	for _, u := range urlPattern.FindAllString(html.UnescapeString(text), -1) {
		seen[u] = true
	}

	urls := make([]string, 0, len(seen))
	for u := range seen {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// ExtractCSSURLs returns external URLs referenced by url(...) in a stylesheet.
// data: URIs are skipped and protocol-relative references get https.
func ExtractCSSURLs(text string) []string {
	seen := map[string]bool{}
	for _, m := range cssURLPattern.FindAllStringSubmatch(text, -1) {
		raw := strings.TrimSpace(m[2])
		if strings.HasPrefix(raw, "data:") {
			continue
		}
		if strings.HasPrefix(raw, "//") {
			raw = "https:" + raw
		}
		if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
			seen[raw] = true
		}
	}

	urls := make([]string, 0, len(seen))
	for u := range seen {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// Classifier decides which discovered URLs are downloadable assets.
type Classifier struct {
	// SiteHost is the mirrored site's own host; links back to it are pages
	// wget already localized, not assets.
	SiteHost string
	// SkipHosts are never downloaded (standards bodies, social widgets).
	SkipHosts map[string]bool
}

// NewClassifier builds a Classifier from the site root's host and a skip list.
func NewClassifier(siteHost string, skipHosts []string) *Classifier {
	skip := make(map[string]bool, len(skipHosts))
	for _, h := range skipHosts {
		skip[strings.ToLower(h)] = true
	}
	return &Classifier{SiteHost: strings.ToLower(siteHost), SkipHosts: skip}
}

// IsAsset reports whether rawURL points at an external asset worth localizing.
func (c *Classifier) IsAsset(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	host := strings.ToLower(u.Hostname())
	if host == "" || c.SkipHosts[host] {
		return false
	}
	if c.SiteHost != "" && strings.HasSuffix(host, c.SiteHost) {
		return false
	}

	return assetExtensions[strings.ToLower(path.Ext(u.Path))]
}

// LocalName derives a filesystem-safe filename for a downloaded asset.
// Query strings are folded into a short hash so distinct variants of the
// same path do not collide, and overlong names are truncated.
func LocalName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return hashName(rawURL)
	}

	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		return hashName(rawURL)
	}
	name = unsafeChars.ReplaceAllString(name, "_")

	if u.RawQuery != "" {
		sum := sha256.Sum256([]byte(u.RawQuery))
		qhash := hex.EncodeToString(sum[:])[:8]
		ext := path.Ext(name)
		stem := strings.TrimSuffix(name, ext)
		if ext != "" {
			name = stem + "." + qhash + ext
		} else {
			name = stem + "." + qhash
		}
	}

	if len(name) > 180 {
		ext := path.Ext(name)
		name = name[:150] + ext
	}
	return name
}

func hashName(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])[:16]
}
