package mirror

import (
	"html"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Rewriter rewrites mirrored files in place to reference local assets.
type Rewriter struct {
	// SiteRoot is the absolute site root directory.
	SiteRoot string

	brokenLocalAsset *regexp.Regexp
}

// NewRewriter returns a Rewriter for the site rooted at siteRoot, whose own
// host is siteHost (used to recognize mangled self-references).
func NewRewriter(siteRoot, siteHost string) *Rewriter {
	// Some mirrors end up with inline styles like
	//   url(https://<site>/&quot;assets/foo.png&quot;)
	// which must collapse back to the plain local path.
	pattern := `(?i)https?://` + regexp.QuoteMeta(siteHost) +
		`/(?:[^\s"'<>)]*/)?(?:&quot;|"|%22)(assets/[^"&%<>\s)]+)(?:&quot;|"|%22)`
	return &Rewriter{
		SiteRoot:         siteRoot,
		brokenLocalAsset: regexp.MustCompile(pattern),
	}
}

// RewriteFile applies the URL→local replacements to the file at path,
// covering both raw and HTML-escaped spellings of each URL, and fixes
// mangled local asset references. Returns whether the file changed.
func (rw *Rewriter) RewriteFile(path string, replacements map[string]string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	original := string(data)
	updated := original

	// Longer URLs first, so a query-string variant is not clobbered by its
	// bare-path prefix.
	urls := make([]string, 0, len(replacements))
	for u := range replacements {
		urls = append(urls, u)
	}
	sort.Slice(urls, func(i, j int) bool {
		if len(urls[i]) != len(urls[j]) {
			return len(urls[i]) > len(urls[j])
		}
		return urls[i] < urls[j]
	})

	for _, src := range urls {
		dst := replacements[src]
		updated = strings.ReplaceAll(updated, src, dst)
		updated = strings.ReplaceAll(updated, html.EscapeString(src), dst)
	}

	updated = rw.brokenLocalAsset.ReplaceAllString(updated, "$1")

	if updated == original {
		return false, nil
	}
	return true, os.WriteFile(path, []byte(updated), 0o644)
}

// RelativeAssetsPrefix returns the prefix from htmlPath to the root-level
// assets directory: "assets/" for a root page, "../assets/" one level down.
func (rw *Rewriter) RelativeAssetsPrefix(htmlPath string) (string, error) {
	rel, err := filepath.Rel(rw.SiteRoot, htmlPath)
	if err != nil {
		return "", err
	}
	depth := len(strings.Split(filepath.ToSlash(rel), "/")) - 1
	return strings.Repeat("../", depth) + "assets/", nil
}

// FixNestedAssetRefs repoints bare assets/ references inside a nested page
// at the root-level assets directory. wget keeps pages under subfolders
// referencing assets/..., which would wrongly resolve to subfolder/assets/.
// Returns whether the file changed.
func (rw *Rewriter) FixNestedAssetRefs(htmlPath string) (bool, error) {
	prefix, err := rw.RelativeAssetsPrefix(htmlPath)
	if err != nil {
		return false, err
	}
	if prefix == "assets/" {
		return false, nil
	}

	data, err := os.ReadFile(htmlPath)
	if err != nil {
		return false, err
	}
	original := string(data)
	updated := original

	for _, attr := range []string{"src", "href", "srcset"} {
		updated = strings.ReplaceAll(updated, attr+`="assets/`, attr+`="`+prefix)
		updated = strings.ReplaceAll(updated, attr+`='assets/`, attr+`='`+prefix)
		updated = strings.ReplaceAll(updated, attr+`=&quot;assets/`, attr+`=&quot;`+prefix)
	}

	// Inline CSS url() references.
	updated = strings.ReplaceAll(updated, `url(assets/`, `url(`+prefix)
	updated = strings.ReplaceAll(updated, `url("assets/`, `url("`+prefix)
	updated = strings.ReplaceAll(updated, `url('assets/`, `url('`+prefix)
	updated = strings.ReplaceAll(updated, `url(&quot;assets/`, `url(&quot;`+prefix)

	if updated == original {
		return false, nil
	}
	return true, os.WriteFile(htmlPath, []byte(updated), 0o644)
}

// NormalizeCSSSelfRefs rewrites url("assets/<file>") inside a stylesheet that
// itself lives in assets/ to url("<file>"); the nested form would resolve to
// assets/assets/. Returns whether the file changed.
func NormalizeCSSSelfRefs(cssPath string) (bool, error) {
	data, err := os.ReadFile(cssPath)
	if err != nil {
		return false, err
	}
	original := string(data)

	updated := strings.ReplaceAll(original, `url("assets/`, `url("`)
	updated = strings.ReplaceAll(updated, `url('assets/`, `url('`)
	updated = strings.ReplaceAll(updated, `url(assets/`, `url(`)

	if updated == original {
		return false, nil
	}
	return true, os.WriteFile(cssPath, []byte(updated), 0o644)
}
