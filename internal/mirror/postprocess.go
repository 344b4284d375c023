package mirror

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Options configures a post-processing run.
type Options struct {
	// SiteRoot is the mirrored site directory (made absolute by Postprocess).
	SiteRoot string
	// UserAgent is sent on asset downloads.
	UserAgent string
	// SkipHosts are never downloaded.
	SkipHosts []string
	// Logf receives progress lines; nil discards them.
	Logf func(format string, args ...any)
	// Downloader overrides the default downloader; used by tests.
	Downloader *Downloader
}

// Stats summarizes what a post-processing run did.
type Stats struct {
	AssetURLs     int
	Downloaded    int
	Failed        int
	RewrittenHTML int
	TotalHTML     int
	RewrittenCSS  int
	RewrittenJS   int
}

// Postprocess localizes every external asset referenced by the mirrored
// site under opts.SiteRoot and rewrites all references to the local copies.
// Asset files already present and non-empty are not re-downloaded, so the
// run is resumable.
func Postprocess(opts Options) (Stats, error) {
	var stats Stats

	logf := opts.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	siteRoot, err := filepath.Abs(opts.SiteRoot)
	if err != nil {
		return stats, err
	}
	if info, err := os.Stat(siteRoot); err != nil || !info.IsDir() {
		return stats, fmt.Errorf("site root not found: %s", siteRoot)
	}

	htmlFiles, err := listFiles(siteRoot, ".html")
	if err != nil {
		return stats, err
	}
	if len(htmlFiles) == 0 {
		return stats, fmt.Errorf("no .html files under %s", siteRoot)
	}
	stats.TotalHTML = len(htmlFiles)

	classifier := NewClassifier(filepath.Base(siteRoot), opts.SkipHosts)
	rewriter := NewRewriter(siteRoot, filepath.Base(siteRoot))
	assetsDir := filepath.Join(siteRoot, "assets")

	dl := opts.Downloader
	if dl == nil {
		dl = NewDownloader(opts.UserAgent)
	}

	// Pass 1: gather external asset URLs from the mirrored HTML.
	urlSet := map[string]bool{}
	for _, f := range htmlFiles {
		data, err := os.ReadFile(f)
		if err != nil {
			return stats, err
		}
		for _, u := range ExtractURLs(string(data)) {
			if classifier.IsAsset(u) {
				urlSet[u] = true
			}
		}
	}
	stats.AssetURLs = len(urlSet)
	logf("Found %d external asset URLs", stats.AssetURLs)

	nameByURL := map[string]string{}
	download := func(rawURL string) {
		name := LocalName(rawURL)
		dest := filepath.Join(assetsDir, name)

		if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
			nameByURL[rawURL] = name
			return
		}
		if err := dl.Fetch(rawURL, dest); err != nil {
			stats.Failed++
			logf("  failed: %v", err)
			return
		}
		stats.Downloaded++
		nameByURL[rawURL] = name
	}

	for _, u := range sortedKeys(urlSet) {
		download(u)
	}
	logf("Downloaded %d assets (%d failed)", stats.Downloaded, stats.Failed)

	// Pass 2: rewrite HTML to the local copies.
	for _, f := range htmlFiles {
		changed, err := rewriter.RewriteFile(f, htmlReplacements(nameByURL))
		if err != nil {
			return stats, err
		}
		nested, err := rewriter.FixNestedAssetRefs(f)
		if err != nil {
			return stats, err
		}
		if changed || nested {
			stats.RewrittenHTML++
		}
	}
	logf("Rewrote %d/%d HTML files", stats.RewrittenHTML, stats.TotalHTML)

	// Pass 3: downloaded CSS/JS may reference further external assets.
	cssFiles, err := listFiles(assetsDir, ".css")
	if err != nil {
		return stats, err
	}
	jsFiles, err := listFiles(assetsDir, ".js")
	if err != nil {
		return stats, err
	}

	discovered := map[string]bool{}
	for _, f := range cssFiles {
		data, err := os.ReadFile(f)
		if err != nil {
			return stats, err
		}
		for _, u := range ExtractCSSURLs(string(data)) {
			if classifier.IsAsset(u) {
				discovered[u] = true
			}
		}
	}
	for _, f := range jsFiles {
		data, err := os.ReadFile(f)
		if err != nil {
			return stats, err
		}
		for _, u := range ExtractURLs(string(data)) {
			if classifier.IsAsset(u) {
				discovered[u] = true
			}
		}
	}

	var fresh []string
	for _, u := range sortedKeys(discovered) {
		if _, ok := nameByURL[u]; !ok {
			fresh = append(fresh, u)
		}
	}
	if len(fresh) > 0 {
		logf("Found %d additional asset URLs (CSS/JS)", len(fresh))
		for _, u := range fresh {
			download(u)
		}
	}

	// Pass 4: rewrite CSS/JS with the full replacement map. Stylesheets live
	// in assets/ themselves, so they reference siblings by bare filename.
	for _, f := range cssFiles {
		changed, err := rewriter.RewriteFile(f, nameByURL)
		if err != nil {
			return stats, err
		}
		normalized, err := NormalizeCSSSelfRefs(f)
		if err != nil {
			return stats, err
		}
		if changed || normalized {
			stats.RewrittenCSS++
		}
	}
	for _, f := range jsFiles {
		changed, err := rewriter.RewriteFile(f, nameByURL)
		if err != nil {
			return stats, err
		}
		if changed {
			stats.RewrittenJS++
		}
	}
	if len(cssFiles) > 0 {
		logf("Rewrote %d/%d CSS files", stats.RewrittenCSS, len(cssFiles))
	}
	if len(jsFiles) > 0 {
		logf("Rewrote %d/%d JS files", stats.RewrittenJS, len(jsFiles))
	}

	return stats, nil
}

func htmlReplacements(nameByURL map[string]string) map[string]string {
	out := make(map[string]string, len(nameByURL))
	for u, name := range nameByURL {
		out[u] = "assets/" + name
	}
	return out
}

// listFiles returns all files under root with the given extension, sorted.
// A missing root yields an empty list.
func listFiles(root, ext string) ([]string, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ext) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
