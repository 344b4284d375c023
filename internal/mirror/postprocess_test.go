package mirror

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestPostprocess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a.css":
			// References a further external asset, exercising the
			// second discovery pass.
			w.Write([]byte(`.hero{background:url("` + baseURL(r) + `/bg.png")}`))
		case "/logo.png", "/bg.png":
			w.Write([]byte("png-bytes"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	root := filepath.Join(t.TempDir(), "site.example.io")
	writeFile(t, filepath.Join(root, "index.html"),
		`<link href="`+srv.URL+`/a.css"><img src="`+srv.URL+`/logo.png">`)
	writeFile(t, filepath.Join(root, "news", "story.html"),
		`<img src="`+srv.URL+`/logo.png">`)

	stats, err := Postprocess(Options{
		SiteRoot:   root,
		UserAgent:  "test-agent",
		Downloader: testDownloader(srv.Client()),
	})
	if err != nil {
		t.Fatalf("Postprocess() error = %v", err)
	}

	if stats.AssetURLs != 2 {
		t.Errorf("AssetURLs = %d, want 2", stats.AssetURLs)
	}
	// a.css, logo.png, plus bg.png discovered inside the stylesheet.
	if stats.Downloaded != 3 {
		t.Errorf("Downloaded = %d, want 3", stats.Downloaded)
	}
	if stats.Failed != 0 {
		t.Errorf("Failed = %d, want 0", stats.Failed)
	}
	if stats.RewrittenHTML != 2 {
		t.Errorf("RewrittenHTML = %d, want 2", stats.RewrittenHTML)
	}

	index := readFile(t, filepath.Join(root, "index.html"))
	if !strings.Contains(index, `href="assets/a.css"`) || !strings.Contains(index, `src="assets/logo.png"`) {
		t.Errorf("index.html not localized:\n%s", index)
	}

	story := readFile(t, filepath.Join(root, "news", "story.html"))
	if !strings.Contains(story, `src="../assets/logo.png"`) {
		t.Errorf("nested page not repointed at root assets:\n%s", story)
	}

	css := readFile(t, filepath.Join(root, "assets", "a.css"))
	if !strings.Contains(css, `url("bg.png")`) {
		t.Errorf("stylesheet not rewritten to sibling reference:\n%s", css)
	}

	for _, name := range []string{"a.css", "logo.png", "bg.png"} {
		if _, err := os.Stat(filepath.Join(root, "assets", name)); err != nil {
			t.Errorf("missing downloaded asset %s: %v", name, err)
		}
	}
}

// baseURL reconstructs the test server's base URL from an incoming request.
func baseURL(r *http.Request) string {
	return "http://" + r.Host
}

func TestPostprocessIsResumable(t *testing.T) {
	var hits int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("png-bytes"))
	}))
	defer ts.Close()

	root := filepath.Join(t.TempDir(), "site.example.io")
	writeFile(t, filepath.Join(root, "index.html"),
		`<img src="`+ts.URL+`/logo.png">`)
	// Pre-seeded asset: must not be fetched again.
	writeFile(t, filepath.Join(root, "assets", "logo.png"), "already-here")

	stats, err := Postprocess(Options{
		SiteRoot:   root,
		UserAgent:  "test-agent",
		Downloader: testDownloader(ts.Client()),
	})
	if err != nil {
		t.Fatalf("Postprocess() error = %v", err)
	}

	if hits != 0 {
		t.Errorf("server hit %d times for a pre-seeded asset", hits)
	}
	if stats.Downloaded != 0 {
		t.Errorf("Downloaded = %d, want 0", stats.Downloaded)
	}
	if got := readFile(t, filepath.Join(root, "assets", "logo.png")); got != "already-here" {
		t.Errorf("pre-seeded asset overwritten: %q", got)
	}
}

func TestPostprocessRequiresHTML(t *testing.T) {
	root := t.TempDir()
	if _, err := Postprocess(Options{SiteRoot: root, UserAgent: "x"}); err == nil {
		t.Error("Postprocess() on an empty tree should fail")
	}
}

func TestPostprocessCountsFailures(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	root := filepath.Join(t.TempDir(), "site.example.io")
	writeFile(t, filepath.Join(root, "index.html"),
		`<img src="`+ts.URL+`/gone.png">`)

	dl := testDownloader(ts.Client())
	dl.Sleep = func(time.Duration) {}

	stats, err := Postprocess(Options{
		SiteRoot:   root,
		UserAgent:  "test-agent",
		Downloader: dl,
	})
	if err != nil {
		t.Fatalf("Postprocess() error = %v", err)
	}

	if stats.Failed != 1 {
		t.Errorf("Failed = %d, want 1", stats.Failed)
	}
	// The reference stays external rather than pointing at a missing file.
	index := readFile(t, filepath.Join(root, "index.html"))
	if !strings.Contains(index, ts.URL+"/gone.png") {
		t.Errorf("failed asset reference was rewritten:\n%s", index)
	}
}
