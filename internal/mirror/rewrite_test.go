package mirror

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestRewriteFile(t *testing.T) {
	root := t.TempDir()
	rw := NewRewriter(root, "site.example.io")

	page := filepath.Join(root, "index.html")
	writeFile(t, page, `<link href="https://cdn.example.com/a.css?v=1">
<img src="https://cdn.example.com/a.css">
<img src="https://cdn.example.com/pic.png&amp;x=1">`)

	changed, err := rw.RewriteFile(page, map[string]string{
		"https://cdn.example.com/a.css":       "assets/a.css",
		"https://cdn.example.com/a.css?v=1":   "assets/a.abc123.css",
		"https://cdn.example.com/pic.png&x=1": "assets/pic.png",
	})
	if err != nil {
		t.Fatalf("RewriteFile() error = %v", err)
	}
	if !changed {
		t.Fatal("RewriteFile() reported no change")
	}

	got := readFile(t, page)
	if !strings.Contains(got, `href="assets/a.abc123.css"`) {
		t.Errorf("query variant not rewritten with its own name:\n%s", got)
	}
	if !strings.Contains(got, `src="assets/a.css"`) {
		t.Errorf("bare URL not rewritten:\n%s", got)
	}
	if !strings.Contains(got, `src="assets/pic.png"`) {
		t.Errorf("escaped URL form not rewritten:\n%s", got)
	}
	if strings.Contains(got, "cdn.example.com") {
		t.Errorf("external reference survived:\n%s", got)
	}
}

func TestRewriteFileFixesBrokenLocalRefs(t *testing.T) {
	root := t.TempDir()
	rw := NewRewriter(root, "site.example.io")

	page := filepath.Join(root, "index.html")
	writeFile(t, page,
		`<div style="background-image:url(https://site.example.io/&quot;assets/hero.png&quot;)"></div>`)

	changed, err := rw.RewriteFile(page, nil)
	if err != nil {
		t.Fatalf("RewriteFile() error = %v", err)
	}
	if !changed {
		t.Fatal("RewriteFile() reported no change")
	}

	got := readFile(t, page)
	if !strings.Contains(got, "url(assets/hero.png)") {
		t.Errorf("broken self-reference not normalized:\n%s", got)
	}
}

func TestRelativeAssetsPrefix(t *testing.T) {
	root := t.TempDir()
	rw := NewRewriter(root, "site.example.io")

	tests := []struct {
		name string
		path string
		want string
	}{
		{"Root page", filepath.Join(root, "index.html"), "assets/"},
		{"One level down", filepath.Join(root, "news", "a.html"), "../assets/"},
		{"Two levels down", filepath.Join(root, "news", "2023", "a.html"), "../../assets/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rw.RelativeAssetsPrefix(tt.path)
			if err != nil {
				t.Fatalf("RelativeAssetsPrefix() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("RelativeAssetsPrefix() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFixNestedAssetRefs(t *testing.T) {
	root := t.TempDir()
	rw := NewRewriter(root, "site.example.io")

	nested := filepath.Join(root, "news", "story.html")
	writeFile(t, nested, `<link href="assets/site.css">
<img src='assets/pic.png' srcset="assets/pic.png 2x">
<div style='background:url("assets/bg.png")'></div>`)

	changed, err := rw.FixNestedAssetRefs(nested)
	if err != nil {
		t.Fatalf("FixNestedAssetRefs() error = %v", err)
	}
	if !changed {
		t.Fatal("FixNestedAssetRefs() reported no change")
	}

	got := readFile(t, nested)
	for _, want := range []string{
		`href="../assets/site.css"`,
		`src='../assets/pic.png'`,
		`srcset="../assets/pic.png 2x"`,
		`url("../assets/bg.png")`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestFixNestedAssetRefsLeavesRootPagesAlone(t *testing.T) {
	root := t.TempDir()
	rw := NewRewriter(root, "site.example.io")

	page := filepath.Join(root, "index.html")
	content := `<link href="assets/site.css">`
	writeFile(t, page, content)

	changed, err := rw.FixNestedAssetRefs(page)
	if err != nil {
		t.Fatalf("FixNestedAssetRefs() error = %v", err)
	}
	if changed {
		t.Error("root page should not change")
	}
	if readFile(t, page) != content {
		t.Error("root page content modified")
	}
}

func TestNormalizeCSSSelfRefs(t *testing.T) {
	root := t.TempDir()
	css := filepath.Join(root, "assets", "site.css")
	writeFile(t, css, `.a{background:url("assets/bg.png")}.b{background:url(assets/x.png)}`)

	changed, err := NormalizeCSSSelfRefs(css)
	if err != nil {
		t.Fatalf("NormalizeCSSSelfRefs() error = %v", err)
	}
	if !changed {
		t.Fatal("NormalizeCSSSelfRefs() reported no change")
	}

	got := readFile(t, css)
	if got != `.a{background:url("bg.png")}.b{background:url(x.png)}` {
		t.Errorf("NormalizeCSSSelfRefs() produced %q", got)
	}
}
