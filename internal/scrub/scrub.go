// Package scrub removes branding from a mirrored site: it rewrites text
// occurrences per configured rules and renames branded files, updating
// every reference to them.
package scrub

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/hkdo/webmirror/internal/config"
)

type rule struct {
	re   *regexp.Regexp
	with string
}

// Rename is a planned file rename under the site root.
type Rename struct {
	From string // absolute source path
	To   string // absolute destination path
}

// Result summarizes a scrub run.
type Result struct {
	// ChangedFiles counts text files whose content was (or would be) updated.
	ChangedFiles int
	// Renames lists the planned renames, applied only when requested.
	Renames []Rename
}

// Scrubber applies branding-removal rules to a mirrored site.
type Scrubber struct {
	root    string
	rules   []rule
	renames []Rename
}

// New builds a Scrubber for the site rooted at root. Rename rules whose
// source file does not exist are skipped; the remaining plan is validated
// so that no rename is a no-op, targets a duplicate destination, or would
// overwrite an unrelated existing file.
func New(root string, cfg config.ScrubConfig) (*Scrubber, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	s := &Scrubber{root: abs}

	for _, r := range cfg.Replacements {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("scrub pattern %q: %w", r.Pattern, err)
		}
		s.rules = append(s.rules, rule{re: re, with: r.With})
	}

	sources := map[string]bool{}
	for _, r := range cfg.Renames {
		sources[filepath.Join(abs, filepath.FromSlash(r.From))] = true
	}

	targets := map[string]bool{}
	for _, r := range cfg.Renames {
		from := filepath.Join(abs, filepath.FromSlash(r.From))
		to := filepath.Join(abs, filepath.FromSlash(r.To))

		if _, err := os.Stat(from); err != nil {
			continue
		}
		if from == to {
			return nil, fmt.Errorf("refusing no-op rename: %s", r.From)
		}
		if targets[to] {
			return nil, fmt.Errorf("two renames target the same destination: %s", r.To)
		}
		targets[to] = true
		if _, err := os.Stat(to); err == nil && !sources[to] {
			return nil, fmt.Errorf("destination already exists: %s", r.To)
		}

		s.renames = append(s.renames, Rename{From: from, To: to})
	}

	return s, nil
}

// Run rewrites branding across the site's HTML pages and the stylesheets
// referencing renamed files. When apply is false nothing is written; the
// returned Result describes what a real run would change.
func (s *Scrubber) Run(apply bool) (Result, error) {
	result := Result{Renames: s.renames}

	// References use basenames (valid from both the root and nested pages)
	// and, for renamed pages, the bare stem used as a slug.
	basenames := map[string]string{}
	stems := map[string]string{}
	for _, r := range s.renames {
		basenames[filepath.Base(r.From)] = filepath.Base(r.To)
		if strings.EqualFold(filepath.Ext(r.From), ".html") {
			from := strings.TrimSuffix(filepath.Base(r.From), filepath.Ext(r.From))
			to := strings.TrimSuffix(filepath.Base(r.To), filepath.Ext(r.To))
			stems[from] = to
		}
	}

	htmlFiles, err := s.listFiles(".html")
	if err != nil {
		return result, err
	}
	for _, f := range htmlFiles {
		changed, err := s.rewrite(f, basenames, stems, apply)
		if err != nil {
			return result, err
		}
		if changed {
			result.ChangedFiles++
		}
	}

	// Renamed background images are referenced from stylesheets too.
	cssFiles, err := s.listFiles(".css")
	if err != nil {
		return result, err
	}
	for _, f := range cssFiles {
		changed, err := s.rewrite(f, basenames, nil, apply)
		if err != nil {
			return result, err
		}
		if changed {
			result.ChangedFiles++
		}
	}

	if apply {
		// Content first, then renames; longest paths first so a page is
		// moved before anything that might shadow it.
		renames := append([]Rename(nil), s.renames...)
		sort.Slice(renames, func(i, j int) bool {
			return len(renames[i].From) > len(renames[j].From)
		})
		for _, r := range renames {
			if _, err := os.Stat(r.From); err != nil {
				continue
			}
			if err := os.Rename(r.From, r.To); err != nil {
				return result, err
			}
		}
	}

	return result, nil
}

func (s *Scrubber) rewrite(path string, basenames, stems map[string]string, apply bool) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	original := string(data)
	updated := original

	for _, p := range sortedPairs(basenames) {
		updated = strings.ReplaceAll(updated, p[0], p[1])
	}
	for _, p := range sortedPairs(stems) {
		updated = strings.ReplaceAll(updated, p[0], p[1])
	}
	for _, r := range s.rules {
		updated = r.re.ReplaceAllString(updated, r.with)
	}

	if updated == original {
		return false, nil
	}
	if !apply {
		return true, nil
	}
	return true, os.WriteFile(path, []byte(updated), 0o644)
}

// sortedPairs returns map entries longest-key-first so a stem never clobbers
// part of a longer basename before the basename itself is rewritten.
func sortedPairs(m map[string]string) [][2]string {
	pairs := make([][2]string, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, [2]string{k, v})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if len(pairs[i][0]) != len(pairs[j][0]) {
			return len(pairs[i][0]) > len(pairs[j][0])
		}
		return pairs[i][0] < pairs[j][0]
	})
	return pairs
}

func (s *Scrubber) listFiles(ext string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
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
