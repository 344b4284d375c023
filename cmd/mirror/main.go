// Command mirror post-processes a wget --mirror download: it localizes
// external assets, scrubs branding, audits leftovers and extracts pages to
// Markdown. The mirrored tree is then served with the site server.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/fatih/color"

	"github.com/hkdo/webmirror/internal/config"
	"github.com/hkdo/webmirror/internal/extract"
	"github.com/hkdo/webmirror/internal/mirror"
	"github.com/hkdo/webmirror/internal/report"
	"github.com/hkdo/webmirror/internal/scrub"
)

const usage = `Usage: mirror <command> [flags]

Commands:
  postprocess  download external assets and rewrite references to local copies
  scrub        remove branding from pages and filenames (dry-run by default)
  report       audit a mirror for leftover external references
  extract      convert one mirrored page to Markdown with frontmatter

Run "mirror <command> -h" for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "postprocess":
		err = runPostprocess(os.Args[2:])
	case "scrub":
		err = runScrub(os.Args[2:])
	case "report":
		err = runReport(os.Args[2:])
	case "extract":
		err = runExtract(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the root override, shared by
// every subcommand.
func loadConfig(configPath, rootOverride string) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if rootOverride != "" {
		cfg.Root = rootOverride
	}
	return cfg, nil
}

func runPostprocess(args []string) error {
	fs := flag.NewFlagSet("postprocess", flag.ExitOnError)
	configPath := fs.String("config", "mirror.toml", "Config file")
	root := fs.String("root", "", "Site root (overrides config)")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath, *root)
	if err != nil {
		return err
	}

	stats, err := mirror.Postprocess(mirror.Options{
		SiteRoot:  cfg.Root,
		UserAgent: cfg.UserAgent,
		SkipHosts: cfg.SkipHosts,
		Logf: func(format string, args ...any) {
			fmt.Printf(format+"\n", args...)
		},
	})
	if err != nil {
		return err
	}

	color.Green("Done: %d assets localized (%d failed), %d/%d pages rewritten",
		stats.Downloaded, stats.Failed, stats.RewrittenHTML, stats.TotalHTML)
	return nil
}

func runScrub(args []string) error {
	fs := flag.NewFlagSet("scrub", flag.ExitOnError)
	configPath := fs.String("config", "mirror.toml", "Config file")
	root := fs.String("root", "", "Site root (overrides config)")
	apply := fs.Bool("apply", false, "Write changes and rename files")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath, *root)
	if err != nil {
		return err
	}

	s, err := scrub.New(cfg.Root, cfg.Scrub)
	if err != nil {
		return err
	}

	result, err := s.Run(*apply)
	if err != nil {
		return err
	}

	action := "Dry-run"
	if *apply {
		action = "Applied"
	}
	fmt.Printf("%s: updated %d text files\n", action, result.ChangedFiles)
	if len(result.Renames) > 0 {
		fmt.Printf("%s: planned %d renames\n", action, len(result.Renames))
		for _, r := range result.Renames {
			fmt.Printf(" - %s -> %s\n", relTo(cfg.Root, r.From), relTo(cfg.Root, r.To))
		}
	}
	if !*apply {
		color.Yellow("Nothing written; re-run with -apply to make changes")
	}
	return nil
}

func runReport(args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	configPath := fs.String("config", "mirror.toml", "Config file")
	root := fs.String("root", "", "Site root (overrides config)")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath, *root)
	if err != nil {
		return err
	}

	rep, err := report.Audit(cfg.Root, cfg.LocalePriority)
	if err != nil {
		return err
	}

	for _, page := range rep.Pages {
		title := page.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%s  %s\n", color.CyanString(page.File), title)
		for _, u := range page.ExternalURLs {
			fmt.Printf("    external: %s\n", u)
		}
		if page.PreferredLocale != "" {
			fmt.Printf("    locale: %s -> %s\n", page.PreferredLocale, page.PreferredURL)
		}
	}

	if len(rep.ExternalHosts) == 0 {
		color.Green("No leftover external references in %d pages", len(rep.Pages))
		return nil
	}

	hosts := make([]string, 0, len(rep.ExternalHosts))
	for h := range rep.ExternalHosts {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)

	color.Yellow("Leftover external hosts:")
	for _, h := range hosts {
		fmt.Printf("  %4d  %s\n", rep.ExternalHosts[h], h)
	}
	return nil
}

func runExtract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	configPath := fs.String("config", "mirror.toml", "Config file")
	root := fs.String("root", "", "Site root (overrides config)")
	page := fs.String("page", "", "Page path relative to the site root (required)")
	out := fs.String("o", "", "Output file (default stdout)")
	fs.Parse(args)

	if *page == "" {
		return fmt.Errorf("extract: -page is required")
	}

	cfg, err := loadConfig(*configPath, *root)
	if err != nil {
		return err
	}

	pagePath := filepath.Join(cfg.Root, filepath.FromSlash(*page))
	data, err := os.ReadFile(pagePath)
	if err != nil {
		return err
	}
	info, err := os.Stat(pagePath)
	if err != nil {
		return err
	}

	// The mirror directory is named after the host wget downloaded from.
	sourceURL := "https://" + filepath.Base(cfg.Root) + "/" + filepath.ToSlash(*page)

	doc, err := extract.Page(string(data), sourceURL, info.ModTime())
	if err != nil {
		return err
	}
	rendered, err := doc.Render()
	if err != nil {
		return err
	}

	if *out == "" {
		fmt.Print(rendered)
		return nil
	}
	if err := os.WriteFile(*out, []byte(rendered), 0o644); err != nil {
		return err
	}
	color.Green("Wrote %s", *out)
	return nil
}

func relTo(root, path string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(abs, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
