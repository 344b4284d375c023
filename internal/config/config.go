// Package config loads the mirror tooling configuration from a TOML file.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config drives the post-processing tools. The server takes no config file;
// it is configured by flags alone.
type Config struct {
	// Root is the mirrored site directory, relative to the working directory
	// unless absolute.
	Root string `toml:"root"`
	// UserAgent is sent when downloading external assets. Webflow CDNs reject
	// the default Go user agent, so a browser string is used.
	UserAgent string `toml:"user_agent"`
	// SkipHosts are never treated as asset sources.
	SkipHosts []string `toml:"skip_hosts"`
	// LocalePriority is the preferred order for hreflang alternates in reports.
	LocalePriority []string `toml:"locale_priority"`

	Scrub ScrubConfig `toml:"scrub"`
}

// ScrubConfig lists the branding-removal rules applied by the scrub tool.
type ScrubConfig struct {
	Replacements []Replacement `toml:"replace"`
	Renames      []Rename      `toml:"rename"`
}

// Replacement is a single regex rewrite over mirrored text files.
type Replacement struct {
	// Pattern is a Go regular expression; prefix with (?i) for
	// case-insensitive matching.
	Pattern string `toml:"pattern"`
	// With is the replacement text; $1-style group references are allowed.
	With string `toml:"with"`
}

// Rename maps a file under the site root to a new name in the same directory.
type Rename struct {
	From string `toml:"from"`
	To   string `toml:"to"`
}

// Default returns the configuration used when no config file is present.
func Default() Config {
	return Config{
		Root:      "mirror/videa-saversion.webflow.io",
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120 Safari/537.36",
		SkipHosts: []string{
			"www.w3.org",
			"w3.org",
			"www.linkedin.com",
		},
		LocalePriority: []string{"en", "ja"},
	}
}

// Load reads the TOML file at path, filling unset fields from Default.
// A missing file is not an error; Default is returned unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	if cfg.Root == "" {
		return cfg, fmt.Errorf("%s: root must not be empty", path)
	}
	return cfg, nil
}
