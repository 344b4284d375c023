package mirror

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Downloader fetches external assets to disk with bounded retries.
type Downloader struct {
	Client    *http.Client
	UserAgent string
	Robots    *Robots
	// Retries is the number of attempts after the first (2 matches the
	// original tooling's behavior).
	Retries int
	// Sleep is called between attempts; replaced in tests.
	Sleep func(time.Duration)
}

// NewDownloader returns a Downloader honoring robots.txt with the given agent.
func NewDownloader(userAgent string) *Downloader {
	client := &http.Client{Timeout: 30 * time.Second}
	return &Downloader{
		Client:    client,
		UserAgent: userAgent,
		Robots:    NewRobots(client, userAgent),
		Retries:   2,
		Sleep:     time.Sleep,
	}
}

// Fetch downloads rawURL to dest, creating parent directories as needed.
// Permanent client errors (400, 401, 403, 404) fail immediately; anything
// else is retried with linear backoff. Robots-disallowed URLs are skipped.
func (d *Downloader) Fetch(rawURL, dest string) error {
	if d.Robots != nil && !d.Robots.Allowed(rawURL) {
		return fmt.Errorf("disallowed by robots.txt: %s", rawURL)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= d.Retries; attempt++ {
		if attempt > 0 {
			d.Sleep(time.Second + time.Duration(attempt-1)*time.Second)
		}

		err, permanent := d.fetchOnce(rawURL, dest)
		if err == nil {
			return nil
		}
		lastErr = err
		if permanent {
			break
		}
	}
	return lastErr
}

func (d *Downloader) fetchOnce(rawURL, dest string) (err error, permanent bool) {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return err, true
	}
	req.Header.Set("User-Agent", d.UserAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := d.Client.Do(req)
	if err != nil {
		return err, false
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return fmt.Errorf("%s: status %d", rawURL, resp.StatusCode), true
	default:
		return fmt.Errorf("%s: status %d", rawURL, resp.StatusCode), false
	}

	f, err := os.Create(dest)
	if err != nil {
		return err, true
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(dest)
		return err, false
	}
	return nil, false
}
