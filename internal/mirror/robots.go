package mirror

import (
	"log"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// Robots caches robots.txt per asset host and answers whether a download is
// allowed. Hosts whose robots.txt cannot be fetched or parsed are treated as
// allow-all; a broken or missing policy should not break the mirror.
type Robots struct {
	client    *http.Client
	userAgent string

	mu     sync.Mutex
	byHost map[string]*robotstxt.RobotsData // nil entry: fetch failed, allow all
}

// NewRobots returns a Robots gate using client for robots.txt fetches.
func NewRobots(client *http.Client, userAgent string) *Robots {
	return &Robots{
		client:    client,
		userAgent: userAgent,
		byHost:    map[string]*robotstxt.RobotsData{},
	}
}

// Allowed reports whether the asset at rawURL may be downloaded. The host's
// robots.txt is fetched on first use and cached for the process lifetime.
func (r *Robots) Allowed(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}

	data := r.lookup(u)
	if data == nil {
		return true
	}

	path := u.Path
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return data.FindGroup(r.userAgent).Test(path)
}

func (r *Robots) lookup(u *url.URL) *robotstxt.RobotsData {
	r.mu.Lock()
	defer r.mu.Unlock()

	host := u.Host
	if data, ok := r.byHost[host]; ok {
		return data
	}

	data := r.fetch(u.Scheme + "://" + host + "/robots.txt")
	r.byHost[host] = data
	return data
}

func (r *Robots) fetch(robotsURL string) *robotstxt.RobotsData {
	req, err := http.NewRequest(http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		log.Printf("robots.txt %s: %v (assuming allow all)", robotsURL, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		log.Printf("robots.txt %s: %v (assuming allow all)", robotsURL, err)
		return nil
	}
	return data
}
