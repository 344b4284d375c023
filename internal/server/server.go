// Package server implements the static file server for a mirrored site.
package server

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the process-wide server configuration. It is built once at
// startup and never mutated afterwards.
type Config struct {
	// Root is the absolute directory boundary outside which no file may be served.
	Root string
	// Port is the TCP port the server binds on all interfaces.
	Port int
}

// contentTypes maps a lower-cased file extension (leading dot included) to the
// Content-Type header value. Extensions not listed here are served as
// application/octet-stream.
var contentTypes = map[string]string{
	".html":  "text/html; charset=utf-8",
	".css":   "text/css; charset=utf-8",
	".js":    "text/javascript; charset=utf-8",
	".mjs":   "text/javascript; charset=utf-8",
	".json":  "application/json; charset=utf-8",
	".svg":   "image/svg+xml",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".webp":  "image/webp",
	".ico":   "image/x-icon",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".otf":   "font/otf",
	".eot":   "application/vnd.ms-fontobject",
	".mp4":   "video/mp4",
	".webm":  "video/webm",
	".pdf":   "application/pdf",
}

const (
	cacheDefault   = "public, max-age=3600"
	cacheImmutable = "public, max-age=31536000, immutable"
	cacheNone      = "no-cache"
)

// Handler serves files under Config.Root. The request method is never
// inspected; every verb is answered the same way.
type Handler struct {
	cfg Config
}

// New returns a Handler serving the tree rooted at cfg.Root. cfg.Root must be
// an absolute path.
func New(cfg Config) *Handler {
	return &Handler{cfg: cfg}
}

// ServeHTTP resolves the request path to a file under the root and serves it.
// Failures map to exactly one of 403, 404 or 500; a panic anywhere in the
// handler is converted to a 500 rather than killing the connection loop.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("panic serving %s: %v", r.URL.Path, rec)
			h.internalError(w)
		}
	}()

	log.Printf("%s %s", r.Method, r.URL.Path)

	// Error responses carry a short default cache lifetime unless a later
	// step replaces it.
	w.Header().Set("Cache-Control", cacheDefault)

	// net/http has already percent-decoded the path. Backslashes are folded
	// into forward slashes so platform separators cannot smuggle segments
	// past the confinement check below.
	reqPath := strings.ReplaceAll(r.URL.Path, "\\", "/")
	if strings.HasSuffix(reqPath, "/") || reqPath == "" {
		reqPath += "index.html"
	}

	// Join cleans the path, collapsing any ".." segments, so the prefix
	// check runs against the resolved absolute path.
	abs := filepath.Join(h.cfg.Root, filepath.FromSlash(strings.TrimPrefix(reqPath, "/")))
	if abs != h.cfg.Root && !strings.HasPrefix(abs, h.cfg.Root+string(os.PathSeparator)) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, "Forbidden\n")
		return
	}

	info, err := os.Stat(abs)
	if err != nil {
		h.notFound(w)
		return
	}

	if info.IsDir() {
		if _, err := os.Stat(filepath.Join(abs, "index.html")); err != nil {
			h.notFound(w)
			return
		}
		// Canonicalize to exactly one trailing slash; the client re-requests
		// and lands on the index.html branch above.
		location := strings.TrimRight(r.URL.Path, "/") + "/"
		w.Header().Del("Cache-Control")
		w.Header().Set("Location", location)
		w.WriteHeader(http.StatusFound)
		return
	}

	ext := strings.ToLower(filepath.Ext(abs))
	contentType, ok := contentTypes[ext]
	if !ok {
		contentType = "application/octet-stream"
	}

	f, err := os.Open(abs)
	if err != nil {
		h.internalError(w)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", contentType)
	if ext == ".html" {
		w.Header().Set("Cache-Control", cacheNone)
	} else {
		w.Header().Set("Cache-Control", cacheImmutable)
	}
	w.WriteHeader(http.StatusOK)

	// io.Copy streams in chunks, so a large file never sits in memory
	// waiting for a slow client. A failed write after the status line
	// cannot be turned into an error response any more.
	if _, err := io.Copy(w, f); err != nil {
		log.Printf("stream %s: %v", abs, err)
	}
}

func (h *Handler) notFound(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNotFound)
	io.WriteString(w, "Not Found\n")
}

func (h *Handler) internalError(w http.ResponseWriter) {
	w.WriteHeader(http.StatusInternalServerError)
	io.WriteString(w, "Internal Server Error\n")
}

// Addr returns the listen address for the configured port.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
