// Package main provides the static file server for the mirrored site.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/hkdo/webmirror/internal/server"
)

const defaultRoot = "mirror/videa-saversion.webflow.io"

func defaultPort() int {
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			return p
		}
	}
	return 8080
}

func main() {
	port := flag.Int("port", defaultPort(), "Port to serve on (default $PORT or 8080)")
	dir := flag.String("dir", defaultRoot, "Site root directory to serve")
	flag.Parse()

	absDir, err := filepath.Abs(*dir)
	if err != nil {
		log.Fatalf("Failed to resolve directory: %v", err)
	}

	if _, err := os.Stat(absDir); os.IsNotExist(err) {
		log.Fatalf("Directory does not exist: %s", absDir)
	}

	cfg := server.Config{Root: absDir, Port: *port}
	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: server.New(cfg),
	}

	fmt.Printf("Serving %s at http://localhost%s\n", absDir, cfg.Addr())
	fmt.Println("Press Ctrl+C to stop")

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Shutdown: %v", err)
	}
}
