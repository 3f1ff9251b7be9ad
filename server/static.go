package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// webStaticHandler serves the built web client with index.html fallback,
// it returns nil when dir is empty or missing.
func webStaticHandler(dir string) http.HandlerFunc {
	webDir, ok := resolveWebDir(dir)
	if !ok {
		return nil
	}
	fileServer := http.FileServer(http.Dir(webDir))
	return func(w http.ResponseWriter, r *http.Request) {
		cleanPath := path.Clean("/" + strings.TrimPrefix(r.URL.Path, "/"))
		relPath := strings.TrimPrefix(cleanPath, "/")
		if relPath != "" {
			target := filepath.Join(webDir, filepath.FromSlash(relPath))
			if info, err := os.Stat(target); err == nil && !info.IsDir() {
				fileServer.ServeHTTP(w, r)
				return
			}
		}
		indexPath := filepath.Join(webDir, "index.html")
		if info, err := os.Stat(indexPath); err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, indexPath)
	}
}

func resolveWebDir(dir string) (string, bool) {
	raw := strings.TrimSpace(dir)
	if raw == "" {
		return "", false
	}
	abs, err := filepath.Abs(raw)
	if err != nil {
		return "", false
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", false
	}
	return abs, true
}
