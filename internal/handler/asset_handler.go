package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) HomePage(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, r, filepath.Join(h.assets.Dir, h.assets.IndexFile), "Page not found")
}

// GetAsset serves a .jpg file that sits directly in the asset directory.
func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if !strings.HasSuffix(name, ".jpg") || filepath.Base(name) != name {
		writeError(w, http.StatusNotFound, "Image not found")
		return
	}
	h.serveFile(w, r, filepath.Join(h.assets.Dir, name), "Image not found")
}

func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request, path, notFound string) {
	f, err := os.Open(path)
	if err != nil {
		writeError(w, http.StatusNotFound, notFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		writeError(w, http.StatusNotFound, notFound)
		return
	}

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
