package handlers

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
)

// ServeImage streams a file from the output store.
func (a *App) ServeImage(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "filename")
	path, err := a.Outputs.Path(key)
	if err != nil || !a.Outputs.Exists(key) {
		a.error(w, http.StatusNotFound, "not_found", "Image not found")
		return
	}
	f, err := os.Open(path)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "Image not found")
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		a.error(w, http.StatusNotFound, "not_found", "Image not found")
		return
	}
	w.Header().Set("Cache-Control", "private, max-age=300")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
