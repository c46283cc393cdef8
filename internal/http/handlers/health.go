package handlers

import (
	"net/http"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.ok(w, map[string]any{
		"status":     "ok",
		"generation": a.Client != nil,
		"scenes":     len(a.Catalog.IDs()),
	})
}

// ListScenes returns the scene catalog in display order.
func (a *App) ListScenes(w http.ResponseWriter, r *http.Request) {
	a.ok(w, map[string]any{"scenes": a.Catalog.List()})
}
