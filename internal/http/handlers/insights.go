package handlers

import (
	"errors"
	"net/http"
	"strings"

	"productscene/internal/domain"
	"productscene/internal/providers/genai"
	"productscene/internal/scenes"
)

type insightsRequest struct {
	Filename string `json:"filename"`
	Category string `json:"category"`
}

// PhotographyInsights returns staging advice for an uploaded or generated image.
func (a *App) PhotographyInsights(w http.ResponseWriter, r *http.Request) {
	var req insightsRequest
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Filename) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "Missing filename")
		return
	}
	data, err := a.readUpload(r, req.Filename)
	if errors.Is(err, domain.ErrNotFound) {
		data, err = a.Outputs.Read(r.Context(), strings.TrimSpace(req.Filename))
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "Image not found")
			return
		}
	}
	if err == nil {
		err = readableImage(data)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}

	category := scenes.NormalizeCategory(req.Category)
	if strings.TrimSpace(req.Category) == "" && a.Client != nil {
		detected, err := a.Client.DetectCategory(r.Context(), data)
		if err != nil {
			a.log(r).Warn().Err(err).Msg("category detection failed, using other")
		} else {
			category = detected
		}
	}

	var advisor genai.Advisor
	if a.Client != nil {
		advisor = a.Client
	}
	advice, err := genai.Recommend(r.Context(), advisor, data, category, a.Catalog.IDs())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.ok(w, map[string]any{
		"category": category,
		"insights": advice,
	})
}
