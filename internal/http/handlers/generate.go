package handlers

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"strings"

	"productscene/internal/domain"
	"productscene/internal/providers/genai"
	"productscene/internal/render"
	"productscene/internal/scenes"
	"productscene/internal/storage"
)

type generateRequest struct {
	Filename           string `json:"filename"`
	ScenePreset        string `json:"scene_preset"`
	ProductDescription string `json:"product_description"`
	CustomPrompt       string `json:"custom_prompt"`
}

// GenerateScene stages an uploaded product inside a catalog scene.
func (a *App) GenerateScene(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Filename) == "" || strings.TrimSpace(req.ScenePreset) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "Missing required parameters")
		return
	}
	tpl, err := a.Catalog.Get(req.ScenePreset)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !a.requireClient(w) {
		return
	}
	_, key, err := a.generate(r.Context(), req, tpl)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.ok(w, map[string]any{
		"output_filename": key,
		"message":         fmt.Sprintf("Generated %s scene", tpl.Name),
	})
}

// generate renders req into a new scene_*.png output.
func (a *App) generate(ctx context.Context, req generateRequest, tpl scenes.Template) (image.Image, string, error) {
	data, err := a.Uploads.Read(ctx, strings.TrimSpace(req.Filename))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", fmt.Errorf("%w: Product image not found", domain.ErrNotFound)
		}
		return nil, "", err
	}
	res, err := a.Client.GenerateScene(ctx, genai.GenerationRequest{
		Image:    data,
		MIMEType: render.SniffMIME(data),
		Prompt:   tpl.ComposePrompt(req.ProductDescription, req.CustomPrompt),
	})
	if err != nil {
		return nil, "", err
	}
	key, err := a.saveResult(ctx, "scene", res)
	if err != nil {
		return nil, "", err
	}
	return res.Image, key, nil
}

func (a *App) saveResult(ctx context.Context, prefix string, res *genai.Result) (string, error) {
	data, err := res.PNG()
	if err != nil {
		return "", err
	}
	return a.Outputs.Write(ctx, storage.NewKey(prefix, "png"), data)
}

type editRequest struct {
	OutputFilename string `json:"output_filename"`
	EditRequest    string `json:"edit_request"`
}

// ConversationalEdit applies a natural-language change to a generated image.
func (a *App) ConversationalEdit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if !a.decode(w, r, &req) {
		return
	}
	request := strings.TrimSpace(req.EditRequest)
	if strings.TrimSpace(req.OutputFilename) == "" || request == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "Missing required parameters")
		return
	}
	if !a.requireClient(w) {
		return
	}
	img, err := a.readOutputImage(r.Context(), req.OutputFilename, "Scene image not found")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	res, err := a.Client.Edit(r.Context(), img, request)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	key, err := a.saveResult(r.Context(), "edited", res)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.ok(w, map[string]any{
		"output_filename": key,
		"message":         "Applied edit: " + request,
	})
}

// readOutputImage loads and decodes a file from the output store.
func (a *App) readOutputImage(ctx context.Context, filename, missing string) (image.Image, error) {
	data, err := a.Outputs.Read(ctx, strings.TrimSpace(filename))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, missing)
		}
		return nil, err
	}
	img, err := render.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: stored image is unreadable: %w", domain.ErrInput, err)
	}
	return img, nil
}
