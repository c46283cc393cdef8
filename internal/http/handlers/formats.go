package handlers

import (
	"context"
	"image"
	"net/http"
	"strings"

	"productscene/internal/render"
	"productscene/internal/storage"
)

// sourceRequest names the image a compositor route works on: an existing
// output, or an upload plus scene preset to generate first.
type sourceRequest struct {
	OutputFilename string `json:"output_filename"`
	generateRequest
}

type sourceImage struct {
	img image.Image
	key string
}

// resolveSource writes its own error response and returns false on failure.
func (a *App) resolveSource(w http.ResponseWriter, r *http.Request, req sourceRequest) (sourceImage, bool) {
	if strings.TrimSpace(req.OutputFilename) != "" {
		img, err := a.readOutputImage(r.Context(), req.OutputFilename, "Image not found")
		if err != nil {
			a.fail(w, r, err)
			return sourceImage{}, false
		}
		return sourceImage{img: img, key: strings.TrimSpace(req.OutputFilename)}, true
	}
	if strings.TrimSpace(req.Filename) == "" || strings.TrimSpace(req.ScenePreset) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "Missing output_filename or filename and scene_preset")
		return sourceImage{}, false
	}
	tpl, err := a.Catalog.Get(req.ScenePreset)
	if err != nil {
		a.fail(w, r, err)
		return sourceImage{}, false
	}
	if !a.requireClient(w) {
		return sourceImage{}, false
	}
	img, key, err := a.generate(r.Context(), req.generateRequest, tpl)
	if err != nil {
		a.fail(w, r, err)
		return sourceImage{}, false
	}
	return sourceImage{img: img, key: key}, true
}

// GenerateMultiFormat letterboxes an image onto every social canvas.
func (a *App) GenerateMultiFormat(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if !a.decode(w, r, &req) {
		return
	}
	src, ok := a.resolveSource(w, r, req)
	if !ok {
		return
	}
	canvases, err := render.Composite(r.Context(), src.img, render.DefaultFormats)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	files := make(map[string]string, len(canvases))
	for _, format := range render.DefaultFormats {
		key, err := a.writePNG(r.Context(), "format_"+format.Name, canvases[format.Name])
		if err != nil {
			a.fail(w, r, err)
			return
		}
		files[format.Name] = key
	}
	a.ok(w, map[string]any{
		"output_filename": src.key,
		"format_files":    files,
		"message":         "Generated multi-format images",
	})
}

type variationsRequest struct {
	sourceRequest
	Variations []string `json:"variations"`
}

// GenerateVariations renders framing variations of an image.
func (a *App) GenerateVariations(w http.ResponseWriter, r *http.Request) {
	var req variationsRequest
	if !a.decode(w, r, &req) {
		return
	}
	variations, err := render.ParseVariations(req.Variations)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	src, ok := a.resolveSource(w, r, req.sourceRequest)
	if !ok {
		return
	}
	images, err := render.SynthesizeOnly(r.Context(), src.img, variations)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	files := make(map[string]string, len(images))
	angles := make(map[string]string, len(images))
	for _, v := range variations {
		recipe, _ := v.Recipe()
		key, err := a.writePNG(r.Context(), "variation_"+v.String(), images[v.String()])
		if err != nil {
			a.fail(w, r, err)
			return
		}
		files[v.String()] = key
		angles[v.String()] = recipe.AngleLabel
	}
	a.ok(w, map[string]any{
		"output_filename":  src.key,
		"variation_files":  files,
		"variation_angles": angles,
		"message":          "Generated scene variations",
	})
}

type exportRequest struct {
	OutputFilename string `json:"output_filename"`
	ProductName    string `json:"product_name"`
	Bundle         bool   `json:"bundle"`
}

// ExportFormats writes the marketing exports for a generated image.
func (a *App) ExportFormats(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.OutputFilename) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "Missing output filename")
		return
	}
	name, err := render.NormalizeBaseName(req.ProductName)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	img, err := a.readOutputImage(r.Context(), req.OutputFilename, "Image not found")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	files, err := a.Exporter.Export(r.Context(), img, name)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	payload := map[string]any{
		"exported_files": files,
		"message":        "Marketing formats exported successfully",
	}
	if req.Bundle {
		bundle, err := a.Exporter.Bundle(r.Context(), name)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		payload["bundle"] = bundle
	}
	a.ok(w, payload)
}

func (a *App) writePNG(ctx context.Context, prefix string, img image.Image) (string, error) {
	data, err := render.EncodePNG(img)
	if err != nil {
		return "", err
	}
	return a.Outputs.Write(ctx, storage.NewKey(prefix, "png"), data)
}
