package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"productscene/internal/domain"
	"productscene/internal/render"
	"productscene/internal/scenes"
	"productscene/internal/storage"
)

const uploadField = "product_image"

var uploadExt = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// Upload stores a product image and reports its detected category.
func (a *App) Upload(w http.ResponseWriter, r *http.Request) {
	limit := a.Config.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+(1<<20))
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "too_large", fmt.Sprintf("upload exceeds %d MB", limit>>20))
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", "No image uploaded")
		return
	}
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "No image uploaded")
		return
	}
	defer file.Close()
	if strings.TrimSpace(header.Filename) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "No file selected")
		return
	}
	if header.Size > limit {
		a.error(w, http.StatusRequestEntityTooLarge, "too_large", fmt.Sprintf("upload exceeds %d MB", limit>>20))
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "could not read upload")
		return
	}
	ext, ok := uploadExt[render.SniffMIME(data)]
	if !ok {
		a.error(w, http.StatusBadRequest, "bad_request", "unsupported image format")
		return
	}

	key, err := a.Uploads.Write(r.Context(), storage.NewKey("product", ext), data)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	category := scenes.CategoryOther
	if a.Client != nil {
		detected, err := a.Client.DetectCategory(r.Context(), data)
		if err != nil {
			a.log(r).Warn().Err(err).Str("filename", key).Msg("category detection failed, using other")
		} else {
			category = detected
		}
	}

	a.log(r).Info().Str("filename", key).Str("category", category).Int("bytes", len(data)).Msg("product uploaded")
	a.ok(w, map[string]any{
		"filename": key,
		"category": category,
		"message":  "Product uploaded and detected as: " + category,
	})
}

type detectRequest struct {
	Filename string `json:"filename"`
}

// DetectProduct returns the category and a short name for an uploaded image.
func (a *App) DetectProduct(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Filename) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "Missing filename")
		return
	}
	data, err := a.readUpload(r, req.Filename)
	if err == nil {
		err = readableImage(data)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}

	category := scenes.CategoryOther
	name := ""
	if a.Client != nil {
		category, err = a.Client.DetectCategory(r.Context(), data)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		name, err = a.Client.DescribeProduct(r.Context(), data)
		if err != nil {
			a.log(r).Warn().Err(err).Msg("product description failed")
		}
	}
	if name == "" {
		name = scenes.DescriptionFor(category)
	}
	a.ok(w, map[string]any{
		"product_type":  category,
		"product_name":  name,
		"category_name": scenes.DisplayCategory(category),
	})
}

// readUpload loads an uploaded product image.
func (a *App) readUpload(r *http.Request, filename string) ([]byte, error) {
	data, err := a.Uploads.Read(r.Context(), strings.TrimSpace(filename))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: Product image not found", domain.ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}
