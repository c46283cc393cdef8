package render

import (
	"context"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"productscene/internal/domain"
)

// FormatSpec is a named output canvas.
type FormatSpec struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// DefaultFormats are the social canvases rendered for a finished scene.
var DefaultFormats = []FormatSpec{
	{Name: "square", Width: 1080, Height: 1080},
	{Name: "vertical", Width: 1080, Height: 1920},
	{Name: "horizontal", Width: 1920, Height: 1080},
}

// Background fills the letterbox area around the scaled source.
var Background color.Color = color.White

// Letterbox scales src to fit inside a width x height canvas without cropping
// and centers it. The returned rectangle is where the content landed.
// Sources smaller than the canvas are scaled up.
func Letterbox(src image.Image, width, height int) (*image.NRGBA, image.Rectangle, error) {
	sw, sh, err := checkArea(src)
	if err != nil {
		return nil, image.Rectangle{}, err
	}
	if width <= 0 || height <= 0 {
		return nil, image.Rectangle{}, domain.InputErrorf("render: invalid canvas %dx%d", width, height)
	}

	scale := math.Min(float64(width)/float64(sw), float64(height)/float64(sh))
	nw := clamp(int(math.Round(float64(sw)*scale)), 1, width)
	nh := clamp(int(math.Round(float64(sh)*scale)), 1, height)

	resized := imaging.Resize(src, nw, nh, imaging.Lanczos)
	canvas := imaging.New(width, height, Background)
	offset := image.Pt((width-nw)/2, (height-nh)/2)
	out := imaging.Paste(canvas, resized, offset)
	return out, image.Rectangle{Min: offset, Max: offset.Add(image.Pt(nw, nh))}, nil
}

// Composite letterboxes src onto every target. Either every target renders or
// an error is returned; there are no partial results.
func Composite(ctx context.Context, src image.Image, targets []FormatSpec) (map[string]*image.NRGBA, error) {
	if _, _, err := checkArea(src); err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, domain.InputErrorf("render: no target formats")
	}
	seen := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		if t.Name == "" {
			return nil, domain.InputErrorf("render: format without a name")
		}
		if t.Width <= 0 || t.Height <= 0 {
			return nil, domain.InputErrorf("render: format %s has invalid size %dx%d", t.Name, t.Width, t.Height)
		}
		if _, dup := seen[t.Name]; dup {
			return nil, domain.InputErrorf("render: duplicate format %s", t.Name)
		}
		seen[t.Name] = struct{}{}
	}

	results := make([]*image.NRGBA, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range targets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, _, err := Letterbox(src, t.Width, t.Height)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*image.NRGBA, len(targets))
	for i, t := range targets {
		out[t.Name] = results[i]
	}
	return out, nil
}

// CompositeBytes decodes data and composites it.
func CompositeBytes(ctx context.Context, data []byte, targets []FormatSpec) (map[string]*image.NRGBA, error) {
	src, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return Composite(ctx, src, targets)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
