package render

import (
	"context"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"productscene/internal/domain"
)

// Variation identifies one derived-shot recipe.
type Variation int

const (
	CloseUp Variation = iota
	Lifestyle
	Overhead
	SideAngle
	Environmental
)

const (
	closeUpFraction    = 0.6
	lifestyleZoom      = 1.1
	lifestyleOffset    = 0.05
	sideAngleDegrees   = 2.0
	environmentalScale = 0.9
)

// VariationRecipe pairs a recipe with its display label.
type VariationRecipe struct {
	Name       string    `json:"name"`
	AngleLabel string    `json:"angle"`
	Transform  Variation `json:"-"`
}

// Recipes lists every variation in output order.
var Recipes = []VariationRecipe{
	{Name: "close_up", AngleLabel: "Close-up detail", Transform: CloseUp},
	{Name: "lifestyle", AngleLabel: "Lifestyle context", Transform: Lifestyle},
	{Name: "overhead", AngleLabel: "Overhead flat lay", Transform: Overhead},
	{Name: "side_angle", AngleLabel: "Side angle", Transform: SideAngle},
	{Name: "environmental", AngleLabel: "Environmental wide", Transform: Environmental},
}

func (v Variation) String() string {
	if v < 0 || int(v) >= len(Recipes) {
		return "unknown"
	}
	return Recipes[v].Name
}

// Recipe returns the catalog entry for v.
func (v Variation) Recipe() (VariationRecipe, bool) {
	if v < 0 || int(v) >= len(Recipes) {
		return VariationRecipe{}, false
	}
	return Recipes[v], true
}

// ParseVariation maps a recipe name to its Variation. Unknown names are input
// errors.
func ParseVariation(name string) (Variation, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, r := range Recipes {
		if r.Name == name {
			return r.Transform, nil
		}
	}
	return 0, domain.InputErrorf("unknown variation %q", name)
}

// ParseVariations maps names to Variations, rejecting the whole list on the
// first unknown or repeated name. An empty list selects every recipe.
func ParseVariations(names []string) ([]Variation, error) {
	if len(names) == 0 {
		all := make([]Variation, 0, len(Recipes))
		for _, r := range Recipes {
			all = append(all, r.Transform)
		}
		return all, nil
	}
	seen := make(map[Variation]struct{}, len(names))
	out := make([]Variation, 0, len(names))
	for _, name := range names {
		v, err := ParseVariation(name)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[v]; dup {
			return nil, domain.InputErrorf("duplicate variation %q", name)
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// Apply runs one recipe. Every recipe except Environmental returns an image the
// size of src; Environmental returns a 90% copy.
func Apply(src image.Image, v Variation) (*image.NRGBA, error) {
	w, h, err := checkArea(src)
	if err != nil {
		return nil, err
	}
	switch v {
	case CloseUp:
		side := closeUpSide(w, h)
		crop := imaging.CropCenter(src, side, side)
		return imaging.Resize(crop, w, h, imaging.Lanczos), nil
	case Lifestyle:
		sw := atLeastOne(int(float64(w) * lifestyleZoom))
		sh := atLeastOne(int(float64(h) * lifestyleZoom))
		scaled := imaging.Resize(src, sw, sh, imaging.Lanczos)
		left := int(float64(sw) * lifestyleOffset)
		top := int(float64(sh) * lifestyleOffset)
		out := imaging.Crop(scaled, image.Rect(left, top, left+w, top+h))
		if out.Bounds().Dx() != w || out.Bounds().Dy() != h {
			out = imaging.Resize(out, w, h, imaging.Lanczos)
		}
		return out, nil
	case Overhead:
		side := min(w, h)
		crop := imaging.CropCenter(src, side, side)
		return imaging.Resize(crop, w, h, imaging.Lanczos), nil
	case SideAngle:
		rotated := imaging.Rotate(src, sideAngleDegrees, color.White)
		return imaging.Resize(rotated, w, h, imaging.Lanczos), nil
	case Environmental:
		return imaging.Resize(src,
			atLeastOne(int(float64(w)*environmentalScale)),
			atLeastOne(int(float64(h)*environmentalScale)),
			imaging.Lanczos), nil
	}
	return nil, domain.InputErrorf("unknown variation %d", int(v))
}

// Synthesize renders every recipe.
func Synthesize(ctx context.Context, src image.Image) (map[string]*image.NRGBA, error) {
	all, _ := ParseVariations(nil)
	return SynthesizeOnly(ctx, src, all)
}

// SynthesizeOnly renders the selected recipes concurrently. It returns all of
// them or an error.
func SynthesizeOnly(ctx context.Context, src image.Image, variations []Variation) (map[string]*image.NRGBA, error) {
	if _, _, err := checkArea(src); err != nil {
		return nil, err
	}
	for _, v := range variations {
		if _, ok := v.Recipe(); !ok {
			return nil, domain.InputErrorf("unknown variation %d", int(v))
		}
	}

	results := make([]*image.NRGBA, len(variations))
	g, gctx := errgroup.WithContext(ctx)
	for i, v := range variations {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := Apply(src, v)
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

	out := make(map[string]*image.NRGBA, len(variations))
	for i, v := range variations {
		out[v.String()] = results[i]
	}
	return out, nil
}

// closeUpSide is the edge of the centered square the close-up crops.
func closeUpSide(w, h int) int {
	return atLeastOne(int(closeUpFraction * float64(min(w, h))))
}

func atLeastOne(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
