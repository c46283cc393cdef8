package render

import (
	"context"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productscene/internal/domain"
)

var red = color.NRGBA{R: 255, A: 255}

func solid(w, h int, c color.Color) *image.NRGBA {
	return imaging.New(w, h, c)
}

func size(img image.Image) (int, int) {
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

func TestLetterboxCentersWithoutCropping(t *testing.T) {
	out, content, err := Letterbox(solid(400, 200, red), 1080, 1080)
	require.NoError(t, err)

	w, h := size(out)
	assert.Equal(t, 1080, w)
	assert.Equal(t, 1080, h)
	assert.Equal(t, image.Rect(0, 270, 1080, 810), content)

	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, out.NRGBAAt(540, 100))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, out.NRGBAAt(540, 1000))
	assert.Equal(t, red, out.NRGBAAt(540, 540))
}

func TestLetterboxUpscalesSmallSource(t *testing.T) {
	_, content, err := Letterbox(solid(100, 50, red), 1920, 1080)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 60, 1920, 1020), content)
	assert.GreaterOrEqual(t, content.Dx(), 100)
}

func TestCompositeProducesExactSizesAndAspect(t *testing.T) {
	sources := [][2]int{{1000, 800}, {640, 1280}, {333, 333}, {50, 20}, {3000, 1000}}
	for _, s := range sources {
		src := solid(s[0], s[1], red)
		outs, err := Composite(context.Background(), src, DefaultFormats)
		require.NoError(t, err)
		require.Len(t, outs, len(DefaultFormats))

		for _, f := range DefaultFormats {
			out := outs[f.Name]
			require.NotNil(t, out, f.Name)
			w, h := size(out)
			assert.Equal(t, f.Width, w, "%s width for %v", f.Name, s)
			assert.Equal(t, f.Height, h, "%s height for %v", f.Name, s)

			_, content, err := Letterbox(src, f.Width, f.Height)
			require.NoError(t, err)
			scale := math.Min(float64(f.Width)/float64(s[0]), float64(f.Height)/float64(s[1]))
			assert.InDelta(t, float64(s[0])*scale, float64(content.Dx()), 1.0)
			assert.InDelta(t, float64(s[1])*scale, float64(content.Dy()), 1.0)
			assert.True(t, content.In(image.Rect(0, 0, f.Width, f.Height)))
		}
	}
}

func TestCompositeRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	empty := image.NewNRGBA(image.Rect(0, 0, 0, 10))

	_, err := Composite(ctx, empty, DefaultFormats)
	assert.ErrorIs(t, err, domain.ErrInput)

	_, err = Composite(ctx, solid(10, 10, red), []FormatSpec{{Name: "bad", Width: 0, Height: 10}})
	assert.ErrorIs(t, err, domain.ErrInput)

	_, err = Composite(ctx, solid(10, 10, red), []FormatSpec{{Name: "a", Width: 5, Height: 5}, {Name: "a", Width: 6, Height: 6}})
	assert.ErrorIs(t, err, domain.ErrInput)

	_, err = Composite(ctx, solid(10, 10, red), nil)
	assert.ErrorIs(t, err, domain.ErrInput)
}

func TestCompositeBytesDecodeFailure(t *testing.T) {
	outs, err := CompositeBytes(context.Background(), []byte("definitely not an image"), DefaultFormats)
	assert.ErrorIs(t, err, domain.ErrDecode)
	assert.Nil(t, outs)
}

func TestCompositeBytesRoundTrip(t *testing.T) {
	data, err := EncodePNG(solid(64, 32, red))
	require.NoError(t, err)
	assert.Equal(t, "image/png", SniffMIME(data))

	outs, err := CompositeBytes(context.Background(), data, []FormatSpec{{Name: "thumb", Width: 100, Height: 100}})
	require.NoError(t, err)
	w, h := size(outs["thumb"])
	assert.Equal(t, 100, w)
	assert.Equal(t, 100, h)
}

func TestCompositeHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outs, err := Composite(ctx, solid(10, 10, red), DefaultFormats)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, outs)
}

func TestSynthesizeSizes(t *testing.T) {
	outs, err := Synthesize(context.Background(), solid(1000, 1000, red))
	require.NoError(t, err)
	require.Len(t, outs, len(Recipes))

	for _, r := range Recipes {
		w, h := size(outs[r.Name])
		if r.Transform == Environmental {
			assert.Equal(t, 900, w, r.Name)
			assert.Equal(t, 900, h, r.Name)
			continue
		}
		assert.Equal(t, 1000, w, r.Name)
		assert.Equal(t, 1000, h, r.Name)
	}
}

func TestCloseUpCropSide(t *testing.T) {
	assert.Equal(t, 480, closeUpSide(1000, 800))
	assert.Equal(t, 1, closeUpSide(1, 1))

	out, err := Apply(solid(1000, 800, red), CloseUp)
	require.NoError(t, err)
	w, h := size(out)
	assert.Equal(t, 1000, w)
	assert.Equal(t, 800, h)
}

func TestVariationsKeepNonSquareCanvas(t *testing.T) {
	src := solid(300, 200, red)
	for _, v := range []Variation{CloseUp, Lifestyle, Overhead, SideAngle} {
		out, err := Apply(src, v)
		require.NoError(t, err, v.String())
		w, h := size(out)
		assert.Equal(t, 300, w, v.String())
		assert.Equal(t, 200, h, v.String())
	}
	out, err := Apply(src, Environmental)
	require.NoError(t, err)
	w, h := size(out)
	assert.Equal(t, 270, w)
	assert.Equal(t, 180, h)
}

func TestLifestyleCropsFromScaledImage(t *testing.T) {
	blue := color.NRGBA{B: 255, A: 255}
	src := imaging.New(2000, 20, blue)
	src = imaging.Paste(src, solid(1000, 20, red), image.Pt(0, 0))

	out, err := Apply(src, Lifestyle)
	require.NoError(t, err)
	w, h := size(out)
	require.Equal(t, 2000, w)
	require.Equal(t, 20, h)

	// Scaled width 2200 puts the seam at 1100; the crop starts at 110, so the
	// seam lands at 990. An offset taken from the original width would put it
	// at 1000.
	assert.Equal(t, red, out.NRGBAAt(985, 10))
	assert.Equal(t, blue, out.NRGBAAt(994, 10))
}

func TestParseVariation(t *testing.T) {
	v, err := ParseVariation(" Side_Angle ")
	require.NoError(t, err)
	assert.Equal(t, SideAngle, v)

	_, err = ParseVariation("fisheye")
	assert.ErrorIs(t, err, domain.ErrInput)

	_, err = ParseVariations([]string{"overhead", "overhead"})
	assert.ErrorIs(t, err, domain.ErrInput)

	all, err := ParseVariations(nil)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	_, err = Apply(solid(10, 10, red), Variation(42))
	assert.ErrorIs(t, err, domain.ErrInput)
	assert.Equal(t, "unknown", Variation(42).String())
}

func TestSynthesizeOnlySubset(t *testing.T) {
	outs, err := SynthesizeOnly(context.Background(), solid(40, 40, red), []Variation{Overhead, Environmental})
	require.NoError(t, err)
	assert.Len(t, outs, 2)
	assert.Contains(t, outs, "overhead")
	assert.Contains(t, outs, "environmental")

	_, err = SynthesizeOnly(context.Background(), solid(40, 40, red), []Variation{Variation(-1)})
	assert.ErrorIs(t, err, domain.ErrInput)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode(nil)
	assert.ErrorIs(t, err, domain.ErrDecode)
	_, err = Decode([]byte{0x89, 'P', 'N', 'G'})
	assert.ErrorIs(t, err, domain.ErrDecode)
	assert.Equal(t, "", SniffMIME([]byte("nope")))
}
