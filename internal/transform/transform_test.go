package transform

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testImage encodes a solid-color image of the given dimensions.
func testImage(t *testing.T, w, h int, encode func(*bytes.Buffer, image.Image) error) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 80, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(buf *bytes.Buffer, img image.Image) error {
	return jpeg.Encode(buf, img, &jpeg.Options{Quality: 90})
}

func encodePNG(buf *bytes.Buffer, img image.Image) error {
	return png.Encode(buf, img)
}

func decodeDims(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return cfg.Width, cfg.Height
}

func TestTransformCoverFit(t *testing.T) {
	src := testImage(t, 1024, 768, encodeJPEG)

	out, err := Transform(src, Profile{Width: 800, Height: 400, Quality: 85})
	require.NoError(t, err)

	w, h := decodeDims(t, out)
	assert.Equal(t, 800, w)
	assert.Equal(t, 400, h)
}

func TestTransformDefaults(t *testing.T) {
	src := testImage(t, 300, 300, encodePNG)

	out, err := Transform(src, Profile{})
	require.NoError(t, err)

	w, h := decodeDims(t, out)
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)
}

func TestTransformUpscalesSmallInput(t *testing.T) {
	// Cover fit must yield exact target dimensions even when the source is
	// smaller than the target.
	src := testImage(t, 50, 200, encodeJPEG)

	out, err := Transform(src, Profile{Width: 400, Height: 300})
	require.NoError(t, err)

	w, h := decodeDims(t, out)
	assert.Equal(t, 400, w)
	assert.Equal(t, 300, h)
}

func TestTransformPNGOutput(t *testing.T) {
	src := testImage(t, 400, 400, encodeJPEG)

	out, err := Transform(src, Profile{Width: 200, Height: 200, Format: PNG})
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 200, cfg.Width)
	assert.Equal(t, 200, cfg.Height)
}

func TestThumbnailFixedSize(t *testing.T) {
	for _, dims := range [][2]int{{1200, 300}, {300, 1200}, {150, 150}, {17, 1031}} {
		src := testImage(t, dims[0], dims[1], encodeJPEG)

		out, err := Thumbnail(src)
		require.NoError(t, err, "input %dx%d", dims[0], dims[1])

		w, h := decodeDims(t, out)
		assert.Equal(t, 150, w, "input %dx%d", dims[0], dims[1])
		assert.Equal(t, 150, h, "input %dx%d", dims[0], dims[1])
	}
}

func TestTransformRejectsCorruptInput(t *testing.T) {
	_, err := Transform([]byte("definitely not an image"), Profile{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadImage)
}
