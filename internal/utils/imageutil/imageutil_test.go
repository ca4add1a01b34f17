package imageutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func TestNormalizeConvertsBitmap(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, testImage(4, 3)))

	out, mimeType, err := Normalize(buf.Bytes(), "image/bmp", 0)
	require.NoError(t, err)
	require.Equal(t, "image/png", mimeType)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, 4, img.Bounds().Dx())
	require.Equal(t, 3, img.Bounds().Dy())
}

func TestNormalizeLeavesSupportedImages(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(8, 8)))

	out, mimeType, err := Normalize(buf.Bytes(), "image/png", 16)
	require.NoError(t, err)
	require.Equal(t, "image/png", mimeType)
	require.Equal(t, buf.Bytes(), out)
}

func TestNormalizeDownscales(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(200, 100)))

	out, mimeType, err := Normalize(buf.Bytes(), "image/png", 50)
	require.NoError(t, err)
	require.Equal(t, "image/png", mimeType)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, 50, img.Bounds().Dx())
	require.Equal(t, 25, img.Bounds().Dy())
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	_, _, err := Normalize([]byte("not an image"), "image/bmp", 0)
	require.Error(t, err)
}
