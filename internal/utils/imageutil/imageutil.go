package imageutil

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	"github.com/anthonynsimon/bild/transform"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Formats the generation API accepts as-is.
var supportedMIMETypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/heic": true,
	"image/heif": true,
}

func IsSupported(mimeType string) bool {
	return supportedMIMETypes[mimeType]
}

// Normalize converts images the API rejects (bmp, tiff, gif) to png and
// downscales anything whose longest side exceeds maxDimension. A maxDimension
// of zero disables resizing. Supported images that fit are returned untouched.
func Normalize(data []byte, mimeType string, maxDimension int) ([]byte, string, error) {
	if IsSupported(mimeType) && maxDimension <= 0 {
		return data, mimeType, nil
	}
	if mimeType == "image/heic" || mimeType == "image/heif" {
		return data, mimeType, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image header: %w", err)
	}

	fits := maxDimension <= 0 || (cfg.Width <= maxDimension && cfg.Height <= maxDimension)
	if IsSupported(mimeType) && fits {
		return data, mimeType, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	if !fits {
		width, height := scaledSize(cfg.Width, cfg.Height, maxDimension)
		img = transform.Resize(img, width, height, transform.Linear)
	}

	var output bytes.Buffer
	if mimeType == "image/jpeg" {
		if err := jpeg.Encode(&output, img, &jpeg.Options{Quality: 90}); err != nil {
			return nil, "", err
		}
		return output.Bytes(), "image/jpeg", nil
	}

	if err := png.Encode(&output, img); err != nil {
		return nil, "", err
	}

	return output.Bytes(), "image/png", nil
}

func scaledSize(width, height, maxDimension int) (int, int) {
	if width >= height {
		h := height * maxDimension / width
		if h < 1 {
			h = 1
		}
		return maxDimension, h
	}

	w := width * maxDimension / height
	if w < 1 {
		w = 1
	}
	return w, maxDimension
}
