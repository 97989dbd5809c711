package processor

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

const jpegQuality = 90

// DownscaleImage shrinks the image at path so neither side exceeds maxDim,
// keeping the aspect ratio. It reports resized=false, with no data, when the
// image already fits or maxDim is not positive. PNG input stays PNG; every
// other format is re-encoded as JPEG.
func DownscaleImage(path string, maxDim int) (data []byte, mimeType string, resized bool, err error) {
	if maxDim <= 0 {
		return nil, "", false, nil
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", false, fmt.Errorf("failed to open image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= maxDim && height <= maxDim {
		return nil, "", false, nil
	}

	if width >= height {
		img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
	} else {
		img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if strings.ToLower(filepath.Ext(path)) == ".png" {
		err = imaging.Encode(&buf, img, imaging.PNG)
		mimeType = "image/png"
	} else {
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality))
		mimeType = "image/jpeg"
	}
	if err != nil {
		return nil, "", false, fmt.Errorf("failed to encode resized image: %w", err)
	}

	return buf.Bytes(), mimeType, true, nil
}
