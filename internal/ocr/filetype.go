package ocr

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".avif": true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
	".webp": true,
}

// IsImage reports whether path has an image extension. Every other file is
// treated as a document and uploaded rather than sent inline.
func IsImage(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// ImageMIMEType returns the MIME type used in the data URL for an image.
// Content sniffing wins when it recognises an image; otherwise the type is
// derived from the extension.
func ImageMIMEType(path string, data []byte) string {
	if len(data) > 0 {
		if mt := mimetype.Detect(data); strings.HasPrefix(mt.String(), "image/") {
			return mt.String()
		}
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "jpg":
		ext = "jpeg"
	case "tif":
		ext = "tiff"
	}
	return "image/" + ext
}

// Stem returns the base name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SharedStems groups paths whose outputs would land on the same
// <stem>.ocr.* files. Only stems used by more than one path are returned;
// paths keep their input order.
func SharedStems(paths []string) map[string][]string {
	byStem := make(map[string][]string)
	for _, path := range paths {
		stem := Stem(path)
		byStem[stem] = append(byStem[stem], path)
	}
	for stem, group := range byStem {
		if len(group) < 2 {
			delete(byStem, stem)
		}
	}
	return byStem
}
