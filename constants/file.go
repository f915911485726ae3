package constants

import (
	"mime"
	"strings"
)

// ImageExtensions holds the photo formats accepted for VIN extraction (lowercase, without '.').
var ImageExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"webp": {},
	"bmp":  {},
	"tif":  {},
	"tiff": {},
	"heic": {},
	"heif": {},
}

const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEWEBP = "image/webp"
	MIMEBMP  = "image/bmp"
	MIMETIFF = "image/tiff"
	MIMEHEIC = "image/heic"
)

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

func IsImageExt(ext string) bool {
	_, ok := ImageExtensions[NormalizeExt(ext)]
	return ok
}

func IsHEICExt(ext string) bool {
	switch NormalizeExt(ext) {
	case "heic", "heif":
		return true
	}
	return false
}

// MIMEForExt maps an image extension to its media type, or "" when unknown.
func MIMEForExt(ext string) string {
	switch e := NormalizeExt(ext); e {
	case "jpg", "jpeg":
		return MIMEJPEG
	case "png":
		return MIMEPNG
	case "webp":
		return MIMEWEBP
	case "bmp":
		return MIMEBMP
	case "tif", "tiff":
		return MIMETIFF
	case "heic", "heif":
		return MIMEHEIC
	default:
		return mime.TypeByExtension("." + e)
	}
}

// ExtForMIME is the inverse of MIMEForExt for the supported image types.
func ExtForMIME(mt string) string {
	switch strings.ToLower(mt) {
	case MIMEJPEG, "image/jpg":
		return "jpg"
	case MIMEPNG:
		return "png"
	case MIMEWEBP:
		return "webp"
	case MIMEBMP:
		return "bmp"
	case MIMETIFF:
		return "tiff"
	case MIMEHEIC, "image/heif":
		return "heic"
	}
	return ""
}
