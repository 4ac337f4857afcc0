package constants

import "strings"

// AllowedContentTypes holds the MIME types accepted for invoice extraction.
var AllowedContentTypes = map[string]struct{}{
	"application/pdf": {},
	"image/jpeg":      {},
	"image/png":       {},
	"image/webp":      {},
}

// NormalizeContentType lowercases a MIME type and strips any parameters
// (e.g. "image/JPEG; charset=binary" -> "image/jpeg").
func NormalizeContentType(ct string) string {
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// IsSupportedContentType reports whether ct is accepted for extraction.
func IsSupportedContentType(ct string) bool {
	_, ok := AllowedContentTypes[NormalizeContentType(ct)]
	return ok
}

// ContentTypeForExt maps a file extension to a supported MIME type,
// used as a fallback when the upload does not carry a usable Content-Type.
func ContentTypeForExt(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "pdf":
		return "application/pdf"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}
