package models

import (
	"net/http"
	"path/filepath"
	"strings"
)

// ImageUpload is one uploaded image payload as received from the client.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Size returns the payload length in bytes.
func (u ImageUpload) Size() int {
	return len(u.Data)
}

// DetectedContentType returns the declared content type, falling back to
// an image type sniffed from the payload and then the filename extension.
func (u ImageUpload) DetectedContentType() string {
	if u.ContentType != "" && u.ContentType != "application/octet-stream" {
		return u.ContentType
	}
	sniffed := "application/octet-stream"
	if len(u.Data) > 0 {
		sniffed = http.DetectContentType(u.Data)
		if strings.HasPrefix(sniffed, "image/") {
			return sniffed
		}
	}
	if ct := contentTypeByExt(u.Filename); ct != "application/octet-stream" {
		return ct
	}
	return sniffed
}

func contentTypeByExt(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	types := map[string]string{
		".png":  "image/png",
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".gif":  "image/gif",
		".webp": "image/webp",
		".svg":  "image/svg+xml",
		".bmp":  "image/bmp",
		".heic": "image/heic",
	}
	if ct, ok := types[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
