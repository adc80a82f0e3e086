package upload

import (
	"bytes"
	"fmt"
	"image"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
)

// buildFileName generates a collision-resistant filename that preserves
// the original extension.
func buildFileName(original string) string {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(original)))
	if ext == "" || len(ext) > 10 {
		ext = ".dat"
	}
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:18] + ext
}

// validateImageFile checks extension and size against the configured limits.
func validateImageFile(filename string, size int64, allowedFormats []string, maxSizeMB int) error {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(strings.TrimSpace(filename))), ".")
	if ext == "" {
		return fmt.Errorf("image extension is required")
	}
	if maxSizeMB > 0 && size > int64(maxSizeMB)*1024*1024 {
		return fmt.Errorf("image size exceeds %dMB", maxSizeMB)
	}

	for _, allowed := range allowedFormats {
		if strings.EqualFold(strings.TrimSpace(allowed), ext) {
			return nil
		}
	}
	return fmt.Errorf("image format %q is not allowed", ext)
}

// probeDimensions decodes just the image header. Unknown formats yield
// zero dimensions rather than an error.
func probeDimensions(payload []byte) (width, height int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(payload))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

func detectContentType(filename string, payload []byte, headerValue string) string {
	if v := strings.TrimSpace(headerValue); v != "" && !strings.EqualFold(v, "application/octet-stream") {
		return v
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		return byExt
	}
	return http.DetectContentType(payload)
}
