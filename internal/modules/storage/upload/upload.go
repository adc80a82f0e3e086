// Package upload persists moment images, either on local disk under the
// static directory or in an S3 bucket when one is configured.
package upload

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/tracking-moments/core/internal/config"
)

// URLPrefix is where locally stored images are served from.
const URLPrefix = "/uploads"

// ImageRef describes a stored image.
type ImageRef struct {
	URL     string `json:"url"`
	Name    string `json:"name"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	Storage string `json:"storage"` // "local" | "s3"
}

// Store saves uploaded images according to the app config.
type Store struct {
	cfg *config.AppConfig
	dir string
}

func NewStore(cfg *config.AppConfig) *Store {
	return &Store{
		cfg: cfg,
		dir: filepath.Join(cfg.StaticDir(), "uploads"),
	}
}

// LocalDir is the directory served at URLPrefix.
func (s *Store) LocalDir() string { return s.dir }

// SaveImage validates and persists one multipart image file.
func (s *Store) SaveImage(ctx context.Context, fh *multipart.FileHeader) (*ImageRef, error) {
	if err := validateImageFile(fh.Filename, fh.Size, s.cfg.Upload.AllowedFormats, s.cfg.Upload.MaxSizeMB); err != nil {
		return nil, err
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	payload, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	// The multipart header size is client-supplied; re-check the bytes.
	if err := validateImageFile(fh.Filename, int64(len(payload)), s.cfg.Upload.AllowedFormats, s.cfg.Upload.MaxSizeMB); err != nil {
		return nil, err
	}

	width, height := probeDimensions(payload)
	name := buildFileName(fh.Filename)

	if s.cfg.S3.Enable {
		uploader, err := newS3Uploader(s.cfg.S3)
		if err != nil {
			return nil, err
		}
		contentType := detectContentType(fh.Filename, payload, fh.Header.Get("Content-Type"))
		url, err := uploader.Upload(ctx, "uploads/"+name, payload, contentType)
		if err != nil {
			return nil, err
		}
		return &ImageRef{URL: url, Name: name, Width: width, Height: height, Storage: "s3"}, nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), payload, 0o644); err != nil {
		return nil, err
	}
	return &ImageRef{
		URL:     fmt.Sprintf("%s/%s", URLPrefix, name),
		Name:    name,
		Width:   width,
		Height:  height,
		Storage: "local",
	}, nil
}
