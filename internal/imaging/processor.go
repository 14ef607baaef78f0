// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package imaging processes uploaded venue images using pure Go libraries.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decoder
)

// MaxUploadSize is the largest accepted venue image upload, in bytes.
const MaxUploadSize = 2 << 20 // 2 MiB

// Thumbnail dimensions for venue listings.
const (
	ThumbWidth  = 480
	ThumbHeight = 320
)

// ProcessResult describes a stored venue image.
type ProcessResult struct {
	// Path is the original image path relative to the uploads dir.
	Path string
	// ThumbPath is the listing thumbnail path relative to the uploads dir.
	ThumbPath string
	Width     int
	Height    int
	MimeType  string
	Size      int64
}

// Processor handles venue image uploads.
type Processor struct {
	uploadDir string
}

// NewProcessor creates a new image processor rooted at uploadDir.
func NewProcessor(uploadDir string) *Processor {
	return &Processor{
		uploadDir: uploadDir,
	}
}

// ProcessVenueImage validates, normalizes and stores an uploaded venue
// image. The stored filename is a fresh UUID, never the client-supplied
// name. EXIF orientation is applied and metadata stripped by re-encoding.
func (p *Processor) ProcessVenueImage(reader io.Reader) (*ProcessResult, error) {
	data, err := io.ReadAll(io.LimitReader(reader, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if len(data) > MaxUploadSize {
		return nil, fmt.Errorf("image exceeds maximum size of %d bytes", MaxUploadSize)
	}

	format := detectFormat(data)
	if format == "" {
		return nil, fmt.Errorf("unsupported image format")
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	// Read EXIF orientation and auto-rotate
	orientation := readExifOrientation(bytes.NewReader(data))
	img = applyOrientation(img, orientation)

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	// Re-encode without EXIF (pure Go encoders don't preserve metadata)
	processed, err := encodeImage(img, format, 95)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	name := uuid.New().String() + extensionFor(format)
	relPath := filepath.Join("venues", name)
	if err := p.saveImageFile(relPath, processed); err != nil {
		return nil, fmt.Errorf("failed to save venue image: %w", err)
	}

	thumbRelPath, err := p.createThumbnail(img, format, name)
	if err != nil {
		// The original is already stored; a missing thumbnail only
		// degrades the listing page.
		thumbRelPath = ""
	}

	return &ProcessResult{
		Path:      relPath,
		ThumbPath: thumbRelPath,
		Width:     width,
		Height:    height,
		MimeType:  formatToMimeType(format),
		Size:      int64(len(processed)),
	}, nil
}

// createThumbnail stores a center-cropped listing thumbnail next to the
// original, under venues/thumbs/.
func (p *Processor) createThumbnail(img image.Image, format, name string) (string, error) {
	thumb := imaging.Fill(img, ThumbWidth, ThumbHeight, imaging.Center, imaging.Lanczos)

	encoded, err := encodeImage(thumb, format, 85)
	if err != nil {
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	relPath := filepath.Join("venues", "thumbs", name)
	if err := p.saveImageFile(relPath, encoded); err != nil {
		return "", fmt.Errorf("failed to save thumbnail: %w", err)
	}
	return relPath, nil
}

// DeleteVenueImage removes a stored venue image and its thumbnail.
func (p *Processor) DeleteVenueImage(relPath string) error {
	if relPath == "" {
		return nil
	}
	name := filepath.Base(relPath)

	for _, rel := range []string{
		filepath.Join("venues", name),
		filepath.Join("venues", "thumbs", name),
	} {
		if err := os.Remove(filepath.Join(p.uploadDir, rel)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete %s: %w", rel, err)
		}
	}
	return nil
}

// readExifOrientation reads the EXIF orientation tag from image data.
// Returns 1 (normal) if orientation cannot be determined.
func readExifOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}

	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}

	return orientation
}

// applyOrientation applies EXIF orientation transformation to an image.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.FlipH(imaging.Rotate270(img))
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.FlipH(imaging.Rotate90(img))
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// encodeImage encodes an image to bytes with the specified format and quality.
func encodeImage(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
	default:
		// WebP decoding is supported but pure Go encoding is not;
		// everything that isn't PNG comes back out as JPEG.
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// detectFormat detects the image format from raw bytes.
func detectFormat(data []byte) string {
	contentType := http.DetectContentType(data)
	// Explicitly reject TIFF (CVE-2023-36308 in disintegration/imaging)
	if strings.Contains(contentType, "tiff") {
		return ""
	}
	switch {
	case strings.Contains(contentType, "jpeg"):
		return "jpeg"
	case strings.Contains(contentType, "png"):
		return "png"
	case strings.Contains(contentType, "webp"):
		return "webp"
	default:
		return ""
	}
}

// extensionFor returns the stored file extension for a detected format.
func extensionFor(format string) string {
	if format == "png" {
		return ".png"
	}
	// webp re-encodes to JPEG
	return ".jpg"
}

// formatToMimeType converts format string to MIME type.
func formatToMimeType(format string) string {
	switch format {
	case "png":
		return "image/png"
	default:
		return "image/jpeg"
	}
}

// saveImageFile creates the directory if needed and saves image data,
// validating that the target stays within the uploads dir.
func (p *Processor) saveImageFile(relPath string, data []byte) error {
	cleanRel := filepath.Clean(relPath)
	if strings.Contains(cleanRel, "..") || filepath.IsAbs(cleanRel) {
		return fmt.Errorf("invalid image path")
	}

	absBase, err := filepath.Abs(p.uploadDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %w", err)
	}

	absTarget := filepath.Join(absBase, cleanRel)
	rel, err := filepath.Rel(absBase, absTarget)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("path traversal detected")
	}

	if err := os.MkdirAll(filepath.Dir(absTarget), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(absTarget, data, 0644); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}
