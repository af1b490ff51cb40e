// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

// Package avatar normalises uploaded profile pictures.
package avatar

import (
	"bytes"
	"image"
	// Registers the JPEG decoder.
	_ "image/jpeg"
	"image/png"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/image/draw"

	"github.com/taskforge/taskforge/internal/apperr"
)

// Size is the edge length in pixels of every stored avatar.
const Size = 350

// Field is the multipart form field carrying the upload.
const Field = "avatar"

// Error codes.
const (
	CodeUnsupported = "AVATAR_UNSUPPORTED_TYPE"
	CodeTooLarge    = "AVATAR_TOO_LARGE"
	CodeUndecodable = "AVATAR_UNDECODABLE"
)

var allowedExtensions = []string{".png", ".jpg", ".jpeg"}

// Normalize checks an upload named filename and converts it to a
// Size x Size PNG. The image is scaled to cover the square and cropped
// around its centre.
func Normalize(filename string, data []byte, maxBytes int) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !slices.Contains(allowedExtensions, ext) {
		return nil, apperr.Validation(CodeUnsupported, Field, "Please upload a image file")
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return nil, apperr.Validation(CodeTooLarge, Field, "File too large")
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Validation(CodeUndecodable, Field, "could not be read as an image")
	}

	dst := image.NewRGBA(image.Rect(0, 0, Size, Size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, coverRect(src.Bounds()), draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, apperr.Validation(CodeUndecodable, Field, "could not be encoded")
	}
	return buf.Bytes(), nil
}

// coverRect returns the largest centred square inside b.
func coverRect(b image.Rectangle) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	side := min(w, h)
	x0 := b.Min.X + (w-side)/2
	y0 := b.Min.Y + (h-side)/2
	return image.Rect(x0, y0, x0+side, y0+side)
}
