// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/HugoSmits86/nativewebp"
	xdraw "golang.org/x/image/draw"
)

// scaleToWidth resizes img to width, keeping its aspect ratio. A width of
// zero or the image's own width returns img unchanged.
func scaleToWidth(img *image.RGBA, width int) *image.RGBA {
	b := img.Bounds()
	if width <= 0 || width == b.Dx() || b.Dx() == 0 {
		return img
	}
	height := max(1, b.Dy()*width/b.Dx())
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

func encodeWebP(w io.Writer, img *image.RGBA, width int) error {
	if err := nativewebp.Encode(w, scaleToWidth(img, width), nil); err != nil {
		return fmt.Errorf("webp encode: %w", err)
	}
	return nil
}

func writeWebP(path string, img *image.RGBA, width int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encodeWebP(f, img, width); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
