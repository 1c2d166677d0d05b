// Package thumbnail produces fixed-size JPEG previews for page images.
package thumbnail

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// Generator renders bounded-box JPEG previews. Pages are scaled to fit within
// MaxWidth x MaxHeight without enlargement and composed onto a white
// background of exactly the box size.
type Generator struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
}

// NewGenerator creates a generator with the given box and JPEG quality.
func NewGenerator(maxWidth, maxHeight, quality int) *Generator {
	return &Generator{MaxWidth: maxWidth, MaxHeight: maxHeight, Quality: quality}
}

// Generate reads the image at srcPath and writes a JPEG preview to dstPath,
// creating parent directories as needed. Callers treat failure as non-fatal:
// a page without a thumbnail is still a valid page.
func (g *Generator) Generate(srcPath, dstPath string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open source image: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decode source image: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, g.MaxWidth, g.MaxHeight))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	target := fitRect(src.Bounds().Dx(), src.Bounds().Dy(), g.MaxWidth, g.MaxHeight)
	xdraw.CatmullRom.Scale(dst, target, src, src.Bounds(), xdraw.Over, nil)

	if dir := filepath.Dir(dstPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create thumbnail directory: %w", err)
		}
	}
	out, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("create thumbnail file: %w", err)
	}
	defer out.Close()

	if err := jpeg.Encode(out, dst, &jpeg.Options{Quality: g.Quality}); err != nil {
		return fmt.Errorf("encode thumbnail: %w", err)
	}
	return nil
}

// fitRect returns the centered rectangle an srcW x srcH image scales into
// inside a boxW x boxH box, preserving aspect ratio and never enlarging.
func fitRect(srcW, srcH, boxW, boxH int) image.Rectangle {
	if srcW <= 0 || srcH <= 0 {
		return image.Rect(0, 0, 0, 0)
	}
	w, h := srcW, srcH
	if w > boxW || h > boxH {
		// Scale down by the tighter of the two ratios.
		if srcW*boxH > srcH*boxW {
			w = boxW
			h = srcH * boxW / srcW
		} else {
			h = boxH
			w = srcW * boxH / srcH
		}
	}
	x := (boxW - w) / 2
	y := (boxH - h) / 2
	return image.Rect(x, y, x+w, y+h)
}
