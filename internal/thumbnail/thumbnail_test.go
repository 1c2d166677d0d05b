package thumbnail

import (
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "page.png")
	dst := filepath.Join(dir, "thumbs", "page_thumb.jpg")
	writeTestPNG(t, src, 800, 1100)

	g := NewGenerator(200, 280, 80)
	if err := g.Generate(src, dst); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(dst)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := jpeg.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	// Output is always exactly the box size (padded background).
	if img.Bounds().Dx() != 200 || img.Bounds().Dy() != 280 {
		t.Errorf("bounds: got %v", img.Bounds())
	}
}

func TestGenerate_MissingSource(t *testing.T) {
	g := NewGenerator(200, 280, 80)
	if err := g.Generate(filepath.Join(t.TempDir(), "nope.png"), filepath.Join(t.TempDir(), "out.jpg")); err == nil {
		t.Error("missing source should error")
	}
}

func TestFitRect(t *testing.T) {
	tests := []struct {
		name         string
		srcW, srcH   int
		wantW, wantH int
	}{
		{"letter page scales to box width", 850, 1100, 200, 258},
		{"very tall strip scales to height", 100, 1000, 28, 280},
		{"wide image scales to width", 1000, 300, 200, 60},
		{"small image is not enlarged", 50, 80, 50, 80},
		{"exact fit unchanged", 200, 280, 200, 280},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := fitRect(tt.srcW, tt.srcH, 200, 280)
			if r.Dx() != tt.wantW || r.Dy() != tt.wantH {
				t.Errorf("got %dx%d, want %dx%d", r.Dx(), r.Dy(), tt.wantW, tt.wantH)
			}
			if r.Min.X < 0 || r.Min.Y < 0 || r.Max.X > 200 || r.Max.Y > 280 {
				t.Errorf("rect %v exceeds box", r)
			}
		})
	}
}
