package raster

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestValidateImageMIME(t *testing.T) {
	dir := t.TempDir()

	pngPath := filepath.Join(dir, "a.png")
	writePNG(t, pngPath)
	mime, err := ValidateImageMIME(pngPath)
	if err != nil {
		t.Fatal(err)
	}
	if mime != MIMEPNG {
		t.Errorf("got %s", mime)
	}

	tiffPath := filepath.Join(dir, "b.tiff")
	if err := os.WriteFile(tiffPath, []byte("II*\x00rest-of-tiff"), 0644); err != nil {
		t.Fatal(err)
	}
	mime, err = ValidateImageMIME(tiffPath)
	if err != nil {
		t.Fatal(err)
	}
	if mime != MIMETIFF {
		t.Errorf("got %s", mime)
	}

	txtPath := filepath.Join(dir, "c.txt")
	if err := os.WriteFile(txtPath, []byte("plain text, not an image"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ValidateImageMIME(txtPath); err == nil {
		t.Error("text file should be rejected")
	}

	pdfPath := filepath.Join(dir, "d.pdf")
	if err := os.WriteFile(pdfPath, []byte("%PDF-1.4\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ValidateImageMIME(pdfPath); err == nil {
		t.Error("PDF is not a direct image upload")
	}
}

func TestIsPDF(t *testing.T) {
	dir := t.TempDir()
	pdfPath := filepath.Join(dir, "x.pdf")
	if err := os.WriteFile(pdfPath, []byte("%PDF-1.7\nstuff"), 0644); err != nil {
		t.Fatal(err)
	}
	ok, err := IsPDF(pdfPath)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("should detect PDF")
	}

	pngPath := filepath.Join(dir, "x.png")
	writePNG(t, pngPath)
	ok, _ = IsPDF(pngPath)
	if ok {
		t.Error("PNG is not a PDF")
	}
}

func TestCollectPageImages_Ordering(t *testing.T) {
	dir := t.TempDir()
	// pdftoppm zero-pads according to total page count; mixed widths must
	// still sort numerically.
	for _, name := range []string{"page-10.png", "page-2.png", "page-1.png", "page-03.png", "other.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	pages, err := collectPageImages(dir, "page", "png")
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 4 {
		t.Fatalf("got %d pages, want 4", len(pages))
	}
	wantOrder := []string{"page-1.png", "page-2.png", "page-03.png", "page-10.png"}
	for i, want := range wantOrder {
		if filepath.Base(pages[i].ImagePath) != want {
			t.Errorf("position %d: got %s, want %s", i, filepath.Base(pages[i].ImagePath), want)
		}
		if pages[i].SourceIndex != i {
			t.Errorf("source index %d: got %d", i, pages[i].SourceIndex)
		}
	}
}

func TestEmbeddedText_CorruptPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 truncated garbage"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := EmbeddedText(path); err == nil {
		t.Error("corrupt PDF should fail to open")
	}
}
