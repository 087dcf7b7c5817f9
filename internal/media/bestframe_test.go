package media

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writeTestPNG(t *testing.T, path string, checkerboard bool) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			if checkerboard && (x+y)%2 == 0 {
				img.Set(x, y, color.White)
			} else if checkerboard {
				img.Set(x, y, color.Black)
			} else {
				img.Set(x, y, color.Gray{Y: 128})
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create test png: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
}

func TestSharpnessScoreDistinguishesFlatFromTextured(t *testing.T) {
	dir := t.TempDir()
	flatPath := filepath.Join(dir, "flat.png")
	texturedPath := filepath.Join(dir, "textured.png")

	writeTestPNG(t, flatPath, false)
	writeTestPNG(t, texturedPath, true)

	flatScore, err := sharpnessScore(flatPath)
	if err != nil {
		t.Fatalf("sharpnessScore(flat): %v", err)
	}
	texturedScore, err := sharpnessScore(texturedPath)
	if err != nil {
		t.Fatalf("sharpnessScore(textured): %v", err)
	}

	if texturedScore <= flatScore {
		t.Errorf("expected checkerboard sharpness (%v) > flat sharpness (%v)", texturedScore, flatScore)
	}
}
