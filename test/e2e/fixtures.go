package e2e

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
)

// MinimalPNG returns a small valid PNG usable as a cover image.
func MinimalPNG() ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 0x20, G: 0x30, B: uint8(0x40 * x), A: 0xff})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CoverBase64 returns MinimalPNG base64-encoded for a generation request.
func CoverBase64() (string, error) {
	data, err := MinimalPNG()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// WriteExports writes each document as <name>.html under dir and returns the paths.
func WriteExports(dir string, docs []*Document) ([]string, error) {
	paths := make([]string, 0, len(docs))
	for _, d := range docs {
		p := filepath.Join(dir, d.Name+".html")
		if err := os.WriteFile(p, []byte(d.HTML()), 0o644); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}
