package openai

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// renderToImages converts an uploaded document to JPEG page images. PDFs
// are rasterized page by page with mupdf; images pass through as a single
// page.
func renderToImages(content []byte, filename string) ([][]byte, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return renderPDF(content)
	case ".jpg", ".jpeg":
		return [][]byte{content}, nil
	case ".png":
		return renderPNG(content)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}
}

// renderPNG re-encodes a PNG as JPEG so every page image shares one format
func renderPNG(content []byte) ([][]byte, error) {
	img, err := png.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to decode PNG: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return [][]byte{buf.Bytes()}, nil
}

func renderPDF(content []byte) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var images [][]byte
	for pageNum := 0; pageNum < doc.NumPage(); pageNum++ {
		img, err := doc.Image(pageNum)
		if err != nil {
			continue
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
			continue
		}
		images = append(images, buf.Bytes())
	}

	if len(images) == 0 {
		return nil, fmt.Errorf("no pages rendered from PDF")
	}
	return images, nil
}
