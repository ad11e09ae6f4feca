package extractor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestPNG(t *testing.T, dir, name string, w, h int, fill color.Gray) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, fill)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestBasicExtractorExtractEXIFReportsDimensions(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPNG(t, dir, "a.png", 40, 20, color.Gray{Y: 128})

	ext := NewBasicExtractor()
	res, err := ext.ExtractEXIF(context.Background(), path)
	require.NoError(t, err)
	require.NotNil(t, res.Width)
	require.NotNil(t, res.Height)
	assert.Equal(t, 40, *res.Width)
	assert.Equal(t, 20, *res.Height)
}

func TestBasicExtractorContentHashIsStableAndSensitive(t *testing.T) {
	dir := t.TempDir()
	path1 := writeTestPNG(t, dir, "a.png", 8, 8, color.Gray{Y: 10})
	path2 := writeTestPNG(t, dir, "b.png", 8, 8, color.Gray{Y: 250})

	ext := NewBasicExtractor()
	h1, err := ext.ContentHash(context.Background(), path1)
	require.NoError(t, err)
	h1Again, err := ext.ContentHash(context.Background(), path1)
	require.NoError(t, err)
	h2, err := ext.ContentHash(context.Background(), path2)
	require.NoError(t, err)

	assert.Equal(t, h1, h1Again)
	assert.NotEqual(t, h1, h2)
}

func TestBasicExtractorPerceptualHashIsEightBytes(t *testing.T) {
	dir := t.TempDir()
	black := writeTestPNG(t, dir, "black.png", 16, 16, color.Gray{Y: 0})
	white := writeTestPNG(t, dir, "white.png", 16, 16, color.Gray{Y: 255})

	ext := NewBasicExtractor()
	hb, err := ext.PerceptualHash(context.Background(), black)
	require.NoError(t, err)
	hw, err := ext.PerceptualHash(context.Background(), white)
	require.NoError(t, err)

	assert.Len(t, hb, 8)
	assert.Len(t, hw, 8)
}

func TestBasicExtractorFaceDetectAndEmbedImageAreUnsupported(t *testing.T) {
	ext := NewBasicExtractor()
	_, err := ext.FaceDetect(context.Background(), "whatever.png")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupported))

	_, err = ext.EmbedImage(context.Background(), "whatever.png", "clip-vit-b32")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupported))
}
