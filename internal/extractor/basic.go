package extractor

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
)

// ErrUnsupported is returned by BasicExtractor methods that need a real
// vision model this package deliberately does not ship (face detection,
// embeddings — §1 Non-goals).
var ErrUnsupported = errors.New("extractor: not supported by the basic extractor")

// BasicExtractor is a minimal, dependency-free FeatureExtractor built on the
// standard library's image codecs. It answers everything the catalog core
// can compute from pixels and file bytes alone (dimensions, content hash, a
// coarse average-hash perceptual fingerprint) and returns ErrUnsupported for
// the two operations that need an actual model (face detection, semantic
// embeddings), which callers are expected to supply their own implementation
// for (§6 "concrete implementations live outside this module").
type BasicExtractor struct{}

// NewBasicExtractor returns a ready-to-use BasicExtractor.
func NewBasicExtractor() *BasicExtractor { return &BasicExtractor{} }

// ExtractEXIF decodes just enough of the file to report its pixel
// dimensions. Date/GPS fields are left nil: reading real EXIF tags needs a
// dedicated parser this package does not carry.
func (BasicExtractor) ExtractEXIF(ctx context.Context, path string) (EXIFResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return EXIFResult{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return EXIFResult{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	w, h := cfg.Width, cfg.Height
	return EXIFResult{Width: &w, Height: &h}, nil
}

// PerceptualHash computes a 64-bit average hash: decode, downscale to 8x8
// grayscale, and set one bit per pixel according to whether it is at or
// above the image's mean brightness. Near-duplicate detection (§4.5) compares these
// with Hamming distance, which only works when every hash this method
// produces is this exact width.
func (BasicExtractor) PerceptualHash(ctx context.Context, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	const side = 8
	bounds := img.Bounds()
	var gray [side * side]float64
	var sum float64
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			sx := bounds.Min.X + x*bounds.Dx()/side
			sy := bounds.Min.Y + y*bounds.Dy()/side
			r, g, b, _ := img.At(sx, sy).RGBA()
			lum := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 65535
			gray[y*side+x] = lum
			sum += lum
		}
	}
	mean := sum / float64(side*side)

	hash := make([]byte, side)
	for i, lum := range gray {
		if lum >= mean {
			hash[i/8] |= 1 << uint(7-i%8)
		}
	}
	return hash, nil
}

// ContentHash returns the SHA-256 digest of the file's raw bytes, the exact
// byte-identity check the dedup pipeline runs before falling back to
// perceptual hashing (§4.5).
func (BasicExtractor) ContentHash(ctx context.Context, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("hash %s: %w", path, err)
	}
	return h.Sum(nil), nil
}

// FaceDetect always returns ErrUnsupported; face detection needs a real
// model (§1 Non-goals).
func (BasicExtractor) FaceDetect(ctx context.Context, path string) ([]FaceDetection, error) {
	return nil, ErrUnsupported
}

// EmbedImage always returns ErrUnsupported; semantic embeddings need a real
// model (§1 Non-goals).
func (BasicExtractor) EmbedImage(ctx context.Context, path, model string) (Embedding, error) {
	return Embedding{}, ErrUnsupported
}
