package extractor

import (
	"context"
	"errors"
	"testing"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingExtractor struct {
	calls   int
	failing bool
}

func (c *countingExtractor) ExtractEXIF(ctx context.Context, path string) (EXIFResult, error) {
	c.calls++
	if c.failing {
		return EXIFResult{}, errors.New("boom")
	}
	w, h := 10, 20
	return EXIFResult{Width: &w, Height: &h}, nil
}

func (c *countingExtractor) PerceptualHash(ctx context.Context, path string) ([]byte, error) {
	return []byte{1, 2, 3, 4, 5, 6, 7, 8}, nil
}

func (c *countingExtractor) ContentHash(ctx context.Context, path string) ([]byte, error) {
	return []byte{9, 9}, nil
}

func (c *countingExtractor) FaceDetect(ctx context.Context, path string) ([]FaceDetection, error) {
	return nil, ErrUnsupported
}

func (c *countingExtractor) EmbedImage(ctx context.Context, path, model string) (Embedding, error) {
	return Embedding{}, ErrUnsupported
}

func TestResilientExtractorPassesThroughOnSuccess(t *testing.T) {
	inner := &countingExtractor{}
	r := NewResilientExtractor(inner, "test")

	res, err := r.ExtractEXIF(context.Background(), "x.jpg")
	require.NoError(t, err)
	assert.Equal(t, 10, *res.Width)
	assert.Equal(t, gobreaker.StateClosed, r.State())
}

func TestResilientExtractorRetriesOnceBeforeFailing(t *testing.T) {
	inner := &countingExtractor{failing: true}
	r := NewResilientExtractor(inner, "test-retry")

	_, err := r.ExtractEXIF(context.Background(), "x.jpg")
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls) // one attempt + one retry
}

func TestResilientExtractorTripsBreakerAfterRepeatedFailures(t *testing.T) {
	inner := &countingExtractor{failing: true}
	r := NewResilientExtractor(inner, "test-trip")

	for i := 0; i < 11; i++ {
		_, _ = r.ExtractEXIF(context.Background(), "x.jpg")
	}
	assert.Equal(t, gobreaker.StateOpen, r.State())

	_, err := r.ExtractEXIF(context.Background(), "x.jpg")
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
}
