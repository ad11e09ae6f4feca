package extractor

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/mediacatalog/internal/logging"
)

// ResilientExtractor wraps a FeatureExtractor with one transient-error retry
// and a circuit breaker shared across every file, so a slow or wedged
// extractor (a model server down, a disk going bad) degrades the scan and
// backfill pipelines instead of hanging them (§5 ExtractorTimeout pairs with
// this at the call site; this wrapper covers repeated failures across
// files).
type ResilientExtractor struct {
	inner FeatureExtractor
	cb    *gobreaker.CircuitBreaker[any]
}

// NewResilientExtractor wraps inner. name identifies this breaker's state
// transitions in logs, useful when a process wires more than one extractor.
func NewResilientExtractor(inner FeatureExtractor, name string) *ResilientExtractor {
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 10 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("extractor", name).Str("from", from.String()).Str("to", to.String()).
				Msg("feature extractor circuit breaker transition")
		},
	})
	return &ResilientExtractor{inner: inner, cb: cb}
}

// retry runs fn once, then once more after a short fixed backoff if the
// first attempt failed. A single retry is enough for the transient I/O
// blips (EBUSY, a NFS hiccup) this wrapper targets; anything that still
// fails on the second attempt is a real failure and is surfaced, counting
// toward the breaker.
func retry(ctx context.Context, fn func() error) error {
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(50*time.Millisecond), 1)
	return backoff.Retry(fn, backoff.WithContext(b, ctx))
}

func (r *ResilientExtractor) execute(ctx context.Context, fn func() (any, error)) (any, error) {
	return r.cb.Execute(func() (any, error) {
		var result any
		err := retry(ctx, func() error {
			var innerErr error
			result, innerErr = fn()
			return innerErr
		})
		return result, err
	})
}

func (r *ResilientExtractor) ExtractEXIF(ctx context.Context, path string) (EXIFResult, error) {
	v, err := r.execute(ctx, func() (any, error) { return r.inner.ExtractEXIF(ctx, path) })
	if err != nil {
		return EXIFResult{}, err
	}
	return v.(EXIFResult), nil
}

func (r *ResilientExtractor) PerceptualHash(ctx context.Context, path string) ([]byte, error) {
	v, err := r.execute(ctx, func() (any, error) { return r.inner.PerceptualHash(ctx, path) })
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (r *ResilientExtractor) ContentHash(ctx context.Context, path string) ([]byte, error) {
	v, err := r.execute(ctx, func() (any, error) { return r.inner.ContentHash(ctx, path) })
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (r *ResilientExtractor) FaceDetect(ctx context.Context, path string) ([]FaceDetection, error) {
	v, err := r.execute(ctx, func() (any, error) { return r.inner.FaceDetect(ctx, path) })
	if err != nil {
		return nil, err
	}
	return v.([]FaceDetection), nil
}

func (r *ResilientExtractor) EmbedImage(ctx context.Context, path, model string) (Embedding, error) {
	v, err := r.execute(ctx, func() (any, error) { return r.inner.EmbedImage(ctx, path, model) })
	if err != nil {
		return Embedding{}, err
	}
	return v.(Embedding), nil
}

// State returns the breaker's current state, for diagnostics.
func (r *ResilientExtractor) State() gobreaker.State { return r.cb.State() }
