package backend

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand"
	"time"
)

const (
	retryBaseDelay = 100 * time.Millisecond
	retryMaxDelay  = 30 * time.Second
)

// RetryBackend wraps another Backend and retries transient errors.
type RetryBackend struct {
	inner      Backend
	maxRetries int
	linear     bool
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewRetryBackend creates a Backend that retries transient errors up to
// maxRetries times. backoff is "linear" or "exponential"; anything else is
// treated as "exponential".
func NewRetryBackend(inner Backend, maxRetries int, backoff string) *RetryBackend {
	return &RetryBackend{
		inner:      inner,
		maxRetries: maxRetries,
		linear:     backoff == "linear",
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (r *RetryBackend) Name() string {
	return r.inner.Name()
}

func (r *RetryBackend) Get(ctx context.Context, key string) (io.ReadCloser, Version, error) {
	var (
		rc io.ReadCloser
		v  Version
	)
	err := r.do(ctx, func() error {
		var e error
		rc, v, e = r.inner.Get(ctx, key)
		return e
	})
	return rc, v, err
}

// Put rewinds body before every attempt when it is an io.Seeker. Bodies
// that cannot seek are only safe to retry if the failed attempt did not read
// from them.
func (r *RetryBackend) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) error {
	return r.do(ctx, func() error {
		if err := rewind(body); err != nil {
			return err
		}
		return r.inner.Put(ctx, key, body, opts)
	})
}

func (r *RetryBackend) ConditionalPut(ctx context.Context, key string, body io.Reader, cond WriteCondition, opts PutOptions) error {
	return r.do(ctx, func() error {
		if err := rewind(body); err != nil {
			return err
		}
		return r.inner.ConditionalPut(ctx, key, body, cond, opts)
	})
}

func (r *RetryBackend) Delete(ctx context.Context, key string) error {
	return r.do(ctx, func() error {
		return r.inner.Delete(ctx, key)
	})
}

func rewind(body io.Reader) error {
	if s, ok := body.(io.Seeker); ok {
		_, err := s.Seek(0, io.SeekStart)
		return err
	}
	return nil
}

// isTransient reports whether err should be retried.
func isTransient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrPreconditionFailed), errors.Is(err, errEmptyCondition):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

func (r *RetryBackend) do(ctx context.Context, op func() error) error {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		lastErr = op()
		if !isTransient(lastErr) {
			return lastErr
		}
		if attempt == r.maxRetries {
			break
		}
		if err := r.sleep(ctx, r.backoff(attempt)); err != nil {
			return err
		}
	}
	return lastErr
}

// backoff returns the delay before retry number attempt+1, with +/-25% jitter.
func (r *RetryBackend) backoff(attempt int) time.Duration {
	var delay time.Duration
	if r.linear {
		delay = retryBaseDelay * time.Duration(attempt+1)
	} else {
		delay = retryBaseDelay * time.Duration(math.Pow(2, float64(attempt)))
	}
	if delay > retryMaxDelay || delay <= 0 {
		delay = retryMaxDelay
	}

	jitter := time.Duration(rand.Int63n(int64(delay/2))) - delay/4
	return delay + jitter
}
