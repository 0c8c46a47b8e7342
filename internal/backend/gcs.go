package backend

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcsstorage "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// gcsBackend implements Backend for Google Cloud Storage. Conditional
// writes use object generations.
type gcsBackend struct {
	client     *gcsstorage.Client
	bucket     string
	prefix     string
	kmsKeyName string
	name       string
}

func newGCSBackend(cfg Config) (Backend, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("gcs backend requires a bucket")
	}

	client, err := gcsstorage.NewClient(context.Background())
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}

	return &gcsBackend{
		client:     client,
		bucket:     cfg.Bucket,
		prefix:     normalizePrefix(cfg.Prefix),
		kmsKeyName: cfg.KMSKeyName,
		name:       cfg.Name,
	}, nil
}

func (b *gcsBackend) Name() string {
	return b.name
}

func (b *gcsBackend) obj(key string) *gcsstorage.ObjectHandle {
	return b.client.Bucket(b.bucket).Object(b.prefix + key)
}

func (b *gcsBackend) Get(ctx context.Context, key string) (io.ReadCloser, Version, error) {
	r, err := b.obj(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcsstorage.ErrObjectNotExist) {
			return nil, Version{}, ErrNotFound
		}
		return nil, Version{}, fmt.Errorf("gcs NewReader %q: %w", key, err)
	}
	return r, Version{Generation: r.Attrs.Generation}, nil
}

func (b *gcsBackend) write(ctx context.Context, o *gcsstorage.ObjectHandle, key string, body io.Reader, opts PutOptions) error {
	w := o.NewWriter(ctx)
	if opts.ContentType != "" {
		w.ContentType = opts.ContentType
	}
	if b.kmsKeyName != "" {
		w.KMSKeyName = b.kmsKeyName
	}

	if _, err := io.Copy(w, body); err != nil {
		w.Close()
		return fmt.Errorf("gcs write %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		if isGCSPreconditionFailed(err) {
			return ErrPreconditionFailed
		}
		return fmt.Errorf("gcs close writer %q: %w", key, err)
	}
	return nil
}

func (b *gcsBackend) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) error {
	return b.write(ctx, b.obj(key), key, body, opts)
}

func (b *gcsBackend) ConditionalPut(ctx context.Context, key string, body io.Reader, cond WriteCondition, opts PutOptions) error {
	o := b.obj(key)
	switch {
	case cond.MustNotExist:
		o = o.If(gcsstorage.Conditions{DoesNotExist: true})
	case cond.Match.Generation != 0:
		o = o.If(gcsstorage.Conditions{GenerationMatch: cond.Match.Generation})
	default:
		return errEmptyCondition
	}
	return b.write(ctx, o, key, body, opts)
}

func (b *gcsBackend) Delete(ctx context.Context, key string) error {
	if err := b.obj(key).Delete(ctx); err != nil {
		if errors.Is(err, gcsstorage.ErrObjectNotExist) {
			return nil
		}
		return fmt.Errorf("gcs Delete %q: %w", key, err)
	}
	return nil
}

func isGCSPreconditionFailed(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == 412
}
