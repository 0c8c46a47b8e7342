package backend

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// s3Backend implements Backend for Amazon S3. Conditional writes use the
// If-Match / If-None-Match headers.
type s3Backend struct {
	client   *s3.Client
	bucket   string
	prefix   string
	kmsKeyID string
	name     string
}

func newS3Backend(cfg Config) (Backend, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 backend requires a bucket")
	}

	var optFns []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), optFns...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &s3Backend{
		client:   s3.NewFromConfig(awsCfg),
		bucket:   cfg.Bucket,
		prefix:   normalizePrefix(cfg.Prefix),
		kmsKeyID: cfg.KMSKeyID,
		name:     cfg.Name,
	}, nil
}

func (b *s3Backend) Name() string {
	return b.name
}

func (b *s3Backend) putInput(key string, body io.Reader, opts PutOptions) *s3.PutObjectInput {
	input := &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.prefix + key),
		Body:   body,
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if b.kmsKeyID != "" {
		input.ServerSideEncryption = types.ServerSideEncryptionAwsKms
		input.SSEKMSKeyId = aws.String(b.kmsKeyID)
	}
	return input
}

func (b *s3Backend) Get(ctx context.Context, key string) (io.ReadCloser, Version, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.prefix + key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, Version{}, ErrNotFound
		}
		return nil, Version{}, fmt.Errorf("s3 GetObject %q: %w", key, err)
	}

	return out.Body, Version{ETag: aws.ToString(out.ETag)}, nil
}

func (b *s3Backend) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) error {
	if _, err := b.client.PutObject(ctx, b.putInput(key, body, opts)); err != nil {
		return fmt.Errorf("s3 PutObject %q: %w", key, err)
	}
	return nil
}

func (b *s3Backend) ConditionalPut(ctx context.Context, key string, body io.Reader, cond WriteCondition, opts PutOptions) error {
	input := b.putInput(key, body, opts)

	switch {
	case cond.MustNotExist:
		input.IfNoneMatch = aws.String("*")
	case cond.Match.ETag != "":
		input.IfMatch = aws.String(cond.Match.ETag)
	default:
		return errEmptyCondition
	}

	if _, err := b.client.PutObject(ctx, input); err != nil {
		if isS3PreconditionFailed(err) {
			return ErrPreconditionFailed
		}
		return fmt.Errorf("s3 ConditionalPut %q: %w", key, err)
	}
	return nil
}

func (b *s3Backend) Delete(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.prefix + key),
	})
	if err != nil {
		return fmt.Errorf("s3 DeleteObject %q: %w", key, err)
	}
	return nil
}

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var respErr interface{ HTTPStatusCode() int }
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404
}

// isS3PreconditionFailed covers 412 (If-Match mismatch) and 409 (a
// concurrent conditional write won the race).
func isS3PreconditionFailed(err error) bool {
	var respErr interface{ HTTPStatusCode() int }
	if !errors.As(err, &respErr) {
		return false
	}
	code := respErr.HTTPStatusCode()
	return code == 412 || code == 409
}
