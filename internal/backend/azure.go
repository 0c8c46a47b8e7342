package backend

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
)

// azureBackend implements Backend for Azure Blob Storage. Conditional
// writes use ETag access conditions.
type azureBackend struct {
	client        *azblob.Client
	containerName string
	prefix        string
	name          string
}

func newAzureBackend(cfg Config) (Backend, error) {
	if cfg.StorageAccount == "" || cfg.ContainerName == "" {
		return nil, errors.New("azure backend requires storage_account and container_name")
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("creating Azure credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net", cfg.StorageAccount)
	client, err := azblob.NewClient(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("creating Azure blob client: %w", err)
	}

	return &azureBackend{
		client:        client,
		containerName: cfg.ContainerName,
		prefix:        normalizePrefix(cfg.Prefix),
		name:          cfg.Name,
	}, nil
}

func (b *azureBackend) Name() string {
	return b.name
}

func uploadOptions(opts PutOptions) *blockblob.UploadStreamOptions {
	uploadOpts := &blockblob.UploadStreamOptions{}
	if opts.ContentType != "" {
		ct := opts.ContentType
		uploadOpts.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: &ct}
	}
	return uploadOpts
}

func (b *azureBackend) Get(ctx context.Context, key string) (io.ReadCloser, Version, error) {
	resp, err := b.client.DownloadStream(ctx, b.containerName, b.prefix+key, nil)
	if err != nil {
		if isAzureNotFound(err) {
			return nil, Version{}, ErrNotFound
		}
		return nil, Version{}, fmt.Errorf("azure DownloadStream %q: %w", key, err)
	}

	var v Version
	if resp.ETag != nil {
		v.ETag = string(*resp.ETag)
	}
	return resp.Body, v, nil
}

func (b *azureBackend) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) error {
	if _, err := b.client.UploadStream(ctx, b.containerName, b.prefix+key, body, uploadOptions(opts)); err != nil {
		return fmt.Errorf("azure UploadStream %q: %w", key, err)
	}
	return nil
}

func (b *azureBackend) ConditionalPut(ctx context.Context, key string, body io.Reader, cond WriteCondition, opts PutOptions) error {
	uploadOpts := uploadOptions(opts)

	modified := &blob.ModifiedAccessConditions{}
	switch {
	case cond.MustNotExist:
		star := azcore.ETagAny
		modified.IfNoneMatch = &star
	case cond.Match.ETag != "":
		etag := azcore.ETag(cond.Match.ETag)
		modified.IfMatch = &etag
	default:
		return errEmptyCondition
	}
	uploadOpts.AccessConditions = &blob.AccessConditions{ModifiedAccessConditions: modified}

	if _, err := b.client.UploadStream(ctx, b.containerName, b.prefix+key, body, uploadOpts); err != nil {
		if isAzurePreconditionFailed(err) {
			return ErrPreconditionFailed
		}
		return fmt.Errorf("azure ConditionalPut %q: %w", key, err)
	}
	return nil
}

func (b *azureBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.client.DeleteBlob(ctx, b.containerName, b.prefix+key, nil); err != nil {
		if isAzureNotFound(err) {
			return nil
		}
		return fmt.Errorf("azure DeleteBlob %q: %w", key, err)
	}
	return nil
}

func isAzureNotFound(err error) bool {
	return bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound)
}

func isAzurePreconditionFailed(err error) bool {
	if bloberror.HasCode(err, bloberror.ConditionNotMet, bloberror.BlobAlreadyExists) {
		return true
	}
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && (respErr.StatusCode == 412 || respErr.StatusCode == 409)
}
