package client

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// StorageClient reads learner recordings from one Google Cloud Storage bucket.
type StorageClient struct {
	client     *storage.Client
	bucketName string
	maxBytes   int64
}

// NewStorageClient creates a new storage client. credentialsJSON may be nil to
// use application default credentials.
func NewStorageClient(ctx context.Context, credentialsJSON []byte, bucketName string, maxBytes int64) (*StorageClient, error) {
	var opts []option.ClientOption
	if len(credentialsJSON) > 0 {
		opts = append(opts, option.WithCredentialsJSON(credentialsJSON))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &StorageClient{
		client:     client,
		bucketName: bucketName,
		maxBytes:   maxBytes,
	}, nil
}

// Close closes the client.
func (c *StorageClient) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// BucketName returns the bucket this client reads from.
func (c *StorageClient) BucketName() string { return c.bucketName }

// Download reads an object from the configured bucket.
func (c *StorageClient) Download(ctx context.Context, objectName string) ([]byte, error) {
	r, err := c.client.Bucket(c.bucketName).Object(objectName).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("gs://%s/%s: %w", c.bucketName, objectName, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to open gcs object: %w", err)
	}
	defer r.Close()

	return readLimited(r, c.maxBytes)
}
