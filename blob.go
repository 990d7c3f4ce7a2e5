package melody

import (
	"context"
	"io"

	"gocloud.dev/blob"
)

// BlobProvider is a ResourceProvider reading from a blob bucket, so models
// can load from object stores through the portable blob API (file, memory,
// or cloud buckets, depending on the driver the caller opened).
type BlobProvider struct {
	bucket *blob.Bucket
}

// NewBlobProvider creates a provider over an opened bucket. The caller keeps
// ownership of the bucket and closes it after the load.
func NewBlobProvider(bucket *blob.Bucket) *BlobProvider {
	return &BlobProvider{bucket: bucket}
}

// Open implements ResourceProvider.
func (p *BlobProvider) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	canonical, err := canonicalResourcePath(name)
	if err != nil {
		return nil, err
	}
	return p.bucket.NewReader(ctx, canonical, nil)
}
