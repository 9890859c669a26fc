package repository

import (
	"context"
	"fmt"

	"github.com/parisxmas/OxiDB/OxiSubmit/internal/db"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/errdefs"
)

// BlobRepo reads and writes objects in an OxiDB blob bucket.
type BlobRepo struct {
	pool   *db.Pool
	bucket string
}

func NewBlobRepo(pool *db.Pool, bucket string) *BlobRepo {
	return &BlobRepo{pool: pool, bucket: bucket}
}

func (r *BlobRepo) Bucket() string {
	return r.bucket
}

func (r *BlobRepo) EnsureBucket(ctx context.Context) error {
	if err := r.pool.Get().CreateBucket(ctx, r.bucket); err != nil && !isAlreadyExists(err) {
		return err
	}
	return nil
}

func (r *BlobRepo) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := r.pool.Get().PutObject(ctx, r.bucket, key, data, contentType)
	return err
}

// Get returns the object bytes and their content type. A missing object
// yields an error wrapping errdefs.ErrNotFound.
func (r *BlobRepo) Get(ctx context.Context, key string) ([]byte, string, error) {
	data, meta, err := r.pool.Get().GetObject(ctx, r.bucket, key)
	if err != nil {
		if isNotFound(err) {
			return nil, "", fmt.Errorf("blob %q: %w", key, errdefs.ErrNotFound)
		}
		return nil, "", err
	}
	contentType, _ := meta["content_type"].(string)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return data, contentType, nil
}
