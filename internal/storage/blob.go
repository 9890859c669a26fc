package storage

import (
	"context"
	"net/url"

	"github.com/parisxmas/OxiDB/OxiSubmit/internal/models"
)

// BlobPutter writes one object into an OxiDB blob bucket.
type BlobPutter interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// BlobStore keeps images in an OxiDB bucket; references point at the
// server's /blobs/{key} route.
type BlobStore struct {
	blobs BlobPutter
}

func NewBlobStore(blobs BlobPutter) *BlobStore {
	return &BlobStore{blobs: blobs}
}

func (s *BlobStore) Backend() string { return "blob" }

func (s *BlobStore) Store(ctx context.Context, img models.ImageUpload) (string, error) {
	key := objectKey(img.Filename)
	if err := s.blobs.Put(ctx, key, img.Data, img.DetectedContentType()); err != nil {
		return "", storageErr("put", img.Filename, err)
	}
	return "/blobs/" + url.PathEscape(key), nil
}
