package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/parisxmas/OxiDB/OxiSubmit/internal/models"
)

// DiskStore writes images into a local directory served under /uploads.
type DiskStore struct {
	dir    string
	prefix string
	now    func() time.Time
}

// NewDiskStore creates dir if needed so it exists before the first write.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %q: %w", dir, err)
	}
	return &DiskStore{dir: dir, prefix: "uploads", now: time.Now}, nil
}

func (s *DiskStore) Backend() string { return "disk" }

func (s *DiskStore) Dir() string { return s.dir }

// Store writes img as <unix-millis>-<random>-<name> and returns
// "uploads/<file>".
func (s *DiskStore) Store(ctx context.Context, img models.ImageUpload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", storageErr("write", img.Filename, err)
	}

	name := fmt.Sprintf("%d-%s-%s", s.now().UnixMilli(), uuid.NewString()[:8], sanitizeName(img.Filename))
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", storageErr("write", img.Filename, err)
	}
	if _, err := f.Write(img.Data); err != nil {
		f.Close()
		return "", storageErr("write", img.Filename, err)
	}
	if err := f.Close(); err != nil {
		return "", storageErr("write", img.Filename, err)
	}
	return path.Join(s.prefix, name), nil
}
