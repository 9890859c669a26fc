// Package storage persists uploaded images and hands back the reference
// recorded on the submission: a relative path for local disk, a URL for the
// remote backends.
package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/parisxmas/OxiDB/OxiSubmit/internal/errdefs"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/models"
)

// ImageStore stores one image and returns its reference.
type ImageStore interface {
	Store(ctx context.Context, img models.ImageUpload) (string, error)
	Backend() string
}

// StoreAll stores every image concurrently and returns the references in
// input order. The first failure cancels the remaining uploads and fails the
// whole call; images already stored are left in place.
func StoreAll(ctx context.Context, store ImageStore, images []models.ImageUpload) ([]string, error) {
	refs := make([]string, len(images))
	g, gctx := errgroup.WithContext(ctx)
	for i, img := range images {
		g.Go(func() error {
			ref, err := store.Store(gctx, img)
			if err != nil {
				return err
			}
			refs[i] = ref
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return refs, nil
}

func storageErr(op, name string, err error) error {
	return fmt.Errorf("%w: %s %q: %w", errdefs.ErrStorage, op, name, err)
}

// sanitizeName keeps the base name of an uploaded file, replacing anything
// outside letters, digits, dot, dash and underscore.
func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "image"
	}
	return out
}

// objectKey is the key used by the remote backends: a random prefix keeps
// names from colliding.
func objectKey(filename string) string {
	return uuid.NewString() + "_" + sanitizeName(filename)
}
