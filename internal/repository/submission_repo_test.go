package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSubmit/internal/db"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/errdefs"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/models"
	"github.com/parisxmas/OxiDB/OxiSubmit/oxidb/oxidbtest"
)

func newPool(t *testing.T) (*db.Pool, *oxidbtest.Server) {
	t.Helper()
	srv := oxidbtest.NewServer(t)
	pool, err := db.NewPool(srv.Host(), srv.Port(), 2, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool, srv
}

func TestSubmissionRepo_CreateAndFindAll(t *testing.T) {
	pool, srv := newPool(t)
	repo := NewSubmissionRepo(pool)
	ctx := context.Background()

	require.NoError(t, repo.EnsureIndexes(ctx))
	assert.Equal(t, []string{"createdAt"}, srv.Indexes(SubmissionsCollection))

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for _, name := range []string{"Ada", "Linus"} {
		id, err := repo.Create(ctx, &models.Submission{
			Name:         name,
			SocialHandle: "@" + name,
			Images:       []string{"uploads/" + name + ".png"},
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, id)
	}

	docs := srv.Documents(SubmissionsCollection)
	require.Len(t, docs, 2)
	assert.NotContains(t, docs[0], "id")

	subs, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "1", subs[0].ID)
	assert.Equal(t, "Ada", subs[0].Name)
	assert.Equal(t, "@Ada", subs[0].SocialHandle)
	assert.Equal(t, []string{"uploads/Ada.png"}, subs[0].Images)
	assert.True(t, now.Equal(subs[0].CreatedAt))
	assert.Equal(t, "2", subs[1].ID)
}

func TestSubmissionRepo_Count(t *testing.T) {
	pool, _ := newPool(t)
	repo := NewSubmissionRepo(pool)
	ctx := context.Background()

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, &models.Submission{Name: "x", SocialHandle: "@x", Images: []string{"a"}})
		require.NoError(t, err)
	}
	n, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSubmissionRepo_FindAllAfterTimedOutCreate(t *testing.T) {
	pool, srv := newPool(t)
	repo := NewSubmissionRepo(pool)

	srv.Delay("insert", 150*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	_, err := repo.Create(ctx, &models.Submission{Name: "Ada", SocialHandle: "@ada", Images: []string{"a"}})
	cancel()
	require.Error(t, err)
	srv.Delay("insert", 0)

	// every pooled client, including the one that timed out, answers its
	// own command
	for i := 0; i < pool.Size()*2; i++ {
		subs, err := repo.FindAll(context.Background())
		require.NoError(t, err)
		require.Len(t, subs, 1)
		assert.Equal(t, "Ada", subs[0].Name)
	}
}

func TestSubmissionRepo_FindAllEmpty(t *testing.T) {
	pool, _ := newPool(t)

	subs, err := NewSubmissionRepo(pool).FindAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, subs)
	assert.Empty(t, subs)
}

func TestSubmissionRepo_Errors(t *testing.T) {
	pool, srv := newPool(t)
	repo := NewSubmissionRepo(pool)
	ctx := context.Background()

	srv.Fail("insert", "disk full")
	_, err := repo.Create(ctx, &models.Submission{Name: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	srv.Fail("find", "io error")
	_, err = repo.FindAll(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "io error")
}

func TestSubmissionRepo_EnsureIndexesAlreadyExists(t *testing.T) {
	pool, srv := newPool(t)
	srv.Fail("create_collection", "collection already exists")

	require.NoError(t, NewSubmissionRepo(pool).EnsureIndexes(context.Background()))
}

func TestBlobRepo(t *testing.T) {
	pool, srv := newPool(t)
	repo := NewBlobRepo(pool, "images")
	ctx := context.Background()

	require.NoError(t, repo.EnsureBucket(ctx))
	require.NoError(t, repo.Put(ctx, "a.png", []byte("png-bytes"), "image/png"))
	assert.Equal(t, 1, srv.ObjectCount("images"))

	data, ct, err := repo.Get(ctx, "a.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
	assert.Equal(t, "image/png", ct)

	_, _, err = repo.Get(ctx, "missing.png")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errdefs.ErrNotFound))
}

func TestNormalizeID(t *testing.T) {
	doc := map[string]any{"_id": float64(42), "name": "x"}
	normalizeID(doc)
	assert.Equal(t, "42", doc["id"])
	assert.NotContains(t, doc, "_id")

	assert.Equal(t, "7", extractID(map[string]any{"id": float64(7)}))
	assert.Equal(t, "abc", extractID(map[string]any{"id": "abc"}))
	assert.Equal(t, "", extractID(map[string]any{}))
}
