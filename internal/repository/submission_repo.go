package repository

import (
	"context"
	"fmt"

	"github.com/parisxmas/OxiDB/OxiSubmit/internal/db"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/models"
	"github.com/parisxmas/OxiDB/OxiSubmit/oxidb"
)

const SubmissionsCollection = "submissions"

// SubmissionRepo stores submissions in an OxiDB collection.
type SubmissionRepo struct {
	pool *db.Pool
}

func NewSubmissionRepo(pool *db.Pool) *SubmissionRepo {
	return &SubmissionRepo{pool: pool}
}

func (r *SubmissionRepo) EnsureIndexes(ctx context.Context) error {
	c := r.pool.Get()
	if err := c.CreateCollection(ctx, SubmissionsCollection); err != nil && !isAlreadyExists(err) {
		return err
	}
	if err := c.CreateIndex(ctx, SubmissionsCollection, "createdAt"); err != nil && !isAlreadyExists(err) {
		return err
	}
	return nil
}

// Create inserts sub and returns the id the database assigned.
func (r *SubmissionRepo) Create(ctx context.Context, sub *models.Submission) (string, error) {
	doc, err := toDoc(sub)
	if err != nil {
		return "", err
	}
	result, err := r.pool.Get().Insert(ctx, SubmissionsCollection, doc)
	if err != nil {
		return "", err
	}
	id := extractID(result)
	if id == "" {
		return "", fmt.Errorf("insert %s: response carries no id", SubmissionsCollection)
	}
	return id, nil
}

// FindAll returns every submission in insertion order.
func (r *SubmissionRepo) FindAll(ctx context.Context) ([]models.Submission, error) {
	docs, err := r.pool.Get().Find(ctx, SubmissionsCollection, map[string]any{}, &oxidb.FindOptions{
		Sort: map[string]any{"_id": 1},
	})
	if err != nil {
		return nil, err
	}

	subs := make([]models.Submission, 0, len(docs))
	for _, d := range docs {
		var s models.Submission
		if err := fromDoc(d, &s); err != nil {
			return nil, fmt.Errorf("decode submission: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, nil
}

// Count returns the number of stored submissions.
func (r *SubmissionRepo) Count(ctx context.Context) (int, error) {
	return r.pool.Get().Count(ctx, SubmissionsCollection, map[string]any{})
}
