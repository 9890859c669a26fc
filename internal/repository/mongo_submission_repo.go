package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/parisxmas/OxiDB/OxiSubmit/internal/models"
)

type mongoSubmission struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Name         string             `bson:"name"`
	SocialHandle string             `bson:"socialHandle"`
	Images       []string           `bson:"images"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

func (m mongoSubmission) toModel() models.Submission {
	images := m.Images
	if images == nil {
		images = []string{}
	}
	return models.Submission{
		ID:           m.ID.Hex(),
		Name:         m.Name,
		SocialHandle: m.SocialHandle,
		Images:       images,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}

// MongoSubmissionRepo stores submissions in a MongoDB collection.
type MongoSubmissionRepo struct {
	coll *mongo.Collection
}

func NewMongoSubmissionRepo(database *mongo.Database) *MongoSubmissionRepo {
	return &MongoSubmissionRepo{coll: database.Collection(SubmissionsCollection)}
}

func (r *MongoSubmissionRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: 1}},
	})
	return err
}

// Create inserts sub and returns the hex ObjectID MongoDB assigned.
func (r *MongoSubmissionRepo) Create(ctx context.Context, sub *models.Submission) (string, error) {
	doc := mongoSubmission{
		Name:         sub.Name,
		SocialHandle: sub.SocialHandle,
		Images:       sub.Images,
		CreatedAt:    sub.CreatedAt,
		UpdatedAt:    sub.UpdatedAt,
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return "", err
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("insert %s: unexpected id type %T", SubmissionsCollection, res.InsertedID)
	}
	return oid.Hex(), nil
}

// FindAll returns every submission in insertion order.
func (r *MongoSubmissionRepo) FindAll(ctx context.Context) ([]models.Submission, error) {
	cur, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	subs := make([]models.Submission, 0)
	for cur.Next(ctx) {
		var m mongoSubmission
		if err := cur.Decode(&m); err != nil {
			return nil, fmt.Errorf("decode submission: %w", err)
		}
		subs = append(subs, m.toModel())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return subs, nil
}

// Count returns the number of stored submissions.
func (r *MongoSubmissionRepo) Count(ctx context.Context) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
