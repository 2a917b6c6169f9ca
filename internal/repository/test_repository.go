package repository

import (
	"context"

	"github.com/testora-app/testora-api/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TestRepository struct {
	Col *mongo.Collection
}

func NewTestRepository(db *mongo.Database) *TestRepository {
	return &TestRepository{Col: db.Collection("tests")}
}

func (r *TestRepository) Create(ctx context.Context, test *models.Test) error {
	if test.ID == "" {
		test.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.Col.InsertOne(ctx, test)
	return err
}

func (r *TestRepository) FindByID(ctx context.Context, id string) (*models.Test, error) {
	var test models.Test
	err := r.Col.FindOne(ctx, bson.M{"_id": id}).Decode(&test)
	if err != nil {
		return nil, err
	}
	return &test, nil
}

// FindFinished returns the student's completed tests for a subject, newest
// first, up to limit.
func (r *TestRepository) FindFinished(ctx context.Context, studentID, subjectID string, limit int64) ([]models.Test, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "finished_on", Value: -1}}).
		SetLimit(limit)
	cur, err := r.Col.Find(ctx, bson.M{
		"student_id":   studentID,
		"subject_id":   subjectID,
		"is_completed": true,
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var tests []models.Test
	for cur.Next(ctx) {
		var t models.Test
		if err := cur.Decode(&t); err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, nil
}

func (r *TestRepository) CountFinished(ctx context.Context, studentID, subjectID string) (int64, error) {
	return r.Col.CountDocuments(ctx, bson.M{
		"student_id":   studentID,
		"subject_id":   subjectID,
		"is_completed": true,
	})
}

// CompleteMark writes the marking outcome in one atomic update so a
// concurrent reader never observes a partially marked test. The filter on
// is_completed guards against double-marking.
func (r *TestRepository) CompleteMark(ctx context.Context, test *models.Test) error {
	res, err := r.Col.UpdateOne(ctx,
		bson.M{"_id": test.ID, "is_completed": false},
		bson.M{"$set": bson.M{
			"questions":       test.Questions,
			"points_acquired": test.PointsAcquired,
			"score_acquired":  test.ScoreAcquired,
			"finished_on":     test.FinishedOn,
			"is_completed":    true,
			"metadata":        test.Metadata,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
