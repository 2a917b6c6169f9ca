package repository

import (
	"context"
	"time"

	"github.com/testora-app/testora-api/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StudentRepository covers the per-student progression state: subject levels,
// the levelling audit log and per-topic scores.
type StudentRepository struct {
	Levels      *mongo.Collection
	History     *mongo.Collection
	TopicScores *mongo.Collection
}

func NewStudentRepository(db *mongo.Database) *StudentRepository {
	return &StudentRepository{
		Levels:      db.Collection("student_subject_levels"),
		History:     db.Collection("student_levelling_history"),
		TopicScores: db.Collection("student_topic_scores"),
	}
}

// GetOrCreateSubjectLevel lazily initializes the (student, subject) row at
// level 1 / 0 points. The upsert makes concurrent first calls idempotent:
// both resolve to the same row, backed by the unique index on
// (student_id, subject_id).
func (r *StudentRepository) GetOrCreateSubjectLevel(ctx context.Context, studentID, subjectID string) (*models.StudentSubjectLevel, error) {
	filter := bson.M{"student_id": studentID, "subject_id": subjectID}
	update := bson.M{"$setOnInsert": bson.M{
		"_id":        primitive.NewObjectID().Hex(),
		"student_id": studentID,
		"subject_id": subjectID,
		"level":      models.MinLevel,
		"points":     0.0,
		"updated_at": time.Now(),
	}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var ssl models.StudentSubjectLevel
	if err := r.Levels.FindOneAndUpdate(ctx, filter, update, opts).Decode(&ssl); err != nil {
		return nil, err
	}
	return &ssl, nil
}

// AccumulatePoints atomically adds delta to the row's cumulative points and
// returns the post-increment row. Concurrent submissions for the same
// (student, subject) both land; neither increment is lost.
func (r *StudentRepository) AccumulatePoints(ctx context.Context, studentID, subjectID string, delta float64) (*models.StudentSubjectLevel, error) {
	filter := bson.M{"student_id": studentID, "subject_id": subjectID}
	update := bson.M{
		"$inc": bson.M{"points": delta},
		"$set": bson.M{"updated_at": time.Now()},
		"$setOnInsert": bson.M{
			"_id":   primitive.NewObjectID().Hex(),
			"level": models.MinLevel,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var ssl models.StudentSubjectLevel
	if err := r.Levels.FindOneAndUpdate(ctx, filter, update, opts).Decode(&ssl); err != nil {
		return nil, err
	}
	return &ssl, nil
}

// SetSubjectLevel persists a recomputed level. Points are owned by
// AccumulatePoints and never written here.
func (r *StudentRepository) SetSubjectLevel(ctx context.Context, ssl *models.StudentSubjectLevel) error {
	_, err := r.Levels.UpdateOne(ctx,
		bson.M{"_id": ssl.ID},
		bson.M{"$set": bson.M{
			"level":      ssl.Level,
			"updated_at": time.Now(),
		}},
	)
	return err
}

func (r *StudentRepository) AppendLevellingHistory(ctx context.Context, entry *models.StudentLevellingHistory) error {
	if entry.ID == "" {
		entry.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.History.InsertOne(ctx, entry)
	return err
}

func (r *StudentRepository) FindLevellingHistory(ctx context.Context, studentID, subjectID string) ([]models.StudentLevellingHistory, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.History.Find(ctx, bson.M{"student_id": studentID, "subject_id": subjectID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var entries []models.StudentLevellingHistory
	for cur.Next(ctx) {
		var e models.StudentLevellingHistory
		if err := cur.Decode(&e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// UpsertTopicScore writes one topic's score for a test. The filter carries
// the full unique key, so re-marking retries are idempotent.
func (r *StudentRepository) UpsertTopicScore(ctx context.Context, ts *models.StudentTopicScore) error {
	filter := bson.M{
		"student_id": ts.StudentID,
		"subject_id": ts.SubjectID,
		"test_id":    ts.TestID,
		"topic_id":   ts.TopicID,
	}
	update := bson.M{
		"$set":         bson.M{"score": ts.Score},
		"$setOnInsert": bson.M{"_id": primitive.NewObjectID().Hex(), "created_at": time.Now()},
	}
	_, err := r.TopicScores.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (r *StudentRepository) FindTopicScores(ctx context.Context, studentID, testID string) ([]models.StudentTopicScore, error) {
	cur, err := r.TopicScores.Find(ctx, bson.M{"student_id": studentID, "test_id": testID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var scores []models.StudentTopicScore
	for cur.Next(ctx) {
		var s models.StudentTopicScore
		if err := cur.Decode(&s); err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, nil
}

// EnsureIndexes creates the unique constraints the progression flow relies
// on. Called once at boot.
func (r *StudentRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.Levels.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "student_id", Value: 1}, {Key: "subject_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = r.TopicScores.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "student_id", Value: 1},
			{Key: "subject_id", Value: 1},
			{Key: "test_id", Value: 1},
			{Key: "topic_id", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	return err
}
