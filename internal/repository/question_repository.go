package repository

import (
	"context"

	"github.com/testora-app/testora-api/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type QuestionRepository struct {
	Col    *mongo.Collection
	SubCol *mongo.Collection
}

func NewQuestionRepository(db *mongo.Database) *QuestionRepository {
	return &QuestionRepository{
		Col:    db.Collection("questions"),
		SubCol: db.Collection("sub_questions"),
	}
}

// activeFilter matches questions that may be delivered: not soft-deleted and
// not flagged.
func activeFilter(extra bson.M) bson.M {
	filter := bson.M{
		"status":  bson.M{"$ne": models.QuestionStatusDeleted},
		"flagged": false,
	}
	for k, v := range extra {
		filter[k] = v
	}
	return filter
}

func (r *QuestionRepository) FindByID(ctx context.Context, id string) (*models.Question, error) {
	var question models.Question
	err := r.Col.FindOne(ctx, bson.M{"_id": id}).Decode(&question)
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *QuestionRepository) Create(ctx context.Context, question *models.Question) error {
	if question.ID == "" {
		question.ID = primitive.NewObjectID().Hex()
	}
	question.Status = models.QuestionStatusActive
	_, err := r.Col.InsertOne(ctx, question)
	return err
}

func (r *QuestionRepository) Update(ctx context.Context, id string, update bson.M) error {
	_, err := r.Col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": update})
	return err
}

func (r *QuestionRepository) Flag(ctx context.Context, id string, flagged bool) error {
	_, err := r.Col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"flagged": flagged}})
	return err
}

// Delete soft-deletes: delivered snapshots keep their copy, the bank stops
// serving the question.
func (r *QuestionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.Col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": models.QuestionStatusDeleted}})
	return err
}

func (r *QuestionRepository) FindByTopicID(ctx context.Context, topicID string) ([]models.Question, error) {
	return r.findAll(ctx, bson.M{"topic_id": topicID})
}

func (r *QuestionRepository) FindActiveBySubjectLevel(ctx context.Context, subjectID string, level int, excludeIDs []string) ([]models.Question, error) {
	filter := activeFilter(bson.M{"subject_id": subjectID, "level": level})
	if len(excludeIDs) > 0 {
		filter["_id"] = bson.M{"$nin": excludeIDs}
	}
	return r.findAll(ctx, filter)
}

func (r *QuestionRepository) FindActiveByTopic(ctx context.Context, topicID string, excludeIDs []string) ([]models.Question, error) {
	filter := activeFilter(bson.M{"topic_id": topicID})
	if len(excludeIDs) > 0 {
		filter["_id"] = bson.M{"$nin": excludeIDs}
	}
	return r.findAll(ctx, filter)
}

func (r *QuestionRepository) FindActiveBySubjectMaxLevel(ctx context.Context, subjectID string, maxLevel int, excludeIDs []string) ([]models.Question, error) {
	filter := activeFilter(bson.M{"subject_id": subjectID, "level": bson.M{"$lte": maxLevel}})
	if len(excludeIDs) > 0 {
		filter["_id"] = bson.M{"$nin": excludeIDs}
	}
	return r.findAll(ctx, filter)
}

func (r *QuestionRepository) findAll(ctx context.Context, filter bson.M) ([]models.Question, error) {
	cur, err := r.Col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var questions []models.Question
	for cur.Next(ctx) {
		var q models.Question
		if err := cur.Decode(&q); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (r *QuestionRepository) CreateSubQuestion(ctx context.Context, sub *models.SubQuestion) error {
	if sub.ID == "" {
		sub.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.SubCol.InsertOne(ctx, sub)
	return err
}

func (r *QuestionRepository) FindSubQuestions(ctx context.Context, questionID string) ([]models.SubQuestion, error) {
	cur, err := r.SubCol.Find(ctx, bson.M{"question_id": questionID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var subs []models.SubQuestion
	for cur.Next(ctx) {
		var s models.SubQuestion
		if err := cur.Decode(&s); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, nil
}
