package repository

import (
	"context"

	"github.com/testora-app/testora-api/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type TopicRepository struct {
	Col *mongo.Collection
}

func NewTopicRepository(db *mongo.Database) *TopicRepository {
	return &TopicRepository{Col: db.Collection("topics")}
}

func (r *TopicRepository) FindByID(ctx context.Context, id string) (*models.Topic, error) {
	var topic models.Topic
	err := r.Col.FindOne(ctx, bson.M{"_id": id}).Decode(&topic)
	if err != nil {
		return nil, err
	}
	return &topic, nil
}

func (r *TopicRepository) Create(ctx context.Context, topic *models.Topic) error {
	if topic.ID == "" {
		topic.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.Col.InsertOne(ctx, topic)
	return err
}

func (r *TopicRepository) FindBySubject(ctx context.Context, subjectID string) ([]models.Topic, error) {
	cur, err := r.Col.Find(ctx, bson.M{"subject_id": subjectID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var topics []models.Topic
	for cur.Next(ctx) {
		var t models.Topic
		if err := cur.Decode(&t); err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, nil
}
