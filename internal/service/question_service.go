package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/testora-app/testora-api/internal/models"
	"github.com/testora-app/testora-api/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
)

var ErrTopicNotFound = errors.New("topic not found")

// QuestionService handles question-bank maintenance. Level and subject are
// denormalized from the owning topic at creation time so selection queries
// stay flat.
type QuestionService struct {
	questions *repository.QuestionRepository
	topics    *repository.TopicRepository
}

func NewQuestionService(questions *repository.QuestionRepository, topics *repository.TopicRepository) *QuestionService {
	return &QuestionService{questions: questions, topics: topics}
}

func (s *QuestionService) CreateQuestion(ctx context.Context, question *models.Question) error {
	topic, err := s.topics.FindByID(ctx, question.TopicID)
	if err != nil || topic == nil {
		return ErrTopicNotFound
	}
	question.SubjectID = topic.SubjectID
	question.Level = topic.Level
	if err := s.questions.Create(ctx, question); err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}
	return nil
}

func (s *QuestionService) UpdateQuestion(ctx context.Context, id string, update bson.M) error {
	return s.questions.Update(ctx, id, update)
}

func (s *QuestionService) FlagQuestion(ctx context.Context, id string, flagged bool) error {
	return s.questions.Flag(ctx, id, flagged)
}

func (s *QuestionService) DeleteQuestion(ctx context.Context, id string) error {
	return s.questions.Delete(ctx, id)
}

func (s *QuestionService) GetQuestion(ctx context.Context, id string) (*models.Question, error) {
	return s.questions.FindByID(ctx, id)
}

func (s *QuestionService) ListByTopic(ctx context.Context, topicID string) ([]models.Question, error) {
	return s.questions.FindByTopicID(ctx, topicID)
}

func (s *QuestionService) CreateSubQuestion(ctx context.Context, sub *models.SubQuestion) error {
	parent, err := s.questions.FindByID(ctx, sub.QuestionID)
	if err != nil || parent == nil {
		return fmt.Errorf("parent question not found")
	}
	return s.questions.CreateSubQuestion(ctx, sub)
}

func (s *QuestionService) ListSubQuestions(ctx context.Context, questionID string) ([]models.SubQuestion, error) {
	return s.questions.FindSubQuestions(ctx, questionID)
}
