package scoring

import (
	"context"

	"github.com/testora-app/testora-api/internal/logger"
	"github.com/testora-app/testora-api/internal/models"
)

// QuestionSource resolves the authoritative question for a submitted answer.
type QuestionSource interface {
	FindByID(ctx context.Context, id string) (*models.Question, error)
}

// SubmittedQuestion is one answer of a submitted test.
type SubmittedQuestion struct {
	ID            string `json:"id" binding:"required"`
	StudentAnswer string `json:"student_answer"`
}

// MarkResult carries the outcome of marking a submitted question set.
// ScoreAcquired counts correct answers; PointsAcquired sums point values.
// The two are distinct fields on the test.
type MarkResult struct {
	Questions      []models.TestQuestion `json:"questions"`
	PointsAcquired float64               `json:"points_acquired"`
	ScoreAcquired  int                   `json:"score_acquired"`
}

// Engine marks submitted answers against the authoritative question bank.
type Engine struct {
	questions QuestionSource
	log       *logger.Logger
}

func NewEngine(questions QuestionSource, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{questions: questions, log: log}
}

// MarkTest resolves each submitted question, compares the student answer
// against the stored correct answer (exact string match) and aggregates
// points and score. A question that no longer exists in the bank contributes
// nothing and is skipped rather than failing the whole submission. Wrong
// answers earn zero unless deductPoints is explicitly enabled, in which case
// the question's point value is subtracted.
func (e *Engine) MarkTest(ctx context.Context, submitted []SubmittedQuestion, deductPoints bool) (*MarkResult, error) {
	result := &MarkResult{Questions: make([]models.TestQuestion, 0, len(submitted))}

	for _, sub := range submitted {
		question, err := e.questions.FindByID(ctx, sub.ID)
		if err != nil || question == nil {
			e.log.Warn("submitted question missing from bank, skipping", "question_id", sub.ID, "error", err)
			continue
		}

		pointValue := question.PointValue()
		marked := models.TestQuestion{
			QuestionID:      question.ID,
			TopicID:         question.TopicID,
			Level:           question.Level,
			Content:         question.Content,
			PossibleAnswers: question.PossibleAnswers,
			CorrectAnswer:   question.CorrectAnswer,
			StudentAnswer:   sub.StudentAnswer,
			Points:          pointValue,
		}

		if sub.StudentAnswer == question.CorrectAnswer {
			result.PointsAcquired += pointValue
			result.ScoreAcquired++
		} else if deductPoints {
			result.PointsAcquired -= pointValue
		}

		result.Questions = append(result.Questions, marked)
	}

	return result, nil
}
