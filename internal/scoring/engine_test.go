package scoring

import (
	"context"
	"math"
	"testing"

	"github.com/testora-app/testora-api/internal/models"
)

type stubQuestionSource struct {
	questions map[string]*models.Question
}

func (s *stubQuestionSource) FindByID(ctx context.Context, id string) (*models.Question, error) {
	return s.questions[id], nil
}

func newBank() *stubQuestionSource {
	return &stubQuestionSource{questions: map[string]*models.Question{
		"q1": {ID: "q1", TopicID: "algebra", Level: 1, CorrectAnswer: "a"},
		"q2": {ID: "q2", TopicID: "algebra", Level: 1, CorrectAnswer: "b"},
		"q3": {ID: "q3", TopicID: "geometry", Level: 2, CorrectAnswer: "c"},
		"q4": {ID: "q4", TopicID: "geometry", Level: 4, CorrectAnswer: "d"},
	}}
}

func TestMarkTest(t *testing.T) {
	engine := NewEngine(newBank(), nil)

	submitted := []SubmittedQuestion{
		{ID: "q1", StudentAnswer: "a"}, // correct, level 1 -> 1.2 points
		{ID: "q2", StudentAnswer: "a"}, // wrong
		{ID: "q3", StudentAnswer: "c"}, // correct, level 2 -> 3.0 points
		{ID: "q4", StudentAnswer: "d"}, // correct, level 4 -> 8.0 points
	}

	result, err := engine.MarkTest(context.Background(), submitted, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.ScoreAcquired != 3 {
		t.Errorf("expected 3 correct answers, got %d", result.ScoreAcquired)
	}
	if math.Abs(result.PointsAcquired-12.2) > 0.001 {
		t.Errorf("expected 12.2 points, got %.3f", result.PointsAcquired)
	}
	if len(result.Questions) != 4 {
		t.Fatalf("expected 4 marked questions, got %d", len(result.Questions))
	}
	for _, q := range result.Questions {
		if q.CorrectAnswer == "" {
			t.Errorf("marked question %s should carry the correct answer", q.QuestionID)
		}
	}
}

func TestMarkTestAllWrong(t *testing.T) {
	engine := NewEngine(newBank(), nil)

	submitted := []SubmittedQuestion{
		{ID: "q1", StudentAnswer: "x"},
		{ID: "q2", StudentAnswer: ""},
	}

	result, err := engine.MarkTest(context.Background(), submitted, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ScoreAcquired != 0 {
		t.Errorf("expected 0 correct answers, got %d", result.ScoreAcquired)
	}
	if result.PointsAcquired != 0 {
		t.Errorf("wrong answers earn zero without deduction, got %.3f", result.PointsAcquired)
	}
}

func TestMarkTestDeductsPoints(t *testing.T) {
	engine := NewEngine(newBank(), nil)

	submitted := []SubmittedQuestion{
		{ID: "q1", StudentAnswer: "a"}, // +1.2
		{ID: "q3", StudentAnswer: "x"}, // -3.0
	}

	result, err := engine.MarkTest(context.Background(), submitted, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ScoreAcquired != 1 {
		t.Errorf("expected 1 correct answer, got %d", result.ScoreAcquired)
	}
	if math.Abs(result.PointsAcquired-(-1.8)) > 0.001 {
		t.Errorf("expected -1.8 points with deduction, got %.3f", result.PointsAcquired)
	}
}

func TestMarkTestHonorsPointOverride(t *testing.T) {
	bank := newBank()
	bank.questions["q5"] = &models.Question{ID: "q5", TopicID: "algebra", Level: 1, Points: 10, CorrectAnswer: "a"}
	engine := NewEngine(bank, nil)

	submitted := []SubmittedQuestion{
		{ID: "q5", StudentAnswer: "a"},
	}

	result, err := engine.MarkTest(context.Background(), submitted, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(result.PointsAcquired-10.0) > 0.001 {
		t.Errorf("override of 10 points should beat the level table, got %.3f", result.PointsAcquired)
	}
}

func TestMarkTestSkipsMissingQuestions(t *testing.T) {
	engine := NewEngine(newBank(), nil)

	submitted := []SubmittedQuestion{
		{ID: "q1", StudentAnswer: "a"},
		{ID: "gone", StudentAnswer: "a"},
	}

	result, err := engine.MarkTest(context.Background(), submitted, false)
	if err != nil {
		t.Fatalf("a missing question must not fail the submission: %v", err)
	}
	if len(result.Questions) != 1 {
		t.Fatalf("expected 1 marked question, got %d", len(result.Questions))
	}
	if result.ScoreAcquired != 1 {
		t.Errorf("expected 1 correct answer, got %d", result.ScoreAcquired)
	}
}

func TestMarkTestEmptySubmission(t *testing.T) {
	engine := NewEngine(newBank(), nil)

	result, err := engine.MarkTest(context.Background(), nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ScoreAcquired != 0 || result.PointsAcquired != 0 || len(result.Questions) != 0 {
		t.Errorf("empty submission should mark to zero: %+v", result)
	}
}
