package selection

import (
	"context"
	"errors"
	"testing"

	"github.com/testora-app/testora-api/internal/models"
)

type stubQuestionSource struct {
	questions []models.Question
	err       error
}

func excluded(id string, excludeIDs []string) bool {
	for _, e := range excludeIDs {
		if e == id {
			return true
		}
	}
	return false
}

func (s *stubQuestionSource) FindActiveBySubjectLevel(ctx context.Context, subjectID string, level int, excludeIDs []string) ([]models.Question, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Question
	for _, q := range s.questions {
		if q.SubjectID == subjectID && q.Level == level && !excluded(q.ID, excludeIDs) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *stubQuestionSource) FindActiveByTopic(ctx context.Context, topicID string, excludeIDs []string) ([]models.Question, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Question
	for _, q := range s.questions {
		if q.TopicID == topicID && !excluded(q.ID, excludeIDs) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *stubQuestionSource) FindActiveBySubjectMaxLevel(ctx context.Context, subjectID string, maxLevel int, excludeIDs []string) ([]models.Question, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Question
	for _, q := range s.questions {
		if q.SubjectID == subjectID && q.Level <= maxLevel && !excluded(q.ID, excludeIDs) {
			out = append(out, q)
		}
	}
	return out, nil
}

func bankQuestions() []models.Question {
	return []models.Question{
		{ID: "q1", SubjectID: "math", TopicID: "algebra", Level: 1},
		{ID: "q2", SubjectID: "math", TopicID: "algebra", Level: 1},
		{ID: "q3", SubjectID: "math", TopicID: "fractions", Level: 1},
		{ID: "q4", SubjectID: "math", TopicID: "fractions", Level: 2},
		{ID: "q5", SubjectID: "math", TopicID: "geometry", Level: 2},
		{ID: "q6", SubjectID: "math", TopicID: "geometry", Level: 3},
	}
}

func TestSelectForLevel(t *testing.T) {
	pm := NewPoolManager(&stubQuestionSource{questions: bankQuestions()})

	got, err := pm.SelectForLevel(context.Background(), "math", 1, 2, uniformWeight, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(got))
	}
	for _, q := range got {
		if q.Level != 1 {
			t.Errorf("question %s is level %d, expected 1", q.ID, q.Level)
		}
	}
}

func TestSelectForLevelShortPool(t *testing.T) {
	pm := NewPoolManager(&stubQuestionSource{questions: bankQuestions()})

	got, err := pm.SelectForLevel(context.Background(), "math", 3, 5, uniformWeight, nil)
	if err != nil {
		t.Fatalf("a short pool is not an error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected the single level 3 question, got %d", len(got))
	}
}

func TestSelectForLevelRespectsExcludes(t *testing.T) {
	pm := NewPoolManager(&stubQuestionSource{questions: bankQuestions()})

	got, err := pm.SelectForLevel(context.Background(), "math", 1, 3, uniformWeight, []string{"q1", "q2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "q3" {
		t.Fatalf("expected only q3 after excludes, got %v", got)
	}
}

func TestBackfillMasteredTopicsFirst(t *testing.T) {
	pm := NewPoolManager(&stubQuestionSource{questions: bankQuestions()})

	got, err := pm.Backfill(context.Background(), "math", 3, []string{"algebra"}, 2, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(got))
	}
	for _, q := range got {
		if q.TopicID != "algebra" {
			t.Errorf("question %s from topic %s, expected mastered topic first", q.ID, q.TopicID)
		}
	}
}

func TestBackfillMasteredTopicsMayRepeatRecent(t *testing.T) {
	pm := NewPoolManager(&stubQuestionSource{questions: bankQuestions()})

	// Recently seen questions stay eligible for the mastered-topic stage; only
	// questions already delivered in this test are off limits there.
	got, err := pm.Backfill(context.Background(), "math", 3, []string{"algebra"}, 2, nil, []string{"q1", "q2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected both algebra questions, got %d", len(got))
	}
	for _, q := range got {
		if q.TopicID != "algebra" {
			t.Errorf("question %s from topic %s, expected algebra", q.ID, q.TopicID)
		}
	}
}

func TestBackfillFallbackSkipsRecent(t *testing.T) {
	pm := NewPoolManager(&stubQuestionSource{questions: bankQuestions()})

	got, err := pm.Backfill(context.Background(), "math", 3, nil, 6, nil, []string{"q1", "q2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 questions once q1 and q2 are skipped, got %d", len(got))
	}
	for _, q := range got {
		if q.ID == "q1" || q.ID == "q2" {
			t.Errorf("fallback delivered recently seen question %s", q.ID)
		}
	}
}

func TestBackfillFallsThroughToSubjectPool(t *testing.T) {
	pm := NewPoolManager(&stubQuestionSource{questions: bankQuestions()})

	// Algebra only holds 2 questions; the rest must come from the wider pool.
	got, err := pm.Backfill(context.Background(), "math", 3, []string{"algebra"}, 4, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 questions, got %d", len(got))
	}
	seen := map[string]bool{}
	for _, q := range got {
		if seen[q.ID] {
			t.Errorf("question %s backfilled twice", q.ID)
		}
		seen[q.ID] = true
	}
}

func TestBackfillRespectsMaxLevel(t *testing.T) {
	pm := NewPoolManager(&stubQuestionSource{questions: bankQuestions()})

	got, err := pm.Backfill(context.Background(), "math", 1, nil, 10, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, q := range got {
		if q.Level > 1 {
			t.Errorf("question %s is level %d, above the cap", q.ID, q.Level)
		}
	}
	if len(got) != 3 {
		t.Errorf("expected the 3 level 1 questions, got %d", len(got))
	}
}

func TestBackfillExhaustedBank(t *testing.T) {
	pm := NewPoolManager(&stubQuestionSource{questions: bankQuestions()})

	got, err := pm.Backfill(context.Background(), "math", 3, nil, 20, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 6 {
		t.Errorf("expected the whole bank of 6, got %d", len(got))
	}
}

func TestPoolManagerPropagatesErrors(t *testing.T) {
	wantErr := errors.New("db down")
	pm := NewPoolManager(&stubQuestionSource{err: wantErr})

	if _, err := pm.SelectForLevel(context.Background(), "math", 1, 2, uniformWeight, nil); !errors.Is(err, wantErr) {
		t.Errorf("SelectForLevel: expected wrapped error, got %v", err)
	}
	if _, err := pm.Backfill(context.Background(), "math", 3, []string{"algebra"}, 2, nil, nil); !errors.Is(err, wantErr) {
		t.Errorf("Backfill: expected wrapped error, got %v", err)
	}
}

func TestAvailability(t *testing.T) {
	pm := NewPoolManager(&stubQuestionSource{questions: bankQuestions()})

	got, err := pm.Availability(context.Background(), "math", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []int{3, 2, 1}
	if len(got) != len(expected) {
		t.Fatalf("expected %d levels, got %d", len(expected), len(got))
	}
	for i, want := range expected {
		if got[i].Level != i+1 || got[i].Available != want {
			t.Errorf("level %d: expected %d available, got %+v", i+1, want, got[i])
		}
	}
}
