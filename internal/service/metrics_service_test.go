package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/testora-app/testora-api/internal/models"
)

func storeWithScores(studentID, subjectID string, scores []int) *fakeTestStore {
	store := newFakeTestStore()
	base := time.Now().Add(-time.Duration(len(scores)) * 24 * time.Hour)
	for i, score := range scores {
		test := &models.Test{
			StudentID:     studentID,
			SubjectID:     subjectID,
			ScoreAcquired: score,
			IsCompleted:   true,
			FinishedOn:    base.Add(time.Duration(i) * 24 * time.Hour),
		}
		_ = store.Create(context.Background(), test)
	}
	return store
}

func TestImprovementTrend(t *testing.T) {
	student := Identity{StudentID: "s1"}

	tests := []struct {
		name     string
		scores   []int // oldest to newest
		expected string
	}{
		{"no history", nil, TrendInsufficientData},
		{"single test", []int{7}, TrendInsufficientData},
		{"two rising endpoints", []int{4, 12}, TrendImproving},
		{"two falling endpoints", []int{12, 4}, TrendDeclining},
		{"two close endpoints", []int{8, 10}, TrendStable},
		{"rising halves", []int{3, 4, 10, 12, 14}, TrendImproving},
		{"falling halves", []int{14, 12, 5, 4, 3}, TrendDeclining},
		{"flat halves", []int{9, 10, 9, 10, 9}, TrendStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storeWithScores("s1", "math", tt.scores)
			svc := NewMetricsService(store)

			got, err := svc.ImprovementTrend(context.Background(), student, "math", 5)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got["trend"] != tt.expected {
				t.Errorf("scores %v: expected %s, got %v", tt.scores, tt.expected, got["trend"])
			}
			if got["data_points"] != len(tt.scores) {
				t.Errorf("expected %d data points, got %v", len(tt.scores), got["data_points"])
			}
		})
	}
}

func TestImprovementTrendLookbackWindow(t *testing.T) {
	// Only the newest 3 tests should count: 10, 11, 12 reads stable.
	store := storeWithScores("s1", "math", []int{1, 2, 10, 11, 12})
	svc := NewMetricsService(store)

	got, err := svc.ImprovementTrend(context.Background(), Identity{StudentID: "s1"}, "math", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["trend"] != TrendStable {
		t.Errorf("expected stable inside the window, got %v", got["trend"])
	}
	if got["data_points"] != 3 {
		t.Errorf("expected 3 data points, got %v", got["data_points"])
	}
}

func TestAdaptationMetrics(t *testing.T) {
	store := newFakeTestStore()
	test := &models.Test{
		StudentID: "s1",
		SubjectID: "math",
		Questions: []models.TestQuestion{
			{QuestionID: "q1", TopicID: "algebra", Level: 1},
			{QuestionID: "q2", TopicID: "algebra", Level: 2},
			{QuestionID: "q3", TopicID: "geometry", Level: 2},
		},
	}
	if err := store.Create(context.Background(), test); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	svc := NewMetricsService(store)
	got, err := svc.AdaptationMetrics(context.Background(), Identity{StudentID: "s1"}, test.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got["total_questions"] != 3 {
		t.Errorf("expected 3 questions, got %v", got["total_questions"])
	}
	levels, ok := got["level_distribution"].(map[int]int)
	if !ok {
		t.Fatalf("missing level distribution: %v", got)
	}
	if levels[1] != 1 || levels[2] != 2 {
		t.Errorf("unexpected level distribution: %v", levels)
	}
	topics, ok := got["topic_distribution"].(map[string]int)
	if !ok {
		t.Fatalf("missing topic distribution: %v", got)
	}
	if topics["algebra"] != 2 || topics["geometry"] != 1 {
		t.Errorf("unexpected topic distribution: %v", topics)
	}
}

func TestAdaptationMetricsOwnership(t *testing.T) {
	store := newFakeTestStore()
	test := &models.Test{StudentID: "s1", SubjectID: "math"}
	if err := store.Create(context.Background(), test); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	svc := NewMetricsService(store)
	if _, err := svc.AdaptationMetrics(context.Background(), Identity{StudentID: "intruder"}, test.ID); !errors.Is(err, ErrTestNotFound) {
		t.Errorf("expected ErrTestNotFound for another student, got %v", err)
	}
	if _, err := svc.AdaptationMetrics(context.Background(), Identity{StudentID: "s1"}, "missing"); !errors.Is(err, ErrTestNotFound) {
		t.Errorf("expected ErrTestNotFound for unknown id, got %v", err)
	}
}
