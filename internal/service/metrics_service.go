package service

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// Trend classifications for a student's recent score history.
const (
	TrendInsufficientData = "insufficient_data"
	TrendImproving        = "improving"
	TrendDeclining        = "declining"
	TrendStable           = "stable"
)

// trendDeadband is the score delta treated as noise when classifying.
const trendDeadband = 5.0

// MetricsService is read-only reporting over finished tests. It produces no
// new domain state.
type MetricsService struct {
	tests TestStore
}

func NewMetricsService(tests TestStore) *MetricsService {
	return &MetricsService{tests: tests}
}

// AdaptationMetrics tallies the level and topic distribution of a finished
// test's question snapshot.
func (s *MetricsService) AdaptationMetrics(ctx context.Context, student Identity, testID string) (map[string]interface{}, error) {
	test, err := s.tests.FindByID(ctx, testID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to load test: %w", err)
	}
	if test == nil || test.StudentID != student.StudentID {
		return nil, ErrTestNotFound
	}

	levelDistribution := map[int]int{}
	topicDistribution := map[string]int{}
	for _, q := range test.Questions {
		levelDistribution[q.Level]++
		topicDistribution[q.TopicID]++
	}

	return map[string]interface{}{
		"test_id":            test.ID,
		"is_completed":       test.IsCompleted,
		"total_questions":    len(test.Questions),
		"level_distribution": levelDistribution,
		"topic_distribution": topicDistribution,
		"points_acquired":    test.PointsAcquired,
		"score_acquired":     test.ScoreAcquired,
	}, nil
}

// ImprovementTrend classifies the student's score trajectory over the last
// lookback finished tests. Two data points compare endpoints; three or more
// compare first-half and second-half means. A 5-point deadband keeps noise
// from flipping the classification.
func (s *MetricsService) ImprovementTrend(ctx context.Context, student Identity, subjectID string, lookback int) (map[string]interface{}, error) {
	if lookback <= 0 {
		lookback = 5
	}
	tests, err := s.tests.FindFinished(ctx, student.StudentID, subjectID, int64(lookback))
	if err != nil {
		return nil, err
	}

	// Tests arrive newest first; the trend reads oldest to newest.
	scores := make([]float64, len(tests))
	for i, t := range tests {
		scores[len(tests)-1-i] = float64(t.ScoreAcquired)
	}

	if len(scores) < 2 {
		return map[string]interface{}{
			"trend":       TrendInsufficientData,
			"data_points": len(scores),
			"scores":      scores,
		}, nil
	}

	var earlier, later float64
	if len(scores) == 2 {
		earlier, later = scores[0], scores[1]
	} else {
		half := len(scores) / 2
		earlier = meanOf(scores[:half])
		later = meanOf(scores[half:])
	}

	trend := TrendStable
	switch {
	case later-earlier > trendDeadband:
		trend = TrendImproving
	case earlier-later > trendDeadband:
		trend = TrendDeclining
	}

	return map[string]interface{}{
		"trend":        trend,
		"data_points":  len(scores),
		"scores":       scores,
		"earlier_mean": earlier,
		"later_mean":   later,
	}, nil
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}
