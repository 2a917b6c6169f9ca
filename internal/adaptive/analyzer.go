package adaptive

import (
	"context"
	"fmt"
	"sort"

	"github.com/testora-app/testora-api/internal/models"
)

// TestSource supplies the finished tests of a student, newest first.
type TestSource interface {
	FindFinished(ctx context.Context, studentID, subjectID string, limit int64) ([]models.Test, error)
}

// TopicScoreSource supplies the per-topic score rows written at marking time.
type TopicScoreSource interface {
	FindTopicScores(ctx context.Context, studentID, testID string) ([]models.StudentTopicScore, error)
}

// Analyzer derives per-topic and per-level performance weights from a
// student's recent finished tests.
type Analyzer struct {
	tests  TestSource
	scores TopicScoreSource
	config *Config
}

func NewAnalyzer(tests TestSource, scores TopicScoreSource, config *Config) *Analyzer {
	if config == nil {
		config = DefaultConfig()
	}
	return &Analyzer{tests: tests, scores: scores, config: config}
}

// Analyze inspects the student's most recent finished tests for the subject.
// No prior tests is the cold-start state and yields an all-empty structure.
func (a *Analyzer) Analyze(ctx context.Context, studentID, subjectID string) (*PerformanceData, error) {
	perf := NewPerformanceData()

	tests, err := a.tests.FindFinished(ctx, studentID, subjectID, int64(a.config.LookbackTests))
	if err != nil {
		return nil, fmt.Errorf("failed to load finished tests: %w", err)
	}
	if len(tests) == 0 {
		return perf, nil
	}

	levelResults := map[int][]float64{}

	// Tests arrive newest first, so the first occurrence of a question id is
	// its most recent outcome.
	for _, test := range tests {
		topicScores, err := a.scores.FindTopicScores(ctx, studentID, test.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load topic scores: %w", err)
		}
		for _, ts := range topicScores {
			perf.TopicScores[ts.TopicID] = append(perf.TopicScores[ts.TopicID], ts.Score)
		}

		for _, q := range test.Questions {
			correct := q.StudentAnswer != "" && q.StudentAnswer == q.CorrectAnswer
			if correct {
				levelResults[q.Level] = append(levelResults[q.Level], 1)
			} else {
				levelResults[q.Level] = append(levelResults[q.Level], 0)
			}

			if history, seen := perf.RecentQuestions[q.QuestionID]; seen {
				history.Attempts++
				perf.RecentQuestions[q.QuestionID] = history
				continue
			}
			perf.RecentQuestions[q.QuestionID] = QuestionHistory{
				Correct:  correct,
				Attempts: 1,
				TopicID:  q.TopicID,
				Level:    q.Level,
				LastSeen: test.FinishedOn,
			}
		}
	}

	for topicID, scores := range perf.TopicScores {
		perf.TopicWeights[topicID] = mean(scores)
	}
	for level, results := range levelResults {
		perf.LevelWeights[level] = mean(results) * 100
	}

	perf.MasteredTopics, perf.CriticalTopics = a.classifyTopics(perf.TopicWeights)

	return perf, nil
}

// classifyTopics splits topics into mastered (mean >= mastered threshold,
// ordered lowest mean first so fallback selection starts with the least
// safely mastered topic) and critical (mean below the developing threshold).
func (a *Analyzer) classifyTopics(weights map[string]float64) (mastered, critical []string) {
	mastered = []string{}
	critical = []string{}
	for topicID, weight := range weights {
		switch {
		case weight >= a.config.MasteredThreshold:
			mastered = append(mastered, topicID)
		case weight < a.config.CriticalThreshold:
			critical = append(critical, topicID)
		}
	}
	sort.Slice(mastered, func(i, j int) bool {
		wi, wj := weights[mastered[i]], weights[mastered[j]]
		if wi == wj {
			return mastered[i] < mastered[j]
		}
		return wi < wj
	})
	sort.Strings(critical)
	return mastered, critical
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}
