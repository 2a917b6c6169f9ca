package adaptive

import (
	"math"
	"sort"
	"time"

	"github.com/testora-app/testora-api/internal/models"
)

// DistributionEngine is pure computation: it turns performance weights into a
// per-level question allocation and per-question selection weights.
type DistributionEngine struct {
	config *Config
}

func NewDistributionEngine(config *Config) *DistributionEngine {
	if config == nil {
		config = DefaultConfig()
	}
	return &DistributionEngine{config: config}
}

// GenerateDistribution allocates totalQuestions across levels 1..studentLevel,
// biased toward weak levels while guaranteeing MinPerLevel floor coverage.
// The returned counts always sum to exactly totalQuestions when the budget
// exceeds the floors.
func (e *DistributionEngine) GenerateDistribution(totalQuestions, studentLevel int, perf *PerformanceData) map[int]int {
	if studentLevel < models.MinLevel {
		studentLevel = models.MinLevel
	}
	if studentLevel > models.MaxLevel {
		studentLevel = models.MaxLevel
	}

	distribution := make(map[int]int, studentLevel)

	// No room above the floors: give every level the minimum.
	if totalQuestions <= e.config.MinPerLevel*studentLevel {
		for level := models.MinLevel; level <= studentLevel; level++ {
			distribution[level] = e.config.MinPerLevel
		}
		return distribution
	}

	weakness := make(map[int]float64, studentLevel)
	totalWeakness := 0.0
	for level := models.MinLevel; level <= studentLevel; level++ {
		distribution[level] = e.config.MinPerLevel
		weakness[level] = e.levelWeakness(level, perf)
		totalWeakness += weakness[level]
	}

	// Remaining budget split proportionally to normalized weakness with
	// integer truncation.
	remaining := totalQuestions - e.config.MinPerLevel*studentLevel
	allocated := e.config.MinPerLevel * studentLevel
	for level := models.MinLevel; level <= studentLevel; level++ {
		extra := int(float64(remaining) * weakness[level] / totalWeakness)
		distribution[level] += extra
		allocated += extra
	}

	// Truncation leaves a shortfall; hand it out one question at a time to
	// the weakest levels, cycling if needed, so the sum matches exactly.
	if shortfall := totalQuestions - allocated; shortfall > 0 {
		order := levelsByWeakness(weakness)
		for i := 0; i < shortfall; i++ {
			distribution[order[i%len(order)]]++
		}
	}

	return distribution
}

// levelWeakness inverts a level's performance weight. Levels with no history
// get the neutral weight; levels the student is strong on keep a small floor
// so they are never structurally starved.
func (e *DistributionEngine) levelWeakness(level int, perf *PerformanceData) float64 {
	if perf != nil {
		if weight, ok := perf.LevelWeights[level]; ok {
			return math.Max(100-weight, e.config.MinWeakness)
		}
	}
	return e.config.NeutralWeight
}

func levelsByWeakness(weakness map[int]float64) []int {
	order := make([]int, 0, len(weakness))
	for level := range weakness {
		order = append(order, level)
	}
	sort.Slice(order, func(i, j int) bool {
		if weakness[order[i]] == weakness[order[j]] {
			return order[i] < order[j]
		}
		return weakness[order[i]] > weakness[order[j]]
	})
	return order
}

// QuestionSelectionWeight computes the weighted-sampling weight of one
// candidate question. Recently failed questions are boosted, questions seen
// in the last days are dampened, and the weight never drops below 1 so every
// candidate keeps a nonzero selection probability.
func (e *DistributionEngine) QuestionSelectionWeight(q *models.Question, perf *PerformanceData, now time.Time) float64 {
	weight := e.config.NeutralWeight
	if perf != nil {
		if topicWeight, ok := perf.TopicWeights[q.TopicID]; ok {
			weight = 100 - topicWeight
		}
		if history, ok := perf.RecentQuestions[q.ID]; ok {
			if !history.Correct {
				weight *= e.config.FailureBoost
			}
			switch since := now.Sub(history.LastSeen); {
			case since < 24*time.Hour:
				weight *= e.config.SameDayFactor
			case since < 72*time.Hour:
				weight *= e.config.RecentFactor
			}
		}
	}
	return math.Max(weight, 1.0)
}
