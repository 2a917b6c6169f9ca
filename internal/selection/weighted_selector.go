package selection

import (
	"math/rand"
	"time"

	"github.com/testora-app/testora-api/internal/models"
)

// WeightedSelector handles weighted random selection of questions.
type WeightedSelector struct {
	rand *rand.Rand
}

func NewWeightedSelector() *WeightedSelector {
	return &WeightedSelector{
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func newSeededSelector(seed int64) *WeightedSelector {
	return &WeightedSelector{rand: rand.New(rand.NewSource(seed))}
}

// Select performs weighted sampling without replacement: each draw picks a
// question with probability proportional to its weight among the remaining
// candidates. When the pool is no larger than count the whole pool is
// returned.
func (s *WeightedSelector) Select(pool []models.Question, weightFn WeightFunc, count int) []models.Question {
	if len(pool) <= count {
		selected := make([]models.Question, len(pool))
		copy(selected, pool)
		return selected
	}

	remaining := make([]WeightedQuestion, len(pool))
	totalWeight := 0.0
	for i := range pool {
		w := weightFn(&pool[i])
		remaining[i] = WeightedQuestion{Question: pool[i], Weight: w}
		totalWeight += w
	}

	selected := make([]models.Question, 0, count)
	for len(selected) < count && len(remaining) > 0 {
		idx := s.draw(remaining, totalWeight)
		selected = append(selected, remaining[idx].Question)
		totalWeight -= remaining[idx].Weight
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}

	return selected
}

func (s *WeightedSelector) draw(remaining []WeightedQuestion, totalWeight float64) int {
	if totalWeight <= 0 {
		return s.rand.Intn(len(remaining))
	}
	r := s.rand.Float64() * totalWeight
	cumulative := 0.0
	for idx, wq := range remaining {
		cumulative += wq.Weight
		if r <= cumulative {
			return idx
		}
	}
	// Floating point drift can leave r past the last bucket.
	return len(remaining) - 1
}

// Shuffle randomizes question order in place. Used for the final shuffle that
// destroys level grouping in a delivered test.
func (s *WeightedSelector) Shuffle(questions []models.Question) {
	s.rand.Shuffle(len(questions), func(i, j int) {
		questions[i], questions[j] = questions[j], questions[i]
	})
}
