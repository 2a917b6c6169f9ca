package adaptive

import (
	"math"
	"testing"
	"time"

	"github.com/testora-app/testora-api/internal/models"
)

func sumDistribution(d map[int]int) int {
	total := 0
	for _, n := range d {
		total += n
	}
	return total
}

func TestGenerateDistributionColdStart(t *testing.T) {
	engine := NewDistributionEngine(nil)

	tests := []struct {
		name     string
		total    int
		level    int
		expected map[int]int
	}{
		{
			name:     "level 1 gets everything",
			total:    10,
			level:    1,
			expected: map[int]int{1: 10},
		},
		{
			name:     "level 3 splits evenly with no history",
			total:    15,
			level:    3,
			expected: map[int]int{1: 5, 2: 5, 3: 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.GenerateDistribution(tt.total, tt.level, NewPerformanceData())
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %d levels, got %d: %v", len(tt.expected), len(got), got)
			}
			for level, count := range tt.expected {
				if got[level] != count {
					t.Errorf("level %d: expected %d questions, got %d", level, count, got[level])
				}
			}
		})
	}
}

func TestGenerateDistributionSumInvariant(t *testing.T) {
	engine := NewDistributionEngine(nil)
	perf := NewPerformanceData()
	perf.LevelWeights = map[int]float64{1: 90, 2: 40, 3: 70, 4: 20}

	for _, total := range []int{10, 15, 18, 22, 26, 30, 40} {
		for level := 1; level <= 9; level++ {
			got := engine.GenerateDistribution(total, level, perf)
			if total <= 2*level {
				continue // floor-only case, sum is 2*level by design
			}
			if sum := sumDistribution(got); sum != total {
				t.Errorf("total=%d level=%d: distribution sums to %d: %v", total, level, sum, got)
			}
		}
	}
}

func TestGenerateDistributionFloors(t *testing.T) {
	engine := NewDistributionEngine(nil)
	perf := NewPerformanceData()
	// Level 1 is near perfect; it must still get the floor.
	perf.LevelWeights = map[int]float64{1: 99, 2: 30, 3: 30}

	got := engine.GenerateDistribution(15, 3, perf)
	for level := 1; level <= 3; level++ {
		if got[level] < 2 {
			t.Errorf("level %d got %d questions, below the floor of 2", level, got[level])
		}
	}
}

func TestGenerateDistributionWeaknessBias(t *testing.T) {
	engine := NewDistributionEngine(nil)
	perf := NewPerformanceData()
	perf.LevelWeights = map[int]float64{1: 90, 2: 50, 3: 10}

	got := engine.GenerateDistribution(15, 3, perf)
	if got[3] <= got[1] {
		t.Errorf("weakest level should get more questions than strongest: %v", got)
	}
	if got[2] < got[1] || got[2] > got[3] {
		t.Errorf("middle level should sit between the extremes: %v", got)
	}
}

func TestGenerateDistributionTightBudget(t *testing.T) {
	engine := NewDistributionEngine(nil)

	// Total of 6 at level 3 is exactly the floors.
	got := engine.GenerateDistribution(6, 3, NewPerformanceData())
	for level := 1; level <= 3; level++ {
		if got[level] != 2 {
			t.Errorf("level %d: expected floor of 2, got %d", level, got[level])
		}
	}
}

func TestGenerateDistributionClampsLevel(t *testing.T) {
	engine := NewDistributionEngine(nil)

	got := engine.GenerateDistribution(40, 99, NewPerformanceData())
	if _, ok := got[models.MaxLevel+1]; ok {
		t.Errorf("distribution has levels above the max: %v", got)
	}
	if sumDistribution(got) != 40 {
		t.Errorf("clamped distribution sums to %d: %v", sumDistribution(got), got)
	}

	got = engine.GenerateDistribution(10, 0, NewPerformanceData())
	if got[1] != 10 {
		t.Errorf("level below min should clamp to level 1: %v", got)
	}
}

func TestQuestionSelectionWeight(t *testing.T) {
	engine := NewDistributionEngine(nil)
	now := time.Now()
	question := &models.Question{ID: "q1", TopicID: "t1", Level: 2}

	tests := []struct {
		name     string
		perf     func() *PerformanceData
		expected float64
	}{
		{
			name:     "no history uses neutral weight",
			perf:     NewPerformanceData,
			expected: 50,
		},
		{
			name: "weak topic raises weight",
			perf: func() *PerformanceData {
				p := NewPerformanceData()
				p.TopicWeights["t1"] = 30
				return p
			},
			expected: 70,
		},
		{
			name: "recent failure is boosted",
			perf: func() *PerformanceData {
				p := NewPerformanceData()
				p.TopicWeights["t1"] = 30
				p.RecentQuestions["q1"] = QuestionHistory{Correct: false, LastSeen: now.Add(-96 * time.Hour)}
				return p
			},
			expected: 210, // 70 * 3.0
		},
		{
			name: "seen same day is halved",
			perf: func() *PerformanceData {
				p := NewPerformanceData()
				p.TopicWeights["t1"] = 30
				p.RecentQuestions["q1"] = QuestionHistory{Correct: true, LastSeen: now.Add(-2 * time.Hour)}
				return p
			},
			expected: 35, // 70 * 0.5
		},
		{
			name: "seen within three days is dampened",
			perf: func() *PerformanceData {
				p := NewPerformanceData()
				p.TopicWeights["t1"] = 30
				p.RecentQuestions["q1"] = QuestionHistory{Correct: true, LastSeen: now.Add(-48 * time.Hour)}
				return p
			},
			expected: 56, // 70 * 0.8
		},
		{
			name: "weight never drops below one",
			perf: func() *PerformanceData {
				p := NewPerformanceData()
				p.TopicWeights["t1"] = 99.5
				p.RecentQuestions["q1"] = QuestionHistory{Correct: true, LastSeen: now.Add(-1 * time.Hour)}
				return p
			},
			expected: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.QuestionSelectionWeight(question, tt.perf(), now)
			if math.Abs(got-tt.expected) > 0.001 {
				t.Errorf("expected weight %.3f, got %.3f", tt.expected, got)
			}
		})
	}
}

func TestQuestionSelectionWeightNilPerf(t *testing.T) {
	engine := NewDistributionEngine(nil)
	got := engine.QuestionSelectionWeight(&models.Question{ID: "q1"}, nil, time.Now())
	if math.Abs(got-50) > 0.001 {
		t.Errorf("nil performance should use neutral weight, got %.3f", got)
	}
}
