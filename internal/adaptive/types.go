package adaptive

import "time"

// QuestionHistory keeps the most recent outcome for one question a student
// has attempted, plus how often it was seen inside the lookback window.
type QuestionHistory struct {
	Correct  bool      `json:"correct"`
	Attempts int       `json:"attempts"`
	TopicID  string    `json:"topic_id"`
	Level    int       `json:"level"`
	LastSeen time.Time `json:"last_seen"`
}

// PerformanceData is the analyzer's output consumed by the distribution
// engine and the weighted selector. An all-empty value is the cold-start
// state, not an error.
type PerformanceData struct {
	TopicWeights    map[string]float64         `json:"topic_weights"` // topic -> mean score 0-100
	LevelWeights    map[int]float64            `json:"level_weights"` // level -> mean correctness x100
	MasteredTopics  []string                   `json:"mastered_topics"` // ordered lowest mean first
	CriticalTopics  []string                   `json:"critical_topics"`
	RecentQuestions map[string]QuestionHistory `json:"recent_questions"`
	TopicScores     map[string][]float64       `json:"topic_scores"`
}

func NewPerformanceData() *PerformanceData {
	return &PerformanceData{
		TopicWeights:    map[string]float64{},
		LevelWeights:    map[int]float64{},
		MasteredTopics:  []string{},
		CriticalTopics:  []string{},
		RecentQuestions: map[string]QuestionHistory{},
		TopicScores:     map[string][]float64{},
	}
}

// Config holds the tunables of the adaptive engine. All values are fixed at
// boot; see config.Load for the env overrides.
type Config struct {
	LookbackTests     int     `json:"lookback_tests"`
	MinPerLevel       int     `json:"min_per_level"`
	MasteredThreshold float64 `json:"mastered_threshold"` // "highly proficient" band
	CriticalThreshold float64 `json:"critical_threshold"` // "developing" band
	NeutralWeight     float64 `json:"neutral_weight"`     // used when a level/topic has no data
	MinWeakness       float64 `json:"min_weakness"`       // weakness floor so strong levels are never starved
	FailureBoost      float64 `json:"failure_boost"`
	SameDayFactor     float64 `json:"same_day_factor"`
	RecentFactor      float64 `json:"recent_factor"`
}

func DefaultConfig() *Config {
	return &Config{
		LookbackTests:     5,
		MinPerLevel:       2,
		MasteredThreshold: 80,
		CriticalThreshold: 50,
		NeutralWeight:     50,
		MinWeakness:       10,
		FailureBoost:      3.0,
		SameDayFactor:     0.5,
		RecentFactor:      0.8,
	}
}
