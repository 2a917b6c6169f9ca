package selection

import "github.com/testora-app/testora-api/internal/models"

// WeightFunc computes the selection weight of a candidate question.
type WeightFunc func(q *models.Question) float64

// WeightedQuestion pairs a question with its computed selection weight.
type WeightedQuestion struct {
	Question models.Question `json:"question"`
	Weight   float64         `json:"weight"`
}

// LevelAvailability describes how many active questions exist at one level of
// a subject's bank.
type LevelAvailability struct {
	Level     int `json:"level"`
	Available int `json:"available"`
}
