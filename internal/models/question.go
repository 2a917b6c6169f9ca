package models

const (
	QuestionStatusActive  = "active"
	QuestionStatusDeleted = "deleted"
)

// MinLevel and MaxLevel bound every level table in this package.
const (
	MinLevel = 1
	MaxLevel = 9
)

type Question struct {
	ID              string   `bson:"_id,omitempty" json:"id"`
	TopicID         string   `bson:"topic_id" json:"topic_id"`
	SubjectID       string   `bson:"subject_id" json:"subject_id"` // denormalized from topic
	Level           int      `bson:"level" json:"level"`           // denormalized from topic
	Content         string   `bson:"content" json:"content"`
	PossibleAnswers []string `bson:"possible_answers" json:"possible_answers"`
	CorrectAnswer   string   `bson:"correct_answer" json:"correct_answer"`
	Points          int      `bson:"points,omitempty" json:"points,omitempty"` // optional override
	Flagged         bool     `bson:"flagged" json:"flagged"`
	Status          string   `bson:"status" json:"status"`
}

// SubQuestion belongs to exactly one parent question and cannot have children.
type SubQuestion struct {
	ID              string   `bson:"_id,omitempty" json:"id"`
	QuestionID      string   `bson:"question_id" json:"question_id"`
	Content         string   `bson:"content" json:"content"`
	PossibleAnswers []string `bson:"possible_answers" json:"possible_answers"`
	CorrectAnswer   string   `bson:"correct_answer" json:"correct_answer"`
	Points          int      `bson:"points,omitempty" json:"points,omitempty"`
}

// QuestionPoints maps a level to its point multiplier. A question's point
// value is level x multiplier, so higher levels are worth disproportionately
// more. Overridable at boot via LEVEL_POINT_MULTIPLIERS.
var QuestionPoints = map[int]float64{
	1: 1.2,
	2: 1.5,
	3: 1.7,
	4: 2.0,
	5: 2.2,
	6: 2.4,
	7: 2.6,
	8: 2.8,
	9: 3.0,
}

// LevelQuestionLimits maps a student level to the number of questions a test
// at that level contains. Overridable at boot via LEVEL_QUESTION_LIMITS.
var LevelQuestionLimits = map[int]int{
	1: 10,
	2: 12,
	3: 15,
	4: 18,
	5: 22,
	6: 26,
	7: 30,
	8: 35,
	9: 40,
}

// PointValue returns the point value of a question at the given level.
// Out-of-range levels fall back to level 1 rather than failing, since a
// snapshot can carry legacy data.
func PointValue(level int) float64 {
	multiplier, ok := QuestionPoints[level]
	if !ok {
		level = MinLevel
		multiplier = QuestionPoints[MinLevel]
	}
	return float64(level) * multiplier
}

// PointValue returns the question's point value, honoring the per-question
// override when one is set.
func (q *Question) PointValue() float64 {
	if q.Points > 0 {
		return float64(q.Points)
	}
	return PointValue(q.Level)
}

// QuestionLimitForLevel returns how many questions a test holds for the level.
func QuestionLimitForLevel(level int) int {
	if limit, ok := LevelQuestionLimits[level]; ok {
		return limit
	}
	if level > MaxLevel {
		return LevelQuestionLimits[MaxLevel]
	}
	return LevelQuestionLimits[MinLevel]
}
