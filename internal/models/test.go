package models

import "time"

// TestQuestion is the denormalized snapshot of a question as delivered inside
// a test. The snapshot is immutable once the test is created; marking only
// fills in StudentAnswer.
type TestQuestion struct {
	QuestionID      string   `bson:"id" json:"id"`
	TopicID         string   `bson:"topic_id" json:"topic_id"`
	Level           int      `bson:"level" json:"level"`
	Content         string   `bson:"content" json:"content"`
	PossibleAnswers []string `bson:"possible_answers" json:"possible_answers"`
	CorrectAnswer   string   `bson:"correct_answer" json:"correct_answer,omitempty"`
	StudentAnswer   string   `bson:"student_answer" json:"student_answer,omitempty"`
	Points          float64  `bson:"points" json:"points"`
}

// Test is one delivered and attempted assessment instance. It is created
// in-progress at question-selection time and transitions exactly once to
// completed when marked.
type Test struct {
	ID             string                 `bson:"_id,omitempty" json:"id"`
	StudentID      string                 `bson:"student_id" json:"student_id"`
	SubjectID      string                 `bson:"subject_id" json:"subject_id"`
	Mode           string                 `bson:"mode" json:"mode"`
	Questions      []TestQuestion         `bson:"questions" json:"questions"`
	TotalPoints    int                    `bson:"total_points" json:"total_points"`
	PointsAcquired float64                `bson:"points_acquired" json:"points_acquired"`
	TotalScore     int                    `bson:"total_score" json:"total_score"`
	ScoreAcquired  int                    `bson:"score_acquired" json:"score_acquired"`
	StartedOn      time.Time              `bson:"started_on" json:"started_on"`
	FinishedOn     time.Time              `bson:"finished_on,omitempty" json:"finished_on,omitempty"`
	IsCompleted    bool                   `bson:"is_completed" json:"is_completed"`
	Remarks        string                 `bson:"remarks,omitempty" json:"remarks,omitempty"`
	Metadata       map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

// DefaultTotalScore is the fixed score denominator of a test.
const DefaultTotalScore = 100

// TotalTestPoints sums the point values of a delivered question set,
// truncated to int. Computed once at creation time; PointsAcquired is later
// compared against it.
func TotalTestPoints(questions []TestQuestion) int {
	total := 0.0
	for _, q := range questions {
		total += q.Points
	}
	return int(total)
}

// Redacted returns a copy of the test safe for delivery: correct and student
// answers stripped from every question.
func (t *Test) Redacted() *Test {
	redacted := *t
	redacted.Questions = make([]TestQuestion, len(t.Questions))
	for i, q := range t.Questions {
		q.CorrectAnswer = ""
		q.StudentAnswer = ""
		redacted.Questions[i] = q
	}
	return &redacted
}

// TopicBreakdown computes the percentage of correct answers per topic from a
// marked snapshot.
func (t *Test) TopicBreakdown() map[string]float64 {
	attempted := make(map[string]int)
	correct := make(map[string]int)
	for _, q := range t.Questions {
		attempted[q.TopicID]++
		if q.StudentAnswer != "" && q.StudentAnswer == q.CorrectAnswer {
			correct[q.TopicID]++
		}
	}
	breakdown := make(map[string]float64, len(attempted))
	for topicID, n := range attempted {
		breakdown[topicID] = float64(correct[topicID]) / float64(n) * 100
	}
	return breakdown
}
