package models

import "time"

// StudentSubjectLevel holds the current level and cumulative points of a
// student in one subject. One row per (student, subject), created lazily at
// level 1 / 0 points on the first test request.
type StudentSubjectLevel struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	StudentID string    `bson:"student_id" json:"student_id"`
	SubjectID string    `bson:"subject_id" json:"subject_id"`
	Level     int       `bson:"level" json:"level"`
	Points    float64   `bson:"points" json:"points"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// StudentLevellingHistory is an append-only audit log of level transitions.
type StudentLevellingHistory struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	StudentID string    `bson:"student_id" json:"student_id"`
	SubjectID string    `bson:"subject_id" json:"subject_id"`
	LevelFrom int       `bson:"level_from" json:"level_from"`
	LevelTo   int       `bson:"level_to" json:"level_to"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// StudentTopicScore captures the score achieved on one topic within one test.
// Unique per (student, subject, test, topic); written as an idempotent upsert.
type StudentTopicScore struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	StudentID string    `bson:"student_id" json:"student_id"`
	SubjectID string    `bson:"subject_id" json:"subject_id"`
	TestID    string    `bson:"test_id" json:"test_id"`
	TopicID   string    `bson:"topic_id" json:"topic_id"`
	Score     float64   `bson:"score" json:"score"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
