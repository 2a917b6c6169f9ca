package models

import "time"

type Subject struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	SchoolID    string    `bson:"school_id" json:"school_id"`
	Name        string    `bson:"name" json:"name"`
	MaxDuration int       `bson:"max_duration" json:"max_duration"` // minutes for a full-size test
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// Topic carries the difficulty level; every question inherits it.
type Topic struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	SubjectID string    `bson:"subject_id" json:"subject_id"`
	Name      string    `bson:"name" json:"name"`
	Level     int       `bson:"level" json:"level"` // 1-9
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
