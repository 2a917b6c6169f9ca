package progression

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/testora-app/testora-api/internal/logger"
	"github.com/testora-app/testora-api/internal/models"
)

// DefaultPointThresholds are the ascending cumulative-point ceilings for each
// level: points below the first threshold are level 1, crossing the n-th
// threshold unlocks level n+1. Overridable at boot via LEVEL_POINT_THRESHOLDS.
var DefaultPointThresholds = []int{1000, 2100, 3300, 4600, 6000, 7500, 9200, 11000}

// ModeFloors maps a test mode to the minimum student level that unlocks it.
var ModeFloors = map[string]int{
	"level": 0,
	"exam":  6,
}

// IsModeAccessible reports whether a test mode is unlocked at the given
// level. Unknown modes are never accessible.
func IsModeAccessible(mode string, level int) bool {
	floor, ok := ModeFloors[mode]
	if !ok {
		return false
	}
	return level >= floor
}

// HistorySink records level transitions; the log is append-only.
type HistorySink interface {
	AppendLevellingHistory(ctx context.Context, entry *models.StudentLevellingHistory) error
}

// Progression recomputes a student's level from accumulated points and audits
// every transition.
type Progression struct {
	history    HistorySink
	thresholds []int
	log        *logger.Logger
}

func New(history HistorySink, thresholds []int, log *logger.Logger) *Progression {
	if len(thresholds) == 0 {
		thresholds = DefaultPointThresholds
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Progression{history: history, thresholds: thresholds, log: log}
}

// PointsLevel returns the level the given cumulative points correspond to: a
// bisect-right over the sorted thresholds, level 1 below the smallest one
// (a cold-start student legitimately has zero points), capped at the maximum
// level.
func (p *Progression) PointsLevel(points float64) int {
	crossed := sort.Search(len(p.thresholds), func(i int) bool {
		return float64(p.thresholds[i]) > points
	})
	level := crossed + 1
	if level > models.MaxLevel {
		level = models.MaxLevel
	}
	return level
}

// CheckAndLevelUp recomputes the level from the row's points and, when it
// differs from the current level in either direction, appends exactly one
// history entry and updates the row in memory. The caller persists the row.
func (p *Progression) CheckAndLevelUp(ctx context.Context, ssl *models.StudentSubjectLevel) (bool, error) {
	newLevel := p.PointsLevel(ssl.Points)
	if newLevel == ssl.Level {
		return false, nil
	}

	entry := &models.StudentLevellingHistory{
		StudentID: ssl.StudentID,
		SubjectID: ssl.SubjectID,
		LevelFrom: ssl.Level,
		LevelTo:   newLevel,
		CreatedAt: time.Now(),
	}
	if err := p.history.AppendLevellingHistory(ctx, entry); err != nil {
		return false, fmt.Errorf("failed to record level transition: %w", err)
	}

	p.log.Info("student level changed",
		"student_id", ssl.StudentID,
		"subject_id", ssl.SubjectID,
		"level_from", ssl.Level,
		"level_to", newLevel,
	)

	ssl.Level = newLevel
	return true, nil
}
