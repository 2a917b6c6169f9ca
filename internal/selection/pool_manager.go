package selection

import (
	"context"
	"fmt"

	"github.com/testora-app/testora-api/internal/models"
)

// QuestionSource supplies active (non-deleted, non-flagged) questions from
// the subject's bank.
type QuestionSource interface {
	FindActiveBySubjectLevel(ctx context.Context, subjectID string, level int, excludeIDs []string) ([]models.Question, error)
	FindActiveByTopic(ctx context.Context, topicID string, excludeIDs []string) ([]models.Question, error)
	FindActiveBySubjectMaxLevel(ctx context.Context, subjectID string, maxLevel int, excludeIDs []string) ([]models.Question, error)
}

// PoolManager manages per-level question pools and the fallback strategies
// used when a level's bank runs short.
type PoolManager struct {
	questions QuestionSource
	selector  *WeightedSelector
}

func NewPoolManager(questions QuestionSource) *PoolManager {
	return &PoolManager{
		questions: questions,
		selector:  NewWeightedSelector(),
	}
}

// SelectForLevel picks up to count questions at one level of a subject via
// weighted sampling without replacement. A short result is not an error;
// the caller backfills the shortage.
func (pm *PoolManager) SelectForLevel(
	ctx context.Context,
	subjectID string,
	level int,
	count int,
	weightFn WeightFunc,
	excludeIDs []string,
) ([]models.Question, error) {
	pool, err := pm.questions.FindActiveBySubjectLevel(ctx, subjectID, level, excludeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load level %d pool: %w", level, err)
	}
	return pm.selector.Select(pool, weightFn, count), nil
}

// Backfill covers a selection shortage. Mastered topics are tried first in
// the given order (least safely mastered first), excluding only the already
// delivered selectedIDs; whatever is still missing comes from any unexplored
// question of the subject at or below maxLevel, in random order, additionally
// skipping recentIDs. The result may still be short when the whole bank is
// exhausted.
func (pm *PoolManager) Backfill(
	ctx context.Context,
	subjectID string,
	maxLevel int,
	masteredTopics []string,
	needed int,
	selectedIDs []string,
	recentIDs []string,
) ([]models.Question, error) {
	filled := make([]models.Question, 0, needed)
	exclude := append([]string{}, selectedIDs...)

	for _, topicID := range masteredTopics {
		if len(filled) >= needed {
			break
		}
		pool, err := pm.questions.FindActiveByTopic(ctx, topicID, exclude)
		if err != nil {
			return nil, fmt.Errorf("failed to load mastered topic %s pool: %w", topicID, err)
		}
		pm.selector.Shuffle(pool)
		for _, q := range pool {
			if len(filled) >= needed {
				break
			}
			filled = append(filled, q)
			exclude = append(exclude, q.ID)
		}
	}

	if len(filled) < needed {
		exclude = append(exclude, recentIDs...)
		pool, err := pm.questions.FindActiveBySubjectMaxLevel(ctx, subjectID, maxLevel, exclude)
		if err != nil {
			return nil, fmt.Errorf("failed to load fallback pool: %w", err)
		}
		pm.selector.Shuffle(pool)
		for _, q := range pool {
			if len(filled) >= needed {
				break
			}
			filled = append(filled, q)
		}
	}

	return filled, nil
}

// Shuffle exposes the selector's shuffle for the final ordering pass.
func (pm *PoolManager) Shuffle(questions []models.Question) {
	pm.selector.Shuffle(questions)
}

// Availability reports how many active questions each level of a subject's
// bank holds, up to maxLevel.
func (pm *PoolManager) Availability(ctx context.Context, subjectID string, maxLevel int) ([]LevelAvailability, error) {
	availability := make([]LevelAvailability, 0, maxLevel)
	for level := models.MinLevel; level <= maxLevel; level++ {
		pool, err := pm.questions.FindActiveBySubjectLevel(ctx, subjectID, level, nil)
		if err != nil {
			return nil, err
		}
		availability = append(availability, LevelAvailability{Level: level, Available: len(pool)})
	}
	return availability, nil
}
