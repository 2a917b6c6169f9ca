package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/testora-app/testora-api/internal/adaptive"
	"github.com/testora-app/testora-api/internal/event"
	"github.com/testora-app/testora-api/internal/logger"
	"github.com/testora-app/testora-api/internal/models"
	"github.com/testora-app/testora-api/internal/progression"
	"github.com/testora-app/testora-api/internal/scoring"
	"github.com/testora-app/testora-api/internal/selection"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrModeLocked    = errors.New("test mode not accessible at current level")
	ErrTestNotFound  = errors.New("test not found")
	ErrTestCompleted = errors.New("test already completed")
	ErrEmptyBank     = errors.New("no questions available for subject")
)

// Identity is the authenticated caller, resolved by the gateway and passed
// explicitly into every operation.
type Identity struct {
	StudentID string
	SchoolID  string
}

// TestStore is the persistence surface the orchestrator needs for tests.
type TestStore interface {
	Create(ctx context.Context, test *models.Test) error
	FindByID(ctx context.Context, id string) (*models.Test, error)
	FindFinished(ctx context.Context, studentID, subjectID string, limit int64) ([]models.Test, error)
	CountFinished(ctx context.Context, studentID, subjectID string) (int64, error)
	CompleteMark(ctx context.Context, test *models.Test) error
}

// StudentStore covers subject-level rows and topic scores. Points flow only
// through AccumulatePoints so concurrent submissions never lose an update.
type StudentStore interface {
	GetOrCreateSubjectLevel(ctx context.Context, studentID, subjectID string) (*models.StudentSubjectLevel, error)
	AccumulatePoints(ctx context.Context, studentID, subjectID string, delta float64) (*models.StudentSubjectLevel, error)
	SetSubjectLevel(ctx context.Context, ssl *models.StudentSubjectLevel) error
	UpsertTopicScore(ctx context.Context, ts *models.StudentTopicScore) error
}

// Publisher is the one-way notification channel toward achievements and
// weekly goals. Failures are logged, never propagated.
type Publisher interface {
	Publish(eventType string, payload interface{}) error
}

// TestService orchestrates adaptive test generation and marking.
type TestService struct {
	tests       TestStore
	students    StudentStore
	analyzer    *adaptive.Analyzer
	engine      *adaptive.DistributionEngine
	pool        *selection.PoolManager
	scorer      *scoring.Engine
	progression *progression.Progression
	publisher   Publisher
	log         *logger.Logger
}

func NewTestService(
	tests TestStore,
	students StudentStore,
	analyzer *adaptive.Analyzer,
	engine *adaptive.DistributionEngine,
	pool *selection.PoolManager,
	scorer *scoring.Engine,
	prog *progression.Progression,
	publisher Publisher,
	log *logger.Logger,
) *TestService {
	if log == nil {
		log = logger.NewNop()
	}
	return &TestService{
		tests:       tests,
		students:    students,
		analyzer:    analyzer,
		engine:      engine,
		pool:        pool,
		scorer:      scorer,
		progression: prog,
		publisher:   publisher,
		log:         log,
	}
}

// GenerateAdaptiveTest builds and persists a new in-progress test for the
// student: performance analysis, level distribution, per-level weighted
// selection with mastered-topic and unexplored-pool fallbacks, final shuffle.
// The returned test still carries correct answers; callers redact before
// delivery.
func (s *TestService) GenerateAdaptiveTest(ctx context.Context, student Identity, subjectID, mode string) (*models.Test, error) {
	if mode == "" {
		mode = "level"
	}

	ssl, err := s.students.GetOrCreateSubjectLevel(ctx, student.StudentID, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to init subject level: %w", err)
	}

	// Mode gating fails fast before any selection work; no partial test is
	// ever created for a locked mode.
	if !progression.IsModeAccessible(mode, ssl.Level) {
		return nil, ErrModeLocked
	}

	totalQuestions := models.QuestionLimitForLevel(ssl.Level)

	perf, err := s.analyzer.Analyze(ctx, student.StudentID, subjectID)
	if err != nil {
		return nil, err
	}

	distribution := s.engine.GenerateDistribution(totalQuestions, ssl.Level, perf)

	now := time.Now()
	weightFn := func(q *models.Question) float64 {
		return s.engine.QuestionSelectionWeight(q, perf, now)
	}

	var selected []models.Question
	var selectedIDs []string
	for level := models.MinLevel; level <= ssl.Level; level++ {
		count := distribution[level]
		if count == 0 {
			continue
		}
		picked, err := s.pool.SelectForLevel(ctx, subjectID, level, count, weightFn, selectedIDs)
		if err != nil {
			return nil, err
		}
		selected = append(selected, picked...)
		for _, q := range picked {
			selectedIDs = append(selectedIDs, q.ID)
		}
	}

	if len(selected) < totalQuestions {
		// Recently seen questions stay out of the unexplored fallback only;
		// the mastered-topic stage may repeat them.
		recent := make([]string, 0, len(perf.RecentQuestions))
		for id := range perf.RecentQuestions {
			recent = append(recent, id)
		}
		extra, err := s.pool.Backfill(ctx, subjectID, ssl.Level, perf.MasteredTopics, totalQuestions-len(selected), selectedIDs, recent)
		if err != nil {
			return nil, err
		}
		selected = append(selected, extra...)
	}

	if len(selected) == 0 {
		return nil, ErrEmptyBank
	}
	if len(selected) < totalQuestions {
		s.log.Warn("question bank exhausted, delivering short test",
			"subject_id", subjectID,
			"requested", totalQuestions,
			"delivered", len(selected),
		)
	}

	s.pool.Shuffle(selected)

	snapshot := make([]models.TestQuestion, len(selected))
	for i, q := range selected {
		snapshot[i] = models.TestQuestion{
			QuestionID:      q.ID,
			TopicID:         q.TopicID,
			Level:           q.Level,
			Content:         q.Content,
			PossibleAnswers: q.PossibleAnswers,
			CorrectAnswer:   q.CorrectAnswer,
			Points:          q.PointValue(),
		}
	}

	test := &models.Test{
		StudentID:   student.StudentID,
		SubjectID:   subjectID,
		Mode:        mode,
		Questions:   snapshot,
		TotalPoints: models.TotalTestPoints(snapshot),
		TotalScore:  models.DefaultTotalScore,
		StartedOn:   now,
		IsCompleted: false,
	}
	if err := s.tests.Create(ctx, test); err != nil {
		return nil, fmt.Errorf("failed to persist test: %w", err)
	}

	s.notify(event.TestCreated, map[string]interface{}{
		"student_id": student.StudentID,
		"subject_id": subjectID,
		"test_id":    test.ID,
		"mode":       mode,
		"questions":  len(snapshot),
	})

	return test, nil
}

// MarkTest marks a submitted test, completes it atomically, records topic
// scores, accumulates points, runs level progression and notifies the
// achievement/goal services. The persisted score is the durable source of
// truth; notification failures never roll it back.
func (s *TestService) MarkTest(
	ctx context.Context,
	student Identity,
	testID string,
	submitted []scoring.SubmittedQuestion,
	deductPoints bool,
) (*models.Test, error) {
	test, err := s.loadOwnedTest(ctx, student, testID)
	if err != nil {
		return nil, err
	}
	if test.IsCompleted {
		return nil, ErrTestCompleted
	}

	marked, err := s.scorer.MarkTest(ctx, s.restrictToSnapshot(test, submitted), deductPoints)
	if err != nil {
		return nil, err
	}

	s.applyMarking(test, marked)

	test.PointsAcquired = marked.PointsAcquired
	test.ScoreAcquired = marked.ScoreAcquired
	test.FinishedOn = time.Now()
	test.IsCompleted = true

	breakdown := test.TopicBreakdown()
	if test.Metadata == nil {
		test.Metadata = map[string]interface{}{}
	}
	test.Metadata["topic_breakdown"] = breakdown

	if err := s.tests.CompleteMark(ctx, test); err != nil {
		return nil, fmt.Errorf("failed to complete test: %w", err)
	}

	for topicID, score := range breakdown {
		ts := &models.StudentTopicScore{
			StudentID: student.StudentID,
			SubjectID: test.SubjectID,
			TestID:    test.ID,
			TopicID:   topicID,
			Score:     score,
		}
		if err := s.students.UpsertTopicScore(ctx, ts); err != nil {
			s.log.Error("failed to record topic score", "topic_id", topicID, "error", err)
		}
	}

	if err := s.accumulateAndLevel(ctx, student, test); err != nil {
		s.log.Error("level progression failed", "test_id", test.ID, "error", err)
	}

	s.emitCompletionEvents(ctx, student, test)

	return test, nil
}

// restrictToSnapshot drops submissions for questions the test never delivered
// and keeps only the first answer per question, so a crafted submission cannot
// score past the delivered set.
func (s *TestService) restrictToSnapshot(test *models.Test, submitted []scoring.SubmittedQuestion) []scoring.SubmittedQuestion {
	delivered := make(map[string]bool, len(test.Questions))
	for _, q := range test.Questions {
		delivered[q.QuestionID] = true
	}
	kept := make([]scoring.SubmittedQuestion, 0, len(test.Questions))
	for _, sub := range submitted {
		if !delivered[sub.ID] {
			continue
		}
		delivered[sub.ID] = false
		kept = append(kept, sub)
	}
	if dropped := len(submitted) - len(kept); dropped > 0 {
		s.log.Warn("ignoring submissions outside the delivered question set",
			"test_id", test.ID,
			"dropped", dropped,
		)
	}
	return kept
}

// applyMarking merges the marked outcome into the stored snapshot so the
// snapshot stays the single record of what was delivered and answered.
// Questions that vanished from the bank keep their snapshot entry with no
// student answer recorded.
func (s *TestService) applyMarking(test *models.Test, marked *scoring.MarkResult) {
	byID := make(map[string]models.TestQuestion, len(marked.Questions))
	for _, q := range marked.Questions {
		byID[q.QuestionID] = q
	}
	for i, q := range test.Questions {
		if m, ok := byID[q.QuestionID]; ok {
			test.Questions[i].StudentAnswer = m.StudentAnswer
		}
	}
}

// accumulateAndLevel adds the test score through an atomic increment and
// recomputes the level from the post-increment row, so two concurrent
// submissions for the same (student, subject) both land.
func (s *TestService) accumulateAndLevel(ctx context.Context, student Identity, test *models.Test) error {
	ssl, err := s.students.AccumulatePoints(ctx, student.StudentID, test.SubjectID, float64(test.ScoreAcquired))
	if err != nil {
		return err
	}
	changed, err := s.progression.CheckAndLevelUp(ctx, ssl)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return s.students.SetSubjectLevel(ctx, ssl)
}

func (s *TestService) emitCompletionEvents(ctx context.Context, student Identity, test *models.Test) {
	testCount, err := s.tests.CountFinished(ctx, student.StudentID, test.SubjectID)
	if err != nil {
		s.log.Warn("failed to count finished tests", "error", err)
	}

	s.notify(event.TestCompleted, map[string]interface{}{
		"student_id":     student.StudentID,
		"subject_id":     test.SubjectID,
		"test_id":        test.ID,
		"score_acquired": test.ScoreAcquired,
		"test_count":     testCount,
	})

	s.notify(event.GoalProgress, map[string]interface{}{
		"student_id":     student.StudentID,
		"xp_earned":      test.ScoreAcquired,
		"current_streak": s.currentStreak(ctx, student, test.SubjectID),
	})
}

// currentStreak counts consecutive calendar days with at least one finished
// test, ending today. Feeds the weekly-goal notification only; failures are
// reported as a zero streak.
func (s *TestService) currentStreak(ctx context.Context, student Identity, subjectID string) int {
	tests, err := s.tests.FindFinished(ctx, student.StudentID, subjectID, 30)
	if err != nil {
		s.log.Warn("failed to load tests for streak", "error", err)
		return 0
	}

	days := make(map[string]bool, len(tests))
	for _, t := range tests {
		days[t.FinishedOn.Format("2006-01-02")] = true
	}

	streak := 0
	day := time.Now()
	for days[day.Format("2006-01-02")] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

func (s *TestService) notify(eventType string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(eventType, payload); err != nil {
		s.log.Warn("event publish failed", "type", eventType, "error", err)
	}
}

// GetTest fetches a test owned by the caller.
func (s *TestService) GetTest(ctx context.Context, student Identity, testID string) (*models.Test, error) {
	return s.loadOwnedTest(ctx, student, testID)
}

// loadOwnedTest resolves a test for the caller. Only a genuinely absent row
// (or one owned by someone else) reads as not found; storage failures keep
// their own error so they do not surface to clients as a 404.
func (s *TestService) loadOwnedTest(ctx context.Context, student Identity, testID string) (*models.Test, error) {
	test, err := s.tests.FindByID(ctx, testID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to load test: %w", err)
	}
	if test == nil || test.StudentID != student.StudentID {
		return nil, ErrTestNotFound
	}
	return test, nil
}

// PoolInfo reports the student's current distribution against the per-level
// availability of the subject's bank.
func (s *TestService) PoolInfo(ctx context.Context, student Identity, subjectID string) (map[string]interface{}, error) {
	ssl, err := s.students.GetOrCreateSubjectLevel(ctx, student.StudentID, subjectID)
	if err != nil {
		return nil, err
	}

	perf, err := s.analyzer.Analyze(ctx, student.StudentID, subjectID)
	if err != nil {
		return nil, err
	}

	totalQuestions := models.QuestionLimitForLevel(ssl.Level)
	distribution := s.engine.GenerateDistribution(totalQuestions, ssl.Level, perf)

	availability, err := s.pool.Availability(ctx, subjectID, ssl.Level)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"student_level":   ssl.Level,
		"student_points":  ssl.Points,
		"total_questions": totalQuestions,
		"distribution":    distribution,
		"availability":    availability,
		"mastered_topics": perf.MasteredTopics,
		"critical_topics": perf.CriticalTopics,
	}, nil
}
