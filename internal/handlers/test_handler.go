package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/testora-app/testora-api/internal/models"
	"github.com/testora-app/testora-api/internal/repository"
	"github.com/testora-app/testora-api/internal/scoring"
	"github.com/testora-app/testora-api/internal/service"
)

type TestHandler struct {
	Service  *service.TestService
	Metrics  *service.MetricsService
	Subjects *repository.SubjectRepository
	Students *repository.StudentRepository
}

func NewTestHandler(s *service.TestService, m *service.MetricsService, subjects *repository.SubjectRepository, students *repository.StudentRepository) *TestHandler {
	return &TestHandler{
		Service:  s,
		Metrics:  m,
		Subjects: subjects,
		Students: students,
	}
}

func identityFrom(c *gin.Context) service.Identity {
	return service.Identity{
		StudentID: c.GetHeader("X-User-ID"),
		SchoolID:  c.GetHeader("X-School-ID"),
	}
}

// CreateTest generates a new adaptive test for the caller.
func (h *TestHandler) CreateTest(c *gin.Context) {
	var req struct {
		SubjectID string `json:"subject_id" binding:"required"`
		Mode      string `json:"mode"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
		return
	}

	test, err := h.Service.GenerateAdaptiveTest(context.Background(), identityFrom(c), req.SubjectID, req.Mode)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrModeLocked):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Test mode is locked for your current level"})
		case errors.Is(err, service.ErrEmptyBank):
			c.JSON(http.StatusConflict, gin.H{"error": "No questions available for this subject"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to create test",
				"details": err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"test":           test.Redacted(),
		"duration":       h.testDuration(test),
		"question_count": len(test.Questions),
	})
}

// testDuration derives the delivery duration (minutes) from the subject's
// max duration and the delivered question count.
func (h *TestHandler) testDuration(test *models.Test) int {
	subject, err := h.Subjects.FindByID(context.Background(), test.SubjectID)
	if err != nil || subject == nil || subject.MaxDuration <= 0 {
		return len(test.Questions)
	}
	full := models.QuestionLimitForLevel(models.MaxLevel)
	duration := subject.MaxDuration * len(test.Questions) / full
	if duration < 1 {
		duration = 1
	}
	return duration
}

// MarkTest marks a submitted test and reveals the correct answers.
func (h *TestHandler) MarkTest(c *gin.Context) {
	testID := c.Param("id")

	var req struct {
		Questions    []scoring.SubmittedQuestion `json:"questions" binding:"required"`
		DeductPoints bool                        `json:"deduct_points"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid submission format",
			"details": err.Error(),
		})
		return
	}

	test, err := h.Service.MarkTest(context.Background(), identityFrom(c), testID, req.Questions, req.DeductPoints)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTestNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Test not found"})
		case errors.Is(err, service.ErrTestCompleted):
			c.JSON(http.StatusConflict, gin.H{"error": "Test already completed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to mark test",
				"details": err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"test":      test,
		"marked_at": time.Now(),
	})
}

// GetTest returns a test owned by the caller. In-progress tests stay
// redacted.
func (h *TestHandler) GetTest(c *gin.Context) {
	test, err := h.Service.GetTest(context.Background(), identityFrom(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrTestNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Test not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to load test",
				"details": err.Error(),
			})
		}
		return
	}
	if !test.IsCompleted {
		c.JSON(http.StatusOK, test.Redacted())
		return
	}
	c.JSON(http.StatusOK, test)
}

// GetAdaptationMetrics returns the level/topic distribution of a test.
func (h *TestHandler) GetAdaptationMetrics(c *gin.Context) {
	metrics, err := h.Metrics.AdaptationMetrics(context.Background(), identityFrom(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrTestNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Test not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to load test",
				"details": err.Error(),
			})
		}
		return
	}
	c.JSON(http.StatusOK, metrics)
}

// GetImprovementTrend classifies the caller's recent score trajectory.
func (h *TestHandler) GetImprovementTrend(c *gin.Context) {
	subjectID := c.Query("subject_id")
	if subjectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subject_id is required"})
		return
	}
	lookback, err := strconv.Atoi(c.DefaultQuery("tests", "5"))
	if err != nil {
		lookback = 5
	}

	trend, err := h.Metrics.ImprovementTrend(context.Background(), identityFrom(c), subjectID, lookback)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to compute trend",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, trend)
}

// GetPoolInfo reports bank availability against the caller's distribution.
func (h *TestHandler) GetPoolInfo(c *gin.Context) {
	subjectID := c.Query("subject_id")
	if subjectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subject_id is required"})
		return
	}

	info, err := h.Service.PoolInfo(context.Background(), identityFrom(c), subjectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get pool info",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"pool_info":  info,
		"subject_id": subjectID,
	})
}

// GetProgression returns the caller's level, points and the levelling audit
// log for one subject.
func (h *TestHandler) GetProgression(c *gin.Context) {
	subjectID := c.Query("subject_id")
	if subjectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subject_id is required"})
		return
	}
	studentID := c.GetHeader("X-User-ID")

	ssl, err := h.Students.GetOrCreateSubjectLevel(context.Background(), studentID, subjectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	history, err := h.Students.FindLevellingHistory(context.Background(), studentID, subjectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"level":   ssl.Level,
		"points":  ssl.Points,
		"history": history,
	})
}

// HealthCheck for the testing engine.
func (h *TestHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":   "testora-testing-engine",
		"status":    "healthy",
		"timestamp": time.Now(),
	})
}
