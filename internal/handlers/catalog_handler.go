package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/testora-app/testora-api/internal/models"
	"github.com/testora-app/testora-api/internal/repository"
)

// CatalogHandler maintains the subject/topic catalog the question bank hangs
// off of.
type CatalogHandler struct {
	Subjects *repository.SubjectRepository
	Topics   *repository.TopicRepository
}

func NewCatalogHandler(subjects *repository.SubjectRepository, topics *repository.TopicRepository) *CatalogHandler {
	return &CatalogHandler{Subjects: subjects, Topics: topics}
}

func (h *CatalogHandler) CreateSubject(c *gin.Context) {
	var subject models.Subject
	if err := c.ShouldBindJSON(&subject); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if subject.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	subject.SchoolID = c.GetHeader("X-School-ID")
	subject.CreatedAt = time.Now()

	if err := h.Subjects.Create(context.Background(), &subject); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, subject)
}

func (h *CatalogHandler) GetSubject(c *gin.Context) {
	subject, err := h.Subjects.FindByID(context.Background(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subject not found"})
		return
	}
	c.JSON(http.StatusOK, subject)
}

func (h *CatalogHandler) CreateTopic(c *gin.Context) {
	var topic models.Topic
	if err := c.ShouldBindJSON(&topic); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if topic.SubjectID == "" || topic.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subject_id and name are required"})
		return
	}
	if topic.Level < models.MinLevel || topic.Level > models.MaxLevel {
		c.JSON(http.StatusBadRequest, gin.H{"error": "level must be between 1 and 9"})
		return
	}
	if _, err := h.Subjects.FindByID(context.Background(), topic.SubjectID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Subject not found"})
		return
	}
	topic.CreatedAt = time.Now()

	if err := h.Topics.Create(context.Background(), &topic); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, topic)
}

func (h *CatalogHandler) ListTopics(c *gin.Context) {
	topics, err := h.Topics.FindBySubject(context.Background(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"topics": topics, "count": len(topics)})
}
