package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/testora-app/testora-api/internal/adaptive"
	"github.com/testora-app/testora-api/internal/config"
	"github.com/testora-app/testora-api/internal/db"
	"github.com/testora-app/testora-api/internal/event"
	"github.com/testora-app/testora-api/internal/handlers"
	"github.com/testora-app/testora-api/internal/logger"
	"github.com/testora-app/testora-api/internal/progression"
	"github.com/testora-app/testora-api/internal/repository"
	"github.com/testora-app/testora-api/internal/scoring"
	"github.com/testora-app/testora-api/internal/selection"
	"github.com/testora-app/testora-api/internal/service"
)

func main() {
	bootLog, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		panic(err)
	}

	cfg := config.Load(bootLog)
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		log = bootLog
	}
	defer log.Sync()
	if cfg.MongoURI == "" {
		log.Fatal("MONGO_URI is required")
	}

	client, err := db.Connect(cfg.MongoURI)
	if err != nil {
		log.Fatal("failed to connect to MongoDB", "error", err)
	}
	defer client.Disconnect(context.Background())
	database := client.Database(cfg.MongoDatabase)

	// RabbitMQ event publisher
	var publisher service.Publisher
	var amqpPublisher *event.EventPublisher
	if cfg.RabbitURI != "" && cfg.RabbitExchange != "" {
		amqpPublisher, err = event.NewEventPublisher(cfg.RabbitURI, cfg.RabbitExchange, log)
		if err != nil {
			log.Fatal("failed to connect to RabbitMQ", "error", err)
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	} else {
		log.Info("RabbitMQ not configured, events will not be published")
	}

	// Repositories
	questionRepo := repository.NewQuestionRepository(database)
	topicRepo := repository.NewTopicRepository(database)
	subjectRepo := repository.NewSubjectRepository(database)
	testRepo := repository.NewTestRepository(database)
	studentRepo := repository.NewStudentRepository(database)

	if err := studentRepo.EnsureIndexes(context.Background()); err != nil {
		log.Fatal("failed to ensure indexes", "error", err)
	}

	// Engine components
	analyzer := adaptive.NewAnalyzer(testRepo, studentRepo, cfg.Adaptive)
	distEngine := adaptive.NewDistributionEngine(cfg.Adaptive)
	poolManager := selection.NewPoolManager(questionRepo)
	scorer := scoring.NewEngine(questionRepo, log)
	prog := progression.New(studentRepo, cfg.PointThresholds, log)

	// Services
	testService := service.NewTestService(
		testRepo,
		studentRepo,
		analyzer,
		distEngine,
		poolManager,
		scorer,
		prog,
		publisher,
		log,
	)
	metricsService := service.NewMetricsService(testRepo)
	questionService := service.NewQuestionService(questionRepo, topicRepo)

	testHandler := handlers.NewTestHandler(testService, metricsService, subjectRepo, studentRepo)
	questionHandler := handlers.NewQuestionHandler(questionService)
	catalogHandler := handlers.NewCatalogHandler(subjectRepo, topicRepo)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "accept", "origin", "Cache-Control", "X-Requested-With", "X-User-ID", "X-School-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	public := r.Group("/public/testing")
	{
		public.GET("/health", testHandler.HealthCheck)
	}

	protected := r.Group("/protected/testing")
	protected.Use(requireUser())
	{
		protected.POST("/test", testHandler.CreateTest)
		protected.GET("/test/:id", testHandler.GetTest)
		protected.POST("/test/:id/mark", testHandler.MarkTest)
		protected.GET("/test/:id/metrics", testHandler.GetAdaptationMetrics)
		protected.GET("/trend", testHandler.GetImprovementTrend)
		protected.GET("/progression", testHandler.GetProgression)
		protected.GET("/pool/info", testHandler.GetPoolInfo)
	}

	protectedQuestion := r.Group("/protected/testing/question")
	protectedQuestion.Use(requireUser())
	{
		protectedQuestion.POST("/", questionHandler.CreateQuestion)
		protectedQuestion.GET("/:id", questionHandler.GetQuestion)
		protectedQuestion.PUT("/:id", questionHandler.UpdateQuestion)
		protectedQuestion.PUT("/:id/flag", questionHandler.FlagQuestion)
		protectedQuestion.DELETE("/:id", questionHandler.DeleteQuestion)
		protectedQuestion.GET("/topic/:topicId", questionHandler.ListByTopic)
		protectedQuestion.POST("/:id/sub", questionHandler.CreateSubQuestion)
		protectedQuestion.GET("/:id/sub", questionHandler.ListSubQuestions)
	}

	protectedCatalog := r.Group("/protected/testing/catalog")
	protectedCatalog.Use(requireUser())
	{
		protectedCatalog.POST("/subject", catalogHandler.CreateSubject)
		protectedCatalog.GET("/subject/:id", catalogHandler.GetSubject)
		protectedCatalog.POST("/topic", catalogHandler.CreateTopic)
		protectedCatalog.GET("/subject/:id/topics", catalogHandler.ListTopics)
	}

	log.Info("testing engine listening", "port", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("server stopped", "error", err)
	}
}

// requireUser rejects requests without the gateway-injected identity header.
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-User-ID") == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
				"code":  "MISSING_USER_ID",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
