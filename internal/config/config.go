package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/testora-app/testora-api/internal/adaptive"
	"github.com/testora-app/testora-api/internal/logger"
	"github.com/testora-app/testora-api/internal/models"
	"github.com/testora-app/testora-api/internal/progression"
)

// Config is loaded once at boot. Every tunable the engine consumes is fixed
// after Load returns.
type Config struct {
	Port            string
	MongoURI        string
	MongoDatabase   string
	RabbitURI       string
	RabbitExchange  string
	LogMode         string
	AllowOrigins    []string
	Adaptive        *adaptive.Config
	PointThresholds []int
}

func Load(log *logger.Logger) *Config {
	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, using system env")
	}

	cfg := &Config{
		Port:            getEnv("PORT", "6660"),
		MongoURI:        os.Getenv("MONGO_URI"),
		MongoDatabase:   getEnv("MONGO_DATABASE", "testing_engine"),
		RabbitURI:       os.Getenv("RABBITMQ_URI"),
		RabbitExchange:  os.Getenv("RABBITMQ_EXCHANGE"),
		LogMode:         getEnv("LOG_MODE", "development"),
		AllowOrigins:    strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		Adaptive:        adaptive.DefaultConfig(),
		PointThresholds: progression.DefaultPointThresholds,
	}

	cfg.Adaptive.LookbackTests = getEnvInt("ADAPTIVE_LOOKBACK_TESTS", cfg.Adaptive.LookbackTests, log)
	cfg.Adaptive.MinPerLevel = getEnvInt("ADAPTIVE_MIN_PER_LEVEL", cfg.Adaptive.MinPerLevel, log)
	cfg.Adaptive.MasteredThreshold = getEnvFloat("PERF_MASTERED_THRESHOLD", cfg.Adaptive.MasteredThreshold, log)
	cfg.Adaptive.CriticalThreshold = getEnvFloat("PERF_CRITICAL_THRESHOLD", cfg.Adaptive.CriticalThreshold, log)
	cfg.Adaptive.FailureBoost = getEnvFloat("SELECT_FAILURE_BOOST", cfg.Adaptive.FailureBoost, log)
	cfg.Adaptive.SameDayFactor = getEnvFloat("SELECT_SAME_DAY_FACTOR", cfg.Adaptive.SameDayFactor, log)
	cfg.Adaptive.RecentFactor = getEnvFloat("SELECT_RECENT_FACTOR", cfg.Adaptive.RecentFactor, log)

	if raw := os.Getenv("LEVEL_POINT_THRESHOLDS"); raw != "" {
		if thresholds := parseIntList(raw, log); len(thresholds) > 0 {
			cfg.PointThresholds = thresholds
		}
	}
	applyLevelTable(os.Getenv("LEVEL_QUESTION_LIMITS"), models.LevelQuestionLimits, log)
	applyMultiplierTable(os.Getenv("LEVEL_POINT_MULTIPLIERS"), models.QuestionPoints, log)

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int, log *logger.Logger) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		log.Warn("invalid int env value, using default", "key", key, "value", v)
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64, log *logger.Logger) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warn("invalid float env value, using default", "key", key, "value", v)
		return fallback
	}
	return parsed
}

func parseIntList(raw string, log *logger.Logger) []int {
	parts := strings.Split(raw, ",")
	values := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			log.Warn("invalid threshold list entry, ignoring override", "value", part)
			return nil
		}
		values = append(values, n)
	}
	return values
}

// applyLevelTable overwrites a level table in place from a comma-separated
// list starting at level 1. Partial lists override a prefix of levels.
func applyLevelTable(raw string, table map[int]int, log *logger.Logger) {
	if raw == "" {
		return
	}
	for i, part := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			log.Warn("invalid level table entry, ignoring rest", "value", part)
			return
		}
		table[i+1] = n
	}
}

func applyMultiplierTable(raw string, table map[int]float64, log *logger.Logger) {
	if raw == "" {
		return
	}
	for i, part := range strings.Split(raw, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			log.Warn("invalid multiplier table entry, ignoring rest", "value", part)
			return
		}
		table[i+1] = f
	}
}
