package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	defaultMaxImageWidth      = 1200
	defaultJPEGQuality        = 85
	defaultNumImageWorkers    = 4
	defaultJWTExpirationHours = 24
	defaultPerPage            = 20
	defaultReporterID         = 1
)

type Config struct {
	// database path
	DatabasePath string

	// uploads storage configuration
	UploadsPath string

	// image normalization settings
	MaxImageWidth   int
	JPEGQuality     int
	NumImageWorkers int

	// auth settings
	JWTSecret          string
	JWTExpirationHours int

	// reporter assigned to anonymous submissions
	DefaultReporterID uint

	// listing defaults
	DefaultPerPage int

	// allowed CORS origins
	CORSOrigins []string
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		slog.Warn("invalid env var, using default", "var", envVar, "value", valStr, "default", defaultVal)
		return defaultVal
	}
	return val
}

func LoadConfig() (Config, error) {
	dbPath := getEnvOrDefault("DATABASE_PATH", "reunite.db")

	uploads := getEnvOrDefault("UPLOADS_PATH", filepath.Join(".", "uploads"))
	absUploads, err := filepath.Abs(uploads)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for uploads directory '%s': %w", uploads, err)
	}

	secret := getEnvOrDefault("JWT_SECRET", "")
	if secret == "" {
		slog.Warn("JWT_SECRET not set, using insecure development default")
		secret = "reunite-dev-secret-change-me"
	}

	origins := strings.Split(getEnvOrDefault("CORS_ORIGINS", "http://localhost:5173"), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	cfg := Config{
		DatabasePath:       dbPath,
		UploadsPath:        absUploads,
		MaxImageWidth:      getEnvIntOrDefault("MAX_IMAGE_WIDTH", defaultMaxImageWidth),
		JPEGQuality:        getEnvIntOrDefault("JPEG_QUALITY", defaultJPEGQuality),
		NumImageWorkers:    getEnvIntOrDefault("NUM_IMAGE_WORKERS", defaultNumImageWorkers),
		JWTSecret:          secret,
		JWTExpirationHours: getEnvIntOrDefault("JWT_EXPIRATION_HOURS", defaultJWTExpirationHours),
		DefaultReporterID:  uint(getEnvIntOrDefault("DEFAULT_REPORTER_ID", defaultReporterID)),
		DefaultPerPage:     getEnvIntOrDefault("DEFAULT_PER_PAGE", defaultPerPage),
		CORSOrigins:        origins,
	}

	return cfg, nil
}
