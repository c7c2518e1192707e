package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/anu100405/REUNITE/config"
	"github.com/anu100405/REUNITE/database"
	"github.com/anu100405/REUNITE/handlers"
	"github.com/anu100405/REUNITE/media"
	"github.com/anu100405/REUNITE/models"
	"github.com/anu100405/REUNITE/pkg/logging"
	"github.com/anu100405/REUNITE/repository"
	"github.com/anu100405/REUNITE/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded", "error", err)
	}
	logging.Setup()

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	for _, p := range []string{cfg.UploadsPath, filepath.Dir(cfg.DatabasePath)} {
		if err := os.MkdirAll(p, 0755); err != nil {
			slog.Error("failed to create storage directory", "path", p, "error", err)
			os.Exit(1)
		}
	}

	db, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}
	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("failed to get sql.DB handle", "error", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	store, err := media.NewLocalUploadStore(cfg.UploadsPath, cfg.MaxImageWidth, cfg.JPEGQuality, cfg.NumImageWorkers)
	if err != nil {
		slog.Error("failed to initialize upload store", "error", err)
		os.Exit(1)
	}

	caseRepo := repository.NewGormCaseRepository(db)
	userRepo := repository.NewGormUserRepository(db)

	if err := ensureDefaultReporter(db, cfg.DefaultReporterID); err != nil {
		slog.Error("failed to ensure default reporter", "error", err)
		os.Exit(1)
	}

	detector := services.NewDuplicateDetector(caseRepo)
	submissions := services.NewSubmissionService(caseRepo, detector, store)
	query := services.NewCaseQueryService(sqlDB, caseRepo, cfg.DefaultPerPage)

	jwtExpiration := time.Duration(cfg.JWTExpirationHours) * time.Hour
	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret, jwtExpiration)
	mpHandler := &handlers.MissingPersonHandler{
		Submissions:       submissions,
		Query:             query,
		Cases:             caseRepo,
		Store:             store,
		DefaultReporterID: cfg.DefaultReporterID,
	}
	uploadsHandler := &handlers.UploadsHandler{Store: store}

	r := handlers.NewRouter(handlers.RouterDeps{
		Auth:           authHandler,
		MissingPersons: mpHandler,
		Uploads:        uploadsHandler,
		Users:          userRepo,
		JWTSecret:      []byte(cfg.JWTSecret),
		CORSOrigins:    cfg.CORSOrigins,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	serverAddr := ":" + port

	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	slog.Info("server listening", "addr", serverAddr)
	if err := server.ListenAndServe(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// ensureDefaultReporter guarantees the reporter row anonymous submissions
// reference exists. The account gets an unguessable password; it is a row to
// hang foreign keys on, not a login.
func ensureDefaultReporter(db *gorm.DB, id uint) error {
	var user models.User
	err := db.First(&user, id).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up default reporter %d: %w", id, err)
	}

	system := models.User{
		ID:       id,
		Username: "system",
		Email:    "system@reunite.local",
	}
	if err := system.SetPassword(uuid.New().String()); err != nil {
		return err
	}
	if err := db.Create(&system).Error; err != nil {
		return fmt.Errorf("failed to create default reporter: %w", err)
	}
	slog.Info("created default reporter account", "id", id)
	return nil
}
