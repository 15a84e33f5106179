package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/penmark-edu/penmark-api/internal/config"
	"github.com/penmark-edu/penmark-api/internal/database"
	"github.com/penmark-edu/penmark-api/internal/handler"
	"github.com/penmark-edu/penmark-api/internal/middleware"
	"github.com/penmark-edu/penmark-api/internal/models"
	"github.com/penmark-edu/penmark-api/internal/repository"
	"github.com/penmark-edu/penmark-api/internal/router"
	"github.com/penmark-edu/penmark-api/internal/service"
	"github.com/penmark-edu/penmark-api/pkg/ai"
	cloud "github.com/penmark-edu/penmark-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Teacher{},
		&models.Student{},
		&models.ExamTemplate{},
		&models.RubricQuestion{},
		&models.Submission{},
		&models.GradingResult{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	grader, err := buildGrader(cfg, logger)
	if err != nil {
		log.Fatalf("failed to create ai grader: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	teacherRepo := repository.NewTeacherRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	examRepo := repository.NewExamTemplateRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	gradingRepo := repository.NewGradingRepository(db)

	thresholdService := service.NewThresholdService(teacherRepo, redisClient, cfg.ThresholdCacheTTL, logger)
	uploadService := service.NewUploadService(uploader, submissionRepo, examRepo, studentRepo, cfg.UploadMaxMB, logger)
	gradingService := service.NewGradingService(submissionRepo, gradingRepo, thresholdService, grader, logger)
	reviewService := service.NewReviewService(gradingRepo, logger)
	rosterService := service.NewRosterService(studentRepo, examRepo, logger)
	seedService := service.NewSeedService(studentRepo, examRepo, cfg.SeedEnabled, cfg.SeedToken, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		SubmissionHandler: handler.NewSubmissionHandler(uploadService, submissionRepo, validate, logger),
		GradingHandler:    handler.NewGradingHandler(gradingService, logger),
		ReviewHandler:     handler.NewReviewHandler(reviewService, validate, logger),
		ThresholdHandler:  handler.NewThresholdHandler(thresholdService, validate, logger),
		RosterHandler:     handler.NewRosterHandler(rosterService, validate, logger),
		SeedHandler:       handler.NewSeedHandler(seedService, logger),
		TeacherAuth:       middleware.TeacherIdentity(cfg.JWTSecret),
		UploadRateLimit:   middleware.RateLimit("submissions", 30, time.Minute),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func buildGrader(cfg config.Config, logger zerolog.Logger) (ai.Grader, error) {
	switch cfg.AIProvider {
	case "anthropic":
		return ai.NewAnthropicGrader(ai.AnthropicConfig{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.AIModel,
		})
	default:
		return ai.NewOpenAIGrader(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.AIModel,
			Logger: logger,
		})
	}
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
