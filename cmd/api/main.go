package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"alfredoptarigan/assessment-engine/internal/config"
	"alfredoptarigan/assessment-engine/internal/handlers"
	"alfredoptarigan/assessment-engine/internal/logger"
	"alfredoptarigan/assessment-engine/internal/repositories"
	"alfredoptarigan/assessment-engine/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	log.Info("config loaded", zap.String("env", cfg.Server.Env), zap.String(logger.FieldProvider, cfg.Generation.Provider))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}

	docRepo := repositories.NewDocumentRepository(db)
	appRepo := repositories.NewApplicationRepository(db)
	attemptRepo := repositories.NewTestAttemptRepository(db)
	analysisRepo := repositories.NewResumeAnalysisRepository(db)
	assessmentRepo := repositories.NewCategoryAssessmentRepository(db)

	// Initialize storage
	var s3Client services.S3ObjectGetter
	if cfg.Storage.S3Region != "" {
		client, err := services.NewS3Client(ctx, cfg.Storage.S3Region)
		if err != nil {
			log.Fatal("failed to initialize s3 client", zap.Error(err))
		}
		s3Client = client
	}
	storageService := services.NewStorageService(cfg.Storage.UploadPath, s3Client)
	if err := storageService.EnsureUploadDir(); err != nil {
		log.Fatal("failed to create upload directory", zap.Error(err))
	}

	// Initialize generation services
	stack, err := services.NewGenerationStack(cfg, false, log)
	if err != nil {
		log.Fatal("failed to initialize generation services", zap.Error(err))
	}
	defer stack.Close() //nolint:errcheck

	corpus, indexer := buildCorpus(ctx, cfg, attemptRepo, stack, log)

	assessmentService := services.NewAssessmentService(services.AssessmentDeps{
		Applications: appRepo,
		Attempts:     attemptRepo,
		Analyses:     analysisRepo,
		Assessments:  assessmentRepo,
		Generator:    stack.Tests,
		Evaluator:    stack.Evaluator,
		Scorer:       stack.Scorer,
		Extractor:    services.NewResumeTextExtractor(storageService, log),
		Corpus:       corpus,
		Indexer:      indexer,
	}, log)

	// Initialize worker
	worker := services.NewWorker(appRepo, assessmentService, services.WorkerOptions{
		Concurrency:      cfg.Worker.Concurrency,
		RetryMaxAttempts: cfg.Worker.RetryMaxAttempts,
		PollInterval:     cfg.Worker.PollInterval,
		StaleAfter:       cfg.Worker.StaleAfter,
	}, log)
	worker.Start(ctx)

	// Initialize Handlers
	uploadHandler := handlers.NewUploadHandler(docRepo, storageService, cfg.Storage.MaxFileSize, log)
	resumeHandler := handlers.NewResumeHandler(assessmentService, worker)
	testHandler := handlers.NewTestHandler(assessmentService)
	assessmentHandler := handlers.NewAssessmentHandler(assessmentService)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Assessment Engine API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Generation.RequestTimeout*time.Duration(cfg.Generation.MaxAttempts) + 30*time.Second,
		BodyLimit:    int(cfg.Storage.MaxFileSize),
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Routes
	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":               "healthy",
			"time":                 time.Now(),
			"generation_available": stack.Probe.Available(c.UserContext()),
		})
	})

	api.Post("/upload", uploadHandler.HandleUpload)

	api.Post("/applications/:id/resume-analysis", resumeHandler.HandleAnalyze)
	api.Get("/applications/:id/resume-analysis", resumeHandler.HandleGetAnalysis)
	api.Post("/applications/:id/test", testHandler.HandleGenerate)

	api.Get("/tests/:id", testHandler.HandleGet)
	api.Post("/tests/:id/start", testHandler.HandleStart)
	api.Post("/tests/:id/submit", testHandler.HandleSubmit)

	api.Post("/assessments/:id/complete", assessmentHandler.HandleComplete)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("shutting down server")
		worker.Stop()
		cancel()
		if err := app.Shutdown(); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info("server starting", zap.String("addr", addr))

	if err := app.Listen(addr); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}

// buildCorpus picks the uniqueness history source. The qdrant index needs an
// embedder; without one the service falls back to reading postgres.
func buildCorpus(
	ctx context.Context,
	cfg *config.Config,
	attemptRepo repositories.TestAttemptRepository,
	stack *services.GenerationStack,
	log *zap.Logger,
) (services.CorpusSource, services.TestIndexer) {
	postgres := services.NewRepositoryCorpus(attemptRepo, cfg.Corpus.Limit)
	if cfg.Corpus.Source != "qdrant" {
		return postgres, nil
	}
	if stack.Embedder == nil {
		log.Warn("qdrant corpus requires GEMINI_API_KEY for embeddings, reading corpus from postgres")
		return postgres, nil
	}

	index, err := services.NewCorpusIndex(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, stack.Embedder, cfg.Corpus.Limit, log)
	if err != nil {
		log.Fatal("failed to initialize qdrant", zap.Error(err))
	}
	if err := index.InitCollection(ctx); err != nil {
		log.Fatal("failed to initialize qdrant collection", zap.Error(err))
	}
	log.Info("qdrant corpus index ready", zap.String("collection", cfg.Qdrant.Collection))
	return index, index
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
