package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/adapter/ai"
	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/adapter/extract"
	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/adapter/index"
	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/adapter/store"
	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/handler"
	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/middleware"
	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/service"
	"github.com/Preon1/rag-ehanced-cover-letter-generator/pkg/config"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"

	_ "github.com/lib/pq"
)

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg := config.Load()

	slog.Info("🚀 Starting Cover Letter Generator",
		"port", cfg.Port,
		"qdrant", cfg.QdrantURL,
		"embed_model", cfg.EmbedModel,
		"chat_model", cfg.ChatModel,
	)

	// ── Database ─────────────────────────────────────────────────────────
	pgStore, err := store.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()

	// ── Adapters ─────────────────────────────────────────────────────────
	vectorIndex, err := index.NewQdrantIndex(index.QdrantConfig{
		Endpoint:   cfg.QdrantURL,
		APIKey:     cfg.QdrantAPIKey,
		Collection: cfg.QdrantCollection,
		Dimension:  cfg.EmbeddingDimension,
	})
	if err != nil {
		slog.Error("failed to configure vector index", "error", err)
		os.Exit(1)
	}

	aiProvider := ai.NewOpenAIProvider(ai.OpenAIConfig{
		APIKey:       cfg.OpenAIAPIKey,
		BaseURL:      cfg.OpenAIBaseURL,
		EmbedModel:   cfg.EmbedModel,
		ChatModel:    cfg.ChatModel,
		ExtractModel: cfg.ExtractModel,
		Dimension:    cfg.EmbeddingDimension,
	})

	pdfExtractor := extract.NewPDFExtractor()

	// ── Services ─────────────────────────────────────────────────────────
	jwtCfg := middleware.JWTConfig{
		Secret:     cfg.JWTSecret,
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.JWTAccessTTL,
		RefreshTTL: cfg.JWTRefreshTTL,
	}

	chunker := service.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)

	authService := service.NewAuthService(pgStore, jwtCfg)
	cvService := service.NewCVService(pgStore, pdfExtractor, aiProvider, vectorIndex, chunker)
	letterService := service.NewLetterService(aiProvider, vectorIndex, pgStore, cfg.TopK)

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // generation calls can run long
		BodyLimit:    int(service.MaxUploadSize) + 1024*1024,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: []string{cfg.FrontendURL},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	}))

	// Audit middleware (logs all requests)
	app.Use(middleware.AuditMiddleware(pgStore))

	// ── Public Routes ────────────────────────────────────────────────────
	authHandler := handler.NewAuthHandler(authService)
	authHandler.Register(app)

	// Health check
	app.Get("/api/v1/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"app":     cfg.AppName,
			"version": "1.0.0",
		})
	})

	// ── Protected Routes ─────────────────────────────────────────────────
	api := app.Group("/api/v1", middleware.JWTMiddleware(jwtCfg))

	authHandler.RegisterProtected(api)

	cvHandler := handler.NewCVHandler(cvService)
	cvHandler.Register(api)

	letterHandler := handler.NewLetterHandler(letterService)
	letterHandler.Register(api)

	auditHandler := handler.NewAuditHandler(pgStore)
	auditHandler.Register(api)

	// ── Start ────────────────────────────────────────────────────────────
	slog.Info("🌐 Fiber listening", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
