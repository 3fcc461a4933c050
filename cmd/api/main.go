package main

import (
	"context"
	"log"
	"path/filepath"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/config"
	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/fieldmap"
	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/filler"
	handlers "github.com/laboussolefiscale-rgb/backend-lmnp/internal/http/handler"
	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/http/middleware"
	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/otel"
	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/reaper"
	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/service"
	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/storage"
	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/token"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	shutdownTracing, err := otel.Init(context.Background(), logger)
	if err != nil {
		logger.Fatal("failed to initialize tracing", zap.Error(err))
	}
	defer shutdownTracing(context.Background())

	// Artifact store: local filesystem by default, S3-compatible object
	// storage when a MinIO endpoint is configured.
	var store storage.Storage
	if cfg.MinIO.Endpoint != "" {
		store, err = storage.NewMinIO(cfg.MinIO)
	} else {
		store, err = storage.NewFilesystem(cfg.OutputDir)
	}
	if err != nil {
		logger.Fatal("failed to initialize artifact store", zap.Error(err))
	}

	// Field maps are versioned configuration, loaded once at startup.
	excelMap, err := fieldmap.LoadExcel(cfg.ExcelTemplate.FieldMap)
	if err != nil {
		logger.Fatal("failed to load excel field map", zap.Error(err))
	}
	pdfMap, err := fieldmap.LoadPDF(cfg.PDFTemplate.FieldMap)
	if err != nil {
		logger.Fatal("failed to load pdf field map", zap.Error(err))
	}

	excelFiller := filler.NewExcel(filepath.Join(cfg.TemplatesDir, cfg.ExcelTemplate.Path), excelMap, store, logger)
	pdfFiller := filler.NewPDF(filepath.Join(cfg.TemplatesDir, cfg.PDFTemplate.Path), pdfMap, store, logger)

	if cfg.DumpPDFFields {
		if err := pdfFiller.DumpFields(); err != nil {
			logger.Warn("could not dump pdf template fields", zap.Error(err))
		}
	}

	registry := token.NewMemory(cfg.Retention())
	fileReaper := reaper.New(store, logger)

	declSvc := service.NewDeclarationService(
		excelFiller, pdfFiller, registry, fileReaper, store,
		cfg.BaseURL, cfg.Retention(), logger,
	)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())
	app.Use(otelfiber.Middleware())

	promMiddleware, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("failed to register metrics", zap.Error(err))
	}
	app.Use(promMiddleware.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Register HTTP routes with injected service
	handlers.RegisterRoutes(app, cfg.APIKey, declSvc)

	addr := ":" + cfg.Port
	logger.Info("starting server", zap.String("addr", addr))

	if err := app.Listen(addr); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}
