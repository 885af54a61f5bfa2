package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"timetabledocs/docs"
	"timetabledocs/internal/config"
	"timetabledocs/internal/database"
	"timetabledocs/internal/database/migration"
	handlers "timetabledocs/internal/http/handler"
	"timetabledocs/internal/http/middleware"
	"timetabledocs/internal/logging"
	"timetabledocs/internal/otel"
	"timetabledocs/internal/repository/postgres"
	"timetabledocs/internal/service"
	"timetabledocs/internal/storage"
)

// @title Timetable Documents API
// @version 1.0
// @description Upload and listing of reference PDFs for timetable generation.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	loc := config.Location(cfg.Timezone)
	log := logging.New(os.Stdout, loc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log, "api")
	if err != nil {
		log.Error("tracing_init_failed", "error", err.Error())
		os.Exit(1)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
		log.Error("schema migration failed", "error", err.Error())
		os.Exit(1)
	}

	// Object storage: MinIO or AWS S3, selected by STORAGE_DRIVER
	objStore, err := storage.New(cfg.Storage)
	if err != nil {
		log.Error("failed to initialize object storage", "error", err.Error(), "driver", cfg.Storage.Driver)
		os.Exit(1)
	}

	docRepo := postgres.NewDocumentPostgres(db)
	docSvc := service.NewDocumentService(objStore, docRepo, log)
	catalog := service.NewCatalogServices(service.CatalogRepositories{
		Faculty:  postgres.NewFacultyPostgres(db),
		Rooms:    postgres.NewRoomPostgres(db),
		Subjects: postgres.NewSubjectPostgres(db),
		Entries:  postgres.NewTimetableEntryPostgres(db),
	}, log)
	adminSvc, err := service.NewAdminService(cfg.Admin)
	if err != nil {
		log.Error("failed to initialize admin authenticator", "error", err.Error())
		os.Exit(1)
	}
	if cfg.Admin.JWTSecret == "" {
		log.Warn("JWT_SECRET not set; admin sessions will not survive a restart")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promMW, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Error("failed to register http metrics", "error", err.Error())
		os.Exit(1)
	}
	uploadMetrics, err := handlers.NewUploadMetrics(reg)
	if err != nil {
		log.Error("failed to register upload metrics", "error", err.Error())
		os.Exit(1)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		// Leave room for the multipart envelope so the handler, not fasthttp, reports oversize files.
		BodyLimit:             int(cfg.UploadMaxBytes) + 1<<20,
		DisableStartupMessage: true,
	})

	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.LoggerWithWriter(os.Stdout, loc))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(otelfiber.Middleware())
	app.Use(promMW.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(app, handlers.Deps{
		DB:                db,
		Documents:         docSvc,
		Admin:             adminSvc,
		Catalog:           catalog,
		Metrics:           uploadMetrics,
		MaxUploadBytes:    cfg.UploadMaxBytes,
		ListRequiresAdmin: cfg.ListRequiresAdmin,
	})

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("server_started", "addr", addr, "storage_driver", cfg.Storage.Driver)
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("failed to start server", "error", err.Error())
			os.Exit(1)
		}
	case <-ctx.Done():
		log.Info("shutdown_requested")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("server shutdown failed", "error", err.Error())
		}
	}
}
