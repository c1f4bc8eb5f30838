package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/unicatolica/registro-huellas/internal/auth"
	"github.com/unicatolica/registro-huellas/internal/clock"
	"github.com/unicatolica/registro-huellas/internal/config"
	"github.com/unicatolica/registro-huellas/internal/database"
	"github.com/unicatolica/registro-huellas/internal/handlers"
	"github.com/unicatolica/registro-huellas/internal/metrics"
	"github.com/unicatolica/registro-huellas/internal/middleware"
	"github.com/unicatolica/registro-huellas/internal/notify"
	"github.com/unicatolica/registro-huellas/internal/repository"
	"github.com/unicatolica/registro-huellas/internal/routes"
	"github.com/unicatolica/registro-huellas/internal/services"
)

const (
	photoFolder      = "registro-huellas"
	defaultJWTSecret = "your-secret-key-change-in-production"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.IsProduction() && cfg.JWTSecret == defaultJWTSecret {
		logger.Warn("JWT_SECRET is not set, using the development default")
	}

	// Storage
	mongoClient, mongoDB, err := database.ConnectMongo(ctx, cfg.MongoURI, logger)
	if err != nil {
		return err
	}
	defer database.DisconnectMongo(mongoClient)

	pg, err := database.ConnectPostgres(ctx, cfg.PostgresURI, logger)
	if err != nil {
		return err
	}
	defer pg.Close()
	if err := database.InitPostgresTables(ctx, pg); err != nil {
		return err
	}

	rdb, err := database.ConnectRedis(ctx, cfg.RedisURI, logger)
	if err != nil {
		return err
	}
	defer rdb.Close()

	persons := repository.NewMongoPersons(mongoDB)
	accesses := repository.NewMongoAccesses(mongoDB)
	if err := persons.EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := accesses.EnsureIndexes(ctx); err != nil {
		return err
	}
	logger.Info("✅ MongoDB indexes ensured")
	files := repository.NewMongoFiles(mongoDB)
	users := repository.NewPostgresUsers(pg)

	// Observability
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Notifications
	var notifier notify.Dispatcher = notify.Noop{}
	var async *notify.Async
	if cfg.EmailEnabled() {
		sender := notify.NewSMTPSender(cfg.EmailHost, cfg.EmailPort, cfg.EmailUser, cfg.EmailPassword, cfg.EmailFromName)
		mailer, err := notify.NewMailer(sender)
		if err != nil {
			return err
		}
		async = notify.NewAsync(mailer, logger, m)
		notifier = async
		logger.Info("✅ Email notifications enabled", "host", cfg.EmailHost)
	} else {
		logger.Warn("Email credentials not found. Notifications are disabled")
	}

	var photos services.PhotoUploader
	if cfg.CloudinaryEnabled() {
		cld, err := services.NewCloudinaryPhotos(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, photoFolder)
		if err != nil {
			logger.Warn("Failed to initialize Cloudinary, photos will be stored in MongoDB", "error", err)
		} else {
			photos = cld
			logger.Info("✅ Cloudinary service initialized")
		}
	}

	// Services
	clk := clock.Real()
	feed := services.NewFeed(rdb, logger)
	personSvc := services.NewPersons(services.PersonsDeps{
		Store:    persons,
		Cache:    services.NewPersonCache(persons, rdb, cfg.PersonCacheTTL, clk, logger),
		Photos:   photos,
		Notifier: notifier,
		Clock:    clk,
		Location: cfg.Location,
		Logger:   logger,
	})
	tracker := services.NewTracker(services.TrackerDeps{
		Persons:   personSvc.Finder(),
		Accesses:  accesses,
		Clock:     clk,
		Location:  cfg.Location,
		Notifier:  notifier,
		Publisher: feed,
		Metrics:   m,
		Logger:    logger,
	})
	visitors := services.NewVisitors(persons, clk, cfg.Location, m, logger)
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
	accounts := services.NewAccounts(services.AccountsDeps{
		Users:       users,
		Issuer:      issuer,
		Notifier:    notifier,
		Clock:       clk,
		FrontendURL: cfg.FrontendURL,
		Logger:      logger,
	})

	h := handlers.New(handlers.Deps{
		Tracker:        tracker,
		Visitors:       visitors,
		Query:          services.NewQuery(persons, accesses),
		Persons:        personSvc,
		Importer:       services.NewImporter(persons, clk, cfg.Location, logger),
		Accounts:       accounts,
		Files:          services.NewFiles(files, clk),
		Feed:           feed,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	})

	// Background tasks
	sweeper := services.NewSweeper(visitors, clk, cfg.VisitorSweepInterval, logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	feedCtx, stopFeed := context.WithCancel(ctx)
	defer stopFeed()
	go feed.Run(feedCtx)

	// Router
	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.Instrument(m))

	// Production: SecurityHeaders → HostCheck → GlobalRateLimit → LoginRateLimit
	// Non-production: Redis-based rate limit only
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(cfg.AllowedHost) {
			r.Use(mw)
		}
		logger.Info("✅ Production security enabled", "host", cfg.AllowedHost)
	} else {
		r.Use(middleware.NewRateLimiter(rdb, logger).Middleware)
	}

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	var guardIssuer *auth.Issuer
	if cfg.AuthRequired {
		guardIssuer = issuer
		logger.Info("✅ Role tokens required on API routes")
	}
	routes.SetupRoutes(r, h, guardIssuer)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("🚀 Registro de Huellas backend running", "port", cfg.Port, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("🛑 Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	if async != nil {
		async.Wait()
	}
	return nil
}
