package main

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"familytasks/internal/config"
	"familytasks/internal/database"
	"familytasks/internal/handlers"
	"familytasks/internal/repository"
	"familytasks/internal/security"
	"familytasks/internal/service"
)

const (
	stepDatabase   = "Database connection"
	stepMigrations = "Running migrations"
	stepServices   = "Initializing services"
	stepSeed       = "Seeding suggested tasks"

	sessionCleanupInterval = time.Hour
)

// application owns everything built during startup
type application struct {
	db          *database.DB
	limiter     *security.RateLimiter
	authService *service.AuthService
	taskService *service.TaskService
	router      http.Handler
	log         *logrus.Entry
}

func newApplication(ctx context.Context, cfg *config.Config, log *logrus.Entry, readiness *handlers.Readiness) (*application, error) {
	// Initialize database with config (supports sqlite, postgres, mysql)
	readiness.SetCurrentStep(stepDatabase)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, err
	}
	readiness.CompleteStep(stepDatabase)
	log.WithField("db_type", cfg.DatabaseType).Info("database connection established")

	readiness.SetCurrentStep(stepMigrations)
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		db.Close()
		return nil, err
	}
	readiness.CompleteStep(stepMigrations)
	log.Info("migrations completed")

	// Initialize repositories
	readiness.SetCurrentStep(stepServices)
	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	suggestedRepo := repository.NewSuggestedTaskRepository(db)

	// Initialize services
	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName,
		cfg.FrontendURL, cfg.EmailDebug, log.WithField("component", "email"))
	if err != nil {
		db.Close()
		return nil, err
	}
	var notifier service.TaskNotifier
	if emailService.IsEnabled() {
		notifier = emailService
	}

	familyService := service.NewFamilyService(db, familyRepo, userRepo, log)
	tokens := security.NewTokenIssuer(cfg.TokenSecret, cfg.TokenIssuer)
	authService := service.NewAuthService(db, userRepo, familyRepo, familyService, tokens, cfg.SessionDuration, log)
	taskService := service.NewTaskService(taskRepo, familyRepo, userRepo, notifier, log)
	suggestedService := service.NewSuggestedTaskService(db, suggestedRepo, taskService, log)
	clientIPs, err := security.NewClientIPResolver(cfg.TrustedProxies)
	if err != nil {
		db.Close()
		return nil, err
	}
	limiter := security.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)

	// Initialize handlers
	middleware := handlers.NewMiddleware(authService, limiter, clientIPs)
	router := handlers.NewRouter(handlers.Router{
		Middleware: middleware,
		Auth: handlers.NewAuthHandler(authService, handlers.NewOAuthProviders(cfg),
			security.NewStateSigner(cfg.TokenSecret), cfg.OAuthRedirectBaseURL, cfg.FrontendURL),
		Family:         handlers.NewFamilyHandler(familyService),
		Tasks:          handlers.NewTaskHandler(taskService),
		SuggestedTasks: handlers.NewSuggestedTaskHandler(suggestedService),
		Legacy:         handlers.NewLegacyHandler(taskService, suggestedService),
		Callable:       handlers.NewCallableHandler(middleware, taskService),
		AllowedOrigins: append([]string{cfg.FrontendURL}, cfg.AllowedOrigins...),
		Log:            log,
	})
	readiness.CompleteStep(stepServices)

	readiness.SetCurrentStep(stepSeed)
	if n, err := suggestedService.SeedDefaults(ctx); err != nil {
		log.WithError(err).Warn("failed to seed suggested tasks")
	} else if n > 0 {
		log.WithField("count", n).Info("seeded default suggested tasks")
	}
	readiness.CompleteStep(stepSeed)

	return &application{
		db:          db,
		limiter:     limiter,
		authService: authService,
		taskService: taskService,
		router:      router,
		log:         log,
	}, nil
}

// cleanupExpiredSessions periodically removes expired sessions
func (a *application) cleanupExpiredSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.authService.CleanupExpiredSessions(ctx)
			if err != nil {
				a.log.WithError(err).Error("failed to clean up expired sessions")
				continue
			}
			a.log.WithField("removed", n).Info("expired sessions cleaned up")
		}
	}
}

// Close waits for pending notifications and releases resources
func (a *application) Close() {
	a.taskService.Wait()
	a.limiter.Stop()
	if err := a.db.Close(); err != nil {
		a.log.WithError(err).Warn("failed to close database")
	}
}
