package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dimitrije/boltstax-api/internal/autosave"
	"github.com/dimitrije/boltstax-api/internal/config"
	"github.com/dimitrije/boltstax-api/internal/database"
	"github.com/dimitrije/boltstax-api/internal/email"
	"github.com/dimitrije/boltstax-api/internal/handlers"
	"github.com/dimitrije/boltstax-api/internal/logger"
	"github.com/dimitrije/boltstax-api/internal/metrics"
	authmw "github.com/dimitrije/boltstax-api/internal/middleware"
	"github.com/dimitrije/boltstax-api/internal/services"
	"github.com/dimitrije/boltstax-api/internal/sse"
	"github.com/go-co-op/gocron/v2"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/m1z23r/drift/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg, reg)

	sender := email.NewSender(cfg, log)
	hub := sse.NewHub(log)

	jwtService := services.NewJWTService(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	userService := services.NewUserService(db, log)
	tokenService := services.NewTokenService(db)
	companyService := services.NewCompanyService(db, log)
	inviteService := services.NewInviteService(db, sender, m, log, cfg.BaseURL)
	questionService := services.NewQuestionService(db, log)
	templateService := services.NewTemplateService(db, log)
	responseService := services.NewResponseService(db, sender, hub, m, log, cfg.BaseURL)
	sheetService := services.NewSheetService(db, sender, responseService, m, log, cfg.BaseURL)
	notificationService := services.NewNotificationService(db, hub, log)
	complianceService := services.NewComplianceService(db, log)

	inviteService.UseNotifier(notificationService)
	sheetService.UseNotifier(notificationService)
	responseService.UseNotifier(notificationService)

	debouncer := autosave.New(responseService, cfg.Autosave.Debounce, cfg.Autosave.SaveTimeout, log, m)
	responseService.UseFlusher(debouncer)

	limiter := authmw.NewTokenRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst, m)

	authHandler := handlers.NewAuthHandler(userService, tokenService, jwtService, log)
	userHandler := handlers.NewUserHandler(userService, log)
	companyHandler := handlers.NewCompanyHandler(companyService, log)
	inviteHandler := handlers.NewInviteHandler(inviteService, tokenService, jwtService, log)
	sheetHandler := handlers.NewSheetHandler(sheetService, responseService, log)
	publicHandler := handlers.NewPublicSheetHandler(sheetService, responseService, debouncer, hub, log)
	templateHandler := handlers.NewTemplateHandler(templateService, log)
	questionHandler := handlers.NewQuestionHandler(questionService, log)
	notificationHandler := handlers.NewNotificationHandler(notificationService, hub, log)
	complianceHandler := handlers.NewComplianceHandler(complianceService, log)

	app := drift.New()

	if cfg.IsProduction() {
		app.SetMode(drift.ReleaseMode)
	} else {
		app.SetMode(drift.DebugMode)
	}

	app.Use(middleware.Recovery())
	app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       86400,
	}))
	app.Use(middleware.BodyParser())
	app.Use(authmw.RequestLogger(log, m))

	api := app.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Post("/signup", authHandler.Signup)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.RefreshToken)
	auth.Post("/logout", authHandler.Logout)

	// Invite codes and sheet access tokens are capabilities; no session needed.
	invites := api.Group("/invites")
	invites.Get("/:code", inviteHandler.Get)
	invites.Get("/:code/questions", inviteHandler.Questions)
	invites.Post("/:code/redeem", inviteHandler.Redeem)

	public := api.Group("/public/sheets/:id")
	public.Use(limiter.Middleware())
	public.Post("/open", publicHandler.Open)
	public.Get("/response", publicHandler.GetResponse)
	public.Get("/drafts", publicHandler.ListDrafts)
	public.Post("/autosave", publicHandler.Autosave)
	public.Post("/submit", publicHandler.Submit)
	public.Get("/events", publicHandler.Events)

	protected := api.Group("")
	protected.Use(authmw.Auth(jwtService))

	protected.Post("/auth/logout-all", authHandler.LogoutAll)

	protected.Get("/users/me", userHandler.GetMe)
	protected.Patch("/users/me", userHandler.UpdateMe)

	protected.Get("/company", companyHandler.GetMine)
	protected.Patch("/company", companyHandler.UpdateMine)
	protected.Get("/company/suppliers", companyHandler.ListSuppliers)
	protected.Get("/company/customers", companyHandler.ListCustomers)
	protected.Post("/company/links", companyHandler.Link)
	protected.Delete("/company/links/:companyId", companyHandler.Unlink)
	protected.Post("/company/invites", inviteHandler.Create)
	protected.Get("/company/invites", inviteHandler.ListPending)
	protected.Post("/company/invites/:code/resend", inviteHandler.Resend)
	protected.Get("/company/notifications", notificationHandler.ListUnread)
	protected.Get("/company/notifications/events", notificationHandler.Events)
	protected.Post("/company/notifications/read-all", notificationHandler.MarkAllRead)
	protected.Patch("/company/notifications/:id/read", notificationHandler.MarkRead)

	protected.Get("/companies", companyHandler.Search)
	protected.Get("/companies/:id", companyHandler.Get)
	protected.Delete("/companies/:id", companyHandler.Delete)
	protected.Get("/companies/:id/compliance", complianceHandler.History)
	protected.Post("/companies/:id/compliance", complianceHandler.AddRecord)
	protected.Post("/companies/:id/compliance/reports", complianceHandler.Report)

	protected.Get("/sheets", sheetHandler.List)
	protected.Post("/sheets", sheetHandler.Create)
	protected.Get("/sheets/:id", sheetHandler.Get)
	protected.Patch("/sheets/:id", sheetHandler.Update)
	protected.Delete("/sheets/:id", sheetHandler.Delete)
	protected.Post("/sheets/:id/send", sheetHandler.Send)
	protected.Get("/sheets/:id/response", sheetHandler.GetResponse)

	protected.Get("/templates", templateHandler.List)
	protected.Get("/templates/:id", templateHandler.Get)
	protected.Get("/templates/:id/versions", templateHandler.ListVersions)
	protected.Get("/templates/:id/versions/:version", templateHandler.GetVersion)

	protected.Get("/tags", questionHandler.ListTags)
	protected.Get("/question-sections", questionHandler.ListSections)
	protected.Get("/questions", questionHandler.ListQuestions)
	protected.Get("/questions/:id", questionHandler.GetQuestion)

	admin := api.Group("")
	admin.Use(authmw.Auth(jwtService))
	admin.Use(authmw.RequireAdmin())

	admin.Post("/templates", templateHandler.Create)
	admin.Patch("/templates/:id", templateHandler.Update)
	admin.Delete("/templates/:id", templateHandler.Archive)
	admin.Post("/templates/:id/sections/:sectionId/questions", templateHandler.AddQuestion)

	admin.Post("/tags", questionHandler.CreateTag)
	admin.Patch("/tags/:id", questionHandler.UpdateTag)
	admin.Delete("/tags/:id", questionHandler.DeleteTag)
	admin.Post("/question-sections", questionHandler.CreateSection)
	admin.Patch("/question-sections/:id", questionHandler.UpdateSection)
	admin.Delete("/question-sections/:id", questionHandler.DeleteSection)
	admin.Post("/questions", questionHandler.CreateQuestion)
	admin.Patch("/questions/:id", questionHandler.UpdateQuestion)
	admin.Delete("/questions/:id", questionHandler.DeleteQuestion)

	api.Get("/health", func(c *drift.Context) {
		_ = c.JSON(200, map[string]string{"status": "ok"})
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", m.Handler())
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.MetricsPort),
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})

	g.Go(func() error {
		log.WithField("addr", server.Addr).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.WithField("addr", metricsServer.Addr).Info("Metrics server starting")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return runScheduler(ctx, cfg, log, sheetService, tokenService, limiter)
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		// Answers queued before shutdown still reach the store.
		debouncer.Flush(shutdownCtx)
		return errors.Join(err, metricsServer.Shutdown(shutdownCtx))
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("Server stopped with error")
		os.Exit(1)
	}
	log.Info("Server stopped")
}

// runScheduler drives the periodic jobs until ctx is cancelled.
func runScheduler(
	ctx context.Context,
	cfg *config.Config,
	log logrus.FieldLogger,
	sheets *services.SheetService,
	tokens *services.TokenService,
	limiter *authmw.TokenRateLimiter,
) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(cfg.Reminders.Interval),
		gocron.NewTask(func() {
			sent, err := sheets.SendDueReminders(ctx, cfg.Reminders.Window)
			if err != nil {
				log.WithError(err).Error("failed to send due date reminders")
				return
			}
			if sent > 0 {
				log.WithField("count", sent).Info("due date reminders sent")
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(time.Hour),
		gocron.NewTask(func() {
			removed, err := tokens.CleanupExpired(ctx)
			if err != nil {
				log.WithError(err).Error("failed to clean up expired refresh tokens")
				return
			}
			log.WithField("count", removed).Debug("expired refresh tokens removed")
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule token cleanup: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(time.Minute),
		gocron.NewTask(func() {
			if n := limiter.Cleanup(); n > 0 {
				log.WithField("count", n).Debug("idle rate limiters evicted")
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule rate limiter cleanup: %w", err)
	}

	scheduler.Start()

	<-ctx.Done()

	return scheduler.Shutdown()
}
