package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"medprep-server/account"
	"medprep-server/appstate"
	"medprep-server/catalog"
	"medprep-server/config"
	"medprep-server/db"
	"medprep-server/entitlement"
	"medprep-server/events"
	"medprep-server/examapi"
	"medprep-server/handlers"
	"medprep-server/logger"
	"medprep-server/metrics"
	"medprep-server/middleware"
	"medprep-server/quiz"
	"medprep-server/results"
	"medprep-server/store"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.ConfigFile == "" {
		log.Info("config.yaml not found, using environment variables and defaults")
	} else {
		log.Info("configuration loaded", "file", cfg.ConfigFile)
	}

	ctx := context.Background()

	// The database is optional unless it backs the state store
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = db.InitDB(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("unable to connect to database", "error", err)
		}
		defer pool.Close()
		if err := db.CreateSchema(ctx, pool); err != nil {
			log.Fatal("error creating database schema", "error", err)
		}
	}

	var kv store.Store
	switch cfg.Store.Backend {
	case "redis":
		rs, err := store.NewRedisStore(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal("unable to connect to redis", "addr", cfg.Redis.Addr, "error", err)
		}
		defer rs.Close()
		kv = rs
	case "postgres":
		kv = store.NewPostgresStore(pool)
	default:
		kv = store.NewMemoryStore()
	}
	log.Info("state store ready", "backend", cfg.Store.Backend)

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatal("error loading course catalog", "path", cfg.CatalogPath, "error", err)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQP.URL != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, log)
		if err != nil {
			log.Fatal("unable to connect to amqp broker", "error", err)
		}
		publisher = p
	}
	defer publisher.Close()

	api := examapi.NewClient(cfg.ExamAPI.BaseURL, cfg.ExamAPI.Timeout)
	state := appstate.NewStore()
	acct := account.NewService(api, state, cfg.ProfileTTL, log)
	ent := entitlement.NewEngine(kv, log)
	eventLog := db.NewEventLog(pool, log)
	loader := results.NewLoader(api, kv)
	mgr := quiz.NewManager(api, ent, kv, log, quiz.Options{
		Publisher: publisher,
		Auditor:   eventLog,
		Notifier:  state,
	})

	// Set Gin mode
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(log))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.HTMLRender = handlers.Renderer("templates")

	router.GET("/healthz", handlers.Healthz())
	router.GET("/metrics", metrics.Handler())

	authMiddleware := middleware.AuthMiddleware(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer)

	// API Routes (version 1)
	apiV1 := router.Group("/api/v1")
	apiV1.Use(authMiddleware)
	{
		apiV1.GET("/profile", handlers.GetProfile(acct, ent))
		apiV1.POST("/profile/refresh", handlers.RefreshProfile(acct, ent))
		apiV1.POST("/logout", handlers.Logout(acct, mgr))
		apiV1.GET("/entitlements/courses/:course_id", handlers.GetCourseEntitlement(acct, ent))
		apiV1.GET("/entitlements/upgrade/:feature", handlers.GetUpgradePrompt(acct, ent))
		apiV1.GET("/courses", handlers.GetCourses(acct, cat))
		apiV1.GET("/courses/:course_id", handlers.GetCourse(acct, cat))

		apiV1.POST("/quiz_sessions", handlers.StartQuizSession(acct, mgr, cat))
		apiV1.GET("/quiz_sessions/:session_id", handlers.GetQuizSession(mgr))
		apiV1.POST("/quiz_sessions/:session_id/answer", handlers.AnswerQuestion(mgr))
		apiV1.POST("/quiz_sessions/:session_id/next", handlers.NextQuestion(mgr))
		apiV1.POST("/quiz_sessions/:session_id/previous", handlers.PreviousQuestion(mgr))
		apiV1.POST("/quiz_sessions/:session_id/jump", handlers.JumpToQuestion(mgr))
		apiV1.POST("/quiz_sessions/:session_id/submit", handlers.SubmitQuizSession(mgr))
		apiV1.DELETE("/quiz_sessions/:session_id", handlers.CloseQuizSession(mgr))

		apiV1.GET("/results/:result_id", handlers.GetResult(loader, log))
		apiV1.GET("/notifications", handlers.GetNotifications(state))
		apiV1.DELETE("/notifications/:id", handlers.DismissNotification(state))
	}

	// Results screen
	pages := router.Group("/quiz-results")
	pages.Use(authMiddleware)
	pages.GET("/:result_id", handlers.ShowResultPage(loader, log))

	// Admin Routes
	admin := router.Group("/admin")
	admin.Use(authMiddleware)
	admin.Use(middleware.RoleCheckMiddleware([]string{"admin"}))
	{
		admin.GET("/dashboard", handlers.AdminDashboard(mgr, eventLog, log))
		admin.GET("/quiz_sessions", handlers.AdminListQuizSessions(mgr, eventLog, log))
		admin.POST("/users/:user_id/quiz_attempts/reset", handlers.AdminResetQuizAttempts(ent, eventLog, log))
	}

	// Drop finished or abandoned sessions and expired result handoffs
	sweepDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.SessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepDone:
				return
			case <-ticker.C:
				if n := mgr.Sweep(cfg.SessionRetention); n > 0 {
					log.Info("swept quiz sessions", "count", n)
				}
				if p, ok := kv.(store.Purger); ok {
					ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					if n, err := p.PurgeExpired(ctx); err != nil {
						log.Warn("failed to purge expired client state", "error", err)
					} else if n > 0 {
						log.Debug("purged expired client state", "count", n)
					}
					cancel()
				}
			}
		}
	}()

	srv := &http.Server{
		Addr:    cfg.ServerPort,
		Handler: router,
	}

	// Goroutine to gracefully shut down the server
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("shutting down server")
		close(sweepDone)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("server forced to shutdown", "error", err)
		}
	}()

	log.Info("medprep server starting", "addr", cfg.ServerPort, "exam_api", cfg.ExamAPI.BaseURL)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("server startup error", "error", err)
	}
	log.Info("server exited gracefully")
}
