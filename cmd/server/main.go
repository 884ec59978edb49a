package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"snake-arena-backend/internal/config"
	"snake-arena-backend/internal/database"
	"snake-arena-backend/internal/handlers"
	"snake-arena-backend/internal/jobqueue"
	"snake-arena-backend/internal/logging"
	"snake-arena-backend/internal/matchmaker"
	"snake-arena-backend/internal/middleware"
	"snake-arena-backend/internal/models"
	"snake-arena-backend/internal/rating"
	"snake-arena-backend/internal/rules"
	"snake-arena-backend/internal/services"
	"snake-arena-backend/internal/snakeclient"
	"snake-arena-backend/internal/turndriver"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	gin.SetMode(cfg.GinMode)
	logger := logging.New(cfg.LogLevel)

	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redisClient, err := database.NewRedisConnection(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	queue := jobqueue.NewQueue(db)
	registry := jobqueue.NewRegistry()

	snakeHTTP := snakeclient.New(snakeclient.Config{
		MaxIdleConnsPerHost: cfg.SnakeHTTPMaxIdlePerHost,
		PerHostRPS:          cfg.SnakeHTTPRatePerHost,
	}, logger)

	driver := turndriver.New(db, snakeHTTP, rules.NewStandard(), queue, logger, turndriver.Config{
		MoveTimeout:  time.Duration(cfg.MoveTimeoutMS) * time.Millisecond,
		StartTimeout: time.Duration(cfg.StartTimeoutMS) * time.Millisecond,
		EndTimeout:   time.Duration(cfg.EndTimeoutMS) * time.Millisecond,
		MaxTurns:     turndriver.DefaultConfig().MaxTurns,
	})
	registry.Register(jobqueue.KindRunMatch, driver.Handler())

	ratingEngine := rating.NewEngine(db, logger, rating.DefaultConfig())
	registry.Register(jobqueue.KindUpdateRatings, ratingEngine.Handler())

	worker := jobqueue.NewWorker(queue, registry, logger, jobqueue.WorkerConfig{
		Concurrency:   cfg.JobWorkerConcurrency,
		PollInterval:  jobqueue.DefaultWorkerConfig().PollInterval,
		MaxAttempts:   jobqueue.DefaultWorkerConfig().MaxAttempts,
		StaleLockTime: jobqueue.DefaultWorkerConfig().StaleLockTime,
		BaseBackoff:   jobqueue.DefaultWorkerConfig().BaseBackoff,
	})

	mm := matchmaker.New(db, queue, logger, matchmaker.Config{
		MatchSize:    cfg.MatchSize,
		GamesPerDay:  cfg.GamesPerDay,
		IntervalSecs: cfg.MatchmakerIntervalSecs,
		RuleVariant:  rules.StandardVersion,
		Board:        models.BoardSizeMedium,
	})

	leaderboardService := services.NewLeaderboardService(db, redisClient, cfg.MinGamesForRanking)
	h := handlers.New(leaderboardService, mm)

	router := setupRouter(h, db, redisClient, cfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	runCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	worker.Start(runCtx)
	mm.Start(runCtx)

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func setupRouter(h *handlers.Handlers, db *pgxpool.Pool, redisClient *redis.Client, cfg *config.Config) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RateLimit(cfg.RateLimit))
	router.Use(middleware.Logger())

	router.GET("/health", handlers.HealthCheck(db, redisClient))

	api := router.Group("/api/v1")
	{
		leaderboards := api.Group("/leaderboards")
		{
			leaderboards.GET("/:id/ranked", h.GetRankedLeaderboard)
			leaderboards.GET("/:id/placement", h.GetPlacementLeaderboard)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.AdminAuth(cfg.AdminToken))
		{
			admin.POST("/leaderboards/:id/disabled", h.SetLeaderboardDisabled)
			admin.POST("/matchmaker/run", h.TriggerMatchmaker)
		}
	}

	return router
}
