package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"loanwatch/internal/advisor"
	"loanwatch/internal/bot"
	"loanwatch/internal/cache"
	"loanwatch/internal/config"
	"loanwatch/internal/db"
	"loanwatch/internal/handler"
	"loanwatch/internal/job"
	"loanwatch/internal/ml/registry"
	"loanwatch/internal/ml/training"
	"loanwatch/internal/repository"
	"loanwatch/internal/service"
	"loanwatch/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "loanwatch/docs"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	initPostgresFunc       = db.InitPostgres
	initRedisFunc          = cache.InitRedis
	initTracerFunc         = tracing.InitTracer
	startTelegramBotFunc   = bot.StartTelegramBot
	startJobFunc           = func(start func(ctx context.Context), ctx context.Context) { go start(ctx) }
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Loanwatch API
// @version         1.0
// @description     Credit-scoring evaluation service: threshold sweeps over a resolved loan book.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Postgres and Redis
	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	initPostgresFunc(ctx)
	initRedisFunc(ctx)

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	// Create repositories and run migrations
	loanRepo := repository.NewLoanRepository(db.Pool, tracer)
	runRepo := repository.NewEvaluationRepository(db.Pool, tracer)
	modelRegistry := registry.NewRepository(db.Pool, tracer)
	if db.Pool != nil {
		if err := loanRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
	}

	// Create services
	trainingService := training.NewService(tracer, loanRepo, modelRegistry, training.Config{
		MinTrainSamples: cfg.MinTrainSamples,
		HoldoutFraction: cfg.HoldoutFraction,
	})
	scoringService := service.NewScoringService(tracer, loanRepo, modelRegistry, service.ScoringConfig{
		BatchLimit: cfg.ScoreBatchLimit,
	})
	evaluationService := service.NewEvaluationService(tracer, loanRepo, modelRegistry, runRepo, cache.Client, nil, service.EvaluationConfig{
		Thresholds: cfg.EvalThresholds,
	})

	// Start Telegram bot and wire threshold alerts
	os.Setenv("TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken)
	os.Setenv("TELEGRAM_CHAT_ID", formatChatID(cfg.TelegramChatID))
	if tgBot := startTelegramBotFunc(evaluationService); tgBot != nil {
		evaluationService.SetNotifier(tgBot)
	}

	// Background jobs, stopped by ctx cancel
	evalJob := job.NewEvaluationJob(tracer, evaluationService, time.Duration(cfg.EvalIntervalSecs)*time.Second)
	scoreJob := job.NewScoringJob(tracer, scoringService, time.Duration(cfg.ScorePollSecs)*time.Second)
	trainJob := job.NewTrainingJob(tracer, trainingService, cfg.TrainHourUTC)
	startJobFunc(evalJob.Start, ctx)
	startJobFunc(scoreJob.Start, ctx)
	startJobFunc(trainJob.Start, ctx)

	// LLM advisor (optional)
	var reportAdvisor handler.ReportAdvisor
	if cfg.OpenAIAPIKey != "" {
		reportAdvisor = advisor.NewAdvisorService(tracer, advisor.NewOpenAIClient(cfg.OpenAIAPIKey), cfg.OpenAIModel)
	}

	// Create handlers and routes
	h := handler.New(tracer, evaluationService, trainingService, scoringService, reportAdvisor, cfg.APIKey)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("loanwatch"))

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}

func formatChatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
