package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Stepanishin/telepublisher-be/config"
	"github.com/Stepanishin/telepublisher-be/internal/email"
	"github.com/Stepanishin/telepublisher-be/internal/genai"
	"github.com/Stepanishin/telepublisher-be/internal/health"
	"github.com/Stepanishin/telepublisher-be/internal/infrastructure/postgres"
	ctxlog "github.com/Stepanishin/telepublisher-be/internal/log"
	"github.com/Stepanishin/telepublisher-be/internal/metrics"
	"github.com/Stepanishin/telepublisher-be/internal/scheduler"
	"github.com/Stepanishin/telepublisher-be/internal/scraper"
	"github.com/Stepanishin/telepublisher-be/internal/telegram"
	httptransport "github.com/Stepanishin/telepublisher-be/internal/transport/http"
	"github.com/Stepanishin/telepublisher-be/internal/transport/http/handler"
	"github.com/Stepanishin/telepublisher-be/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	tenantRepo := postgres.NewTenantRepository(pool)
	channelRepo := postgres.NewChannelRepository(pool)
	ruleRepo := postgres.NewRuleRepository(pool)
	historyRepo := postgres.NewHistoryRepository(pool)
	postRepo := postgres.NewScheduledPostRepository(pool)
	pollRepo := postgres.NewScheduledPollRepository(pool)

	metrics.Register()
	checker := health.NewChecker(pool, logger, prometheus.DefaultRegisterer)

	publisher := telegram.NewClientWithBase(cfg.TelegramAPIBase)
	generator := genai.NewClient(cfg.OpenAIAPIKey)
	fetcher := scraper.NewFetcher(logger)
	credits := usecase.NewCreditService(tenantRepo)

	executor := scheduler.NewAutopostExecutor(
		channelRepo, ruleRepo, historyRepo,
		credits, generator, generator, fetcher, publisher,
		logger,
	)

	// The dispatcher, the manual execute-now path, and the manual
	// publish-now path all share one in-flight guard, so a cron tick
	// and a tenant click can never double-publish the same item.
	inflight := scheduler.NewInFlight()

	dispatcher := scheduler.NewDispatcher(
		postRepo, pollRepo, ruleRepo, channelRepo,
		executor, publisher, inflight,
		logger, time.Duration(cfg.DispatchIntervalSec)*time.Second,
	)
	go dispatcher.Start(ctx)

	sweeper, err := scheduler.NewSweeper(cfg.SweepCron, func(ctx context.Context) error {
		n, err := tenantRepo.DeleteExpiredMagicTokens(ctx, time.Now())
		if err != nil {
			return err
		}
		logger.Info("expired magic tokens removed", "count", n)
		return nil
	}, logger)
	if err != nil {
		stop()
		log.Fatalf("sweeper: %v", err)
	}
	go sweeper.Start(ctx)

	emailSender := email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)
	authUsecase := usecase.NewAuthUsecase(tenantRepo, emailSender, []byte(cfg.JWTSecret), cfg.MagicLinkBase)
	channelUsecase := usecase.NewChannelUsecase(channelRepo)
	ruleUsecase := usecase.NewRuleUsecase(ruleRepo, channelRepo, historyRepo, executor, inflight)
	scheduleUsecase := usecase.NewScheduleUsecase(postRepo, pollRepo, channelRepo, publisher, inflight)

	authHandler := handler.NewAuthHandler(authUsecase, logger)
	channelHandler := handler.NewChannelHandler(channelUsecase, logger)
	ruleHandler := handler.NewRuleHandler(ruleUsecase, logger)
	scheduleHandler := handler.NewScheduleHandler(scheduleUsecase, logger)

	srv := http.Server{
		Addr: ":" + cfg.Port,
		Handler: httptransport.NewRouter(
			logger, authHandler, channelHandler, ruleHandler, scheduleHandler,
			[]byte(cfg.JWTSecret),
		),
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
