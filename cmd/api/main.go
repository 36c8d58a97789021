package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/bank-advisor/internal/application"
	appadvisory "github.com/bryanwahyu/bank-advisor/internal/application/advisory"
	appai "github.com/bryanwahyu/bank-advisor/internal/application/ai"
	apptickets "github.com/bryanwahyu/bank-advisor/internal/application/tickets"
	"github.com/bryanwahyu/bank-advisor/internal/config"
	"github.com/bryanwahyu/bank-advisor/internal/domain/ai"
	"github.com/bryanwahyu/bank-advisor/internal/domain/ticket"
	"github.com/bryanwahyu/bank-advisor/internal/infra/ai/openai"
	infracatalog "github.com/bryanwahyu/bank-advisor/internal/infra/catalog"
	"github.com/bryanwahyu/bank-advisor/internal/infra/httpserver"
	"github.com/bryanwahyu/bank-advisor/internal/infra/logging"
	infratickets "github.com/bryanwahyu/bank-advisor/internal/infra/tickets"
	"github.com/bryanwahyu/bank-advisor/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		logging.New("info").Fatal("config load error", zap.Error(err))
	}

	logger := logging.New(cfg.Log.Level)
	defer func() { _ = logger.Sync() }()

	metrics := middleware.NewMetrics()
	clock := application.SystemClock{}

	cat, err := infracatalog.Load(cfg.Catalog.Path)
	if err != nil {
		logger.Fatal("catalog load error", zap.Error(err))
	}

	// language model, or fallback-only mode without a key
	var client ai.Client = openai.Disabled{}
	if cfg.AIEnabled() {
		client = openai.NewClient(openai.Config{
			APIKey:      cfg.AI.APIKey,
			BaseURL:     cfg.AI.BaseURL,
			Model:       cfg.AI.Model,
			Timeout:     cfg.AI.Timeout,
			MaxAttempts: cfg.AI.MaxAttempts,
		}, logger.Named("openai"), metrics)
		logger.Info("ai enabled", zap.String("model", cfg.AI.Model))
	} else {
		logger.Warn("OPENAI_API_KEY not set, serving rule-based results only")
	}

	// ticket counter
	checkers := map[string]middleware.HealthChecker{}
	var counter ticket.Counter = infratickets.NewMemoryCounter()
	if cfg.Tickets.RedisAddr != "" {
		rdb, err := infratickets.Connect(cfg.Tickets.RedisAddr, cfg.Tickets.RedisPassword, cfg.Tickets.RedisDB)
		if err != nil {
			logger.Fatal("redis config error", zap.Error(err))
		}
		rc := infratickets.NewRedisCounter(rdb)
		defer rc.Close()
		counter = rc
		checkers["redis"] = middleware.HealthCheckFunc(rc.Ping)
	}

	advisorySvc := &appadvisory.Service{
		Catalog:  cat,
		AI:       appai.NewService(client, clock),
		Clock:    clock,
		Logger:   logger.Named("advisory"),
		Recorder: metrics,
		Budget:   cfg.AdviceBudget(),
	}
	ticketSvc := apptickets.NewService(counter, clock, rand.New(rand.NewSource(time.Now().UnixNano())), metrics)

	router := httpserver.NewRouter(httpserver.Options{
		Config:   cfg,
		Advisory: advisorySvc,
		Tickets:  ticketSvc,
		Catalog:  cat,
		Metrics:  metrics,
		Logger:   logger,
		Clock:    clock,
		Checkers: checkers,
	})
	defer router.Close()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// run server
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("version", cfg.Server.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.AdviceBudget()+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
