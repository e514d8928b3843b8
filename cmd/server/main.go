package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contentgen/internal/catalog"
	"contentgen/internal/config"
	"contentgen/internal/ledger"
	"contentgen/internal/models"
	"contentgen/internal/repository"
	"contentgen/internal/retriever"
	"contentgen/internal/router"
	"contentgen/internal/service"
	"contentgen/internal/utils"
	"contentgen/pkg/model_caller"
	"contentgen/pkg/publisher"
	"contentgen/pkg/redis_limiter"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configFile := flag.String("config", "./config/config.yaml", "path to the configuration file")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.WithError(err).Fatal("load config")
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}

	db, err := models.Open(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("open database")
	}

	var (
		locker  service.TaskLocker
		limiter model_caller.Limiter
	)
	if cfg.Redis.Disabled {
		logger.Warn("redis disabled: task claims and model limits are local to this process")
		locker = service.NewLocalLocker()
		limiter = model_caller.NewLocalLimiter()
	} else {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetAddress(),
			DB:       cfg.Redis.DB,
			Password: cfg.Redis.Password,
		})
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.WithError(err).WithField("addr", cfg.Redis.GetAddress()).Fatal("connect redis")
		}

		callTimeout := cfg.Orchestrator.GetCallTimeout()
		locker = redis_limiter.NewTaskLock(redisClient, "contentgen:task_lock:", cfg.Orchestrator.GetLockTTL(), logger)
		limiter = redis_limiter.NewRedisLimiter(redisClient, "contentgen:model_slots:", 2*callTimeout, callTimeout, logger)
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.WithError(err).Fatal("load model catalog")
	}

	taskRepo := repository.NewTaskRepository(db)
	sampleRepo := repository.NewSampleRepository(db)
	costLedger := ledger.New(repository.NewCostLogRepository(db), cfg.Budget.GetMonthlyCap(), cfg.Budget.Currency)

	sampleRetriever, err := retriever.New(sampleRepo, cfg.Retriever.CacheMaxBytes, cfg.Retriever.DefaultLimit)
	if err != nil {
		logger.WithError(err).Fatal("create retriever")
	}
	defer sampleRetriever.Close()

	providers := make(map[string]model_caller.Provider, len(cfg.Model.Providers))
	for name, p := range cfg.Model.Providers {
		providers[name] = model_caller.Provider{
			BaseURL:       p.BaseURL,
			APIKey:        p.APIKey,
			MaxConcurrent: p.MaxConcurrent,
			MaxTokens:     p.MaxTokens,
		}
	}
	for _, m := range cat.Models() {
		if _, ok := providers[m.Provider]; !ok {
			logger.WithFields(logrus.Fields{"model": m.ID, "provider": m.Provider}).Warn("catalog model has no configured provider")
		}
	}

	var sink service.Publisher
	if cfg.Publish.DryRun {
		logger.Warn("publish dry run: approved content is not delivered")
		sink = publisher.NewDryRun(logger)
	} else {
		sink = publisher.NewWebhook(cfg.Publish.Endpoint, cfg.Publish.APIKey, cfg.Publish.GetTimeout())
	}

	orchestrator, err := service.NewOrchestrator(service.OrchestratorDeps{
		Tasks:     taskRepo,
		Checks:    repository.NewStyleCheckRepository(db),
		Selector:  catalog.NewSelector(cat),
		Ledger:    costLedger,
		Retriever: sampleRetriever,
		Generator: model_caller.NewRouter(providers, limiter),
		Locker:    locker,
		Logger:    logger,
	}, service.OrchestratorOptions{
		RefineCap:   cfg.Orchestrator.RefineCap,
		MaxWorkers:  cfg.Orchestrator.MaxWorkers,
		CallTimeout: cfg.Orchestrator.GetCallTimeout(),
	})
	if err != nil {
		logger.WithError(err).Fatal("create orchestrator")
	}

	resumed, err := orchestrator.Resume(context.Background())
	if err != nil {
		logger.WithError(err).Error("resume unfinished tasks")
	}
	logger.WithField("resumed", resumed).Info("unfinished tasks resumed")

	jwtManager, err := utils.NewJWTManager(cfg.JWT.TokenOptions())
	if err != nil {
		logger.WithError(err).Fatal("jwt setup failed")
	}

	r := router.SetupRouter(cfg, jwtManager, logger, router.Services{
		Orchestrator: orchestrator,
		Approvals:    service.NewApprovalGate(taskRepo, repository.NewApprovalRepository(db), sink, locker, cfg.Approval.MinFeedbackLength, logger),
		Costs:        service.NewCostService(orchestrator, costLedger),
		Samples:      service.NewSampleService(sampleRepo, sampleRetriever, logger),
		Models:       service.NewModelService(cat),
	})

	srv := &http.Server{
		Addr:              cfg.Server.GetAddress(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("serve http")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("http shutdown")
	}
	if err := orchestrator.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("orchestrator shutdown")
	}
	logger.Info("server stopped")
}
