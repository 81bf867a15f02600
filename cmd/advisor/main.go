package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pgoos/clark-app-sub007/internal/advice"
	"github.com/pgoos/clark-app-sub007/internal/cancellation"
	"github.com/pgoos/clark-app-sub007/internal/config"
	"github.com/pgoos/clark-app-sub007/internal/docs"
	"github.com/pgoos/clark-app-sub007/internal/notification"
	"github.com/pgoos/clark-app-sub007/internal/offer"
	"github.com/pgoos/clark-app-sub007/internal/profile"
	"github.com/pgoos/clark-app-sub007/internal/questionnaire"
	"github.com/pgoos/clark-app-sub007/internal/repository"
	"github.com/pgoos/clark-app-sub007/internal/rules"
	"github.com/pgoos/clark-app-sub007/internal/server"
	"github.com/pgoos/clark-app-sub007/internal/worker"
	"github.com/pgoos/clark-app-sub007/pkg/database"
	"github.com/pgoos/clark-app-sub007/pkg/utils"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
)

func main() {
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting insurance advisory automation service",
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Advice rule tables are loaded once and stay immutable.
	tables, err := rules.Load(cfg.Rules.Path)
	if err != nil {
		logger.Fatal("Failed to load advice rules", zap.Error(err))
	}
	evaluator := rules.NewEvaluator(tables)
	logger.Info("Advice rule tables loaded", zap.Strings("categories", evaluator.Categories()))

	// Repositories
	mandateRepo := repository.NewMandateRepository(db.DB, logger)
	productRepo := repository.NewProductRepository(db.DB, logger)
	adviceRepo := repository.NewAdviceRepository(db.DB, logger)
	recheckRepo := repository.NewRecheckRepository(db.DB, logger)
	responseRepo := repository.NewResponseRepository(db.DB, logger)
	answerRepo := repository.NewAnswerRepository(db.DB, logger)
	opportunityRepo := repository.NewOpportunityRepository(db.DB, logger)
	offerRepo := repository.NewOfferRepository(db, logger)
	planRepo := repository.NewPlanRepository(db.DB, logger)
	automationRuleRepo := repository.NewAutomationRuleRepository(db.DB, logger)
	candidateRepo := repository.NewCandidateRepository(db.DB, logger)

	// Collaborators
	push := notification.NewPushGateway(logger)
	reporter := notification.NewTelemetryReporter(logger)
	events := notification.NewEventPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	defer events.Close()
	profileSync := profile.NewSyncer(logger)

	documents, err := docs.NewComparisonBuilder(cfg.Offer.DocumentOutputDir, logger)
	if err != nil {
		logger.Fatal("Failed to initialize document builder", zap.Error(err))
	}
	adminPool := offer.NewRoundRobinAdminPool(cfg.Offer.AdminIDs)

	// Core components
	dispatcher := advice.NewDispatcher(adviceRepo, mandateRepo, push, recheckRepo, reporter, events, logger)

	matcher := offer.NewMatcher(
		automationRuleRepo,
		answerRepo,
		opportunityRepo,
		planRepo,
		offerRepo,
		documents,
		adminPool,
		events,
		cfg.Offer.MinCoverageFeatures,
		logger,
	)

	responseService := questionnaire.NewService(
		responseRepo,
		answerRepo,
		profileSync,
		push,
		events,
		matcher,
		logger,
	)

	finalizer := cancellation.NewFinalizer(candidateRepo, productRepo, logger)
	sweep := worker.NewCancellationSweep(candidateRepo, finalizer, reporter, logger)

	// Background workers
	manager := worker.NewManager(logger)
	manager.Register(worker.NewSweepWorker(
		sweep,
		cfg.Cancellation.SweepInterval,
		cfg.Cancellation.Timeout,
		cfg.Cancellation.BatchSize,
		cfg.Cancellation.ExecutionLimit,
		logger,
	))
	recheckWorker := worker.NewAdviceRecheckWorker(
		recheckRepo,
		mandateRepo,
		productRepo,
		evaluator,
		dispatcher,
		cfg.Advice.RecheckInterval,
		cfg.Advice.RecheckBatchSize,
		logger,
	)
	manager.Register(recheckWorker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := manager.StartAll(ctx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}
	defer manager.StopAll()

	ops := server.New(server.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, sweep, server.SweepConfig{
		Timeout:        cfg.Cancellation.Timeout,
		BatchSize:      cfg.Cancellation.BatchSize,
		ExecutionLimit: cfg.Cancellation.ExecutionLimit,
	}, recheckWorker, server.NewResponseHandlers(responseRepo, responseService), logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- ops.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Ops server failed", zap.Error(err))
		}
	case sig := <-quit:
		logger.Info("Shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := ops.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ops server shutdown failed", zap.Error(err))
	}
}
