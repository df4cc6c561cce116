package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/adapters/grpc/handler"
	redisnotify "github.com/ogurasousui/codex-hiring-lifecycle/internal/adapters/notify/redis"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/adapters/repository/postgres"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/lifecycle"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/notification"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/platform/config"
	pg "github.com/ogurasousui/codex-hiring-lifecycle/internal/platform/db/postgres"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/platform/logger"
	"github.com/ogurasousui/codex-hiring-lifecycle/internal/platform/server"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// .env は任意。存在しなければ環境変数のみを使う。
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	log := logger.New(os.Stdout, cfg.Log)
	slog.SetDefault(log)

	dbPool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	notifiers := []notification.Notifier{postgres.NewNotificationRepository(dbPool)}
	if cfg.Redis.Enabled() {
		redisClient, err := redisnotify.NewClient(ctx, redisnotify.Config{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err != nil {
			return err
		}
		defer redisClient.Close()
		notifiers = append(notifiers, redisnotify.NewPublisher(redisClient))
	} else {
		log.Info("redis notifications disabled")
	}

	lifecycleSvc := lifecycle.NewService(lifecycle.Dependencies{
		Candidates:  postgres.NewCandidateRepository(dbPool),
		Users:       postgres.NewUserRepository(dbPool),
		Vacancies:   postgres.NewVacancyRepository(dbPool),
		Courses:     postgres.NewCourseRepository(dbPool),
		Assessments: postgres.NewAssessmentRepository(dbPool),
		Offers:      postgres.NewOfferRepository(dbPool),
		Notifier:    notification.NewFanout(notifiers...),
		Tx:          pg.NewTransactionManager(dbPool, pg.WithLockTimeout(cfg.Database.LockTimeout)),
		Logger:      log,
	})

	auth := handler.NewAuthenticator(cfg.Auth.JWTSecret, server.PublicMethods()...)
	grpcServer := server.New(cfg.Server.ListenAddr, handler.NewLifecycleGrpcHandler(lifecycleSvc), auth, log)

	log.Info("gRPC server listening", "addr", cfg.Server.ListenAddr)

	return grpcServer.Run(ctx)
}
