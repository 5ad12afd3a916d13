package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/fathima-sithara/tours-service/internal/api"
	"github.com/fathima-sithara/tours-service/internal/auth"
	"github.com/fathima-sithara/tours-service/internal/config"
	"github.com/fathima-sithara/tours-service/internal/events"
	"github.com/fathima-sithara/tours-service/internal/logger"
	"github.com/fathima-sithara/tours-service/internal/mail"
	"github.com/fathima-sithara/tours-service/internal/metrics"
	"github.com/fathima-sithara/tours-service/internal/repository"
	"github.com/fathima-sithara/tours-service/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	zlog, err := logger.New(cfg.App.Development())
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx := context.Background()

	mc, err := repository.NewMongoClient(ctx, cfg.Mongo.DSN())
	if err != nil {
		zlog.Fatalw("mongo init", "err", err)
	}
	defer func() { _ = mc.Disconnect(context.Background()) }()

	db := mc.Database(cfg.Mongo.DB)
	userRepo := repository.NewUserRepository(db.Collection("users"))
	tourRepo := repository.NewTourRepository(db.Collection("tours"))

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
	}

	var pub *events.Publisher
	if cfg.Kafka.Enabled {
		pub = events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, zlog)
		defer func() { _ = pub.Close() }()
	}

	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.ExpiresIn)
	mailer := mail.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)

	authSvc := service.NewAuthService(userRepo, tokens, mailer, pub, zlog)
	tourSvc := service.NewTourService(tourRepo, pub)
	userSvc := service.NewUserService(userRepo)

	app := api.NewServer(cfg, zlog, authSvc, tourSvc, userSvc, rdb)

	go func() {
		if err := http.ListenAndServe(cfg.App.MetricsAddr, metrics.Handler()); err != nil {
			zlog.Errorw("metrics listen", "err", err)
		}
	}()

	go func() {
		if err := app.Listen(":" + cfg.App.PortString()); err != nil {
			zlog.Fatalw("server listen", "err", err)
		}
	}()
	zlog.Infow("tours-service started", "port", cfg.App.Port, "env", cfg.App.Env)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = app.ShutdownWithContext(shutdownCtx)
	zlog.Info("tours-service stopped")
}
