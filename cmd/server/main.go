package main

import (
	"context"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"captchaSolver/config"
	"captchaSolver/database"
	"captchaSolver/handlers"
	"captchaSolver/middleware"
	"captchaSolver/ocr"
	"captchaSolver/pool"
	"captchaSolver/queue"
	"captchaSolver/service"
	"captchaSolver/solver"
	"captchaSolver/storage"
	"captchaSolver/store"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()
	logger.Info("Captcha solver starting",
		zap.String("port", cfg.Port),
		zap.String("store_mode", cfg.StoreMode),
		zap.String("queue_mode", cfg.QueueMode),
	)

	taskStore := buildStore(cfg, logger)
	defer taskStore.Close()

	images, err := storage.NewImageStore(cfg.ScratchDir, logger)
	if err != nil {
		logger.Fatal("Scratch dir unavailable", zap.Error(err))
	}

	engines := ocr.BuildEngines(cfg.Engines, logger)
	cascade := solver.NewCascade(engines, logger)

	taskQueue := buildQueue(cfg, logger)
	defer taskQueue.Close()

	svc := service.NewTaskService(taskStore, images, taskQueue, cascade.Engines(), logger)
	processor := service.NewProcessor(taskStore, cascade, logger)
	workers := pool.NewWorkerPool(cfg.WorkerCount)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		err := taskQueue.Consume(ctx, func(ctx context.Context, msg *queue.Message) error {
			workers.Submit(ctx, msg, processor.Process)
			return nil
		})
		if err != nil && ctx.Err() == nil {
			logger.Error("Queue consumer stopped", zap.Error(err))
		}
	}()

	// Janitor: temp images whose task record already expired unpolled.
	go func() {
		ticker := time.NewTicker(cfg.TaskTTL)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				images.Sweep(cfg.TaskTTL)
			case <-ctx.Done():
				return
			}
		}
	}()

	captchaHandler := handlers.NewCaptchaHandler(svc, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/in.php", captchaHandler.Submit)
	mux.HandleFunc("/res.php", captchaHandler.Result)
	mux.HandleFunc("/health", captchaHandler.Health)
	mux.HandleFunc("/stats", captchaHandler.Stats)
	mux.Handle("/metrics", promhttp.Handler())

	handler := middleware.TraceID(
		middleware.Recovery(logger)(
			middleware.Logging(logger)(mux),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("Server started", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
	}
	workers.Wait()
}

func buildStore(cfg *config.Config, logger *zap.Logger) store.Store {
	if cfg.StoreMode == "memory" {
		return store.NewMemoryStore(cfg.TaskTTL)
	}

	db, err := database.Connect(cfg.RedisAddr)
	if err != nil {
		logger.Fatal("Redis unavailable", zap.Error(err))
	}
	return store.NewRedisStore(db, cfg.TaskTTL)
}

func buildQueue(cfg *config.Config, logger *zap.Logger) queue.Queue {
	if cfg.QueueMode == "kafka" {
		q, err := queue.NewKafkaQueue(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaTopic, cfg.KafkaGroupID)
		if err != nil {
			logger.Fatal("Kafka unavailable", zap.Error(err))
		}
		return q
	}
	return queue.NewChannelQueue(cfg.QueueSize)
}
