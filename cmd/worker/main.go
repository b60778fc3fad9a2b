package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/ringlater/review-followup/internal/api"
	"github.com/ringlater/review-followup/internal/cache"
	"github.com/ringlater/review-followup/internal/client"
	"github.com/ringlater/review-followup/internal/config"
	"github.com/ringlater/review-followup/internal/repo"
	"github.com/ringlater/review-followup/internal/scheduler"
	"github.com/ringlater/review-followup/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadWorker()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	db, err := sql.Open("pgx", cfg.Database.PostgresURL)
	if err != nil {
		slog.Error("failed to open postgres", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		slog.Error("postgres unreachable", "err", err)
		os.Exit(1)
	}

	sender := client.NewEZTextingClient(
		cfg.EZTexting.BaseURL,
		cfg.EZTexting.MessagePath,
		cfg.EZTexting.AppKey,
		cfg.EZTexting.AppSecret,
	)

	processor := service.NewProcessor(repo.NewPostgresJobRepo(db), sender, cfg.Worker.BatchSize)

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		processor.WithSentRecorder(cache.NewRedisCache(rdb, cfg.Redis.TTL))
	}

	sched, err := scheduler.New(cfg.Worker.IdleInterval, func(ctx context.Context) int {
		n, err := processor.ProcessOnce(ctx)
		if err != nil {
			// A failed cycle is retried on the idle interval; the loop
			// never terminates the process.
			slog.Error("processor cycle failed", "err", err)
			return 0
		}
		return n
	})
	if err != nil {
		slog.Error("failed to build processor loop", "err", err)
		os.Exit(1)
	}

	sched.Start()

	ops := &http.Server{
		Addr:    cfg.Worker.OpsAddress,
		Handler: api.OpsRouter(api.NewOpsHandler(sched)),
	}
	go func() {
		slog.Info("ops endpoint listening", "addr", cfg.Worker.OpsAddress)
		if err := ops.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("ops endpoint failed", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
	sched.Stop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := ops.Shutdown(shutdownCtx); err != nil {
		slog.Error("ops shutdown failed", "err", err)
	}
}
