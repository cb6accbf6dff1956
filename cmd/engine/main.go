package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	app "github.com/azaynul10/CarbonPro-AI/internal/app/engine"
	"github.com/azaynul10/CarbonPro-AI/internal/infrastructure/postgresql/order"
	"github.com/azaynul10/CarbonPro-AI/internal/usecase/dispatch"
	"github.com/azaynul10/CarbonPro-AI/internal/usecase/eventstream"
	orderreader "github.com/azaynul10/CarbonPro-AI/internal/usecase/order-reader"
	"github.com/azaynul10/CarbonPro-AI/internal/usecase/snapshot"
	"github.com/azaynul10/CarbonPro-AI/internal/usecase/stats"
	"github.com/azaynul10/CarbonPro-AI/pkg/config"
	"github.com/azaynul10/CarbonPro-AI/pkg/logger"
	"github.com/azaynul10/CarbonPro-AI/pkg/postgresql"
	"github.com/azaynul10/CarbonPro-AI/pkg/redis"
)

var cfg *config.Config
var log *logger.Logger

func init() {
	cfg = &config.Config{}
	config.MustLoad(cfg)

	l, err := logger.NewLogger()
	if err != nil {
		panic(err)
	}
	log = l
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	redisClient, err := redis.NewClient(ctx, redis.Config{
		Addr:           cfg.RedisConfig.Addr,
		Username:       cfg.RedisConfig.Username,
		Password:       cfg.RedisConfig.Password,
		DB:             cfg.RedisConfig.DB,
		ConnectTimeout: cfg.RedisConfig.ConnectTimeout,
	})
	if err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "connect_redis"})
		return
	}
	defer redisClient.Close()

	pgClient, err := postgresql.NewClient(ctx, cfg.PostgresConfig)
	if err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "connect_postgresql"})
		return
	}
	defer pgClient.Close()

	reader := orderreader.NewReader(cfg.OrderStreamConfig, log)
	publisher := eventstream.NewPublisher(cfg.EventStreamConfig, log)
	snapshotStore := snapshot.NewStore(redisClient, cfg.RedisConfig.KeyPrefix, log)
	repo := order.NewRepository(pgClient, log)
	marketStats := stats.NewMarketStats(cfg.EngineConfig.TradeHistoryDepth)
	pool := dispatch.NewPool(cfg.EngineConfig.AnalyticsWorkers, cfg.EngineConfig.AnalyticsTimeout, log)

	engine := app.NewEngine(
		cfg.Instruments,
		reader,
		publisher,
		snapshotStore,
		repo,
		marketStats,
		pool,
		log,
		app.OptionsFromConfig(cfg.EngineConfig),
	)

	if err := engine.Start(ctx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "start_engine"})
		return
	}

	log.Info("engine started",
		logger.Field{Key: "instruments", Value: cfg.Instruments},
	)

	sig := <-sigChan
	log.Info("received shutdown signal",
		logger.Field{Key: "signal", Value: sig.String()},
	)

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.EngineConfig.StopTimeout)
	defer shutdownCancel()

	if err := engine.Stop(shutdownCtx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "stop_engine"})
	}

	log.Info("engine shutdown complete")
}
