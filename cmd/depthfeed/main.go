package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/depthfeed/internal/orderbook/application"
	"github.com/wyfcoding/depthfeed/internal/orderbook/infrastructure/persistence/mysql"
	persistence_redis "github.com/wyfcoding/depthfeed/internal/orderbook/infrastructure/persistence/redis"
	httpserver "github.com/wyfcoding/depthfeed/internal/orderbook/interfaces/http"
	"github.com/wyfcoding/depthfeed/pkg/cache"
	"github.com/wyfcoding/depthfeed/pkg/config"
	"github.com/wyfcoding/depthfeed/pkg/db"
	"github.com/wyfcoding/depthfeed/pkg/logger"
	"github.com/wyfcoding/depthfeed/pkg/metrics"
	"github.com/wyfcoding/depthfeed/pkg/mq"
	"golang.org/x/sync/errgroup"
)

var configPath = flag.String("config", "configs/depthfeed/config.toml", "config file path")

func main() {
	flag.Parse()

	// 1. Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. Logger
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	ctx := context.Background()

	// 3. Metrics
	metricsImpl := metrics.New(cfg.ServiceName)
	if cfg.Metrics.Enabled {
		if err := metricsImpl.Register(); err != nil {
			logger.Fatal(ctx, "failed to register metrics", "error", err)
		}
		if err := metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Fatal(ctx, "failed to start metrics server", "error", err)
		}
	}

	// 4. Database
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to connect database", "error", err)
	}
	defer database.Close()

	// 5. Redis
	redisCache, err := cache.New(cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ConnTimeout:  cfg.Redis.ConnTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to connect redis", "error", err)
	}
	defer redisCache.Close()

	// 6. Kafka（可选）
	var producer application.EventProducer
	if cfg.Kafka.Enabled {
		kafkaProducer, err := mq.NewProducer(mq.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			MaxRetries:   cfg.Kafka.MaxRetries,
			RetryBackoff: cfg.Kafka.RetryBackoff,
		})
		if err != nil {
			logger.Fatal(ctx, "failed to create kafka producer", "error", err)
		}
		defer kafkaProducer.Close()
		producer = kafkaProducer
	}

	// 7. Repository & Application
	orderRepo := mysql.NewOrderRepository(database.DB)
	marketRepo := mysql.NewMarketRepository(database.DB)
	tradeRepo := mysql.NewTradeRepository(database.DB)
	store := persistence_redis.NewSnapshotStore(redisCache.GetClient())

	publisher := application.NewSnapshotPublisher(
		store,
		time.Duration(cfg.OrderBook.CacheTimeout)*time.Second,
		metricsImpl,
	)
	generator := application.NewBookGenerator(
		orderRepo, marketRepo, tradeRepo, publisher, producer, metricsImpl,
		application.GeneratorConfig{
			MaxActiveOrders: cfg.OrderBook.MaxActiveOrders,
			MaxBookItems:    cfg.OrderBook.MaxBookItems,
			SmallMarketSize: cfg.OrderBook.SmallMarketSize,
			PassTimeout:     time.Duration(cfg.OrderBook.PassTimeout) * time.Millisecond,
			Parallelism:     cfg.OrderBook.Parallelism,
			DepthTopic:      cfg.Kafka.DepthTopic,
		},
	)
	runner := application.NewRunner(generator, time.Duration(cfg.OrderBook.PassInterval)*time.Millisecond)
	queryService := application.NewDepthQueryService(store, marketRepo, cfg.OrderBook.MaxBookItems)

	// 8. HTTP
	gin.SetMode(gin.ReleaseMode)
	if cfg.Environment == "dev" {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Metrics.Enabled {
		router.Use(httpserver.MetricsMiddleware(metricsImpl))
	}

	handler := httpserver.NewOrderBookHandler(queryService)
	handler.RegisterRoutes(router.Group("/api"))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	// 9. Start
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		logger.Info(gctx, "HTTP server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := runner.Start(gctx); err != nil && err != context.Canceled {
			return err
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			logger.Info(gctx, "shutting down...")
		case <-gctx.Done():
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error(ctx, "server exited with error", "error", err)
	}
}
