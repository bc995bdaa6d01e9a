package main

import (
	"context"
	"database/sql"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"github.com/rl1809/marketplace/internal/adapter/handler"
	"github.com/rl1809/marketplace/internal/adapter/observer"
	"github.com/rl1809/marketplace/internal/adapter/storage"
	"github.com/rl1809/marketplace/internal/core/service"
	"github.com/rl1809/marketplace/internal/port"
	"github.com/rl1809/marketplace/pkg/config"
	"github.com/rl1809/marketplace/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("load config: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Int("queue_size_per_producer", cfg.Market.QueueSizePerProducer).
		Msg("starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Order records: MySQL when configured, memory otherwise
	var orders port.OrderRepository
	var db *sql.DB
	if cfg.MySQL.DSN != "" {
		db, err = sql.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open mysql")
		}
		db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to ping mysql")
		}
		mysqlAdapter := storage.NewMySQLAdapter(db)
		if err := mysqlAdapter.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to create order tables")
		}
		orders = mysqlAdapter
		log.Info().Msg("connected to mysql")
	} else {
		orders = observer.NewMemoryOrderRepository()
		log.Warn().Msg("MYSQL_DSN not set, orders are kept in memory")
	}

	dispatcher := observer.NewOrderDispatcher(orders, cfg.Orders.QueueSize, log)
	dispatcher.Start(cfg.Orders.Workers)

	observers := observer.Fanout{observer.NewLogObserver(log), dispatcher}

	// Event counters: Redis when configured
	var rdb *redis.Client
	var events port.EventStore
	var recorder *observer.AsyncRecorder
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("failed to connect redis")
		}
		redisAdapter := storage.NewRedisAdapter(rdb, storage.WithPrefix(cfg.Redis.Prefix))
		recorder = observer.NewAsyncRecorder(redisAdapter, cfg.Redis.Buffer, log)
		events = redisAdapter
		observers = append(observers, recorder)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to redis")
	}

	marketplace, err := service.NewMarketplace(cfg.Market.QueueSizePerProducer,
		service.WithObserver(observers),
		service.WithCartIDSpace(cfg.Market.CartIDSpace),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create marketplace")
	}

	// gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterMarketplaceServer(grpcServer, handler.NewGRPCHandler(marketplace))

	lis, err := net.Listen("tcp", cfg.GRPC.Addr())
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.GRPC.Addr()).Msg("failed to listen")
	}

	go func() {
		log.Info().Str("addr", cfg.GRPC.Addr()).Msg("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			log.Error().Err(err).Msg("gRPC server error")
		}
	}()

	// HTTP server
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		IdleTimeout:           60 * time.Second,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	handler.NewHTTPHandler(marketplace, events).Routes(app)

	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr()).Msg("HTTP server listening")
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down...")

	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown")
	}
	log.Info().Msg("HTTP server stopped")

	grpcServer.GracefulStop()
	log.Info().Msg("gRPC server stopped")

	// no more events after the transports are down; drain the background writers
	dispatcher.Close()
	ds := dispatcher.Stats()
	log.Info().Uint64("saved", ds.Saved).Uint64("dropped", ds.Dropped).Uint64("failed", ds.Failed).Msg("order workers stopped")

	if recorder != nil {
		recorder.Close()
		rs := recorder.Stats()
		log.Info().Uint64("recorded", rs.Recorded).Uint64("dropped", rs.Dropped).Uint64("failed", rs.Failed).Msg("event recorder stopped")
	}

	if rdb != nil {
		rdb.Close()
	}
	if db != nil {
		db.Close()
	}
	log.Info().Msg("connections closed")
}
