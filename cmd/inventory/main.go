package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/fekuna/omnipos-inventory-service/config"
	invH "github.com/fekuna/omnipos-inventory-service/internal/inventory/handler"
	invListenerPkg "github.com/fekuna/omnipos-inventory-service/internal/inventory/listener"
	invRepoPkg "github.com/fekuna/omnipos-inventory-service/internal/inventory/repository"
	invUCPkg "github.com/fekuna/omnipos-inventory-service/internal/inventory/usecase"
	"github.com/fekuna/omnipos-inventory-service/internal/kv"
	"github.com/fekuna/omnipos-inventory-service/internal/kv/file"
	"github.com/fekuna/omnipos-inventory-service/internal/kv/memory"
	kvredis "github.com/fekuna/omnipos-inventory-service/internal/kv/redis"
	kvs3 "github.com/fekuna/omnipos-inventory-service/internal/kv/s3"
	"github.com/fekuna/omnipos-inventory-service/internal/kv/sqlstore"
	"github.com/fekuna/omnipos-inventory-service/internal/pkg/logger"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "development" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = "console"
		logConfig.Level = "debug"
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Open Storage
	store, err := openStore(ctx, cfg)
	if err != nil {
		appLogger.Fatal("Could not open storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	appLogger.Info("Storage ready", zap.String("driver", cfg.Storage.Driver))

	// 4. Repository, UseCase, Handlers
	invRepo := invRepoPkg.NewKVRepository(store)
	invUC := invUCPkg.NewInventoryUseCase(invRepo, appLogger)
	grpcHandler := invH.NewInventoryHandler(invUC, appLogger)
	httpApp := invH.NewHTTPApp(invH.NewHTTPHandler(invUC, appLogger))

	// 5. Kafka usage listener
	var reader invListenerPkg.MessageReader
	if cfg.Kafka.Enabled {
		reader = invListenerPkg.NewKafkaReader(invListenerPkg.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		})
		usageListener := invListenerPkg.NewUsageListener(reader, invUC, appLogger)
		go usageListener.Start(ctx)
		appLogger.Info("Kafka usage listener started", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	// 6. Start gRPC Server
	port := cfg.Server.GRPCPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	lis, err := net.Listen("tcp", port)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	grpcServer := grpc.NewServer()
	invH.RegisterInventoryServiceServer(grpcServer, grpcHandler)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(invH.InventoryServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	reflection.Register(grpcServer)

	appLogger.Info("Starting gRPC server", zap.String("port", port))
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	// 7. Start HTTP Server
	httpPort := cfg.Server.HTTPPort
	if !strings.HasPrefix(httpPort, ":") {
		httpPort = ":" + httpPort
	}
	appLogger.Info("Starting HTTP server", zap.String("port", httpPort))
	go func() {
		if err := httpApp.Listen(httpPort); err != nil {
			appLogger.Fatal("failed to serve http", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	cancel()
	healthServer.Shutdown()
	grpcServer.GracefulStop()

	var shutdownErr error
	shutdownErr = multierr.Append(shutdownErr, httpApp.ShutdownWithTimeout(5*time.Second))
	if reader != nil {
		shutdownErr = multierr.Append(shutdownErr, reader.Close())
	}
	shutdownErr = multierr.Append(shutdownErr, store.Close())
	if shutdownErr != nil {
		appLogger.Error("Shutdown finished with errors", zap.Error(shutdownErr))
	}
	appLogger.Info("Server stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (kv.Store, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return memory.New(), nil
	case "file", "":
		return file.Open(cfg.Storage.FilePath), nil
	case "redis":
		return kvredis.Open(ctx, kvredis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
	case "postgres":
		return sqlstore.Open(ctx, sqlstore.Config{
			Driver:          sqlstore.DriverPostgres,
			DSN:             cfg.Postgres.DSN(),
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
			ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
		})
	case "sqlite":
		return sqlstore.Open(ctx, sqlstore.Config{
			Driver:       sqlstore.DriverSQLite,
			DSN:          cfg.SQLite.Path,
			MaxOpenConns: 1,
		})
	case "s3":
		return kvs3.Open(ctx, kvs3.Config{
			Region: cfg.S3.Region,
			Bucket: cfg.S3.Bucket,
			Key:    cfg.S3.Key,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
