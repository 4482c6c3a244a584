package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/fjod/food-orders/internal/auth"
	"github.com/fjod/food-orders/internal/cache"
	"github.com/fjod/food-orders/internal/catalog"
	"github.com/fjod/food-orders/internal/config"
	ordersgrpc "github.com/fjod/food-orders/internal/grpc"
	h "github.com/fjod/food-orders/internal/http"
	"github.com/fjod/food-orders/internal/logger"
	"github.com/fjod/food-orders/internal/poller"
	"github.com/fjod/food-orders/internal/publisher"
	"github.com/fjod/food-orders/internal/repository"
	"github.com/fjod/food-orders/internal/service"
	"github.com/fjod/food-orders/internal/tracking"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogPretty)
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("service stopped with error")
	}
	log.Info().Msg("service exited")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pricing, err := cfg.Pricing()
	if err != nil {
		return err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return err
	}

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	// Orders: Postgres
	db, err := repository.ConnectPostgres(connectCtx, cfg.Postgres())
	if err != nil {
		return err
	}
	orderRepo := repository.NewPostgresRepository(db)
	defer orderRepo.Close()
	if err := orderRepo.RunMigrations(cfg.MigrationsPath); err != nil {
		return err
	}
	log.Info().Msg("order migrations completed")

	// Carts: MongoDB + Redis
	mongoDB, err := repository.ConnectMongoDB(connectCtx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		return err
	}
	defer func() {
		if err := mongoDB.Client().Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect failed")
		}
	}()
	cartRepo := repository.NewMongoCartRepository(mongoDB)
	if err := cartRepo.CreateIndexes(connectCtx); err != nil {
		return err
	}

	redisClient, err := cache.ConnectRedis(connectCtx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	// Catalog: SQLite
	catalogRepo, err := catalog.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		return err
	}
	defer catalogRepo.Close()
	if err := catalogRepo.RunMigrations(cfg.CatalogMigrationsPath); err != nil {
		return err
	}

	cartService := service.NewCartService(cartRepo, cache.NewRedisCache(redisClient), catalogRepo, pricing, log)
	checkoutService := service.NewCheckoutService(cartService, orderRepo, pricing, log)
	orderService := service.NewOrderService(orderRepo, policy, log)

	router := h.NewRouter(h.RouterConfig{
		Cart:               h.NewCartHandler(cartService, cfg.RequestTimeout),
		Orders:             h.NewOrdersHandler(checkoutService, orderService, tracking.NewQRGenerator(cfg.TrackingBaseURL), cfg.RequestTimeout),
		Catalog:            h.NewCatalogHandler(catalogRepo, cfg.RequestTimeout),
		Verifier:           auth.NewJWTVerifier(cfg.JWTSecret),
		Logger:             log,
		AllowedOrigins:     cfg.AllowedOrigins(),
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: 1 << 20, // 1MB
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("failed to listen on grpc port: %w", err)
	}
	grpcServer := ordersgrpc.NewServer(log,
		ordersgrpc.Check{Name: "postgres", Ping: db.PingContext},
		ordersgrpc.Check{Name: "mongodb", Ping: func(ctx context.Context) error { return mongoDB.Client().Ping(ctx, nil) }},
		ordersgrpc.Check{Name: "redis", Ping: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
	)

	outbox := publisher.NewOutboxPoller(orderRepo, publisher.NewKafkaWriter(cfg.OrderEventsTopic, cfg.Brokers()...), log)
	defer outbox.Close()
	consumer := poller.NewPoller(poller.NewKafkaReader(cfg.OrderEventsTopic, cfg.ConsumerGroupID, cfg.Brokers()...), cartService, log)
	defer consumer.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.HTTPPort).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return grpcServer.Serve(gctx, lis)
	})
	g.Go(func() error {
		outbox.Run(gctx)
		return nil
	})
	g.Go(func() error {
		consumer.Run(gctx)
		return nil
	})

	return g.Wait()
}
