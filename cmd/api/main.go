package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"homevault/auth"
	"homevault/config"
	"homevault/db"
	"homevault/events"
	"homevault/httpapi"
	"homevault/offer"
	"homevault/property"
	"homevault/settlement"
	"homevault/wishlist"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		log.Fatal("connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatal("ping database", zap.Error(err))
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal("parse redis url", zap.Error(err))
		}
		redisClient := redis.NewClient(redisOpts)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, continuing without events", zap.Error(err))
		} else {
			publisher = events.NewRedisPublisher(redisClient, log)
		}
	}

	authRepo := auth.NewRepository(pool)
	propertyRepo := property.NewRepository(pool)
	offerRepo := offer.NewRepository(pool)
	wishlistRepo := wishlist.NewRepository(pool)

	authSvc := auth.NewService(authRepo, cfg.JWTSecret, cfg.TokenTTL)
	propertySvc := property.NewService(propertyRepo)
	wishlistSvc := wishlist.NewService(wishlistRepo)
	submissionSvc := offer.NewSubmissionService(offerRepo, propertyRepo, wishlistSvc, publisher, log)
	decisionSvc := offer.NewDecisionService(offerRepo, publisher, log)

	provider := settlement.NewHTTPProvider(cfg.GatewayBaseURL, cfg.GatewayAPIKey, cfg.GatewayTimeout)
	settlementSvc := settlement.NewService(offerRepo, propertyRepo, provider, publisher, settlement.Options{
		SuccessURL: cfg.CheckoutSuccessURL,
		CancelURL:  cfg.CheckoutCancelURL,
		Currency:   cfg.Currency,
		Timeout:    cfg.GatewayTimeout,
	}, log)

	app := httpapi.NewApp(httpapi.Services{
		Auth:        authSvc,
		Properties:  propertySvc,
		Submissions: submissionSvc,
		Decisions:   decisionSvc,
		Settlement:  settlementSvc,
		Wishlist:    wishlistSvc,
	}, log)

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		_ = app.Shutdown()
	}()

	log.Info("listening", zap.String("port", cfg.APIPort))
	if err := app.Listen(":" + cfg.APIPort); err != nil {
		log.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}
