package main

import (
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/acmebet/gatekeeper/adapters/directory"
	"github.com/acmebet/gatekeeper/adapters/events"
	"github.com/acmebet/gatekeeper/adapters/i18n"
	"github.com/acmebet/gatekeeper/adapters/security"
	"github.com/acmebet/gatekeeper/adapters/siwe"
	"github.com/acmebet/gatekeeper/adapters/store"
	"github.com/acmebet/gatekeeper/adapters/tokenizer"
	"github.com/acmebet/gatekeeper/internal/config"
	"github.com/acmebet/gatekeeper/service"
	"github.com/acmebet/gatekeeper/transport/http"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opts)

	logger := watermill.NewStdLogger(false, false)
	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		logger,
	)
	if err != nil {
		log.Fatalf("Failed to create Redis publisher: %v", err)
	}

	users, err := directory.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open user directory: %v", err)
	}

	builder, err := siwe.NewBuilder(cfg.FrontendURL, cfg.ChainID)
	if err != nil {
		log.Fatalf("Failed to build challenge builder: %v", err)
	}

	tokens := tokenizer.NewJWTTokenizer(
		[]byte(cfg.AccessTokenSecret),
		[]byte(cfg.RefreshTokenSecret),
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
	)

	authService := service.NewAuthService(
		users,
		store.NewRedisStore(redisClient),
		tokens,
		security.NewBcryptHasher(cfg.HashConcurrency),
		builder,
		siwe.NewVerifier(builder.Domain()),
		events.NewWatermillPublisher(publisher),
		service.Options{StorePresentedRefreshToken: cfg.StorePresentedRefreshToken},
	)

	router := http.SetupRouter(authService, i18n.NewSource())

	if err := router.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
