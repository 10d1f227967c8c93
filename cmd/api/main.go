package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"auth-service/internal/config"
	"auth-service/internal/db"
	"auth-service/internal/email"
	"auth-service/internal/hash"
	apihttp "auth-service/internal/http"
	"auth-service/internal/repository"
	"auth-service/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	hasher := hash.NewArgon2Hasher(hash.DefaultParams(), 0)
	userStore := repository.NewPgUserStore(pool, hasher)

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	// Sin redis los stores con TTL quedan en memoria: suficiente para
	// una sola instancia, no para un despliegue con replicas.
	bannedTokens := service.NewMemoryBannedTokenStore()
	twoFACodes := service.NewMemoryTwoFACodeStore()
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			bannedTokens = service.NewRedisBannedTokenStore(redisClient)
			twoFACodes = service.NewRedisTwoFACodeStore(redisClient)
		}
		cancel()
	}

	sessions := service.NewSessionService(cfg.JWTSecret, bannedTokens)
	authSvc := service.NewAuthService(logger, userStore, twoFACodes, sessions, emailSender)
	authHandler := apihttp.NewAuthHandler(logger, authSvc)
	router := apihttp.NewRouter(logger, authHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
