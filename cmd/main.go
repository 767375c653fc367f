package main

import (
	"context"
	"net/http"

	"matchago/backend/internal/api/handler"
	"matchago/backend/internal/chathub"
	"matchago/backend/internal/config"
	"matchago/backend/internal/logger"
	"matchago/backend/internal/match"
	"matchago/backend/internal/models"
	"matchago/backend/internal/pool"
	"matchago/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(cfg *config.Config, log *zap.SugaredLogger) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalw("postgres connect failed", "err", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalw("redis connect failed", "err", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Match{}); err != nil {
		log.Fatalw("migrations failed", "err", err)
	}

	log.Infow("database and redis ready")
	return db, rdb
}

func main() {
	// A .env file is optional; containerized deployments set real env vars.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel)
	defer log.Sync()

	log.Infow("starting matchago backend")

	db, rdb := setupDependencies(cfg, log)

	st := storage.NewService(db)
	queues := pool.NewStore(rdb)
	presence := pool.NewPresenceStore(rdb)
	pending := pool.NewPendingStore(rdb)

	engine := match.NewEngine(st, queues, presence, pending, cfg.Match, cfg.TTL, log)

	hub := chathub.NewManagerService(rdb, engine.Cleanup, log)
	go hub.Run(context.Background())

	r := gin.Default()
	h := handler.NewHandler(hub, engine, st, cfg, log)
	h.Register(r)

	server := &http.Server{
		Addr:           cfg.HTTP.Addr,
		Handler:        r,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	log.Infow("http server listening", "addr", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalw("server stopped", "err", err)
	}
}
