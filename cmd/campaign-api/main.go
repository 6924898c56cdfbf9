package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"campaign-engine/internal/agent"
	"campaign-engine/internal/cache"
	"campaign-engine/internal/campaign"
	"campaign-engine/internal/config"
	"campaign-engine/internal/httpapi"
	"campaign-engine/internal/kstream"
	"campaign-engine/internal/logger"
	"campaign-engine/internal/matching"
	"campaign-engine/internal/model"
	"campaign-engine/internal/orchestrator"
	"campaign-engine/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Get("main").WithError(err).Fatal("Config: load failed")
	}
	logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cfg.LogOutput,
		File:   cfg.LogFile,
	})
	log := logger.Get("main")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := openStore(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Store: open failed")
	}
	defer func() { _ = repo.Close(context.Background()) }()

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = cache.NewClient(cfg.RedisAddr)
		defer rdb.Close()
	}

	var opts []orchestrator.Option
	var serverOpts []httpapi.Option
	if cfg.RemoteConfigured() {
		var inv agent.Invoker = agent.NewClient(cfg.AgentBaseURL, cfg.AgentAPIKey, cfg.AgentTimeout)
		if rdb != nil {
			cached := cache.NewInvoker(inv, rdb, cfg.AgentCacheTTL)
			inv = cached
			serverOpts = append(serverOpts, httpapi.WithCacheStats(cached))
			log.WithField("addr", cfg.RedisAddr).Info("Cache: agent replies cached in Redis")
		}
		opts = append(opts, orchestrator.WithRemote(inv))
		log.WithField("base_url", cfg.AgentBaseURL).Info("Agent: remote runtime enabled")
	}

	var producer *kstream.Producer
	if cfg.KafkaEnabled {
		producer = kstream.NewProducer(cfg.KafkaBroker, cfg.KafkaGeneratedTopic)
		defer producer.Close()
		opts = append(opts, orchestrator.WithPublisher(producer))
	}

	ctrl := orchestrator.NewController(cfg, opts...)

	// Start Kafka request consumer in background goroutine
	if cfg.KafkaEnabled {
		reader := kstream.KafkaReader(cfg.KafkaBroker, cfg.KafkaRequestTopic, cfg.KafkaConsumerGroupID)
		var dedup kstream.Deduper
		if rdb != nil {
			dedup = cache.NewRequestLog(rdb, 24*time.Hour)
		}
		go func() {
			defer reader.Close()
			log.WithField("topic", cfg.KafkaRequestTopic).Info("Kafka: starting request consumer")
			if err := kstream.ConsumeRequests(ctx, reader, ctrl, dedup); err != nil {
				log.WithError(err).Error("Kafka: request consumer stopped")
			}
		}()
	}

	r := mux.NewRouter()
	srv := httpapi.NewServer(
		ctrl,
		campaign.NewService(matching.NewEngine(), cfg.SpecialDayLookahead, time.Now),
		repo,
		store.Defaults{
			Region: model.Region{
				Name:         cfg.DefaultRegion,
				ClimateType:  cfg.DefaultClimateType,
				MedianBasket: cfg.DefaultMedianBasket,
				Trend:        cfg.DefaultRegionTrend,
			},
			TenantID:    cfg.DefaultTenantID,
			MaxProducts: cfg.DefaultMaxProducts,
		},
		cfg.RemoteConfigured(),
		serverOpts...,
	)
	srv.RegisterRoutes(r)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info("Shutting down...")
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), 15*time.Second)
		defer done()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", cfg.HTTPAddr).Info("Campaign API listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server error")
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Repository, error) {
	if cfg.Store == "mongo" {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return store.NewMongoStore(connectCtx, cfg.MongoURI, cfg.MongoDBName)
	}
	return store.NewFileStore(cfg.DataDir), nil
}
