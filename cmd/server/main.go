package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/nexus-rag/nexus/internal/ai"
	"github.com/nexus-rag/nexus/internal/chat"
	"github.com/nexus-rag/nexus/internal/common"
	"github.com/nexus-rag/nexus/internal/config"
	"github.com/nexus-rag/nexus/internal/db"
	"github.com/nexus-rag/nexus/internal/httpapi"
	"github.com/nexus-rag/nexus/internal/httpapi/handlers"
	"github.com/nexus-rag/nexus/internal/rag"
	"github.com/nexus-rag/nexus/internal/retention"
	"github.com/nexus-rag/nexus/internal/secure"
	"github.com/nexus-rag/nexus/internal/store/rabbitmq"
	"github.com/nexus-rag/nexus/internal/store/redisstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.APIKey == "" {
		log.Printf("WARNING: NEXUS_API_KEY is not set; all protected routes will be rejected")
	}

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}

	cipher, err := secure.NewCipher(cfg.Secret)
	if err != nil {
		log.Fatalf("cipher: %v", err)
	}

	repo := secure.NewRepo(gdb)
	secSvc := secure.NewService(
		repo,
		cipher,
		cfg.DailyRequestLimit,
		time.Duration(cfg.LogRetentionHours)*time.Hour,
		common.NewULID,
	)

	if cfg.RedisAddr != "" {
		cache := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := cache.Ping(context.Background()); err != nil {
			log.Printf("redis unavailable, snapshot cache disabled: %v", err)
		} else {
			secSvc.WithCache(cache)
		}
	}

	sweeper := retention.NewSweeper(
		repo,
		time.Duration(cfg.ChatRetentionHours)*time.Hour,
		time.Duration(cfg.LogRetentionHours)*time.Hour,
	)

	reg := ai.NewRegistry()
	reg.Register("ollama", func(ctx context.Context, model string) (ai.Provider, error) {
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.OllamaModel
		}
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, m), nil
	})
	reg.Register("openrouter", func(ctx context.Context, model string) (ai.Provider, error) {
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.OpenRouterModel
		}
		return ai.NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, m), nil
	})

	retriever := rag.NewClient(cfg.RetrieverBaseURL)
	chatSvc := chat.NewService(reg, retriever, cfg.AIProvider, "")

	var rabbit *rabbitmq.Publisher
	if cfg.RabbitURL != "" {
		rabbit, err = rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			log.Printf("rabbit unavailable, logging synchronously: %v", err)
			rabbit = nil
		} else {
			defer rabbit.Close()
		}
	}

	// Without a broker there is no worker process running the retention
	// ticker, so the server runs it.
	if rabbit == nil {
		go sweeper.Run(context.Background(), time.Duration(cfg.SweepIntervalMin)*time.Minute)
	}

	h := handlers.NewHandler(cfg, secSvc, sweeper, chatSvc, retriever, rabbit)
	r := httpapi.NewRouter(h)

	log.Printf("nexus api listening on %s", cfg.Addr)
	if err := r.Run(cfg.Addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
