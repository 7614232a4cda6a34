// AI proxy - routes Arabic stock commands and parses pasted WhatsApp orders.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/stockdesk/ai-proxy/internal/ai/router"
	"github.com/stockdesk/ai-proxy/internal/ai/services"
	"github.com/stockdesk/ai-proxy/internal/cache"
	"github.com/stockdesk/ai-proxy/internal/config"
	"github.com/stockdesk/ai-proxy/internal/jsonx"
	"github.com/stockdesk/ai-proxy/internal/metrics"
	"github.com/stockdesk/ai-proxy/internal/orders"
	"github.com/stockdesk/ai-proxy/internal/proxy"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (optional)")
	parseFile := flag.String("parse", "", "Parse orders from a file ('-' for stdin), print JSON and exit")
	useAI := flag.Bool("ai", false, "With -parse, also ask the configured LLM providers")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	var logger *zap.Logger
	if cfg.LogLevel == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	reg := metrics.NewRegistry()
	pipeline, cleanup := buildPipeline(cfg, reg, logger)
	defer cleanup()

	if *parseFile != "" {
		if err := parseOnce(pipeline, *parseFile, *useAI); err != nil {
			logger.Fatal("Parse failed", zap.Error(err))
		}
		return
	}

	server := proxy.NewServer(pipeline, reg, logger, cfg.AllowedOrigins...)
	srv := &http.Server{
		Handler:           server.Handler(),
		Addr:              cfg.Addr(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		ReadTimeout:       120 * time.Second,
	}

	// Graceful Shutdown
	go func() {
		logger.Info("AI proxy listening",
			zap.String("addr", srv.Addr),
			zap.Strings("origins", cfg.AllowedOrigins))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server startup failed", zap.Error(err))
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	logger.Info("Shutting down AI proxy...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("API shutdown error", zap.Error(err))
	}
}

// buildPipeline wires the parse cache and the optional LLM candidate source.
func buildPipeline(cfg *config.Config, reg *metrics.Registry, logger *zap.Logger) (*orders.Pipeline, func()) {
	var redisClient *redis.Client
	if cfg.Cache.RedisAddress != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr: cfg.Cache.RedisAddress,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn("Failed to connect to Redis, parse cache stays in memory only", zap.Error(err))
			redisClient.Close()
			redisClient = nil
		}
		cancel()
	}

	cacheCfg := cache.DefaultConfig()
	cacheCfg.TTL = cfg.Cache.TTL
	cacheCfg.MaxCost = cfg.Cache.MaxCost
	store, err := cache.NewTTLStore(cacheCfg, redisClient, logger)
	if err != nil {
		logger.Fatal("Failed to create parse cache", zap.Error(err))
	}
	reg.WatchCache(store.Stats)

	cleanup := func() {
		store.Close()
		if redisClient != nil {
			redisClient.Close()
		}
	}

	var source orders.CandidateSource
	if cfg.AI.Enabled {
		llm := router.New(routerConfig(cfg), logger)
		if llm.Available() {
			extractor, err := services.NewOrderExtractor(services.OrderExtractorConfig{
				Timeout:    cfg.AI.Timeout,
				RatePerSec: cfg.AI.RatePerSec,
				Burst:      cfg.AI.Burst,
			}, llm, logger)
			if err != nil {
				logger.Fatal("Failed to create order extractor", zap.Error(err))
			}
			source = extractor
			logger.Info("LLM providers configured", zap.Any("providers", llm.Providers()))
		} else {
			logger.Info("No LLM provider configured, parsing with rules only")
		}
	}

	pipelineCfg := orders.DefaultPipelineConfig()
	pipelineCfg.Concurrency = cfg.AI.Concurrency
	return orders.NewPipeline(pipelineCfg, source, store, reg, logger), cleanup
}

func routerConfig(cfg *config.Config) *router.Config {
	rc := router.DefaultConfig()
	rc.OpenAIKey = cfg.AI.OpenAIKey
	rc.OpenAIBaseURL = cfg.AI.OpenAIURL
	rc.GLMKey = cfg.AI.GLMKey
	rc.NVIDIAKey = cfg.AI.NVIDIAKey
	rc.AnthropicKey = cfg.AI.AnthropicKey
	rc.OllamaURL = cfg.AI.OllamaURL
	rc.RequestTimeout = cfg.AI.Timeout
	if cfg.AI.OpenAIModel != "" {
		rc.Models = map[router.Provider]string{router.ProviderOpenAI: cfg.AI.OpenAIModel}
	}
	if len(cfg.AI.Providers) > 0 {
		rc.Order = rc.Order[:0]
		for _, p := range cfg.AI.Providers {
			rc.Order = append(rc.Order, router.Provider(p))
		}
	}
	return rc
}

func parseOnce(p *orders.Pipeline, path string, useAI bool) error {
	var in io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	text, err := io.ReadAll(in)
	if err != nil {
		return err
	}

	enc := jsonx.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(p.Extract(context.Background(), string(text), useAI))
}
