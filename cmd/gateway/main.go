package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/nexis-chat/nexis/gateway/internal/application/gateway"
	"github.com/nexis-chat/nexis/gateway/internal/domain/repository"
	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/auth"
	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/config"
	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/embedding"
	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/indexing"
	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/llm"
	_ "github.com/nexis-chat/nexis/gateway/internal/infrastructure/llm/anthropic"
	_ "github.com/nexis-chat/nexis/gateway/internal/infrastructure/llm/gemini"
	_ "github.com/nexis-chat/nexis/gateway/internal/infrastructure/llm/openai"
	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/logger"
	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/monitoring"
	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/persistence"
	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/search"
	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/vectorstore"
	httpserver "github.com/nexis-chat/nexis/gateway/internal/interfaces/http"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Populated via -ldflags at release build time.
var (
	version = "0.1.0"
	commit  = ""
)

func main() {
	root := &cobra.Command{
		Use:   "gateway",
		Short: "Nexis chat and agent-collaboration gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
		SilenceUsage: true,
	}
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the gateway version",
		Run: func(cmd *cobra.Command, args []string) {
			if commit != "" {
				fmt.Printf("nexis-gateway v%s (%s)\n", version, commit)
				return
			}
			fmt.Printf("nexis-gateway v%s\n", version)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.NewLogger(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	log.Info("Starting nexis-gateway",
		zap.String("version", version),
		zap.String("bind_addr", cfg.Gateway.BindAddr),
	)
	monitoring.SetBuildInfo(version, commit)

	rooms, messages, members, err := buildRepositories(cfg, log)
	if err != nil {
		return err
	}

	store, err := buildVectorStore(cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	embedder := buildEmbedder(cfg, log)

	registry, err := buildRegistry(cfg, log)
	if err != nil {
		return err
	}

	indexSvc := indexing.NewService(embedder, store, indexing.RetryPolicy{
		MaxRetries:   cfg.Indexing.MaxRetries,
		InitialDelay: cfg.Indexing.InitialDelay,
		MaxDelay:     cfg.Indexing.MaxDelay,
		Multiplier:   cfg.Indexing.DelayMultiplier,
	}, log)
	queue := indexing.NewQueue(indexSvc, cfg.Indexing.QueueCapacity, log)

	conns := gateway.NewConnectionManager(cfg.Limits.MaxConnections, log)
	chat := gateway.NewChatService(
		rooms, messages, members,
		gateway.NewSemaphore(cfg.Limits.MaxConcurrentWrites),
		conns, queue, log,
	)
	chat.SetResponder(gateway.NewAIResponder(registry, cfg.AI.Member, cfg.AI.Model, log))

	searchSvc := search.NewService(embedder, store, log)

	var tokens *auth.TokenService
	if cfg.Auth.Secret != "" {
		tokens = auth.NewTokenService(auth.JWTConfig{
			Secret:        cfg.Auth.Secret,
			Issuer:        cfg.Auth.Issuer,
			Audience:      cfg.Auth.Audience,
			ExpirySeconds: int(cfg.Auth.ExpirySeconds),
		})
		log.Info("Bearer auth enabled", zap.String("issuer", cfg.Auth.Issuer))
	}

	host, port, err := splitBindAddr(cfg.Gateway.BindAddr)
	if err != nil {
		return err
	}
	server := httpserver.NewServer(httpserver.Config{
		Host: host,
		Port: port,
		Mode: cfg.Gateway.Mode,
	}, chat, searchSvc, conns, tokens, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	config.Watch(func(next *config.Config) {
		log.Info("Configuration reloaded", zap.String("log_level", next.Log.Level))
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("Received shutdown signal", zap.String("signal", sig.String()))
	conns.Announce([]byte(`{"type":"system","text":"server shutting down"}`))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error during shutdown", zap.Error(err))
	}
	queue.Close()
	conns.Close()

	log.Info("Gateway stopped")
	return nil
}

func buildRepositories(cfg *config.Config, log *zap.Logger) (repository.RoomRepository, repository.MessageRepository, repository.MemberRepository, error) {
	if cfg.Database.Type == "" {
		log.Info("Using in-memory persistence")
		return persistence.NewMemoryRoomRepository(),
			persistence.NewMemoryMessageRepository(),
			persistence.NewMemoryMemberRepository(), nil
	}

	db, err := persistence.NewDBConnection(&cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect database: %w", err)
	}
	log.Info("Using SQL persistence", zap.String("type", cfg.Database.Type))
	return persistence.NewGormRoomRepository(db),
		persistence.NewGormMessageRepository(db),
		persistence.NewGormMemberRepository(db), nil
}

func buildVectorStore(cfg *config.Config, log *zap.Logger) (vectorstore.VectorStore, error) {
	switch cfg.Vector.Backend {
	case "", "memory":
		return vectorstore.NewMemoryStore(cfg.Vector.Dimension), nil
	case "lancedb":
		return vectorstore.NewLanceDBStore(cfg.Vector.Path, cfg.Vector.Dimension, log)
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.Vector.Backend)
	}
}

func buildEmbedder(cfg *config.Config, log *zap.Logger) embedding.Provider {
	if cfg.Embedding.Provider == "openai" {
		return embedding.NewOpenAIProvider(embedding.OpenAIConfig{
			BaseURL: cfg.Embedding.BaseURL,
			APIKey:  cfg.Embedding.APIKey,
			Model:   cfg.Embedding.Model,
		}, log)
	}
	return embedding.NewMockProvider(cfg.Embedding.Dimension)
}

// buildRegistry registers every configured provider; with none configured
// it falls back to the single provider named by ai.provider.
func buildRegistry(cfg *config.Config, log *zap.Logger) (*llm.Registry, error) {
	registry := llm.NewRegistry()
	for _, p := range cfg.AI.Providers {
		provider, err := llm.CreateProvider(llm.ProviderConfig{
			Name:    p.Name,
			Type:    p.Type,
			BaseURL: p.BaseURL,
			APIKey:  p.APIKey,
			Model:   p.Model,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", p.Name, err)
		}
		registry.Register(provider)
	}
	if len(cfg.AI.Providers) == 0 {
		provider, err := llm.CreateProvider(llm.ProviderConfig{
			Type:   cfg.AI.Provider,
			APIKey: config.APIKeyFromEnv(cfg.AI.Provider),
			Model:  cfg.AI.Model,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", cfg.AI.Provider, err)
		}
		registry.Register(provider)
	}
	if cfg.AI.Provider != "" {
		// Best effort; the first registered provider stays default when
		// the configured name is absent.
		_ = registry.SetDefault(cfg.AI.Provider)
	}
	return registry, nil
}

func splitBindAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid bind_addr %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in bind_addr %q: %w", addr, err)
	}
	return host, port, nil
}
