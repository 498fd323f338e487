// Package internal wires the connectd application together: config,
// storage, the OAuth connector, and the HTTP server.
package internal

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/assistkit/connectd/internal/auth"
	"github.com/assistkit/connectd/internal/config"
	"github.com/assistkit/connectd/internal/identity"
	"github.com/assistkit/connectd/internal/log"
	"github.com/assistkit/connectd/internal/metrics"
	"github.com/assistkit/connectd/internal/server"
	"github.com/assistkit/connectd/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Connectd represents the complete OAuth integration application
type Connectd struct {
	config     config.Config
	httpServer *server.HTTPServer
	tokens     store.TokenStore
}

// NewConnectd creates the application with all dependencies built
func NewConnectd(ctx context.Context, cfg config.Config) (*Connectd, error) {
	log.LogInfoWithFields("connectd", "Building application", map[string]any{
		"baseURL":   cfg.Server.BaseURL,
		"providers": len(cfg.Providers),
		"storage":   cfg.Server.Storage,
	})

	tokens, err := setupStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup storage: %w", err)
	}

	registry, err := config.BuildRegistry(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build provider registry: %w", err)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewCollector(promRegistry)

	connector := auth.NewConnector(registry, tokens, []byte(cfg.Server.SigningKey), recorder)

	router := server.NewRouter(connector, identity.NewCorrelator(), registry, server.RouterOptions{
		LandingPage:      cfg.Server.PostAuthRedirect,
		InternalAPIToken: string(cfg.Server.InternalAPIToken),
		Registry:         promRegistry,
	})

	return &Connectd{
		config:     cfg,
		httpServer: server.NewHTTPServer(router, cfg.Server.Addr),
		tokens:     tokens,
	}, nil
}

// Run starts the application and blocks until shutdown
func (c *Connectd) Run() error {
	log.LogInfoWithFields("connectd", "Starting application", map[string]any{
		"addr": c.config.Server.Addr,
	})

	errChan := make(chan error, 1)
	go func() {
		if err := c.httpServer.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var shutdownReason string
	select {
	case sig := <-sigChan:
		shutdownReason = fmt.Sprintf("signal %v", sig)
		log.LogInfoWithFields("connectd", "Received shutdown signal", map[string]any{
			"signal": sig.String(),
		})
	case err := <-errChan:
		shutdownReason = fmt.Sprintf("error: %v", err)
		log.LogErrorWithFields("connectd", "Shutting down due to error", map[string]any{
			"error": err.Error(),
		})
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := c.httpServer.Stop(shutdownCtx); err != nil {
		log.LogErrorWithFields("connectd", "HTTP server shutdown error", map[string]any{
			"error": err.Error(),
		})
		return err
	}

	if closer, ok := c.tokens.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.LogWarnWithFields("connectd", "Token store close error", map[string]any{
				"error": err.Error(),
			})
		}
	}

	log.LogInfoWithFields("connectd", "Application shutdown complete", map[string]any{
		"reason": shutdownReason,
	})
	return nil
}

// setupStorage creates the token store backend from configuration
func setupStorage(ctx context.Context, cfg config.Config) (store.TokenStore, error) {
	switch cfg.Server.Storage {
	case config.StorageRedis:
		log.LogInfoWithFields("storage", "Using Redis token store", nil)
		return store.NewRedisStore(cfg.Server.RedisURL)
	case config.StorageFirestore:
		log.LogInfoWithFields("storage", "Using Firestore token store", map[string]any{
			"project":    cfg.Server.GCPProject,
			"database":   cfg.Server.FirestoreDatabase,
			"collection": cfg.Server.FirestoreCollection,
		})
		return store.NewFirestoreStore(ctx, cfg.Server.GCPProject, cfg.Server.FirestoreDatabase, cfg.Server.FirestoreCollection)
	default:
		log.LogInfoWithFields("storage", "Using in-memory token store", nil)
		return store.NewMemoryStore(), nil
	}
}
