// cmd/server — 会话重建服务主入口。
package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/agent-hub/go-chatview-v2/internal/apiserver"
	"github.com/agent-hub/go-chatview-v2/internal/config"
	"github.com/agent-hub/go-chatview-v2/internal/database"
	"github.com/agent-hub/go-chatview-v2/internal/store"
	"github.com/agent-hub/go-chatview-v2/pkg/logger"
	"github.com/agent-hub/go-chatview-v2/pkg/util"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	stores := &apiserver.Stores{}
	if cfg.PersistenceEnabled() {
		pool, err := database.NewPool(ctx, cfg)
		if err != nil {
			logger.Fatal("database init failed", logger.Any(logger.FieldError, err))
		}
		defer pool.Close()

		if err := database.Migrate(ctx, pool, "./migrations"); err != nil {
			logger.Fatal("migration failed", logger.Any(logger.FieldError, err))
		}

		stores.SessionMessage = store.NewSessionMessageStore(pool)
		stores.RewindEvent = store.NewRewindEventStore(pool)
	} else {
		logger.Info("persistence disabled, running in-memory only")
	}

	srv := apiserver.NewServer(cfg, stores)

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	logger.Infow("server starting", logger.FieldPort, addr)

	util.SafeGo(func() {
		if err := srv.Engine().Run(addr); err != nil {
			logger.Fatal("server failed", logger.Any(logger.FieldError, err))
		}
	})

	<-ctx.Done()
	logger.Info("shutting down")
}
