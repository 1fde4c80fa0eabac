// cmd/migrate — 独立迁移工具 (CI / 手动运维用, 服务启动时也会自动迁移)。
package main

import (
	"context"

	"github.com/agent-hub/go-chatview-v2/internal/config"
	"github.com/agent-hub/go-chatview-v2/internal/database"
	"github.com/agent-hub/go-chatview-v2/pkg/logger"
)

func main() {
	ctx := context.Background()

	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	if !cfg.PersistenceEnabled() {
		logger.Fatal("POSTGRES_CONNECTION_STRING not set")
	}

	pool, err := database.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("database init failed", logger.Any(logger.FieldError, err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, "./migrations"); err != nil {
		logger.Fatal("migration failed", logger.Any(logger.FieldError, err))
	}
	logger.Info("migrations complete")
}
