package app

import (
	"fmt"
	"os"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/normscout/normscout-backend/internal/platform/logger"
	"github.com/normscout/normscout-backend/internal/platform/openrouter"
	"github.com/normscout/normscout-backend/internal/store"
)

type Clients struct {
	Redis      *goredis.Client
	OpenRouter openrouter.Client
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis is optional; without it sessions and workspaces fall back to
	// in-process stores and do not survive restarts.
	var rdb *goredis.Client
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		c, err := store.NewRedisClient(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis client: %w", err)
		}
		rdb = c
	} else {
		log.Warn("REDIS_ADDR not set, using in-memory session and workspace stores")
	}

	llm, err := openrouter.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init openrouter client: %w", err)
	}

	return Clients{
		Redis:      rdb,
		OpenRouter: llm,
	}, nil
}
