// cmd/server/main.go
package main

import (
	"context"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/duelhouse/wager-service/internal/auth"
	"github.com/duelhouse/wager-service/internal/ban"
	"github.com/duelhouse/wager-service/internal/cache"
	"github.com/duelhouse/wager-service/internal/cashout"
	"github.com/duelhouse/wager-service/internal/config"
	"github.com/duelhouse/wager-service/internal/engine"
	"github.com/duelhouse/wager-service/internal/game"
	"github.com/duelhouse/wager-service/internal/handlers"
	"github.com/duelhouse/wager-service/internal/ledger"
	"github.com/duelhouse/wager-service/internal/notify"
	"github.com/duelhouse/wager-service/internal/rematch"
	"github.com/duelhouse/wager-service/internal/room"
)

func main() {
	auth.Init()

	logger := logrus.New()
	if os.Getenv("DEBUG") != "" {
		logger.SetLevel(logrus.DebugLevel)
	}

	cfg := config.FromEnv()
	ctx := context.Background()

	// Ledger: postgres when DATABASE_URL is set, in-memory otherwise.
	var store ledger.Store
	var bans ban.Store
	if url := os.Getenv("DATABASE_URL"); url != "" {
		pg, err := ledger.Connect(ctx, url)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		store = pg
		bans = ban.NewPGStore(pg.Pool())
		logger.Info("using postgres ledger")
	} else {
		store = ledger.NewMemoryLedger()
		bans = ban.NewMemoryStore()
		logger.Warn("DATABASE_URL not set, using in-memory ledger")
	}

	hub := notify.NewHub(logger)
	registry := room.NewRegistry(logger)
	// One process-wide source shared by every resolution; *rand.Rand is not
	// goroutine-safe on its own.
	src := game.NewLockedSource(rand.New(rand.NewSource(time.Now().UnixNano())))
	eng := engine.New(cfg, registry, store, hub, src, logger)

	// Results feed for the historian. Optional: without Redis, settled
	// matches are only kept in per-user history.
	if err := cache.ConnectRedis(); err != nil {
		logger.WithError(err).Warn("redis unavailable, settled matches will not be queued")
	} else {
		eng.Publish = cache.PublishSettledMatch
	}

	coord := rematch.NewCoordinator(registry, store, hub, logger)
	eng.OnSettled = coord.RecordFinished

	srv := &handlers.Server{
		Cfg:      cfg,
		Log:      logger,
		Engine:   eng,
		Rematch:  coord,
		Store:    store,
		Cashouts: cashout.NewStore(store, logger),
		Bans:     bans,
		Hub:      hub,
	}

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, srv.Routes()); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
