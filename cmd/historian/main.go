// cmd/historian/main.go is an asynchronous historian service that pops
// settled match records from a Redis queue and persists them to PostgreSQL.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"

	"github.com/duelhouse/wager-service/internal/cache"
)

// HistorianService drains the settled-match queue in batches and writes
// them to the settled_matches table.
//
// Expected schema:
//
//	CREATE TABLE settled_matches (
//	    room_id TEXT NOT NULL,
//	    kind TEXT NOT NULL,
//	    stake DOUBLE PRECISION NOT NULL,
//	    creator_id BIGINT NOT NULL,
//	    opponent_id BIGINT NOT NULL,
//	    winner_id BIGINT,
//	    draw BOOLEAN NOT NULL,
//	    winner_payout DOUBLE PRECISION NOT NULL,
//	    house_fee DOUBLE PRECISION NOT NULL,
//	    rematch BOOLEAN NOT NULL,
//	    settled_at TIMESTAMPTZ NOT NULL
//	);
type HistorianService struct {
	redisClient *redis.Client
	pool        *pgxpool.Pool
	batchSize   int
	flushDelay  time.Duration

	batchMu  sync.Mutex
	batch    []cache.SettledMatchRecord
	ctx      context.Context
	cancelFn context.CancelFunc
}

// NewHistorianService constructs a HistorianService from environment
// variables or defaults.
func NewHistorianService() *HistorianService {
	batchSize := getEnvInt("HISTORIAN_BATCH_SIZE", 20)
	flushMs := getEnvInt("HISTORIAN_FLUSH_MS", 500)

	rdb := redis.NewClient(&redis.Options{
		Addr: getEnv("REDIS_ADDR", "localhost:6379"),
		DB:   getEnvInt("REDIS_DB", 0),
	})

	ctx, cancel := context.WithCancel(context.Background())
	return &HistorianService{
		redisClient: rdb,
		batchSize:   batchSize,
		flushDelay:  time.Duration(flushMs) * time.Millisecond,
		batch:       make([]cache.SettledMatchRecord, 0, batchSize),
		ctx:         ctx,
		cancelFn:    cancel,
	}
}

// Run connects to the database and starts the queue-draining loop. It
// blocks until the context is cancelled.
func (hs *HistorianService) Run() error {
	pool, err := pgxpool.New(hs.ctx, os.Getenv("DATABASE_URL"))
	if err != nil {
		return fmt.Errorf("failed to create db pool: %w", err)
	}
	hs.pool = pool
	defer pool.Close()

	go hs.readRedisLoop()

	log.Println("wager-historian service started.")
	<-hs.ctx.Done()
	hs.flushBatchToDB()
	log.Println("wager-historian shutting down.")
	return nil
}

// readRedisLoop continuously uses BLPop to retrieve records from the
// Redis queue, flushing the accumulated batch on a timer.
func (hs *HistorianService) readRedisLoop() {
	ticker := time.NewTicker(hs.flushDelay)
	defer ticker.Stop()

	queueName := getEnv("HISTORIAN_QUEUE_NAME", cache.DefaultQueueName)

	for {
		select {
		case <-hs.ctx.Done():
			return

		case <-ticker.C:
			hs.flushBatchToDB()

		default:
			// BLPop with a short timeout so cancellation is handled.
			res, err := hs.redisClient.BLPop(hs.ctx, 3*time.Second, queueName).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				if hs.ctx.Err() != nil {
					return
				}
				log.Printf("[ERROR] BLPop: %v\n", err)
				continue
			}
			if len(res) < 2 {
				continue
			}

			var record cache.SettledMatchRecord
			if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
				log.Printf("invalid settled match record: %v\n", err)
				continue
			}
			hs.appendToBatch(record)
		}
	}
}

// appendToBatch adds a record and flushes if the threshold is reached.
func (hs *HistorianService) appendToBatch(record cache.SettledMatchRecord) {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()

	hs.batch = append(hs.batch, record)
	if len(hs.batch) >= hs.batchSize {
		hs.flushBatchToDBLocked()
	}
}

func (hs *HistorianService) flushBatchToDB() {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()
	hs.flushBatchToDBLocked()
}

// flushBatchToDBLocked writes the current batch in one transaction.
// Assumes batchMu is held.
func (hs *HistorianService) flushBatchToDBLocked() {
	if len(hs.batch) == 0 {
		return
	}
	batchCopy := make([]cache.SettledMatchRecord, len(hs.batch))
	copy(batchCopy, hs.batch)
	hs.batch = hs.batch[:0]

	ctx := context.Background()
	err := pgx.BeginTxFunc(ctx, hs.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
		INSERT INTO settled_matches
		    (room_id, kind, stake, creator_id, opponent_id, winner_id, draw,
		     winner_payout, house_fee, rematch, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`
		for _, rec := range batchCopy {
			var winner interface{}
			if rec.WinnerID != 0 {
				winner = rec.WinnerID
			}
			_, err := tx.Exec(ctx, q,
				rec.RoomID, rec.Kind, rec.Stake, rec.CreatorID, rec.OpponentID,
				winner, rec.Draw, rec.WinnerPayout, rec.HouseFee, rec.Rematch,
				time.UnixMilli(rec.Timestamp),
			)
			if err != nil {
				return fmt.Errorf("insert settled match %s: %w", rec.RoomID, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[ERROR] flushBatchToDB: %v\n", err)
	} else {
		log.Printf("Flushed %d settled matches to DB.\n", len(batchCopy))
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func main() {
	hs := NewHistorianService()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		hs.cancelFn()
	}()

	if err := hs.Run(); err != nil {
		log.Fatalf("historian exited: %v", err)
	}
}
