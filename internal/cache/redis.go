// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/duelhouse/wager-service/internal/game"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultQueueName is the Redis list (queue) the historian drains.
var DefaultQueueName = "wager_results"

// SettledMatchRecord is the minimal info the historian needs to persist one
// finished match.
type SettledMatchRecord struct {
	RoomID       string    `json:"room_id"`
	Kind         game.Kind `json:"kind"`
	Stake        float64   `json:"stake"`
	CreatorID    int64     `json:"creator_id"`
	OpponentID   int64     `json:"opponent_id"`
	WinnerID     int64     `json:"winner_id,omitempty"`
	Draw         bool      `json:"draw"`
	WinnerPayout float64   `json:"winner_payout"`
	HouseFee     float64   `json:"house_fee"`
	Rematch      bool      `json:"rematch"`
	Timestamp    int64     `json:"timestamp"`
}

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// PublishSettledMatch serializes the record to JSON and pushes it onto the
// results queue. Settlement already committed by the time this runs, so the
// caller treats errors as log-and-continue.
func PublishSettledMatch(ctx context.Context, record SettledMatchRecord) error {
	if Rdb == nil {
		return fmt.Errorf("redis client not connected")
	}
	if record.Timestamp == 0 {
		record.Timestamp = time.Now().UnixMilli()
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal SettledMatchRecord: %w", err)
	}

	queueName := getEnv("HISTORIAN_QUEUE_NAME", DefaultQueueName)
	if err := Rdb.RPush(ctx, queueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queueName, err)
	}
	return nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
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
