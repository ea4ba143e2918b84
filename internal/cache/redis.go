package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	ShiftTemplatesKey     = "shift_templates:all"
	PendingChangesKeyFmt  = "shift_changes:pending:%d"
	StoreSchedulesKeyFmt  = "schedules:%d:%s:%s"
	StoreSchedulesPattern = "schedules:%d:*"

	TemplatesTTL      = 24 * time.Hour
	PendingChangesTTL = time.Minute
	SchedulesTTL      = 2 * time.Minute
)

var client *redis.Client

// Init connects to Redis. An empty address leaves caching disabled; a failed
// ping does the same so every helper below degrades to a no-op.
func Init(addr, password string, db int) error {
	if addr == "" {
		log.Printf("[Redis] No address configured, caching disabled")
		return nil
	}

	client = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		// Close the failed client and set to nil for graceful degradation
		client.Close()
		client = nil
		return err
	}
	return nil
}

// Close releases the connection pool on shutdown
func Close() {
	if client != nil {
		client.Close()
	}
}

// GetClient returns the Redis client (nil when disabled)
func GetClient() *redis.Client {
	return client
}

// GetCached returns cached data for a key
func GetCached(ctx context.Context, key string) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetCached stores data with a TTL
func SetCached(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if client == nil {
		return
	}
	client.Set(ctx, key, data, ttl)
}

// GetJSON decodes a cached value into dst; false on miss or decode failure.
func GetJSON(ctx context.Context, key string, dst any) bool {
	data, ok := GetCached(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

// SetJSON encodes v and stores it with a TTL
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	if client == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	SetCached(ctx, key, data, ttl)
}

// InvalidatePattern removes all keys matching a glob pattern
func InvalidatePattern(ctx context.Context, pattern string) {
	if client == nil {
		return
	}
	var cursor uint64
	for {
		keys, next, err := client.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return
		}
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		if next == 0 {
			return
		}
		cursor = next
	}
}

// InvalidateKeys removes specific cache keys
func InvalidateKeys(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	client.Del(ctx, keys...)
}

func PendingChangesKey(storeID int) string {
	return fmt.Sprintf(PendingChangesKeyFmt, storeID)
}

func StoreSchedulesKey(storeID int, from, to string) string {
	return fmt.Sprintf(StoreSchedulesKeyFmt, storeID, from, to)
}

// InvalidateStoreSchedules clears cached schedule listings of one store.
// Called when: CreateSchedule, CancelSchedule, CheckIn, CheckOut, approved change requests
func InvalidateStoreSchedules(ctx context.Context, storeID int) {
	InvalidatePattern(ctx, fmt.Sprintf(StoreSchedulesPattern, storeID))
}

// InvalidateAllSchedules clears every store's schedule listings.
// Called when: the absence sweep marks entries
func InvalidateAllSchedules(ctx context.Context) {
	InvalidatePattern(ctx, "schedules:*")
}

// InvalidatePendingChanges clears the pending-request badge of a store.
// Called when: CreateChangeRequest, ReviewChangeRequest, CancelChangeRequest
func InvalidatePendingChanges(ctx context.Context, storeID int) {
	InvalidateKeys(ctx, PendingChangesKey(storeID))
}

// IsHealthy returns true if Redis connection is working
func IsHealthy() bool {
	if client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}

// PreWarmKey fills a cache key in the background. Non-blocking.
func PreWarmKey(key string, fetcher func(ctx context.Context) (any, error), ttl time.Duration) {
	if client == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		v, err := fetcher(ctx)
		if err != nil {
			log.Printf("[Redis] Pre-warm of %s failed: %v", key, err)
			return
		}
		SetJSON(ctx, key, v, ttl)
	}()
}
