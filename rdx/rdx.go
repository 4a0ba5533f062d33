package rdx

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var Conn *redis.Client

func init() {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	Conn = redis.NewClient(&redis.Options{
		Addr: addr,
	})
}

// RdxHset stores a field in a redis hash.
func RdxHset(hash, field, value string) error {
	return Conn.HSet(context.Background(), hash, field, value).Err()
}

func RdxHdel(hash, field string) error {
	return Conn.HDel(context.Background(), hash, field).Err()
}

// AcquireLock tries to acquire a short distributed lock keyed by name.
func AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := Conn.SetNX(ctx, "lock:"+name, "1", ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// ReleaseLock releases the lock.
func ReleaseLock(ctx context.Context, name string) {
	if err := Conn.Del(ctx, "lock:"+name).Err(); err != nil {
		log.Printf("ReleaseLock: failed for %s, err=%v\n", name, err)
	}
}
