package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultLockTTL = time.Minute

var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// MonitorLocker serialises checks of the same monitor across processes.
type MonitorLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewMonitorLocker(client *redis.Client, prefix string, ttl time.Duration) *MonitorLocker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}

	return &MonitorLocker{client: client, prefix: prefix, ttl: ttl}
}

func (l *MonitorLocker) key(monitorID string) string {
	return l.prefix + ":lock:monitor:" + monitorID
}

// Acquire returns ok=false when another job holds the monitor. The release
// func only deletes the lock if it is still ours.
func (l *MonitorLocker) Acquire(ctx context.Context, monitorID string) (func(), bool, error) {
	key := l.key(monitorID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock for monitor %s: %w", monitorID, err)
	}

	if !ok {
		return func() {}, false, nil
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = unlockScript.Run(ctx, l.client, []string{key}, token).Err()
	}

	return release, true, nil
}
