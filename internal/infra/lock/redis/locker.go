package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Eliezelg/villasaas-sub004/internal/app/policies"
)

const retryEvery = 50 * time.Millisecond

// releaseScript deletes the key only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a policies.Locker over SET NX PX. TTL bounds how long a crashed
// holder blocks the key; Wait bounds how long Acquire retries.
type Locker struct {
	Client *goredis.Client
	TTL    time.Duration
	Wait   time.Duration
}

func NewClient(url string) (*goredis.Client, error) {
	opt, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	return goredis.NewClient(opt), nil
}

func (l *Locker) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	token := uuid.NewString()
	waitCtx, cancel := context.WithTimeout(ctx, l.wait())
	defer cancel()
	ticker := time.NewTicker(retryEvery)
	defer ticker.Stop()
	for {
		ok, err := l.Client.SetNX(waitCtx, key, token, l.ttl()).Result()
		if err != nil && waitCtx.Err() == nil {
			return nil, fmt.Errorf("redis: acquire %s: %w", key, err)
		}
		if ok {
			return l.releaser(key, token), nil
		}
		select {
		case <-waitCtx.Done():
			return nil, fmt.Errorf("%w: %s", policies.ErrLockTimeout, key)
		case <-ticker.C:
		}
	}
}

func (l *Locker) releaser(key, token string) func(context.Context) error {
	return func(ctx context.Context) error {
		deleted, err := releaseScript.Run(ctx, l.Client, []string{key}, token).Int()
		if err != nil {
			return fmt.Errorf("redis: release %s: %w", key, err)
		}
		if deleted == 0 {
			return fmt.Errorf("%w: %s", policies.ErrLockLost, key)
		}
		return nil
	}
}

func (l *Locker) ttl() time.Duration {
	if l.TTL <= 0 {
		return 10 * time.Second
	}
	return l.TTL
}

func (l *Locker) wait() time.Duration {
	if l.Wait <= 0 {
		return 5 * time.Second
	}
	return l.Wait
}

var _ policies.Locker = (*Locker)(nil)
