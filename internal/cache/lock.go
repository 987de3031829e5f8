package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another process owns the lock.
var ErrLockHeld = errors.New("lock is held by another owner")

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Lease is an acquired Redis lock.
type Lease struct {
	key   string
	token string
}

// Acquire takes key for ttl. Without Redis it returns a no-op lease so single-instance
// deployments keep working.
func Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	lease := &Lease{key: key, token: uuid.NewString()}
	if client == nil {
		return lease, nil
	}
	ok, err := client.SetNX(ctx, key, lease.token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return lease, nil
}

// Release drops the lease if it is still owned by the caller.
func (l *Lease) Release(ctx context.Context) error {
	if client == nil || l == nil {
		return nil
	}
	return unlockScript.Run(ctx, client, []string{l.key}, l.token).Err()
}
