package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Only the owner token may release a lock.
var releaseLockScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// ErrLockNotHeld is returned when releasing a lock whose TTL has already
// expired or that another owner now holds.
var ErrLockNotHeld = errors.New("lock not held")

// TransactionLockKey is the key guarding concurrent finishes of one
// transaction.
func TransactionLockKey(id uuid.UUID) string {
	return "lock:transaction:" + id.String()
}

// DistributedLock is a single-instance Redis lock (SET NX PX with an owner
// token). It reduces duplicate gateway charges but does not replace the
// compare-and-set in the transaction store: a lock can expire mid-call.
type DistributedLock struct {
	client   *redis.Client
	key      string
	value    string
	ttl      time.Duration
	acquired bool
}

func NewDistributedLock(client *redis.Client, key string, ttl time.Duration) *DistributedLock {
	return &DistributedLock{
		client: client,
		key:    key,
		value:  uuid.New().String(),
		ttl:    ttl,
	}
}

// Acquire reports whether the lock was taken. It never blocks.
func (l *DistributedLock) Acquire(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", l.key, err)
	}
	l.acquired = success
	return success, nil
}

func (l *DistributedLock) Release(ctx context.Context) error {
	if !l.acquired {
		return nil
	}
	l.acquired = false

	result, err := releaseLockScript.Run(ctx, l.client, []string{l.key}, l.value).Result()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.key, err)
	}
	if val, ok := result.(int64); !ok || val == 0 {
		return fmt.Errorf("release %s: %w", l.key, ErrLockNotHeld)
	}
	return nil
}

// Locker hands out transaction locks. It satisfies the HTTP layer's
// FinishLocker port.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	return &Locker{client: client, ttl: ttl}
}

// TryLock takes the finish lock for a transaction. The returned release
// function is nil when the lock was not acquired.
func (l *Locker) TryLock(ctx context.Context, transactionID uuid.UUID) (func(context.Context) error, bool, error) {
	lock := NewDistributedLock(l.client, TransactionLockKey(transactionID), l.ttl)
	ok, err := lock.Acquire(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	return lock.Release, true, nil
}
