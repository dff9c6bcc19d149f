package stock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/facturaIA/invoice-stock-service/internal/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const repairLockKey = "stock:repair:lock"

// Locker grants a named lock for at most ttl
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// RedisLocker shares locks between replicas through SET NX
type RedisLocker struct {
	client *redis.Client
	token  string
}

// unlockScript deletes the key only while it still holds our token
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client, token: uuid.NewString()}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, key, l.token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	return ok, nil
}

func (l *RedisLocker) Unlock(ctx context.Context, key string) error {
	if err := unlockScript.Run(ctx, l.client, []string{key}, l.token).Err(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	return nil
}

// LocalLocker is the in-process Locker used when Redis is not configured
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]time.Time)}
}

func (l *LocalLocker) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if until, held := l.locks[key]; held && now.Before(until) {
		return false, nil
	}
	l.locks[key] = now.Add(ttl)
	return true, nil
}

func (l *LocalLocker) Unlock(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.locks, key)
	l.mu.Unlock()
	return nil
}

// RepairScheduler runs RepairAll periodically on whichever replica holds the lock
type RepairScheduler struct {
	ledger   *Ledger
	locker   Locker
	interval time.Duration
	log      zerolog.Logger
}

// NewRepairScheduler creates a scheduler. A nil locker means a LocalLocker.
func NewRepairScheduler(ledger *Ledger, locker Locker, interval time.Duration) *RepairScheduler {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &RepairScheduler{
		ledger:   ledger,
		locker:   locker,
		interval: interval,
		log:      logger.WithComponent("repair"),
	}
}

// Run repairs on every tick until ctx is done. A non-positive interval
// disables the job.
func (s *RepairScheduler) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Info().Msg("stock repair job disabled")
		return
	}
	s.log.Info().Dur("interval", s.interval).Msg("stock repair job started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("stock repair job stopped")
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.log.Error().Err(err).Msg("stock repair failed")
			}
		}
	}
}

// RunOnce repairs all products if the lock is free. It reports whether this
// call did the work.
func (s *RepairScheduler) RunOnce(ctx context.Context) (bool, error) {
	ttl := s.interval
	if ttl <= 0 {
		ttl = time.Hour
	}
	ok, err := s.locker.TryLock(ctx, repairLockKey, ttl)
	if err != nil {
		return false, err
	}
	if !ok {
		s.log.Debug().Msg("stock repair running elsewhere, skipping")
		return false, nil
	}
	defer func() {
		if err := s.locker.Unlock(context.WithoutCancel(ctx), repairLockKey); err != nil {
			s.log.Warn().Err(err).Msg("failed to release repair lock")
		}
	}()

	if _, err := s.ledger.RepairAll(ctx); err != nil {
		return true, err
	}
	return true, nil
}
