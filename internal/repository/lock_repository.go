package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// LockConfig tunes Redis lock acquisition. TTL bounds how long a lock
// survives a crashed holder; live holders keep extending it every TTL/3.
type LockConfig struct {
	TTL   time.Duration
	Wait  time.Duration
	Retry time.Duration
}

// RedisLockRepository provides school and class timetable locks shared by
// every API instance. A school lock excludes all class locks of that school;
// class locks of different classes do not exclude each other.
type RedisLockRepository struct {
	client *redis.Client
	cfg    LockConfig
	logger *zap.Logger
}

// NewRedisLockRepository constructs a Redis backed locker.
func NewRedisLockRepository(client *redis.Client, cfg LockConfig, logger *zap.Logger) *RedisLockRepository {
	if cfg.TTL <= 0 {
		cfg.TTL = 2 * time.Minute
	}
	if cfg.Wait <= 0 {
		cfg.Wait = 10 * time.Second
	}
	if cfg.Retry <= 0 {
		cfg.Retry = 50 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLockRepository{client: client, cfg: cfg, logger: logger}
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// refreshScript extends the key only while it still holds our token.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

func schoolLockKey(schoolID string) string {
	return fmt.Sprintf("lock:school:%s", schoolID)
}

func classLockKey(schoolID, classID string) string {
	return fmt.Sprintf("lock:class:%s:%s", schoolID, classID)
}

// LockSchool takes the school-wide lock, then waits until no class lock of
// the school is held.
func (r *RedisLockRepository) LockSchool(ctx context.Context, schoolID string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Wait)
	defer cancel()

	key := schoolLockKey(schoolID)
	token := uuid.NewString()
	for {
		ok, err := r.client.SetNX(ctx, key, token, r.cfg.TTL).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("acquire school lock: %w", err)
		}
		if ok {
			break
		}
		if err := r.sleep(ctx); err != nil {
			return nil, lockTimeout("school timetable is being changed", err)
		}
	}
	release := r.hold(key, token)

	pattern := classLockKey(schoolID, "*")
	for {
		busy, err := r.anyKey(ctx, pattern)
		if err != nil {
			release()
			if ctx.Err() != nil {
				return nil, lockTimeout("class edits still in progress", ctx.Err())
			}
			return nil, fmt.Errorf("scan class locks: %w", err)
		}
		if !busy {
			return release, nil
		}
		if err := r.sleep(ctx); err != nil {
			release()
			return nil, lockTimeout("class edits still in progress", err)
		}
	}
}

// LockClass takes the lock of one class. It never holds while the school
// lock is held: after taking the class key it re-checks the school key and
// backs off if a regeneration started in between.
func (r *RedisLockRepository) LockClass(ctx context.Context, schoolID, classID string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Wait)
	defer cancel()

	schoolKey := schoolLockKey(schoolID)
	key := classLockKey(schoolID, classID)
	token := uuid.NewString()
	for {
		held, err := r.exists(ctx, schoolKey)
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("check school lock: %w", err)
		}
		if err == nil && !held {
			ok, err := r.client.SetNX(ctx, key, token, r.cfg.TTL).Result()
			if err != nil && ctx.Err() == nil {
				return nil, fmt.Errorf("acquire class lock: %w", err)
			}
			if ok {
				release := r.hold(key, token)
				held, err = r.exists(ctx, schoolKey)
				if err == nil && !held {
					return release, nil
				}
				release()
			}
		}
		if err := r.sleep(ctx); err != nil {
			return nil, lockTimeout("class timetable is locked", err)
		}
	}
}

// hold keeps the lock alive until the returned release func is called.
func (r *RedisLockRepository) hold(key, token string) func() {
	interval := r.cfg.TTL / 3
	if interval <= 0 {
		interval = time.Millisecond
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if !r.refresh(key, token, interval) {
					return
				}
			}
		}
	}()

	release := r.releaser(key, token)
	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			release()
		})
	}
}

// refresh reports false once the key no longer holds our token.
func (r *RedisLockRepository) refresh(key, token string, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	n, err := refreshScript.Run(ctx, r.client, []string{key}, token, r.cfg.TTL.Milliseconds()).Int64()
	if err != nil {
		r.logger.Warn("failed to extend timetable lock", zap.String("key", key), zap.Error(err))
		return true
	}
	if n == 0 {
		r.logger.Warn("timetable lock lost before release", zap.String("key", key))
		return false
	}
	return true
}

func (r *RedisLockRepository) releaser(key, token string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			r.logger.Warn("failed to release timetable lock", zap.String("key", key), zap.Error(err))
		}
	}
}

func (r *RedisLockRepository) exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RedisLockRepository) anyKey(ctx context.Context, pattern string) (bool, error) {
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	if iter.Next(ctx) {
		return true, nil
	}
	return false, iter.Err()
}

func (r *RedisLockRepository) sleep(ctx context.Context) error {
	timer := time.NewTimer(r.cfg.Retry)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func lockTimeout(message string, err error) error {
	return appErrors.Wrap(err, appErrors.ErrLocked.Code, appErrors.ErrLocked.Status, message)
}
