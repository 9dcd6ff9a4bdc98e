package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultLockTTL  = 2 * time.Minute
	defaultLockPoll = 100 * time.Millisecond
)

// ReleaseFunc gives a commit lock back.
type ReleaseFunc func(ctx context.Context) error

// CommitLock serialises commits for one slot. Acquire waits until the lock is free or ctx
// is done. TryAcquire never waits: ok is false while another commit holds the slot.
type CommitLock interface {
	Acquire(ctx context.Context, slot string) (ReleaseFunc, error)
	TryAcquire(ctx context.Context, slot string) (release ReleaseFunc, ok bool, err error)
}

// LocalCommitLock is an in-process keyed lock.
type LocalCommitLock struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewLocalCommitLock builds an empty lock table.
func NewLocalCommitLock() *LocalCommitLock {
	return &LocalCommitLock{slots: map[string]chan struct{}{}}
}

func (l *LocalCommitLock) Acquire(ctx context.Context, slot string) (ReleaseFunc, error) {
	token := l.token(slot)
	select {
	case token <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for commit lock %s: %w", slot, ctx.Err())
	}
	return localRelease(token), nil
}

func (l *LocalCommitLock) TryAcquire(_ context.Context, slot string) (ReleaseFunc, bool, error) {
	token := l.token(slot)
	select {
	case token <- struct{}{}:
		return localRelease(token), true, nil
	default:
		return nil, false, nil
	}
}

func localRelease(token chan struct{}) ReleaseFunc {
	var once sync.Once
	return func(context.Context) error {
		once.Do(func() { <-token })
		return nil
	}
}

func (l *LocalCommitLock) token(slot string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	token, ok := l.slots[slot]
	if !ok {
		token = make(chan struct{}, 1)
		l.slots[slot] = token
	}
	return token
}

// lockStore is the redis surface RedisCommitLock needs.
type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DeleteIfValue(ctx context.Context, key, value string) (bool, error)
}

// RedisCommitLock serialises commits across terminal processes with SETNX + TTL. The TTL
// bounds how long a crashed holder can block a slot.
type RedisCommitLock struct {
	client lockStore
	keyFor func(slot string) string
	ttl    time.Duration
	poll   time.Duration
}

// NewRedisCommitLock builds a Redis-backed commit lock. keyFor maps a slot to its lock key.
func NewRedisCommitLock(client lockStore, keyFor func(slot string) string, ttl, poll time.Duration) (*RedisCommitLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for commit lock")
	}
	if keyFor == nil {
		return nil, errors.New("lock key builder is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if poll <= 0 {
		poll = defaultLockPoll
	}
	return &RedisCommitLock{client: client, keyFor: keyFor, ttl: ttl, poll: poll}, nil
}

func (l *RedisCommitLock) Acquire(ctx context.Context, slot string) (ReleaseFunc, error) {
	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()
	for {
		release, acquired, err := l.TryAcquire(ctx, slot)
		if err != nil {
			return nil, err
		}
		if acquired {
			return release, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for commit lock %s: %w", slot, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *RedisCommitLock) TryAcquire(ctx context.Context, slot string) (ReleaseFunc, bool, error) {
	key := l.keyFor(slot)
	owner := uuid.NewString()
	acquired, err := l.client.SetNX(ctx, key, owner, l.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("setnx: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return func(releaseCtx context.Context) error {
		return l.release(releaseCtx, key, owner)
	}, true, nil
}

// release deletes the key only while this owner still holds it.
func (l *RedisCommitLock) release(ctx context.Context, key, owner string) error {
	if _, err := l.client.DeleteIfValue(ctx, key, owner); err != nil {
		return fmt.Errorf("release commit lock: %w", err)
	}
	return nil
}
