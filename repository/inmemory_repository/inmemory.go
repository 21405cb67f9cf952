package inmemory_repository

import (
	"context"
	"sync"
	"time"

	"github.com/mohammad-safakhou/pathfinder/internal/helpers"
)

type seenRepository struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

func NewSeenRepository() *seenRepository {
	return &seenRepository{until: map[string]time.Time{}, now: time.Now}
}

func (r *seenRepository) Seen(_ context.Context, url string) (bool, error) {
	fp, err := helpers.URLFingerprint(url)
	if err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.until[fp]
	if !ok {
		return false, nil
	}
	if !r.now().Before(exp) {
		delete(r.until, fp)
		return false, nil
	}
	return true, nil
}

func (r *seenRepository) Mark(_ context.Context, url string, ttl time.Duration) error {
	fp, err := helpers.URLFingerprint(url)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.until[fp] = r.now().Add(ttl)
	return nil
}

type locker struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

func NewLocker() *locker {
	return &locker{held: map[string]time.Time{}, now: time.Now}
}

func (l *locker) TryLock(_ context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if exp, ok := l.held[key]; ok && l.now().Before(exp) {
		return nil, nil
	}
	exp := l.now().Add(ttl)
	l.held[key] = exp
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.held[key].Equal(exp) {
			delete(l.held, key)
		}
	}, nil
}
