package service

import (
	"context"
	"sync"
	"time"

	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// timetableLocker serialises timetable writes. LockSchool excludes every
// class lock of the school; class locks of different classes run in parallel.
type timetableLocker interface {
	LockSchool(ctx context.Context, schoolID string) (func(), error)
	LockClass(ctx context.Context, schoolID, classID string) (func(), error)
}

// MemoryLocker implements timetableLocker for a single API instance. Each
// school owns a RWMutex: regeneration takes it exclusively, class edits share
// it and additionally hold a per-class mutex.
type MemoryLocker struct {
	wait  time.Duration
	retry time.Duration

	mu      sync.Mutex
	schools map[string]*sync.RWMutex
	classes map[string]*sync.Mutex
}

// NewMemoryLocker builds an in-process locker that gives up after wait.
func NewMemoryLocker(wait, retry time.Duration) *MemoryLocker {
	if wait <= 0 {
		wait = 10 * time.Second
	}
	if retry <= 0 {
		retry = 5 * time.Millisecond
	}
	return &MemoryLocker{
		wait:    wait,
		retry:   retry,
		schools: make(map[string]*sync.RWMutex),
		classes: make(map[string]*sync.Mutex),
	}
}

func (l *MemoryLocker) school(schoolID string) *sync.RWMutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.schools[schoolID]
	if !ok {
		m = &sync.RWMutex{}
		l.schools[schoolID] = m
	}
	return m
}

func (l *MemoryLocker) class(schoolID, classID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := schoolID + "/" + classID
	m, ok := l.classes[key]
	if !ok {
		m = &sync.Mutex{}
		l.classes[key] = m
	}
	return m
}

// LockSchool takes the school exclusively.
func (l *MemoryLocker) LockSchool(ctx context.Context, schoolID string) (func(), error) {
	m := l.school(schoolID)
	if err := l.poll(ctx, m.TryLock, "school timetable is being changed"); err != nil {
		return nil, err
	}
	return m.Unlock, nil
}

// LockClass shares the school lock and takes the class lock.
func (l *MemoryLocker) LockClass(ctx context.Context, schoolID, classID string) (func(), error) {
	sm := l.school(schoolID)
	if err := l.poll(ctx, sm.TryRLock, "school timetable is being regenerated"); err != nil {
		return nil, err
	}
	cm := l.class(schoolID, classID)
	if err := l.poll(ctx, cm.TryLock, "class timetable is locked"); err != nil {
		sm.RUnlock()
		return nil, err
	}
	return func() {
		cm.Unlock()
		sm.RUnlock()
	}, nil
}

func (l *MemoryLocker) poll(ctx context.Context, try func() bool, message string) error {
	if try() {
		return nil
	}
	timeout := time.NewTimer(l.wait)
	defer timeout.Stop()
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return appErrors.Wrap(ctx.Err(), appErrors.ErrLocked.Code, appErrors.ErrLocked.Status, message)
		case <-timeout.C:
			return appErrors.Clone(appErrors.ErrLocked, message)
		case <-ticker.C:
			if try() {
				return nil
			}
		}
	}
}
