package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func TestMemoryLockerSchoolExcludesClassEdits(t *testing.T) {
	locker := NewMemoryLocker(30*time.Millisecond, time.Millisecond)

	release, err := locker.LockSchool(context.Background(), testSchool)
	require.NoError(t, err)

	_, err = locker.LockClass(context.Background(), testSchool, "class-a")
	assert.ErrorIs(t, err, appErrors.ErrLocked)

	// Other schools are independent.
	releaseOther, err := locker.LockClass(context.Background(), "school-2", "class-a")
	require.NoError(t, err)
	releaseOther()

	release()
	releaseClass, err := locker.LockClass(context.Background(), testSchool, "class-a")
	require.NoError(t, err)
	releaseClass()
}

func TestMemoryLockerClassLocksRunInParallel(t *testing.T) {
	locker := NewMemoryLocker(30*time.Millisecond, time.Millisecond)

	releaseA, err := locker.LockClass(context.Background(), testSchool, "class-a")
	require.NoError(t, err)
	releaseB, err := locker.LockClass(context.Background(), testSchool, "class-b")
	require.NoError(t, err)

	_, err = locker.LockClass(context.Background(), testSchool, "class-a")
	assert.ErrorIs(t, err, appErrors.ErrLocked)
	_, err = locker.LockSchool(context.Background(), testSchool)
	assert.ErrorIs(t, err, appErrors.ErrLocked)

	releaseA()
	releaseB()
	release, err := locker.LockSchool(context.Background(), testSchool)
	require.NoError(t, err)
	release()
}

func TestMemoryLockerWaitsForRelease(t *testing.T) {
	locker := NewMemoryLocker(time.Second, time.Millisecond)
	release, err := locker.LockSchool(context.Background(), testSchool)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	var waitErr error
	go func() {
		defer wg.Done()
		var r func()
		r, waitErr = locker.LockClass(context.Background(), testSchool, "class-a")
		if waitErr == nil {
			r()
		}
	}()
	time.Sleep(10 * time.Millisecond)
	release()
	wg.Wait()
	assert.NoError(t, waitErr)
}

func TestMemoryLockerHonoursContext(t *testing.T) {
	locker := NewMemoryLocker(time.Second, time.Millisecond)
	release, err := locker.LockSchool(context.Background(), testSchool)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = locker.LockSchool(ctx, testSchool)
	assert.ErrorIs(t, err, appErrors.ErrLocked)
}
